// Package logging builds the zerolog loggers shared by the GUI and the CLI.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// New returns a console logger writing to w (stderr when nil) at the given
// level. Unknown levels fall back to info.
func New(level string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// retryLogger implements the retryablehttp.LeveledLogger interface
type retryLogger struct {
	l zerolog.Logger
}

// Retry adapts l for retryablehttp. Request chatter goes to debug.
func Retry(l zerolog.Logger) retryablehttp.LeveledLogger {
	return &retryLogger{l: l.With().Str("component", "http").Logger()}
}

func (r *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	withFields(r.l.Error(), keysAndValues).Msg(msg)
}

func (r *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	withFields(r.l.Debug(), keysAndValues).Msg(msg)
}

func (r *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	withFields(r.l.Debug(), keysAndValues).Msg(msg)
}

func (r *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	withFields(r.l.Warn(), keysAndValues).Msg(msg)
}

func withFields(ev *zerolog.Event, kv []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		ev = ev.Interface(key, kv[i+1])
	}
	return ev
}
