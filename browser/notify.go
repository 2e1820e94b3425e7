package browser

import (
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"github.com/alexballas/xfilehost/actions"
)

const toastTimeout = 4 * time.Second

// toast shows the latest action outcome in a label under the grid and hides
// it after a while.
type toast struct {
	label *widget.Label
	log   zerolog.Logger

	mu    sync.Mutex
	timer *time.Timer
	seq   int
}

func newToast(log zerolog.Logger) *toast {
	t := &toast{label: widget.NewLabel(""), log: log}
	t.label.Truncation = fyne.TextTruncateEllipsis
	t.label.Hide()
	return t
}

// Notify is safe to call from any goroutine.
func (t *toast) Notify(level actions.Level, message string) {
	ev := t.log.Info()
	importance := widget.MediumImportance
	switch level {
	case actions.Success:
		importance = widget.SuccessImportance
	case actions.Failure:
		ev = t.log.Warn()
		importance = widget.DangerImportance
	}
	ev.Str("message", message).Msg("notify")

	t.mu.Lock()
	t.seq++
	seq := t.seq
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(toastTimeout, func() {
		fyne.Do(func() { t.hide(seq) })
	})
	t.mu.Unlock()

	fyne.Do(func() {
		t.label.Importance = importance
		t.label.SetText(message)
		t.label.Show()
	})
}

func (t *toast) hide(seq int) {
	t.mu.Lock()
	current := t.seq == seq
	t.mu.Unlock()
	if current {
		t.label.Hide()
	}
}

// windowConfirmer asks through a modal dialog on the window.
type windowConfirmer struct {
	win fyne.Window
}

func (c windowConfirmer) Confirm(title, message string, onResult func(bool)) {
	fyne.Do(func() {
		d := dialog.NewConfirm(title, message, onResult, c.win)
		d.SetConfirmText("Delete")
		d.SetConfirmImportance(widget.DangerImportance)
		d.Show()
	})
}

// appClipboard writes to the clipboard of the running app.
type appClipboard struct{}

func (appClipboard) WriteText(text string) error {
	fyne.CurrentApp().Clipboard().SetContent(text)
	return nil
}
