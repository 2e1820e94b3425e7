//go:build android || ios

package browser

import (
	"context"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"

	"github.com/alexballas/xfilehost/actions"
)

// dialogSaver lets the user pick the target through the platform save dialog.
type dialogSaver struct {
	win fyne.Window
}

func newSaver(win fyne.Window, _ string) actions.Saver {
	return &dialogSaver{win: win}
}

type saveResult struct {
	writer fyne.URIWriteCloser
	err    error
}

func (s *dialogSaver) Save(ctx context.Context, name string, data []byte) error {
	done := make(chan saveResult, 1)
	fyne.Do(func() {
		d := dialog.NewFileSave(func(w fyne.URIWriteCloser, err error) {
			done <- saveResult{writer: w, err: err}
		}, s.win)
		d.SetFileName(name)
		d.Show()
	})

	var res saveResult
	select {
	case res = <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if res.err != nil {
		return res.err
	}
	if res.writer == nil {
		return context.Canceled
	}

	if _, err := res.writer.Write(data); err != nil {
		res.writer.Close()
		return err
	}
	return res.writer.Close()
}
