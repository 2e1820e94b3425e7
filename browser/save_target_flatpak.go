//go:build flatpak && !windows && !android && !ios && !wasm && !js

package browser

import (
	"context"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver"
	"fyne.io/fyne/v2/storage"

	"github.com/rymdport/portal"
	"github.com/rymdport/portal/filechooser"

	"github.com/alexballas/xfilehost/actions"
)

// portalSaver asks the desktop portal where to save, since the sandbox
// cannot write to the download folder directly.
type portalSaver struct {
	win fyne.Window
	dir string
}

func newSaver(win fyne.Window, dir string) actions.Saver {
	return &portalSaver{win: win, dir: dir}
}

func (s *portalSaver) Save(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var windowHandle string
	fyne.DoAndWait(func() {
		windowHandle = windowHandleForPortal(s.win)
	})

	options := &filechooser.SaveFileOptions{
		AcceptLabel:   "Save",
		CurrentName:   name,
		CurrentFolder: s.dir,
	}
	uris, err := filechooser.SaveFile(windowHandle, "Save File", options)
	if err != nil {
		return err
	}
	if len(uris) == 0 {
		return context.Canceled
	}

	uri, err := storage.ParseURI(uris[0])
	if err != nil {
		return err
	}
	return writeURI(uri, data)
}

func windowHandleForPortal(window fyne.Window) string {
	native, ok := window.(driver.NativeWindow)
	if !ok {
		return ""
	}

	windowHandle := ""
	native.RunNative(func(context any) {
		if x11, ok := context.(driver.X11WindowContext); ok {
			windowHandle = portal.FormatX11WindowHandle(x11.WindowHandle)
		}
	})
	return windowHandle
}
