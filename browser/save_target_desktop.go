//go:build !android && !ios && (!flatpak || windows || wasm || js)

package browser

import (
	"fyne.io/fyne/v2"

	"github.com/alexballas/xfilehost/actions"
)

func newSaver(_ fyne.Window, dir string) actions.Saver {
	return &folderSaver{dir: dir}
}
