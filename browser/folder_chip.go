package browser

import (
	"net/url"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/FyshOS/fancyfs"
	"github.com/rs/zerolog"
)

// newFolderChip returns a toolbar button naming the download folder, using
// the folder's custom icon when it has one. Tapping it opens the folder.
func newFolderChip(dir string, log zerolog.Logger) *widget.Button {
	btn := widget.NewButtonWithIcon(filepath.Base(dir), folderIcon(dir), func() {
		u, err := url.Parse(storage.NewFileURI(dir).String())
		if err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("bad folder URL")
			return
		}
		if err := fyne.CurrentApp().OpenURL(u); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("could not open download folder")
		}
	})
	btn.Importance = widget.LowImportance
	return btn
}

func folderIcon(dir string) fyne.Resource {
	details, err := fancyfs.DetailsForFolder(storage.NewFileURI(dir))
	if err != nil || details == nil || details.BackgroundResource == nil {
		return theme.FolderIcon()
	}
	return details.BackgroundResource
}
