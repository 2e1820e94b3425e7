package browser

import (
	"context"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"

	"github.com/alexballas/xfilehost/api"
)

const (
	tileIconSize   = 64
	tileLabelLines = 2
	zoomLevelKey   = "xfilehost:zoomLevel"
	listingKey     = "xfilehost:listing"
	dragClickGuard = 200 * time.Millisecond
)

// Service is everything the browser needs from the remote file API.
type Service interface {
	ListFiles(ctx context.Context, endpoint string, page, pageSize int) (*api.Page, error)
	BatchDelete(ctx context.Context, ids []int64) error
	BatchDownload(ctx context.Context, ids []int64) (*api.Blob, error)
	Fetch(ctx context.Context, link string) (*api.Blob, error)
	ResolveLink(link string) string
}

// tileSize returns the size of one tile for the given width: a square
// preview area plus room for the name.
func tileSize(width float32) fyne.Size {
	s, _ := fyne.CurrentApp().Driver().RenderedTextSize("A", theme.TextSize(), fyne.TextStyle{}, nil)
	return fyne.NewSize(width, width*0.75+s.Height*tileLabelLines+theme.Padding()*3)
}
