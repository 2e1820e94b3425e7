package browser

import (
	"image"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/alexballas/xfilehost/api"
)

// tile renders one remote file. It keeps the grid's registry in sync with
// its bounds on every move and resize.
type tile struct {
	widget.BaseWidget
	grid *tileGrid
	item api.Item

	icon      *widget.Icon
	thumbnail *canvas.Image
	label     *widget.Label
	bg        *canvas.Rectangle
	busy      *widget.Activity

	selected    bool
	downloading bool
	shownName   string
	shownWidth  float32
	loadTimer   *time.Timer
}

func newTile(g *tileGrid, item api.Item) *tile {
	t := &tile{
		grid:      g,
		icon:      widget.NewIcon(theme.FileIcon()),
		thumbnail: canvas.NewImageFromImage(nil),
		label:     widget.NewLabel(""),
		bg:        canvas.NewRectangle(theme.Color(theme.ColorNameSelection)),
		busy:      widget.NewActivity(),
	}
	t.thumbnail.FillMode = canvas.ImageFillContain
	t.thumbnail.Hide()
	t.bg.Hide()
	t.busy.Hide()
	t.label.Alignment = fyne.TextAlignCenter
	t.label.Wrapping = fyne.TextWrapBreak
	t.label.Truncation = fyne.TextTruncateClip
	t.ExtendBaseWidget(t)
	t.setItem(item)
	return t
}

func (t *tile) CreateRenderer() fyne.WidgetRenderer {
	return &tileRenderer{t: t}
}

func (t *tile) Move(pos fyne.Position) {
	t.BaseWidget.Move(pos)
	t.grid.register(t)
}

func (t *tile) Resize(size fyne.Size) {
	t.BaseWidget.Resize(size)
	t.grid.register(t)
	t.updateLabel()
}

func (t *tile) setItem(item api.Item) {
	previous := t.item
	t.item = item
	t.updateLabel()

	if previous.PreviewLink == item.PreviewLink && previous.ID == item.ID && t.thumbnail.Image != nil {
		return
	}
	t.icon.SetResource(iconForName(item.DisplayName()))
	t.icon.Show()
	t.thumbnail.Hide()
	t.thumbnail.Image = nil
	t.thumbnail.Refresh()
	t.loadPreview()
}

func (t *tile) loadPreview() {
	if t.loadTimer != nil {
		t.loadTimer.Stop()
		t.loadTimer = nil
	}
	link := t.item.PreviewLink
	if !t.item.HasPreview || link == "" || t.grid.previews == nil {
		return
	}

	if img := t.grid.previews.LoadMemoryOnly(link); img != nil {
		t.showPreview(img)
		return
	}

	// Fast page flips should not queue previews for tiles that are gone.
	t.loadTimer = time.AfterFunc(200*time.Millisecond, func() {
		t.grid.previews.Load(link, func(img image.Image) {
			fyne.Do(func() {
				if t.item.PreviewLink != link {
					return
				}
				t.showPreview(img)
			})
		})
	})
}

func (t *tile) showPreview(img image.Image) {
	t.thumbnail.Image = img
	t.thumbnail.Refresh()
	t.icon.Hide()
	t.thumbnail.Show()
}

func (t *tile) updateLabel() {
	name := t.item.DisplayName()
	width := t.Size().Width
	if width <= 0 {
		width = t.grid.tileWidth
	}
	if name == t.shownName && width == t.shownWidth {
		return
	}
	t.shownName, t.shownWidth = name, width

	textSize := theme.TextSize()
	style := t.label.TextStyle
	measure := func(s string) float32 {
		size, _ := fyne.CurrentApp().Driver().RenderedTextSize(s, textSize, style, nil)
		return size.Width
	}
	// Wrapped over two lines, with some slack for word breaks.
	t.label.SetText(shortenName(name, width*1.6, measure))
}

func (t *tile) setSelected(selected bool) {
	if t.selected == selected {
		return
	}
	t.selected = selected
	if selected {
		t.bg.Show()
	} else {
		t.bg.Hide()
	}
	t.bg.Refresh()
}

func (t *tile) setDownloading(on bool) {
	if t.downloading == on {
		return
	}
	t.downloading = on
	if on {
		t.busy.Show()
		t.busy.Start()
	} else {
		t.busy.Stop()
		t.busy.Hide()
	}
}

func (t *tile) stop() {
	if t.loadTimer != nil {
		t.loadTimer.Stop()
		t.loadTimer = nil
	}
	t.setDownloading(false)
}

// Tapped only selects on touch devices; desktop clicks arrive through MouseUp.
func (t *tile) Tapped(*fyne.PointEvent) {
	if fyne.CurrentDevice().IsMobile() {
		t.grid.tileClicked(t.item.ID, 0)
	}
}

func (t *tile) TappedSecondary(e *fyne.PointEvent) {
	t.grid.showContextMenu(t, e.Position)
}

var _ desktop.Mouseable = (*tile)(nil)

func (t *tile) MouseDown(*desktop.MouseEvent) {
	t.grid.dismissMenu()
}

func (t *tile) MouseUp(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	t.grid.tileClicked(t.item.ID, e.Modifier)
}

type tileRenderer struct {
	t *tile
}

func (r *tileRenderer) Layout(size fyne.Size) {
	t := r.t
	pad := theme.Padding()
	t.bg.Resize(size)

	previewHeight := size.Width * 0.75
	iconSize := fyne.NewSquareSize(fyne.Min(tileIconSize, previewHeight-pad*2))
	t.icon.Resize(iconSize)
	t.icon.Move(fyne.NewPos((size.Width-iconSize.Width)/2, (previewHeight-iconSize.Height)/2))

	t.thumbnail.Resize(fyne.NewSize(size.Width-pad*2, previewHeight-pad*2))
	t.thumbnail.Move(fyne.NewPos(pad, pad))

	busy := fyne.NewSquareSize(theme.IconInlineSize())
	t.busy.Resize(busy)
	t.busy.Move(fyne.NewPos(size.Width-busy.Width-pad, pad))

	t.label.Resize(fyne.NewSize(size.Width, size.Height-previewHeight))
	t.label.Move(fyne.NewPos(0, previewHeight))
}

func (r *tileRenderer) MinSize() fyne.Size {
	return tileSize(r.t.grid.tileWidth)
}

func (r *tileRenderer) Refresh() {
	r.t.bg.FillColor = theme.Color(theme.ColorNameSelection)
	r.t.bg.Refresh()
	r.t.icon.Refresh()
	r.t.thumbnail.Refresh()
	r.t.label.Refresh()
	r.t.busy.Refresh()
}

func (r *tileRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.t.bg, r.t.icon, r.t.thumbnail, r.t.label, r.t.busy}
}

func (r *tileRenderer) Destroy() {
	r.t.stop()
}

// shortenName cuts the middle out of names wider than limit, keeping the
// extension visible.
func shortenName(name string, limit float32, measure func(string) float32) string {
	if measure(name) <= limit {
		return name
	}
	ext := filepath.Ext(name)
	dots := ".."
	head := limit - measure(dots) - measure(ext)
	if head <= 0 {
		return dots + ext
	}

	base := []rune(name[:len(name)-len(ext)])
	low, high := 0, len(base)
	best := 0
	for low <= high {
		mid := (low + high) / 2
		if measure(string(base[:mid])) <= head {
			best = mid
			low = mid + 1
		} else {
			high = mid - 1
		}
	}
	return string(base[:best]) + dots + ext
}

func iconForName(name string) fyne.Resource {
	kind := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	switch {
	case strings.HasPrefix(kind, "image/"):
		return theme.FileImageIcon()
	case strings.HasPrefix(kind, "video/"):
		return theme.FileVideoIcon()
	case strings.HasPrefix(kind, "audio/"):
		return theme.FileAudioIcon()
	case strings.HasPrefix(kind, "text/"):
		return theme.FileTextIcon()
	case kind != "":
		return theme.FileApplicationIcon()
	}
	return theme.FileIcon()
}
