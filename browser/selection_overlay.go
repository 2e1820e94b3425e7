package browser

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"
)

// selectionOverlay wraps the tile grid and turns drags that the tiles do not
// claim into marquee gestures. Positions passed on are absolute, the same
// space the tiles register in.
type selectionOverlay struct {
	widget.BaseWidget
	content fyne.CanvasObject

	dragging bool
	last     fyne.Position

	onStart func(pos fyne.Position)
	onMove  func(pos fyne.Position)
	onEnd   func(pos fyne.Position)
	onTap   func()
}

func newSelectionOverlay(content fyne.CanvasObject) *selectionOverlay {
	s := &selectionOverlay{content: content}
	s.ExtendBaseWidget(s)
	return s
}

func (s *selectionOverlay) CreateRenderer() fyne.WidgetRenderer {
	return &selectionOverlayRenderer{s: s}
}

func (s *selectionOverlay) Dragged(e *fyne.DragEvent) {
	if !s.dragging {
		s.dragging = true
		if s.onStart != nil {
			s.onStart(e.AbsolutePosition.Subtract(e.Dragged))
		}
	}

	s.last = e.AbsolutePosition
	if s.onMove != nil {
		s.onMove(e.AbsolutePosition)
	}
}

func (s *selectionOverlay) DragEnd() {
	if !s.dragging {
		return
	}
	s.dragging = false
	if s.onEnd != nil {
		s.onEnd(s.last)
	}
}

// Tapped fires for clicks on the background between tiles.
func (s *selectionOverlay) Tapped(*fyne.PointEvent) {
	if s.onTap != nil {
		s.onTap()
	}
}

var (
	_ fyne.Draggable = (*selectionOverlay)(nil)
	_ fyne.Tappable  = (*selectionOverlay)(nil)
)

type selectionOverlayRenderer struct {
	s *selectionOverlay
}

func (r *selectionOverlayRenderer) Layout(size fyne.Size) {
	r.s.content.Resize(size)
	r.s.content.Move(fyne.NewPos(0, 0))
}

func (r *selectionOverlayRenderer) MinSize() fyne.Size {
	return r.s.content.MinSize()
}

func (r *selectionOverlayRenderer) Refresh() {
	r.s.content.Refresh()
}

func (r *selectionOverlayRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.s.content}
}

func (r *selectionOverlayRenderer) Destroy() {}
