package lasso

import (
	"math"

	"fyne.io/fyne/v2"
)

// Rect is an axis-aligned rectangle. Whether it is in content or viewport
// space depends on where it came from; Frame converts between the two.
type Rect struct {
	Pos  fyne.Position
	Size fyne.Size
}

// NewRect returns the rectangle at (x, y) with the given width and height.
func NewRect(x, y, w, h float32) Rect {
	return Rect{Pos: fyne.NewPos(x, y), Size: fyne.NewSize(w, h)}
}

// RectFromPoints returns the normalized rectangle spanned by two corners.
func RectFromPoints(a, b fyne.Position) Rect {
	x1 := math.Min(float64(a.X), float64(b.X))
	y1 := math.Min(float64(a.Y), float64(b.Y))
	x2 := math.Max(float64(a.X), float64(b.X))
	y2 := math.Max(float64(a.Y), float64(b.Y))
	return NewRect(float32(x1), float32(y1), float32(x2-x1), float32(y2-y1))
}

func (r Rect) Left() float32   { return r.Pos.X }
func (r Rect) Top() float32    { return r.Pos.Y }
func (r Rect) Right() float32  { return r.Pos.X + r.Size.Width }
func (r Rect) Bottom() float32 { return r.Pos.Y + r.Size.Height }

// Intersects reports whether the two rectangles overlap. Touching edges count.
func (r Rect) Intersects(o Rect) bool {
	return r.Right() >= o.Left() && r.Left() <= o.Right() &&
		r.Bottom() >= o.Top() && r.Top() <= o.Bottom()
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p fyne.Position) bool {
	return p.X >= r.Left() && p.X <= r.Right() && p.Y >= r.Top() && p.Y <= r.Bottom()
}

// Frame is a snapshot of a scrolling container: where its visible area sits
// in pointer coordinates and how far its content is scrolled.
//
// Content space is measured from the content origin and does not move when
// scrolling. Viewport space is measured from the visible top-left corner of
// the container.
type Frame struct {
	Origin fyne.Position
	Scroll fyne.Position
}

// ToContent converts a pointer position into content space.
func (f Frame) ToContent(p fyne.Position) fyne.Position {
	return p.Subtract(f.Origin).Add(f.Scroll)
}

// ToViewport converts a content-space position into viewport space.
func (f Frame) ToViewport(p fyne.Position) fyne.Position {
	return p.Subtract(f.Scroll)
}

// RectToContent converts a rectangle given in pointer coordinates.
func (f Frame) RectToContent(r Rect) Rect {
	return Rect{Pos: f.ToContent(r.Pos), Size: r.Size}
}

// RectToViewport converts a content-space rectangle for drawing.
func (f Frame) RectToViewport(r Rect) Rect {
	return Rect{Pos: f.ToViewport(r.Pos), Size: r.Size}
}
