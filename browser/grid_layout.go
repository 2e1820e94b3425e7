package browser

import (
	"time"

	"fyne.io/fyne/v2"
)

const widthReportInterval = 60 * time.Millisecond

// gridAreaLayout stacks the grid under its overlays and hands the grid width
// to onWidth once the layout pass is over. Rows per page are fixed, so only
// the width decides the page size; height changes are laid out silently.
// Widths arriving faster than interval collapse into one report of the
// latest value. All fields belong to the app goroutine.
type gridAreaLayout struct {
	onWidth  func(width float32)
	interval time.Duration

	width    float32
	reported float32
	lastSent time.Time
	timer    *time.Timer
}

func newGridAreaLayout(onWidth func(float32)) *gridAreaLayout {
	return &gridAreaLayout{onWidth: onWidth, interval: widthReportInterval}
}

func (l *gridAreaLayout) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	for _, o := range objects {
		o.Move(fyne.NewPos(0, 0))
		o.Resize(size)
	}
	if size.Width <= 0 || abs32(size.Width-l.width) < 0.5 {
		return
	}
	l.width = size.Width
	l.schedule()
}

func (l *gridAreaLayout) MinSize(objects []fyne.CanvasObject) fyne.Size {
	size := fyne.NewSize(0, 0)
	for _, o := range objects {
		if o.Visible() {
			size = size.Max(o.MinSize())
		}
	}
	return size
}

func (l *gridAreaLayout) schedule() {
	if l.timer != nil {
		// The pending report reads the latest width.
		return
	}
	wait := l.interval - time.Since(l.lastSent)
	if wait <= 0 {
		// Never resize the grid from inside a layout pass.
		fyne.Do(l.report)
		return
	}
	l.timer = time.AfterFunc(wait, func() { fyne.Do(l.report) })
}

func (l *gridAreaLayout) report() {
	l.timer = nil
	l.lastSent = time.Now()
	if abs32(l.width-l.reported) < 0.5 || l.onWidth == nil {
		return
	}
	l.reported = l.width
	l.onWidth(l.reported)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
