package browser

import (
	"math"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// zoomLevels scale the configured tile width.
var zoomLevels = []float32{
	0.75,
	1.0,
	1.25,
	1.5,
	1.75,
	2.0,
}

const defaultZoomLevelIndex = 1 // 1.0

func clampZoomLevelIndex(i int) int {
	if i < 0 {
		return 0
	}
	if i >= len(zoomLevels) {
		return len(zoomLevels) - 1
	}
	return i
}

// zoom owns the zoom level, its toolbar buttons and its persistence.
type zoom struct {
	base    float32
	level   int
	prefs   fyne.Preferences
	onWidth func(width float32)

	in, out *widget.Button
}

func newZoom(base float32, prefs fyne.Preferences, onWidth func(float32)) *zoom {
	z := &zoom{base: base, level: defaultZoomLevelIndex, prefs: prefs, onWidth: onWidth}
	if prefs != nil {
		z.level = clampZoomLevelIndex(prefs.IntWithFallback(zoomLevelKey, defaultZoomLevelIndex))
	}
	z.out = widget.NewButtonWithIcon("", theme.ZoomOutIcon(), func() { z.adjust(-1) })
	z.in = widget.NewButtonWithIcon("", theme.ZoomInIcon(), func() { z.adjust(1) })
	z.updateButtons()
	return z
}

// tileWidth is the tile width for the current level.
func (z *zoom) tileWidth() float32 {
	return float32(math.Round(float64(z.base * zoomLevels[z.level])))
}

func (z *zoom) adjust(steps int) {
	if steps == 0 {
		return
	}
	z.setLevel(z.level + steps)
}

func (z *zoom) setLevel(level int) {
	level = clampZoomLevelIndex(level)
	if z.level == level {
		return
	}
	z.level = level
	if z.prefs != nil {
		z.prefs.SetInt(zoomLevelKey, level)
	}
	z.updateButtons()
	if z.onWidth != nil {
		z.onWidth(z.tileWidth())
	}
}

func (z *zoom) updateButtons() {
	if z.level <= 0 {
		z.out.Disable()
	} else {
		z.out.Enable()
	}
	if z.level >= len(zoomLevels)-1 {
		z.in.Disable()
	} else {
		z.in.Enable()
	}
}

func isZoomModifierActive() bool {
	mods := currentModifiers()
	// Command+scroll on macOS, Control elsewhere.
	return mods&(fyne.KeyModifierControl|fyne.KeyModifierShortcutDefault) != 0
}

// zoomScrollOverlay sits above the grid and only becomes visible, and so
// only receives scroll events, while the zoom modifier is held.
type zoomScrollOverlay struct {
	widget.BaseWidget
	onStep func(steps int)
	active func() bool
	accDY  float32
}

func newZoomScrollOverlay(onStep func(steps int)) *zoomScrollOverlay {
	z := &zoomScrollOverlay{onStep: onStep, active: isZoomModifierActive}
	z.ExtendBaseWidget(z)
	return z
}

func (z *zoomScrollOverlay) Visible() bool {
	if !z.BaseWidget.Visible() {
		return false
	}
	return z.active()
}

func (z *zoomScrollOverlay) Scrolled(e *fyne.ScrollEvent) {
	if z.onStep == nil {
		return
	}

	// A wheel notch is about 40 units; touchpads send many small deltas.
	const notch = float32(40)

	if math.IsNaN(float64(e.Scrolled.DY)) || math.IsInf(float64(e.Scrolled.DY), 0) {
		return
	}

	z.accDY += e.Scrolled.DY

	var steps int
	for z.accDY >= notch {
		steps++
		z.accDY -= notch
	}
	for z.accDY <= -notch {
		steps--
		z.accDY += notch
	}

	if steps != 0 {
		z.onStep(steps)
	}
}

func (z *zoomScrollOverlay) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(&fyne.Container{})
}

var _ fyne.Scrollable = (*zoomScrollOverlay)(nil)
