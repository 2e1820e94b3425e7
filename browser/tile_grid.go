package browser

import (
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/alexballas/xfilehost/lasso"
	"github.com/alexballas/xfilehost/pager"
	"github.com/alexballas/xfilehost/preview"
	"github.com/alexballas/xfilehost/selection"
)

// tileGrid shows the controller's current page as tiles inside a vertical
// scroll and owns the marquee engine bound to that scroll.
type tileGrid struct {
	ctrl     *pager.Controller
	sel      *selection.Set
	previews *preview.Manager

	// menu builds the context menu for the current selection.
	menu func() *fyne.Menu
	// busy reports whether a single download of id is running.
	busy func(id int64) bool

	tileWidth float32
	gap       float32

	engine  *lasso.Engine
	overlay *selectionOverlay
	tiles   *fyne.Container
	scroll  *container.Scroll
	marquee *canvas.Rectangle
	content *fyne.Container

	byID      map[int64]*tile
	anchor    int64
	hasAnchor bool

	// Drag state. base is the selection a modifier drag adds to.
	base        []int64
	dragging    bool
	lastDragEnd time.Time
	pointer     fyne.Position
	move, up    func(fyne.Position)

	activeMenu *widget.PopUp

	autoScrollTicker *time.Ticker
	autoScrollStop   chan struct{}
	autoScrollDir    int
	autoScrollStep   float32
}

func newTileGrid(ctrl *pager.Controller, previews *preview.Manager, tileWidth, gap float32) *tileGrid {
	g := &tileGrid{
		ctrl:      ctrl,
		sel:       ctrl.Selection(),
		previews:  previews,
		tileWidth: tileWidth,
		gap:       gap,
		byID:      make(map[int64]*tile),
	}

	g.tiles = container.New(&tileLayout{g: g})
	g.overlay = newSelectionOverlay(g.tiles)
	g.overlay.onStart = g.dragStart
	g.overlay.onMove = g.dragMove
	g.overlay.onEnd = g.dragEnd
	g.overlay.onTap = g.backgroundTapped

	g.scroll = container.NewVScroll(g.overlay)
	g.marquee = newMarquee()
	g.content = container.NewStack(g.scroll, container.NewWithoutLayout(g.marquee))

	g.engine = lasso.NewEngine(g.frame, lasso.Callbacks{
		OnStart:   g.lassoStart,
		OnChange:  g.lassoChange,
		OnEnd:     g.lassoEnd,
		OnOverlay: g.showMarquee,
	}, lasso.WithLiveSelection(), lasso.WithPointerSource(g))

	g.scroll.OnScrolled = func(fyne.Position) {
		g.dismissMenu()
		g.engine.Scrolled()
	}
	return g
}

func newMarquee() *canvas.Rectangle {
	r := canvas.NewRectangle(color.Transparent)
	r.StrokeColor = theme.Color(theme.ColorNamePrimary)
	r.StrokeWidth = 2
	cr, cg, cb, _ := theme.Color(theme.ColorNameFocus).RGBA()
	r.FillColor = color.NRGBA{R: uint8(cr >> 8), G: uint8(cg >> 8), B: uint8(cb >> 8), A: 64}
	r.Hide()
	return r
}

// frame reports where the scroll sits in absolute coordinates and how far
// it is scrolled.
func (g *tileGrid) frame() lasso.Frame {
	return lasso.Frame{
		Origin: fyne.CurrentApp().Driver().AbsolutePositionForObject(g.scroll),
		Scroll: g.scroll.Offset,
	}
}

// Attach hands the engine the move/up listeners of the gesture in progress.
func (g *tileGrid) Attach(move, up func(fyne.Position)) func() {
	g.move, g.up = move, up
	return func() {
		g.move, g.up = nil, nil
	}
}

var _ lasso.PointerSource = (*tileGrid)(nil)

func (g *tileGrid) register(t *tile) {
	if g.byID[t.item.ID] != t {
		return
	}
	size := t.Size()
	if size.Width <= 0 || size.Height <= 0 {
		return
	}
	r := lasso.Rect{Pos: fyne.CurrentApp().Driver().AbsolutePositionForObject(t), Size: size}
	g.engine.RegisterTile(t.item.ID, &r)
}

// sync rebuilds the tiles from the controller's items, reusing tiles whose
// item is still present and unregistering the rest.
func (g *tileGrid) sync() {
	items := g.ctrl.Items()
	keep := make(map[int64]bool, len(items))
	ids := make([]int64, 0, len(items))
	objects := make([]fyne.CanvasObject, 0, len(items))
	for _, it := range items {
		keep[it.ID] = true
		ids = append(ids, it.ID)
		t, ok := g.byID[it.ID]
		if ok {
			t.setItem(it)
		} else {
			t = newTile(g, it)
			g.byID[it.ID] = t
		}
		t.setSelected(g.sel.Contains(it.ID))
		t.setDownloading(g.busy != nil && g.busy(it.ID))
		objects = append(objects, t)
	}
	for id, t := range g.byID {
		if keep[id] {
			continue
		}
		t.stop()
		delete(g.byID, id)
		g.engine.RegisterTile(id, nil)
	}
	if g.hasAnchor && !keep[g.anchor] {
		g.hasAnchor = false
	}
	// Only ids on this page can stay selected.
	g.sel.Retain(ids)

	g.tiles.Objects = objects
	g.tiles.Refresh()
}

func (g *tileGrid) refreshSelection() {
	for id, t := range g.byID {
		t.setSelected(g.sel.Contains(id))
	}
}

func (g *tileGrid) refreshBusy() {
	for id, t := range g.byID {
		t.setDownloading(g.busy != nil && g.busy(id))
	}
}

func (g *tileGrid) setTileWidth(w float32) {
	if w == g.tileWidth {
		return
	}
	g.tileWidth = w
	g.tiles.Refresh()
	g.measure(g.scroll.Size().Width)
}

// measure reports the visible width to the controller, which derives the
// page size from it.
func (g *tileGrid) measure(width float32) {
	g.ctrl.SetTileWidth(g.tileWidth)
	g.ctrl.Measure(width)
}

func (g *tileGrid) clickGuarded() bool {
	return g.dragging || time.Since(g.lastDragEnd) < dragClickGuard
}

func (g *tileGrid) tileClicked(id int64, mods fyne.KeyModifier) {
	if g.clickGuarded() {
		return
	}
	g.dismissMenu()

	switch {
	case mods&fyne.KeyModifierShift != 0 && g.hasAnchor:
		g.sel.Replace(g.rangeIDs(g.anchor, id), false)
		return
	case mods&(fyne.KeyModifierControl|fyne.KeyModifierSuper) != 0:
		g.sel.Toggle(id, true)
	default:
		g.sel.Toggle(id, false)
	}
	g.anchor, g.hasAnchor = id, true
}

// rangeIDs returns the ids between from and to, both included, in page order.
func (g *tileGrid) rangeIDs(from, to int64) []int64 {
	items := g.ctrl.Items()
	start, end := -1, -1
	for i, it := range items {
		if it.ID == from {
			start = i
		}
		if it.ID == to {
			end = i
		}
	}
	if start < 0 || end < 0 {
		return []int64{to}
	}
	if start > end {
		start, end = end, start
	}
	ids := make([]int64, 0, end-start+1)
	for _, it := range items[start : end+1] {
		ids = append(ids, it.ID)
	}
	return ids
}

func (g *tileGrid) backgroundTapped() {
	if g.clickGuarded() {
		return
	}
	g.dismissMenu()
	if currentModifiers()&(fyne.KeyModifierControl|fyne.KeyModifierSuper|fyne.KeyModifierShift) != 0 {
		return
	}
	g.sel.Clear()
}

func (g *tileGrid) showContextMenu(t *tile, pos fyne.Position) {
	if !g.sel.Contains(t.item.ID) {
		g.sel.SetExclusive(t.item.ID)
		g.anchor, g.hasAnchor = t.item.ID, true
	}
	if g.menu == nil {
		return
	}
	c := fyne.CurrentApp().Driver().CanvasForObject(t)
	if c == nil {
		return
	}

	g.dismissMenu()
	m := widget.NewMenu(g.menu())
	m.OnDismiss = g.dismissMenu
	g.activeMenu = widget.NewPopUp(m, c)
	g.activeMenu.ShowAtPosition(fyne.CurrentApp().Driver().AbsolutePositionForObject(t).Add(pos))
}

func (g *tileGrid) dismissMenu() {
	if g.activeMenu != nil {
		g.activeMenu.Hide()
		g.activeMenu = nil
	}
}

func (g *tileGrid) dragStart(pos fyne.Position) {
	g.pointer = pos
	g.engine.PointerDown(pos, desktop.MouseButtonPrimary, currentModifiers())
}

func (g *tileGrid) dragMove(pos fyne.Position) {
	g.pointer = pos
	if g.move == nil {
		return
	}
	g.move(pos)
	g.updateAutoScroll()
}

func (g *tileGrid) dragEnd(pos fyne.Position) {
	if g.up != nil {
		g.up(pos)
	}
}

func (g *tileGrid) lassoStart(additive bool) {
	g.dragging = true
	g.dismissMenu()
	if additive {
		g.base = g.sel.IDs()
		return
	}
	g.base = nil
	g.sel.Clear()
}

func (g *tileGrid) lassoChange(ids []int64) {
	g.sel.Replace(unionIDs(g.base, ids), false)
}

func (g *tileGrid) lassoEnd(ids []int64, _ bool) {
	g.sel.Replace(unionIDs(g.base, ids), false)
	g.base = nil
	g.dragging = false
	g.lastDragEnd = time.Now()
	g.stopAutoScroll()
}

// cancelDrag drops a drag in progress, e.g. when the listing changes under it.
func (g *tileGrid) cancelDrag() {
	g.engine.Reset()
	g.base = nil
	g.dragging = false
	g.stopAutoScroll()
}

func (g *tileGrid) showMarquee(r lasso.Rect, visible bool) {
	if !visible {
		g.marquee.Hide()
		return
	}
	g.marquee.Move(r.Pos)
	g.marquee.Resize(r.Size)
	g.marquee.Show()
	g.marquee.Refresh()
}

func unionIDs(base, ids []int64) []int64 {
	if len(base) == 0 {
		return ids
	}
	out := make([]int64, 0, len(base)+len(ids))
	out = append(out, base...)
	return append(out, ids...)
}

func currentModifiers() fyne.KeyModifier {
	d, ok := fyne.CurrentApp().Driver().(desktop.Driver)
	if !ok {
		return 0
	}
	return d.CurrentKeyModifiers()
}

func (g *tileGrid) maxScrollOffset() float32 {
	return max(0, g.overlay.MinSize().Height-g.scroll.Size().Height)
}

// edgeScroll returns the auto-scroll direction and strength for a pointer at
// y inside a viewport of the given height.
func edgeScroll(y, height float32) (dir int, intensity float32) {
	zone := max(24, theme.Padding()*4)
	zone = min(zone, height/2)
	if zone <= 0 {
		return 0, 0
	}

	switch {
	case y < zone:
		dir = -1
		intensity = (zone - y) / zone
	case y > height-zone:
		dir = 1
		intensity = (y - (height - zone)) / zone
	}
	return dir, min(intensity, 1)
}

func (g *tileGrid) updateAutoScroll() {
	if !g.dragging {
		g.stopAutoScroll()
		return
	}
	size := g.scroll.Size()
	if size.Height <= 0 {
		g.stopAutoScroll()
		return
	}

	y := g.pointer.Y - g.frame().Origin.Y
	dir, intensity := edgeScroll(y, size.Height)
	if dir == 0 || intensity <= 0 {
		g.stopAutoScroll()
		return
	}

	maxStep := min(max(tileSize(g.tileWidth).Height*0.5, 12), 80)
	g.autoScrollDir = dir
	g.autoScrollStep = intensity * maxStep
	g.startAutoScroll()
}

func (g *tileGrid) startAutoScroll() {
	if g.autoScrollTicker != nil {
		return
	}
	g.autoScrollTicker = time.NewTicker(30 * time.Millisecond)
	g.autoScrollStop = make(chan struct{})

	stop := g.autoScrollStop
	ticker := g.autoScrollTicker
	go func() {
		for {
			select {
			case <-ticker.C:
				fyne.Do(g.autoScrollTick)
			case <-stop:
				return
			}
		}
	}()
}

func (g *tileGrid) stopAutoScroll() {
	if g.autoScrollTicker == nil {
		return
	}
	g.autoScrollTicker.Stop()
	g.autoScrollTicker = nil
	if g.autoScrollStop != nil {
		close(g.autoScrollStop)
		g.autoScrollStop = nil
	}
	g.autoScrollDir = 0
	g.autoScrollStep = 0
}

func (g *tileGrid) autoScrollTick() {
	if !g.dragging || g.autoScrollDir == 0 || g.autoScrollStep <= 0 {
		g.stopAutoScroll()
		return
	}

	offset := g.scroll.Offset.Y
	next := min(max(offset+float32(g.autoScrollDir)*g.autoScrollStep, 0), g.maxScrollOffset())
	if next == offset {
		g.stopAutoScroll()
		return
	}

	g.scroll.Offset.Y = next
	g.scroll.Refresh()
	// The pointer did not move but the content under it did.
	g.engine.Scrolled()
}

// tileLayout places tiles left to right, top to bottom, with the same column
// count the controller derives its page size from.
type tileLayout struct {
	g *tileGrid
}

func (l *tileLayout) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	w, gap := l.g.tileWidth, l.g.gap
	cols := pager.Columns(size.Width, w, gap)
	ts := tileSize(w)
	for i, o := range objects {
		o.Resize(ts)
		o.Move(fyne.NewPos(float32(i%cols)*(w+gap), float32(i/cols)*(ts.Height+gap)))
	}
}

func (l *tileLayout) MinSize(objects []fyne.CanvasObject) fyne.Size {
	ts := tileSize(l.g.tileWidth)
	if len(objects) == 0 {
		return fyne.NewSize(ts.Width, 0)
	}
	var width float32
	if l.g.scroll != nil {
		width = l.g.scroll.Size().Width
	}
	cols := pager.Columns(width, l.g.tileWidth, l.g.gap)
	rows := (len(objects) + cols - 1) / cols
	return fyne.NewSize(ts.Width, float32(rows)*(ts.Height+l.g.gap)-l.g.gap)
}
