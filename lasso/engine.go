package lasso

import (
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

// State is the drag state of an Engine.
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// FrameSource reports the current frame of the container the engine is bound to.
type FrameSource func() Frame

// PointerSource hands out the window-level move/up listeners a drag needs.
// The returned detach func must remove both listeners.
type PointerSource interface {
	Attach(move, up func(fyne.Position)) (detach func())
}

// Callbacks are invoked outside the engine lock.
type Callbacks struct {
	// OnStart fires on Idle -> Dragging.
	OnStart func(additive bool)
	// OnChange fires with the current hits while dragging, live mode only.
	OnChange func(ids []int64)
	// OnEnd fires on pointer-up with the final hits.
	OnEnd func(ids []int64, additive bool)
	// OnOverlay receives the overlay rectangle in viewport space.
	OnOverlay func(r Rect, visible bool)
}

type Option func(*Engine)

// WithLiveSelection publishes hits on every pointer move and scroll, not only on release.
func WithLiveSelection() Option {
	return func(e *Engine) { e.live = true }
}

// WithHitTest replaces the check that rejects drags starting on interactive
// children. The function receives a content-space point.
func WithHitTest(interactive func(fyne.Position) bool) Option {
	return func(e *Engine) { e.interactive = interactive }
}

// WithPointerSource sets where the engine attaches its drag listeners.
func WithPointerSource(src PointerSource) Option {
	return func(e *Engine) { e.pointers = src }
}

// Engine turns pointer gestures over one scrolling container into a set of
// intersecting tile ids.
type Engine struct {
	registry    *Registry
	frame       FrameSource
	cb          Callbacks
	pointers    PointerSource
	interactive func(fyne.Position) bool
	live        bool

	mu       sync.Mutex
	state    State
	origin   fyne.Position // content space
	cursor   fyne.Position // pointer coordinates
	additive bool
	detach   func()
	drag     uint64 // bumped on every drag start
	lastHits []int64
}

func NewEngine(frame FrameSource, cb Callbacks, opts ...Option) *Engine {
	e := &Engine{
		registry: NewRegistry(),
		frame:    frame,
		cb:       cb,
	}
	if e.frame == nil {
		e.frame = func() Frame { return Frame{} }
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.interactive == nil {
		e.interactive = func(p fyne.Position) bool {
			_, hit := e.registry.At(p)
			return hit
		}
	}
	return e
}

// Registry exposes the tile registry owned by this engine.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// RegisterTile records the bounds of a tile given in pointer coordinates.
// A nil rect unregisters the tile.
func (e *Engine) RegisterTile(id int64, r *Rect) {
	if r == nil {
		e.registry.Remove(id)
		return
	}
	e.registry.Set(id, e.frame().RectToContent(*r))
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// overlay returns the current overlay rectangle in viewport space.
func (e *Engine) overlay() (Rect, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Dragging {
		return Rect{}, false
	}
	f := e.frame()
	return f.RectToViewport(e.contentRectLocked(f)), true
}

// PointerDown starts a drag when the engine is idle, the primary button is
// pressed and p is not over an interactive child. It reports whether a drag began.
func (e *Engine) PointerDown(p fyne.Position, button desktop.MouseButton, mods fyne.KeyModifier) bool {
	if button != desktop.MouseButtonPrimary {
		return false
	}

	e.mu.Lock()
	if e.state != Idle {
		e.mu.Unlock()
		return false
	}
	f := e.frame()
	origin := f.ToContent(p)
	if e.interactive(origin) {
		e.mu.Unlock()
		return false
	}
	e.state = Dragging
	e.drag++
	drag := e.drag
	e.origin = origin
	e.cursor = p
	e.additive = isAdditive(mods)
	e.lastHits = nil
	additive := e.additive
	e.mu.Unlock()

	if e.pointers != nil {
		detach := e.pointers.Attach(e.PointerMove, func(p fyne.Position) { e.PointerUp(p) })
		e.mu.Lock()
		current := e.state == Dragging && e.drag == drag
		if current {
			e.detach = detach
		}
		e.mu.Unlock()
		if !current {
			// The drag ended while the listeners were being attached.
			detach()
			return true
		}
	}

	if e.cb.OnStart != nil {
		e.cb.OnStart(additive)
	}
	e.publish()
	return true
}

// PointerMove updates the live rectangle.
func (e *Engine) PointerMove(p fyne.Position) {
	e.mu.Lock()
	if e.state != Dragging {
		e.mu.Unlock()
		return
	}
	e.cursor = p
	e.mu.Unlock()
	e.publish()
}

// Scrolled re-derives the overlay after the container scrolled. The pointer
// did not move but its content-space position did.
func (e *Engine) Scrolled() {
	if e.State() != Dragging {
		return
	}
	e.publish()
}

// PointerUp finishes the drag and returns the ids under the final rectangle.
func (e *Engine) PointerUp(p fyne.Position) []int64 {
	e.mu.Lock()
	if e.state != Dragging {
		e.mu.Unlock()
		return nil
	}
	e.cursor = p
	area := e.contentRectLocked(e.frame())
	additive := e.additive
	detach := e.reset()
	e.mu.Unlock()

	if detach != nil {
		detach()
	}

	hits := e.registry.Hits(area)
	if e.cb.OnOverlay != nil {
		e.cb.OnOverlay(Rect{}, false)
	}
	if e.cb.OnEnd != nil {
		e.cb.OnEnd(hits, additive)
	}
	return hits
}

// Reset drops an in-progress drag without selecting anything. Used when the
// container goes away mid-drag.
func (e *Engine) Reset() {
	e.mu.Lock()
	wasDragging := e.state == Dragging
	detach := e.reset()
	e.mu.Unlock()

	if detach != nil {
		detach()
	}
	if wasDragging && e.cb.OnOverlay != nil {
		e.cb.OnOverlay(Rect{}, false)
	}
}

func (e *Engine) reset() func() {
	detach := e.detach
	e.detach = nil
	e.state = Idle
	e.lastHits = nil
	e.additive = false
	return detach
}

func (e *Engine) contentRectLocked(f Frame) Rect {
	return RectFromPoints(e.origin, f.ToContent(e.cursor))
}

func (e *Engine) publish() {
	e.mu.Lock()
	if e.state != Dragging {
		e.mu.Unlock()
		return
	}
	f := e.frame()
	area := e.contentRectLocked(f)
	e.mu.Unlock()

	if e.cb.OnOverlay != nil {
		e.cb.OnOverlay(f.RectToViewport(area), true)
	}
	if !e.live || e.cb.OnChange == nil {
		return
	}

	hits := e.registry.Hits(area)
	e.mu.Lock()
	if e.state != Dragging || sameIDs(e.lastHits, hits) {
		e.mu.Unlock()
		return
	}
	e.lastHits = hits
	e.mu.Unlock()
	e.cb.OnChange(hits)
}

func isAdditive(mods fyne.KeyModifier) bool {
	return mods&(fyne.KeyModifierControl|fyne.KeyModifierSuper|fyne.KeyModifierShift) != 0
}

func sameIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	// Hits are sorted, so positional comparison is enough.
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
