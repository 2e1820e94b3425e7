package lasso

import (
	"math/rand"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

type fakePointers struct {
	attached int
	detached int
	move     func(fyne.Position)
	up       func(fyne.Position)
}

func (f *fakePointers) Attach(move, up func(fyne.Position)) func() {
	f.attached++
	f.move, f.up = move, up
	return func() {
		f.detached++
		f.move, f.up = nil, nil
	}
}

func TestRect_IntersectsMatchesAxisOverlap(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		a := NewRect(float32(rng.Intn(200)), float32(rng.Intn(200)), float32(rng.Intn(80)), float32(rng.Intn(80)))
		b := NewRect(float32(rng.Intn(200)), float32(rng.Intn(200)), float32(rng.Intn(80)), float32(rng.Intn(80)))

		overlapX := !(a.Right() < b.Left() || b.Right() < a.Left())
		overlapY := !(a.Bottom() < b.Top() || b.Bottom() < a.Top())
		want := overlapX && overlapY

		if got := a.Intersects(b); got != want {
			t.Fatalf("Intersects(%v, %v) = %v, want %v", a, b, got, want)
		}
		if a.Intersects(b) != b.Intersects(a) {
			t.Fatalf("Intersects is not symmetric for %v and %v", a, b)
		}
	}
}

func TestRect_EdgeTouchingCountsAsIntersection(t *testing.T) {
	a := NewRect(0, 0, 10, 10)

	if !a.Intersects(NewRect(10, 0, 5, 5)) {
		t.Error("expected rectangles sharing a vertical edge to intersect")
	}
	if !a.Intersects(NewRect(0, 10, 5, 5)) {
		t.Error("expected rectangles sharing a horizontal edge to intersect")
	}
	if !a.Intersects(NewRect(10, 10, 5, 5)) {
		t.Error("expected rectangles sharing a corner to intersect")
	}
	if a.Intersects(NewRect(10.5, 0, 5, 5)) {
		t.Error("expected separated rectangles not to intersect")
	}
}

func TestRectFromPoints_Normalizes(t *testing.T) {
	r := RectFromPoints(fyne.NewPos(150, 20), fyne.NewPos(10, 120))
	if r.Pos != fyne.NewPos(10, 20) {
		t.Fatalf("expected top-left (10,20), got %v", r.Pos)
	}
	if r.Size != fyne.NewSize(140, 100) {
		t.Fatalf("expected size 140x100, got %v", r.Size)
	}
}

func TestFrame_RoundTrip(t *testing.T) {
	f := Frame{Origin: fyne.NewPos(30, 40), Scroll: fyne.NewPos(0, 250)}

	content := f.ToContent(fyne.NewPos(50, 60))
	if content != fyne.NewPos(20, 270) {
		t.Fatalf("unexpected content position %v", content)
	}
	if got := f.ToViewport(content); got != fyne.NewPos(20, 20) {
		t.Fatalf("unexpected viewport position %v", got)
	}
}

func TestEngine_LassoOverTwoTiles(t *testing.T) {
	var selected []int64
	e := NewEngine(nil, Callbacks{
		OnEnd: func(ids []int64, _ bool) { selected = ids },
	})
	a, b, c := NewRect(10, 10, 50, 50), NewRect(100, 100, 50, 50), NewRect(300, 300, 50, 50)
	e.RegisterTile(1, &a)
	e.RegisterTile(2, &b)
	e.RegisterTile(3, &c)

	if !e.PointerDown(fyne.NewPos(0, 0), desktop.MouseButtonPrimary, 0) {
		t.Fatal("expected drag to start on empty background")
	}
	e.PointerMove(fyne.NewPos(80, 80))
	e.PointerUp(fyne.NewPos(150, 150))

	if len(selected) != 2 || selected[0] != 1 || selected[1] != 2 {
		t.Fatalf("expected [1 2], got %v", selected)
	}
	if e.State() != Idle {
		t.Fatalf("expected idle after pointer up, got %v", e.State())
	}
}

func TestEngine_UsesUpdatedRectAfterResize(t *testing.T) {
	var selected []int64
	e := NewEngine(nil, Callbacks{
		OnEnd: func(ids []int64, _ bool) { selected = ids },
	})
	r := NewRect(10, 10, 50, 50)
	e.RegisterTile(7, &r)

	// Simulated resize moves the tile out of the drag area.
	moved := NewRect(400, 400, 50, 50)
	e.RegisterTile(7, &moved)

	e.PointerDown(fyne.NewPos(0, 0), desktop.MouseButtonPrimary, 0)
	e.PointerUp(fyne.NewPos(100, 100))
	if len(selected) != 0 {
		t.Fatalf("expected stale rect to be ignored, got %v", selected)
	}

	e.PointerDown(fyne.NewPos(390, 390), desktop.MouseButtonPrimary, 0)
	e.PointerUp(fyne.NewPos(420, 420))
	if len(selected) != 1 || selected[0] != 7 {
		t.Fatalf("expected updated rect to be hit, got %v", selected)
	}
}

func TestEngine_RegisterNilRemoves(t *testing.T) {
	e := NewEngine(nil, Callbacks{})
	r := NewRect(0, 0, 10, 10)
	e.RegisterTile(1, &r)
	e.RegisterTile(1, nil)
	if e.Registry().Len() != 0 {
		t.Fatalf("expected empty registry, got %d entries", e.Registry().Len())
	}
}

func TestEngine_RegisterConvertsToContentSpace(t *testing.T) {
	frame := Frame{Origin: fyne.NewPos(100, 50), Scroll: fyne.NewPos(0, 300)}
	e := NewEngine(func() Frame { return frame }, Callbacks{})

	r := NewRect(110, 60, 40, 40)
	e.RegisterTile(1, &r)

	got, ok := e.Registry().Get(1)
	if !ok {
		t.Fatal("expected tile to be registered")
	}
	if got.Pos != fyne.NewPos(10, 310) {
		t.Fatalf("expected content position (10,310), got %v", got.Pos)
	}
}

func TestEngine_IgnoresInteractiveChildrenAndSecondaryButton(t *testing.T) {
	e := NewEngine(nil, Callbacks{})
	r := NewRect(10, 10, 50, 50)
	e.RegisterTile(1, &r)

	if e.PointerDown(fyne.NewPos(20, 20), desktop.MouseButtonPrimary, 0) {
		t.Fatal("drag must not start on a tile")
	}
	if e.PointerDown(fyne.NewPos(200, 200), desktop.MouseButtonSecondary, 0) {
		t.Fatal("drag must not start with the secondary button")
	}

	toolbar := NewRect(0, 300, 500, 40)
	e2 := NewEngine(nil, Callbacks{}, WithHitTest(toolbar.Contains))
	if e2.PointerDown(fyne.NewPos(20, 310), desktop.MouseButtonPrimary, 0) {
		t.Fatal("drag must not start on a custom interactive area")
	}
}

func TestEngine_AttachesListenersOnlyWhileDragging(t *testing.T) {
	ptr := &fakePointers{}
	var ended int
	e := NewEngine(nil, Callbacks{
		OnEnd: func([]int64, bool) { ended++ },
	}, WithPointerSource(ptr))

	for i := 0; i < 3; i++ {
		if !e.PointerDown(fyne.NewPos(0, 0), desktop.MouseButtonPrimary, 0) {
			t.Fatalf("drag %d did not start", i)
		}
		// A second press while dragging must not attach another pair.
		if e.PointerDown(fyne.NewPos(5, 5), desktop.MouseButtonPrimary, 0) {
			t.Fatal("second drag started while dragging")
		}
		if ptr.move == nil || ptr.up == nil {
			t.Fatal("expected listeners to be attached while dragging")
		}
		ptr.move(fyne.NewPos(20, 20))
		ptr.up(fyne.NewPos(30, 30))
	}

	if ptr.attached != 3 || ptr.detached != 3 {
		t.Fatalf("expected 3 attach/detach pairs, got %d/%d", ptr.attached, ptr.detached)
	}
	if ptr.move != nil {
		t.Fatal("expected listeners to be removed after the last drag")
	}
	if ended != 3 {
		t.Fatalf("expected 3 completed drags, got %d", ended)
	}
}

func TestEngine_OverlayFollowsScrollMidDrag(t *testing.T) {
	frame := Frame{}
	var overlay Rect
	var visible bool
	e := NewEngine(func() Frame { return frame }, Callbacks{
		OnOverlay: func(r Rect, v bool) { overlay, visible = r, v },
	})

	e.PointerDown(fyne.NewPos(10, 20), desktop.MouseButtonPrimary, 0)
	e.PointerMove(fyne.NewPos(110, 120))
	if !visible || overlay != NewRect(10, 20, 100, 100) {
		t.Fatalf("unexpected overlay before scroll: %v visible=%v", overlay, visible)
	}

	// Scroll down 50 without moving the pointer: the anchor moves up on
	// screen and the rectangle grows.
	frame.Scroll = fyne.NewPos(0, 50)
	e.Scrolled()
	if overlay != NewRect(10, -30, 100, 150) {
		t.Fatalf("unexpected overlay after scroll: %v", overlay)
	}

	e.PointerUp(fyne.NewPos(110, 120))
	if visible {
		t.Fatal("expected overlay to be hidden after pointer up")
	}
	if _, ok := e.overlay(); ok {
		t.Fatal("expected no overlay while idle")
	}
}

func TestEngine_ScrollExtendsSelection(t *testing.T) {
	frame := Frame{}
	var selected []int64
	e := NewEngine(func() Frame { return frame }, Callbacks{
		OnEnd: func(ids []int64, _ bool) { selected = ids },
	})
	top, below := NewRect(10, 10, 40, 40), NewRect(10, 400, 40, 40)
	e.RegisterTile(1, &top)
	e.RegisterTile(2, &below)

	e.PointerDown(fyne.NewPos(0, 0), desktop.MouseButtonPrimary, 0)
	e.PointerMove(fyne.NewPos(100, 150))
	frame.Scroll = fyne.NewPos(0, 300)
	e.Scrolled()
	e.PointerUp(fyne.NewPos(100, 150))

	if len(selected) != 2 {
		t.Fatalf("expected both tiles after scrolling mid-drag, got %v", selected)
	}
}

func TestEngine_LiveSelectionReportsChangesOnly(t *testing.T) {
	var changes [][]int64
	var additive bool
	e := NewEngine(nil, Callbacks{
		OnStart:  func(a bool) { additive = a },
		OnChange: func(ids []int64) { changes = append(changes, ids) },
	}, WithLiveSelection())
	a, b := NewRect(10, 10, 20, 20), NewRect(60, 10, 20, 20)
	e.RegisterTile(1, &a)
	e.RegisterTile(2, &b)

	e.PointerDown(fyne.NewPos(0, 0), desktop.MouseButtonPrimary, fyne.KeyModifierControl)
	if !additive {
		t.Fatal("expected ctrl at drag start to mark the drag additive")
	}
	e.PointerMove(fyne.NewPos(15, 15))
	e.PointerMove(fyne.NewPos(20, 20))
	e.PointerMove(fyne.NewPos(70, 20))
	e.PointerUp(fyne.NewPos(70, 20))

	if len(changes) != 2 {
		t.Fatalf("expected 2 distinct live updates, got %v", changes)
	}
	if len(changes[1]) != 2 {
		t.Fatalf("expected final live update to hold both tiles, got %v", changes[1])
	}
}

func TestEngine_ResetReleasesListeners(t *testing.T) {
	ptr := &fakePointers{}
	var ended bool
	e := NewEngine(nil, Callbacks{OnEnd: func([]int64, bool) { ended = true }}, WithPointerSource(ptr))

	e.PointerDown(fyne.NewPos(0, 0), desktop.MouseButtonPrimary, 0)
	e.Reset()

	if ptr.detached != 1 {
		t.Fatalf("expected listeners to be detached, got %d", ptr.detached)
	}
	if ended {
		t.Fatal("reset must not complete a selection")
	}
	if e.State() != Idle {
		t.Fatal("expected idle after reset")
	}
}

type resettingPointers struct {
	fakePointers
	engine *Engine
}

func (r *resettingPointers) Attach(move, up func(fyne.Position)) func() {
	detach := r.fakePointers.Attach(move, up)
	// The drag is cancelled before Attach returns.
	r.engine.Reset()
	return detach
}

func TestEngine_DragEndedDuringAttachReleasesListeners(t *testing.T) {
	ptr := &resettingPointers{}
	var started bool
	e := NewEngine(nil, Callbacks{OnStart: func(bool) { started = true }}, WithPointerSource(ptr))
	ptr.engine = e

	e.PointerDown(fyne.NewPos(0, 0), desktop.MouseButtonPrimary, 0)

	if ptr.attached != 1 || ptr.detached != 1 {
		t.Fatalf("expected the late listener pair to be detached, got %d/%d", ptr.attached, ptr.detached)
	}
	if ptr.move != nil {
		t.Fatal("expected no live listeners while idle")
	}
	if e.State() != Idle {
		t.Fatal("expected idle")
	}
	if started {
		t.Fatal("a cancelled drag must not report a start")
	}

	// The next drag attaches normally.
	ptr.engine = nil
	ptr2 := &fakePointers{}
	e.pointers = ptr2
	e.PointerDown(fyne.NewPos(0, 0), desktop.MouseButtonPrimary, 0)
	if ptr2.move == nil {
		t.Fatal("expected listeners attached for a fresh drag")
	}
	e.Reset()
	if ptr2.detached != 1 {
		t.Fatalf("expected the fresh pair detached, got %d", ptr2.detached)
	}
}
