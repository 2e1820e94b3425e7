package lasso

import (
	"sort"
	"sync"

	"fyne.io/fyne/v2"
)

// Registry maps item ids to their content-space bounding boxes.
// Entries are only removed explicitly; callers keep it in sync with the
// tiles they render.
type Registry struct {
	mu    sync.RWMutex
	rects map[int64]Rect
}

func NewRegistry() *Registry {
	return &Registry{rects: make(map[int64]Rect)}
}

// Set stores rect for id, replacing any previous value.
func (r *Registry) Set(id int64, rect Rect) {
	r.mu.Lock()
	r.rects[id] = rect
	r.mu.Unlock()
}

func (r *Registry) Remove(id int64) {
	r.mu.Lock()
	delete(r.rects, id)
	r.mu.Unlock()
}

func (r *Registry) Get(id int64) (Rect, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rect, ok := r.rects[id]
	return rect, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rects)
}

// IDs returns the registered ids in ascending order.
func (r *Registry) IDs() []int64 {
	r.mu.RLock()
	ids := make([]int64, 0, len(r.rects))
	for id := range r.rects {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// At returns the id of a tile containing the content-space point p.
func (r *Registry) At(p fyne.Position) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, rect := range r.rects {
		if rect.Contains(p) {
			return id, true
		}
	}
	return 0, false
}

// Hits returns, in ascending order, every id whose rectangle intersects area.
func (r *Registry) Hits(area Rect) []int64 {
	r.mu.RLock()
	var ids []int64
	for id, rect := range r.rects {
		if area.Intersects(rect) {
			ids = append(ids, id)
		}
	}
	r.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
