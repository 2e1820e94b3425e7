// Package selection holds the set of selected item ids for one listing.
package selection

import (
	"sort"
	"sync"
)

// Set is a goroutine-safe set of item ids. Each listing owns its own Set.
type Set struct {
	mu        sync.Mutex
	ids       map[int64]struct{}
	listeners []func()
}

func New() *Set {
	return &Set{ids: make(map[int64]struct{})}
}

// OnChanged registers fn to run after every mutation that changed the set.
func (s *Set) OnChanged(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Toggle implements click semantics. A plain click selects only id, or
// clears the set when id was its sole member. An additive click flips id and
// leaves the rest alone.
func (s *Set) Toggle(id int64, additive bool) {
	s.mutate(func(ids map[int64]struct{}) map[int64]struct{} {
		_, present := ids[id]
		if additive {
			if present {
				delete(ids, id)
			} else {
				ids[id] = struct{}{}
			}
			return ids
		}
		if present && len(ids) == 1 {
			return make(map[int64]struct{})
		}
		return map[int64]struct{}{id: {}}
	})
}

// Replace overwrites the selection with ids, or adds them to it when union is set.
func (s *Set) Replace(ids []int64, union bool) {
	s.mutate(func(cur map[int64]struct{}) map[int64]struct{} {
		next := cur
		if !union {
			next = make(map[int64]struct{}, len(ids))
		}
		for _, id := range ids {
			next[id] = struct{}{}
		}
		return next
	})
}

func (s *Set) Clear() {
	s.mutate(func(map[int64]struct{}) map[int64]struct{} {
		return make(map[int64]struct{})
	})
}

// SetExclusive makes id the only selected item.
func (s *Set) SetExclusive(id int64) {
	s.mutate(func(map[int64]struct{}) map[int64]struct{} {
		return map[int64]struct{}{id: {}}
	})
}

// Remove drops the given ids if selected.
func (s *Set) Remove(ids ...int64) {
	s.mutate(func(cur map[int64]struct{}) map[int64]struct{} {
		for _, id := range ids {
			delete(cur, id)
		}
		return cur
	})
}

// Retain drops every selected id that is not in keep.
func (s *Set) Retain(keep []int64) {
	s.mutate(func(cur map[int64]struct{}) map[int64]struct{} {
		next := make(map[int64]struct{}, len(cur))
		for _, id := range keep {
			if _, ok := cur[id]; ok {
				next[id] = struct{}{}
			}
		}
		return next
	})
}

func (s *Set) Contains(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// IDs returns the selected ids in ascending order.
func (s *Set) IDs() []int64 {
	s.mu.Lock()
	ids := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Set) mutate(fn func(map[int64]struct{}) map[int64]struct{}) {
	s.mu.Lock()
	before := snapshot(s.ids)
	s.ids = fn(s.ids)
	changed := !equal(before, s.ids)
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range listeners {
		fn()
	}
}

func snapshot(ids map[int64]struct{}) map[int64]struct{} {
	out := make(map[int64]struct{}, len(ids))
	for id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func equal(a, b map[int64]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}
