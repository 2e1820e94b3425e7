package selection

import (
	"math/rand"
	"reflect"
	"testing"
)

func TestSet_ClickScenario(t *testing.T) {
	s := New()

	s.Toggle(2, false)
	if got := s.IDs(); !reflect.DeepEqual(got, []int64{2}) {
		t.Fatalf("plain click on 2: got %v", got)
	}

	s.Toggle(3, true)
	if got := s.IDs(); !reflect.DeepEqual(got, []int64{2, 3}) {
		t.Fatalf("ctrl-click on 3: got %v", got)
	}

	s.Toggle(1, false)
	if got := s.IDs(); !reflect.DeepEqual(got, []int64{1}) {
		t.Fatalf("plain click on 1: got %v", got)
	}
}

func TestSet_PlainClickOnSoleMemberClears(t *testing.T) {
	s := New()
	s.Toggle(5, false)
	s.Toggle(5, false)
	if s.Len() != 0 {
		t.Fatalf("expected empty selection, got %v", s.IDs())
	}

	// A plain click on a member of a larger selection narrows to it.
	s.Replace([]int64{4, 5, 6}, false)
	s.Toggle(5, false)
	if got := s.IDs(); !reflect.DeepEqual(got, []int64{5}) {
		t.Fatalf("expected [5], got %v", got)
	}
}

func TestSet_AdditiveToggleTwiceRestores(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		s := New()
		var initial []int64
		for j := 0; j < rng.Intn(6); j++ {
			initial = append(initial, int64(rng.Intn(10)))
		}
		s.Replace(initial, false)
		before := s.IDs()

		id := int64(rng.Intn(10))
		s.Toggle(id, true)
		s.Toggle(id, true)

		if got := s.IDs(); !reflect.DeepEqual(got, before) {
			t.Fatalf("toggle(%d) twice changed %v to %v", id, before, got)
		}
	}
}

func TestSet_SetExclusiveAlwaysSingle(t *testing.T) {
	for _, prior := range [][]int64{nil, {9}, {1, 2, 3}, {4}} {
		s := New()
		s.Replace(prior, false)
		s.SetExclusive(4)
		if got := s.IDs(); !reflect.DeepEqual(got, []int64{4}) {
			t.Fatalf("prior %v: expected [4], got %v", prior, got)
		}
	}
}

func TestSet_ReplaceAndUnion(t *testing.T) {
	s := New()
	s.Replace([]int64{1, 2}, false)
	s.Replace([]int64{3}, true)
	if got := s.IDs(); !reflect.DeepEqual(got, []int64{1, 2, 3}) {
		t.Fatalf("union: got %v", got)
	}
	s.Replace([]int64{7, 7}, false)
	if got := s.IDs(); !reflect.DeepEqual(got, []int64{7}) {
		t.Fatalf("replace: got %v", got)
	}
}

func TestSet_RetainAndRemove(t *testing.T) {
	s := New()
	s.Replace([]int64{1, 2, 3, 4}, false)
	s.Remove(2)
	s.Retain([]int64{1, 4, 9})
	if got := s.IDs(); !reflect.DeepEqual(got, []int64{1, 4}) {
		t.Fatalf("got %v", got)
	}
}

func TestSet_OnChangedOnlyFiresOnChange(t *testing.T) {
	s := New()
	calls := 0
	s.OnChanged(func() { calls++ })

	s.Clear()
	if calls != 0 {
		t.Fatalf("clearing an empty set should not notify, got %d", calls)
	}
	s.SetExclusive(1)
	s.SetExclusive(1)
	if calls != 1 {
		t.Fatalf("expected 1 notification, got %d", calls)
	}
	s.Clear()
	if calls != 2 {
		t.Fatalf("expected 2 notifications, got %d", calls)
	}
}
