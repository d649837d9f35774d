// Package store holds the view-side snapshot of specifications per lane and
// notifies subscribers after every change.
package store

import (
	"sync"

	"github.com/eitatech/gatomia/pkg/domain/review"
)

// State is an immutable point-in-time view of both lanes. Readers must not
// modify it or the specifications it points to; the store replaces entries
// instead of mutating them, so pointer equality means "unchanged".
type State struct {
	ReviewSpecs   []*review.Specification
	ArchivedSpecs []*review.Specification
}

func emptyState() *State {
	return &State{
		ReviewSpecs:   []*review.Specification{},
		ArchivedSpecs: []*review.Specification{},
	}
}

// Lane returns the specifications of one lane.
func (s *State) Lane(lane review.Lane) []*review.Specification {
	if lane == review.LaneArchived {
		return s.ArchivedSpecs
	}
	return s.ReviewSpecs
}

// Store is the subscribable snapshot holder for one view.
type Store struct {
	mu        sync.RWMutex
	state     *State
	listeners []listener
	nextID    uint64
}

type listener struct {
	id uint64
	fn func()
}

// New creates an empty store.
func New() *Store {
	return &Store{state: emptyState()}
}

// Snapshot returns the current state. It never blocks on listeners.
func (s *Store) Snapshot() *State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers fn to run after every mutation. Listeners run
// synchronously, in registration order, and re-read state via Snapshot.
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// SetReviewSpecs replaces the review lane. Any of these ids still present in
// the archived lane are evicted from it.
func (s *Store) SetReviewSpecs(specs []*review.Specification) {
	s.mutate(func(cur *State) *State {
		lane := copyLane(specs)
		return &State{ReviewSpecs: lane, ArchivedSpecs: without(cur.ArchivedSpecs, idSet(lane))}
	})
}

// SetArchivedSpecs replaces the archived lane. Any of these ids still present
// in the review lane are evicted from it.
func (s *Store) SetArchivedSpecs(specs []*review.Specification) {
	s.mutate(func(cur *State) *State {
		lane := copyLane(specs)
		return &State{ReviewSpecs: without(cur.ReviewSpecs, idSet(lane)), ArchivedSpecs: lane}
	})
}

// UpdateSpec applies patch to the specification with id in whichever lane
// holds it. Other entries keep their identity. It reports whether id was
// found; listeners are notified either way.
func (s *Store) UpdateSpec(id string, patch review.SpecPatch) bool {
	return s.PatchSpec(id, patch) != nil
}

// PatchSpec is UpdateSpec returning the new entry, or nil when id is unknown.
func (s *Store) PatchSpec(id string, patch review.SpecPatch) *review.Specification {
	var patched *review.Specification
	s.mutate(func(cur *State) *State {
		return &State{
			ReviewSpecs:   patchLane(cur.ReviewSpecs, id, patch, &patched),
			ArchivedSpecs: patchLane(cur.ArchivedSpecs, id, patch, &patched),
		}
	})
	return patched
}

// Place puts spec into lane, replacing any entry with the same id there and
// removing it from the other lane.
func (s *Store) Place(lane review.Lane, spec review.Specification) {
	entry := &spec
	s.mutate(func(cur *State) *State {
		return placed(cur, lane, entry)
	})
}

// PlaceIfCurrent places spec like Place, but only while the entry stored
// under spec.ID is still expected. Nothing changes and no listener runs
// otherwise. It reports whether spec was placed.
func (s *Store) PlaceIfCurrent(expected *review.Specification, lane review.Lane, spec review.Specification) bool {
	entry := &spec
	ok := false
	s.mutate(func(cur *State) *State {
		if cur.find(spec.ID) != expected {
			return nil
		}
		ok = true
		return placed(cur, lane, entry)
	})
	return ok
}

func placed(cur *State, lane review.Lane, entry *review.Specification) *State {
	ids := map[string]bool{entry.ID: true}
	if lane == review.LaneArchived {
		return &State{ReviewSpecs: without(cur.ReviewSpecs, ids), ArchivedSpecs: upsert(cur.ArchivedSpecs, entry)}
	}
	return &State{ReviewSpecs: upsert(cur.ReviewSpecs, entry), ArchivedSpecs: without(cur.ArchivedSpecs, ids)}
}

// Find looks up a specification in both lanes.
func (s *Store) Find(id string) (*review.Specification, review.Lane, bool) {
	state := s.Snapshot()
	for _, lane := range []review.Lane{review.LaneReview, review.LaneArchived} {
		for _, spec := range state.Lane(lane) {
			if spec.ID == id {
				return spec, lane, true
			}
		}
	}
	return nil, "", false
}

func (s *State) find(id string) *review.Specification {
	for _, spec := range s.ReviewSpecs {
		if spec.ID == id {
			return spec
		}
	}
	for _, spec := range s.ArchivedSpecs {
		if spec.ID == id {
			return spec
		}
	}
	return nil
}

// Reset empties both lanes.
func (s *Store) Reset() {
	s.mutate(func(*State) *State { return emptyState() })
}

// mutate publishes the state fn returns. A nil result leaves the store
// untouched and notifies nobody.
func (s *Store) mutate(fn func(cur *State) *State) {
	s.mu.Lock()
	next := fn(s.state)
	if next == nil {
		s.mu.Unlock()
		return
	}
	s.state = next
	listeners := make([]func(), len(s.listeners))
	for i, l := range s.listeners {
		listeners[i] = l.fn
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

func copyLane(specs []*review.Specification) []*review.Specification {
	out := make([]*review.Specification, 0, len(specs))
	for _, spec := range specs {
		if spec != nil {
			out = append(out, spec)
		}
	}
	return out
}

func idSet(specs []*review.Specification) map[string]bool {
	ids := make(map[string]bool, len(specs))
	for _, spec := range specs {
		ids[spec.ID] = true
	}
	return ids
}

func without(lane []*review.Specification, ids map[string]bool) []*review.Specification {
	out := make([]*review.Specification, 0, len(lane))
	for _, spec := range lane {
		if !ids[spec.ID] {
			out = append(out, spec)
		}
	}
	return out
}

func upsert(lane []*review.Specification, entry *review.Specification) []*review.Specification {
	out := make([]*review.Specification, 0, len(lane)+1)
	replaced := false
	for _, spec := range lane {
		if spec.ID == entry.ID {
			out = append(out, entry)
			replaced = true
			continue
		}
		out = append(out, spec)
	}
	if !replaced {
		out = append(out, entry)
	}
	return out
}

func patchLane(lane []*review.Specification, id string, patch review.SpecPatch, patched **review.Specification) []*review.Specification {
	out := make([]*review.Specification, len(lane))
	for i, spec := range lane {
		if spec.ID == id {
			next := patch.Apply(*spec)
			out[i] = &next
			*patched = &next
			continue
		}
		out[i] = spec
	}
	return out
}
