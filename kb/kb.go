package kb

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/signalsfoundry/constellation-resilience/core"
	"github.com/signalsfoundry/constellation-resilience/model"
)

// EventType indicates what kind of change happened in the KB.
type EventType int

const (
	EventSatelliteAdded EventType = iota
)

// Event is emitted to subscribers when something interesting happens.
type Event struct {
	Type      EventType
	Shell     string
	Satellite model.Satellite
}

type entry struct {
	sat   model.Satellite
	track core.Track
}

type shell struct {
	sats    map[model.NodeID]*entry
	ordered []model.Satellite // plane, then ID
}

// KnowledgeBase is an in-memory, thread-safe catalogue of constellation
// shells, their satellites and the ground tracks used for access
// resolution.
type KnowledgeBase struct {
	mu      sync.RWMutex
	shells  map[string]*shell
	subs    []subscription
	nextSub uint64
}

type subscription struct {
	id uint64
	fn func(Event)
}

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{shells: make(map[string]*shell)}
}

// AddShell registers an empty shell. Adding an existing shell is a no-op.
func (kb *KnowledgeBase) AddShell(name string) error {
	if name == "" {
		return fmt.Errorf("shell name must not be empty")
	}
	kb.mu.Lock()
	defer kb.mu.Unlock()
	if _, ok := kb.shells[name]; !ok {
		kb.shells[name] = &shell{sats: make(map[model.NodeID]*entry)}
	}
	return nil
}

// AddSatellite adds a satellite to its shell. It returns an error if the
// shell is unknown, the ID is not positive or the ID already exists.
func (kb *KnowledgeBase) AddSatellite(sat model.Satellite, track core.Track) error {
	if sat.ID <= 0 {
		return fmt.Errorf("satellite ID must be positive, got %d", sat.ID)
	}
	kb.mu.Lock()
	sh, ok := kb.shells[sat.Shell]
	if !ok {
		kb.mu.Unlock()
		return fmt.Errorf("shell %q not found for satellite %d", sat.Shell, sat.ID)
	}
	if _, exists := sh.sats[sat.ID]; exists {
		kb.mu.Unlock()
		return fmt.Errorf("satellite %d already exists in shell %q", sat.ID, sat.Shell)
	}
	sh.sats[sat.ID] = &entry{sat: sat, track: track}
	sh.ordered = append(sh.ordered, sat)
	slices.SortFunc(sh.ordered, func(a, b model.Satellite) int {
		if c := cmp.Compare(a.PlaneID, b.PlaneID); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	event := Event{Type: EventSatelliteAdded, Shell: sat.Shell, Satellite: sat}
	subs := append([]subscription(nil), kb.subs...)
	kb.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	for _, sub := range subs {
		sub.fn(event)
	}
	return nil
}

// Satellite returns the satellite with the given ID.
func (kb *KnowledgeBase) Satellite(shellName string, id model.NodeID) (model.Satellite, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	sh, ok := kb.shells[shellName]
	if !ok {
		return model.Satellite{}, false
	}
	e, ok := sh.sats[id]
	if !ok {
		return model.Satellite{}, false
	}
	return e.sat, true
}

// Satellites returns a snapshot of a shell's satellites ordered by plane
// and then by ID.
func (kb *KnowledgeBase) Satellites(shellName string) []model.Satellite {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	sh, ok := kb.shells[shellName]
	if !ok {
		return nil
	}
	return slices.Clone(sh.ordered)
}

// Track returns the ground track of a satellite, if one was registered.
func (kb *KnowledgeBase) Track(shellName string, id model.NodeID) (core.Track, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	sh, ok := kb.shells[shellName]
	if !ok {
		return nil, false
	}
	e, ok := sh.sats[id]
	if !ok || e.track == nil {
		return nil, false
	}
	return e.track, true
}

// SamePlane reports whether u and v share an orbital plane. Unknown
// satellites are never in the same plane.
func (kb *KnowledgeBase) SamePlane(shellName string, u, v model.NodeID) bool {
	a, okA := kb.Satellite(shellName, u)
	b, okB := kb.Satellite(shellName, v)
	return okA && okB && a.PlaneID == b.PlaneID
}

// Shells returns the registered shell names in sorted order.
func (kb *KnowledgeBase) Shells() []string {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	names := make([]string, 0, len(kb.shells))
	for name := range kb.shells {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Subscribe registers a callback for KB events in subscription order. The
// returned function removes exactly this callback and is safe to call more
// than once.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.nextSub++
	id := kb.nextSub
	kb.subs = append(kb.subs, subscription{id: id, fn: fn})

	return func() {
		kb.mu.Lock()
		defer kb.mu.Unlock()
		kb.subs = slices.DeleteFunc(kb.subs, func(s subscription) bool { return s.id == id })
	}
}
