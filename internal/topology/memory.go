package topology

import (
	"context"
	"sync"
)

type slotKey struct {
	shell    string
	timeslot int
}

// MemorySource is an in-process Source, mostly for tests and small runs.
type MemorySource struct {
	mu       sync.RWMutex
	matrices map[slotKey]Matrix
}

// NewMemorySource returns an empty source.
func NewMemorySource() *MemorySource {
	return &MemorySource{matrices: make(map[slotKey]Matrix)}
}

// Put stores a copy of m for (shell, timeslot).
func (s *MemorySource) Put(shell string, timeslot int, m Matrix) {
	s.mu.Lock()
	s.matrices[slotKey{shell, timeslot}] = m.Clone()
	s.mu.Unlock()
}

func (s *MemorySource) Matrix(ctx context.Context, shell string, timeslot int) (Matrix, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	m, ok := s.matrices[slotKey{shell, timeslot}]
	s.mu.RUnlock()
	if !ok {
		return nil, unavailable(shell, timeslot)
	}
	return m.Clone(), nil
}
