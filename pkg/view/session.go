package view

import (
	"fmt"
	"time"
)

// Session owns the current view. Every successful Build replaces the
// snapshot; failed builds leave it untouched.
type Session struct {
	persist SnapshotStore
	current *Snapshot
	clock   func() time.Time
}

// NewSession loads the last snapshot from persist. A nil persist keeps the
// snapshot in memory.
func NewSession(persist SnapshotStore) (*Session, error) {
	if persist == nil {
		persist = &MemorySnapshotStore{}
	}
	snap, err := persist.Load()
	if err != nil {
		return nil, err
	}
	return &Session{persist: persist, current: snap, clock: time.Now}, nil
}

// Build runs the query against src and makes its page the current view.
func (s *Session) Build(src Source, q Query) (*Result, error) {
	res, err := Build(src, q, s.clock())
	if err != nil {
		return nil, err
	}
	if err := s.persist.Save(res.Snapshot); err != nil {
		return nil, fmt.Errorf("saving current view: %w", err)
	}
	s.current = res.Snapshot
	return res, nil
}

// Current returns the current snapshot, or nil when no view was built.
func (s *Session) Current() *Snapshot {
	return s.current
}
