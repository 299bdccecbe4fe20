// Package session holds the single in-memory session state: the current
// original collection and everything derived from it.
package session

import (
	"sync"
	"time"

	"github.com/woozymasta/geocheck/internal/filter"
	"github.com/woozymasta/geocheck/internal/geo"
	"github.com/woozymasta/geocheck/internal/table"
)

// State is one immutable snapshot: the original collection, its attribute
// table and the inferred filter metadata. Built once per successful load and
// never mutated afterwards.
type State struct {
	Collection *geo.Collection
	Table      *table.Table
	Columns    []filter.Column
	Origin     string
	LoadedAt   time.Time
}

// Session guards the current snapshot. A new load replaces the snapshot
// wholesale; readers always observe one consistent state, never a partially
// updated one.
type Session struct {
	mu  sync.RWMutex
	cur *State
}

// New returns an empty session with no collection loaded.
func New() *Session {
	return &Session{}
}

// Replace installs a new snapshot. Only called after a fully successful
// parse and build, so a failed load leaves prior state untouched.
func (s *Session) Replace(st *State) {
	s.mu.Lock()
	s.cur = st
	s.mu.Unlock()
}

// Current returns the active snapshot, or nil when nothing is loaded.
func (s *Session) Current() *State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}
