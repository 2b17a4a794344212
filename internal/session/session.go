// Package session tracks the bridge lifecycle state machine and the table of
// open projects with their exclusive-access locks.
package session

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// State is the bridge lifecycle state.
type State int

const (
	NotRunning State = iota
	Starting
	Running
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case NotRunning:
		return "not-running"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

var ErrInvalidTransition = errors.New("invalid state transition")

func NewInvalidTransitionError(from, to State) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

var validTransitions = map[State][]State{
	NotRunning: {Starting},
	Starting:   {Running, Stopping},
	Running:    {Stopping},
	Stopping:   {Stopped},
}

// CanTransition reports whether the lifecycle allows moving from one state
// to another. Stopped is terminal.
func CanTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition records one lifecycle move.
type Transition struct {
	From      State
	To        State
	Reason    string
	Timestamp time.Time
}

// Session is one running bridge instance: lifecycle state, bound address,
// start time, and the last health check result.
type Session struct {
	ID      string
	Address string

	mu          sync.RWMutex
	state       State
	startedAt   time.Time
	lastHealth  bool
	lastHealthy time.Time
	transitions []Transition

	projects map[string]*Project
}

// New creates a Session in NotRunning.
func New(address string) *Session {
	return &Session{
		ID:       uuid.New().String(),
		Address:  address,
		state:    NotRunning,
		projects: make(map[string]*Project),
	}
}

// TransitionTo moves the lifecycle, rejecting moves outside the table.
func (s *Session) TransitionTo(next State, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !CanTransition(s.state, next) {
		return NewInvalidTransitionError(s.state, next)
	}
	now := time.Now()
	s.transitions = append(s.transitions, Transition{From: s.state, To: next, Reason: reason, Timestamp: now})
	if next == Running && s.startedAt.IsZero() {
		s.startedAt = now
	}
	s.state = next
	return nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// RecordHealth caches the latest health probe result.
func (s *Session) RecordHealth(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastHealth = ok
	s.lastHealthy = time.Now()
}

// Status is a point-in-time, lock-free copy of the session's observable
// state. Reading it never mutates anything.
type Status struct {
	ID           string    `json:"sessionId"`
	Address      string    `json:"address"`
	State        string    `json:"state"`
	StartedAt    time.Time `json:"startedAt"`
	LastHealth   bool      `json:"lastHealth"`
	LastHealthAt time.Time `json:"lastHealthAt"`
	OpenProjects int       `json:"openProjects"`
}

// Status returns an atomic copy under the read lock.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		ID:           s.ID,
		Address:      s.Address,
		State:        s.state.String(),
		StartedAt:    s.startedAt,
		LastHealth:   s.lastHealth,
		LastHealthAt: s.lastHealthy,
		OpenProjects: len(s.projects),
	}
}

// Project is one open editable document owned by the session. Its mutex
// enforces at most one in-flight mutating command per project; commands
// against different projects proceed independently.
type Project struct {
	Path     string
	OpenedAt time.Time

	mu          sync.Mutex
	dirty       atomic.Bool
	activeLayer int
}

// Lock acquires exclusive access to the project. Writers against the same
// project queue here rather than interleave.
func (p *Project) Lock() { p.mu.Lock() }

// Unlock releases exclusive access.
func (p *Project) Unlock() { p.mu.Unlock() }

// MarkDirty flags unsaved engine-applied changes. Safe to call without
// holding the project lock; the file watcher marks from its own goroutine
// while a mutation may be in flight.
func (p *Project) MarkDirty() { p.dirty.Store(true) }

// ClearDirty resets the flag after a save.
func (p *Project) ClearDirty() { p.dirty.Store(false) }

// Dirty reports the flag.
func (p *Project) Dirty() bool { return p.dirty.Load() }

// SetActiveLayer records the last layer a command addressed. Caller holds
// the lock.
func (p *Project) SetActiveLayer(idx int) { p.activeLayer = idx }

// ActiveLayer returns the active layer reference. Caller holds the lock.
func (p *Project) ActiveLayer() int { return p.activeLayer }

// canonical collapses the different spellings of one file into a single
// table key, the same way history keys its stacks. Two commands addressing
// "./photo.xcf" and its absolute path must contend for the same lock.
func canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// OpenProject returns the project for path, creating the entry on first
// use. At most one Project instance exists per file, regardless of how the
// path was spelled.
func (s *Session) OpenProject(path string) *Project {
	path = canonical(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.projects[path]; ok {
		return p
	}
	p := &Project{Path: path, OpenedAt: time.Now()}
	s.projects[path] = p
	return p
}

// Projects returns the paths of every open project, in no particular order.
func (s *Session) Projects() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paths := make([]string, 0, len(s.projects))
	for path := range s.projects {
		paths = append(paths, path)
	}
	return paths
}

// Project returns the open project for path, or nil.
func (s *Session) Project(path string) *Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projects[canonical(path)]
}

// CloseProject drops the table entry. Any holder of the old Project keeps
// its lock until release; new opens get a fresh instance.
func (s *Session) CloseProject(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.projects, canonical(path))
}
