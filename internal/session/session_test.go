package session_test

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/harnesslab/gimpbridge/internal/session"
)

func TestTransitionTable(t *testing.T) {
	states := []session.State{
		session.NotRunning, session.Starting, session.Running,
		session.Stopping, session.Stopped,
	}
	allowed := map[session.State][]session.State{
		session.NotRunning: {session.Starting},
		session.Starting:   {session.Running, session.Stopping},
		session.Running:    {session.Stopping},
		session.Stopping:   {session.Stopped},
		session.Stopped:    {},
	}

	for _, from := range states {
		permitted := map[session.State]bool{}
		for _, to := range allowed[from] {
			permitted[to] = true
		}
		for _, to := range states {
			if got := session.CanTransition(from, to); got != permitted[to] {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, permitted[to])
			}
		}
	}
}

func TestLifecycleHappyPath(t *testing.T) {
	s := session.New("127.0.0.1:41749")
	if s.State() != session.NotRunning {
		t.Fatalf("initial state = %s", s.State())
	}
	steps := []session.State{session.Starting, session.Running, session.Stopping, session.Stopped}
	for _, next := range steps {
		if err := s.TransitionTo(next, "test"); err != nil {
			t.Fatalf("TransitionTo(%s): %v", next, err)
		}
	}
	if s.State() != session.Stopped {
		t.Errorf("final state = %s", s.State())
	}
}

func TestInvalidTransitionRejected(t *testing.T) {
	s := session.New("127.0.0.1:41749")
	err := s.TransitionTo(session.Running, "skip starting")
	if err == nil {
		t.Fatal("NotRunning -> Running must be rejected")
	}
	if !errors.Is(err, session.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	// A failed transition leaves the state untouched.
	if s.State() != session.NotRunning {
		t.Errorf("state after rejected transition = %s", s.State())
	}
}

func TestStatusIsPureRead(t *testing.T) {
	s := session.New("127.0.0.1:41749")
	if err := s.TransitionTo(session.Starting, "start"); err != nil {
		t.Fatal(err)
	}
	if err := s.TransitionTo(session.Running, "health ok"); err != nil {
		t.Fatal(err)
	}
	s.RecordHealth(true)

	before := s.Status()
	for i := 0; i < 5; i++ {
		if got := s.Status(); got.State != before.State || got.ID != before.ID {
			t.Fatalf("Status mutated observable state: %+v vs %+v", got, before)
		}
	}
	if !before.LastHealth {
		t.Error("LastHealth not cached")
	}
	if before.StartedAt.IsZero() {
		t.Error("StartedAt not set on Running transition")
	}
}

func TestOpenProjectIsSingleInstance(t *testing.T) {
	s := session.New("addr")
	a := s.OpenProject("/tmp/a.xcf")
	b := s.OpenProject("/tmp/a.xcf")
	if a != b {
		t.Error("same path must yield the same Project instance")
	}
	if s.Project("/tmp/other.xcf") != nil {
		t.Error("unopened path must return nil")
	}
	s.CloseProject("/tmp/a.xcf")
	if c := s.OpenProject("/tmp/a.xcf"); c == a {
		t.Error("reopen after close must yield a fresh instance")
	}
}

func TestProjectLockSerializesWriters(t *testing.T) {
	s := session.New("addr")
	p := s.OpenProject("/tmp/a.xcf")

	const writers = 8
	const perWriter = 50
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				p.Lock()
				counter++
				p.MarkDirty()
				p.Unlock()
			}
		}()
	}
	wg.Wait()

	if counter != writers*perWriter {
		t.Errorf("counter = %d, want %d (lost update under lock)", counter, writers*perWriter)
	}
	p.Lock()
	if !p.Dirty() {
		t.Error("dirty flag lost")
	}
	p.Unlock()
}

func TestOpenProjectNormalizesPathSpellings(t *testing.T) {
	s := session.New("127.0.0.1:41749")
	dir := t.TempDir()
	canonical := filepath.Join(dir, "photo.xcf")
	dotted := dir + string(filepath.Separator) + "." + string(filepath.Separator) + "photo.xcf"

	p := s.OpenProject(dotted)
	if got := s.Project(canonical); got != p {
		t.Error("alternate spelling resolved to a different project")
	}
	if p.Path != canonical {
		t.Errorf("Path = %q, want canonical %q", p.Path, canonical)
	}
	if got := len(s.Projects()); got != 1 {
		t.Errorf("open projects = %d, want 1", got)
	}

	s.CloseProject(dotted)
	if s.Project(canonical) != nil {
		t.Error("CloseProject with alternate spelling left the entry behind")
	}
}

func TestMarkDirtyWithoutProjectLock(t *testing.T) {
	s := session.New("127.0.0.1:41749")
	p := s.OpenProject(filepath.Join(t.TempDir(), "photo.xcf"))

	// A watcher goroutine marks dirty while a mutation holds the lock.
	// Must not deadlock and must not lose the write.
	p.Lock()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.MarkDirty()
			_ = p.Dirty()
		}()
	}
	wg.Wait()
	p.Unlock()

	if !p.Dirty() {
		t.Error("dirty flag not set")
	}
}
