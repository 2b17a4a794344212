// Package history owns the per-project undo/redo stacks and named
// snapshots. The engine, not this package, knows how to materialize pixel
// state; here a state token is a snapshot file captured after each mutation,
// and restoring one is a byte copy back over the project file.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harnesslab/gimpbridge/internal/protocol"
)

// ErrEmptyStack is returned by Undo and Redo when no further step exists in
// the requested direction.
var ErrEmptyStack = errors.New("no further history step available")

// Entry is one immutable history record. Token identifies the resulting
// state; File is the snapshot holding its bytes.
type Entry struct {
	Seq         int       `json:"seq"`
	Description string    `json:"description"`
	Token       string    `json:"token"`
	File        string    `json:"file"`
	CreatedAt   time.Time `json:"created_at"`
}

// projectHistory is the persisted past/future pair for one project path.
// The top of Past always describes the project's current on-disk state.
type projectHistory struct {
	Past    []Entry `json:"past"`
	Future  []Entry `json:"future"`
	NextSeq int     `json:"next_seq"`
}

type stateFile struct {
	Projects map[string]*projectHistory `json:"projects"`
}

// Manager reads and writes the history store under <stateDir>/history.
// Depth bounds each project's past stack; oldest entries evict first.
type Manager struct {
	root  string
	depth int

	mu sync.Mutex
}

// NewManager creates a Manager rooted in the state directory. depth <= 0
// means unbounded.
func NewManager(stateDir string, depth int) *Manager {
	return &Manager{root: filepath.Join(stateDir, "history"), depth: depth}
}

func (m *Manager) statePath() string { return filepath.Join(m.root, "state.json") }

func (m *Manager) load() (*stateFile, error) {
	data, err := os.ReadFile(m.statePath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &stateFile{Projects: map[string]*projectHistory{}}, nil
		}
		return nil, fmt.Errorf("failed to read history state: %w", err)
	}
	var st stateFile
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse history state: %w", err)
	}
	if st.Projects == nil {
		st.Projects = map[string]*projectHistory{}
	}
	return &st, nil
}

// save writes the state file atomically via temp file + rename.
func (m *Manager) save(st *stateFile) error {
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return fmt.Errorf("failed to persist history state: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to persist history state: %w", err)
	}
	tmp, err := os.CreateTemp(m.root, "state-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to persist history state: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to persist history state: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to persist history state: %w", err)
	}
	if err = os.Rename(tmpName, m.statePath()); err != nil {
		return fmt.Errorf("failed to persist history state: %w", err)
	}
	return nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func safeName(text string) string {
	cleaned := strings.Trim(unsafeChars.ReplaceAllString(text, "-"), "-")
	if cleaned == "" {
		return "snapshot"
	}
	return cleaned
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

// capture copies the project's current bytes into a fresh snapshot file and
// returns the entry describing it.
func (m *Manager) capture(ph *projectHistory, project, description string) (Entry, error) {
	base := strings.TrimSuffix(filepath.Base(project), filepath.Ext(project))
	dir := filepath.Join(m.root, safeName(base))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Entry{}, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	stamp := time.Now().UTC().Format("20060102T150405")
	name := fmt.Sprintf("%s__%04d__%s%s", stamp, ph.NextSeq, safeName(description), strings.ToLower(filepath.Ext(project)))
	file := filepath.Join(dir, name)
	if err := copyFile(project, file); err != nil {
		return Entry{}, fmt.Errorf("failed to capture snapshot: %w", err)
	}
	e := Entry{
		Seq:         ph.NextSeq,
		Description: description,
		Token:       uuid.New().String(),
		File:        file,
		CreatedAt:   time.Now().UTC(),
	}
	ph.NextSeq++
	return e, nil
}

func key(project string) string {
	abs, err := filepath.Abs(project)
	if err != nil {
		return project
	}
	return abs
}

// Baseline ensures the project has an initial "open" entry so its first
// mutation is undoable. A no-op when history already exists.
func (m *Manager) Baseline(project string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.load()
	if err != nil {
		return err
	}
	k := key(project)
	if ph, ok := st.Projects[k]; ok && len(ph.Past) > 0 {
		return nil
	}
	ph := &projectHistory{}
	e, err := m.capture(ph, project, "open")
	if err != nil {
		return err
	}
	ph.Past = append(ph.Past, e)
	st.Projects[k] = ph
	return m.save(st)
}

// RecordMutation appends a post-mutation entry, discards any redo branch,
// and evicts the oldest entries beyond the depth ceiling. Returns the new
// entry's sequence number.
func (m *Manager) RecordMutation(project, description string) (int, error) {
	e, err := m.record(project, description)
	if err != nil {
		return 0, err
	}
	return e.Seq, nil
}

// Snapshot records a caller-named checkpoint. It is a mutation-tagged entry
// like any other: a later mutation still discards the redo branch, and undo
// walks through it in insertion order.
func (m *Manager) Snapshot(project, description string) (Entry, error) {
	return m.record(project, description)
}

func (m *Manager) record(project, description string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.load()
	if err != nil {
		return Entry{}, err
	}
	k := key(project)
	ph := st.Projects[k]
	if ph == nil {
		ph = &projectHistory{}
		st.Projects[k] = ph
	}
	e, err := m.capture(ph, project, description)
	if err != nil {
		return Entry{}, err
	}
	ph.Past = append(ph.Past, e)

	// Any new mutation invalidates the redo branch.
	for _, stale := range ph.Future {
		os.Remove(stale.File)
	}
	ph.Future = nil

	if m.depth > 0 {
		for len(ph.Past) > m.depth {
			os.Remove(ph.Past[0].File)
			ph.Past = ph.Past[1:]
		}
	}
	if err := m.save(st); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Undo moves the top of past onto future and restores the previous state's
// bytes over the project file. Returns the undone entry and the entry now
// describing the current state. A restore failure leaves the stack position
// unchanged.
func (m *Manager) Undo(project string) (undone, current Entry, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.load()
	if err != nil {
		return Entry{}, Entry{}, err
	}
	ph := st.Projects[key(project)]
	if ph == nil || len(ph.Past) < 2 {
		return Entry{}, Entry{}, ErrEmptyStack
	}

	top := ph.Past[len(ph.Past)-1]
	target := ph.Past[len(ph.Past)-2]
	if err := restore(target, project); err != nil {
		return Entry{}, Entry{}, err
	}

	ph.Past = ph.Past[:len(ph.Past)-1]
	ph.Future = append(ph.Future, top)
	if err := m.save(st); err != nil {
		return Entry{}, Entry{}, err
	}
	return top, target, nil
}

// Redo is the inverse of Undo: the top of future returns to past and its
// state is restored.
func (m *Manager) Redo(project string) (redone Entry, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.load()
	if err != nil {
		return Entry{}, err
	}
	ph := st.Projects[key(project)]
	if ph == nil || len(ph.Future) == 0 {
		return Entry{}, ErrEmptyStack
	}

	top := ph.Future[len(ph.Future)-1]
	if err := restore(top, project); err != nil {
		return Entry{}, err
	}

	ph.Future = ph.Future[:len(ph.Future)-1]
	ph.Past = append(ph.Past, top)
	if err := m.save(st); err != nil {
		return Entry{}, err
	}
	return top, nil
}

// restore copies an entry's snapshot bytes over the project file. The state
// reconstruction itself is delegated file machinery; failure to reconstruct
// is a validation fault and must not move the stack.
func restore(e Entry, project string) error {
	if _, err := os.Stat(e.File); err != nil {
		return protocol.NewError(protocol.CodeValidationFailed,
			"cannot reconstruct state %q: snapshot missing", e.Description)
	}
	if err := copyFile(e.File, project); err != nil {
		return protocol.NewError(protocol.CodeValidationFailed,
			"cannot reconstruct state %q: %v", e.Description, err)
	}
	return nil
}

// Entries returns copies of the past and future stacks for a project.
func (m *Manager) Entries(project string) (past, future []Entry, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.load()
	if err != nil {
		return nil, nil, err
	}
	ph := st.Projects[key(project)]
	if ph == nil {
		return nil, nil, nil
	}
	past = append([]Entry(nil), ph.Past...)
	future = append([]Entry(nil), ph.Future...)
	return past, future, nil
}
