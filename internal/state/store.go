// Package state owns the process-wide persisted bridge state: the connection
// record written by start and read by every subsequent command. All access
// goes through the store so endpoint precedence lives in exactly one place.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNoRecord is returned by Load when no connection record exists on disk.
var ErrNoRecord = errors.New("no bridge connection record")

// EnvURL overrides endpoint resolution entirely when set.
const EnvURL = "GIMPBRIDGE_URL"

// EnvStateDir overrides the state directory when set.
const EnvStateDir = "GIMPBRIDGE_STATE_DIR"

// DefaultURL is used when neither an override nor a persisted record exists.
const DefaultURL = "http://127.0.0.1:41749"

// ConnectionRecord is the on-disk record written by start and consumed by
// every later CLI invocation.
type ConnectionRecord struct {
	Host      string    `json:"host"`
	Port      int       `json:"port"`
	PID       int       `json:"pid"`
	SessionID string    `json:"session_id"`
	StartedAt time.Time `json:"started_at"`
}

// URL renders the record as a bridge base URL.
func (r *ConnectionRecord) URL() string {
	return fmt.Sprintf("http://%s:%d", r.Host, r.Port)
}

// Store persists a ConnectionRecord to disk.
type Store interface {
	Save(r *ConnectionRecord) error
	Load() (*ConnectionRecord, error) // returns ErrNoRecord if none exists
	Delete() error
	Dir() string
}

// diskStore is the concrete Store rooted in the resolved state directory.
type diskStore struct {
	dir  string
	path string // full path to bridge.json
}

// NewStore returns a Store backed by the state directory. Resolution order:
// GIMPBRIDGE_STATE_DIR > configured dir > $XDG_STATE_HOME/gimpbridge >
// ~/.local/state/gimpbridge.
func NewStore(configured string) (Store, error) {
	dir, err := resolveDir(configured)
	if err != nil {
		return nil, fmt.Errorf("resolving state directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	return &diskStore{dir: dir, path: filepath.Join(dir, "bridge.json")}, nil
}

func resolveDir(configured string) (string, error) {
	if env := os.Getenv(EnvStateDir); env != "" {
		return env, nil
	}
	if configured != "" {
		return configured, nil
	}
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, "gimpbridge"), nil
}

func (d *diskStore) Dir() string { return d.dir }

// Save marshals r to JSON and writes it atomically via a temp file +
// os.Rename, so concurrent readers never observe a half-written record.
func (d *diskStore) Save(r *ConnectionRecord) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to persist connection record: %w", err)
	}

	tmp, err := os.CreateTemp(d.dir, "bridge-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to persist connection record: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to persist connection record: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to persist connection record: %w", err)
	}

	if err = os.Rename(tmpName, d.path); err != nil {
		return fmt.Errorf("failed to persist connection record: %w", err)
	}
	return nil
}

// Load reads and unmarshals the connection record.
// Returns ErrNoRecord if the file does not exist.
func (d *diskStore) Load() (*ConnectionRecord, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoRecord
		}
		return nil, fmt.Errorf("failed to read connection record: %w", err)
	}

	var r ConnectionRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse connection record: %w", err)
	}
	return &r, nil
}

// Delete removes the connection record from disk.
func (d *diskStore) Delete() error {
	if err := os.Remove(d.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete connection record: %w", err)
	}
	return nil
}

// ResolveURL applies the endpoint precedence: explicit override >
// GIMPBRIDGE_URL > persisted record > default. Read-only: it never starts a
// session.
func ResolveURL(override string, store Store) string {
	if override != "" {
		return override
	}
	if env := os.Getenv(EnvURL); env != "" {
		return env
	}
	if store != nil {
		if rec, err := store.Load(); err == nil {
			return rec.URL()
		}
	}
	return DefaultURL
}
