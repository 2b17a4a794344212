// Package watcher flags external edits to open project files. The bridge
// serializes its own writes per project; anything else touching those files
// invalidates assumptions the session holds about them, so the project gets
// marked dirty and the change is logged.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/harnesslab/gimpbridge/internal/session"
)

// Event is one observed external change to a tracked project file.
type Event struct {
	Path string
	At   time.Time
}

// Watcher observes the directories holding tracked project files.
// Directories rather than files are watched so editor save-via-rename
// still produces events.
type Watcher struct {
	session *session.Session
	logger  *zap.Logger
	fsw     *fsnotify.Watcher

	mu      sync.Mutex
	tracked map[string]bool // absolute project paths
	dirs    map[string]bool // directories already added to fsw

	// Events receives external-edit notifications. Buffered; slow readers
	// drop events rather than stall the watch loop.
	Events chan Event
}

// New builds a Watcher bound to the session. A nil logger disables logging.
func New(sess *session.Session, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		session: sess,
		logger:  logger,
		fsw:     fsw,
		tracked: map[string]bool{},
		dirs:    map[string]bool{},
		Events:  make(chan Event, 64),
	}, nil
}

// Track starts watching the directory containing a project file.
func (w *Watcher) Track(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tracked[abs] = true
	dir := filepath.Dir(abs)
	if w.dirs[dir] {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		return err
	}
	w.dirs[dir] = true
	return nil
}

func (w *Watcher) isTracked(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tracked[abs]
}

// Run consumes filesystem events until ctx is canceled. Watcher errors are
// non-fatal; the loop keeps going.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !w.isTracked(event.Name) {
				continue
			}
			if proj := w.session.Project(event.Name); proj != nil {
				proj.MarkDirty()
			}
			w.logger.Info("project file changed on disk",
				zap.String("path", event.Name),
				zap.String("op", event.Op.String()),
			)
			select {
			case w.Events <- Event{Path: event.Name, At: time.Now()}:
			default:
			}

		case _, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
		}
	}
}
