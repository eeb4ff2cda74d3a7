// Package watch reports debounced content changes of RDF files so a
// validation can be re-run while graphs are edited locally.
package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Config configures the file watcher
type Config struct {
	// Files are the files to watch. Their directories are watched so
	// editors that replace files on save are handled.
	Files []string

	// DebounceDelay is how long to wait for more changes before reporting
	DebounceDelay time.Duration

	// Logger for logging events
	Logger *slog.Logger
}

// Change is one debounced batch of file changes.
type Change struct {
	// Modified are files whose content changed, sorted.
	Modified []string

	// Removed are files that no longer exist, sorted.
	Removed []string
}

// Empty reports whether the batch has no changes.
func (c Change) Empty() bool {
	return len(c.Modified) == 0 && len(c.Removed) == 0
}

// Watcher watches RDF files and emits content changes
type Watcher struct {
	files    map[string]bool
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	// Debouncing: collect changes before processing
	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op
	lastEvent time.Time

	// Content hashes for change detection
	hashMu sync.RWMutex
	hashes map[string]string

	changes  chan Change
	stopOnce sync.Once
}

// New creates a file watcher.
func New(config Config) (*Watcher, error) {
	if len(config.Files) == 0 {
		return nil, fmt.Errorf("no files to watch")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	debounce := config.DebounceDelay
	if debounce == 0 {
		debounce = 300 * time.Millisecond
	}

	files := make(map[string]bool, len(config.Files))
	for _, f := range config.Files {
		abs, err := filepath.Abs(f)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("resolve %s: %w", f, err)
		}
		files[abs] = true
	}

	return &Watcher{
		files:    files,
		debounce: debounce,
		watcher:  fsw,
		logger:   logger,
		pending:  make(map[string]fsnotify.Op),
		hashes:   make(map[string]string),
		changes:  make(chan Change, 16),
	}, nil
}

// Changes returns the channel of change batches. It is closed by Stop.
func (w *Watcher) Changes() <-chan Change {
	return w.changes
}

// Start records the current file contents and begins watching.
func (w *Watcher) Start(ctx context.Context) error {
	dirs := make(map[string]bool)
	for path := range w.files {
		if hash, err := hashFile(path); err == nil {
			w.setHash(path, hash)
		}
		dirs[filepath.Dir(path)] = true
	}

	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		w.logger.Debug("Watching directory", "path", dir)
	}

	go w.processEvents(ctx)

	w.logger.Info("File watcher started",
		"files", len(w.files),
		"directories", len(dirs),
		"debounce", w.debounce)

	return nil
}

// Stop stops the watcher
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		err = w.watcher.Close()
	})
	return err
}

// processEvents handles fsnotify events with debouncing
func (w *Watcher) processEvents(ctx context.Context) {
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()
	defer close(w.changes)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

// handleFSEvent records a change of a watched file
func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path, err := filepath.Abs(event.Name)
	if err != nil || !w.files[path] {
		return
	}
	if event.Op == fsnotify.Chmod {
		return
	}

	w.pendingMu.Lock()
	w.pending[path] |= event.Op
	w.lastEvent = time.Now()
	w.pendingMu.Unlock()

	w.logger.Debug("File change detected",
		"path", path,
		"op", event.Op.String())
}

// flushPending turns accumulated events into a Change once no event has
// arrived for the debounce delay
func (w *Watcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 || time.Since(w.lastEvent) < w.debounce {
		w.pendingMu.Unlock()
		return
	}
	toProcess := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	var change Change
	for path := range toProcess {
		hash, err := hashFile(path)
		if os.IsNotExist(err) {
			// A file replaced by an atomic save exists again by the
			// time the batch is flushed.
			if _, had := w.getHash(path); had {
				w.deleteHash(path)
				change.Removed = append(change.Removed, path)
			}
			continue
		}
		if err != nil {
			w.logger.Warn("Failed to read changed file", "path", path, "error", err)
			continue
		}

		if old, had := w.getHash(path); had && old == hash {
			continue
		}
		w.setHash(path, hash)
		change.Modified = append(change.Modified, path)
	}

	if change.Empty() {
		return
	}
	sort.Strings(change.Modified)
	sort.Strings(change.Removed)

	select {
	case w.changes <- change:
		w.logger.Debug("Sent change batch",
			"modified", len(change.Modified),
			"removed", len(change.Removed))
	case <-ctx.Done():
	default:
		w.logger.Warn("Change channel full, dropping batch",
			"modified", len(change.Modified))
	}
}

func (w *Watcher) setHash(path, hash string) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	w.hashes[path] = hash
}

func (w *Watcher) getHash(path string) (string, bool) {
	w.hashMu.RLock()
	defer w.hashMu.RUnlock()
	hash, ok := w.hashes[path]
	return hash, ok
}

func (w *Watcher) deleteHash(path string) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	delete(w.hashes, path)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
