// Package watch ingests documents dropped into a directory.
// It is a driving adapter: filesystem events drive the ingest service.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// DefaultDebounce is how long a file must stay quiet before it is ingested.
// Large PDFs are usually written in many chunks.
const DefaultDebounce = 500 * time.Millisecond

// ErrClosed is returned by Run on a watcher that already ran.
var ErrClosed = errors.New("watch: watcher closed")

// Result reports the outcome of one automatic ingest.
type Result struct {
	// Path is the file that was ingested.
	Path string

	// Report is set on success.
	Report *domain.IngestReport

	// Err is set on failure, including domain.ErrDuplicateDocument.
	Err error
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a changed file is ingested.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithOnResult registers a callback invoked after every ingest attempt.
func WithOnResult(fn func(Result)) Option {
	return func(w *Watcher) {
		w.onResult = fn
	}
}

// WithInitialScan ingests the files already in the directory before
// watching for new ones.
func WithInitialScan(enabled bool) Option {
	return func(w *Watcher) {
		w.initialScan = enabled
	}
}

// Watcher turns create and write events in one directory into ingests.
// Subdirectories are not watched.
type Watcher struct {
	ingest      driving.IngestService
	dir         string
	debounce    time.Duration
	onResult    func(Result)
	initialScan bool

	mu     sync.Mutex
	closed bool
}

// New creates a watcher for dir. The directory must exist.
func New(ingest driving.IngestService, dir string, opts ...Option) (*Watcher, error) {
	if ingest == nil {
		return nil, errors.New("watch: ingest service is required")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch: directory error: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch: %s is not a directory", dir)
	}

	w := &Watcher{
		ingest:   ingest,
		dir:      dir,
		debounce: DefaultDebounce,
		onResult: func(Result) {},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Run watches until ctx is cancelled. Files are ingested one at a time
// in the order they settle.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	w.closed = true
	w.mu.Unlock()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: creating watcher: %w", err)
	}
	defer fsw.Close() //nolint:errcheck // best-effort cleanup

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch: adding %s: %w", w.dir, err)
	}
	logger.Info("watching %s", w.dir)

	if w.initialScan {
		w.scan(ctx)
	}

	ready := make(chan string)
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			path, ok := w.handleEvent(event)
			if !ok {
				continue
			}
			if t, exists := timers[path]; exists {
				t.Reset(w.debounce)
				continue
			}
			timers[path] = time.AfterFunc(w.debounce, func() {
				select {
				case ready <- path:
				case <-ctx.Done():
				}
			})

		case path := <-ready:
			delete(timers, path)
			w.ingestFile(ctx, path)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)
		}
	}
}

// handleEvent reports the file an event should ingest, if any.
// Only creates and writes of supported, visible regular files count.
func (w *Watcher) handleEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return "", false
	}
	info, err := os.Stat(event.Name)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	if !w.ingest.Supports(event.Name) {
		return "", false
	}
	return event.Name, true
}

func (w *Watcher) ingestFile(ctx context.Context, path string) {
	logger.Section("Watch: " + filepath.Base(path))
	report, err := w.ingest.Ingest(ctx, domain.IngestRequest{Path: path})
	w.onResult(Result{Path: path, Report: report, Err: err})
}

func (w *Watcher) scan(ctx context.Context) {
	report, err := w.ingest.IngestDir(ctx, w.dir)
	if err != nil {
		logger.Warn("initial scan of %s failed: %v", w.dir, err)
		return
	}
	for i := range report.Ingested {
		r := report.Ingested[i]
		w.onResult(Result{Path: filepath.Join(w.dir, r.Source), Report: &r})
	}
	for name, err := range report.Failed {
		w.onResult(Result{Path: filepath.Join(w.dir, name), Err: err})
	}
}
