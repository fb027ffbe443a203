// Package watcher stages scans dropped into a directory and submits them as
// captures.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/neuranote/neuranote/internal/capture"
	"github.com/neuranote/neuranote/internal/models"
)

const defaultSettle = 400 * time.Millisecond

// Target is the capture session batches are staged into. Discard drops
// whatever a failed batch left staged so the next batch goes out alone.
type Target interface {
	AddFiles(ctx context.Context, files []capture.FileInput) (capture.AddSummary, error)
	Submit(ctx context.Context) (*models.Note, error)
	Discard() error
}

// Result is the outcome of one submitted batch
type Result struct {
	Files   []string
	Summary capture.AddSummary
	Note    *models.Note
	Err     error
}

// Watcher collects files written into dir. A file is ready once it has not
// changed for the settle period. Ready files are submitted when maxBatch of
// them have gathered or no new file became ready for the idle period.
type Watcher struct {
	dir      string
	idle     time.Duration
	settle   time.Duration
	maxBatch int
	target   Target
	onResult func(Result)
}

// Option configures a Watcher
type Option func(*Watcher)

// WithSettle overrides how long a file must be unchanged before it is staged
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) { w.settle = d }
}

// WithResultHandler registers a callback run after every submitted batch
func WithResultHandler(fn func(Result)) Option {
	return func(w *Watcher) { w.onResult = fn }
}

// New creates a watcher over dir
func New(dir string, idle time.Duration, maxBatch int, target Target, opts ...Option) *Watcher {
	if maxBatch <= 0 {
		maxBatch = 5
	}
	w := &Watcher{
		dir:      dir,
		idle:     idle,
		settle:   defaultSettle,
		maxBatch: maxBatch,
		target:   target,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is cancelled. Files already in dir are ignored.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return err
	}
	slog.Info("Watching for scans", "dir", w.dir, "idle", w.idle, "batch", w.maxBatch)

	tick := w.settle / 2
	if tick <= 0 {
		tick = 50 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	pending := make(map[string]time.Time)
	var ready []string
	var lastReady time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
					delete(pending, ev.Name)
				}
				continue
			}
			if skipName(ev.Name) {
				continue
			}
			pending[ev.Name] = time.Now()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", "error", err)
		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < w.settle {
					continue
				}
				delete(pending, path)
				if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
					continue
				}
				if !contains(ready, path) {
					ready = append(ready, path)
					lastReady = now
				}
			}
			for len(ready) >= w.maxBatch {
				w.flush(ctx, ready[:w.maxBatch])
				ready = ready[w.maxBatch:]
			}
			if len(ready) > 0 && now.Sub(lastReady) >= w.idle {
				w.flush(ctx, ready)
				ready = nil
			}
		}
	}
}

func (w *Watcher) flush(ctx context.Context, paths []string) {
	batch := append([]string(nil), paths...)
	inputs := make([]capture.FileInput, 0, len(batch))
	for _, p := range batch {
		inputs = append(inputs, capture.PathInput(p))
	}

	result := Result{Files: batch}
	result.Summary, result.Err = w.target.AddFiles(ctx, inputs)
	switch {
	case result.Err != nil:
		slog.Error("Failed to stage scans", "files", len(batch), "error", result.Err)
	case result.Summary.Accepted == 0:
		slog.Warn("No usable scans in batch", "files", len(batch), "notice", result.Summary.Notice())
	default:
		slog.Info("Submitting scans", "files", len(batch), "notice", result.Summary.Notice())
		result.Note, result.Err = w.target.Submit(ctx)
		if result.Err != nil {
			slog.Error("Scan submission failed", "error", result.Err, "message", capture.UserMessage(result.Err))
			if err := w.target.Discard(); err != nil {
				slog.Warn("Failed to discard staged scans", "error", err)
			} else {
				slog.Info("Dropped failed batch; drop the files again to retry", "files", batch)
			}
		}
	}
	if w.onResult != nil {
		w.onResult(result)
	}
}

func skipName(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") || strings.HasSuffix(strings.ToLower(base), ".tmp")
}

func contains(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}
