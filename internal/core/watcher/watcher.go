// Package watcher drives the sync engine from file-system events: an
// initial full walk of the projects directory, then real-time processing of
// changed session logs.
package watcher

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"memsqlite/internal/core/engine"
)

// Watcher syncs session logs under watchPath as they change
type Watcher struct {
	engine    *engine.Engine
	watcher   *fsnotify.Watcher
	watchPath string
}

// New creates a watcher over watchPath, which must exist
func New(eng *engine.Engine, watchPath string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if _, err := os.Stat(watchPath); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch path does not exist: %s", watchPath)
	}

	return &Watcher{engine: eng, watcher: fw, watchPath: watchPath}, nil
}

// SyncAll walks the watch path and processes every session log once.
// Per-file failures are logged and skipped; the walk continues.
func (w *Watcher) SyncAll() error {
	return filepath.Walk(w.watchPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".jsonl" {
			return nil
		}

		result, err := w.engine.ProcessFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to process %s: %v\n", path, err)
			return nil
		}

		logResult(path, result)
		return nil
	})
}

// Start performs an initial full sync, then blocks processing file events
// until ctx is cancelled
func (w *Watcher) Start(ctx context.Context) error {
	log.Printf("Sync daemon starting, watching %s", w.watchPath)

	if err := w.setupWatches(); err != nil {
		return fmt.Errorf("failed to setup watches: %w", err)
	}

	log.Printf("Performing initial sync...")
	if err := w.SyncAll(); err != nil {
		log.Printf("Warning: initial sync failed: %v", err)
	} else {
		log.Printf("Initial sync complete")
	}

	for {
		select {
		case <-ctx.Done():
			log.Printf("Daemon shutting down...")
			return w.watcher.Close()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed unexpectedly")
			}
			if w.shouldProcess(event) {
				w.handleEvent(event)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			log.Printf("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) setupWatches() error {
	return filepath.Walk(w.watchPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
		}
		return nil
	})
}

func (w *Watcher) shouldProcess(event fsnotify.Event) bool {
	if !strings.HasSuffix(event.Name, ".jsonl") {
		return false
	}
	return event.Op&fsnotify.Write == fsnotify.Write ||
		event.Op&fsnotify.Create == fsnotify.Create
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Give the file a moment to finish writing
	time.Sleep(100 * time.Millisecond)

	result, err := w.engine.ProcessFile(event.Name)
	if err != nil {
		log.Printf("Error syncing %s: %v", event.Name, err)
		return
	}

	logResult(event.Name, result)
}

func logResult(path string, result *engine.Result) {
	if result.Inserted == 0 && len(result.Errors) == 0 {
		return
	}

	log.Printf("Synced %d messages from %s", result.Inserted, filepath.Base(path))
	for i, err := range result.Errors {
		if i >= 3 {
			log.Printf("  ... %d more errors", len(result.Errors)-3)
			break
		}
		log.Printf("  error: %v", err)
	}
}
