package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a burst of events is emitted.
const DefaultDebounce = 500 * time.Millisecond

// Watcher monitors one file and emits a single event per burst of changes.
// The parent directory is watched so editors that replace the file by rename
// keep being tracked.
type Watcher struct {
	watcher       *fsnotify.Watcher
	file          string
	debounce      time.Duration
	debounceTimer *time.Timer
	debounceMutex sync.Mutex
	stopOnce      sync.Once
	stopChan      chan struct{}
	eventChan     chan<- FileEvent
}

// NewWatcher creates a file watcher sending to eventChan.
func NewWatcher(eventChan chan<- FileEvent, debounce time.Duration) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		watcher:   watcher,
		debounce:  debounce,
		eventChan: eventChan,
		stopChan:  make(chan struct{}),
	}, nil
}

// Start begins watching file until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context, file string) error {
	abs, err := filepath.Abs(file)
	if err != nil {
		return err
	}
	w.file = abs
	if err := w.watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	slog.Info("Started file watcher", "path", abs)
	go w.watchLoop(ctx)
	return nil
}

// Stop stops the file watcher
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
		w.debounceMutex.Lock()
		if w.debounceTimer != nil {
			w.debounceTimer.Stop()
			w.debounceTimer = nil
		}
		w.debounceMutex.Unlock()
		w.watcher.Close()
	})
}

// watchLoop processes file system events
func (w *Watcher) watchLoop(ctx context.Context) {
	defer w.Stop()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", "error", err)

		case <-w.stopChan:
			return

		case <-ctx.Done():
			return
		}
	}
}

// handleEvent debounces events concerning the watched file.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.file || event.Op == fsnotify.Chmod {
		return
	}
	kind := eventType(event.Op)

	w.debounceMutex.Lock()
	defer w.debounceMutex.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounce, func() {
		w.emit(kind)
	})
}

func (w *Watcher) emit(kind FileEventType) {
	event := FileEvent{Path: w.file, EventType: kind, Timestamp: time.Now()}
	select {
	case w.eventChan <- event:
		slog.Debug("Emitted file event after debounce", "path", event.Path, "type", kind)
	case <-w.stopChan:
	default:
		slog.Warn("Event channel full, dropping file event", "path", event.Path)
	}
}
