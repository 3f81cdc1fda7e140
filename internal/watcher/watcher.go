// Package watcher turns filesystem notifications for the content directory
// into debounced, typed change events.
//
// Raw fsnotify events are filtered, converted to ChangeEvents and pushed onto
// a single channel. The debouncer coalesces bursts per path and emits a batch
// ordered by each path's most recent event, so a rename (old name first, new
// name second) is always delivered in that order. One processing loop hands
// every batch to the registered handlers and logs the failed results.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/conneroisu/quill/internal/errors"
	"github.com/conneroisu/quill/internal/logging"
)

// DefaultDebounce is the delay used when none is configured.
const DefaultDebounce = 100 * time.Millisecond

// FileWatcher watches for file changes with debouncing
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	filters   []FileFilter
	handlers  []ChangeHandler
	logger    logging.Logger
	mutex     sync.RWMutex
	stopOnce  sync.Once
}

// ChangeEvent represents a file change event
type ChangeEvent struct {
	Type    EventType
	Path    string
	ModTime time.Time
	Size    int64
}

// EventType represents the type of file change
type EventType int

const (
	EventTypeCreated EventType = iota
	EventTypeModified
	EventTypeDeleted
	EventTypeRenamed
)

// String returns the string representation of the EventType
func (e EventType) String() string {
	switch e {
	case EventTypeCreated:
		return "created"
	case EventTypeModified:
		return "modified"
	case EventTypeDeleted:
		return "deleted"
	case EventTypeRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Result is the outcome of handling one change event.
type Result struct {
	Event ChangeEvent
	Err   error
}

// FileFilter determines if a file should be watched
type FileFilter func(path string) bool

// ChangeHandler handles a debounced batch of change events. It reports one
// Result per event it acted on.
type ChangeHandler func(ctx context.Context, events []ChangeEvent) []Result

// Debouncer groups rapid file changes together. Batches are flushed from the
// goroutine that collects events, so they reach output in the order their
// windows closed.
type Debouncer struct {
	delay   time.Duration
	events  chan ChangeEvent
	output  chan []ChangeEvent
	done    chan struct{}
	pending []ChangeEvent
	mutex   sync.Mutex
}

// NewFileWatcher creates a new file watcher
func NewFileWatcher(debounceDelay time.Duration, logger logging.Logger) (*FileWatcher, error) {
	if debounceDelay <= 0 {
		debounceDelay = DefaultDebounce
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	debouncer := &Debouncer{
		delay:   debounceDelay,
		events:  make(chan ChangeEvent, 100),
		output:  make(chan []ChangeEvent, 10),
		done:    make(chan struct{}),
		pending: make([]ChangeEvent, 0),
	}

	fw := &FileWatcher{
		watcher:   watcher,
		debouncer: debouncer,
		filters:   make([]FileFilter, 0),
		handlers:  make([]ChangeHandler, 0),
		logger:    logger.WithComponent("watcher"),
	}

	return fw, nil
}

// AddFilter adds a file filter
func (fw *FileWatcher) AddFilter(filter FileFilter) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.filters = append(fw.filters, filter)
}

// AddHandler adds a change handler
func (fw *FileWatcher) AddHandler(handler ChangeHandler) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.handlers = append(fw.handlers, handler)
}

// AddPath watches a directory. Subdirectories are not watched.
func (fw *FileWatcher) AddPath(path string) error {
	return fw.watcher.Add(filepath.Clean(path))
}

// Start starts the file watcher
func (fw *FileWatcher) Start(ctx context.Context) error {
	go fw.debouncer.start(ctx)
	go fw.processEvents(ctx)
	go fw.watchLoop(ctx)

	fw.logger.Info(ctx, "File watcher started", "paths", fw.watcher.WatchList())
	return nil
}

// Stop stops the file watcher and cleans up resources. It is safe to call
// more than once.
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		fw.debouncer.stop()
		err = fw.watcher.Close()
	})
	return err
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleFsnotifyEvent(ctx, event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			// Log error but continue watching
			fw.logger.Warn(ctx, err, "File watcher error")
		}
	}
}

func (fw *FileWatcher) handleFsnotifyEvent(ctx context.Context, event fsnotify.Event) {
	fw.mutex.RLock()
	filters := fw.filters
	fw.mutex.RUnlock()

	for _, filter := range filters {
		if !filter(event.Name) {
			return
		}
	}

	changeEvent := ChangeEvent{
		Type: convertOp(event.Op),
		Path: filepath.Clean(event.Name),
	}
	if info, err := os.Stat(event.Name); err == nil {
		changeEvent.ModTime = info.ModTime()
		changeEvent.Size = info.Size()
	}

	fw.logger.Debug(ctx, "File change detected", "path", changeEvent.Path, "type", changeEvent.Type.String())

	select {
	case fw.debouncer.events <- changeEvent:
	case <-ctx.Done():
	}
}

func convertOp(op fsnotify.Op) EventType {
	switch {
	case op.Has(fsnotify.Create):
		return EventTypeCreated
	case op.Has(fsnotify.Write):
		return EventTypeModified
	case op.Has(fsnotify.Remove):
		return EventTypeDeleted
	case op.Has(fsnotify.Rename):
		return EventTypeRenamed
	default:
		return EventTypeModified
	}
}

func (fw *FileWatcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case events := <-fw.debouncer.output:
			fw.mutex.RLock()
			handlers := fw.handlers
			fw.mutex.RUnlock()

			for _, handler := range handlers {
				for _, result := range handler(ctx, events) {
					if result.Err != nil {
						// Log error but continue processing
						fw.logFailure(ctx, result)
					}
				}
			}
		}
	}
}

func (fw *FileWatcher) logFailure(ctx context.Context, result Result) {
	fields := []interface{}{
		"path", result.Event.Path,
		"type", result.Event.Type.String(),
	}
	details := errors.GetErrorContext(result.Err)
	if code, ok := details["code"]; ok {
		fields = append(fields, "code", code, "error_type", details["type"])
	}
	fw.logger.Warn(ctx, result.Err, "File change handling failed", fields...)
}

func (d *Debouncer) start(ctx context.Context) {
	timer := time.NewTimer(d.delay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			d.stop()
			return
		case <-d.done:
			return
		case event := <-d.events:
			d.addEvent(event)
			timer.Reset(d.delay)
		case <-timer.C:
			d.flush()
		}
	}
}

func (d *Debouncer) stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	select {
	case <-d.done:
	default:
		close(d.done)
	}
}

func (d *Debouncer) addEvent(event ChangeEvent) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.pending = append(d.pending, event)
}

func (d *Debouncer) flush() {
	d.mutex.Lock()
	events := coalesce(d.pending)
	d.pending = d.pending[:0]
	d.mutex.Unlock()

	if len(events) == 0 {
		return
	}

	select {
	case d.output <- events:
	case <-d.done:
	}
}

// coalesce keeps the last event for every path, ordered by where that last
// event occurred.
func coalesce(pending []ChangeEvent) []ChangeEvent {
	last := make(map[string]int, len(pending))
	for i, event := range pending {
		last[event.Path] = i
	}

	events := make([]ChangeEvent, 0, len(last))
	for i, event := range pending {
		if last[event.Path] == i {
			events = append(events, event)
		}
	}
	return events
}

// MarkdownFilter accepts post sources.
func MarkdownFilter(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".md")
}

// NoHiddenFilter rejects dotfiles and editor backups such as ".#post.md" or
// "post.md~".
func NoHiddenFilter(path string) bool {
	base := filepath.Base(path)
	return !strings.HasPrefix(base, ".") && !strings.HasSuffix(base, "~")
}
