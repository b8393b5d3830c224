// Package watcher surfaces new inbox messages as they land. The
// external executor and `hive inbox --watch` consume it instead of
// re-scanning the directory themselves.
package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/ShayCichocki/hive/internal/agentdir"
	"github.com/ShayCichocki/hive/internal/logging"
)

// DefaultPollInterval is the fallback scan cadence when the native
// watcher cannot start.
const DefaultPollInterval = 2 * time.Second

// InboxWatcher emits the path of each message file that appears in an
// agent's unread inbox. Files already present when the watcher starts
// are not emitted.
type InboxWatcher struct {
	dir      string
	events   chan string
	interval time.Duration
	notify   *fsnotify.Watcher
	log      zerolog.Logger

	mu   sync.Mutex
	seen map[string]struct{}

	done      chan struct{}
	closeOnce sync.Once
}

// Option configures an InboxWatcher.
type Option func(*InboxWatcher)

// WithPollInterval sets the fallback scan cadence.
func WithPollInterval(d time.Duration) Option {
	return func(w *InboxWatcher) { w.interval = d }
}

// NewInboxWatcher starts watching the agent's unread inbox. The
// directory is created if missing. When the native watcher cannot
// start, the watcher degrades to polling at the configured interval
// instead of failing.
func NewInboxWatcher(resolver *agentdir.Resolver, agentID string, opts ...Option) (*InboxWatcher, error) {
	dir := resolver.InboxDir(agentID, false)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	w := &InboxWatcher{
		dir:      dir,
		events:   make(chan string, 64),
		interval: DefaultPollInterval,
		seen:     map[string]struct{}{},
		done:     make(chan struct{}),
		log:      logging.WithComponent("watcher"),
	}
	for _, opt := range opts {
		opt(w)
	}

	// Messages already in the inbox are the CLI's job to list; the
	// watcher only reports arrivals.
	w.scan()

	notify, err := fsnotify.NewWatcher()
	if err == nil {
		if addErr := notify.Add(dir); addErr == nil {
			w.notify = notify
			go w.watchLoop()
			return w, nil
		}
		notify.Close()
	}

	w.log.Warn().Err(err).Str("dir", dir).Msg("native watcher unavailable, polling instead")
	go w.pollLoop()
	return w, nil
}

// Events returns the stream of new message paths. The channel is
// closed by Close.
func (w *InboxWatcher) Events() <-chan string { return w.events }

// Dir returns the watched directory.
func (w *InboxWatcher) Dir() string { return w.dir }

// Close stops the watcher and closes the event channel.
func (w *InboxWatcher) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		if w.notify != nil {
			w.notify.Close()
		}
	})
}

func (w *InboxWatcher) watchLoop() {
	defer close(w.events)
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.notify.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.emitIfNew(event.Name)
		case <-w.notify.Errors:
			// Keep watching; the next scan or event will catch up.
		}
	}
}

func (w *InboxWatcher) pollLoop() {
	defer close(w.events)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			for _, path := range w.scan() {
				select {
				case w.events <- path:
				case <-w.done:
					return
				}
			}
		}
	}
}

// scan walks the inbox and returns message files not seen before,
// marking them seen.
func (w *InboxWatcher) scan() []string {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	var fresh []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		if _, ok := w.seen[path]; ok {
			continue
		}
		w.seen[path] = struct{}{}
		fresh = append(fresh, path)
	}
	return fresh
}

func (w *InboxWatcher) emitIfNew(path string) {
	if !strings.HasSuffix(path, ".md") {
		return
	}
	w.mu.Lock()
	_, dup := w.seen[path]
	if !dup {
		w.seen[path] = struct{}{}
	}
	w.mu.Unlock()
	if dup {
		return
	}

	select {
	case w.events <- path:
	default:
		w.log.Warn().Str("path", path).Msg("event buffer full, dropping inbox event")
	}
}
