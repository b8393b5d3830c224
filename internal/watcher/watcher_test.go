package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ShayCichocki/hive/internal/agentdir"
)

func setupWatcher(t *testing.T, opts ...Option) (*InboxWatcher, string) {
	t.Helper()
	resolver := agentdir.NewResolver(t.TempDir())
	w, err := NewInboxWatcher(resolver, "worker", opts...)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	t.Cleanup(w.Close)
	return w, w.Dir()
}

func writeMessage(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("---\nid: \"x\"\n---\n\n\nhello"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func waitForEvent(t *testing.T, w *InboxWatcher) string {
	t.Helper()
	select {
	case path, ok := <-w.Events():
		if !ok {
			t.Fatal("event channel closed early")
		}
		return path
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for inbox event")
		return ""
	}
}

func TestInboxWatcher_EmitsNewMessages(t *testing.T) {
	w, dir := setupWatcher(t)

	want := writeMessage(t, dir, "msg-1.md")
	if got := waitForEvent(t, w); got != want {
		t.Errorf("event = %q, want %q", got, want)
	}
}

func TestInboxWatcher_IgnoresPreexisting(t *testing.T) {
	resolver := agentdir.NewResolver(t.TempDir())
	dir := resolver.InboxDir("worker", false)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeMessage(t, dir, "old.md")

	w, err := NewInboxWatcher(resolver, "worker")
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	t.Cleanup(w.Close)

	want := writeMessage(t, dir, "new.md")
	if got := waitForEvent(t, w); got != want {
		t.Errorf("event = %q, want %q (old.md must not replay)", got, want)
	}
}

func TestInboxWatcher_CloseEndsStream(t *testing.T) {
	w, _ := setupWatcher(t)
	w.Close()

	select {
	case _, ok := <-w.Events():
		if ok {
			t.Error("got event after close")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("event channel did not close")
	}
}

func TestScan_ReturnsOnlyUnseen(t *testing.T) {
	resolver := agentdir.NewResolver(t.TempDir())
	dir := resolver.InboxDir("worker", false)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	w := &InboxWatcher{dir: dir, seen: map[string]struct{}{}}
	if fresh := w.scan(); len(fresh) != 0 {
		t.Errorf("empty inbox scan = %v, want none", fresh)
	}

	writeMessage(t, dir, "a.md")
	writeMessage(t, dir, "b.md")
	writeMessage(t, dir, "ignored.tmp")
	if fresh := w.scan(); len(fresh) != 2 {
		t.Errorf("scan = %v, want the two markdown files", fresh)
	}
	if fresh := w.scan(); len(fresh) != 0 {
		t.Errorf("rescan = %v, want none", fresh)
	}

	writeMessage(t, dir, "c.md")
	fresh := w.scan()
	if len(fresh) != 1 || filepath.Base(fresh[0]) != "c.md" {
		t.Errorf("scan = %v, want just c.md", fresh)
	}
}
