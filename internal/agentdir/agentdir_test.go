package agentdir

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestResolver_Paths(t *testing.T) {
	r := NewResolver("/data")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"agent dir", r.AgentDir("ceo"), "/data/agents/ceo"},
		{"config", r.ConfigPath("ceo"), "/data/agents/ceo/config.json"},
		{"schedule", r.SchedulePath("ceo"), "/data/agents/ceo/schedule.json"},
		{"metadata", r.MetadataPath("ceo"), "/data/agents/ceo/metadata.json"},
		{"readme", r.ReadmePath("ceo"), "/data/agents/ceo/README.md"},
		{"subordinates registry", r.SubordinatesRegistryPath("ceo"), "/data/agents/ceo/subordinates/registry.json"},
		{"active tasks", r.TasksDir("ceo", "active"), "/data/agents/ceo/tasks/active"},
		{"unread inbox", r.InboxDir("ceo", false), "/data/agents/ceo/inbox/unread"},
		{"read inbox", r.InboxDir("ceo", true), "/data/agents/ceo/inbox/read"},
		{"pending outbox", r.OutboxDir("ceo", false), "/data/agents/ceo/outbox/pending"},
		{"sent outbox", r.OutboxDir("ceo", true), "/data/agents/ceo/outbox/sent"},
		{"workspace notes", r.WorkspaceDir("ceo", "notes"), "/data/agents/ceo/workspace/notes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != filepath.FromSlash(tt.want) {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestResolver_ScaffoldDirs(t *testing.T) {
	r := NewResolver("/data")
	dirs := r.ScaffoldDirs("dev-1")

	if len(dirs) != 12 {
		t.Fatalf("ScaffoldDirs returned %d dirs, want 12", len(dirs))
	}

	wantSuffixes := []string{
		"tasks/active", "tasks/completed", "tasks/archive",
		"inbox/unread", "inbox/read",
		"outbox/pending", "outbox/sent",
		"subordinates",
		"workspace/notes", "workspace/research", "workspace/drafts", "workspace/cache",
	}
	for i, suffix := range wantSuffixes {
		want := filepath.FromSlash(suffix)
		if !strings.HasSuffix(dirs[i], want) {
			t.Errorf("dirs[%d] = %q, want suffix %q", i, dirs[i], want)
		}
		if !strings.Contains(dirs[i], filepath.FromSlash("agents/dev-1")) {
			t.Errorf("dirs[%d] = %q should live under the agent dir", i, dirs[i])
		}
	}
}

func TestResolver_NeverTouchesDisk(t *testing.T) {
	// Paths for agents that do not exist resolve fine; creation is the
	// caller's job.
	r := NewResolver(t.TempDir())
	if p := r.ConfigPath("ghost"); p == "" {
		t.Error("ConfigPath should derive a path for any id")
	}
}
