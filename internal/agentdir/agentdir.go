// Package agentdir derives the on-disk layout for agents. It is pure
// path math: nothing here touches the filesystem, so callers decide
// when directories come into existence.
package agentdir

import "path/filepath"

// Resolver derives agent paths under a base data directory.
type Resolver struct {
	baseDir string
}

// NewResolver returns a resolver rooted at baseDir.
func NewResolver(baseDir string) *Resolver {
	return &Resolver{baseDir: baseDir}
}

// BaseDir returns the configured data directory.
func (r *Resolver) BaseDir() string { return r.baseDir }

// AgentsRoot returns the directory holding all agent trees.
func (r *Resolver) AgentsRoot() string {
	return filepath.Join(r.baseDir, "agents")
}

// AgentDir returns the root of one agent's tree.
func (r *Resolver) AgentDir(agentID string) string {
	return filepath.Join(r.baseDir, "agents", agentID)
}

// ConfigPath returns the agent's config.json.
func (r *Resolver) ConfigPath(agentID string) string {
	return filepath.Join(r.AgentDir(agentID), "config.json")
}

// SchedulePath returns the agent's schedule.json.
func (r *Resolver) SchedulePath(agentID string) string {
	return filepath.Join(r.AgentDir(agentID), "schedule.json")
}

// MetadataPath returns the agent's metadata.json.
func (r *Resolver) MetadataPath(agentID string) string {
	return filepath.Join(r.AgentDir(agentID), "metadata.json")
}

// ReadmePath returns the agent's README.md.
func (r *Resolver) ReadmePath(agentID string) string {
	return filepath.Join(r.AgentDir(agentID), "README.md")
}

// SubordinatesRegistryPath returns subordinates/registry.json.
func (r *Resolver) SubordinatesRegistryPath(agentID string) string {
	return filepath.Join(r.AgentDir(agentID), "subordinates", "registry.json")
}

// TasksDir returns one of tasks/{active,completed,archive}.
func (r *Resolver) TasksDir(agentID, state string) string {
	return filepath.Join(r.AgentDir(agentID), "tasks", state)
}

// InboxDir returns inbox/unread or inbox/read.
func (r *Resolver) InboxDir(agentID string, read bool) string {
	sub := "unread"
	if read {
		sub = "read"
	}
	return filepath.Join(r.AgentDir(agentID), "inbox", sub)
}

// OutboxDir returns outbox/pending or outbox/sent.
func (r *Resolver) OutboxDir(agentID string, sent bool) string {
	sub := "pending"
	if sent {
		sub = "sent"
	}
	return filepath.Join(r.AgentDir(agentID), "outbox", sub)
}

// WorkspaceDir returns a workspace subdirectory such as "notes".
func (r *Resolver) WorkspaceDir(agentID, sub string) string {
	return filepath.Join(r.AgentDir(agentID), "workspace", sub)
}

// ScaffoldDirs lists every directory hire creates for a new agent,
// relative ordering stable for tests.
func (r *Resolver) ScaffoldDirs(agentID string) []string {
	return []string{
		r.TasksDir(agentID, "active"),
		r.TasksDir(agentID, "completed"),
		r.TasksDir(agentID, "archive"),
		r.InboxDir(agentID, false),
		r.InboxDir(agentID, true),
		r.OutboxDir(agentID, false),
		r.OutboxDir(agentID, true),
		filepath.Join(r.AgentDir(agentID), "subordinates"),
		r.WorkspaceDir(agentID, "notes"),
		r.WorkspaceDir(agentID, "research"),
		r.WorkspaceDir(agentID, "drafts"),
		r.WorkspaceDir(agentID, "cache"),
	}
}
