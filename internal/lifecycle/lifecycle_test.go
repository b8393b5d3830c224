package lifecycle

import (
	"path/filepath"
	"testing"

	"github.com/ShayCichocki/hive/internal/agentconfig"
	"github.com/ShayCichocki/hive/internal/agentdir"
	"github.com/ShayCichocki/hive/internal/store"
	"github.com/ShayCichocki/hive/internal/taskengine"
	"github.com/ShayCichocki/hive/pkg/models"
)

func setupOrchestrator(t *testing.T, opts ...Option) (*Orchestrator, *store.DB) {
	t.Helper()
	base := t.TempDir()
	db, err := store.Open(filepath.Join(base, "hive.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(db, agentdir.NewResolver(base), opts...), db
}

func testConfig(t *testing.T, id, role string, mutate func(*agentconfig.AgentConfig)) *agentconfig.AgentConfig {
	t.Helper()
	cfg, err := agentconfig.GenerateDefault(role, "keep the hive productive", "system", nil)
	if err != nil {
		t.Fatalf("generate config: %v", err)
	}
	cfg.Identity.ID = id
	if mutate != nil {
		mutate(cfg)
	}
	return cfg
}

// managerConfig returns a config allowed to hire.
func managerConfig(t *testing.T, id string, maxSubs, budget int) *agentconfig.AgentConfig {
	t.Helper()
	return testConfig(t, id, "manager", func(c *agentconfig.AgentConfig) {
		c.Permissions.CanHire = true
		c.Permissions.MaxSubordinates = maxSubs
		c.Permissions.HiringBudget = budget
	})
}

func mustHire(t *testing.T, o *Orchestrator, managerID *string, cfg *agentconfig.AgentConfig) *HireResult {
	t.Helper()
	res, err := o.HireAgent(managerID, cfg)
	if err != nil {
		t.Fatalf("hire %s: %v", cfg.Identity.ID, err)
	}
	return res
}

func mustCreateTask(t *testing.T, o *Orchestrator, input taskengine.CreateTaskInput) *models.Task {
	t.Helper()
	task, err := o.Engine().CreateTask(input)
	if err != nil {
		t.Fatalf("create task %q: %v", input.Title, err)
	}
	return task
}

// auditEvents returns matching audit rows, newest first.
func auditEvents(t *testing.T, db *store.DB, action models.AuditAction) []*models.AuditEvent {
	t.Helper()
	events, err := db.ListAuditEvents(store.AuditFilter{Action: action})
	if err != nil {
		t.Fatalf("list audit events: %v", err)
	}
	return events
}

// inboxBySubject returns the first inbox message with the subject, or
// nil when none landed.
func inboxBySubject(t *testing.T, o *Orchestrator, agentID, subject string) *models.Message {
	t.Helper()
	msgs, err := o.Messages().ListInbox(agentID, false)
	if err != nil {
		t.Fatalf("list inbox for %s: %v", agentID, err)
	}
	for _, m := range msgs {
		if m.Subject == subject {
			return m
		}
	}
	return nil
}

func strPtr(s string) *string { return &s }
