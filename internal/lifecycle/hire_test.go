package lifecycle

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ShayCichocki/hive/internal/agentconfig"
	"github.com/ShayCichocki/hive/internal/errdefs"
	"github.com/ShayCichocki/hive/pkg/models"
)

func TestHireAgent_RootLayout(t *testing.T) {
	o, db := setupOrchestrator(t)

	res := mustHire(t, o, nil, managerConfig(t, "queen", 2, 2))
	if res.Agent.Status != models.AgentStatusActive {
		t.Errorf("status = %s, want active", res.Agent.Status)
	}
	if res.Agent.ReportingTo != nil {
		t.Errorf("root agent reports to %q, want nobody", *res.Agent.ReportingTo)
	}

	for _, dir := range o.Resolver().ScaffoldDirs("queen") {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("scaffold dir %s missing: %v", dir, err)
		}
	}

	cfg, err := o.Configs().Load("queen")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Identity.ReportingTo != nil {
		t.Errorf("config reportingTo = %v, want nil", *cfg.Identity.ReportingTo)
	}

	scheds, err := o.Schedules().List("queen")
	if err != nil {
		t.Fatalf("list schedules: %v", err)
	}
	if len(scheds) != 1 || scheds[0].TriggerType != models.TriggerReactive || !scheds[0].Enabled {
		t.Errorf("default schedule = %+v, want one enabled reactive trigger", scheds)
	}
	if _, err := os.Stat(o.Resolver().SchedulePath("queen")); err != nil {
		t.Errorf("schedule.json missing: %v", err)
	}

	rawMeta, err := os.ReadFile(o.Resolver().MetadataPath("queen"))
	if err != nil {
		t.Fatalf("read metadata.json: %v", err)
	}
	for _, want := range []string{`"totalExecutions": 0`, `"totalRuntimeMinutes": 0`, `"lastExecutionAt": null`} {
		if !strings.Contains(string(rawMeta), want) {
			t.Errorf("metadata.json missing %s:\n%s", want, rawMeta)
		}
	}

	reg, err := o.LoadSubordinatesRegistry("queen")
	if err != nil {
		t.Fatalf("load subordinates registry: %v", err)
	}
	if len(reg.Subordinates) != 0 || reg.HiringBudgetRemaining != 2 {
		t.Errorf("registry = %+v, want empty with budget 2", reg)
	}

	if _, err := os.Stat(o.Resolver().ReadmePath("queen")); err != nil {
		t.Errorf("README.md missing: %v", err)
	}

	rows := auditEvents(t, db, models.AuditHire)
	if len(rows) != 1 {
		t.Fatalf("HIRE rows = %d, want 1", len(rows))
	}
	if !rows[0].Success || rows[0].TargetAgentID == nil || *rows[0].TargetAgentID != "queen" {
		t.Errorf("HIRE row = %+v, want success targeting queen", rows[0])
	}
}

func TestHireAgent_UnderManager(t *testing.T) {
	o, db := setupOrchestrator(t)
	mustHire(t, o, nil, managerConfig(t, "queen", 3, 3))

	res := mustHire(t, o, strPtr("queen"), testConfig(t, "drone", "worker", func(c *agentconfig.AgentConfig) {
		// The call decides who the agent reports to, not the document.
		c.Identity.ReportingTo = strPtr("somebody-else")
	}))
	if res.Agent.ReportingTo == nil || *res.Agent.ReportingTo != "queen" {
		t.Errorf("reportingTo = %v, want queen", res.Agent.ReportingTo)
	}

	cfg, err := o.Configs().Load("drone")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Identity.ReportingTo == nil || *cfg.Identity.ReportingTo != "queen" {
		t.Errorf("saved config reportingTo = %v, want forced to queen", cfg.Identity.ReportingTo)
	}

	entry, err := db.GetHierarchyEntry("drone", "queen")
	if err != nil || entry == nil || entry.Depth != 1 {
		t.Errorf("hierarchy entry = %+v, %v; want depth 1", entry, err)
	}

	reg, err := o.LoadSubordinatesRegistry("queen")
	if err != nil {
		t.Fatalf("load subordinates registry: %v", err)
	}
	if len(reg.Subordinates) != 1 || reg.Subordinates[0].AgentID != "drone" {
		t.Fatalf("subordinates = %+v, want one entry for drone", reg.Subordinates)
	}
	if reg.HiringBudgetRemaining != 2 {
		t.Errorf("budget remaining = %d, want 2", reg.HiringBudgetRemaining)
	}

	row := auditEvents(t, db, models.AuditHire)[0]
	if row.AgentID == nil || *row.AgentID != "queen" {
		t.Errorf("HIRE actor = %v, want queen", row.AgentID)
	}
}

func TestHireAgent_SubordinateLimit(t *testing.T) {
	o, _ := setupOrchestrator(t)
	mustHire(t, o, nil, managerConfig(t, "ceo", 2, 2))
	mustHire(t, o, strPtr("ceo"), testConfig(t, "dev-1", "developer", nil))
	mustHire(t, o, strPtr("ceo"), testConfig(t, "dev-2", "developer", nil))

	_, err := o.HireAgent(strPtr("ceo"), testConfig(t, "dev-3", "developer", nil))
	if !errdefs.IsLimitExceeded(err) {
		t.Fatalf("third hire error = %v, want LIMIT_EXCEEDED", err)
	}

	reg, err := o.LoadSubordinatesRegistry("ceo")
	if err != nil {
		t.Fatalf("load subordinates registry: %v", err)
	}
	if len(reg.Subordinates) != 2 {
		t.Errorf("subordinates = %d, want 2", len(reg.Subordinates))
	}
	if reg.HiringBudgetRemaining != 0 {
		t.Errorf("budget remaining = %d, want 0", reg.HiringBudgetRemaining)
	}
}

func TestHireAgent_BudgetExceeded(t *testing.T) {
	o, _ := setupOrchestrator(t)
	mustHire(t, o, nil, managerConfig(t, "lead", 3, 1))
	mustHire(t, o, strPtr("lead"), testConfig(t, "only-child", "worker", nil))

	_, err := o.HireAgent(strPtr("lead"), testConfig(t, "second", "worker", nil))
	if !errdefs.IsBudgetExceeded(err) {
		t.Fatalf("error = %v, want BUDGET_EXCEEDED", err)
	}
}

func TestHireAgent_ValidationErrors(t *testing.T) {
	o, _ := setupOrchestrator(t)
	mustHire(t, o, nil, managerConfig(t, "queen", 5, 5))
	mustHire(t, o, strPtr("queen"), testConfig(t, "worker", "developer", nil))

	tests := []struct {
		name    string
		manager *string
		cfg     *agentconfig.AgentConfig
		check   func(error) bool
		want    string
	}{
		{"duplicate id", strPtr("queen"), testConfig(t, "worker", "developer", nil),
			errdefs.IsConflict, "CONFLICT"},
		{"self hire", strPtr("newbie"), testConfig(t, "newbie", "developer", nil),
			errdefs.IsSelfReference, "SELF_REFERENCE"},
		{"missing manager", strPtr("ghost"), testConfig(t, "orphan", "developer", nil),
			errdefs.IsNotFound, "NOT_FOUND"},
		{"manager cannot hire", strPtr("worker"), testConfig(t, "grunt", "developer", nil),
			errdefs.IsForbidden, "FORBIDDEN"},
		{"root hire with reportingTo", nil, testConfig(t, "stray", "developer", func(c *agentconfig.AgentConfig) {
			c.Identity.ReportingTo = strPtr("queen")
		}), errdefs.IsSchemaInvalid, "SCHEMA_INVALID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := o.HireAgent(tt.manager, tt.cfg); !tt.check(err) {
				t.Errorf("got %v, want %s", err, tt.want)
			}
		})
	}
}

func TestHireAgent_PausedManager(t *testing.T) {
	o, _ := setupOrchestrator(t)
	mustHire(t, o, nil, managerConfig(t, "queen", 5, 5))
	if _, err := o.PauseAgent("queen", nil); err != nil {
		t.Fatalf("pause: %v", err)
	}

	_, err := o.HireAgent(strPtr("queen"), testConfig(t, "late", "developer", nil))
	if !errdefs.IsInvalidState(err) {
		t.Fatalf("error = %v, want INVALID_STATE", err)
	}
}

func TestHireAgent_DepthExceeded(t *testing.T) {
	o, _ := setupOrchestrator(t)

	mustHire(t, o, nil, managerConfig(t, "level-0", 1, 1))
	for level := 1; level <= MaxHierarchyDepth; level++ {
		manager := levelID(level - 1)
		mustHire(t, o, &manager, managerConfig(t, levelID(level), 1, 1))
	}

	deepest := levelID(MaxHierarchyDepth)
	_, err := o.HireAgent(&deepest, managerConfig(t, "level-6", 1, 1))
	if !errdefs.IsDepthExceeded(err) {
		t.Fatalf("error = %v, want DEPTH_EXCEEDED", err)
	}
}

func levelID(level int) string {
	return "level-" + string(rune('0'+level))
}

func TestHireAgent_FSFailureSurfacesHireError(t *testing.T) {
	o, db := setupOrchestrator(t)

	// Wedge the scaffold: a regular file where the tasks directory
	// must go.
	dir := o.Resolver().AgentDir("wedged")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "tasks"), []byte("in the way"), 0o644); err != nil {
		t.Fatalf("write blocker file: %v", err)
	}

	_, err := o.HireAgent(nil, testConfig(t, "wedged", "worker", nil))
	var hireErr *HireError
	if !errors.As(err, &hireErr) {
		t.Fatalf("error = %v, want *HireError", err)
	}
	if hireErr.AgentID != "wedged" {
		t.Errorf("HireError.AgentID = %q, want wedged", hireErr.AgentID)
	}

	// The row committed before the filesystem failed; the error is the
	// remediation handle.
	agent, err := db.GetAgent("wedged")
	if err != nil || agent == nil {
		t.Errorf("agent row = %v, %v; want committed row", agent, err)
	}

	rows := auditEvents(t, db, models.AuditHire)
	if len(rows) != 1 {
		t.Fatalf("HIRE rows = %d, want 1", len(rows))
	}
	if rows[0].Success {
		t.Error("HIRE row marked success after filesystem failure")
	}
	if _, ok := rows[0].Details["error"]; !ok {
		t.Error("failure row has no error detail")
	}
}

func TestRecordExecution_MirrorsMetadata(t *testing.T) {
	o, db := setupOrchestrator(t)
	mustHire(t, o, nil, testConfig(t, "runner", "worker", nil))

	at := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	if err := o.RecordExecution("runner", at, 95*time.Minute); err != nil {
		t.Fatalf("record execution: %v", err)
	}

	agent, err := db.GetAgent("runner")
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	if agent.TotalExecutions != 1 || agent.TotalRuntimeMinutes != 95 {
		t.Errorf("counters = %d executions, %d minutes; want 1, 95",
			agent.TotalExecutions, agent.TotalRuntimeMinutes)
	}

	meta, err := o.LoadMetadata("runner")
	if err != nil {
		t.Fatalf("load metadata: %v", err)
	}
	if meta.TotalExecutions != 1 || meta.TotalRuntimeMinutes != 95 {
		t.Errorf("metadata mirror = %+v, want counters 1, 95", meta)
	}
	if meta.LastExecutionAt == nil || !meta.LastExecutionAt.Equal(at) {
		t.Errorf("lastExecutionAt = %v, want %v", meta.LastExecutionAt, at)
	}
}
