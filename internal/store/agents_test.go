package store

import (
	"testing"
	"time"

	"github.com/ShayCichocki/hive/pkg/models"
)

func TestCreateAgent_SelfHierarchyRow(t *testing.T) {
	db := setupTestDB(t)
	seedAgent(t, db, "ceo", "CEO", nil)

	entry, err := db.GetHierarchyEntry("ceo", "ceo")
	if err != nil {
		t.Fatalf("GetHierarchyEntry: %v", err)
	}
	if entry == nil {
		t.Fatal("self hierarchy row missing")
	}
	if entry.Depth != 0 {
		t.Errorf("self row depth = %d, want 0", entry.Depth)
	}
	if entry.Path != "CEO" {
		t.Errorf("self row path = %q, want CEO", entry.Path)
	}
}

func TestCreateAgent_CopiesAncestorClosure(t *testing.T) {
	db := setupTestDB(t)
	ceo := seedAgent(t, db, "ceo", "CEO", nil)
	seedAgent(t, db, "cto", "CTO", &ceo.ID)
	cto := "cto"
	seedAgent(t, db, "dev", "Developer", &cto)

	entry, err := db.GetHierarchyEntry("dev", "ceo")
	if err != nil {
		t.Fatalf("GetHierarchyEntry: %v", err)
	}
	if entry == nil {
		t.Fatal("closure row (dev, ceo) missing")
	}
	if entry.Depth != 2 {
		t.Errorf("depth = %d, want 2", entry.Depth)
	}
	if entry.Path != "CEO/CTO/Developer" {
		t.Errorf("path = %q, want CEO/CTO/Developer", entry.Path)
	}

	subs, err := db.GetSubordinates("ceo")
	if err != nil {
		t.Fatalf("GetSubordinates: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("subordinates of ceo = %d, want 2", len(subs))
	}
	got := map[string]bool{}
	for _, s := range subs {
		got[s.ID] = true
	}
	if !got["cto"] || !got["dev"] {
		t.Errorf("subordinates = %v, want cto and dev", got)
	}
}

func TestCreateAgent_DuplicateID(t *testing.T) {
	db := setupTestDB(t)
	seedAgent(t, db, "ceo", "CEO", nil)

	dup := &models.Agent{
		ID:        "ceo",
		Role:      "CEO",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 6, 0, time.UTC),
		Status:    models.AgentStatusActive,
	}
	err := db.CreateAgent(dup)
	if err == nil {
		t.Fatal("expected unique violation for duplicate agent id")
	}
	if !IsUniqueViolation(err) {
		t.Errorf("IsUniqueViolation(%v) = false, want true", err)
	}
}

func TestGetAgent_Missing(t *testing.T) {
	db := setupTestDB(t)
	a, err := db.GetAgent("ghost")
	if err != nil {
		t.Fatalf("GetAgent: %v", err)
	}
	if a != nil {
		t.Errorf("GetAgent(ghost) = %+v, want nil", a)
	}
}

func TestGetAgent_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ceo := seedAgent(t, db, "ceo", "CEO", nil)

	got, err := db.GetAgent("ceo")
	if err != nil {
		t.Fatalf("GetAgent: %v", err)
	}
	if got == nil {
		t.Fatal("GetAgent returned nil")
	}
	if got.Role != ceo.Role || got.Status != models.AgentStatusActive {
		t.Errorf("got role=%q status=%q, want role=%q status=active", got.Role, got.Status, ceo.Role)
	}
	if !got.CreatedAt.Equal(ceo.CreatedAt) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, ceo.CreatedAt)
	}
	if got.CreatedBy != "system" {
		t.Errorf("created_by = %q, want system", got.CreatedBy)
	}
	if got.ReportingTo != nil {
		t.Errorf("reporting_to = %v, want nil", *got.ReportingTo)
	}
}

func TestUpdateAgent(t *testing.T) {
	db := setupTestDB(t)
	a := seedAgent(t, db, "ceo", "CEO", nil)

	a.MainGoal = "grow the org"
	a.Status = models.AgentStatusPaused
	if err := db.UpdateAgent(a); err != nil {
		t.Fatalf("UpdateAgent: %v", err)
	}

	got, err := db.GetAgent("ceo")
	if err != nil {
		t.Fatalf("GetAgent: %v", err)
	}
	if got.MainGoal != "grow the org" {
		t.Errorf("main_goal = %q, want updated value", got.MainGoal)
	}
	if got.Status != models.AgentStatusPaused {
		t.Errorf("status = %q, want paused", got.Status)
	}
}

func TestUpdateAgent_Missing(t *testing.T) {
	db := setupTestDB(t)
	err := db.UpdateAgent(&models.Agent{ID: "ghost", Status: models.AgentStatusActive})
	if err == nil {
		t.Error("expected error updating missing agent")
	}
}

func TestSetAgentStatus(t *testing.T) {
	db := setupTestDB(t)
	seedAgent(t, db, "ceo", "CEO", nil)

	n, err := db.SetAgentStatus("ceo", models.AgentStatusPaused)
	if err != nil {
		t.Fatalf("SetAgentStatus: %v", err)
	}
	if n != 1 {
		t.Errorf("rows affected = %d, want 1", n)
	}

	n, err = db.SetAgentStatus("ghost", models.AgentStatusPaused)
	if err != nil {
		t.Fatalf("SetAgentStatus on missing agent: %v", err)
	}
	if n != 0 {
		t.Errorf("rows affected for missing agent = %d, want 0", n)
	}
}

func TestCountDirectReports_ExcludesFired(t *testing.T) {
	db := setupTestDB(t)
	ceo := seedAgent(t, db, "ceo", "CEO", nil)
	seedAgent(t, db, "dev-1", "Developer", &ceo.ID)
	seedAgent(t, db, "dev-2", "Developer", &ceo.ID)

	count, err := db.CountDirectReports("ceo")
	if err != nil {
		t.Fatalf("CountDirectReports: %v", err)
	}
	if count != 2 {
		t.Errorf("direct reports = %d, want 2", count)
	}

	if _, err := db.SetAgentStatus("dev-2", models.AgentStatusFired); err != nil {
		t.Fatalf("fire dev-2: %v", err)
	}
	count, err = db.CountDirectReports("ceo")
	if err != nil {
		t.Fatalf("CountDirectReports: %v", err)
	}
	if count != 1 {
		t.Errorf("direct reports after firing = %d, want 1", count)
	}
}

func TestGetAgentLevel(t *testing.T) {
	db := setupTestDB(t)
	ceo := seedAgent(t, db, "ceo", "CEO", nil)
	seedAgent(t, db, "cto", "CTO", &ceo.ID)
	cto := "cto"
	seedAgent(t, db, "dev", "Developer", &cto)

	tests := []struct {
		agentID string
		want    int
	}{
		{"ceo", 0},
		{"cto", 1},
		{"dev", 2},
	}
	for _, tt := range tests {
		level, err := db.GetAgentLevel(tt.agentID)
		if err != nil {
			t.Fatalf("GetAgentLevel(%s): %v", tt.agentID, err)
		}
		if level != tt.want {
			t.Errorf("level of %s = %d, want %d", tt.agentID, level, tt.want)
		}
	}
}

func TestGetOrgChart(t *testing.T) {
	db := setupTestDB(t)
	ceo := seedAgent(t, db, "ceo", "CEO", nil)
	seedAgent(t, db, "cto", "CTO", &ceo.ID)

	entries, err := db.GetOrgChart()
	if err != nil {
		t.Fatalf("GetOrgChart: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("org chart entries = %d, want 2", len(entries))
	}
	// Roots come first.
	if entries[0].Agent.ID != "ceo" || entries[0].Depth != 0 {
		t.Errorf("first entry = %s depth %d, want ceo depth 0", entries[0].Agent.ID, entries[0].Depth)
	}
	if entries[1].Agent.ID != "cto" || entries[1].Depth != 1 {
		t.Errorf("second entry = %s depth %d, want cto depth 1", entries[1].Agent.ID, entries[1].Depth)
	}
	if entries[1].Path != "CEO/CTO" {
		t.Errorf("cto path = %q, want CEO/CTO", entries[1].Path)
	}
}

func TestGetAncestors(t *testing.T) {
	db := setupTestDB(t)
	ceo := seedAgent(t, db, "ceo", "CEO", nil)
	seedAgent(t, db, "cto", "CTO", &ceo.ID)
	cto := "cto"
	seedAgent(t, db, "dev", "Developer", &cto)

	ancestors, err := db.GetAncestors("dev")
	if err != nil {
		t.Fatalf("GetAncestors: %v", err)
	}
	if len(ancestors) != 2 {
		t.Fatalf("ancestors = %d, want 2", len(ancestors))
	}
	if ancestors[0].AncestorID != "cto" || ancestors[0].Depth != 1 {
		t.Errorf("nearest ancestor = %s depth %d, want cto depth 1", ancestors[0].AncestorID, ancestors[0].Depth)
	}
	if ancestors[1].AncestorID != "ceo" || ancestors[1].Depth != 2 {
		t.Errorf("furthest ancestor = %s depth %d, want ceo depth 2", ancestors[1].AncestorID, ancestors[1].Depth)
	}
}

func TestRecordAgentExecution(t *testing.T) {
	db := setupTestDB(t)
	seedAgent(t, db, "ceo", "CEO", nil)

	at := time.Date(2026, 1, 3, 10, 0, 0, 0, time.UTC)
	if err := db.RecordAgentExecution("ceo", at, 42); err != nil {
		t.Fatalf("RecordAgentExecution: %v", err)
	}
	if err := db.RecordAgentExecution("ceo", at.Add(time.Hour), 8); err != nil {
		t.Fatalf("RecordAgentExecution: %v", err)
	}

	got, err := db.GetAgent("ceo")
	if err != nil {
		t.Fatalf("GetAgent: %v", err)
	}
	if got.TotalExecutions != 2 {
		t.Errorf("total_executions = %d, want 2", got.TotalExecutions)
	}
	if got.TotalRuntimeMinutes != 50 {
		t.Errorf("total_runtime_minutes = %d, want 50", got.TotalRuntimeMinutes)
	}
	if got.LastExecutionAt == nil || !got.LastExecutionAt.Equal(at.Add(time.Hour)) {
		t.Errorf("last_execution_at = %v, want %v", got.LastExecutionAt, at.Add(time.Hour))
	}
}
