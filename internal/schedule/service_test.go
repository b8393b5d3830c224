package schedule

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ShayCichocki/hive/internal/errdefs"
	"github.com/ShayCichocki/hive/internal/store"
	"github.com/ShayCichocki/hive/pkg/models"
)

func setupService(t *testing.T) (*Service, *store.DB) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "hive.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	err = db.CreateAgent(&models.Agent{
		ID:          "worker",
		Role:        "worker",
		DisplayName: "worker",
		CreatedAt:   time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		CreatedBy:   "system",
		Status:      models.AgentStatusActive,
	})
	if err != nil {
		t.Fatalf("seed agent: %v", err)
	}
	return NewService(db), db
}

func TestCreate_CronComputesNextExecution(t *testing.T) {
	svc, _ := setupService(t)

	sched, err := svc.Create(CreateInput{
		AgentID:        "worker",
		TriggerType:    models.TriggerCron,
		CronExpression: "0 9 * * 1-5",
		Description:    "weekday mornings",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sched.ID == "" {
		t.Error("schedule has no generated id")
	}
	if !sched.Enabled {
		t.Error("schedule not enabled at creation")
	}
	if sched.NextExecutionAt == nil {
		t.Fatal("cron schedule has no next execution")
	}
	next := *sched.NextExecutionAt
	if !next.After(time.Now().UTC().Add(-time.Minute)) {
		t.Errorf("next execution %v is in the past", next)
	}
	if next.Hour() != 9 || next.Minute() != 0 {
		t.Errorf("next execution = %v, want a 09:00 tick", next)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := setupService(t)

	tests := []struct {
		name  string
		input CreateInput
		check func(error) bool
		want  string
	}{
		{"missing agent id", CreateInput{TriggerType: models.TriggerCron, CronExpression: "* * * * *"},
			errdefs.IsSchemaInvalid, "SCHEMA_INVALID"},
		{"bad trigger", CreateInput{AgentID: "worker", TriggerType: "sometimes"},
			errdefs.IsSchemaInvalid, "SCHEMA_INVALID"},
		{"unknown agent", CreateInput{AgentID: "ghost", TriggerType: models.TriggerReactive},
			errdefs.IsNotFound, "NOT_FOUND"},
		{"bad cron expression", CreateInput{AgentID: "worker", TriggerType: models.TriggerCron, CronExpression: "not cron"},
			errdefs.IsSchemaInvalid, "SCHEMA_INVALID"},
		{"continuous without interval", CreateInput{AgentID: "worker", TriggerType: models.TriggerContinuous},
			errdefs.IsSchemaInvalid, "SCHEMA_INVALID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(tt.input); !tt.check(err) {
				t.Errorf("got %v, want %s", err, tt.want)
			}
		})
	}
}

func TestDue(t *testing.T) {
	svc, _ := setupService(t)
	now := time.Now().UTC()

	// Reactive: never due.
	if _, err := svc.Create(CreateInput{ID: "sched-reactive", AgentID: "worker", TriggerType: models.TriggerReactive}); err != nil {
		t.Fatalf("create reactive: %v", err)
	}
	// Continuous, never run: due immediately.
	if _, err := svc.Create(CreateInput{
		ID: "sched-cont", AgentID: "worker",
		TriggerType: models.TriggerContinuous, MinimumIntervalSeconds: 600,
	}); err != nil {
		t.Fatalf("create continuous: %v", err)
	}
	// Cron: next execution is in the future at creation.
	if _, err := svc.Create(CreateInput{
		ID: "sched-cron", AgentID: "worker",
		TriggerType: models.TriggerCron, CronExpression: "*/5 * * * *",
	}); err != nil {
		t.Fatalf("create cron: %v", err)
	}

	due, err := svc.Due(now)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(due) != 1 || due[0].ID != "sched-cont" {
		t.Fatalf("due = %v, want only the never-run continuous schedule", ids(due))
	}

	// After a run, the continuous schedule waits out its interval.
	if err := svc.MarkTriggered("sched-cont", now); err != nil {
		t.Fatalf("mark triggered: %v", err)
	}
	due, err = svc.Due(now.Add(time.Minute))
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if contains(ids(due), "sched-cont") {
		t.Errorf("continuous schedule due again right after its run: %v", ids(due))
	}
	due, err = svc.Due(now.Add(11 * time.Minute))
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if !contains(ids(due), "sched-cont") {
		t.Errorf("due after interval = %v, want the continuous schedule", ids(due))
	}

	// The cron schedule comes due once its tick passes.
	cron, err := svc.Get("sched-cron")
	if err != nil {
		t.Fatalf("get cron: %v", err)
	}
	after := cron.NextExecutionAt.Add(time.Second)
	due, err = svc.Due(after)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if !contains(ids(due), "sched-cron") {
		t.Errorf("due at %v = %v, want the cron schedule", after, ids(due))
	}
}

func TestMarkTriggered_RecomputesCronNext(t *testing.T) {
	svc, _ := setupService(t)
	created, err := svc.Create(CreateInput{
		AgentID: "worker", TriggerType: models.TriggerCron, CronExpression: "0 * * * *",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	first := *created.NextExecutionAt

	if err := svc.MarkTriggered(created.ID, first); err != nil {
		t.Fatalf("mark triggered: %v", err)
	}
	got, err := svc.Get(created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LastTriggeredAt == nil || !got.LastTriggeredAt.Equal(first) {
		t.Errorf("lastTriggeredAt = %v, want %v", got.LastTriggeredAt, first)
	}
	if got.NextExecutionAt == nil || !got.NextExecutionAt.After(first) {
		t.Errorf("nextExecutionAt = %v, want after %v", got.NextExecutionAt, first)
	}

	if err := svc.MarkTriggered("sched-missing", first); !errdefs.IsNotFound(err) {
		t.Errorf("mark missing = %v, want NOT_FOUND", err)
	}
}

func TestSetEnabled(t *testing.T) {
	svc, _ := setupService(t)
	created, err := svc.Create(CreateInput{
		AgentID: "worker", TriggerType: models.TriggerContinuous, MinimumIntervalSeconds: 60,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.SetEnabled(created.ID, false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	due, err := svc.Due(time.Now().UTC())
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("disabled schedule still due: %v", ids(due))
	}

	if err := svc.SetEnabled("sched-missing", true); !errdefs.IsNotFound(err) {
		t.Errorf("enable missing = %v, want NOT_FOUND", err)
	}
}

func ids(scheds []*models.Schedule) []string {
	var out []string
	for _, s := range scheds {
		out = append(out, s.ID)
	}
	return out
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
