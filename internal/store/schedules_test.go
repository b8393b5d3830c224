package store

import (
	"testing"
	"time"

	"github.com/ShayCichocki/hive/pkg/models"
)

func seedSchedule(t *testing.T, db *DB, id, agentID string, trigger models.TriggerType, enabled bool) *models.Schedule {
	t.Helper()
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	s := &models.Schedule{
		ID:          id,
		AgentID:     agentID,
		TriggerType: trigger,
		Description: "check the queue",
		Enabled:     enabled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if trigger == models.TriggerCron {
		s.CronExpression = "*/15 * * * *"
		s.Timezone = "UTC"
	}
	if err := db.CreateSchedule(s); err != nil {
		t.Fatalf("failed to seed schedule %s: %v", id, err)
	}
	return s
}

func TestCreateSchedule_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	seedAgent(t, db, "ceo", "CEO", nil)
	seedSchedule(t, db, "sched-1", "ceo", models.TriggerCron, true)

	got, err := db.GetSchedule("sched-1")
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}
	if got == nil {
		t.Fatal("GetSchedule returned nil")
	}
	if got.TriggerType != models.TriggerCron {
		t.Errorf("trigger_type = %q, want cron", got.TriggerType)
	}
	if got.CronExpression != "*/15 * * * *" {
		t.Errorf("cron_expression = %q, want */15 * * * *", got.CronExpression)
	}
	if !got.Enabled {
		t.Error("enabled = false, want true")
	}
	if got.LastTriggeredAt != nil {
		t.Errorf("last_triggered_at = %v, want nil", got.LastTriggeredAt)
	}
}

func TestGetSchedule_Missing(t *testing.T) {
	db := setupTestDB(t)

	got, err := db.GetSchedule("sched-missing")
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}
	if got != nil {
		t.Errorf("GetSchedule = %+v, want nil", got)
	}
}

func TestListEnabledSchedules(t *testing.T) {
	db := setupTestDB(t)
	ceo := seedAgent(t, db, "ceo", "CEO", nil)
	seedAgent(t, db, "dev", "Developer", &ceo.ID)
	seedSchedule(t, db, "sched-1", "ceo", models.TriggerContinuous, true)
	seedSchedule(t, db, "sched-2", "dev", models.TriggerCron, true)
	seedSchedule(t, db, "sched-3", "dev", models.TriggerReactive, false)

	enabled, err := db.ListEnabledSchedules()
	if err != nil {
		t.Fatalf("ListEnabledSchedules: %v", err)
	}
	if len(enabled) != 2 {
		t.Fatalf("enabled schedules = %d, want 2", len(enabled))
	}
	for _, s := range enabled {
		if s.ID == "sched-3" {
			t.Error("disabled schedule returned")
		}
	}
}

func TestMarkScheduleTriggered(t *testing.T) {
	db := setupTestDB(t)
	seedAgent(t, db, "ceo", "CEO", nil)
	seedSchedule(t, db, "sched-1", "ceo", models.TriggerCron, true)

	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	next := at.Add(15 * time.Minute)
	if err := db.MarkScheduleTriggered("sched-1", at, &next); err != nil {
		t.Fatalf("MarkScheduleTriggered: %v", err)
	}

	got, _ := db.GetSchedule("sched-1")
	if got.LastTriggeredAt == nil || !got.LastTriggeredAt.Equal(at) {
		t.Errorf("last_triggered_at = %v, want %v", got.LastTriggeredAt, at)
	}
	if got.NextExecutionAt == nil || !got.NextExecutionAt.Equal(next) {
		t.Errorf("next_execution_at = %v, want %v", got.NextExecutionAt, next)
	}
}

func TestMarkScheduleTriggered_Missing(t *testing.T) {
	db := setupTestDB(t)

	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	if err := db.MarkScheduleTriggered("sched-missing", at, nil); err == nil {
		t.Error("MarkScheduleTriggered succeeded for missing schedule")
	}
}

func TestSetScheduleEnabled(t *testing.T) {
	db := setupTestDB(t)
	seedAgent(t, db, "ceo", "CEO", nil)
	seedSchedule(t, db, "sched-1", "ceo", models.TriggerCron, true)

	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	if err := db.SetScheduleEnabled("sched-1", false, now); err != nil {
		t.Fatalf("SetScheduleEnabled: %v", err)
	}

	got, _ := db.GetSchedule("sched-1")
	if got.Enabled {
		t.Error("enabled = true, want false")
	}

	enabled, err := db.ListEnabledSchedules()
	if err != nil {
		t.Fatalf("ListEnabledSchedules: %v", err)
	}
	if len(enabled) != 0 {
		t.Errorf("enabled schedules = %d, want 0", len(enabled))
	}
}
