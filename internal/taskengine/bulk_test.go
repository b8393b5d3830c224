package taskengine

import (
	"testing"

	"github.com/ShayCichocki/hive/pkg/models"
)

func TestBlockAgentTasks(t *testing.T) {
	eng, db := setupEngine(t)
	seedAgent(t, db, "dev", nil)
	seedEngineTask(t, db, "task-1-pending", "dev", nil)
	seedEngineTask(t, db, "task-2-running", "dev", func(task *models.Task) {
		task.Status = models.TaskStatusInProgress
	})
	seedEngineTask(t, db, "task-3-stuck", "dev", func(task *models.Task) {
		task.Status = models.TaskStatusBlocked
		task.BlockedSince = &engineBase
	})
	seedEngineTask(t, db, "task-4-done", "dev", func(task *models.Task) {
		task.Status = models.TaskStatusCompleted
	})

	sweep, err := eng.BlockAgentTasks("dev")
	if err != nil {
		t.Fatalf("BlockAgentTasks: %v", err)
	}
	if sweep.TotalTasks != 3 {
		t.Errorf("TotalTasks = %d, want 3", sweep.TotalTasks)
	}
	if sweep.Blocked != 2 {
		t.Errorf("Blocked = %d, want 2", sweep.Blocked)
	}
	if sweep.AlreadyBlocked != 1 {
		t.Errorf("AlreadyBlocked = %d, want 1", sweep.AlreadyBlocked)
	}
	if len(sweep.Errors) != 0 {
		t.Errorf("Errors = %v, want none", sweep.Errors)
	}

	for _, id := range []string{"task-1-pending", "task-2-running", "task-3-stuck"} {
		got, err := db.GetTask(id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if got.Status != models.TaskStatusBlocked {
			t.Errorf("%s status = %q, want blocked", id, got.Status)
		}
		if got.BlockedSince == nil {
			t.Errorf("%s has no BlockedSince", id)
		}
	}
	done, _ := db.GetTask("task-4-done")
	if done.Status != models.TaskStatusCompleted {
		t.Errorf("completed task status = %q, want untouched", done.Status)
	}
}

func TestBlockAgentTasks_Empty(t *testing.T) {
	eng, db := setupEngine(t)
	seedAgent(t, db, "dev", nil)

	sweep, err := eng.BlockAgentTasks("dev")
	if err != nil {
		t.Fatalf("BlockAgentTasks: %v", err)
	}
	if sweep.TotalTasks != 0 || sweep.Blocked != 0 || sweep.AlreadyBlocked != 0 {
		t.Errorf("sweep = %+v, want all zeros", sweep)
	}
}

func TestUnblockAgentTasks(t *testing.T) {
	eng, db := setupEngine(t)
	seedAgent(t, db, "dev", nil)
	seedEngineTask(t, db, "task-1-live", "dev", nil)
	seedEngineTask(t, db, "task-2-done", "dev", func(task *models.Task) {
		task.Status = models.TaskStatusCompleted
	})
	blocked := func(blockers ...string) func(*models.Task) {
		return func(task *models.Task) {
			task.Status = models.TaskStatusBlocked
			task.BlockedSince = &engineBase
			task.BlockedBy = blockers
		}
	}
	seedEngineTask(t, db, "task-3-held", "dev", blocked("task-1-live"))
	seedEngineTask(t, db, "task-4-free", "dev", blocked("task-2-done"))
	seedEngineTask(t, db, "task-5-ghost", "dev", blocked("task-0-none"))
	seedEngineTask(t, db, "task-6-paused", "dev", blocked())

	sweep, err := eng.UnblockAgentTasks("dev")
	if err != nil {
		t.Fatalf("UnblockAgentTasks: %v", err)
	}
	if sweep.TotalTasks != 4 {
		t.Errorf("TotalTasks = %d, want 4", sweep.TotalTasks)
	}
	if sweep.Unblocked != 3 {
		t.Errorf("Unblocked = %d, want 3", sweep.Unblocked)
	}
	if sweep.StillBlocked != 1 {
		t.Errorf("StillBlocked = %d, want 1", sweep.StillBlocked)
	}
	if len(sweep.Errors) != 0 {
		t.Errorf("Errors = %v, want none", sweep.Errors)
	}

	held, _ := db.GetTask("task-3-held")
	if held.Status != models.TaskStatusBlocked {
		t.Errorf("task with live blocker status = %q, want blocked", held.Status)
	}
	for _, id := range []string{"task-4-free", "task-5-ghost", "task-6-paused"} {
		got, err := db.GetTask(id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if got.Status != models.TaskStatusPending {
			t.Errorf("%s status = %q, want pending", id, got.Status)
		}
		if got.BlockedSince != nil {
			t.Errorf("%s still has BlockedSince", id)
		}
	}
}
