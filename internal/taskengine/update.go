package taskengine

import (
	"math"
	"time"

	"github.com/ShayCichocki/hive/internal/errdefs"
	"github.com/ShayCichocki/hive/pkg/models"
)

// UpdateTaskStatus transitions a task to the given status under the
// optimistic version guard: the write only lands when expectedVersion
// matches the stored row, otherwise VERSION_MISMATCH is returned and
// the caller must re-fetch. Completing a task with a parent rolls the
// parent chain's progress counters forward. One audit row records the
// attempt, TASK_COMPLETE when the new status is completed and
// TASK_UPDATE otherwise.
func (e *Engine) UpdateTaskStatus(id string, status models.TaskStatus, expectedVersion int) (*models.Task, error) {
	updated, previous, err := e.updateTaskStatus(id, status, expectedVersion)

	action := models.AuditTaskUpdate
	if status == models.TaskStatusCompleted {
		action = models.AuditTaskComplete
	}
	details := map[string]any{"taskId": id, "newStatus": string(status)}
	var actor string
	if previous != nil {
		actor = previous.AgentID
		details["previousStatus"] = string(previous.Status)
	}
	if updated != nil {
		details["version"] = updated.Version
	}
	e.audit(action, actor, nil, err, details)

	if err != nil {
		return nil, err
	}
	if updated.Status == models.TaskStatusCompleted && updated.ParentTaskID != nil {
		e.updateParentProgress(*updated.ParentTaskID)
	}
	return updated, nil
}

func (e *Engine) updateTaskStatus(id string, status models.TaskStatus, expectedVersion int) (updated, previous *models.Task, err error) {
	if !status.Valid() {
		return nil, nil, errdefs.SchemaInvalid("invalid task status %q", status)
	}
	current, err := e.db.GetTask(id)
	if err != nil {
		return nil, nil, err
	}
	if current == nil {
		return nil, nil, errdefs.NotFound("task %s not found", id)
	}

	n, err := e.db.UpdateTaskStatus(id, status, expectedVersion, time.Now().UTC())
	if err != nil {
		return nil, current, err
	}
	if n == 0 {
		return nil, current, errdefs.VersionMismatch(
			"task %s update rejected: expected version %d no longer matches the stored row; re-fetch the task and retry",
			id, expectedVersion)
	}

	updated, err = e.db.GetTask(id)
	if err != nil {
		return nil, current, err
	}
	if updated == nil {
		return nil, current, errdefs.NotFound("task %s disappeared during update", id)
	}
	return updated, current, nil
}

// UpdateTaskProgress sets percent_complete under the version guard.
// Out-of-range values are clamped into [0, 100] rather than rejected.
// One TASK_UPDATE audit row records the attempt.
func (e *Engine) UpdateTaskProgress(id string, percent, expectedVersion int) (*models.Task, error) {
	clamped := clampPercent(percent)
	updated, previous, err := e.updateTaskProgress(id, clamped, expectedVersion)

	details := map[string]any{"taskId": id, "newProgress": clamped}
	var actor string
	if previous != nil {
		actor = previous.AgentID
		details["previousProgress"] = previous.PercentComplete
	}
	if updated != nil {
		details["version"] = updated.Version
	}
	e.audit(models.AuditTaskUpdate, actor, nil, err, details)
	return updated, err
}

func (e *Engine) updateTaskProgress(id string, percent, expectedVersion int) (updated, previous *models.Task, err error) {
	current, err := e.db.GetTask(id)
	if err != nil {
		return nil, nil, err
	}
	if current == nil {
		return nil, nil, errdefs.NotFound("task %s not found", id)
	}

	n, err := e.db.UpdateTaskProgress(id, percent, expectedVersion, time.Now().UTC())
	if err != nil {
		return nil, current, err
	}
	if n == 0 {
		return nil, current, errdefs.VersionMismatch(
			"task %s update rejected: expected version %d no longer matches the stored row; re-fetch the task and retry",
			id, expectedVersion)
	}

	updated, err = e.db.GetTask(id)
	if err != nil {
		return nil, current, err
	}
	if updated == nil {
		return nil, current, errdefs.NotFound("task %s disappeared during update", id)
	}
	return updated, current, nil
}

// CompleteTask marks a task completed. Archived tasks are refused with
// INVALID_STATE before any write; every other case is a plain status
// update to completed and shares its version guard, audit row, and
// parent roll-up.
func (e *Engine) CompleteTask(id string, expectedVersion int) (*models.Task, error) {
	current, err := e.db.GetTask(id)
	if err != nil {
		return nil, err
	}
	if current != nil && current.Status == models.TaskStatusArchived {
		err := errdefs.InvalidState("task %s is archived and cannot be completed", id)
		e.audit(models.AuditTaskComplete, current.AgentID, nil, err, map[string]any{"taskId": id})
		return nil, err
	}
	return e.UpdateTaskStatus(id, models.TaskStatusCompleted, expectedVersion)
}

// MarkExecuted stamps last_executed and bumps the execution counter
// after a runner picks the task up. Execution history lives on the task
// row, so no audit row is written.
func (e *Engine) MarkExecuted(id string, at time.Time) error {
	task, err := e.db.GetTask(id)
	if err != nil {
		return err
	}
	if task == nil {
		return errdefs.NotFound("task %s not found", id)
	}
	return e.db.MarkTaskExecuted(id, at)
}

// updateParentProgress recounts a parent's completed children and
// rewrites its derived progress, then walks up the chain. The roll-up
// runs after the triggering update has already committed, so failures
// here are logged and swallowed rather than unwinding the caller; a
// vanished parent ends the walk silently. Each touched parent gets a
// TASK_UPDATE audit row marked parent_progress_update.
func (e *Engine) updateParentProgress(parentID string) {
	id := parentID
	for id != "" {
		parent, err := e.db.GetTask(id)
		if err != nil {
			e.log.Warn().Err(err).Str("task_id", id).Msg("parent progress roll-up aborted")
			return
		}
		if parent == nil {
			return
		}

		_, completed, err := e.db.CountChildren(id)
		if err != nil {
			e.log.Warn().Err(err).Str("task_id", id).Msg("parent progress roll-up aborted")
			return
		}
		pct := 0
		if parent.SubtasksTotal > 0 {
			pct = int(math.Round(100 * float64(completed) / float64(parent.SubtasksTotal)))
		}
		if err := e.db.UpdateParentProgress(id, completed, pct, time.Now().UTC()); err != nil {
			e.log.Warn().Err(err).Str("task_id", id).Msg("parent progress roll-up aborted")
			return
		}
		e.audit(models.AuditTaskUpdate, parent.AgentID, nil, nil, map[string]any{
			"action":            "parent_progress_update",
			"taskId":            id,
			"subtasksCompleted": completed,
			"percentComplete":   pct,
		})

		if parent.ParentTaskID == nil {
			return
		}
		id = *parent.ParentTaskID
	}
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
