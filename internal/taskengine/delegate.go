package taskengine

import (
	"time"

	"github.com/ShayCichocki/hive/internal/errdefs"
	"github.com/ShayCichocki/hive/pkg/models"
)

// DelegateTask hands a task to a transitive subordinate of its owner.
// Delegating to the current delegatee is an idempotent no-op: the row
// keeps its version and delegated_at, and no audit row is appended.
// With a non-nil expectedVersion the write carries the same optimistic
// guard as status updates. Every other exit appends one TASK_UPDATE
// row whose details mark the action as a delegation.
func (e *Engine) DelegateTask(id, toAgentID string, expectedVersion *int) (*models.Task, error) {
	updated, current, noop, err := e.delegateTask(id, toAgentID, expectedVersion)
	if noop {
		return updated, nil
	}

	details := map[string]any{"action": "delegate", "taskId": id, "toAgent": toAgentID}
	var actor string
	if current != nil {
		actor = current.AgentID
		details["fromAgent"] = current.AgentID
	}
	if updated != nil {
		details["version"] = updated.Version
	}
	e.audit(models.AuditTaskUpdate, actor, &toAgentID, err, details)

	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (e *Engine) delegateTask(id, toAgentID string, expectedVersion *int) (updated, current *models.Task, noop bool, err error) {
	current, err = e.db.GetTask(id)
	if err != nil {
		return nil, nil, false, err
	}
	if current == nil {
		return nil, nil, false, errdefs.NotFound("task %s not found", id)
	}

	target, err := e.db.GetAgent(toAgentID)
	if err != nil {
		return nil, current, false, err
	}
	if target == nil {
		return nil, current, false, errdefs.NotFound("agent %s not found", toAgentID)
	}

	// Depth 0 is the agent's self row; delegation requires a strict
	// subordinate of the task owner.
	entry, err := e.db.GetHierarchyEntry(toAgentID, current.AgentID)
	if err != nil {
		return nil, current, false, err
	}
	if entry == nil || entry.Depth == 0 {
		return nil, current, false, errdefs.NotSubordinate(
			"agent %s is not a subordinate of %s", toAgentID, current.AgentID)
	}

	if current.DelegatedTo != nil && *current.DelegatedTo == toAgentID {
		return current, current, true, nil
	}

	n, err := e.db.DelegateTask(id, toAgentID, time.Now().UTC(), expectedVersion)
	if err != nil {
		return nil, current, false, err
	}
	if n == 0 {
		if expectedVersion != nil {
			return nil, current, false, errdefs.VersionMismatch(
				"task %s update rejected: expected version %d no longer matches the stored row; re-fetch the task and retry",
				id, *expectedVersion)
		}
		return nil, current, false, errdefs.NotFound("task %s not found", id)
	}

	updated, err = e.db.GetTask(id)
	if err != nil {
		return nil, current, false, err
	}
	if updated == nil {
		return nil, current, false, errdefs.NotFound("task %s disappeared during update", id)
	}
	return updated, current, false, nil
}
