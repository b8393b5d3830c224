package lifecycle

import (
	"fmt"

	"github.com/ShayCichocki/hive/internal/messaging"
	"github.com/ShayCichocki/hive/pkg/models"
)

// DelegateTask hands a task to a subordinate through the task engine
// (which appends the TASK_UPDATE row) and then drops an action-required
// note in the delegatee's inbox. The note is best-effort and appends no
// second audit row.
func (o *Orchestrator) DelegateTask(id, toAgentID string, expectedVersion *int) (*models.Task, error) {
	task, err := o.engine.DelegateTask(id, toAgentID, expectedVersion)
	if err != nil {
		return nil, err
	}

	body := fmt.Sprintf(`You have been delegated a task.

- Task: %s
- Title: %s
- Priority: %s
- Progress: %d%%
- Delegated by: %s

Review it and get started, or escalate if it cannot be done.`,
		task.ID, task.Title, task.Priority, task.PercentComplete, task.AgentID)

	msg := &models.Message{
		From:           task.AgentID,
		To:             toAgentID,
		Subject:        "Task Delegated: " + task.Title,
		Body:           body,
		Priority:       messagePriorityFor(task.Priority),
		ActionRequired: true,
		ThreadID:       "task-" + task.ID,
	}
	if _, err := o.messages.Deliver(msg, messaging.WriteOptions{RequireAgentDir: true}); err != nil {
		o.log.Warn().Err(err).Str("task_id", id).Str("to", toAgentID).
			Msg("delegation notification failed")
	}
	return task, nil
}
