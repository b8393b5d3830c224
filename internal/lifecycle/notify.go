package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/ShayCichocki/hive/internal/messaging"
	"github.com/ShayCichocki/hive/pkg/models"
)

// NotifyTaskCompletion tells the task owner's manager the task is
// done. Root-owned tasks notify nobody. The manager's config gates
// delivery: notifyOnCompletion=false suppresses the message entirely
// unless force is set, with no message row and no audit row. A sent
// notification appends one TASK_COMPLETE audit row.
func (o *Orchestrator) NotifyTaskCompletion(task *models.Task, force bool) (*models.Message, error) {
	owner, err := o.registry.RequireAgent(task.AgentID)
	if err != nil {
		return nil, err
	}
	if owner.ReportingTo == nil {
		return nil, nil
	}
	managerID := *owner.ReportingTo

	mcfg, err := o.configs.Load(managerID)
	if err != nil {
		return nil, err
	}
	if !mcfg.Communication.NotifyOnCompletion && !force {
		o.log.Debug().Str("task_id", task.ID).Str("manager", managerID).
			Msg("completion notification suppressed by manager config")
		return nil, nil
	}

	msg := &models.Message{
		From:     task.AgentID,
		To:       managerID,
		Subject:  "Task Completed: " + task.Title,
		Body:     completionBody(task),
		Priority: messagePriorityFor(task.Priority),
		ThreadID: "task-" + task.ID,
	}
	_, err = o.messages.Deliver(msg, messaging.WriteOptions{RequireAgentDir: true})

	details := map[string]any{"taskId": task.ID, "notifiedAgent": managerID}
	if err == nil {
		details["messageId"] = msg.ID
	}
	o.audit(models.AuditTaskComplete, &task.AgentID, &managerID, err, details)

	if err != nil {
		return nil, err
	}
	return msg, nil
}

func completionBody(task *models.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Task Completed: %s\n\n", task.Title)
	fmt.Fprintf(&b, "- Task: %s\n", task.ID)
	fmt.Fprintf(&b, "- Owner: %s\n", task.AgentID)
	fmt.Fprintf(&b, "- Priority: %s\n", task.Priority)
	if task.ParentTaskID != nil {
		fmt.Fprintf(&b, "- Parent: %s\n", *task.ParentTaskID)
	}
	fmt.Fprintf(&b, "- Depth: %d\n", task.Depth)
	fmt.Fprintf(&b, "- Progress: %d%%\n", task.PercentComplete)
	fmt.Fprintf(&b, "- Subtasks: %d/%d completed\n", task.SubtasksCompleted, task.SubtasksTotal)
	if task.DelegatedTo != nil {
		fmt.Fprintf(&b, "- Delegated to: %s\n", *task.DelegatedTo)
	}
	if task.TaskPath != "" {
		fmt.Fprintf(&b, "- Task path: %s\n", task.TaskPath)
	}
	if task.CompletedAt != nil {
		fmt.Fprintf(&b, "- Time to complete: %s\n",
			formatElapsed(task.CompletedAt.Sub(task.CreatedAt)))
	}
	return b.String()
}

// formatElapsed renders a duration as "3h 20m", or "45m" under an
// hour. Negative or sub-minute durations render as "0m".
func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Minutes())
	hours := total / 60
	mins := total % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}
