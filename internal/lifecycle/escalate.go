package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/ShayCichocki/hive/internal/messaging"
	"github.com/ShayCichocki/hive/pkg/models"
)

// EscalationResult says what a blocked-task sweep did. A zero
// Escalated count with an empty MessageID is a no-op sweep.
type EscalationResult struct {
	AgentID   string
	ManagerID string
	Escalated int
	TaskIDs   []string
	MessageID string
}

// EscalateBlockedTasks checks the agent's blocked tasks against its
// escalation config and, when tasks have sat blocked longer than
// escalateAfterHours, sends the manager one urgent action-required
// message listing them and appends one SYSTEM_ESCALATION audit row.
// Agents without auto-escalation, without escalation permission, or
// without a manager sweep to a no-op.
func (o *Orchestrator) EscalateBlockedTasks(agentID string) (*EscalationResult, error) {
	agent, err := o.registry.RequireAgent(agentID)
	if err != nil {
		return nil, err
	}

	cfg, err := o.configs.Load(agentID)
	if err != nil {
		return nil, err
	}

	res := &EscalationResult{AgentID: agentID}
	if !cfg.Escalation.AutoEscalateBlockedTasks || !cfg.Permissions.CanEscalate {
		return res, nil
	}
	if agent.ReportingTo == nil {
		return res, nil
	}
	res.ManagerID = *agent.ReportingTo

	blocked, err := o.engine.GetBlockedTasks(agentID)
	if err != nil {
		return nil, err
	}

	now := o.clock()
	threshold := time.Duration(cfg.Escalation.EscalateAfterHours * float64(time.Hour))
	var stuck []*models.Task
	for _, t := range blocked {
		if t.BlockedSince == nil {
			continue
		}
		if now.Sub(*t.BlockedSince) > threshold {
			stuck = append(stuck, t)
		}
	}
	if len(stuck) == 0 {
		return res, nil
	}

	for _, t := range stuck {
		res.TaskIDs = append(res.TaskIDs, t.ID)
	}

	msg := &models.Message{
		From:           agentID,
		To:             res.ManagerID,
		Subject:        fmt.Sprintf("Escalation: %d blocked task(s) need attention", len(stuck)),
		Body:           escalationBody(agent, stuck, now),
		Priority:       models.MessagePriorityUrgent,
		ActionRequired: true,
	}
	_, err = o.messages.Deliver(msg, messaging.WriteOptions{RequireAgentDir: true})

	details := map[string]any{
		"taskIds":            res.TaskIDs,
		"escalateAfterHours": cfg.Escalation.EscalateAfterHours,
	}
	if err == nil {
		details["messageId"] = msg.ID
	}
	o.audit(models.AuditSystemEscalation, nil, &agentID, err, details)

	if err != nil {
		return nil, err
	}
	res.Escalated = len(stuck)
	res.MessageID = msg.ID
	o.log.Info().Str("agent_id", agentID).Int("tasks", len(stuck)).
		Msg("blocked tasks escalated")
	return res, nil
}

func escalationBody(agent *models.Agent, stuck []*models.Task, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Agent %s (%s) has %d task(s) blocked past its escalation window:\n\n",
		agent.ID, agent.Role, len(stuck))
	for _, t := range stuck {
		fmt.Fprintf(&b, "- %s: %s (blocked %s", t.ID, t.Title,
			formatElapsed(now.Sub(*t.BlockedSince)))
		if len(t.BlockedBy) > 0 {
			fmt.Fprintf(&b, ", waiting on %s", strings.Join(t.BlockedBy, ", "))
		}
		b.WriteString(")\n")
	}
	b.WriteString("\nUnblock the dependencies, reassign the work, or archive what no longer matters.")
	return b.String()
}
