package lifecycle

import (
	"fmt"

	"github.com/ShayCichocki/hive/internal/errdefs"
	"github.com/ShayCichocki/hive/internal/messaging"
	"github.com/ShayCichocki/hive/internal/registry"
	"github.com/ShayCichocki/hive/internal/taskengine"
	"github.com/ShayCichocki/hive/pkg/models"
)

// FireResult summarizes a termination.
type FireResult struct {
	AgentID           string
	PreviousStatus    models.AgentStatus
	NotificationsSent int
	TasksBlocked      *taskengine.BlockSweep
}

// FireAgent terminates an agent. The status flip goes through the
// registry, which appends the single FIRE audit row; the agent's rows
// and hierarchy entries are retained. Remaining live tasks are blocked
// best-effort and the manager gets a note. Firing an already fired
// agent is INVALID_STATE.
func (o *Orchestrator) FireAgent(id string, actor *string) (*FireResult, error) {
	agent, err := o.registry.RequireAgent(id)
	if err != nil {
		o.audit(models.AuditFire, actor, &id, err, nil)
		return nil, err
	}
	if agent.Status == models.AgentStatusFired {
		err := errdefs.InvalidState("agent %s is already fired", id)
		o.audit(models.AuditFire, actor, &id, err, nil)
		return nil, err
	}

	fired := models.AgentStatusFired
	opts := []registry.UpdateOption{
		registry.WithDetails(map[string]any{"role": agent.Role}),
	}
	if actor != nil {
		opts = append(opts, registry.WithActor(*actor))
	}
	if _, err := o.registry.UpdateAgent(id, registry.AgentUpdate{Status: &fired}, opts...); err != nil {
		return nil, err
	}

	sweep, err := o.engine.BlockAgentTasks(id)
	if err != nil {
		o.log.Warn().Err(err).Str("agent_id", id).Msg("fire task sweep failed")
		sweep = &taskengine.BlockSweep{Errors: []string{err.Error()}}
	}

	res := &FireResult{
		AgentID:        id,
		PreviousStatus: agent.Status,
		TasksBlocked:   sweep,
	}

	if agent.ReportingTo != nil {
		from := "system"
		if actor != nil {
			from = *actor
		}
		note := &models.Message{
			From:    from,
			To:      *agent.ReportingTo,
			Subject: "Subordinate Fired",
			Body: fmt.Sprintf("Your subordinate %s (%s) was terminated. %d of its tasks were blocked; reassign what still matters.",
				agent.ID, agent.Role, sweep.Blocked),
			Priority: models.MessagePriorityHigh,
		}
		if _, err := o.messages.Deliver(note, messaging.WriteOptions{RequireAgentDir: true}); err != nil {
			o.log.Warn().Err(err).Str("to", *agent.ReportingTo).Msg("fire notification failed")
		} else {
			res.NotificationsSent++
		}
	}

	o.log.Info().Str("agent_id", id).Str("previous_status", string(agent.Status)).
		Msg("agent fired")
	return res, nil
}
