package lifecycle

import (
	"fmt"

	"github.com/ShayCichocki/hive/internal/errdefs"
	"github.com/ShayCichocki/hive/internal/messaging"
	"github.com/ShayCichocki/hive/internal/taskengine"
	"github.com/ShayCichocki/hive/pkg/models"
)

// PauseResult summarizes a pause: the status flip, the task sweep, and
// how many notifications landed.
type PauseResult struct {
	AgentID           string
	Status            models.AgentStatus
	PreviousStatus    models.AgentStatus
	NotificationsSent int
	TasksBlocked      *taskengine.BlockSweep
}

// ResumeResult summarizes a resume.
type ResumeResult struct {
	AgentID           string
	Status            models.AgentStatus
	PreviousStatus    models.AgentStatus
	NotificationsSent int
	TasksUnblocked    *taskengine.UnblockSweep
}

// PauseAgent suspends an active agent: flips the status, blocks its
// live tasks best-effort, notifies the agent and its manager, and
// appends one PAUSE audit row on every outcome. The actor, when
// non-nil, is recorded in the audit row and as the message sender.
func (o *Orchestrator) PauseAgent(id string, actor *string) (*PauseResult, error) {
	res, err := o.pauseAgent(id, actor)

	details := map[string]any{}
	if res != nil {
		details["previousStatus"] = string(res.PreviousStatus)
		details["notificationsSent"] = res.NotificationsSent
		details["tasksBlocked"] = sweepDetails(res.TasksBlocked)
	}
	o.audit(models.AuditPause, actor, &id, err, details)

	if err != nil {
		return nil, err
	}
	o.log.Info().Str("agent_id", id).Int("tasks_blocked", res.TasksBlocked.Blocked).
		Msg("agent paused")
	return res, nil
}

func (o *Orchestrator) pauseAgent(id string, actor *string) (*PauseResult, error) {
	agent, err := o.registry.RequireAgent(id)
	if err != nil {
		return nil, err
	}
	if agent.Status != models.AgentStatusActive {
		return nil, errdefs.InvalidState("agent %s is already %s", id, agent.Status)
	}

	if err := o.registry.SetStatus(id, models.AgentStatusPaused); err != nil {
		return nil, err
	}

	sweep, err := o.engine.BlockAgentTasks(id)
	if err != nil {
		o.log.Warn().Err(err).Str("agent_id", id).Msg("pause task sweep failed")
		sweep = &taskengine.BlockSweep{Errors: []string{err.Error()}}
	}

	res := &PauseResult{
		AgentID:        id,
		Status:         models.AgentStatusPaused,
		PreviousStatus: agent.Status,
		TasksBlocked:   sweep,
	}
	res.NotificationsSent = o.notifyStatusChange(agent, actor,
		"Paused",
		fmt.Sprintf("You have been paused. %d of your tasks were blocked and will be released when you are resumed.",
			sweep.Blocked),
		"Subordinate Paused",
		fmt.Sprintf("Your subordinate %s (%s) was paused. %d of its tasks are now blocked.",
			agent.ID, agent.Role, sweep.Blocked))
	return res, nil
}

// ResumeAgent returns a paused agent to active: flips the status,
// unblocks the tasks the pause blocked (tasks held by live blockers
// stay blocked), notifies the agent and its manager, and appends one
// RESUME audit row on every outcome.
func (o *Orchestrator) ResumeAgent(id string, actor *string) (*ResumeResult, error) {
	res, err := o.resumeAgent(id, actor)

	details := map[string]any{}
	if res != nil {
		details["previousStatus"] = string(res.PreviousStatus)
		details["notificationsSent"] = res.NotificationsSent
		details["tasksUnblocked"] = unblockDetails(res.TasksUnblocked)
	}
	o.audit(models.AuditResume, actor, &id, err, details)

	if err != nil {
		return nil, err
	}
	o.log.Info().Str("agent_id", id).Int("tasks_unblocked", res.TasksUnblocked.Unblocked).
		Msg("agent resumed")
	return res, nil
}

func (o *Orchestrator) resumeAgent(id string, actor *string) (*ResumeResult, error) {
	agent, err := o.registry.RequireAgent(id)
	if err != nil {
		return nil, err
	}
	if agent.Status != models.AgentStatusPaused {
		return nil, errdefs.InvalidState("agent %s is %s, not paused", id, agent.Status)
	}

	if err := o.registry.SetStatus(id, models.AgentStatusActive); err != nil {
		return nil, err
	}

	sweep, err := o.engine.UnblockAgentTasks(id)
	if err != nil {
		o.log.Warn().Err(err).Str("agent_id", id).Msg("resume task sweep failed")
		sweep = &taskengine.UnblockSweep{Errors: []string{err.Error()}}
	}

	res := &ResumeResult{
		AgentID:        id,
		Status:         models.AgentStatusActive,
		PreviousStatus: agent.Status,
		TasksUnblocked: sweep,
	}
	res.NotificationsSent = o.notifyStatusChange(agent, actor,
		"Resumed",
		fmt.Sprintf("You are active again. %d of your tasks were unblocked; %d stay blocked on live dependencies.",
			sweep.Unblocked, sweep.StillBlocked),
		"Subordinate Resumed",
		fmt.Sprintf("Your subordinate %s (%s) is active again with %d tasks unblocked.",
			agent.ID, agent.Role, sweep.Unblocked))
	return res, nil
}

// notifyStatusChange writes the lifecycle notes to the agent and, when
// one exists, its manager. Messages are best-effort: failures are
// logged and reflected only in the returned count.
func (o *Orchestrator) notifyStatusChange(agent *models.Agent, actor *string, subject, body, managerSubject, managerBody string) int {
	from := "system"
	if actor != nil {
		from = *actor
	}

	sent := 0
	msg := &models.Message{
		From:     from,
		To:       agent.ID,
		Subject:  subject,
		Body:     body,
		Priority: models.MessagePriorityHigh,
	}
	if _, err := o.messages.Deliver(msg, messaging.WriteOptions{RequireAgentDir: true}); err != nil {
		o.log.Warn().Err(err).Str("to", agent.ID).Str("subject", subject).
			Msg("lifecycle notification failed")
	} else {
		sent++
	}

	if agent.ReportingTo == nil {
		return sent
	}
	note := &models.Message{
		From:     from,
		To:       *agent.ReportingTo,
		Subject:  managerSubject,
		Body:     managerBody,
		Priority: models.MessagePriorityNormal,
	}
	if _, err := o.messages.Deliver(note, messaging.WriteOptions{RequireAgentDir: true}); err != nil {
		o.log.Warn().Err(err).Str("to", *agent.ReportingTo).Str("subject", managerSubject).
			Msg("lifecycle notification failed")
	} else {
		sent++
	}
	return sent
}

func sweepDetails(s *taskengine.BlockSweep) map[string]any {
	if s == nil {
		return nil
	}
	d := map[string]any{
		"totalTasks":     s.TotalTasks,
		"blocked":        s.Blocked,
		"alreadyBlocked": s.AlreadyBlocked,
	}
	if len(s.Errors) > 0 {
		d["errors"] = s.Errors
	}
	return d
}

func unblockDetails(s *taskengine.UnblockSweep) map[string]any {
	if s == nil {
		return nil
	}
	d := map[string]any{
		"totalTasks":   s.TotalTasks,
		"unblocked":    s.Unblocked,
		"stillBlocked": s.StillBlocked,
	}
	if len(s.Errors) > 0 {
		d["errors"] = s.Errors
	}
	return d
}
