package models

import (
	"strings"
	"time"
)

// AuditAction names the operation recorded by an audit event.
type AuditAction string

const (
	AuditHire         AuditAction = "HIRE"
	AuditFire         AuditAction = "FIRE"
	AuditPause        AuditAction = "PAUSE"
	AuditResume       AuditAction = "RESUME"
	AuditConfigUpdate AuditAction = "CONFIG_UPDATE"
	AuditTaskCreate   AuditAction = "TASK_CREATE"
	AuditTaskUpdate   AuditAction = "TASK_UPDATE"
	AuditTaskComplete AuditAction = "TASK_COMPLETE"
	AuditDelegate     AuditAction = "DELEGATE"
	// SystemActionPrefix marks kernel-initiated actions, e.g.
	// SYSTEM_ESCALATION. Any action with this prefix is valid.
	SystemActionPrefix = "SYSTEM_"
)

// AuditSystemEscalation records an automatic blocked-task escalation sweep.
const AuditSystemEscalation AuditAction = "SYSTEM_ESCALATION"

// Valid returns true if the action is a known value or a SYSTEM_* action.
func (a AuditAction) Valid() bool {
	switch a {
	case AuditHire, AuditFire, AuditPause, AuditResume, AuditConfigUpdate,
		AuditTaskCreate, AuditTaskUpdate, AuditTaskComplete, AuditDelegate:
		return true
	}
	return strings.HasPrefix(string(a), SystemActionPrefix)
}

// AuditEvent is one append-only row in the audit log. AgentID is the
// actor (nil for system); TargetAgentID is who the action was done to.
type AuditEvent struct {
	ID            string         `json:"id"`
	Timestamp     time.Time      `json:"timestamp"`
	AgentID       *string        `json:"agent_id,omitempty"`
	Action        AuditAction    `json:"action"`
	TargetAgentID *string        `json:"target_agent_id,omitempty"`
	Success       bool           `json:"success"`
	Details       map[string]any `json:"details,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}
