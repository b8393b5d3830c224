package models

import "time"

// AgentStatus represents the lifecycle state of an agent.
type AgentStatus string

const (
	// AgentStatusActive indicates the agent is working normally.
	AgentStatusActive AgentStatus = "active"
	// AgentStatusPaused indicates the agent is suspended and its tasks blocked.
	AgentStatusPaused AgentStatus = "paused"
	// AgentStatusFired indicates the agent was terminated; rows are retained.
	AgentStatusFired AgentStatus = "fired"
)

// Valid returns true if the status is a known value.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusActive, AgentStatusPaused, AgentStatusFired:
		return true
	default:
		return false
	}
}

// Agent represents a persisted actor in the organization.
type Agent struct {
	// ID is the unique identifier for this agent.
	ID string `json:"id"`
	// Role is the organizational role, e.g. "cto" or "researcher".
	Role string `json:"role"`
	// DisplayName is the human-readable name.
	DisplayName string `json:"display_name"`
	// CreatedAt is when the agent was hired.
	CreatedAt time.Time `json:"created_at"`
	// CreatedBy identifies the creator: an agent id or "system".
	CreatedBy string `json:"created_by,omitempty"`
	// ReportingTo is the manager's agent id; nil for root agents.
	ReportingTo *string `json:"reporting_to,omitempty"`
	// Status is the lifecycle state.
	Status AgentStatus `json:"status"`
	// MainGoal is the agent's standing objective.
	MainGoal string `json:"main_goal,omitempty"`
	// ConfigPath is the absolute path of the agent's config.json.
	ConfigPath string `json:"config_path,omitempty"`
	// LastExecutionAt is when the agent last ran, if ever.
	LastExecutionAt *time.Time `json:"last_execution_at,omitempty"`
	// TotalExecutions counts completed runs.
	TotalExecutions int `json:"total_executions"`
	// TotalRuntimeMinutes accumulates run time across executions.
	TotalRuntimeMinutes int `json:"total_runtime_minutes"`
}

// HierarchyEntry is one row of the org-hierarchy transitive closure:
// AncestorID is an ancestor of AgentID at the given reporting depth.
// Depth 0 is the mandatory self-reference row.
type HierarchyEntry struct {
	AgentID    string `json:"agent_id"`
	AncestorID string `json:"ancestor_id"`
	Depth      int    `json:"depth"`
	// Path joins role names from the ancestor down to the agent with "/".
	Path string `json:"path"`
}
