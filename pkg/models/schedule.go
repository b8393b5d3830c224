package models

import "time"

// TriggerType says what causes a scheduled execution.
type TriggerType string

const (
	// TriggerContinuous runs whenever the minimum interval has elapsed.
	TriggerContinuous TriggerType = "continuous"
	// TriggerCron runs on a cron expression.
	TriggerCron TriggerType = "cron"
	// TriggerReactive runs only when externally poked (new work, messages).
	TriggerReactive TriggerType = "reactive"
)

// Valid returns true if the trigger type is a known value.
func (t TriggerType) Valid() bool {
	switch t {
	case TriggerContinuous, TriggerCron, TriggerReactive:
		return true
	default:
		return false
	}
}

// Schedule is a per-agent execution trigger consumed by the external
// executor through "due now" queries.
type Schedule struct {
	ID                     string      `json:"id"`
	AgentID                string      `json:"agent_id"`
	TriggerType            TriggerType `json:"trigger_type"`
	Description            string      `json:"description,omitempty"`
	CronExpression         string      `json:"cron_expression,omitempty"`
	Timezone               string      `json:"timezone,omitempty"`
	NextExecutionAt        *time.Time  `json:"next_execution_at,omitempty"`
	MinimumIntervalSeconds int         `json:"minimum_interval_seconds"`
	OnlyWhenTasksPending   bool        `json:"only_when_tasks_pending"`
	Enabled                bool        `json:"enabled"`
	LastTriggeredAt        *time.Time  `json:"last_triggered_at,omitempty"`
	CreatedAt              time.Time   `json:"created_at"`
	UpdatedAt              time.Time   `json:"updated_at"`
}
