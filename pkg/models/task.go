package models

import "time"

// TaskMaxDepth is the deepest allowed task nesting level. A task whose
// parent already sits at this depth cannot gain children.
const TaskMaxDepth = 5

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has not started.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress indicates the task is being worked on.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusBlocked indicates the task cannot proceed.
	TaskStatusBlocked TaskStatus = "blocked"
	// TaskStatusCompleted indicates the task finished successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusArchived indicates the task is retired from active queries.
	TaskStatusArchived TaskStatus = "archived"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusBlocked,
		TaskStatusCompleted, TaskStatusArchived:
		return true
	default:
		return false
	}
}

// Terminal returns true for statuses that end a task's life. Terminal
// tasks no longer count as live blockers.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusArchived
}

// TaskPriority orders tasks in active-work queries.
type TaskPriority string

const (
	TaskPriorityUrgent TaskPriority = "urgent"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityLow    TaskPriority = "low"
)

// Valid returns true if the priority is a known value.
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityUrgent, TaskPriorityHigh, TaskPriorityMedium, TaskPriorityLow:
		return true
	default:
		return false
	}
}

// Task represents a unit of work owned by an agent.
type Task struct {
	// ID is the unique identifier, typically task-<n>-<slug>.
	ID string `json:"id"`
	// AgentID is the owning agent.
	AgentID string `json:"agent_id"`
	// Title is the short description of the task.
	Title string `json:"title"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// Priority orders the task within its agent's queue.
	Priority TaskPriority `json:"priority"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// StartedAt is set the first time the task enters in_progress.
	StartedAt *time.Time `json:"started_at,omitempty"`
	// CompletedAt is set while status is completed; cleared on leaving it.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// ParentTaskID is the parent task, if this task is a subtask.
	ParentTaskID *string `json:"parent_task_id,omitempty"`
	// Depth is the nesting level: 0 for roots, parent depth + 1 otherwise.
	Depth int `json:"depth"`
	// PercentComplete is 0..100; derived from subtasks when the task has any.
	PercentComplete int `json:"percent_complete"`
	// SubtasksCompleted counts children with status completed.
	SubtasksCompleted int `json:"subtasks_completed"`
	// SubtasksTotal counts all children.
	SubtasksTotal int `json:"subtasks_total"`
	// DelegatedTo is the subordinate currently responsible, if delegated.
	DelegatedTo *string `json:"delegated_to,omitempty"`
	// DelegatedAt is when the current delegation happened.
	DelegatedAt *time.Time `json:"delegated_at,omitempty"`
	// BlockedBy lists ids of live tasks this task waits on.
	BlockedBy []string `json:"blocked_by,omitempty"`
	// BlockedSince is when the task entered blocked status.
	BlockedSince *time.Time `json:"blocked_since,omitempty"`
	// TaskPath locates the task's artifact directory relative to the agent.
	TaskPath string `json:"task_path,omitempty"`
	// Version is the optimistic-lock token; every change increments it.
	Version int `json:"version"`
	// LastUpdated is when any field last changed.
	LastUpdated *time.Time `json:"last_updated,omitempty"`
	// LastExecuted is when the executor last ran this task.
	LastExecuted *time.Time `json:"last_executed,omitempty"`
	// ExecutionCount counts executor runs.
	ExecutionCount int `json:"execution_count"`
}
