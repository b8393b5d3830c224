// Package taskengine implements the task lifecycle over the store:
// creation with dependency validation, optimistically locked updates,
// recursive parent progress roll-up, delegation, and the bulk
// block/unblock sweeps behind agent pause and resume.
package taskengine

import (
	"regexp"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/ShayCichocki/hive/internal/agentconfig"
	"github.com/ShayCichocki/hive/internal/errdefs"
	"github.com/ShayCichocki/hive/internal/graph"
	"github.com/ShayCichocki/hive/internal/logging"
	"github.com/ShayCichocki/hive/internal/store"
	"github.com/ShayCichocki/hive/pkg/models"
)

var taskIDNumber = regexp.MustCompile(`^task-(\d+)-`)

// Engine executes task operations. Every public mutating operation
// appends exactly one audit row, success or failure.
type Engine struct {
	db       *store.DB
	detector *graph.Detector
	log      zerolog.Logger
}

func New(db *store.DB) *Engine {
	return &Engine{
		db:       db,
		detector: graph.NewDetector(db),
		log:      logging.WithComponent("taskengine"),
	}
}

// CreateTaskInput carries everything needed to create a task. ID is
// generated from the title when empty.
type CreateTaskInput struct {
	ID           string
	AgentID      string
	Title        string
	Priority     models.TaskPriority
	ParentTaskID *string
	DelegatedTo  *string
	TaskPath     string
	BlockedBy    []string
}

// CreateTask validates dependencies, inserts the task (bumping the
// parent's subtask counter in the same transaction), and appends one
// TASK_CREATE audit row for the attempt.
func (e *Engine) CreateTask(input CreateTaskInput) (*models.Task, error) {
	task, err := e.createTask(input)

	details := map[string]any{"title": input.Title}
	if task != nil {
		details["taskId"] = task.ID
		details["status"] = string(task.Status)
		details["depth"] = task.Depth
	} else if input.ID != "" {
		details["taskId"] = input.ID
	}
	e.audit(models.AuditTaskCreate, input.AgentID, nil, err, details)
	return task, err
}

func (e *Engine) createTask(input CreateTaskInput) (*models.Task, error) {
	if input.Title == "" {
		return nil, errdefs.SchemaInvalid("task title is required")
	}
	priority := input.Priority
	if priority == "" {
		priority = models.TaskPriorityMedium
	}
	if !priority.Valid() {
		return nil, errdefs.SchemaInvalid("invalid task priority %q", priority)
	}

	agent, err := e.db.GetAgent(input.AgentID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, errdefs.NotFound("agent %s not found", input.AgentID)
	}
	if input.DelegatedTo != nil {
		target, err := e.db.GetAgent(*input.DelegatedTo)
		if err != nil {
			return nil, err
		}
		if target == nil {
			return nil, errdefs.NotFound("delegation target %s not found", *input.DelegatedTo)
		}
	}

	depth := 0
	if input.ParentTaskID != nil {
		parent, err := e.db.GetTask(*input.ParentTaskID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, errdefs.NotFound("parent task %s not found", *input.ParentTaskID)
		}
		if parent.Depth >= models.TaskMaxDepth {
			return nil, errdefs.DepthExceeded("parent task %s is at depth %d, max nesting is %d",
				parent.ID, parent.Depth, models.TaskMaxDepth)
		}
		depth = parent.Depth + 1
	}

	id := input.ID
	if id == "" {
		id, err = e.nextTaskID(input.AgentID, input.Title)
		if err != nil {
			return nil, err
		}
	} else {
		existing, err := e.db.GetTask(id)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, errdefs.Conflict("task %s already exists", id)
		}
	}

	for _, blocker := range input.BlockedBy {
		if blocker == id {
			return nil, errdefs.SelfReference("task %s cannot block itself", id)
		}
		b, err := e.db.GetTask(blocker)
		if err != nil {
			return nil, err
		}
		if b == nil {
			return nil, errdefs.BlockerMissing("blocker task %s does not exist", blocker)
		}
		if b.Status.Terminal() {
			return nil, errdefs.BlockerTerminal("blocker task %s is already %s", blocker, b.Status)
		}
		reaches, err := e.detector.PathExists(blocker, id)
		if err != nil {
			return nil, err
		}
		if reaches {
			return nil, errdefs.CycleDetected("blocking %s on %s would create a dependency cycle", id, blocker)
		}
	}

	now := time.Now().UTC()
	task := &models.Task{
		ID:           id,
		AgentID:      input.AgentID,
		Title:        input.Title,
		Status:       models.TaskStatusPending,
		Priority:     priority,
		CreatedAt:    now,
		ParentTaskID: input.ParentTaskID,
		Depth:        depth,
		DelegatedTo:  input.DelegatedTo,
		BlockedBy:    input.BlockedBy,
		TaskPath:     input.TaskPath,
		LastUpdated:  &now,
	}
	if len(input.BlockedBy) > 0 {
		task.Status = models.TaskStatusBlocked
		task.BlockedSince = &now
	}
	if input.DelegatedTo != nil {
		task.DelegatedAt = &now
	}

	if err := e.db.InsertTask(task); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, errdefs.Conflict("task %s already exists", id)
		}
		return nil, err
	}
	e.log.Info().Str("task_id", id).Str("agent_id", input.AgentID).
		Str("status", string(task.Status)).Msg("task created")
	return task, nil
}

// nextTaskID numbers tasks per agent: one greater than the highest N
// seen in any existing task-<N>-... id.
func (e *Engine) nextTaskID(agentID, title string) (string, error) {
	ids, err := e.db.GetTaskIDs(agentID)
	if err != nil {
		return "", err
	}
	max := 0
	for _, id := range ids {
		m := taskIDNumber.FindStringSubmatch(id)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > max {
			max = n
		}
	}
	slug := agentconfig.Slug(title)
	if slug == "" {
		slug = "untitled"
	}
	return "task-" + strconv.Itoa(max+1) + "-" + slug, nil
}

// GetTask returns the task or NOT_FOUND.
func (e *Engine) GetTask(id string) (*models.Task, error) {
	task, err := e.db.GetTask(id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, errdefs.NotFound("task %s not found", id)
	}
	return task, nil
}

// GetActiveTasks lists pending, in-progress and blocked tasks, most
// urgent first, then oldest first.
func (e *Engine) GetActiveTasks(agentID string) ([]*models.Task, error) {
	return e.db.GetActiveTasks(agentID)
}

// GetBlockedTasks lists blocked tasks in active-queue order.
func (e *Engine) GetBlockedTasks(agentID string) ([]*models.Task, error) {
	return e.db.GetBlockedTasks(agentID)
}

// DetectTaskDeadlock returns the blocked_by cycle reachable from
// startID, or nil when the dependencies are acyclic.
func (e *Engine) DetectTaskDeadlock(startID string) ([]string, error) {
	return e.detector.DetectCycle(startID)
}

// audit appends the operation's single audit row. The row records the
// acting agent (empty when the task was never found), the optional
// target agent, and the failure message when the operation did not
// succeed. Append problems are logged rather than overriding the
// operation's own result.
func (e *Engine) audit(action models.AuditAction, actor string, target *string, opErr error, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	if opErr != nil {
		details["error"] = opErr.Error()
	}
	event := &models.AuditEvent{
		Action:        action,
		TargetAgentID: target,
		Success:       opErr == nil,
		Details:       details,
	}
	if actor != "" {
		event.AgentID = &actor
	}
	if err := e.db.AppendAudit(event); err != nil {
		e.log.Error().Err(err).Str("action", string(action)).Msg("failed to append audit row")
	}
}
