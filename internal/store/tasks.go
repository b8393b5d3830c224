package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ShayCichocki/hive/internal/logging"
	"github.com/ShayCichocki/hive/pkg/models"
)

const taskColumns = `id, agent_id, title, status, priority, created_at, started_at, completed_at,
	parent_task_id, depth, percent_complete, subtasks_completed, subtasks_total,
	delegated_to, delegated_at, blocked_by, blocked_since, task_path, version,
	last_updated, last_executed, execution_count`

// scanTask scans one task row. A malformed blocked_by payload is
// tolerated as "no blockers" so readers and the deadlock detector stay
// total.
func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	var createdAt string
	var startedAt, completedAt, parentTaskID, delegatedTo, delegatedAt sql.NullString
	var blockedBy, blockedSince, lastUpdated, lastExecuted sql.NullString

	err := row.Scan(&t.ID, &t.AgentID, &t.Title, &t.Status, &t.Priority, &createdAt,
		&startedAt, &completedAt, &parentTaskID, &t.Depth, &t.PercentComplete,
		&t.SubtasksCompleted, &t.SubtasksTotal, &delegatedTo, &delegatedAt,
		&blockedBy, &blockedSince, &t.TaskPath, &t.Version,
		&lastUpdated, &lastExecuted, &t.ExecutionCount)
	if err != nil {
		return nil, err
	}

	created, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	t.CreatedAt = created
	t.StartedAt = parseNullableTime(startedAt)
	t.CompletedAt = parseNullableTime(completedAt)
	if parentTaskID.Valid {
		v := parentTaskID.String
		t.ParentTaskID = &v
	}
	if delegatedTo.Valid {
		v := delegatedTo.String
		t.DelegatedTo = &v
	}
	t.DelegatedAt = parseNullableTime(delegatedAt)
	t.BlockedSince = parseNullableTime(blockedSince)
	t.LastUpdated = parseNullableTime(lastUpdated)
	t.LastExecuted = parseNullableTime(lastExecuted)

	if blockedBy.Valid && blockedBy.String != "" {
		var ids []string
		if err := json.Unmarshal([]byte(blockedBy.String), &ids); err != nil {
			log := logging.WithComponent("store")
			log.Debug().
				Str("task_id", t.ID).Str("blocked_by", blockedBy.String).
				Msg("malformed blocked_by payload, treating as no blockers")
		} else {
			t.BlockedBy = ids
		}
	}

	return &t, nil
}

// marshalBlockedBy encodes the blocker list for its TEXT column.
func marshalBlockedBy(ids []string) any {
	if len(ids) == 0 {
		return nil
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return nil
	}
	return string(data)
}

// InsertTask inserts the task and, when it has a parent, increments the
// parent's subtask counter in the same transaction.
func (db *DB) InsertTask(t *models.Task) error {
	return db.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO tasks (`+taskColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, t.ID, t.AgentID, t.Title, string(t.Status), string(t.Priority), formatTime(t.CreatedAt),
			nullTime(t.StartedAt), nullTime(t.CompletedAt), nullString(t.ParentTaskID),
			t.Depth, t.PercentComplete, t.SubtasksCompleted, t.SubtasksTotal,
			nullString(t.DelegatedTo), nullTime(t.DelegatedAt), marshalBlockedBy(t.BlockedBy),
			nullTime(t.BlockedSince), t.TaskPath, t.Version,
			nullTime(t.LastUpdated), nullTime(t.LastExecuted), t.ExecutionCount)
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}

		if t.ParentTaskID != nil {
			_, err = tx.Exec(`
				UPDATE tasks
				SET subtasks_total = subtasks_total + 1, version = version + 1, last_updated = ?
				WHERE id = ?
			`, nullTime(t.LastUpdated), *t.ParentTaskID)
			if err != nil {
				return fmt.Errorf("increment parent subtask count: %w", err)
			}
		}

		return nil
	})
}

// GetTask returns the task or nil when absent.
func (db *DB) GetTask(id string) (*models.Task, error) {
	row := db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return t, nil
}

// UpdateTaskStatus performs the optimistic-lock status transition in a
// single UPDATE guarded by the expected version. It returns the number
// of rows changed; zero means the version token was stale.
func (db *DB) UpdateTaskStatus(id string, status models.TaskStatus, expectedVersion int, now time.Time) (int64, error) {
	ts := formatTime(now)
	var result sql.Result
	var err error

	switch status {
	case models.TaskStatusInProgress:
		result, err = db.Exec(`
			UPDATE tasks
			SET status = ?, version = version + 1, last_updated = ?,
				started_at = COALESCE(started_at, ?), completed_at = NULL, blocked_since = NULL
			WHERE id = ? AND version = ?
		`, string(status), ts, ts, id, expectedVersion)
	case models.TaskStatusCompleted:
		result, err = db.Exec(`
			UPDATE tasks
			SET status = ?, version = version + 1, last_updated = ?,
				completed_at = ?, blocked_since = NULL
			WHERE id = ? AND version = ?
		`, string(status), ts, ts, id, expectedVersion)
	case models.TaskStatusBlocked:
		result, err = db.Exec(`
			UPDATE tasks
			SET status = ?, version = version + 1, last_updated = ?,
				blocked_since = COALESCE(blocked_since, ?), completed_at = NULL
			WHERE id = ? AND version = ?
		`, string(status), ts, ts, id, expectedVersion)
	default:
		result, err = db.Exec(`
			UPDATE tasks
			SET status = ?, version = version + 1, last_updated = ?,
				completed_at = NULL, blocked_since = NULL
			WHERE id = ? AND version = ?
		`, string(status), ts, id, expectedVersion)
	}
	if err != nil {
		return 0, fmt.Errorf("update task %s status: %w", id, err)
	}
	return result.RowsAffected()
}

// UpdateTaskProgress writes percent_complete under the version guard.
func (db *DB) UpdateTaskProgress(id string, percent int, expectedVersion int, now time.Time) (int64, error) {
	result, err := db.Exec(`
		UPDATE tasks
		SET percent_complete = ?, version = version + 1, last_updated = ?
		WHERE id = ? AND version = ?
	`, percent, formatTime(now), id, expectedVersion)
	if err != nil {
		return 0, fmt.Errorf("update task %s progress: %w", id, err)
	}
	return result.RowsAffected()
}

// UpdateParentProgress writes the derived subtask counters without a
// version guard; propagation is eventually consistent.
func (db *DB) UpdateParentProgress(id string, completedCount, percent int, now time.Time) error {
	_, err := db.Exec(`
		UPDATE tasks
		SET subtasks_completed = ?, percent_complete = ?, version = version + 1, last_updated = ?
		WHERE id = ?
	`, completedCount, percent, formatTime(now), id)
	if err != nil {
		return fmt.Errorf("update parent progress for %s: %w", id, err)
	}
	return nil
}

// CountChildren returns a parent's total and completed child counts.
func (db *DB) CountChildren(parentID string) (total, completed int, err error) {
	row := db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0)
		FROM tasks WHERE parent_task_id = ?
	`, parentID)
	if err := row.Scan(&total, &completed); err != nil {
		return 0, 0, fmt.Errorf("count children of %s: %w", parentID, err)
	}
	return total, completed, nil
}

// DelegateTask records the delegation. With a non-nil expectedVersion
// the UPDATE is guarded by it; either way the version increments.
func (db *DB) DelegateTask(id, toAgentID string, now time.Time, expectedVersion *int) (int64, error) {
	ts := formatTime(now)
	var result sql.Result
	var err error

	if expectedVersion != nil {
		result, err = db.Exec(`
			UPDATE tasks
			SET delegated_to = ?, delegated_at = ?, last_updated = ?, version = version + 1
			WHERE id = ? AND version = ?
		`, toAgentID, ts, ts, id, *expectedVersion)
	} else {
		result, err = db.Exec(`
			UPDATE tasks
			SET delegated_to = ?, delegated_at = ?, last_updated = ?, version = version + 1
			WHERE id = ?
		`, toAgentID, ts, ts, id)
	}
	if err != nil {
		return 0, fmt.Errorf("delegate task %s: %w", id, err)
	}
	return result.RowsAffected()
}

const priorityOrder = `CASE priority
		WHEN 'urgent' THEN 0
		WHEN 'high' THEN 1
		WHEN 'medium' THEN 2
		ELSE 3
	END`

// GetActiveTasks returns an agent's pending, in-progress and blocked
// tasks, most urgent first, oldest first within a priority.
func (db *DB) GetActiveTasks(agentID string) ([]*models.Task, error) {
	return db.queryTasks(`
		SELECT `+taskColumns+` FROM tasks
		WHERE agent_id = ? AND status IN ('pending', 'in_progress', 'blocked')
		ORDER BY `+priorityOrder+`, created_at ASC
	`, agentID)
}

// GetBlockedTasks returns the agent's blocked tasks in active-task order.
func (db *DB) GetBlockedTasks(agentID string) ([]*models.Task, error) {
	return db.queryTasks(`
		SELECT `+taskColumns+` FROM tasks
		WHERE agent_id = ? AND status = 'blocked'
		ORDER BY `+priorityOrder+`, created_at ASC
	`, agentID)
}

// GetNonTerminalTasks returns the agent's tasks that are still live.
func (db *DB) GetNonTerminalTasks(agentID string) ([]*models.Task, error) {
	return db.queryTasks(`
		SELECT `+taskColumns+` FROM tasks
		WHERE agent_id = ? AND status NOT IN ('completed', 'archived')
		ORDER BY created_at ASC
	`, agentID)
}

// GetTaskIDs returns every task id owned by the agent.
func (db *DB) GetTaskIDs(agentID string) ([]string, error) {
	rows, err := db.Query(`SELECT id FROM tasks WHERE agent_id = ?`, agentID)
	if err != nil {
		return nil, fmt.Errorf("get task ids for %s: %w", agentID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan task id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// BlockTask forces a live task into blocked status. Already-terminal
// tasks are left untouched (zero rows changed).
func (db *DB) BlockTask(id string, now time.Time) (int64, error) {
	ts := formatTime(now)
	result, err := db.Exec(`
		UPDATE tasks
		SET status = 'blocked', blocked_since = COALESCE(blocked_since, ?),
			version = version + 1, last_updated = ?
		WHERE id = ? AND status NOT IN ('completed', 'archived')
	`, ts, ts, id)
	if err != nil {
		return 0, fmt.Errorf("block task %s: %w", id, err)
	}
	return result.RowsAffected()
}

// UnblockTask returns a blocked task to pending and clears
// blocked_since.
func (db *DB) UnblockTask(id string, now time.Time) (int64, error) {
	result, err := db.Exec(`
		UPDATE tasks
		SET status = 'pending', blocked_since = NULL, version = version + 1, last_updated = ?
		WHERE id = ? AND status = 'blocked'
	`, formatTime(now), id)
	if err != nil {
		return 0, fmt.Errorf("unblock task %s: %w", id, err)
	}
	return result.RowsAffected()
}

// MarkTaskExecuted stamps last_executed and bumps the execution counter.
func (db *DB) MarkTaskExecuted(id string, at time.Time) error {
	ts := formatTime(at)
	result, err := db.Exec(`
		UPDATE tasks
		SET last_executed = ?, execution_count = execution_count + 1,
			version = version + 1, last_updated = ?
		WHERE id = ?
	`, ts, ts, id)
	if err != nil {
		return fmt.Errorf("mark task %s executed: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mark task %s executed: no such task", id)
	}
	return nil
}

// SetTaskBlockedBy overwrites the blocker list without touching status.
// Intended for dependency repair tooling and tests.
func (db *DB) SetTaskBlockedBy(id string, blockedBy []string) error {
	_, err := db.Exec(`UPDATE tasks SET blocked_by = ? WHERE id = ?`, marshalBlockedBy(blockedBy), id)
	if err != nil {
		return fmt.Errorf("set blocked_by for %s: %w", id, err)
	}
	return nil
}

// queryTasks runs a task query and scans all rows.
func (db *DB) queryTasks(query string, args ...any) ([]*models.Task, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
