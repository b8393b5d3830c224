package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ShayCichocki/hive/pkg/models"
)

const scheduleColumns = `id, agent_id, trigger_type, description, cron_expression, timezone,
	next_execution_at, minimum_interval_seconds, only_when_tasks_pending, enabled,
	last_triggered_at, created_at, updated_at`

func scanSchedule(row rowScanner) (*models.Schedule, error) {
	var s models.Schedule
	var cronExpr, timezone, nextExecution, lastTriggered sql.NullString
	var createdAt, updatedAt string
	var onlyPending, enabled int

	err := row.Scan(&s.ID, &s.AgentID, &s.TriggerType, &s.Description, &cronExpr, &timezone,
		&nextExecution, &s.MinimumIntervalSeconds, &onlyPending, &enabled,
		&lastTriggered, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if cronExpr.Valid {
		s.CronExpression = cronExpr.String
	}
	if timezone.Valid {
		s.Timezone = timezone.String
	}
	s.NextExecutionAt = parseNullableTime(nextExecution)
	s.OnlyWhenTasksPending = onlyPending != 0
	s.Enabled = enabled != 0
	s.LastTriggeredAt = parseNullableTime(lastTriggered)

	created, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	s.CreatedAt = created
	updated, err := parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	s.UpdatedAt = updated

	return &s, nil
}

// CreateSchedule inserts a schedule row.
func (db *DB) CreateSchedule(s *models.Schedule) error {
	_, err := db.Exec(`
		INSERT INTO schedules (`+scheduleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.AgentID, string(s.TriggerType), s.Description, stringOrNil(s.CronExpression),
		stringOrNil(s.Timezone), nullTime(s.NextExecutionAt), s.MinimumIntervalSeconds,
		boolToInt(s.OnlyWhenTasksPending), boolToInt(s.Enabled), nullTime(s.LastTriggeredAt),
		formatTime(s.CreatedAt), formatTime(s.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

// GetSchedule returns the schedule or nil when absent.
func (db *DB) GetSchedule(id string) (*models.Schedule, error) {
	row := db.QueryRow(`SELECT `+scheduleColumns+` FROM schedules WHERE id = ?`, id)
	s, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule %s: %w", id, err)
	}
	return s, nil
}

// ListSchedules returns an agent's schedules, oldest first.
func (db *DB) ListSchedules(agentID string) ([]*models.Schedule, error) {
	return db.querySchedules(`
		SELECT `+scheduleColumns+` FROM schedules WHERE agent_id = ? ORDER BY created_at
	`, agentID)
}

// ListEnabledSchedules returns every enabled schedule. Due-ness is
// evaluated by the schedule service against the trigger type.
func (db *DB) ListEnabledSchedules() ([]*models.Schedule, error) {
	return db.querySchedules(`
		SELECT ` + scheduleColumns + ` FROM schedules WHERE enabled = 1 ORDER BY agent_id, created_at
	`)
}

// MarkScheduleTriggered stamps last_triggered_at and the recomputed
// next execution.
func (db *DB) MarkScheduleTriggered(id string, at time.Time, next *time.Time) error {
	result, err := db.Exec(`
		UPDATE schedules
		SET last_triggered_at = ?, next_execution_at = ?, updated_at = ?
		WHERE id = ?
	`, formatTime(at), nullTime(next), formatTime(at), id)
	if err != nil {
		return fmt.Errorf("mark schedule %s triggered: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mark schedule %s triggered: no such schedule", id)
	}
	return nil
}

// SetScheduleEnabled flips the enabled flag.
func (db *DB) SetScheduleEnabled(id string, enabled bool, now time.Time) error {
	_, err := db.Exec(`
		UPDATE schedules SET enabled = ?, updated_at = ? WHERE id = ?
	`, boolToInt(enabled), formatTime(now), id)
	if err != nil {
		return fmt.Errorf("set schedule %s enabled: %w", id, err)
	}
	return nil
}

func (db *DB) querySchedules(query string, args ...any) ([]*models.Schedule, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*models.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
