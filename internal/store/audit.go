package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/hive/pkg/models"
)

// AppendAudit inserts one audit row. The id and timestamp are generated
// when the caller leaves them empty. Rows can only be appended; the
// schema's triggers reject UPDATE and DELETE.
func (db *DB) AppendAudit(e *models.AuditEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = e.Timestamp
	}

	var details any
	if len(e.Details) > 0 {
		data, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
		details = string(data)
	}

	_, err := db.Exec(`
		INSERT INTO audit_log (id, timestamp, agent_id, action, target_agent_id, success, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, formatTime(e.Timestamp), nullString(e.AgentID), string(e.Action),
		nullString(e.TargetAgentID), boolToInt(e.Success), details, formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// AuditFilter narrows ListAuditEvents. Zero values match everything.
type AuditFilter struct {
	AgentID       string
	TargetAgentID string
	Action        models.AuditAction
	Limit         int
}

// ListAuditEvents returns audit rows newest first.
func (db *DB) ListAuditEvents(filter AuditFilter) ([]*models.AuditEvent, error) {
	query := `
		SELECT id, timestamp, agent_id, action, target_agent_id, success, details, created_at
		FROM audit_log WHERE 1=1`
	var args []any

	if filter.AgentID != "" {
		query += ` AND agent_id = ?`
		args = append(args, filter.AgentID)
	}
	if filter.TargetAgentID != "" {
		query += ` AND target_agent_id = ?`
		args = append(args, filter.TargetAgentID)
	}
	if filter.Action != "" {
		query += ` AND action = ?`
		args = append(args, string(filter.Action))
	}
	query += ` ORDER BY timestamp DESC, rowid DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []*models.AuditEvent
	for rows.Next() {
		var e models.AuditEvent
		var timestamp, createdAt string
		var agentID, targetAgentID, details sql.NullString
		var success int

		err := rows.Scan(&e.ID, &timestamp, &agentID, &e.Action, &targetAgentID,
			&success, &details, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		ts, err := parseTime(timestamp)
		if err != nil {
			return nil, fmt.Errorf("parse audit timestamp: %w", err)
		}
		e.Timestamp = ts
		created, err := parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse audit created_at: %w", err)
		}
		e.CreatedAt = created
		if agentID.Valid {
			v := agentID.String
			e.AgentID = &v
		}
		if targetAgentID.Valid {
			v := targetAgentID.String
			e.TargetAgentID = &v
		}
		e.Success = success != 0
		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &e.Details); err != nil {
				// Keep the raw payload reachable rather than failing the read.
				e.Details = map[string]any{"raw": details.String}
			}
		}

		events = append(events, &e)
	}
	return events, rows.Err()
}
