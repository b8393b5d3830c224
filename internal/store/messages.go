package store

import (
	"database/sql"
	"fmt"

	"github.com/ShayCichocki/hive/pkg/models"
)

const messageColumns = `id, from_agent_id, to_agent_id, timestamp, priority, channel,
	read, action_required, subject, thread_id, in_reply_to, message_path`

func scanMessage(row rowScanner) (*models.Message, error) {
	var m models.Message
	var timestamp string
	var read, actionRequired int
	var subject, threadID, inReplyTo, messagePath sql.NullString

	err := row.Scan(&m.ID, &m.From, &m.To, &timestamp, &m.Priority, &m.Channel,
		&read, &actionRequired, &subject, &threadID, &inReplyTo, &messagePath)
	if err != nil {
		return nil, err
	}

	ts, err := parseTime(timestamp)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp: %w", err)
	}
	m.Timestamp = ts
	m.Read = read != 0
	m.ActionRequired = actionRequired != 0
	m.Subject = subject.String
	m.ThreadID = threadID.String
	m.InReplyTo = inReplyTo.String
	m.MessagePath = messagePath.String

	return &m, nil
}

// InsertMessage records a message's metadata row. The body lives only
// in the inbox file.
func (db *DB) InsertMessage(m *models.Message) error {
	_, err := db.Exec(`
		INSERT INTO messages (`+messageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.From, m.To, formatTime(m.Timestamp), string(m.Priority), string(m.Channel),
		boolToInt(m.Read), boolToInt(m.ActionRequired), stringOrNil(m.Subject),
		stringOrNil(m.ThreadID), stringOrNil(m.InReplyTo), stringOrNil(m.MessagePath))
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// GetMessage returns the message or nil when absent.
func (db *DB) GetMessage(id string) (*models.Message, error) {
	row := db.QueryRow(`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	m, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}
	return m, nil
}

// ListMessagesTo returns messages addressed to an agent, newest first.
func (db *DB) ListMessagesTo(agentID string, unreadOnly bool) ([]*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE to_agent_id = ?`
	if unreadOnly {
		query += ` AND read = 0`
	}
	query += ` ORDER BY timestamp DESC, id DESC`

	rows, err := db.Query(query, agentID)
	if err != nil {
		return nil, fmt.Errorf("list messages to %s: %w", agentID, err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// MarkMessageRead flips the read flag and records the file's new
// location under inbox/read.
func (db *DB) MarkMessageRead(id, newPath string) error {
	result, err := db.Exec(`
		UPDATE messages SET read = 1, message_path = ? WHERE id = ?
	`, stringOrNil(newPath), id)
	if err != nil {
		return fmt.Errorf("mark message %s read: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mark message %s read: no such message", id)
	}
	return nil
}
