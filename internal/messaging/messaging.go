// Package messaging moves messages between agents as markdown files
// with a small frontmatter header, mirrored by metadata rows in the
// store. The files are the source of the body text; the rows exist for
// cheap queries.
package messaging

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/hive/internal/errdefs"
	"github.com/ShayCichocki/hive/pkg/models"
)

// GenerateMessageID returns msg-<unix-ms>-<6 random chars>. The random
// suffix keeps ids distinct even when two messages land in the same
// millisecond.
func GenerateMessageID() string {
	return "msg-" + strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + uuid.NewString()[:6]
}

// FormatMessageFile renders the message as frontmatter between ---
// delimiters followed by two blank lines and the body. String values
// are double-quoted with embedded quotes escaped; booleans are bare.
// Optional keys (subject, threadId, inReplyTo) are omitted when empty.
func FormatMessageFile(msg *models.Message) []byte {
	var b strings.Builder
	b.WriteString("---\n")
	writeQuoted(&b, "id", msg.ID)
	writeQuoted(&b, "from", msg.From)
	writeQuoted(&b, "to", msg.To)
	writeQuoted(&b, "timestamp", msg.Timestamp.UTC().Format(time.RFC3339))
	writeQuoted(&b, "priority", string(msg.Priority))
	writeQuoted(&b, "channel", string(msg.Channel))
	fmt.Fprintf(&b, "read: %t\n", msg.Read)
	fmt.Fprintf(&b, "actionRequired: %t\n", msg.ActionRequired)
	if msg.Subject != "" {
		writeQuoted(&b, "subject", msg.Subject)
	}
	if msg.ThreadID != "" {
		writeQuoted(&b, "threadId", msg.ThreadID)
	}
	if msg.InReplyTo != "" {
		writeQuoted(&b, "inReplyTo", msg.InReplyTo)
	}
	b.WriteString("---\n\n\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}

func writeQuoted(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteString(`: "`)
	b.WriteString(strings.ReplaceAll(value, `"`, `\"`))
	b.WriteString("\"\n")
}

// frontmatter is the YAML shape of the header block.
type frontmatter struct {
	ID             string `yaml:"id"`
	From           string `yaml:"from"`
	To             string `yaml:"to"`
	Timestamp      string `yaml:"timestamp"`
	Priority       string `yaml:"priority"`
	Channel        string `yaml:"channel"`
	Read           bool   `yaml:"read"`
	ActionRequired bool   `yaml:"actionRequired"`
	Subject        string `yaml:"subject"`
	ThreadID       string `yaml:"threadId"`
	InReplyTo      string `yaml:"inReplyTo"`
}

// ParseMessageFile decodes a message file written by FormatMessageFile.
// Files without a frontmatter block, with undecodable YAML, or with an
// unreadable timestamp fail as CORRUPTED.
func ParseMessageFile(data []byte) (*models.Message, error) {
	text := string(data)
	if !strings.HasPrefix(text, "---\n") {
		return nil, errdefs.Corrupted("message file has no frontmatter block")
	}
	rest := text[len("---\n"):]
	parts := strings.SplitN(rest, "\n---", 2)
	if len(parts) != 2 {
		return nil, errdefs.Corrupted("message frontmatter is not terminated")
	}

	var fm frontmatter
	if err := yaml.Unmarshal([]byte(parts[0]), &fm); err != nil {
		return nil, errdefs.Wrap(errdefs.KindCorrupted, err, "decode message frontmatter")
	}

	msg := &models.Message{
		ID:             fm.ID,
		From:           fm.From,
		To:             fm.To,
		Priority:       models.MessagePriority(fm.Priority),
		Channel:        models.MessageChannel(fm.Channel),
		Read:           fm.Read,
		ActionRequired: fm.ActionRequired,
		Subject:        fm.Subject,
		ThreadID:       fm.ThreadID,
		InReplyTo:      fm.InReplyTo,
		Body:           strings.TrimLeft(parts[1], "\n"),
	}
	if fm.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, fm.Timestamp)
		if err != nil {
			return nil, errdefs.Wrap(errdefs.KindCorrupted, err, "parse message timestamp %q", fm.Timestamp)
		}
		msg.Timestamp = ts.UTC()
	}
	return msg, nil
}
