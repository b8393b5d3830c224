package models

import "time"

// MessagePriority is the delivery priority of an inbox message.
type MessagePriority string

const (
	MessagePriorityLow    MessagePriority = "low"
	MessagePriorityNormal MessagePriority = "normal"
	MessagePriorityHigh   MessagePriority = "high"
	MessagePriorityUrgent MessagePriority = "urgent"
)

// Valid returns true if the priority is a known value.
func (p MessagePriority) Valid() bool {
	switch p {
	case MessagePriorityLow, MessagePriorityNormal, MessagePriorityHigh, MessagePriorityUrgent:
		return true
	default:
		return false
	}
}

// MessageChannel is the transport a message targets.
type MessageChannel string

const (
	MessageChannelInternal MessageChannel = "internal"
	MessageChannelSlack    MessageChannel = "slack"
	MessageChannelTelegram MessageChannel = "telegram"
	MessageChannelEmail    MessageChannel = "email"
)

// Valid returns true if the channel is a known value.
func (c MessageChannel) Valid() bool {
	switch c {
	case MessageChannelInternal, MessageChannelSlack, MessageChannelTelegram, MessageChannelEmail:
		return true
	default:
		return false
	}
}

// Message is an inter-agent message. The body lives in the inbox file;
// the store keeps the metadata row plus the file path.
type Message struct {
	ID             string          `json:"id"`
	From           string          `json:"from"`
	To             string          `json:"to"`
	Timestamp      time.Time       `json:"timestamp"`
	Priority       MessagePriority `json:"priority"`
	Channel        MessageChannel  `json:"channel"`
	Read           bool            `json:"read"`
	ActionRequired bool            `json:"action_required"`
	Subject        string          `json:"subject,omitempty"`
	ThreadID       string          `json:"thread_id,omitempty"`
	InReplyTo      string          `json:"in_reply_to,omitempty"`
	// Body is free-form markdown; not persisted in the store.
	Body string `json:"body,omitempty"`
	// MessagePath is where the message file landed, once written.
	MessagePath string `json:"message_path,omitempty"`
}
