package model

import (
	"encoding/json"
	"time"
)

// NotificationEvent is the wire format of a single message on the broker
// channel. An empty UserID means the event is a broadcast.
type NotificationEvent struct {
	UserID string          `json:"userId,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Targeted reports whether the event addresses a single client.
func (e NotificationEvent) Targeted() bool {
	return e.UserID != ""
}

// Payload returns the bytes to push to a client: the data field when present,
// otherwise the whole event body.
func (e NotificationEvent) Payload(raw []byte) []byte {
	if len(e.Data) > 0 && string(e.Data) != "null" {
		return e.Data
	}
	return raw
}

// NotificationRecord is a persisted notification row.
type NotificationRecord struct {
	ID          int64     `json:"id"`
	OwnerID     string    `json:"user_id"`
	Message     string    `json:"message"`
	ChannelType string    `json:"channel_type"`
	Delivered   bool      `json:"is_sent"`
	CreatedAt   time.Time `json:"created_at"`
}

// EventPayload is the payload published by the write path.
type EventPayload struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}
