package models

import "time"

type MessageSentEvent struct {
	MessageID     string    `json:"message_id"`
	SenderID      string    `json:"sender_id"`
	ReceiverID    string    `json:"receiver_id"`
	HasAttachment bool      `json:"has_attachment"`
	Delivered     bool      `json:"delivered"`
	CreatedAt     time.Time `json:"created_at"`
}

type PresenceChangedEvent struct {
	UserID string    `json:"user_id"`
	Online bool      `json:"online"`
	At     time.Time `json:"at"`
}
