package models

import "time"

// Message is immutable once persisted.
type Message struct {
	ID            string    `bson:"_id" json:"_id"`
	SenderID      string    `bson:"sender_id" json:"senderId"`
	ReceiverID    string    `bson:"receiver_id" json:"receiverId"`
	Content       string    `bson:"content" json:"content"`
	AttachmentRef *string   `bson:"attachment_ref,omitempty" json:"filePath"`
	ThumbnailRef  *string   `bson:"thumbnail_ref,omitempty" json:"thumbnailPath,omitempty"`
	CreatedAt     time.Time `bson:"created_at" json:"timestamp"`
	Seq           int64     `bson:"seq" json:"-"`
}

// Draft is a send request before the store assigns identity and time.
type Draft struct {
	SenderID      string
	ReceiverID    string
	Content       string
	AttachmentRef *string
	ThumbnailRef  *string
}

type Participant struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func ParticipantOf(u User) Participant {
	return Participant{ID: u.ID, Name: u.Name, Email: u.Email}
}

// MessageView is the denormalized shape returned over REST and pushed over the socket.
type MessageView struct {
	ID            string      `json:"_id"`
	Content       string      `json:"content"`
	FilePath      *string     `json:"filePath"`
	ThumbnailPath *string     `json:"thumbnailPath,omitempty"`
	Timestamp     time.Time   `json:"timestamp"`
	Sender        Participant `json:"sender"`
	Receiver      Participant `json:"receiver"`
}

func NewMessageView(m Message, sender, receiver User) MessageView {
	return MessageView{
		ID:            m.ID,
		Content:       m.Content,
		FilePath:      m.AttachmentRef,
		ThumbnailPath: m.ThumbnailRef,
		Timestamp:     m.CreatedAt,
		Sender:        ParticipantOf(sender),
		Receiver:      ParticipantOf(receiver),
	}
}

// Involves reports whether userID is the sender or the receiver.
func (m Message) Involves(userID string) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}
