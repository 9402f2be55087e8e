package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fathima-sithara/chat-app/internal/apperrors"
	"github.com/fathima-sithara/chat-app/internal/models"
	"github.com/fathima-sithara/chat-app/internal/repository"
)

type UserLookup interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// MessageStore is the durable, append-only record of direct messages.
type MessageStore struct {
	repo  repository.MessageRepository
	users UserLookup
	now   func() time.Time

	mu   sync.Mutex
	last time.Time
}

func NewMessageStore(repo repository.MessageRepository, users UserLookup) *MessageStore {
	return &MessageStore{
		repo:  repo,
		users: users,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// timestamp never goes backwards within the process and is truncated to the
// millisecond precision MongoDB stores, so ties are resolved by seq everywhere.
func (s *MessageStore) timestamp() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := s.now().Truncate(time.Millisecond)
	if ts.Before(s.last) {
		ts = s.last
	}
	s.last = ts
	return ts
}

func (s *MessageStore) Append(ctx context.Context, d models.Draft) (models.Message, error) {
	hasAttachment := d.AttachmentRef != nil && *d.AttachmentRef != ""
	if strings.TrimSpace(d.Content) == "" && !hasAttachment {
		return models.Message{}, apperrors.New(apperrors.ErrValidation, "message content or file is required")
	}
	if d.SenderID == "" || d.ReceiverID == "" {
		return models.Message{}, apperrors.New(apperrors.ErrValidation, "sender and receiver are required")
	}
	if _, err := s.users.FindByID(ctx, d.SenderID); err != nil {
		return models.Message{}, fmt.Errorf("sender %s: %w", d.SenderID, err)
	}
	if d.ReceiverID != d.SenderID {
		if _, err := s.users.FindByID(ctx, d.ReceiverID); err != nil {
			return models.Message{}, fmt.Errorf("receiver %s: %w", d.ReceiverID, err)
		}
	}

	m := models.Message{
		ID:         uuid.NewString(),
		SenderID:   d.SenderID,
		ReceiverID: d.ReceiverID,
		Content:    d.Content,
		CreatedAt:  s.timestamp(),
	}
	if hasAttachment {
		m.AttachmentRef = d.AttachmentRef
		m.ThumbnailRef = d.ThumbnailRef
	}
	if err := s.repo.Insert(ctx, &m); err != nil {
		return models.Message{}, err
	}
	return m, nil
}

func (s *MessageStore) History(ctx context.Context, a, b string) ([]models.Message, error) {
	msgs, err := s.repo.FindConversation(ctx, a, b)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs, nil
}

func (s *MessageStore) ByAttachment(ctx context.Context, ref string) (models.Message, error) {
	return s.repo.FindByAttachment(ctx, ref)
}
