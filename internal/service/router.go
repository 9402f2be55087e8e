//go:generate go run go.uber.org/mock/mockgen -source=router.go -destination=../mocks/mock_router.go -package=mocks
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-app/internal/apperrors"
	"github.com/fathima-sithara/chat-app/internal/events"
	"github.com/fathima-sithara/chat-app/internal/metrics"
	"github.com/fathima-sithara/chat-app/internal/models"
)

// EventReceiveMessage is the socket event carrying a new message to its receiver.
const EventReceiveMessage = "receive_message"

// Pusher is the live transport. A false return is a delivery miss, not a failure.
type Pusher interface {
	PushToUser(userID, event string, payload any) bool
}

type MessageStore interface {
	Append(ctx context.Context, d models.Draft) (models.Message, error)
	History(ctx context.Context, a, b string) ([]models.Message, error)
}

type UserLookup interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// MessageRouter persists first and pushes second, so a message that was
// acknowledged to the sender is always in history.
type MessageRouter struct {
	store     MessageStore
	users     UserLookup
	pusher    Pusher
	publisher events.Publisher
	topic     string
	log       *zap.Logger
}

func NewMessageRouter(store MessageStore, users UserLookup, pusher Pusher, publisher events.Publisher, topic string, log *zap.Logger) *MessageRouter {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &MessageRouter{
		store:     store,
		users:     users,
		pusher:    pusher,
		publisher: publisher,
		topic:     topic,
		log:       log,
	}
}

func (r *MessageRouter) SendMessage(ctx context.Context, d models.Draft) (models.MessageView, error) {
	msg, err := r.store.Append(ctx, d)
	if err != nil {
		return models.MessageView{}, err
	}

	// from here on the message is stored; nothing below fails the send
	view := r.view(ctx, msg, newUserCache(r.users, r.log))

	delivered := r.pusher.PushToUser(msg.ReceiverID, EventReceiveMessage, view)
	if !delivered {
		r.log.Debug("receiver not reachable, message kept for history",
			zap.String("message_id", msg.ID), zap.String("receiver_id", msg.ReceiverID))
	}
	metrics.MessagesSent.Inc()

	evt := models.MessageSentEvent{
		MessageID:     msg.ID,
		SenderID:      msg.SenderID,
		ReceiverID:    msg.ReceiverID,
		HasAttachment: msg.AttachmentRef != nil,
		Delivered:     delivered,
		CreatedAt:     msg.CreatedAt,
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := r.publisher.Publish(pubCtx, r.topic, msg.ReceiverID, evt); err != nil {
		r.log.Warn("publish message.sent", zap.String("message_id", msg.ID), zap.Error(err))
	}

	return view, nil
}

func (r *MessageRouter) FetchHistory(ctx context.Context, a, b string) ([]models.MessageView, error) {
	msgs, err := r.store.History(ctx, a, b)
	if err != nil {
		return nil, err
	}

	cache := newUserCache(r.users, r.log)
	out := make([]models.MessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, r.view(ctx, m, cache))
	}
	return out, nil
}

func (r *MessageRouter) view(ctx context.Context, m models.Message, cache *userCache) models.MessageView {
	return models.NewMessageView(m, cache.get(ctx, m.SenderID), cache.get(ctx, m.ReceiverID))
}

// userCache lives for one call; a conversation has at most two distinct users.
type userCache struct {
	users UserLookup
	seen  map[string]models.User
	log   *zap.Logger
}

func newUserCache(users UserLookup, log *zap.Logger) *userCache {
	return &userCache{users: users, seen: make(map[string]models.User, 2), log: log}
}

// get never fails. A participant that was deleted or cannot be read is
// rendered with its id only, so stored messages stay readable.
func (c *userCache) get(ctx context.Context, id string) models.User {
	if u, ok := c.seen[id]; ok {
		return u
	}
	u, err := c.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.log.Debug("participant no longer exists", zap.String("user_id", id))
		} else {
			c.log.Warn("participant lookup failed", zap.String("user_id", id), zap.Error(err))
		}
		u = models.User{ID: id}
	}
	c.seen[id] = u
	return u
}

