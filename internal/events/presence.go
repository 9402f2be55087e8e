package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-app/internal/models"
)

// PresenceObserver returns a presence.Observer that publishes presence.changed
// without blocking the registry's notification path.
func PresenceObserver(pub Publisher, topic string, log *zap.Logger) func(userID string, online bool) {
	return func(userID string, online bool) {
		evt := models.PresenceChangedEvent{UserID: userID, Online: online, At: time.Now().UTC()}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := pub.Publish(ctx, topic, userID, evt); err != nil {
				log.Debug("publish presence event", zap.String("user_id", userID), zap.Error(err))
			}
		}()
	}
}
