package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// PresenceStore keeps a last-seen record per user under <prefix>:presence:<uid>.
// It is informational only; routing always uses the in-process registry.
// Writes from Observe are applied by one worker in the order they were observed.
type PresenceStore struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
	log     *zap.Logger

	updates chan update
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

type Presence struct {
	Status   string `json:"status"`
	LastSeen int64  `json:"last_seen"`
}

type update struct {
	userID string
	online bool
	at     time.Time
}

const updateBuffer = 1024

func NewPresenceStore(r *redis.Client, prefix string, log *zap.Logger) *PresenceStore {
	s := &PresenceStore{
		client:  r,
		prefix:  prefix,
		timeout: 2 * time.Second,
		log:     log,
		updates: make(chan update, updateBuffer),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *PresenceStore) presenceKey(userID string) string {
	return fmt.Sprintf("%s:presence:%s", s.prefix, userID)
}

func (s *PresenceStore) Record(ctx context.Context, userID string, online bool, at time.Time) error {
	p := Presence{Status: "offline", LastSeen: at.Unix()}
	if online {
		p.Status = "online"
	}
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.presenceKey(userID), b, 0).Err()
}

// Get returns ok=false when nothing was ever recorded for userID.
func (s *PresenceStore) Get(ctx context.Context, userID string) (Presence, bool, error) {
	b, err := s.client.Get(ctx, s.presenceKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Presence{}, false, nil
	}
	if err != nil {
		return Presence{}, false, err
	}
	var p Presence
	if err := json.Unmarshal(b, &p); err != nil {
		return Presence{}, false, err
	}
	return p, true, nil
}

// Observe matches presence.Observer. It never blocks the notification path;
// when the queue is full the transition is dropped and logged.
func (s *PresenceStore) Observe(userID string, online bool) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.updates <- update{userID: userID, online: online, at: time.Now()}:
	default:
		s.log.Warn("presence queue full, transition dropped", zap.String("user_id", userID), zap.Bool("online", online))
	}
}

// Close stops accepting transitions and waits until the queued ones are written.
func (s *PresenceStore) Close() {
	s.once.Do(func() { close(s.done) })
	<-s.stopped
}

func (s *PresenceStore) run() {
	defer close(s.stopped)
	for {
		select {
		case u := <-s.updates:
			s.write(u)
		case <-s.done:
			for {
				select {
				case u := <-s.updates:
					s.write(u)
				default:
					return
				}
			}
		}
	}
}

func (s *PresenceStore) write(u update) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.Record(ctx, u.userID, u.online, u.at); err != nil {
		s.log.Warn("record presence", zap.String("user_id", u.userID), zap.Error(err))
	}
}
