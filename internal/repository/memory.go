package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/fathima-sithara/chat-app/internal/apperrors"
	"github.com/fathima-sithara/chat-app/internal/models"
)

type MemoryMessageRepository struct {
	mu     sync.RWMutex
	seq    int64
	byPair map[string][]models.Message
}

func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{byPair: make(map[string][]models.Message)}
}

// pairKey is order-independent so {a,b} and {b,a} share one slice.
func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

func (r *MemoryMessageRepository) Insert(_ context.Context, m *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	m.Seq = r.seq
	key := pairKey(m.SenderID, m.ReceiverID)
	r.byPair[key] = append(r.byPair[key], *m)
	return nil
}

func (r *MemoryMessageRepository) FindConversation(_ context.Context, a, b string) ([]models.Message, error) {
	r.mu.RLock()
	msgs := r.byPair[pairKey(a, b)]
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

func (r *MemoryMessageRepository) FindByAttachment(_ context.Context, ref string) (models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, msgs := range r.byPair {
		for _, m := range msgs {
			if (m.AttachmentRef != nil && *m.AttachmentRef == ref) || (m.ThumbnailRef != nil && *m.ThumbnailRef == ref) {
				return m, nil
			}
		}
	}
	return models.Message{}, apperrors.ErrNotFound
}

type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
	order []string
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]models.User)}
}

func (r *MemoryUserRepository) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email || (u.MobileNo != "" && existing.MobileNo == u.MobileNo) {
			return apperrors.New(apperrors.ErrConflict, "email or mobile number already exists")
		}
	}
	now := time.Now().UTC()
	u.ID = primitive.NewObjectID().Hex()
	u.CreatedAt, u.UpdatedAt = now, now
	r.users[u.ID] = *u
	r.order = append(r.order, u.ID)
	return nil
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return models.User{}, apperrors.ErrNotFound
	}
	return u, nil
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, apperrors.ErrNotFound
}

func (r *MemoryUserRepository) ExistsByEmailOrMobile(_ context.Context, email, mobileNo string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email || (mobileNo != "" && u.MobileNo == mobileNo) {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryUserRepository) List(_ context.Context) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.User, 0, len(r.order))
	for _, id := range r.order {
		if u, ok := r.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *MemoryUserRepository) Update(_ context.Context, id string, upd models.UserUpdate) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return models.User{}, apperrors.ErrNotFound
	}
	for otherID, other := range r.users {
		if otherID == id {
			continue
		}
		if (upd.Email != nil && other.Email == *upd.Email) || (upd.MobileNo != nil && other.MobileNo == *upd.MobileNo) {
			return models.User{}, apperrors.New(apperrors.ErrConflict, "email or mobile number already exists")
		}
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.MobileNo != nil {
		u.MobileNo = *upd.MobileNo
	}
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return u, nil
}

func (r *MemoryUserRepository) SetBlocked(_ context.Context, id string, blocked bool) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return models.User{}, apperrors.ErrNotFound
	}
	u.IsBlocked = blocked
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return u, nil
}

func (r *MemoryUserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.users, id)
	return nil
}
