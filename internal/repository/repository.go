//go:generate go run go.uber.org/mock/mockgen -source=repository.go -destination=../mocks/mock_repository.go -package=mocks
package repository

import (
	"context"

	"github.com/fathima-sithara/chat-app/internal/models"
)

// MessageRepository is append-only: there is no update or delete.
type MessageRepository interface {
	// Insert assigns msg.Seq, which is strictly increasing across inserts.
	Insert(ctx context.Context, msg *models.Message) error
	// FindConversation returns messages between a and b in either direction,
	// ordered by created_at then seq.
	FindConversation(ctx context.Context, a, b string) ([]models.Message, error)
	FindByAttachment(ctx context.Context, ref string) (models.Message, error)
}

type UserRepository interface {
	// Create assigns u.ID. Duplicate email or mobile number yields apperrors.ErrConflict.
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	ExistsByEmailOrMobile(ctx context.Context, email, mobileNo string) (bool, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, id string, upd models.UserUpdate) (models.User, error)
	SetBlocked(ctx context.Context, id string, blocked bool) (models.User, error)
	Delete(ctx context.Context, id string) error
}
