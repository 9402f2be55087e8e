package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/fathima-sithara/chat-app/internal/apperrors"
	"github.com/fathima-sithara/chat-app/internal/models"
)

func ptr(s string) *string { return &s }

func TestMemoryMessageRepository(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("conversation is symmetric and ordered by time then seq", func(t *testing.T) {
		req := require.New(t)

		// Given
		repo := NewMemoryMessageRepository()
		later := &models.Message{ID: "m1", SenderID: "u1", ReceiverID: "u2", Content: "later", CreatedAt: base.Add(time.Second)}
		tieA := &models.Message{ID: "m2", SenderID: "u2", ReceiverID: "u1", Content: "tie a", CreatedAt: base}
		tieB := &models.Message{ID: "m3", SenderID: "u1", ReceiverID: "u2", Content: "tie b", CreatedAt: base}
		other := &models.Message{ID: "m4", SenderID: "u1", ReceiverID: "u3", Content: "elsewhere", CreatedAt: base}
		for _, m := range []*models.Message{later, tieA, tieB, other} {
			req.NoError(repo.Insert(ctx, m))
		}

		// When
		ab, err := repo.FindConversation(ctx, "u1", "u2")
		req.NoError(err)
		ba, err := repo.FindConversation(ctx, "u2", "u1")
		req.NoError(err)

		// Then
		req.Equal(ab, ba)
		req.Len(ab, 3)
		req.Equal([]string{"m2", "m3", "m1"}, []string{ab[0].ID, ab[1].ID, ab[2].ID})
		req.Less(ab[0].Seq, ab[1].Seq)
	})

	t.Run("empty conversation is not an error", func(t *testing.T) {
		req := require.New(t)

		msgs, err := NewMemoryMessageRepository().FindConversation(ctx, "x", "y")

		req.NoError(err)
		req.Empty(msgs)
	})

	t.Run("find by attachment or thumbnail", func(t *testing.T) {
		req := require.New(t)

		// Given
		repo := NewMemoryMessageRepository()
		m := &models.Message{ID: "m1", SenderID: "u1", ReceiverID: "u2", AttachmentRef: ptr("u1/a.png"), ThumbnailRef: ptr("u1/a.png_thumb.jpg")}
		req.NoError(repo.Insert(ctx, m))

		// When
		byRef, err := repo.FindByAttachment(ctx, "u1/a.png")
		req.NoError(err)
		byThumb, err := repo.FindByAttachment(ctx, "u1/a.png_thumb.jpg")
		req.NoError(err)
		_, missErr := repo.FindByAttachment(ctx, "u1/none.png")

		// Then
		req.Equal("m1", byRef.ID)
		req.Equal("m1", byThumb.ID)
		req.ErrorIs(missErr, apperrors.ErrNotFound)
	})
}

func TestMemoryUserRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("create rejects duplicate email or mobile", func(t *testing.T) {
		req := require.New(t)

		// Given
		repo := NewMemoryUserRepository()
		req.NoError(repo.Create(ctx, &models.User{Name: "Ann", Email: "ann@example.com", MobileNo: "111"}))

		// When
		dupEmail := repo.Create(ctx, &models.User{Name: "A2", Email: "ann@example.com", MobileNo: "222"})
		dupMobile := repo.Create(ctx, &models.User{Name: "A3", Email: "a3@example.com", MobileNo: "111"})

		// Then
		req.ErrorIs(dupEmail, apperrors.ErrConflict)
		req.ErrorIs(dupMobile, apperrors.ErrConflict)
	})

	t.Run("update, block and delete", func(t *testing.T) {
		req := require.New(t)

		// Given
		repo := NewMemoryUserRepository()
		u := &models.User{Name: "Bob", Email: "bob@example.com", MobileNo: "333"}
		req.NoError(repo.Create(ctx, u))
		req.NotEmpty(u.ID)

		// When
		updated, err := repo.Update(ctx, u.ID, models.UserUpdate{Name: ptr("Robert")})
		req.NoError(err)
		blocked, err := repo.SetBlocked(ctx, u.ID, true)
		req.NoError(err)
		req.NoError(repo.Delete(ctx, u.ID))

		// Then
		req.Equal("Robert", updated.Name)
		req.True(blocked.IsBlocked)
		_, err = repo.FindByID(ctx, u.ID)
		req.ErrorIs(err, apperrors.ErrNotFound)
		req.ErrorIs(repo.Delete(ctx, u.ID), apperrors.ErrNotFound)
	})
}

func TestConversationFilter(t *testing.T) {
	req := require.New(t)

	f := conversationFilter("u1", "u2")

	or, ok := f["$or"].(bson.A)
	req.True(ok)
	req.Len(or, 2)
	req.Equal(bson.M{"sender_id": "u1", "receiver_id": "u2"}, or[0])
	req.Equal(bson.M{"sender_id": "u2", "receiver_id": "u1"}, or[1])
	req.Equal(bson.D{{Key: "created_at", Value: 1}, {Key: "seq", Value: 1}}, conversationSort())
}
