package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-app/internal/apperrors"
	"github.com/fathima-sithara/chat-app/internal/middleware"
	"github.com/fathima-sithara/chat-app/internal/models"
	"github.com/fathima-sithara/chat-app/internal/service"
	"github.com/fathima-sithara/chat-app/internal/storage"
	"github.com/fathima-sithara/chat-app/internal/utils"
)

// AttachmentLookup finds the message that owns a stored attachment.
type AttachmentLookup interface {
	ByAttachment(ctx context.Context, ref string) (models.Message, error)
}

type ChatHandler struct {
	router     *service.MessageRouter
	uploader   *storage.Uploader
	blobs      storage.BlobStore
	messages   AttachmentLookup
	presignTTL time.Duration
	log        *zap.Logger
}

func NewChatHandler(router *service.MessageRouter, uploader *storage.Uploader, blobs storage.BlobStore, messages AttachmentLookup, presignTTL time.Duration, log *zap.Logger) *ChatHandler {
	return &ChatHandler{
		router:     router,
		uploader:   uploader,
		blobs:      blobs,
		messages:   messages,
		presignTTL: presignTTL,
		log:        log,
	}
}

// POST /api/chat/messages/:receiverId (multipart: content, optional file)
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	ctx := c.UserContext()
	senderID := middleware.UserID(c)
	receiverID := c.Params("receiverId")
	if strings.TrimSpace(receiverID) == "" {
		return apperrors.New(apperrors.ErrValidation, "receiver id is required")
	}

	draft := models.Draft{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    c.FormValue("content"),
	}

	var att *storage.Attachment
	fh, err := c.FormFile("file")
	switch {
	case err == nil:
		stored, err := h.storeUpload(ctx, senderID, fh)
		if err != nil {
			return err
		}
		att = &stored
		draft.AttachmentRef = &stored.Key
		draft.ThumbnailRef = stored.ThumbnailKey
	case errors.Is(err, fasthttp.ErrMissingFile), errors.Is(err, fasthttp.ErrNoMultipartForm):
	default:
		return apperrors.New(apperrors.ErrValidation, "invalid multipart body")
	}

	view, err := h.router.SendMessage(ctx, draft)
	if err != nil {
		// SendMessage only fails when the message was not stored
		if att != nil {
			h.uploader.Discard(context.WithoutCancel(ctx), *att)
		}
		return err
	}
	return utils.JSONMessage(c, fiber.StatusCreated, "Message sent", view)
}

func (h *ChatHandler) storeUpload(ctx context.Context, ownerID string, fh *multipart.FileHeader) (storage.Attachment, error) {
	f, err := fh.Open()
	if err != nil {
		return storage.Attachment{}, apperrors.New(apperrors.ErrValidation, "cannot read uploaded file")
	}
	defer f.Close()
	return h.uploader.Store(ctx, ownerID, fh.Filename, f)
}

// GET /api/chat/messages/:receiverId
func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	views, err := h.router.FetchHistory(c.UserContext(), middleware.UserID(c), c.Params("receiverId"))
	if err != nil {
		return err
	}
	return c.JSON(views)
}

// GET /api/chat/attachments/* serves a blob to the two participants of its message.
func (h *ChatHandler) GetAttachment(c *fiber.Ctx) error {
	ctx := c.UserContext()
	key := c.Params("*")
	if key == "" {
		return apperrors.ErrNotFound
	}

	msg, err := h.messages.ByAttachment(ctx, key)
	if err != nil {
		return err
	}
	if !msg.Involves(middleware.UserID(c)) {
		return apperrors.New(apperrors.ErrForbidden, "not a participant of this conversation")
	}

	if p, ok := h.blobs.(storage.Presigner); ok && h.presignTTL > 0 {
		url, err := p.PresignURL(ctx, key, h.presignTTL)
		if err == nil {
			return c.Redirect(url, fiber.StatusFound)
		}
		h.log.Warn("presign failed, streaming instead", zap.String("key", key), zap.Error(err))
	}

	rc, info, err := h.blobs.Open(ctx, key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return apperrors.New(apperrors.ErrNotFound, "attachment not found")
	}
	if err != nil {
		return err
	}
	if info.ContentType != "" {
		c.Set(fiber.HeaderContentType, info.ContentType)
	}
	c.Set(fiber.HeaderCacheControl, "private, max-age=3600")
	return c.SendStream(rc, int(info.Size))
}
