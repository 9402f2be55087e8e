package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-app/internal/apperrors"
	"github.com/fathima-sithara/chat-app/internal/metrics"
)

const (
	thumbSuffix = "_thumb.jpg"
	thumbWidth  = 320
)

// allowed maps a lowercase extension to the sniffed types it may carry.
// Office formats are zip or OLE containers, so the container type is accepted too.
var allowed = map[string][]string{
	".jpg":  {"image/jpeg"},
	".jpeg": {"image/jpeg"},
	".png":  {"image/png"},
	".gif":  {"image/gif"},
	".pdf":  {"application/pdf"},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip"},
	".xlsx": {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "application/zip"},
	".xls":  {"application/vnd.ms-excel", "application/x-ole-storage"},
	".mp4":  {"video/mp4"},
	".mov":  {"video/quicktime"},
}

var thumbnailed = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Attachment is what the message store records about an uploaded file.
type Attachment struct {
	Key          string
	ThumbnailKey *string
	ContentType  string
	Size         int64
}

type Uploader struct {
	store    BlobStore
	maxBytes int64
	now      func() time.Time
	log      *zap.Logger
}

func NewUploader(store BlobStore, maxBytes int64, log *zap.Logger) *Uploader {
	return &Uploader{store: store, maxBytes: maxBytes, now: time.Now, log: log}
}

// Store validates and persists one upload. The blob is durable when Store returns.
func (u *Uploader) Store(ctx context.Context, ownerID, filename string, r io.Reader) (Attachment, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	types, ok := allowed[ext]
	if !ok {
		return Attachment{}, apperrors.Newf(apperrors.ErrUnsupportedMedia, "file type %q is not allowed", ext)
	}

	data, err := io.ReadAll(io.LimitReader(r, u.maxBytes+1))
	if err != nil {
		return Attachment{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > u.maxBytes {
		return Attachment{}, apperrors.Newf(apperrors.ErrTooLarge, "file exceeds %d bytes", u.maxBytes)
	}
	if len(data) == 0 {
		return Attachment{}, apperrors.New(apperrors.ErrValidation, "file is empty")
	}

	mt := mimetype.Detect(data)
	if !matches(mt, types) {
		return Attachment{}, apperrors.Newf(apperrors.ErrUnsupportedMedia, "content %s does not match %s", mt.String(), ext)
	}

	key := u.key(ownerID, filename)
	if err := u.store.Put(ctx, key, mt.String(), data); err != nil {
		return Attachment{}, err
	}
	att := Attachment{Key: key, ContentType: mt.String(), Size: int64(len(data))}

	if thumbnailed[ext] {
		metrics.AttachmentsStored.WithLabelValues("image").Inc()
		if thumb, err := makeThumbnail(data); err != nil {
			u.log.Warn("thumbnail skipped", zap.String("key", key), zap.Error(err))
		} else if err := u.store.Put(ctx, key+thumbSuffix, "image/jpeg", thumb); err != nil {
			u.log.Warn("thumbnail upload failed", zap.String("key", key), zap.Error(err))
		} else {
			tk := key + thumbSuffix
			att.ThumbnailKey = &tk
		}
	} else {
		metrics.AttachmentsStored.WithLabelValues("file").Inc()
	}
	return att, nil
}

// Discard removes a stored attachment whose message never made it to the store.
func (u *Uploader) Discard(ctx context.Context, a Attachment) {
	if err := u.store.Delete(ctx, a.Key); err != nil {
		u.log.Warn("discard attachment", zap.String("key", a.Key), zap.Error(err))
	}
	if a.ThumbnailKey != nil {
		if err := u.store.Delete(ctx, *a.ThumbnailKey); err != nil {
			u.log.Warn("discard thumbnail", zap.String("key", *a.ThumbnailKey), zap.Error(err))
		}
	}
}

func (u *Uploader) key(ownerID, filename string) string {
	name := unsafeName.ReplaceAllString(filepath.Base(filename), "_")
	return fmt.Sprintf("%s/%d-%s-%s", ownerID, u.now().UnixMilli(), uuid.NewString(), name)
}

func matches(mt *mimetype.MIME, types []string) bool {
	for m := mt; m != nil; m = m.Parent() {
		for _, t := range types {
			if m.Is(t) {
				return true
			}
		}
	}
	return false
}

func makeThumbnail(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	if img.Bounds().Dx() > thumbWidth {
		img = imaging.Resize(img, thumbWidth, 0, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
