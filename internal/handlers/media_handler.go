package handlers

import (
	"bufio"
	"errors"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/minio/minio-go/v7"
	"github.com/sethshivam11/social-media-backend/internal/httpx"
	"github.com/sethshivam11/social-media-backend/internal/models"
	"github.com/sethshivam11/social-media-backend/internal/service"
	"github.com/sethshivam11/social-media-backend/internal/storage"
)

type MediaHandler struct {
	s3          *storage.S3Storage
	chatService *service.ChatService
}

func NewMediaHandler(s3 *storage.S3Storage, chatService *service.ChatService) *MediaHandler {
	return &MediaHandler{s3: s3, chatService: chatService}
}

func normalizeETag(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "W/")
	v = strings.Trim(v, "\"")
	return v
}

// chatIDFromKey extracts the owning chat from an object key:
// attachments/<chatID>/<uuid>.<ext> or icons/<chatID>-<uuid>.jpg.
func chatIDFromKey(key string) (uint, bool) {
	var idPart string
	switch {
	case strings.HasPrefix(key, "attachments/"):
		rest := strings.TrimPrefix(key, "attachments/")
		idPart, _, _ = strings.Cut(rest, "/")
	case strings.HasPrefix(key, "icons/"):
		rest := strings.TrimPrefix(key, "icons/")
		idPart, _, _ = strings.Cut(rest, "-")
	default:
		return 0, false
	}
	id, err := strconv.ParseUint(idPart, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// GetMedia streams a stored attachment or group icon to a chat member.
func (h *MediaHandler) GetMedia(c *fiber.Ctx) error {
	if h.s3 == nil {
		return httpx.Error(c, fiber.StatusServiceUnavailable, "storage_not_configured", "Storage not configured")
	}

	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	keyParam := strings.TrimSpace(c.Params("*"))
	key, err := storage.SafeJoinObjectPath("", keyParam)
	if err != nil {
		return httpx.NotFound(c, "not_found", "Not found")
	}

	// The stock group icon is not tied to any chat.
	if key != models.DefaultGroupIcon {
		chatID, ok := chatIDFromKey(key)
		if !ok {
			return httpx.NotFound(c, "not_found", "Not found")
		}
		member, err := h.chatService.IsMember(chatID, userID)
		if err != nil {
			return httpx.Internal(c, "media_fetch_failed")
		}
		if !member {
			return httpx.NotFound(c, "not_found", "Not found")
		}
	}

	obj, st, err := h.s3.GetObject(c.Context(), key)
	if err != nil {
		log.Printf("[media] get error key=%q err=%v", key, err)
		// Hide details.
		var resp minio.ErrorResponse
		if errors.As(err, &resp) {
			if resp.StatusCode == 404 || resp.Code == "NoSuchKey" || resp.Code == "NoSuchObject" {
				return httpx.NotFound(c, "not_found", "Not found")
			}
		}
		return httpx.Internal(c, "media_fetch_failed")
	}

	etag := st.ETag
	if etag != "" {
		c.Set("ETag", "\""+etag+"\"")
		if inm := normalizeETag(c.Get("If-None-Match")); inm != "" && inm == normalizeETag(etag) {
			_ = obj.Close()
			return c.SendStatus(fiber.StatusNotModified)
		}
	}
	if !st.LastModified.IsZero() {
		c.Set("Last-Modified", st.LastModified.UTC().Format(time.RFC1123))
	}

	c.Set("Cache-Control", "private, max-age=31536000, immutable")
	if st.ContentType != "" {
		c.Set(fiber.HeaderContentType, st.ContentType)
	} else {
		c.Set(fiber.HeaderContentType, "application/octet-stream")
	}
	if st.Size > 0 {
		c.Set("Content-Length", strconv.FormatInt(st.Size, 10))
	}

	// Stream object while capturing any mid-stream errors.
	// (Fiber versions vary; use underlying fasthttp stream writer.)
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			_ = obj.Close()
		}()

		n, copyErr := io.Copy(w, obj)
		flushErr := w.Flush()

		if copyErr != nil {
			log.Printf("[media] stream error key=%q copied=%d err=%v", key, n, copyErr)
			return
		}
		if flushErr != nil {
			log.Printf("[media] stream flush error key=%q copied=%d err=%v", key, n, flushErr)
		}
	})
	return nil
}
