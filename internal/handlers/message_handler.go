package handlers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sethshivam11/social-media-backend/internal/apperr"
	"github.com/sethshivam11/social-media-backend/internal/httpx"
	"github.com/sethshivam11/social-media-backend/internal/models"
	"github.com/sethshivam11/social-media-backend/internal/service"
	"github.com/sethshivam11/social-media-backend/internal/storage"
	"github.com/sethshivam11/social-media-backend/internal/validation"
)

type MessageHandler struct {
	messageService *service.MessageService
	s3             *storage.S3Storage
}

func NewMessageHandler(messageService *service.MessageService, s3 *storage.S3Storage) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		s3:             s3,
	}
}

func messageIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid message id")
	}
	return uint(id), nil
}

func (h *MessageHandler) SendMessage(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	chatID, err := chatIDParam(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat ID")
	}

	var input service.SendMessageInput
	if fileHeader, ferr := c.FormFile("attachment"); ferr == nil {
		// Multipart upload: fields ride alongside the attachment.
		input.Content = c.FormValue("content")
		input.Kind = models.MessageKind(c.FormValue("kind"))
		input.ReplyExcerpt = c.FormValue("reply_excerpt")

		if h.s3 == nil {
			return httpx.Error(c, fiber.StatusServiceUnavailable, "storage_not_configured", "Storage not configured")
		}

		contentType := fileHeader.Header.Get("Content-Type")
		if input.Kind == "" {
			input.Kind = models.MessageKind(storage.KindForContentType(contentType))
		}
		// Reject a bad kind before paying for the upload.
		if !validation.KindAllowed(string(input.Kind)) {
			return httpx.BadRequest(c, "invalid_kind", "Unsupported message kind")
		}

		f, err := fileHeader.Open()
		if err != nil {
			return httpx.BadRequest(c, "invalid_attachment", "Invalid attachment upload")
		}
		defer f.Close()

		ctx, cancel := context.WithTimeout(c.Context(), 30*time.Second)
		defer cancel()

		key := storage.AttachmentKey(chatID, contentType)
		if _, err := h.s3.PutObject(ctx, key, f, fileHeader.Size, contentType); err != nil {
			return httpx.FromError(c, apperr.Wrap(apperr.ErrUploadFailed, "attachment upload failed"), "attachment_upload_failed")
		}
		input.AttachmentKey = key
	} else if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	input.ChatID = chatID
	if !validation.KindAllowed(string(input.Kind)) {
		return httpx.BadRequest(c, "invalid_kind", "Unsupported message kind")
	}

	message, err := h.messageService.Send(userID, input)
	if err != nil {
		return httpx.FromError(c, err, "send_message_failed")
	}

	return c.Status(fiber.StatusCreated).JSON(message.ToResponse())
}

func (h *MessageHandler) GetMessages(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	chatID, err := chatIDParam(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat ID")
	}

	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	var cursor uint
	if cursorStr := c.Query("cursor"); cursorStr != "" {
		parsed, err := strconv.ParseUint(cursorStr, 10, 32)
		if err != nil {
			return httpx.BadRequest(c, "invalid_cursor", "Invalid cursor")
		}
		cursor = uint(parsed)
	}

	messages, err := h.messageService.ListMessages(chatID, userID, cursor, limit)
	if err != nil {
		return httpx.FromError(c, err, "fetch_messages_failed")
	}

	responses := make([]interface{}, len(messages))
	for i := range messages {
		responses[i] = messages[i].ToResponse()
	}

	result := fiber.Map{
		"messages": responses,
		"count":    len(messages),
	}
	if len(messages) > 0 {
		// Messages are returned newest-first.
		// Use the last element (oldest in this page) as the cursor for loading older messages.
		result["next_cursor"] = messages[len(messages)-1].ID
	}

	return c.JSON(result)
}

type EditMessageRequest struct {
	Content string `json:"content"`
}

func (h *MessageHandler) EditMessage(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	messageID, err := messageIDParam(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_message_id", "Invalid message ID")
	}

	var req EditMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	content := validation.TrimAndLimit(req.Content, validation.MaxMessageLength())
	if content == "" {
		return httpx.BadRequest(c, "missing_content", "Content is required")
	}

	message, err := h.messageService.Edit(messageID, userID, content)
	if err != nil {
		return httpx.FromError(c, err, "edit_message_failed")
	}
	return c.JSON(message.ToResponse())
}

func (h *MessageHandler) DeleteMessage(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	messageID, err := messageIDParam(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_message_id", "Invalid message ID")
	}

	if err := h.messageService.Delete(messageID, userID); err != nil {
		return httpx.FromError(c, err, "delete_message_failed")
	}
	return c.JSON(fiber.Map{"message": "Message deleted successfully"})
}

type ReactRequest struct {
	Content string `json:"content"`
}

func (h *MessageHandler) React(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	messageID, err := messageIDParam(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_message_id", "Invalid message ID")
	}

	var req ReactRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	if req.Content == "" {
		return httpx.BadRequest(c, "missing_content", "Reaction content is required")
	}

	if err := h.messageService.React(messageID, userID, req.Content); err != nil {
		return httpx.FromError(c, err, "react_failed")
	}
	return c.JSON(fiber.Map{"message": "Reaction saved"})
}

func (h *MessageHandler) Unreact(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	messageID, err := messageIDParam(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_message_id", "Invalid message ID")
	}

	if err := h.messageService.Unreact(messageID, userID); err != nil {
		return httpx.FromError(c, err, "unreact_failed")
	}
	return c.JSON(fiber.Map{"message": "Reaction removed"})
}

type SharePostRequest struct {
	ChatIDs []uint `json:"chat_ids"`
}

func (h *MessageHandler) SharePost(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	postID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || postID == 0 {
		return httpx.BadRequest(c, "invalid_post_id", "Invalid post ID")
	}

	var req SharePostRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	if len(req.ChatIDs) == 0 {
		return httpx.BadRequest(c, "missing_chats", "chat_ids is required")
	}

	messages, err := h.messageService.SharePost(userID, uint(postID), req.ChatIDs)
	if err != nil {
		if errors.Is(err, apperr.ErrNoOp) {
			return c.JSON(fiber.Map{"shared": []uint{}, "count": 0})
		}
		return httpx.FromError(c, err, "share_post_failed")
	}

	shared := make([]uint, 0, len(messages))
	for i := range messages {
		shared = append(shared, messages[i].ChatID)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"shared": shared, "count": len(shared)})
}
