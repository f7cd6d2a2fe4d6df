package handlers

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sethshivam11/social-media-backend/internal/apperr"
	"github.com/sethshivam11/social-media-backend/internal/httpx"
	"github.com/sethshivam11/social-media-backend/internal/service"
	"github.com/sethshivam11/social-media-backend/internal/storage"
)

type ChatHandler struct {
	chatService *service.ChatService
	s3          *storage.S3Storage
}

func NewChatHandler(chatService *service.ChatService, s3 *storage.S3Storage) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		s3:          s3,
	}
}

func chatIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid chat id")
	}
	return uint(id), nil
}

type CreateDirectChatRequest struct {
	PeerID uint `json:"peer_id"`
}

func (h *ChatHandler) CreateDirectChat(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var req CreateDirectChatRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	if req.PeerID == 0 {
		return httpx.BadRequest(c, "missing_peer", "peer_id is required")
	}

	chat, err := h.chatService.CreateDirect(userID, req.PeerID)
	if err != nil {
		// A duplicate pair is not a failure: hand back the existing chat.
		if chat != nil && errors.Is(err, apperr.ErrConflict) {
			return c.JSON(chat.ToResponse())
		}
		return httpx.FromError(c, err, "create_chat_failed")
	}

	return c.Status(fiber.StatusCreated).JSON(chat.ToResponse())
}

type CreateGroupChatRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Members     []uint `json:"members"`
}

func (h *ChatHandler) CreateGroupChat(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var req CreateGroupChatRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	chat, err := h.chatService.CreateGroup(userID, req.Name, req.Description, req.Members)
	if err != nil {
		return httpx.FromError(c, err, "create_group_failed")
	}

	return c.Status(fiber.StatusCreated).JSON(chat.ToResponse())
}

func (h *ChatHandler) GetMyChats(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	chats, err := h.chatService.ListForUser(userID)
	if err != nil {
		return httpx.Internal(c, "fetch_chats_failed")
	}

	responses := make([]interface{}, len(chats))
	for i := range chats {
		responses[i] = chats[i].ToResponse()
	}
	return c.JSON(fiber.Map{"chats": responses, "count": len(chats)})
}

func (h *ChatHandler) GetChat(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	chatID, err := chatIDParam(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat ID")
	}

	chat, err := h.chatService.GetChat(chatID, userID)
	if err != nil {
		return httpx.FromError(c, err, "fetch_chat_failed")
	}
	return c.JSON(chat.ToResponse())
}

type MembersRequest struct {
	Members []uint `json:"members"`
}

func (h *ChatHandler) AddMembers(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	chatID, err := chatIDParam(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat ID")
	}

	var req MembersRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	if len(req.Members) == 0 {
		return httpx.BadRequest(c, "missing_members", "members is required")
	}

	chat, added, err := h.chatService.AddMembers(chatID, userID, req.Members)
	if err != nil {
		// Everyone already present: success with an empty delta.
		if chat != nil && errors.Is(err, apperr.ErrNoOp) {
			return c.JSON(fiber.Map{"chat": chat.ToResponse(), "added": []uint{}})
		}
		return httpx.FromError(c, err, "add_members_failed")
	}
	return c.JSON(fiber.Map{"chat": chat.ToResponse(), "added": added})
}

func (h *ChatHandler) RemoveMembers(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	chatID, err := chatIDParam(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat ID")
	}

	var req MembersRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	if len(req.Members) == 0 {
		return httpx.BadRequest(c, "missing_members", "members is required")
	}

	chat, removed, err := h.chatService.RemoveMembers(chatID, userID, req.Members)
	if err != nil {
		if chat != nil && errors.Is(err, apperr.ErrNoOp) {
			return c.JSON(fiber.Map{"chat": chat.ToResponse(), "removed": []uint{}})
		}
		return httpx.FromError(c, err, "remove_members_failed")
	}
	return c.JSON(fiber.Map{"chat": chat.ToResponse(), "removed": removed})
}

func (h *ChatHandler) LeaveChat(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	chatID, err := chatIDParam(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat ID")
	}

	if err := h.chatService.Leave(chatID, userID); err != nil {
		return httpx.FromError(c, err, "leave_chat_failed")
	}
	return c.JSON(fiber.Map{"message": "Left chat successfully"})
}

func (h *ChatHandler) UpdateChat(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	chatID, err := chatIDParam(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat ID")
	}

	var input service.UpdateChatInput
	if name := c.FormValue("name"); name != "" {
		input.Name = &name
	}
	if description := c.FormValue("description"); description != "" {
		input.Description = &description
	}

	// JSON bodies carry name/description only; icons arrive as multipart.
	if input.Name == nil && input.Description == nil {
		var req struct {
			Name        *string `json:"name"`
			Description *string `json:"description"`
		}
		if err := c.BodyParser(&req); err == nil {
			input.Name = req.Name
			input.Description = req.Description
		}
	}

	if fileHeader, err := c.FormFile("icon"); err == nil {
		key, err := h.uploadIcon(c.Context(), chatID, fileHeader)
		if err != nil {
			if errors.Is(err, storage.ErrTooLarge) {
				return httpx.BadRequest(c, "icon_too_large", "Icon is too large")
			}
			if errors.Is(err, storage.ErrUnsupported) {
				return httpx.BadRequest(c, "icon_unsupported", "Unsupported image type")
			}
			if errors.Is(err, storage.ErrInvalidImage) {
				return httpx.BadRequest(c, "icon_invalid", "Invalid image")
			}
			return httpx.FromError(c, err, "icon_upload_failed")
		}
		input.IconKey = &key
	}

	chat, err := h.chatService.UpdateDetails(chatID, userID, input)
	if err != nil {
		if chat != nil && errors.Is(err, apperr.ErrNoOp) {
			return c.JSON(chat.ToResponse())
		}
		return httpx.FromError(c, err, "update_chat_failed")
	}
	return c.JSON(chat.ToResponse())
}

func (h *ChatHandler) DeleteChat(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	chatID, err := chatIDParam(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat ID")
	}

	if err := h.chatService.DeleteGroup(chatID, userID); err != nil {
		return httpx.FromError(c, err, "delete_chat_failed")
	}
	return c.JSON(fiber.Map{"message": "Chat deleted successfully"})
}

func (h *ChatHandler) targetUserParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("userID"), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid user id")
	}
	return uint(id), nil
}

func (h *ChatHandler) PromoteAdmin(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	chatID, err := chatIDParam(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat ID")
	}
	targetID, err := h.targetUserParam(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user ID")
	}

	if err := h.chatService.PromoteAdmin(chatID, userID, targetID); err != nil {
		if errors.Is(err, apperr.ErrNoOp) {
			return c.JSON(fiber.Map{"message": "Already an admin"})
		}
		return httpx.FromError(c, err, "promote_admin_failed")
	}
	return c.JSON(fiber.Map{"message": "Admin added successfully"})
}

func (h *ChatHandler) DemoteAdmin(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	chatID, err := chatIDParam(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat ID")
	}
	targetID, err := h.targetUserParam(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user ID")
	}

	if err := h.chatService.DemoteAdmin(chatID, userID, targetID); err != nil {
		if errors.Is(err, apperr.ErrNoOp) {
			return c.JSON(fiber.Map{"message": "Not an admin"})
		}
		return httpx.FromError(c, err, "demote_admin_failed")
	}
	return c.JSON(fiber.Map{"message": "Admin removed successfully"})
}

// uploadIcon normalizes the uploaded image and stores it under a fresh key.
func (h *ChatHandler) uploadIcon(parent context.Context, chatID uint, fileHeader *multipart.FileHeader) (string, error) {
	if h.s3 == nil {
		return "", apperr.Wrap(apperr.ErrUploadFailed, "storage not configured")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return "", storage.ErrInvalidImage
	}
	defer f.Close()

	data, contentType, size, err := storage.ProcessIconImage(f, storage.DefaultGroupIconOptions())
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(parent, 30*time.Second)
	defer cancel()

	key := storage.GroupIconKey(chatID)
	if _, err := h.s3.PutObject(ctx, key, bytes.NewReader(data), size, contentType); err != nil {
		return "", apperr.Wrap(apperr.ErrUploadFailed, "icon upload failed")
	}
	return key, nil
}
