package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sethshivam11/social-media-backend/internal/apperr"
	"github.com/sethshivam11/social-media-backend/internal/httpx"
	"github.com/sethshivam11/social-media-backend/internal/service"
)

type NotificationHandler struct {
	notifyService *service.NotifyService
}

func NewNotificationHandler(notifyService *service.NotifyService) *NotificationHandler {
	return &NotificationHandler{notifyService: notifyService}
}

func (h *NotificationHandler) GetNotifications(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
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

	notifications, unread, err := h.notifyService.ListNotifications(userID, cursor, limit)
	if err != nil {
		return httpx.Internal(c, "fetch_notifications_failed")
	}

	result := fiber.Map{
		"notifications": notifications,
		"count":         len(notifications),
		"unread":        unread,
	}
	if len(notifications) > 0 {
		result["next_cursor"] = notifications[len(notifications)-1].ID
	}
	return c.JSON(result)
}

type MarkReadRequest struct {
	IDs []uint `json:"ids"`
}

// MarkRead flips notifications read; an empty or missing id list marks the
// whole inbox.
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var req MarkReadRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
		}
	}

	updated, err := h.notifyService.MarkRead(userID, req.IDs)
	if err != nil {
		return httpx.Internal(c, "mark_read_failed")
	}
	return c.JSON(fiber.Map{"updated": updated})
}

func (h *NotificationHandler) GetPreferences(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	pref, err := h.notifyService.GetPreferences(userID)
	if err != nil {
		return httpx.Internal(c, "fetch_preferences_failed")
	}
	return c.JSON(pref.ToResponse())
}

type UpdatePreferencesRequest struct {
	Toggles map[string]bool `json:"toggles"`
}

func (h *NotificationHandler) UpdatePreferences(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var req UpdatePreferencesRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	if len(req.Toggles) == 0 {
		return httpx.BadRequest(c, "missing_toggles", "toggles is required")
	}

	pref, err := h.notifyService.UpdatePreferences(userID, req.Toggles)
	if err != nil {
		return httpx.Internal(c, "update_preferences_failed")
	}
	return c.JSON(pref.ToResponse())
}

type TokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

func (h *NotificationHandler) RegisterToken(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var req TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" {
		return httpx.BadRequest(c, "missing_token", "token is required")
	}

	if err := h.notifyService.RegisterToken(userID, req.Token, req.Platform); err != nil {
		if errors.Is(err, apperr.ErrNoOp) {
			return c.JSON(fiber.Map{"message": "Token already registered"})
		}
		return httpx.Internal(c, "register_token_failed")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Token registered"})
}

func (h *NotificationHandler) UnregisterToken(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var req TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" {
		return httpx.BadRequest(c, "missing_token", "token is required")
	}

	if err := h.notifyService.UnregisterToken(userID, req.Token); err != nil {
		return httpx.FromError(c, err, "unregister_token_failed")
	}
	return c.JSON(fiber.Map{"message": "Token removed"})
}
