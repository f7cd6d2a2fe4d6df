package handlers

import (
	"log"
	"os"

	"github.com/gofiber/websocket/v2"
	"github.com/sethshivam11/social-media-backend/internal/cache"
	"github.com/sethshivam11/social-media-backend/internal/handlers/ws"
	"github.com/sethshivam11/social-media-backend/internal/service"
)

type WebSocketHandler struct {
	chatService *service.ChatService
	hub         *ws.Hub
}

func NewWebSocketHandler(chatService *service.ChatService, presence *cache.PresenceCache) *WebSocketHandler {
	return &WebSocketHandler{
		chatService: chatService,
		hub:         ws.NewHub(presence),
	}
}

// GetHub returns the hub instance (wired into the notification fan-out as
// its live-connection gateway)
func (h *WebSocketHandler) GetHub() *ws.Hub {
	return h.hub
}

func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	userID := c.Locals("userID").(uint)
	wsDebug := os.Getenv("WS_DEBUG") == "true"

	// Check if client supports gzip compression (via query param or header)
	supportsGzip := c.Query("gzip") == "1" || c.Headers("X-Supports-Gzip") == "1"

	connID := h.hub.Register(userID, c, supportsGzip)
	defer h.hub.Unregister(connID)

	// Presence snapshot first, then the connected ack.
	h.hub.EmitToConn(connID, ws.EventPresenceList, map[string]interface{}{
		"users": h.hub.OnlineUsers(),
	})
	h.hub.EmitToConn(connID, ws.EventConnected, map[string]interface{}{
		"userId": userID,
	})

	ctx := &ws.MessageContext{
		UserID: userID,
		ConnID: connID,
		Hub:    h.hub,
		Chats:  h.chatService,
	}

	// Handle incoming messages
	for {
		messageType, messageBytes, err := c.ReadMessage()
		if err != nil {
			log.Printf("Error reading message from user %d: %v", userID, err)
			break
		}

		if wsDebug {
			log.Printf("ws_recv user_id=%d frame_type=%d size=%d", userID, messageType, len(messageBytes))
		}

		// Decompress if binary message (gzip compressed)
		if messageType == websocket.BinaryMessage {
			decompressed, err := ws.DecompressMessage(messageBytes)
			if err != nil {
				log.Printf("Error decompressing message from user %d: %v", userID, err)
				h.hub.SendProtocolError(connID, "decompression_failed", "Failed to decompress message", err.Error())
				continue
			}
			messageBytes = decompressed
		}

		// Deserialize message
		msg, err := ws.Deserialize(messageBytes)
		if err != nil {
			log.Printf("Error deserializing message from user %d: %v", userID, err)
			h.hub.SendProtocolError(connID, "invalid_message", "Invalid message format", err.Error())
			continue
		}

		// Process message
		if err := msg.Process(ctx); err != nil {
			log.Printf("Error processing message %s from user %d: %v", msg.GetType(), userID, err)
			h.hub.SendProtocolError(connID, "processing_failed", "Failed to process message", err.Error())
		}
	}
}
