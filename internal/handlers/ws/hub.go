package ws

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/sethshivam11/social-media-backend/internal/cache"
)

// Outbound event names owned by the gateway itself. Chat and notification
// event names live in the service package; these cover the socket protocol.
const (
	EventConnected     = "connected"
	EventPresenceList  = "presence-list"
	EventUserOnline    = "user-online"
	EventUserOffline   = "user-offline"
	EventProtocolError = "protocol-error"
	EventTyping        = "typing"
	EventStopTyping    = "stop-typing"
	EventChatJoined    = "chat-joined"
	EventChatLeft      = "chat-left"
)

// client wraps a single WebSocket connection with metadata. One user may
// hold several clients at once (phone + browser).
type client struct {
	id           uint64
	userID       uint
	conn         *websocket.Conn
	lastPong     time.Time
	supportsGzip bool
	pingTicker   *time.Ticker
	closeChan    chan struct{}
	writeMux     sync.Mutex
}

// write serializes frame writes; emits and ping control frames race otherwise.
func (c *client) write(frameType int, data []byte) error {
	c.writeMux.Lock()
	defer c.writeMux.Unlock()
	return c.conn.WriteMessage(frameType, data)
}

// Hub is the process-wide connection directory: every live connection, the
// set of connections per user, and the chat rooms joined per connection.
// It implements service.Gateway.
type Hub struct {
	mux    sync.RWMutex
	conns  map[uint64]*client
	users  map[uint]map[uint64]struct{}
	rooms  map[string]map[uint64]struct{}
	nextID uint64

	presence     *cache.PresenceCache
	pingInterval time.Duration
	pongTimeout  time.Duration
}

// NewHub creates a Hub and starts its health checker. presence may be nil
// (single-instance deployments without Redis).
func NewHub(presence *cache.PresenceCache) *Hub {
	hub := &Hub{
		conns:        make(map[uint64]*client),
		users:        make(map[uint]map[uint64]struct{}),
		rooms:        make(map[string]map[uint64]struct{}),
		presence:     presence,
		pingInterval: 30 * time.Second,
		pongTimeout:  90 * time.Second,
	}

	go hub.connectionHealthChecker()

	return hub
}

// ChatRoom returns the room name for a chat's live relays.
func ChatRoom(chatID uint) string {
	return fmt.Sprintf("chat:%d", chatID)
}

// Register adds a connection and reports whether it is the user's first.
// The first connection flips the user online: the Redis mirror is updated
// and user-online is broadcast to everyone else.
func (h *Hub) Register(userID uint, conn *websocket.Conn, supportsGzip bool) uint64 {
	h.mux.Lock()
	h.nextID++
	cl := &client{
		id:           h.nextID,
		userID:       userID,
		conn:         conn,
		lastPong:     time.Now(),
		supportsGzip: supportsGzip,
		pingTicker:   time.NewTicker(h.pingInterval),
		closeChan:    make(chan struct{}),
	}
	h.conns[cl.id] = cl
	first := len(h.users[userID]) == 0
	if first {
		h.users[userID] = make(map[uint64]struct{})
	}
	h.users[userID][cl.id] = struct{}{}
	total := len(h.conns)
	h.mux.Unlock()

	conn.SetPongHandler(func(appData string) error {
		h.mux.Lock()
		if c, exists := h.conns[cl.id]; exists {
			c.lastPong = time.Now()
		}
		h.mux.Unlock()
		conn.SetReadDeadline(time.Now().Add(h.pongTimeout))
		if h.presence != nil {
			if err := h.presence.Refresh(userID); err != nil {
				log.Printf("Failed to refresh presence for user %d: %v", userID, err)
			}
		}
		return nil
	})
	conn.SetReadDeadline(time.Now().Add(h.pongTimeout))

	go h.pingRoutine(cl)

	if first {
		if h.presence != nil {
			if err := h.presence.MarkOnline(userID); err != nil {
				log.Printf("Failed to mark user %d online in cache: %v", userID, err)
			}
		}
		h.broadcastExceptUser(userID, EventUserOnline, map[string]uint{"userId": userID})
	}

	log.Printf("User %d connected to hub (conn %d, total: %d, gzip: %v)", userID, cl.id, total, supportsGzip)
	return cl.id
}

// Unregister removes a connection and all its room memberships. The user's
// last connection flips them offline.
func (h *Hub) Unregister(connID uint64) {
	h.mux.Lock()
	cl, exists := h.conns[connID]
	if !exists {
		h.mux.Unlock()
		return
	}
	cl.pingTicker.Stop()
	close(cl.closeChan)
	delete(h.conns, connID)
	for room, members := range h.rooms {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(h.users[cl.userID], connID)
	last := len(h.users[cl.userID]) == 0
	if last {
		delete(h.users, cl.userID)
	}
	total := len(h.conns)
	h.mux.Unlock()

	if last {
		if h.presence != nil {
			if err := h.presence.MarkOffline(cl.userID); err != nil {
				log.Printf("Failed to mark user %d offline in cache: %v", cl.userID, err)
			}
		}
		h.broadcastExceptUser(cl.userID, EventUserOffline, map[string]uint{"userId": cl.userID})
	}

	log.Printf("User %d disconnected from hub (conn %d, total: %d)", cl.userID, connID, total)
}

// JoinRoom subscribes a connection to a room. Membership checks happen in
// the join-chat message, not here.
func (h *Hub) JoinRoom(connID uint64, room string) {
	h.mux.Lock()
	defer h.mux.Unlock()
	if _, exists := h.conns[connID]; !exists {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[uint64]struct{})
	}
	h.rooms[room][connID] = struct{}{}
}

// LeaveRoom unsubscribes a connection from a room.
func (h *Hub) LeaveRoom(connID uint64, room string) {
	h.mux.Lock()
	defer h.mux.Unlock()
	if members, exists := h.rooms[room]; exists {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// InRoom reports whether a connection has joined a room.
func (h *Hub) InRoom(connID uint64, room string) bool {
	h.mux.RLock()
	defer h.mux.RUnlock()
	_, exists := h.rooms[room][connID]
	return exists
}

// IsOnline checks if a user has at least one live connection.
func (h *Hub) IsOnline(userID uint) bool {
	h.mux.RLock()
	defer h.mux.RUnlock()
	return len(h.users[userID]) > 0
}

// OnlineUsers returns the ids of all connected users.
func (h *Hub) OnlineUsers() []uint {
	h.mux.RLock()
	defer h.mux.RUnlock()
	users := make([]uint, 0, len(h.users))
	for userID := range h.users {
		users = append(users, userID)
	}
	return users
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mux.RLock()
	defer h.mux.RUnlock()
	return len(h.conns)
}

// EmitToUser sends an event to every connection of one user. Dead
// connections are unregistered; delivery is best effort.
func (h *Hub) EmitToUser(userID uint, event string, payload interface{}) {
	h.mux.RLock()
	targets := h.clientsForUser(userID)
	h.mux.RUnlock()
	h.emit(targets, event, payload)
}

// EmitToConn sends an event to a single connection.
func (h *Hub) EmitToConn(connID uint64, event string, payload interface{}) {
	h.mux.RLock()
	cl, exists := h.conns[connID]
	h.mux.RUnlock()
	if !exists {
		return
	}
	h.emit([]*client{cl}, event, payload)
}

// SendProtocolError reports a rejected inbound frame to one connection.
// It goes through the client's locked write path: the read loop answering a
// bad frame must never write the raw conn while a hub emit or ping is in
// flight.
func (h *Hub) SendProtocolError(connID uint64, code, message, details string) error {
	h.mux.RLock()
	cl, exists := h.conns[connID]
	h.mux.RUnlock()
	if !exists {
		return nil
	}
	data, err := json.Marshal(ErrorResponse{
		Type:    EventProtocolError,
		Error:   message,
		Code:    code,
		Details: details,
	})
	if err != nil {
		return err
	}
	return cl.write(websocket.TextMessage, data)
}

// EmitToRoom sends an event to every connection in a room, skipping all of
// exceptUserID's connections (the actor already knows what they typed).
func (h *Hub) EmitToRoom(room string, exceptUserID uint, event string, payload interface{}) {
	h.mux.RLock()
	targets := make([]*client, 0, len(h.rooms[room]))
	for connID := range h.rooms[room] {
		if cl, exists := h.conns[connID]; exists && cl.userID != exceptUserID {
			targets = append(targets, cl)
		}
	}
	h.mux.RUnlock()
	h.emit(targets, event, payload)
}

// BroadcastAll sends an event to every connection.
func (h *Hub) BroadcastAll(event string, payload interface{}) {
	h.mux.RLock()
	targets := make([]*client, 0, len(h.conns))
	for _, cl := range h.conns {
		targets = append(targets, cl)
	}
	h.mux.RUnlock()
	h.emit(targets, event, payload)
}

func (h *Hub) broadcastExceptUser(userID uint, event string, payload interface{}) {
	h.mux.RLock()
	targets := make([]*client, 0, len(h.conns))
	for _, cl := range h.conns {
		if cl.userID != userID {
			targets = append(targets, cl)
		}
	}
	h.mux.RUnlock()
	h.emit(targets, event, payload)
}

func (h *Hub) clientsForUser(userID uint) []*client {
	targets := make([]*client, 0, len(h.users[userID]))
	for connID := range h.users[userID] {
		if cl, exists := h.conns[connID]; exists {
			targets = append(targets, cl)
		}
	}
	return targets
}

// emit marshals the envelope once and writes it to each target, compressing
// for clients that negotiated gzip when it pays (> 512 bytes).
func (h *Hub) emit(targets []*client, event string, payload interface{}) {
	if len(targets) == 0 {
		return
	}

	jsonData, err := json.Marshal(map[string]interface{}{
		"type":    event,
		"payload": payload,
	})
	if err != nil {
		log.Printf("Error marshaling %s event: %v", event, err)
		return
	}

	var compressed []byte
	for _, cl := range targets {
		data := jsonData
		frameType := websocket.TextMessage
		if cl.supportsGzip && len(jsonData) > 512 {
			if compressed == nil {
				if c, err := CompressMessage(jsonData); err == nil && len(c) < len(jsonData) {
					compressed = c
				} else {
					compressed = jsonData
				}
			}
			if len(compressed) < len(jsonData) {
				data = compressed
				frameType = websocket.BinaryMessage
			}
		}
		if err := cl.write(frameType, data); err != nil {
			log.Printf("Error sending %s to user %d (conn %d): %v", event, cl.userID, cl.id, err)
			h.Unregister(cl.id)
		}
	}
}

// pingRoutine sends periodic ping control frames to keep the connection alive.
func (h *Hub) pingRoutine(cl *client) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Ping routine recovered from panic for user %d: %v", cl.userID, r)
		}
	}()

	for {
		select {
		case <-cl.closeChan:
			return
		case <-cl.pingTicker.C:
			cl.writeMux.Lock()
			err := cl.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second))
			cl.writeMux.Unlock()
			if err != nil {
				log.Printf("Ping failed for user %d (conn %d): %v", cl.userID, cl.id, err)
				h.Unregister(cl.id)
				return
			}
		}
	}
}

// connectionHealthChecker drops connections that stopped answering pings.
func (h *Hub) connectionHealthChecker() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		h.mux.RLock()
		dead := make([]uint64, 0)
		now := time.Now()
		for connID, cl := range h.conns {
			if now.Sub(cl.lastPong) > h.pongTimeout {
				dead = append(dead, connID)
			}
		}
		h.mux.RUnlock()

		for _, connID := range dead {
			log.Printf("Removing dead connection %d (no pong received)", connID)
			h.Unregister(connID)
		}
	}
}
