package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event types pushed to clients. Payloads carry ids only: a client that
// receives one re-fetches the authoritative row over HTTP. The push channel
// never carries state that the client should trust directly.
const (
	EventNewMessage       = "new_message"
	EventMatchCreated     = "match_created"
	EventProposalAccepted = "proposal_accepted"
	EventProposalDeclined = "proposal_declined"
	EventBookingUpdated   = "booking_updated"
	EventReadReceipt      = "read_receipt"
	EventNotification     = "notification"
)

// Client represents a connected WebSocket client
type Client struct {
	Hub  *Hub
	ID   uint
	Role string // "customer" or "provider"
	Conn *websocket.Conn
	Send chan []byte
	mu   sync.Mutex
}

// Hub manages all WebSocket connections and match-thread membership
type Hub struct {
	// Registered clients by user id
	Clients map[uint]*Client

	// Match thread members: match id -> set of user ids
	ThreadMembers map[uint]map[uint]bool

	// Broadcast channel for messages to all clients
	Broadcast chan *Message

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// Message handlers keyed by message type
	MessageHandlers map[string]MessageHandler

	mu sync.RWMutex
}

// Message is the wire format for realtime events
type Message struct {
	Type      string      `json:"type"`
	MatchID   uint        `json:"match_id,omitempty"`
	SenderID  uint        `json:"sender_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// MessageHandler handles an inbound message of a given type
type MessageHandler func(*Client, *Message) error

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	hub := &Hub{
		Clients:         make(map[uint]*Client),
		ThreadMembers:   make(map[uint]map[uint]bool),
		Broadcast:       make(chan *Message),
		Register:        make(chan *Client),
		Unregister:      make(chan *Client),
		MessageHandlers: make(map[string]MessageHandler),
	}

	hub.registerDefaultHandlers()

	return hub
}

// registerDefaultHandlers registers default message handlers
func (h *Hub) registerDefaultHandlers() {
	h.MessageHandlers["typing"] = h.handleTypingIndicator
	h.MessageHandlers["ping"] = h.handlePing
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.Clients[client.ID] = client
			h.mu.Unlock()
			log.Printf("🔌 Client registered: ID=%d, Role=%s", client.ID, client.Role)

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.Clients[client.ID]; ok {
				for matchID := range h.ThreadMembers {
					delete(h.ThreadMembers[matchID], client.ID)
				}
				delete(h.Clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()
			log.Printf("🔌 Client unregistered: ID=%d", client.ID)

		case message := <-h.Broadcast:
			h.broadcastMessage(message)
		}
	}
}

// broadcastMessage sends a message to all connected clients. Takes the write
// lock because clients with a full buffer are dropped on the spot.
func (h *Hub) broadcastMessage(message *Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("❌ Error marshaling message: %v", err)
		return
	}

	for _, client := range h.Clients {
		select {
		case client.Send <- data:
		default:
			close(client.Send)
			delete(h.Clients, client.ID)
		}
	}
}

// SendToUser sends a message to a specific user if connected
func (h *Hub) SendToUser(userID uint, message *Message) {
	h.mu.RLock()
	client, exists := h.Clients[userID]
	h.mu.RUnlock()

	if !exists {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("❌ Error marshaling message: %v", err)
		return
	}

	select {
	case client.Send <- data:
	default:
		log.Printf("⚠️ User %d's send buffer is full", userID)
	}
}

// AddUserToThread adds a user to a match's realtime thread
func (h *Hub) AddUserToThread(userID uint, matchID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ThreadMembers[matchID] == nil {
		h.ThreadMembers[matchID] = make(map[uint]bool)
	}
	h.ThreadMembers[matchID][userID] = true
}

// RemoveUserFromThread removes a user from a match's realtime thread
func (h *Hub) RemoveUserFromThread(userID uint, matchID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ThreadMembers[matchID] != nil {
		delete(h.ThreadMembers[matchID], userID)
	}
}

// SendToThread sends a message to all users in a match thread except the sender
func (h *Hub) SendToThread(matchID uint, message *Message, excludeUserID uint) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("❌ Error marshaling message: %v", err)
		return
	}

	members := h.ThreadMembers[matchID]
	if members == nil {
		return
	}

	for userID := range members {
		if userID == excludeUserID {
			continue
		}

		client, exists := h.Clients[userID]
		if !exists {
			continue
		}

		select {
		case client.Send <- data:
		default:
			log.Printf("⚠️ User %d's send buffer is full (match %d)", userID, matchID)
		}
	}
}

// IsUserConnected checks if a user is currently connected
func (h *Hub) IsUserConnected(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.Clients[userID]
	return exists
}

// handleTypingIndicator forwards typing indicators to the match thread
func (h *Hub) handleTypingIndicator(client *Client, message *Message) error {
	h.SendToThread(message.MatchID, message, client.ID)
	return nil
}

// handlePing answers ping messages for connection health
func (h *Hub) handlePing(client *Client, message *Message) error {
	pong := &Message{
		Type:      "pong",
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(pong)
	if err != nil {
		return err
	}

	select {
	case client.Send <- data:
	default:
		log.Printf("⚠️ Could not send pong to user %d", client.ID)
	}

	return nil
}
