package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub manages WebSocket connections per room. Every player, host included,
// holds one connection; all session and roster changes fan out through here.
type Hub struct {
	conns map[string]map[string]*Connection // roomCode -> playerID -> conn

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
}

// Connection represents a WebSocket connection
type Connection struct {
	RoomCode string
	PlayerID string
	Send     chan []byte
	Hub      *Hub
}

// BroadcastMessage is a message to broadcast
type BroadcastMessage struct {
	RoomCode string
	ToPlayer string // Empty means the whole room
	Message  *Message
	Close    bool // drop every connection in the room instead of sending
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		conns:      make(map[string]map[string]*Connection),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.conns[conn.RoomCode] == nil {
				h.conns[conn.RoomCode] = make(map[string]*Connection)
			}
			if existing, ok := h.conns[conn.RoomCode][conn.PlayerID]; ok && existing != conn {
				close(existing.Send)
			}
			h.conns[conn.RoomCode][conn.PlayerID] = conn
			h.mu.Unlock()
			log.Debug().Str("code", conn.RoomCode).Str("playerId", conn.PlayerID).Msg("ws connected")

		case conn := <-h.unregister:
			h.mu.Lock()
			if room, ok := h.conns[conn.RoomCode]; ok {
				if existing, ok := room[conn.PlayerID]; ok && existing == conn {
					delete(room, conn.PlayerID)
					close(conn.Send)
					if len(room) == 0 {
						delete(h.conns, conn.RoomCode)
					}
				}
			}
			h.mu.Unlock()
			log.Debug().Str("code", conn.RoomCode).Str("playerId", conn.PlayerID).Msg("ws disconnected")

		case msg := <-h.broadcast:
			if msg.Close {
				h.mu.Lock()
				if room, ok := h.conns[msg.RoomCode]; ok {
					for _, conn := range room {
						close(conn.Send)
					}
					delete(h.conns, msg.RoomCode)
				}
				h.mu.Unlock()
				log.Debug().Str("code", msg.RoomCode).Msg("ws room closed")
				continue
			}

			h.mu.RLock()
			data, _ := json.Marshal(msg.Message)

			if room, ok := h.conns[msg.RoomCode]; ok {
				if msg.ToPlayer != "" {
					if conn, ok := room[msg.ToPlayer]; ok {
						select {
						case conn.Send <- data:
						default:
							// Drop message if buffer full
						}
					}
				} else {
					for _, conn := range room {
						select {
						case conn.Send <- data:
						default:
						}
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// BroadcastToRoom sends a message to every connection in a room (implements
// service.Broadcaster)
func (h *Hub) BroadcastToRoom(roomCode string, msgType string, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &BroadcastMessage{
		RoomCode: roomCode,
		Message: &Message{
			Type:    MessageType(msgType),
			Payload: data,
		},
	}
}

// BroadcastToPlayer sends a message to a single player (implements
// service.Broadcaster)
func (h *Hub) BroadcastToPlayer(roomCode, playerID string, msgType string, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &BroadcastMessage{
		RoomCode: roomCode,
		ToPlayer: playerID,
		Message: &Message{
			Type:    MessageType(msgType),
			Payload: data,
		},
	}
}

// DisconnectRoom drops every connection in a room once it reaches a terminal
// status (implements service.Broadcaster). It goes through the broadcast
// queue so messages enqueued first, like the final game_over, still deliver.
func (h *Hub) DisconnectRoom(roomCode string) {
	h.broadcast <- &BroadcastMessage{
		RoomCode: roomCode,
		Close:    true,
	}
}
