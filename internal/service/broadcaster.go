package service

// Broadcaster interface for WebSocket fan-out (avoids import cycle with
// transport/ws). Every roster or session mutation goes through here so all
// connected clients converge without polling.
type Broadcaster interface {
	BroadcastToRoom(roomCode string, msgType string, payload interface{})
	BroadcastToPlayer(roomCode, playerID string, msgType string, payload interface{})
	DisconnectRoom(roomCode string)
}

// Event names pushed to clients. A lobby client that sees RoomUpdated with
// status "playing" navigates itself into the game view.
const (
	EventRoomUpdated    = "room_updated"
	EventConfigUpdated  = "config_updated"
	EventPlayerJoined   = "player_joined"
	EventPlayerLeft     = "player_left"
	EventPlayerUpdated  = "player_updated"
	EventGameStarted    = "game_started"
	EventSessionUpdated = "session_updated"
	EventPhaseChanged   = "phase_changed"
	EventGameOver       = "game_over"
)
