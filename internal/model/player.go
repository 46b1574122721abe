package model

import "time"

// Player is a participant's durable roster row. Hard-deleted on leave/kick.
type Player struct {
	ID          string    `json:"id" bson:"_id,omitempty"`
	RoomID      string    `json:"roomId" bson:"roomId"`
	UserID      *string   `json:"userId" bson:"userId"` // nil for anonymous players
	DisplayName string    `json:"displayName" bson:"displayName"`
	AvatarEmoji string    `json:"avatarEmoji" bson:"avatarEmoji"`
	IsHost      bool      `json:"isHost" bson:"isHost"`
	IsReady     bool      `json:"isReady" bson:"isReady"`
	IsConnected bool      `json:"isConnected" bson:"isConnected"`
	Score       int       `json:"score" bson:"score"`
	JoinedAt    time.Time `json:"joinedAt" bson:"joinedAt"`
	LastSeenAt  time.Time `json:"lastSeenAt" bson:"lastSeenAt"`
}

// JoinResponse is returned when a player creates or joins a room.
type JoinResponse struct {
	RoomCode string  `json:"roomCode"`
	PlayerID string  `json:"playerId"`
	Token    string  `json:"token"`
	Room     *Room   `json:"room"`
	Player   *Player `json:"player"`
}
