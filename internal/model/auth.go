package model

import "github.com/golang-jwt/jwt/v5"

// PlayerClaims is the room-scoped JWT issued on create/join.
type PlayerClaims struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
	jwt.RegisteredClaims
}
