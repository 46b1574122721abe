package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"sinfiltro/internal/model"
	"sinfiltro/internal/service"
	"sinfiltro/internal/transport/rest/middleware"
)

// RoomHandler handles room lifecycle and roster endpoints
type RoomHandler struct {
	roomSvc   *service.RoomService
	playerSvc *service.PlayerService
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(roomSvc *service.RoomService, playerSvc *service.PlayerService) *RoomHandler {
	return &RoomHandler{
		roomSvc:   roomSvc,
		playerSvc: playerSvc,
	}
}

// CreateRoomRequest is the request body for creating a room
type CreateRoomRequest struct {
	DisplayName string                 `json:"displayName"`
	AvatarEmoji string                 `json:"avatarEmoji"`
	UserID      *string                `json:"userId,omitempty"`
	Config      *model.RoomConfigPatch `json:"config,omitempty"`
}

// Create handles POST /v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.roomSvc.CreateRoom(r.Context(), req.UserID, req.DisplayName, req.AvatarEmoji, req.Config)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Get handles GET /v1/rooms/{code}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	room, err := h.roomSvc.GetRoomByCode(r.Context(), code)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if room == nil {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}

	players, err := h.playerSvc.GetRoster(r.Context(), room.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"room":    room,
		"players": players,
	})
}

// Joinable handles GET /v1/rooms/{code}/joinable
func (h *RoomHandler) Joinable(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	joinable, err := h.roomSvc.IsJoinable(r.Context(), code)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, joinable)
}

// JoinRequest is the request body for joining a room
type JoinRequest struct {
	DisplayName string  `json:"displayName"`
	AvatarEmoji string  `json:"avatarEmoji"`
	UserID      *string `json:"userId,omitempty"`
}

// Join handles POST /v1/rooms/{code}/join
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.playerSvc.JoinRoom(r.Context(), code, req.UserID, req.DisplayName, req.AvatarEmoji)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Leave handles POST /v1/rooms/{code}/leave
func (h *RoomHandler) Leave(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.GetPlayerID(r.Context())

	if err := h.playerSvc.LeaveRoom(r.Context(), playerID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

// ReadyRequest is the request body for toggling readiness
type ReadyRequest struct {
	Ready bool `json:"ready"`
}

// Ready handles POST /v1/rooms/{code}/ready
func (h *RoomHandler) Ready(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.GetPlayerID(r.Context())

	var req ReadyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	player, err := h.playerSvc.SetReady(r.Context(), playerID, req.Ready)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

// UpdateConfig handles PATCH /v1/rooms/{code}/config
func (h *RoomHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	playerID := middleware.GetPlayerID(r.Context())

	var patch model.RoomConfigPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	room, err := h.roomSvc.GetRoomByCode(r.Context(), code)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if room == nil {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}

	updated, err := h.roomSvc.UpdateConfig(r.Context(), room.ID, playerID, &patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// KickRequest is the request body for kicking a player
type KickRequest struct {
	PlayerID string `json:"playerId"`
}

// Kick handles POST /v1/rooms/{code}/kick
func (h *RoomHandler) Kick(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetPlayerID(r.Context())

	var req KickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.playerSvc.Kick(r.Context(), actorID, req.PlayerID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "kicked"})
}
