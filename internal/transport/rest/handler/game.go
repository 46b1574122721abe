package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"sinfiltro/internal/model"
	"sinfiltro/internal/service"
	"sinfiltro/internal/transport/rest/middleware"
)

// GameHandler handles game session endpoints
type GameHandler struct {
	gameSvc *service.GameService
	roomSvc *service.RoomService
}

// NewGameHandler creates a new game handler
func NewGameHandler(gameSvc *service.GameService, roomSvc *service.RoomService) *GameHandler {
	return &GameHandler{
		gameSvc: gameSvc,
		roomSvc: roomSvc,
	}
}

func (h *GameHandler) roomFromPath(w http.ResponseWriter, r *http.Request) *model.Room {
	code := mux.Vars(r)["code"]
	room, err := h.roomSvc.GetRoomByCode(r.Context(), code)
	if err != nil {
		writeServiceError(w, err)
		return nil
	}
	if room == nil {
		writeError(w, http.StatusNotFound, "room not found")
		return nil
	}
	return room
}

// Start handles POST /v1/rooms/{code}/start
func (h *GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.GetPlayerID(r.Context())

	room := h.roomFromPath(w, r)
	if room == nil {
		return
	}

	session, err := h.gameSvc.StartGame(r.Context(), room.ID, playerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"sessionId": session.ID,
		"session":   session,
	})
}

// AnswerRequest is the request body for submitting an answer
type AnswerRequest struct {
	SessionID string `json:"sessionId"`
	Text      string `json:"text"`
}

// Answer handles POST /v1/rooms/{code}/answer
func (h *GameHandler) Answer(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.GetPlayerID(r.Context())

	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.gameSvc.SubmitAnswer(r.Context(), req.SessionID, playerID, req.Text); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "answered"})
}

// VoteRequest is the request body for submitting a vote. Value is a target
// player ID, or a completed/not_completed verdict on challenge rounds.
type VoteRequest struct {
	SessionID string `json:"sessionId"`
	Value     string `json:"value"`
}

// Vote handles POST /v1/rooms/{code}/vote
func (h *GameHandler) Vote(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.GetPlayerID(r.Context())

	var req VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.gameSvc.SubmitVote(r.Context(), req.SessionID, playerID, req.Value); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "voted"})
}

// PhaseRequest is the request body for the reveal-to-answering transition
type PhaseRequest struct {
	SessionID string      `json:"sessionId"`
	Phase     model.Phase `json:"phase"`
}

// Phase handles POST /v1/rooms/{code}/phase
func (h *GameHandler) Phase(w http.ResponseWriter, r *http.Request) {
	var req PhaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.gameSvc.SetPhase(r.Context(), req.SessionID, req.Phase); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// AdvanceRequest names the round the caller believes is ending; stale
// requests lose the idempotency race and get a conflict back.
type AdvanceRequest struct {
	SessionID string `json:"sessionId"`
	Round     int    `json:"round"`
}

// Advance handles POST /v1/rooms/{code}/advance
func (h *GameHandler) Advance(w http.ResponseWriter, r *http.Request) {
	room := h.roomFromPath(w, r)
	if room == nil {
		return
	}

	var req AdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	gameOver, err := h.gameSvc.AdvanceRound(r.Context(), room.ID, req.SessionID, req.Round)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"isGameOver": gameOver})
}

// State handles GET /v1/rooms/{code}/state
func (h *GameHandler) State(w http.ResponseWriter, r *http.Request) {
	room := h.roomFromPath(w, r)
	if room == nil {
		return
	}

	state, err := h.gameSvc.GetGameState(r.Context(), room.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// Results handles GET /v1/rooms/{code}/results
func (h *GameHandler) Results(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.GetPlayerID(r.Context())

	room := h.roomFromPath(w, r)
	if room == nil {
		return
	}

	results, err := h.gameSvc.GetGameResults(r.Context(), room.ID, playerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}
