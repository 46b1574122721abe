package service

import "errors"

// User-facing failures. Handlers map these onto HTTP status codes; anything
// else is treated as a storage error, logged, and surfaced generically.
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrPlayerNotFound  = errors.New("player not found")
	ErrSessionNotFound = errors.New("game session not found")
	ErrNoContent       = errors.New("no content available for these categories")

	ErrNotHost          = errors.New("not the host")
	ErrKickHost         = errors.New("the host cannot be kicked")
	ErrWrongRoom        = errors.New("player is not in this room")
	ErrAlreadyInRoom    = errors.New("already in this room")
	ErrRoomFull         = errors.New("room is full")
	ErrGameStarted      = errors.New("the game has already started")
	ErrRoomClosed       = errors.New("this room is no longer available")
	ErrRoomNotWaiting   = errors.New("room settings can only be changed before the game starts")
	ErrNotEnoughPlayers = errors.New("at least 2 players are needed to start")

	ErrEmptyAnswer    = errors.New("answer cannot be empty")
	ErrSelfVote       = errors.New("you cannot vote for yourself")
	ErrInvalidVerdict = errors.New("invalid challenge verdict")
	ErrWrongPhase     = errors.New("action not allowed in the current phase")
	ErrRoundAdvanced  = errors.New("round already advanced")
	ErrGameOver       = errors.New("the game is over")

	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrInvalidInput  = errors.New("invalid input")
	ErrBadTransition = errors.New("room status change not allowed")
)

// IsUserError reports whether err is one of the expected, user-facing
// failures rather than an infrastructure problem.
func IsUserError(err error) bool {
	for _, target := range []error{
		ErrRoomNotFound, ErrPlayerNotFound, ErrSessionNotFound, ErrNoContent,
		ErrNotHost, ErrKickHost, ErrWrongRoom, ErrAlreadyInRoom, ErrRoomFull,
		ErrGameStarted, ErrRoomClosed, ErrRoomNotWaiting, ErrNotEnoughPlayers,
		ErrEmptyAnswer, ErrSelfVote, ErrInvalidVerdict, ErrWrongPhase,
		ErrRoundAdvanced, ErrGameOver, ErrInvalidToken, ErrInvalidInput,
		ErrBadTransition,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
