package model

import "time"

type RoomStatus string

const (
	RoomWaiting   RoomStatus = "waiting"
	RoomPlaying   RoomStatus = "playing"
	RoomPaused    RoomStatus = "paused"
	RoomFinished  RoomStatus = "finished"
	RoomAbandoned RoomStatus = "abandoned"
)

// IsTerminal reports whether the status permits no further mutation.
func (s RoomStatus) IsTerminal() bool {
	return s == RoomFinished || s == RoomAbandoned
}

// CanTransitionTo enforces one-directional lifecycle transitions, with
// waiting<->paused as the only reversible pair.
func (s RoomStatus) CanTransitionTo(next RoomStatus) bool {
	switch s {
	case RoomWaiting:
		return next == RoomPlaying || next == RoomPaused || next == RoomAbandoned
	case RoomPaused:
		return next == RoomWaiting || next == RoomAbandoned
	case RoomPlaying:
		return next == RoomFinished || next == RoomAbandoned
	default:
		return false
	}
}

// RoomConfig is the host-tunable game configuration.
type RoomConfig struct {
	Categories    []Category `json:"categories" bson:"categories"`
	Intensity     int        `json:"intensity" bson:"intensity"`
	MinPlayers    int        `json:"minPlayers" bson:"minPlayers"`
	MaxPlayers    int        `json:"maxPlayers" bson:"maxPlayers"`
	RoundsPerGame int        `json:"roundsPerGame" bson:"roundsPerGame"`
	TimePerRound  int        `json:"timePerRound" bson:"timePerRound"` // seconds
	AllowLateJoin bool       `json:"allowLateJoin" bson:"allowLateJoin"`
}

// DefaultRoomConfig returns the config applied when the host overrides nothing.
func DefaultRoomConfig() RoomConfig {
	return RoomConfig{
		Categories:    []Category{CategorySuave},
		Intensity:     1,
		MinPlayers:    3,
		MaxPlayers:    8,
		RoundsPerGame: 10,
		TimePerRound:  60,
		AllowLateJoin: true,
	}
}

// RoomConfigPatch carries partial config updates; nil fields are left untouched.
type RoomConfigPatch struct {
	Categories    *[]Category `json:"categories,omitempty"`
	Intensity     *int        `json:"intensity,omitempty"`
	MinPlayers    *int        `json:"minPlayers,omitempty"`
	MaxPlayers    *int        `json:"maxPlayers,omitempty"`
	RoundsPerGame *int        `json:"roundsPerGame,omitempty"`
	TimePerRound  *int        `json:"timePerRound,omitempty"`
	AllowLateJoin *bool       `json:"allowLateJoin,omitempty"`
}

// Apply shallow-merges the patch onto a copy of the config.
func (p *RoomConfigPatch) Apply(cfg RoomConfig) RoomConfig {
	if p == nil {
		return cfg
	}
	if p.Categories != nil {
		cfg.Categories = *p.Categories
	}
	if p.Intensity != nil {
		cfg.Intensity = *p.Intensity
	}
	if p.MinPlayers != nil {
		cfg.MinPlayers = *p.MinPlayers
	}
	if p.MaxPlayers != nil {
		cfg.MaxPlayers = *p.MaxPlayers
	}
	if p.RoundsPerGame != nil {
		cfg.RoundsPerGame = *p.RoundsPerGame
	}
	if p.TimePerRound != nil {
		cfg.TimePerRound = *p.TimePerRound
	}
	if p.AllowLateJoin != nil {
		cfg.AllowLateJoin = *p.AllowLateJoin
	}
	return cfg
}

type Room struct {
	ID         string     `json:"id" bson:"_id,omitempty"`
	Code       string     `json:"code" bson:"code"`
	HostID     *string    `json:"hostId" bson:"hostId"` // nil for anonymous hosts
	Status     RoomStatus `json:"status" bson:"status"`
	Config     RoomConfig `json:"config" bson:"config"`
	CreatedAt  time.Time  `json:"createdAt" bson:"createdAt"`
	StartedAt  *time.Time `json:"startedAt,omitempty" bson:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty" bson:"finishedAt,omitempty"`
}

// RoomMeta is the Redis-cached view of a room used for fast joinability checks.
type RoomMeta struct {
	RoomID        string     `json:"roomId"`
	Status        RoomStatus `json:"status"`
	MaxPlayers    int        `json:"maxPlayers"`
	AllowLateJoin bool       `json:"allowLateJoin"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Joinability is the answer to "can a new player enter this room right now".
type Joinability struct {
	Joinable bool   `json:"joinable"`
	Reason   string `json:"reason,omitempty"`
}
