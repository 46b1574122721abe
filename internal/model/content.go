package model

// Category is an intensity/theme tag filtering eligible content.
type Category string

const (
	CategorySuave     Category = "suave"
	CategoryAtrevida  Category = "atrevida"
	CategorySinFiltro Category = "sin_filtro"
)

func (c Category) Valid() bool {
	switch c {
	case CategorySuave, CategoryAtrevida, CategorySinFiltro:
		return true
	}
	return false
}

// ContentType is the closed set of round content kinds. Scoring and phase
// behavior switch exhaustively over it; adding a kind means touching every
// switch that the compiler flags.
type ContentType string

const (
	ContentQuestion   ContentType = "question"
	ContentGroupVote  ContentType = "group_vote"
	ContentChallenge  ContentType = "challenge"
	ContentConfession ContentType = "confession"
	ContentHotSeat    ContentType = "hot_seat"
)

func (t ContentType) Valid() bool {
	switch t {
	case ContentQuestion, ContentGroupVote, ContentChallenge, ContentConfession, ContentHotSeat:
		return true
	}
	return false
}

// Fixed per-type point awards.
const (
	PointsAnswer        = 10 // question / confession / hot_seat, per answering player
	PointsGroupVoteWin  = 20 // each player tied for the max vote count
	PointsChallengeDone = 30 // hot-seat player, strict majority of completed verdicts
)

// Points returns the award a single qualifying player earns for this type.
func (t ContentType) Points() int {
	switch t {
	case ContentQuestion, ContentConfession, ContentHotSeat:
		return PointsAnswer
	case ContentGroupVote:
		return PointsGroupVoteWin
	case ContentChallenge:
		return PointsChallengeDone
	}
	return 0
}

// Challenge verdicts, the only legal vote values for challenge rounds.
const (
	VerdictCompleted    = "completed"
	VerdictNotCompleted = "not_completed"
)

// GameContent is one immutable prompt from the categorized pool.
type GameContent struct {
	ID            string      `json:"id" bson:"_id,omitempty"`
	Type          ContentType `json:"type" bson:"type"`
	Category      Category    `json:"category" bson:"category"`
	Text          string      `json:"text" bson:"text"`
	IsGroupTarget bool        `json:"isGroupTarget" bson:"isGroupTarget"`
	Instructions  string      `json:"instructions,omitempty" bson:"instructions,omitempty"`
	IsActive      bool        `json:"isActive" bson:"isActive"`
}
