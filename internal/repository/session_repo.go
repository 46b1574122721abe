package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"sinfiltro/internal/model"
)

// SessionRepo handles MongoDB operations for game sessions. Map-entry writes
// and the round-guarded replace are the storage half of the lost-update fix:
// per-document updates are atomic in MongoDB, so two players submitting at
// the same instant each land their own roundAnswers entry.
type SessionRepo interface {
	Create(ctx context.Context, session *model.GameSession) error
	GetByID(ctx context.Context, id string) (*model.GameSession, error)
	GetActiveByRoom(ctx context.Context, roomID string) (*model.GameSession, error)
	SetAnswer(ctx context.Context, sessionID, playerID string, answer model.RoundAnswer) error
	SetVote(ctx context.Context, sessionID, voterID, value string) error
	SetPhase(ctx context.Context, sessionID string, phase model.Phase) error
	ReplaceIfRound(ctx context.Context, session *model.GameSession, expectedRound int) (bool, error)
	Delete(ctx context.Context, id string) error
}

type sessionRepo struct {
	collection *mongo.Collection
}

// NewSessionRepo creates a new session repository
func NewSessionRepo(db *mongo.Database) SessionRepo {
	return &sessionRepo{
		collection: db.Collection("game_sessions"),
	}
}

func (r *sessionRepo) Create(ctx context.Context, session *model.GameSession) error {
	_, err := r.collection.InsertOne(ctx, session)
	return err
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*model.GameSession, error) {
	var session model.GameSession
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) GetActiveByRoom(ctx context.Context, roomID string) (*model.GameSession, error) {
	var session model.GameSession
	err := r.collection.FindOne(ctx, bson.M{"roomId": roomID, "isGameOver": false}).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// SetAnswer upserts a single map entry via a dotted path, last write wins
// per player without touching other players' entries.
func (r *sessionRepo) SetAnswer(ctx context.Context, sessionID, playerID string, answer model.RoundAnswer) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": sessionID}, bson.M{
		"$set": bson.M{"roundAnswers." + playerID: answer},
	})
	return err
}

func (r *sessionRepo) SetVote(ctx context.Context, sessionID, voterID, value string) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": sessionID}, bson.M{
		"$set": bson.M{"roundVotes." + voterID: value},
	})
	return err
}

func (r *sessionRepo) SetPhase(ctx context.Context, sessionID string, phase model.Phase) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": sessionID}, bson.M{
		"$set": bson.M{"phase": phase},
	})
	return err
}

// ReplaceIfRound replaces the session document only while currentRound still
// equals expectedRound. Returns false when another advance won the race.
func (r *sessionRepo) ReplaceIfRound(ctx context.Context, session *model.GameSession, expectedRound int) (bool, error) {
	result, err := r.collection.ReplaceOne(ctx, bson.M{
		"_id":          session.ID,
		"currentRound": expectedRound,
	}, session)
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}

func (r *sessionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
