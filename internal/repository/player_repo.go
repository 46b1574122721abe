package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"sinfiltro/internal/model"
)

// PlayerRepo handles MongoDB operations for roster rows
type PlayerRepo interface {
	Create(ctx context.Context, player *model.Player) error
	GetByID(ctx context.Context, id string) (*model.Player, error)
	GetByRoom(ctx context.Context, roomID string) ([]*model.Player, error)
	FindByRoomAndUser(ctx context.Context, roomID, userID string) (*model.Player, error)
	CountByRoom(ctx context.Context, roomID string) (int64, error)
	Update(ctx context.Context, player *model.Player) error
	Delete(ctx context.Context, id string) error
	ResetScores(ctx context.Context, roomID string) error
	AddScore(ctx context.Context, playerID string, points int) error
	SetConnected(ctx context.Context, playerID string, connected bool, at time.Time) error
}

type playerRepo struct {
	collection *mongo.Collection
}

// NewPlayerRepo creates a new player repository
func NewPlayerRepo(db *mongo.Database) PlayerRepo {
	return &playerRepo{
		collection: db.Collection("players"),
	}
}

func (r *playerRepo) Create(ctx context.Context, player *model.Player) error {
	_, err := r.collection.InsertOne(ctx, player)
	return err
}

func (r *playerRepo) GetByID(ctx context.Context, id string) (*model.Player, error) {
	var player model.Player
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&player)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &player, nil
}

// GetByRoom returns the roster ordered by join time, earliest first.
func (r *playerRepo) GetByRoom(ctx context.Context, roomID string) ([]*model.Player, error) {
	opts := options.Find().SetSort(bson.M{"joinedAt": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"roomId": roomID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var players []*model.Player
	if err := cursor.All(ctx, &players); err != nil {
		return nil, err
	}
	return players, nil
}

func (r *playerRepo) FindByRoomAndUser(ctx context.Context, roomID, userID string) (*model.Player, error) {
	var player model.Player
	err := r.collection.FindOne(ctx, bson.M{"roomId": roomID, "userId": userID}).Decode(&player)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &player, nil
}

func (r *playerRepo) CountByRoom(ctx context.Context, roomID string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"roomId": roomID})
}

func (r *playerRepo) Update(ctx context.Context, player *model.Player) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": player.ID}, player)
	return err
}

func (r *playerRepo) Delete(ctx context.Context, id string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *playerRepo) ResetScores(ctx context.Context, roomID string) error {
	_, err := r.collection.UpdateMany(ctx, bson.M{"roomId": roomID}, bson.M{"$set": bson.M{"score": 0}})
	return err
}

// AddScore increments atomically so concurrent awards never clobber each other.
func (r *playerRepo) AddScore(ctx context.Context, playerID string, points int) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": playerID}, bson.M{"$inc": bson.M{"score": points}})
	return err
}

func (r *playerRepo) SetConnected(ctx context.Context, playerID string, connected bool, at time.Time) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": playerID}, bson.M{
		"$set": bson.M{"isConnected": connected, "lastSeenAt": at},
	})
	return err
}
