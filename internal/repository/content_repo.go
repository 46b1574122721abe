package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"sinfiltro/internal/model"
)

// ContentRepo handles MongoDB operations for the read-only prompt pool
type ContentRepo interface {
	GetByID(ctx context.Context, id string) (*model.GameContent, error)
	FindActive(ctx context.Context, categories []model.Category, excludeIDs []string) ([]*model.GameContent, error)
	InsertMany(ctx context.Context, items []*model.GameContent) error
	Count(ctx context.Context) (int64, error)
}

type contentRepo struct {
	collection *mongo.Collection
}

// NewContentRepo creates a new content repository
func NewContentRepo(db *mongo.Database) ContentRepo {
	return &contentRepo{
		collection: db.Collection("game_content"),
	}
}

func (r *contentRepo) GetByID(ctx context.Context, id string) (*model.GameContent, error) {
	var content model.GameContent
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&content)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &content, nil
}

// FindActive returns active prompts in the given categories, excluding
// already-used IDs. Pass nil excludeIDs for the full filtered pool.
func (r *contentRepo) FindActive(ctx context.Context, categories []model.Category, excludeIDs []string) ([]*model.GameContent, error) {
	filter := bson.M{
		"isActive": true,
		"category": bson.M{"$in": categories},
	}
	if len(excludeIDs) > 0 {
		filter["_id"] = bson.M{"$nin": excludeIDs}
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []*model.GameContent
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *contentRepo) InsertMany(ctx context.Context, items []*model.GameContent) error {
	docs := make([]interface{}, len(items))
	for i, item := range items {
		docs[i] = item
	}
	_, err := r.collection.InsertMany(ctx, docs)
	return err
}

func (r *contentRepo) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}
