package repository

import (
	"context"
	"errors"

	"github.com/vaidarjogo/go-confirmation-service/internal/domain"
	apperrors "github.com/vaidarjogo/go-confirmation-service/internal/shared/errors"
	"github.com/vaidarjogo/go-confirmation-service/internal/shared/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	playersCollection = "players"
	usersCollection   = "users"
)

// PlayerRepository handles player and linked-user data operations
type PlayerRepository struct {
	client *mongodb.MongoClient
}

// NewPlayerRepository creates a new player repository
func NewPlayerRepository(client *mongodb.MongoClient) *PlayerRepository {
	return &PlayerRepository{client: client}
}

// EnsureIndexes creates the indexes backing selector and reply lookups
func (r *PlayerRepository) EnsureIndexes(ctx context.Context) error {
	if err := r.client.CreateIndexes(ctx, playersCollection, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "game_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("game_status_idx"),
		},
		{
			Keys:    bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().SetName("phone_idx"),
		},
	}); err != nil {
		return err
	}

	return r.client.CreateIndexes(ctx, usersCollection, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().SetName("user_phone_idx"),
		},
	})
}

// FindForGame returns the active players of a game matching the given type.
// PlayerTypeAll is the wildcard and matches every active player. Linked users
// are joined in so callers can resolve the contact fallback chain.
func (r *PlayerRepository) FindForGame(ctx context.Context, gameID primitive.ObjectID, playerType domain.PlayerType) ([]*domain.Player, error) {
	match := bson.M{"game_id": gameID, "status": "active"}
	if playerType != "" && playerType != domain.PlayerTypeAll {
		match["player_type"] = playerType
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$lookup", Value: bson.M{
			"from":         usersCollection,
			"localField":   "user_id",
			"foreignField": "_id",
			"as":           "linked_users",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"user": bson.M{"$arrayElemAt": bson.A{"$linked_users", 0}},
		}}},
		{{Key: "$project", Value: bson.M{"linked_users": 0}}},
		{{Key: "$sort", Value: bson.M{"name": 1}}},
	}

	cursor, err := r.client.Collection(playersCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var players []*domain.Player
	if err = cursor.All(ctx, &players); err != nil {
		return nil, err
	}
	return players, nil
}

// FindByID finds a player by ID with its linked user joined in
func (r *PlayerRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Player, error) {
	var player domain.Player
	err := r.client.Collection(playersCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&player)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if player.UserID != nil {
		var user domain.User
		err = r.client.Collection(usersCollection).FindOne(ctx, bson.M{"_id": *player.UserID}).Decode(&user)
		if err == nil {
			player.User = &user
		} else if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}
	}

	return &player, nil
}

// FindByPhone finds an active player by contact phone. The player's own phone
// is checked first; failing that, the phone of a linked user. The fallback is
// a single hop: user links never chain.
func (r *PlayerRepository) FindByPhone(ctx context.Context, phone string) (*domain.Player, error) {
	var player domain.Player
	err := r.client.Collection(playersCollection).
		FindOne(ctx, bson.M{"phone": phone, "status": "active"}).
		Decode(&player)
	if err == nil {
		return &player, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	var user domain.User
	err = r.client.Collection(usersCollection).FindOne(ctx, bson.M{"phone": phone}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	err = r.client.Collection(playersCollection).
		FindOne(ctx, bson.M{"user_id": user.ID, "status": "active"}).
		Decode(&player)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	player.User = &user
	return &player, nil
}
