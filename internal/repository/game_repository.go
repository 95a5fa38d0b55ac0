package repository

import (
	"context"
	"errors"
	"time"

	"github.com/vaidarjogo/go-confirmation-service/internal/domain"
	apperrors "github.com/vaidarjogo/go-confirmation-service/internal/shared/errors"
	"github.com/vaidarjogo/go-confirmation-service/internal/shared/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	gamesCollection    = "games"
	configsCollection  = "confirmation_configs"
	sessionsCollection = "game_sessions"
)

// GameRepository handles game, config and session data operations
type GameRepository struct {
	client *mongodb.MongoClient
}

// NewGameRepository creates a new game repository
func NewGameRepository(client *mongodb.MongoClient) *GameRepository {
	return &GameRepository{client: client}
}

// EnsureIndexes creates the indexes backing the engine's load phase
func (r *GameRepository) EnsureIndexes(ctx context.Context) error {
	if err := r.client.CreateIndexes(ctx, configsCollection, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "game_id", Value: 1}, {Key: "is_active", Value: 1}},
			Options: options.Index().SetName("game_active_idx"),
		},
	}); err != nil {
		return err
	}

	return r.client.CreateIndexes(ctx, sessionsCollection, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "game_id", Value: 1}, {Key: "session_date", Value: 1}},
			Options: options.Index().SetName("game_session_date_idx"),
		},
	})
}

// FindByID finds a game by ID
func (r *GameRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Game, error) {
	var game domain.Game
	err := r.client.Collection(gamesCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&game)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &game, nil
}

// FindActive finds all active games
func (r *GameRepository) FindActive(ctx context.Context) ([]*domain.Game, error) {
	cursor, err := r.client.Collection(gamesCollection).Find(ctx, bson.M{"status": domain.GameStatusActive})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var games []*domain.Game
	if err = cursor.All(ctx, &games); err != nil {
		return nil, err
	}
	return games, nil
}

// FindActiveConfig finds the active confirmation config of a game.
// Returns ErrNotFound when the game has no active config.
func (r *GameRepository) FindActiveConfig(ctx context.Context, gameID primitive.ObjectID) (*domain.ConfirmationConfig, error) {
	filter := bson.M{"game_id": gameID, "is_active": true}

	var config domain.ConfirmationConfig
	err := r.client.Collection(configsCollection).FindOne(ctx, filter).Decode(&config)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// FindNextSession finds the next scheduled session of a game on or after now.
// Past sessions are immutable history and never returned.
func (r *GameRepository) FindNextSession(ctx context.Context, gameID primitive.ObjectID, now time.Time) (*domain.GameSession, error) {
	filter := bson.M{
		"game_id":      gameID,
		"status":       domain.SessionStatusScheduled,
		"session_date": bson.M{"$gte": now},
	}
	opts := options.FindOne().SetSort(bson.M{"session_date": 1})

	var session domain.GameSession
	err := r.client.Collection(sessionsCollection).FindOne(ctx, filter, opts).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}
