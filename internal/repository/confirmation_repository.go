package repository

import (
	"context"
	"errors"
	"time"

	"github.com/vaidarjogo/go-confirmation-service/internal/domain"
	"github.com/vaidarjogo/go-confirmation-service/internal/shared/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const confirmationsCollection = "player_confirmations"

// ConfirmationRepository is the response ledger: the latest presence answer
// per (player, session)
type ConfirmationRepository struct {
	client *mongodb.MongoClient
}

// NewConfirmationRepository creates a new confirmation repository
func NewConfirmationRepository(client *mongodb.MongoClient) *ConfirmationRepository {
	return &ConfirmationRepository{client: client}
}

// EnsureIndexes creates the unique key index enforcing one answer per (player, session)
func (r *ConfirmationRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "player_id", Value: 1},
				{Key: "session_date", Value: 1},
			},
			Options: options.Index().SetName("player_session_idx").SetUnique(true),
		},
	}
	return r.client.CreateIndexes(ctx, confirmationsCollection, indexes)
}

// FindByPlayerAndSession returns the player's answer for a session, or nil
func (r *ConfirmationRepository) FindByPlayerAndSession(ctx context.Context, playerID primitive.ObjectID, sessionDate time.Time) (*domain.PlayerConfirmation, error) {
	filter := bson.M{
		"player_id":    playerID,
		"session_date": sessionDate.UTC(),
	}

	var confirmation domain.PlayerConfirmation
	err := r.client.Collection(confirmationsCollection).FindOne(ctx, filter).Decode(&confirmation)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &confirmation, nil
}

// Upsert stores a presence answer, replacing any prior answer for the same
// (player, session). Last reply wins.
func (r *ConfirmationRepository) Upsert(ctx context.Context, confirmation *domain.PlayerConfirmation) error {
	confirmation.SessionDate = confirmation.SessionDate.UTC()
	confirmation.UpdatedAt = time.Now()

	filter := bson.M{
		"player_id":    confirmation.PlayerID,
		"session_date": confirmation.SessionDate,
	}
	update := bson.M{
		"$set": bson.M{
			"status":       confirmation.Status,
			"source":       confirmation.Source,
			"confirmed_at": confirmation.ConfirmedAt,
			"updated_at":   confirmation.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"player_id":    confirmation.PlayerID,
			"session_date": confirmation.SessionDate,
		},
	}

	_, err := r.client.Collection(confirmationsCollection).
		UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}
