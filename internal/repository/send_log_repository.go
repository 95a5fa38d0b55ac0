package repository

import (
	"context"
	"time"

	"github.com/vaidarjogo/go-confirmation-service/internal/domain"
	apperrors "github.com/vaidarjogo/go-confirmation-service/internal/shared/errors"
	"github.com/vaidarjogo/go-confirmation-service/internal/shared/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const sendLogsCollection = "confirmation_send_logs"

// SendLogRepository is the idempotency ledger of dispatch attempts. The
// at-most-once guarantee rests on the deterministic _id of each attempt:
// whichever concurrent run inserts first wins, the loser gets a duplicate-key
// error surfaced as ErrAlreadyRecorded.
type SendLogRepository struct {
	client *mongodb.MongoClient
}

// NewSendLogRepository creates a new send log repository
func NewSendLogRepository(client *mongodb.MongoClient) *SendLogRepository {
	return &SendLogRepository{client: client}
}

// EnsureIndexes creates the indexes backing idempotency checks and history queries
func (r *SendLogRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "player_id", Value: 1},
				{Key: "session_date", Value: 1},
				{Key: "tier_id", Value: 1},
			},
			Options: options.Index().SetName("dispatch_key_idx"),
		},
		{
			Keys:    bson.D{{Key: "game_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("game_created_idx"),
		},
	}
	return r.client.CreateIndexes(ctx, sendLogsCollection, indexes)
}

// HasSent reports whether a terminal sent record exists for the key
func (r *SendLogRepository) HasSent(ctx context.Context, playerID primitive.ObjectID, sessionDate time.Time, tierID string) (bool, error) {
	filter := bson.M{
		"player_id":    playerID,
		"session_date": sessionDate.UTC(),
		"tier_id":      tierID,
		"status":       domain.SendStatusSent,
	}

	count, err := r.client.Collection(sendLogsCollection).CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountAttempts returns the number of recorded attempts for the key
func (r *SendLogRepository) CountAttempts(ctx context.Context, playerID primitive.ObjectID, sessionDate time.Time, tierID string) (int, error) {
	filter := bson.M{
		"player_id":    playerID,
		"session_date": sessionDate.UTC(),
		"tier_id":      tierID,
	}

	count, err := r.client.Collection(sendLogsCollection).CountDocuments(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// RecordAttempt inserts one dispatch attempt. The _id is derived from the
// idempotency key and attempt number, so the insert is conditional: a
// duplicate means a concurrent run already recorded this attempt and the
// caller must treat the recipient as handled.
func (r *SendLogRepository) RecordAttempt(ctx context.Context, log *domain.SendLog) error {
	log.ID = domain.SendLogID(
		domain.SendLogKey(log.PlayerID, log.SessionDate, log.TierID),
		log.Attempt,
	)
	log.SessionDate = log.SessionDate.UTC()
	log.CreatedAt = time.Now()

	_, err := r.client.Collection(sendLogsCollection).InsertOne(ctx, log)
	if mongo.IsDuplicateKeyError(err) {
		return apperrors.ErrAlreadyRecorded
	}
	return err
}

// Find retrieves dispatch history with pagination, newest first
func (r *SendLogRepository) Find(ctx context.Context, gameID, playerID *primitive.ObjectID, page, pageSize int) ([]*domain.SendLog, int64, error) {
	filter := bson.M{}
	if gameID != nil {
		filter["game_id"] = *gameID
	}
	if playerID != nil {
		filter["player_id"] = *playerID
	}

	total, err := r.client.Collection(sendLogsCollection).CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	skip := (page - 1) * pageSize
	opts := options.Find().
		SetSkip(int64(skip)).
		SetLimit(int64(pageSize)).
		SetSort(bson.M{"created_at": -1})

	cursor, err := r.client.Collection(sendLogsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var logs []*domain.SendLog
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
