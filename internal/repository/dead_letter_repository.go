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

const deadLettersCollection = "dead_letters"

// DeadLetterRepository stores dispatch keys that exhausted their attempts
type DeadLetterRepository struct {
	client *mongodb.MongoClient
}

// NewDeadLetterRepository creates a new dead letter repository
func NewDeadLetterRepository(client *mongodb.MongoClient) *DeadLetterRepository {
	return &DeadLetterRepository{client: client}
}

// EnsureIndexes creates the unique key index, so flagging the same exhausted
// key twice is a no-op
func (r *DeadLetterRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "key", Value: 1}},
			Options: options.Index().SetName("dead_letter_key_idx").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "failed_at", Value: -1}},
			Options: options.Index().SetName("failed_at_idx"),
		},
	}
	return r.client.CreateIndexes(ctx, deadLettersCollection, indexes)
}

// Create records an exhausted key. Duplicate keys are ignored.
func (r *DeadLetterRepository) Create(ctx context.Context, letter *domain.DeadLetter) error {
	letter.ID = primitive.NewObjectID()
	letter.CreatedAt = time.Now()

	_, err := r.client.Collection(deadLettersCollection).InsertOne(ctx, letter)
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

// FindByID finds a dead letter by ID
func (r *DeadLetterRepository) FindByID(ctx context.Context, id string) (*domain.DeadLetter, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var letter domain.DeadLetter
	err = r.client.Collection(deadLettersCollection).FindOne(ctx, bson.M{"_id": objectID}).Decode(&letter)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &letter, nil
}

// FindAll retrieves dead letters with pagination, newest first
func (r *DeadLetterRepository) FindAll(ctx context.Context, page, pageSize int) ([]*domain.DeadLetter, int64, error) {
	total, err := r.client.Collection(deadLettersCollection).CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	skip := (page - 1) * pageSize
	opts := options.Find().
		SetSkip(int64(skip)).
		SetLimit(int64(pageSize)).
		SetSort(bson.M{"failed_at": -1})

	cursor, err := r.client.Collection(deadLettersCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var letters []*domain.DeadLetter
	if err = cursor.All(ctx, &letters); err != nil {
		return nil, 0, err
	}
	return letters, total, nil
}

// Delete removes a dead letter by ID
func (r *DeadLetterRepository) Delete(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = r.client.Collection(deadLettersCollection).DeleteOne(ctx, bson.M{"_id": objectID})
	return err
}

// Count returns the total number of dead letters
func (r *DeadLetterRepository) Count(ctx context.Context) (int64, error) {
	return r.client.Collection(deadLettersCollection).CountDocuments(ctx, bson.M{})
}
