package dlq

import (
	"context"
	"fmt"

	"github.com/vaidarjogo/go-confirmation-service/internal/domain"
	"github.com/vaidarjogo/go-confirmation-service/internal/metrics"
	"github.com/vaidarjogo/go-confirmation-service/internal/repository"
	"github.com/vaidarjogo/go-confirmation-service/internal/shared/logger"
)

// Dispatcher re-sends an exhausted dispatch key on operator request
type Dispatcher interface {
	RetryDeadLetter(ctx context.Context, letter *domain.DeadLetter) error
}

// DeadLetterQueue holds dispatch keys that exhausted their send attempts and
// were flagged for manual attention
type DeadLetterQueue struct {
	repo *repository.DeadLetterRepository
	log  *logger.Logger
}

// NewDeadLetterQueue creates a new dead letter queue
func NewDeadLetterQueue(repo *repository.DeadLetterRepository, log *logger.Logger) *DeadLetterQueue {
	return &DeadLetterQueue{
		repo: repo,
		log:  log,
	}
}

// GetAll retrieves dead letters with pagination
func (dlq *DeadLetterQueue) GetAll(ctx context.Context, page, pageSize int) ([]*domain.DeadLetter, int64, error) {
	return dlq.repo.FindAll(ctx, page, pageSize)
}

// Requeue re-dispatches a dead letter and removes it on success
func (dlq *DeadLetterQueue) Requeue(ctx context.Context, id string, dispatcher Dispatcher) error {
	letter, err := dlq.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find dead letter: %w", err)
	}

	dlq.log.Info("Requeuing dead letter", "id", id, "key", letter.Key)

	if err := dispatcher.RetryDeadLetter(ctx, letter); err != nil {
		return fmt.Errorf("requeue failed: %w", err)
	}

	if err := dlq.repo.Delete(ctx, id); err != nil {
		return err
	}
	dlq.refreshSize(ctx)
	return nil
}

func (dlq *DeadLetterQueue) refreshSize(ctx context.Context) {
	if count, err := dlq.repo.Count(ctx); err == nil {
		metrics.DLQSize.Set(float64(count))
	}
}
