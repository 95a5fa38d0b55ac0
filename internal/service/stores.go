package service

import (
	"context"
	"time"

	"github.com/vaidarjogo/go-confirmation-service/internal/domain"
	"github.com/vaidarjogo/go-confirmation-service/internal/whatsapp"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// The engine consumes its collaborators through these narrow contracts; the
// mongo repositories satisfy them in production, test fakes in _test files.

// GameStore loads games, their confirmation configs and sessions
type GameStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Game, error)
	FindActive(ctx context.Context) ([]*domain.Game, error)
	FindActiveConfig(ctx context.Context, gameID primitive.ObjectID) (*domain.ConfirmationConfig, error)
	FindNextSession(ctx context.Context, gameID primitive.ObjectID, now time.Time) (*domain.GameSession, error)
}

// PlayerStore selects recipients
type PlayerStore interface {
	FindForGame(ctx context.Context, gameID primitive.ObjectID, playerType domain.PlayerType) ([]*domain.Player, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Player, error)
	FindByPhone(ctx context.Context, phone string) (*domain.Player, error)
}

// SendLogStore is the idempotency ledger of dispatch attempts
type SendLogStore interface {
	HasSent(ctx context.Context, playerID primitive.ObjectID, sessionDate time.Time, tierID string) (bool, error)
	CountAttempts(ctx context.Context, playerID primitive.ObjectID, sessionDate time.Time, tierID string) (int, error)
	RecordAttempt(ctx context.Context, log *domain.SendLog) error
	Find(ctx context.Context, gameID, playerID *primitive.ObjectID, page, pageSize int) ([]*domain.SendLog, int64, error)
}

// ConfirmationStore is the response ledger of presence answers
type ConfirmationStore interface {
	FindByPlayerAndSession(ctx context.Context, playerID primitive.ObjectID, sessionDate time.Time) (*domain.PlayerConfirmation, error)
	Upsert(ctx context.Context, confirmation *domain.PlayerConfirmation) error
}

// DeadLetterSink receives dispatch keys that exhausted their attempts
type DeadLetterSink interface {
	Create(ctx context.Context, letter *domain.DeadLetter) error
}

// Sender dispatches one text message through the transport
type Sender interface {
	Send(ctx context.Context, phone, text string) (*whatsapp.SendResult, error)
}
