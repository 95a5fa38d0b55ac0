package service

import (
	"context"
	"time"

	"github.com/vaidarjogo/go-confirmation-service/internal/domain"
	apperrors "github.com/vaidarjogo/go-confirmation-service/internal/shared/errors"
	"github.com/vaidarjogo/go-confirmation-service/internal/whatsapp"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory fakes for the store contracts. Single-goroutine tests only.

type fakeGameStore struct {
	games    map[primitive.ObjectID]*domain.Game
	configs  map[primitive.ObjectID]*domain.ConfirmationConfig
	sessions map[primitive.ObjectID]*domain.GameSession
}

func newFakeGameStore() *fakeGameStore {
	return &fakeGameStore{
		games:    make(map[primitive.ObjectID]*domain.Game),
		configs:  make(map[primitive.ObjectID]*domain.ConfirmationConfig),
		sessions: make(map[primitive.ObjectID]*domain.GameSession),
	}
}

func (f *fakeGameStore) FindByID(_ context.Context, id primitive.ObjectID) (*domain.Game, error) {
	game, ok := f.games[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return game, nil
}

func (f *fakeGameStore) FindActive(_ context.Context) ([]*domain.Game, error) {
	var active []*domain.Game
	for _, game := range f.games {
		if game.Status == domain.GameStatusActive {
			active = append(active, game)
		}
	}
	return active, nil
}

func (f *fakeGameStore) FindActiveConfig(_ context.Context, gameID primitive.ObjectID) (*domain.ConfirmationConfig, error) {
	config, ok := f.configs[gameID]
	if !ok || !config.IsActive {
		return nil, apperrors.ErrNotFound
	}
	return config, nil
}

func (f *fakeGameStore) FindNextSession(_ context.Context, gameID primitive.ObjectID, now time.Time) (*domain.GameSession, error) {
	session, ok := f.sessions[gameID]
	if !ok || session.SessionDate.Before(now) {
		return nil, apperrors.ErrNotFound
	}
	return session, nil
}

type fakePlayerStore struct {
	players []*domain.Player
}

func (f *fakePlayerStore) FindForGame(_ context.Context, gameID primitive.ObjectID, playerType domain.PlayerType) ([]*domain.Player, error) {
	var matched []*domain.Player
	for _, player := range f.players {
		if player.GameID != gameID {
			continue
		}
		if playerType != domain.PlayerTypeAll && player.Type != playerType {
			continue
		}
		matched = append(matched, player)
	}
	return matched, nil
}

func (f *fakePlayerStore) FindByID(_ context.Context, id primitive.ObjectID) (*domain.Player, error) {
	for _, player := range f.players {
		if player.ID == id {
			return player, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakePlayerStore) FindByPhone(_ context.Context, phone string) (*domain.Player, error) {
	for _, player := range f.players {
		if whatsapp.NormalizePhone(player.ContactPhone()) == phone {
			return player, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

type fakeSendLogStore struct {
	logs map[string]*domain.SendLog

	// forceConflict makes the next RecordAttempt lose the idempotency race
	forceConflict bool
}

func newFakeSendLogStore() *fakeSendLogStore {
	return &fakeSendLogStore{logs: make(map[string]*domain.SendLog)}
}

func (f *fakeSendLogStore) HasSent(_ context.Context, playerID primitive.ObjectID, sessionDate time.Time, tierID string) (bool, error) {
	key := domain.SendLogKey(playerID, sessionDate, tierID)
	for _, log := range f.logs {
		if domain.SendLogKey(log.PlayerID, log.SessionDate, log.TierID) == key && log.Status == domain.SendStatusSent {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSendLogStore) CountAttempts(_ context.Context, playerID primitive.ObjectID, sessionDate time.Time, tierID string) (int, error) {
	key := domain.SendLogKey(playerID, sessionDate, tierID)
	count := 0
	for _, log := range f.logs {
		if domain.SendLogKey(log.PlayerID, log.SessionDate, log.TierID) == key {
			count++
		}
	}
	return count, nil
}

func (f *fakeSendLogStore) RecordAttempt(_ context.Context, log *domain.SendLog) error {
	if f.forceConflict {
		f.forceConflict = false
		return apperrors.ErrAlreadyRecorded
	}

	id := domain.SendLogID(domain.SendLogKey(log.PlayerID, log.SessionDate, log.TierID), log.Attempt)
	if _, exists := f.logs[id]; exists {
		return apperrors.ErrAlreadyRecorded
	}
	log.ID = id
	stored := *log
	f.logs[id] = &stored
	return nil
}

func (f *fakeSendLogStore) Find(_ context.Context, _, _ *primitive.ObjectID, _, _ int) ([]*domain.SendLog, int64, error) {
	var logs []*domain.SendLog
	for _, log := range f.logs {
		logs = append(logs, log)
	}
	return logs, int64(len(logs)), nil
}

type fakeConfirmationStore struct {
	confirmations map[string]*domain.PlayerConfirmation
}

func newFakeConfirmationStore() *fakeConfirmationStore {
	return &fakeConfirmationStore{confirmations: make(map[string]*domain.PlayerConfirmation)}
}

func confirmationKey(playerID primitive.ObjectID, sessionDate time.Time) string {
	return playerID.Hex() + "|" + sessionDate.UTC().Format(time.RFC3339)
}

func (f *fakeConfirmationStore) FindByPlayerAndSession(_ context.Context, playerID primitive.ObjectID, sessionDate time.Time) (*domain.PlayerConfirmation, error) {
	return f.confirmations[confirmationKey(playerID, sessionDate)], nil
}

func (f *fakeConfirmationStore) Upsert(_ context.Context, confirmation *domain.PlayerConfirmation) error {
	stored := *confirmation
	f.confirmations[confirmationKey(confirmation.PlayerID, confirmation.SessionDate)] = &stored
	return nil
}

type fakeDeadLetterSink struct {
	letters []*domain.DeadLetter
}

func (f *fakeDeadLetterSink) Create(_ context.Context, letter *domain.DeadLetter) error {
	for _, existing := range f.letters {
		if existing.Key == letter.Key {
			return nil
		}
	}
	f.letters = append(f.letters, letter)
	return nil
}

type fakeSender struct {
	calls    int
	lastText string
	lastTo   string
	err      error
}

func (f *fakeSender) Send(_ context.Context, phone, text string) (*whatsapp.SendResult, error) {
	f.calls++
	f.lastTo = phone
	f.lastText = text
	if f.err != nil {
		return nil, f.err
	}
	return &whatsapp.SendResult{MessageID: "wamid.test"}, nil
}
