package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/vaidarjogo/go-confirmation-service/internal/domain"
	"github.com/vaidarjogo/go-confirmation-service/internal/metrics"
	apperrors "github.com/vaidarjogo/go-confirmation-service/internal/shared/errors"
	"github.com/vaidarjogo/go-confirmation-service/internal/shared/logger"
	"github.com/vaidarjogo/go-confirmation-service/internal/whatsapp"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ConfirmationService is the confirmation engine: it walks active games and
// their send tiers, prompts eligible players through the transport and keeps
// the dispatch ledger. Scheduled ticks and administrative triggers share the
// same code path, so the at-most-once guarantee holds whoever pulls the
// trigger. Nothing here is fatal: every failure at player, tier or game
// granularity becomes an error counter and the run always returns a summary.
type ConfirmationService struct {
	games         GameStore
	players       PlayerStore
	sendLogs      SendLogStore
	confirmations ConfirmationStore
	deadLetters   DeadLetterSink
	sender        Sender
	defaultLoc    *time.Location
	maxAttempts   int
	log           *logger.Logger

	// now is the injectable clock; tests pin it to a fixed instant.
	now func() time.Time
}

// NewConfirmationService creates a new confirmation service
func NewConfirmationService(
	games GameStore,
	players PlayerStore,
	sendLogs SendLogStore,
	confirmations ConfirmationStore,
	deadLetters DeadLetterSink,
	sender Sender,
	defaultLoc *time.Location,
	maxAttempts int,
	log *logger.Logger,
) *ConfirmationService {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}

	return &ConfirmationService{
		games:         games,
		players:       players,
		sendLogs:      sendLogs,
		confirmations: confirmations,
		deadLetters:   deadLetters,
		sender:        sender,
		defaultLoc:    defaultLoc,
		maxAttempts:   maxAttempts,
		log:           log,
		now:           time.Now,
	}
}

// ProcessAll runs the engine over every active game
func (s *ConfirmationService) ProcessAll(ctx context.Context) *domain.RunSummary {
	summary := &domain.RunSummary{
		RunID:     uuid.New().String(),
		StartedAt: s.now(),
	}
	start := time.Now()

	games, err := s.games.FindActive(ctx)
	if err != nil {
		s.log.Error("Failed to load active games", "error", err, "run_id", summary.RunID)
		summary.Errors++
		summary.FinishedAt = s.now()
		return summary
	}

	for _, game := range games {
		result := s.processGame(ctx, game)
		summary.Add(result)
	}
	summary.Games = len(games)
	summary.FinishedAt = s.now()

	metrics.EngineRunDuration.Observe(time.Since(start).Seconds())
	s.log.Info("Confirmation run finished",
		"run_id", summary.RunID,
		"games", summary.Games,
		"processed", summary.Processed,
		"sent", summary.Sent,
		"errors", summary.Errors,
	)

	return summary
}

// ProcessGame runs the engine for a single game, e.g. an administrative
// re-trigger. Shares the tier pipeline with ProcessAll.
func (s *ConfirmationService) ProcessGame(ctx context.Context, gameID primitive.ObjectID) (*domain.RunSummary, error) {
	game, err := s.games.FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}

	summary := &domain.RunSummary{
		RunID:     uuid.New().String(),
		StartedAt: s.now(),
		Games:     1,
	}
	result := s.processGame(ctx, game)
	summary.Add(result)
	summary.FinishedAt = s.now()
	return summary, nil
}

// processGame loads the game's config and next session and walks its tiers.
// Games without an active config or a future session are skipped, not errored.
func (s *ConfirmationService) processGame(ctx context.Context, game *domain.Game) domain.RunSummary {
	var summary domain.RunSummary

	config, err := s.games.FindActiveConfig(ctx, game.ID)
	if errors.Is(err, apperrors.ErrNotFound) {
		s.log.Warn("Game has no active confirmation config", "game_id", game.ID.Hex())
		return summary
	}
	if err != nil {
		s.log.Error("Failed to load confirmation config", "error", err, "game_id", game.ID.Hex())
		summary.Errors++
		return summary
	}

	session, err := s.games.FindNextSession(ctx, game.ID, s.now())
	if errors.Is(err, apperrors.ErrNotFound) {
		s.log.Warn("Game has no upcoming session", "game_id", game.ID.Hex())
		return summary
	}
	if err != nil {
		s.log.Error("Failed to load next session", "error", err, "game_id", game.ID.Hex())
		summary.Errors++
		return summary
	}

	loc := s.locationFor(game)

	for _, tier := range config.Tiers {
		if !tier.IsActive {
			continue
		}
		result := s.processTier(ctx, game, session, tier, loc)
		summary.Add(result)
	}

	return summary
}

// processTier dispatches one (game, session, tier) unit of work. Players are
// processed strictly sequentially; a failure on one never aborts the rest.
func (s *ConfirmationService) processTier(ctx context.Context, game *domain.Game, session *domain.GameSession, tier domain.SendTier, loc *time.Location) domain.RunSummary {
	var summary domain.RunSummary

	if !ShouldSend(session.SessionDate, tier.HoursBefore, s.now(), loc) {
		return summary
	}

	players, err := s.players.FindForGame(ctx, game.ID, tier.PlayerType)
	if err != nil {
		s.log.Error("Failed to load players", "error", err, "game_id", game.ID.Hex(), "tier_id", tier.ID)
		summary.Errors++
		return summary
	}

	for _, player := range players {
		summary.Processed++

		sent, errored := s.processPlayer(ctx, game, session, tier, player, loc)
		if sent {
			summary.Sent++
		}
		if errored {
			summary.Errors++
		}
	}

	return summary
}

// processPlayer runs the per-recipient pipeline: answer check, ledger check,
// attempt cap, contact resolution, compose, send, record.
func (s *ConfirmationService) processPlayer(ctx context.Context, game *domain.Game, session *domain.GameSession, tier domain.SendTier, player *domain.Player, loc *time.Location) (sent, errored bool) {
	confirmation, err := s.confirmations.FindByPlayerAndSession(ctx, player.ID, session.SessionDate)
	if err != nil {
		s.log.Error("Failed to check confirmation", "error", err, "player_id", player.ID.Hex())
		return false, true
	}
	if confirmation.Answered() {
		metrics.ConfirmationsSkipped.WithLabelValues("answered").Inc()
		return false, false
	}

	alreadySent, err := s.sendLogs.HasSent(ctx, player.ID, session.SessionDate, tier.ID)
	if err != nil {
		s.log.Error("Failed to check send log", "error", err, "player_id", player.ID.Hex())
		return false, true
	}
	if alreadySent {
		metrics.ConfirmationsSkipped.WithLabelValues("already_sent").Inc()
		return false, false
	}

	attempts, err := s.sendLogs.CountAttempts(ctx, player.ID, session.SessionDate, tier.ID)
	if err != nil {
		s.log.Error("Failed to count attempts", "error", err, "player_id", player.ID.Hex())
		return false, true
	}
	if attempts >= s.maxAttempts {
		metrics.ConfirmationsSkipped.WithLabelValues("exhausted").Inc()
		s.flagExhausted(ctx, game, session, tier, player, attempts, "max send attempts reached")
		return false, false
	}

	phone := player.ContactPhone()
	if phone == "" {
		s.log.Warn("Player has no resolvable phone", "player_id", player.ID.Hex(), "name", player.Name)
		metrics.ConfirmationsSkipped.WithLabelValues("no_phone").Inc()
		return false, true
	}

	text := ComposeConfirmationMessage(player, game, session, tier, loc)
	result, sendErr := s.sender.Send(ctx, whatsapp.NormalizePhone(phone), text)

	log := &domain.SendLog{
		GameID:      game.ID,
		PlayerID:    player.ID,
		SessionDate: session.SessionDate,
		TierID:      tier.ID,
		Attempt:     attempts + 1,
		SentAt:      s.now(),
	}
	if sendErr != nil {
		log.Status = domain.SendStatusFailed
		log.Error = sendErr.Error()
	} else {
		log.Status = domain.SendStatusSent
		log.MessageID = result.MessageID
	}

	if recordErr := s.sendLogs.RecordAttempt(ctx, log); recordErr != nil {
		if errors.Is(recordErr, apperrors.ErrAlreadyRecorded) {
			// A concurrent run won the race for this key; the recipient is
			// handled, not errored.
			s.log.Warn("Lost dispatch race", "player_id", player.ID.Hex(), "tier_id", tier.ID)
			metrics.ConfirmationsSkipped.WithLabelValues("conflict").Inc()
			return false, false
		}
		s.log.Error("Failed to record send attempt", "error", recordErr, "player_id", player.ID.Hex())
		return false, true
	}

	if sendErr != nil {
		s.log.Error("Failed to send confirmation", "error", sendErr, "player_id", player.ID.Hex(), "name", player.Name)
		metrics.ConfirmationsSent.WithLabelValues(game.ID.Hex(), string(domain.SendStatusFailed)).Inc()
		if attempts+1 >= s.maxAttempts {
			s.flagExhausted(ctx, game, session, tier, player, attempts+1, sendErr.Error())
		}
		return false, true
	}

	s.log.Info("Confirmation sent", "player", player.Name, "phone", phone, "tier_id", tier.ID)
	metrics.ConfirmationsSent.WithLabelValues(game.ID.Hex(), string(domain.SendStatusSent)).Inc()
	return true, false
}

// flagExhausted hands a spent dispatch key to the dead letter store
func (s *ConfirmationService) flagExhausted(ctx context.Context, game *domain.Game, session *domain.GameSession, tier domain.SendTier, player *domain.Player, attempts int, reason string) {
	letter := &domain.DeadLetter{
		Key:         domain.SendLogKey(player.ID, session.SessionDate, tier.ID),
		GameID:      game.ID,
		PlayerID:    player.ID,
		Phone:       player.ContactPhone(),
		SessionDate: session.SessionDate,
		TierID:      tier.ID,
		Attempts:    attempts,
		LastError:   reason,
		FailedAt:    s.now(),
	}
	if err := s.deadLetters.Create(ctx, letter); err != nil {
		s.log.Error("Failed to dead-letter dispatch key", "error", err, "key", letter.Key)
	}
}

// SendManual dispatches a single ad-hoc confirmation for one player. The send
// window is bypassed; the idempotency ledger is not.
func (s *ConfirmationService) SendManual(ctx context.Context, gameID, playerID primitive.ObjectID, sessionDate *time.Time) (*domain.SendLog, error) {
	game, err := s.games.FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}

	player, err := s.players.FindByID(ctx, playerID)
	if err != nil {
		return nil, err
	}

	var session *domain.GameSession
	if sessionDate != nil {
		session = &domain.GameSession{GameID: gameID, SessionDate: *sessionDate}
	} else {
		session, err = s.games.FindNextSession(ctx, gameID, s.now())
		if err != nil {
			return nil, err
		}
	}

	tier := domain.SendTier{ID: "manual", PlayerType: player.Type}
	if config, cfgErr := s.games.FindActiveConfig(ctx, gameID); cfgErr == nil && len(config.Tiers) > 0 {
		tier = config.Tiers[0]
	}

	alreadySent, err := s.sendLogs.HasSent(ctx, player.ID, session.SessionDate, tier.ID)
	if err != nil {
		return nil, err
	}
	if alreadySent {
		return nil, apperrors.ErrAlreadyRecorded
	}

	phone := player.ContactPhone()
	if phone == "" {
		return nil, apperrors.NewValidationError("player has no resolvable phone", nil)
	}

	attempts, err := s.sendLogs.CountAttempts(ctx, player.ID, session.SessionDate, tier.ID)
	if err != nil {
		return nil, err
	}

	text := ComposeConfirmationMessage(player, game, session, tier, s.locationFor(game))
	result, sendErr := s.sender.Send(ctx, whatsapp.NormalizePhone(phone), text)

	log := &domain.SendLog{
		GameID:      game.ID,
		PlayerID:    player.ID,
		SessionDate: session.SessionDate,
		TierID:      tier.ID,
		Attempt:     attempts + 1,
		IsManual:    true,
		SentAt:      s.now(),
	}
	if sendErr != nil {
		log.Status = domain.SendStatusFailed
		log.Error = sendErr.Error()
	} else {
		log.Status = domain.SendStatusSent
		log.MessageID = result.MessageID
	}

	if recordErr := s.sendLogs.RecordAttempt(ctx, log); recordErr != nil && !errors.Is(recordErr, apperrors.ErrAlreadyRecorded) {
		s.log.Error("Failed to record manual send", "error", recordErr, "player_id", player.ID.Hex())
	}

	if sendErr != nil {
		return log, sendErr
	}
	return log, nil
}

// RetryDeadLetter re-dispatches an exhausted key on operator request,
// ignoring the attempt cap
func (s *ConfirmationService) RetryDeadLetter(ctx context.Context, letter *domain.DeadLetter) error {
	game, err := s.games.FindByID(ctx, letter.GameID)
	if err != nil {
		return err
	}

	player, err := s.players.FindByID(ctx, letter.PlayerID)
	if err != nil {
		return err
	}

	phone := player.ContactPhone()
	if phone == "" {
		phone = letter.Phone
	}
	if phone == "" {
		return apperrors.NewValidationError("player has no resolvable phone", nil)
	}

	session := &domain.GameSession{GameID: letter.GameID, SessionDate: letter.SessionDate}
	tier := domain.SendTier{ID: letter.TierID, PlayerType: player.Type}

	attempts, err := s.sendLogs.CountAttempts(ctx, player.ID, letter.SessionDate, letter.TierID)
	if err != nil {
		return err
	}

	text := ComposeConfirmationMessage(player, game, session, tier, s.locationFor(game))
	result, sendErr := s.sender.Send(ctx, whatsapp.NormalizePhone(phone), text)

	log := &domain.SendLog{
		GameID:      letter.GameID,
		PlayerID:    player.ID,
		SessionDate: letter.SessionDate,
		TierID:      letter.TierID,
		Attempt:     attempts + 1,
		IsManual:    true,
		SentAt:      s.now(),
	}
	if sendErr != nil {
		log.Status = domain.SendStatusFailed
		log.Error = sendErr.Error()
	} else {
		log.Status = domain.SendStatusSent
		log.MessageID = result.MessageID
	}

	if recordErr := s.sendLogs.RecordAttempt(ctx, log); recordErr != nil && !errors.Is(recordErr, apperrors.ErrAlreadyRecorded) {
		s.log.Error("Failed to record retry", "error", recordErr, "key", letter.Key)
	}

	return sendErr
}

// GetSendLogs returns dispatch history, newest first
func (s *ConfirmationService) GetSendLogs(ctx context.Context, gameID, playerID *primitive.ObjectID, page, pageSize int) ([]*domain.SendLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.sendLogs.Find(ctx, gameID, playerID, page, pageSize)
}

// locationFor resolves the game's timezone, falling back to the default zone
func (s *ConfirmationService) locationFor(game *domain.Game) *time.Location {
	if game.Timezone == "" {
		return s.defaultLoc
	}
	loc, err := time.LoadLocation(game.Timezone)
	if err != nil {
		s.log.Warn("Invalid game timezone, using default", "game_id", game.ID.Hex(), "timezone", game.Timezone)
		return s.defaultLoc
	}
	return loc
}
