package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/vaidarjogo/go-confirmation-service/internal/domain"
	"github.com/vaidarjogo/go-confirmation-service/internal/metrics"
	apperrors "github.com/vaidarjogo/go-confirmation-service/internal/shared/errors"
	"github.com/vaidarjogo/go-confirmation-service/internal/shared/logger"
	"github.com/vaidarjogo/go-confirmation-service/internal/whatsapp"
)

// Reply keyword sets, checked in fixed priority order:
// confirmed, then declined, then undecided.
var (
	confirmedWords = map[string]bool{
		"sim": true, "yes": true, "confirmo": true, "estarei": true,
		"vou": true, "bora": true,
	}
	declinedWords = map[string]bool{
		"não": true, "nao": true, "no": true,
	}
	undecidedWords = map[string]bool{
		"talvez": true, "maybe": true,
	}
	negationWords = map[string]bool{
		"não": true, "nao": true, "nunca": true, "nem": true,
	}
	// Single-letter shorthands only count when they are the whole reply;
	// as substrings they would match almost any text.
	exactReplies = map[string]domain.ConfirmationStatus{
		"s": domain.ConfirmationStatusConfirmed,
		"y": domain.ConfirmationStatusConfirmed,
		"n": domain.ConfirmationStatusDeclined,
	}
)

// ResolveOutcome labels what happened to an inbound reply
type ResolveOutcome string

const (
	OutcomeResolved     ResolveOutcome = "resolved"
	OutcomeNotFound     ResolveOutcome = "not_found"
	OutcomeUnrecognized ResolveOutcome = "unrecognized"
	OutcomeNoSession    ResolveOutcome = "no_session"
)

// ResolveResult is the outcome of resolving one inbound reply
type ResolveResult struct {
	Outcome ResolveOutcome            `json:"outcome"`
	Player  *domain.Player            `json:"player,omitempty"`
	Status  domain.ConfirmationStatus `json:"status,omitempty"`
	Session *domain.GameSession       `json:"session,omitempty"`
}

// ResponseService resolves free-text replies into presence answers and keeps
// the response ledger. It is fully decoupled from the dispatch pipeline: it
// only writes state the tier processor later reads.
type ResponseService struct {
	players       PlayerStore
	games         GameStore
	confirmations ConfirmationStore
	log           *logger.Logger

	now func() time.Time
}

// NewResponseService creates a new response service
func NewResponseService(players PlayerStore, games GameStore, confirmations ConfirmationStore, log *logger.Logger) *ResponseService {
	return &ResponseService{
		players:       players,
		games:         games,
		confirmations: confirmations,
		log:           log,
		now:           time.Now,
	}
}

// Resolve classifies one inbound reply and upserts the player's answer for
// their game's next session. The returned error is non-nil only for store
// failures; unrecognized or unmatched replies are outcomes, not errors.
func (s *ResponseService) Resolve(ctx context.Context, msg domain.InboundMessage) (*ResolveResult, error) {
	phone := whatsapp.NormalizePhone(msg.From)

	player, err := s.players.FindByPhone(ctx, phone)
	if errors.Is(err, apperrors.ErrNotFound) {
		s.log.Warn("No player found for phone", "phone", phone)
		metrics.RepliesProcessed.WithLabelValues("not_found").Inc()
		return &ResolveResult{Outcome: OutcomeNotFound}, nil
	}
	if err != nil {
		return nil, err
	}

	status, ok := ClassifyReply(msg.Text)
	if !ok {
		metrics.RepliesProcessed.WithLabelValues("unrecognized").Inc()
		return &ResolveResult{Outcome: OutcomeUnrecognized, Player: player}, nil
	}

	session, err := s.games.FindNextSession(ctx, player.GameID, s.now())
	if errors.Is(err, apperrors.ErrNotFound) {
		s.log.Warn("Player replied but game has no upcoming session", "player_id", player.ID.Hex())
		metrics.RepliesProcessed.WithLabelValues("no_session").Inc()
		return &ResolveResult{Outcome: OutcomeNoSession, Player: player, Status: status}, nil
	}
	if err != nil {
		return nil, err
	}

	confirmation := &domain.PlayerConfirmation{
		PlayerID:    player.ID,
		SessionDate: session.SessionDate,
		Status:      status,
		Source:      domain.ConfirmationSourceWhatsApp,
		ConfirmedAt: s.now(),
	}
	if err := s.confirmations.Upsert(ctx, confirmation); err != nil {
		return nil, err
	}

	s.log.Info("Reply resolved", "player", player.Name, "status", status)
	metrics.RepliesProcessed.WithLabelValues(string(status)).Inc()

	return &ResolveResult{
		Outcome: OutcomeResolved,
		Player:  player,
		Status:  status,
		Session: session,
	}, nil
}

// RecordManualAnswer upserts an operator-entered presence answer
func (s *ResponseService) RecordManualAnswer(ctx context.Context, player *domain.Player, sessionDate time.Time, status domain.ConfirmationStatus) error {
	confirmation := &domain.PlayerConfirmation{
		PlayerID:    player.ID,
		SessionDate: sessionDate,
		Status:      status,
		Source:      domain.ConfirmationSourceManual,
		ConfirmedAt: s.now(),
	}
	return s.confirmations.Upsert(ctx, confirmation)
}

// ClassifyReply maps free text onto a presence answer. Matching is
// case-insensitive and token-based. A confirmed keyword immediately preceded
// by a negation word declines ("não vou" declines, "vou" confirms); apart
// from that, the first matching set in the priority order confirmed, then
// declined, then undecided wins. No match means unrecognized.
func ClassifyReply(text string) (domain.ConfirmationStatus, bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return "", false
	}

	if status, ok := exactReplies[normalized]; ok {
		return status, true
	}

	tokens := strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	for i, token := range tokens {
		if !confirmedWords[token] {
			continue
		}
		if i > 0 && negationWords[tokens[i-1]] {
			return domain.ConfirmationStatusDeclined, true
		}
		return domain.ConfirmationStatusConfirmed, true
	}
	for _, token := range tokens {
		if declinedWords[token] {
			return domain.ConfirmationStatusDeclined, true
		}
	}
	for _, token := range tokens {
		if undecidedWords[token] {
			return domain.ConfirmationStatusUndecided, true
		}
	}

	return "", false
}
