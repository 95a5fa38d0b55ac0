package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vaidarjogo/go-confirmation-service/internal/domain"
	"github.com/vaidarjogo/go-confirmation-service/internal/shared/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestClassifyReply(t *testing.T) {
	tests := []struct {
		name string
		text string
		want domain.ConfirmationStatus
		ok   bool
	}{
		{name: "sim", text: "sim", want: domain.ConfirmationStatusConfirmed, ok: true},
		{name: "uppercase", text: "SIM", want: domain.ConfirmationStatusConfirmed, ok: true},
		{name: "with punctuation", text: "Sim!!!", want: domain.ConfirmationStatusConfirmed, ok: true},
		{name: "embedded confirm", text: "bora, estarei lá", want: domain.ConfirmationStatusConfirmed, ok: true},
		{name: "vou alone confirms", text: "vou", want: domain.ConfirmationStatusConfirmed, ok: true},
		{name: "negated confirm declines", text: "não vou", want: domain.ConfirmationStatusDeclined, ok: true},
		{name: "negated confirm without accent", text: "nao vou", want: domain.ConfirmationStatusDeclined, ok: true},
		{name: "nunca negates", text: "nunca vou nessas", want: domain.ConfirmationStatusDeclined, ok: true},
		{name: "nao", text: "não", want: domain.ConfirmationStatusDeclined, ok: true},
		{name: "no english", text: "no", want: domain.ConfirmationStatusDeclined, ok: true},
		{name: "talvez", text: "talvez", want: domain.ConfirmationStatusUndecided, ok: true},
		{name: "maybe with noise", text: "hmm maybe?", want: domain.ConfirmationStatusUndecided, ok: true},
		{name: "confirmed beats undecided", text: "talvez sim", want: domain.ConfirmationStatusConfirmed, ok: true},
		{name: "single letter s", text: "s", want: domain.ConfirmationStatusConfirmed, ok: true},
		{name: "single letter n", text: "n", want: domain.ConfirmationStatusDeclined, ok: true},
		{name: "single letter y", text: "y", want: domain.ConfirmationStatusConfirmed, ok: true},
		{name: "s inside a word does not match", text: "obrigado", ok: false},
		{name: "unrelated text", text: "qual o endereço?", ok: false},
		{name: "empty", text: "", ok: false},
		{name: "whitespace only", text: "   ", ok: false},
		{name: "trimmed single letter", text: " S ", want: domain.ConfirmationStatusConfirmed, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ClassifyReply(tt.text)
			if ok != tt.ok {
				t.Fatalf("ClassifyReply(%q) ok = %v, want %v", tt.text, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("ClassifyReply(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

type responseFixture struct {
	games         *fakeGameStore
	players       *fakePlayerStore
	confirmations *fakeConfirmationStore
	svc           *ResponseService

	now     time.Time
	session *domain.GameSession
	player  *domain.Player
}

func newResponseFixture(t *testing.T) *responseFixture {
	t.Helper()

	f := &responseFixture{
		games:         newFakeGameStore(),
		players:       &fakePlayerStore{},
		confirmations: newFakeConfirmationStore(),
		now:           time.Date(2025, 7, 12, 13, 0, 0, 0, time.UTC),
	}

	gameID := primitive.NewObjectID()
	f.games.games[gameID] = &domain.Game{ID: gameID, Name: "Pelada", Status: domain.GameStatusActive}
	f.session = &domain.GameSession{GameID: gameID, SessionDate: f.now.Add(6 * time.Hour)}
	f.games.sessions[gameID] = f.session

	f.player = &domain.Player{
		ID:     primitive.NewObjectID(),
		GameID: gameID,
		Name:   "Carlos",
		Phone:  "11987654321",
		Type:   domain.PlayerTypeMonthly,
	}
	f.players.players = []*domain.Player{f.player}

	f.svc = NewResponseService(f.players, f.games, f.confirmations, logger.NewLogger())
	f.svc.now = func() time.Time { return f.now }

	return f
}

func TestResolveRecordsAnswer(t *testing.T) {
	f := newResponseFixture(t)

	result, err := f.svc.Resolve(context.Background(), domain.InboundMessage{
		From: "5511987654321@c.us",
		Text: "Sim, estarei lá!",
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeResolved, result.Outcome)
	assert.Equal(t, domain.ConfirmationStatusConfirmed, result.Status)
	require.NotNil(t, result.Player)
	assert.Equal(t, f.player.ID, result.Player.ID)

	stored, err := f.confirmations.FindByPlayerAndSession(context.Background(), f.player.ID, f.session.SessionDate)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, domain.ConfirmationStatusConfirmed, stored.Status)
	assert.Equal(t, domain.ConfirmationSourceWhatsApp, stored.Source)
}

func TestResolveLastReplyWins(t *testing.T) {
	f := newResponseFixture(t)

	_, err := f.svc.Resolve(context.Background(), domain.InboundMessage{From: "5511987654321", Text: "sim"})
	require.NoError(t, err)

	result, err := f.svc.Resolve(context.Background(), domain.InboundMessage{From: "5511987654321", Text: "não vou mais"})
	require.NoError(t, err)
	assert.Equal(t, domain.ConfirmationStatusDeclined, result.Status)

	stored, err := f.confirmations.FindByPlayerAndSession(context.Background(), f.player.ID, f.session.SessionDate)
	require.NoError(t, err)
	assert.Equal(t, domain.ConfirmationStatusDeclined, stored.Status)
}

func TestResolveUnknownPhone(t *testing.T) {
	f := newResponseFixture(t)

	result, err := f.svc.Resolve(context.Background(), domain.InboundMessage{From: "5511900000000", Text: "sim"})

	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, result.Outcome)
}

func TestResolveUnrecognizedText(t *testing.T) {
	f := newResponseFixture(t)

	result, err := f.svc.Resolve(context.Background(), domain.InboundMessage{From: "5511987654321", Text: "que horas começa?"})

	require.NoError(t, err)
	assert.Equal(t, OutcomeUnrecognized, result.Outcome)

	stored, err := f.confirmations.FindByPlayerAndSession(context.Background(), f.player.ID, f.session.SessionDate)
	require.NoError(t, err)
	assert.Nil(t, stored, "unrecognized replies must not touch the ledger")
}

func TestResolveNoUpcomingSession(t *testing.T) {
	f := newResponseFixture(t)
	f.now = f.session.SessionDate.Add(time.Hour)

	result, err := f.svc.Resolve(context.Background(), domain.InboundMessage{From: "5511987654321", Text: "sim"})

	require.NoError(t, err)
	assert.Equal(t, OutcomeNoSession, result.Outcome)
	assert.Equal(t, domain.ConfirmationStatusConfirmed, result.Status)
}

func TestResolveMatchesUserFallbackPhone(t *testing.T) {
	f := newResponseFixture(t)
	f.player.Phone = ""
	f.player.User = &domain.User{Phone: "11987654321"}

	result, err := f.svc.Resolve(context.Background(), domain.InboundMessage{From: "5511987654321@c.us", Text: "talvez"})

	require.NoError(t, err)
	assert.Equal(t, OutcomeResolved, result.Outcome)
	assert.Equal(t, domain.ConfirmationStatusUndecided, result.Status)
}

func TestRecordManualAnswer(t *testing.T) {
	f := newResponseFixture(t)

	err := f.svc.RecordManualAnswer(context.Background(), f.player, f.session.SessionDate, domain.ConfirmationStatusDeclined)

	require.NoError(t, err)
	stored, err := f.confirmations.FindByPlayerAndSession(context.Background(), f.player.ID, f.session.SessionDate)
	require.NoError(t, err)
	assert.Equal(t, domain.ConfirmationStatusDeclined, stored.Status)
	assert.Equal(t, domain.ConfirmationSourceManual, stored.Source)
}
