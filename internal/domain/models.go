package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GameStatus represents the lifecycle state of a game
type GameStatus string

const (
	GameStatusActive   GameStatus = "active"
	GameStatusInactive GameStatus = "inactive"
)

// PlayerType classifies players for tier targeting
type PlayerType string

const (
	PlayerTypeMonthly PlayerType = "monthly"
	PlayerTypeCasual  PlayerType = "casual"
	// PlayerTypeAll is the wildcard: a tier with this type targets every active player.
	PlayerTypeAll PlayerType = "all"
)

// SessionStatus represents the lifecycle state of a game session
type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusFinished  SessionStatus = "finished"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// Game represents a recurring game players are notified about
type Game struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	Location  string             `json:"location,omitempty" bson:"location,omitempty"`
	Timezone  string             `json:"timezone,omitempty" bson:"timezone,omitempty"`
	Status    GameStatus         `json:"status" bson:"status"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// GameSession represents one scheduled occurrence of a game
type GameSession struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	GameID      primitive.ObjectID `json:"game_id" bson:"game_id"`
	SessionDate time.Time          `json:"session_date" bson:"session_date"`
	Status      SessionStatus      `json:"status" bson:"status"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
}

// ConfirmationConfig is the confirmation configuration of a game.
// A game owns at most one active config; the config owns an ordered set of send tiers.
type ConfirmationConfig struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	GameID    primitive.ObjectID `json:"game_id" bson:"game_id"`
	IsActive  bool               `json:"is_active" bson:"is_active"`
	Tiers     []SendTier         `json:"tiers" bson:"tiers"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// SendTier is one notification rule: which player type to prompt and how many
// hours before the session the send window opens. The window closes at session
// start, so a zero or negative HoursBefore yields an empty window that never
// fires.
type SendTier struct {
	ID          string     `json:"id" bson:"id"`
	PlayerType  PlayerType `json:"player_type" bson:"player_type"`
	HoursBefore int        `json:"hours_before" bson:"hours_before"`
	SortOrder   int        `json:"sort_order" bson:"sort_order"`
	IsActive    bool       `json:"is_active" bson:"is_active"`
}

// User holds the account linked to a player. Its phone is the fallback
// contact when the player record has none.
type User struct {
	ID    primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name  string             `json:"name" bson:"name"`
	Phone string             `json:"phone,omitempty" bson:"phone,omitempty"`
}

// Player represents a game participant
type Player struct {
	ID        primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	GameID    primitive.ObjectID  `json:"game_id" bson:"game_id"`
	Name      string              `json:"name" bson:"name"`
	Phone     string              `json:"phone,omitempty" bson:"phone,omitempty"`
	Type      PlayerType          `json:"player_type" bson:"player_type"`
	Status    string              `json:"status" bson:"status"`
	UserID    *primitive.ObjectID `json:"user_id,omitempty" bson:"user_id,omitempty"`
	User      *User               `json:"user,omitempty" bson:"user,omitempty"`
	CreatedAt time.Time           `json:"created_at" bson:"created_at"`
}

// ContactPhone resolves the player's contact address: the player's own phone,
// else the linked user's phone. Empty means no resolvable address.
func (p *Player) ContactPhone() string {
	if p.Phone != "" {
		return p.Phone
	}
	if p.User != nil {
		return p.User.Phone
	}
	return ""
}

// SendStatus is the terminal outcome of one dispatch attempt
type SendStatus string

const (
	SendStatusSent   SendStatus = "sent"
	SendStatusFailed SendStatus = "failed"
)

// SendLog is one dispatch attempt for a (player, session, tier) key. Records
// are immutable facts: a retry on a later tick creates a new record with the
// next attempt number. The document _id is deterministic, so inserting the
// same attempt twice fails on the unique _id and the loser of a concurrent
// race observes the conflict instead of double-sending.
type SendLog struct {
	ID          string             `json:"id" bson:"_id"`
	GameID      primitive.ObjectID `json:"game_id" bson:"game_id"`
	PlayerID    primitive.ObjectID `json:"player_id" bson:"player_id"`
	SessionDate time.Time          `json:"session_date" bson:"session_date"`
	TierID      string             `json:"tier_id" bson:"tier_id"`
	Attempt     int                `json:"attempt" bson:"attempt"`
	MessageID   string             `json:"message_id,omitempty" bson:"message_id,omitempty"`
	Status      SendStatus         `json:"status" bson:"status"`
	Error       string             `json:"error,omitempty" bson:"error,omitempty"`
	IsManual    bool               `json:"is_manual" bson:"is_manual"`
	SentAt      time.Time          `json:"sent_at" bson:"sent_at"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
}

// SendLogKey builds the idempotency key for a (player, session, tier) triple.
// Session times are normalized to UTC so the key is stable across zones.
func SendLogKey(playerID primitive.ObjectID, sessionDate time.Time, tierID string) string {
	return fmt.Sprintf("%s|%s|%s", playerID.Hex(), sessionDate.UTC().Format(time.RFC3339), tierID)
}

// SendLogID builds the deterministic document id for one attempt on a key.
func SendLogID(key string, attempt int) string {
	return fmt.Sprintf("%s#%d", key, attempt)
}

// ConfirmationStatus is a player's presence answer
type ConfirmationStatus string

const (
	ConfirmationStatusConfirmed ConfirmationStatus = "confirmed"
	ConfirmationStatusDeclined  ConfirmationStatus = "declined"
	ConfirmationStatusUndecided ConfirmationStatus = "undecided"
)

// ConfirmationSource tells where a presence answer came from
type ConfirmationSource string

const (
	ConfirmationSourceWhatsApp ConfirmationSource = "whatsapp"
	ConfirmationSourceManual   ConfirmationSource = "manual"
)

// PlayerConfirmation is the latest presence answer of a player for a session.
// Upserted on (player_id, session_date): the last reply wins.
type PlayerConfirmation struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	PlayerID    primitive.ObjectID `json:"player_id" bson:"player_id"`
	SessionDate time.Time          `json:"session_date" bson:"session_date"`
	Status      ConfirmationStatus `json:"status" bson:"status"`
	Source      ConfirmationSource `json:"source" bson:"source"`
	ConfirmedAt time.Time          `json:"confirmed_at" bson:"confirmed_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

// Answered reports whether the confirmation is terminal for the session.
// Any non-undecided answer suppresses further prompts on every tier.
func (c *PlayerConfirmation) Answered() bool {
	return c != nil && c.Status != ConfirmationStatusUndecided
}

// DeadLetter records a (player, session, tier) key that exhausted its send
// attempts and needs manual attention.
type DeadLetter struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Key         string             `json:"key" bson:"key"`
	GameID      primitive.ObjectID `json:"game_id" bson:"game_id"`
	PlayerID    primitive.ObjectID `json:"player_id" bson:"player_id"`
	Phone       string             `json:"phone,omitempty" bson:"phone,omitempty"`
	SessionDate time.Time          `json:"session_date" bson:"session_date"`
	TierID      string             `json:"tier_id" bson:"tier_id"`
	Attempts    int                `json:"attempts" bson:"attempts"`
	LastError   string             `json:"last_error" bson:"last_error"`
	FailedAt    time.Time          `json:"failed_at" bson:"failed_at"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
}

// RunSummary aggregates the outcome of one engine run
type RunSummary struct {
	RunID      string    `json:"run_id,omitempty"`
	Processed  int       `json:"processed"`
	Sent       int       `json:"sent"`
	Errors     int       `json:"errors"`
	Games      int       `json:"games,omitempty"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Add accumulates another summary into this one
func (s *RunSummary) Add(other RunSummary) {
	s.Processed += other.Processed
	s.Sent += other.Sent
	s.Errors += other.Errors
}

// InboundMessage is one reply delivered by the transport
type InboundMessage struct {
	From              string    `json:"from"`
	Text              string    `json:"text"`
	ProviderMessageID string    `json:"provider_message_id,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}
