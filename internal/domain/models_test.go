package domain

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSendLogKeyIsZoneStable(t *testing.T) {
	playerID := primitive.NewObjectID()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}

	local := time.Date(2025, 7, 12, 19, 0, 0, 0, loc)
	utc := local.UTC()

	if SendLogKey(playerID, local, "tier-1") != SendLogKey(playerID, utc, "tier-1") {
		t.Error("the same instant must produce the same key regardless of zone")
	}

	other := local.Add(time.Hour)
	if SendLogKey(playerID, local, "tier-1") == SendLogKey(playerID, other, "tier-1") {
		t.Error("different sessions must produce different keys")
	}
	if SendLogKey(playerID, local, "tier-1") == SendLogKey(playerID, local, "tier-2") {
		t.Error("different tiers must produce different keys")
	}
}

func TestSendLogIDPerAttempt(t *testing.T) {
	key := SendLogKey(primitive.NewObjectID(), time.Now(), "tier-1")

	if SendLogID(key, 1) == SendLogID(key, 2) {
		t.Error("each attempt must have its own document id")
	}
}

func TestContactPhone(t *testing.T) {
	tests := []struct {
		name   string
		player Player
		want   string
	}{
		{
			name:   "own phone wins",
			player: Player{Phone: "111", User: &User{Phone: "222"}},
			want:   "111",
		},
		{
			name:   "falls back to user phone",
			player: Player{User: &User{Phone: "222"}},
			want:   "222",
		},
		{
			name:   "no phone anywhere",
			player: Player{},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.player.ContactPhone(); got != tt.want {
				t.Errorf("ContactPhone() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAnswered(t *testing.T) {
	var missing *PlayerConfirmation
	if missing.Answered() {
		t.Error("nil confirmation must not count as answered")
	}
	if (&PlayerConfirmation{Status: ConfirmationStatusUndecided}).Answered() {
		t.Error("undecided must not be terminal")
	}
	if !(&PlayerConfirmation{Status: ConfirmationStatusConfirmed}).Answered() {
		t.Error("confirmed is terminal")
	}
	if !(&PlayerConfirmation{Status: ConfirmationStatusDeclined}).Answered() {
		t.Error("declined is terminal")
	}
}
