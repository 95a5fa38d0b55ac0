package service

import (
	"testing"
	"time"
)

func TestShouldSend(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}

	session := time.Date(2025, 7, 12, 19, 0, 0, 0, loc)

	tests := []struct {
		name        string
		hoursBefore int
		now         time.Time
		want        bool
	}{
		{
			name:        "inside window",
			hoursBefore: 12,
			now:         session.Add(-6 * time.Hour),
			want:        true,
		},
		{
			name:        "exactly at window start is inclusive",
			hoursBefore: 12,
			now:         session.Add(-12 * time.Hour),
			want:        true,
		},
		{
			name:        "one second before window start",
			hoursBefore: 12,
			now:         session.Add(-12*time.Hour - time.Second),
			want:        false,
		},
		{
			name:        "exactly at session start is exclusive",
			hoursBefore: 12,
			now:         session,
			want:        false,
		},
		{
			name:        "after session start",
			hoursBefore: 12,
			now:         session.Add(time.Hour),
			want:        false,
		},
		{
			name:        "one second before session start",
			hoursBefore: 12,
			now:         session.Add(-time.Second),
			want:        true,
		},
		{
			name:        "zero hours yields empty window",
			hoursBefore: 0,
			now:         session,
			want:        false,
		},
		{
			name:        "negative hours yields empty window",
			hoursBefore: -2,
			now:         session.Add(time.Hour),
			want:        false,
		},
		{
			name:        "short tier not yet open while long tier would be",
			hoursBefore: 2,
			now:         session.Add(-6 * time.Hour),
			want:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShouldSend(session, tt.hoursBefore, tt.now, loc)
			if got != tt.want {
				t.Errorf("ShouldSend(%d hours, now=%s) = %v, want %v", tt.hoursBefore, tt.now, got, tt.want)
			}
		})
	}
}

// The window is evaluated in the game's zone but the instants compared are
// absolute; feeding now in UTC must not shift the window.
func TestShouldSendTimezoneIndependence(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}

	session := time.Date(2025, 7, 12, 19, 0, 0, 0, loc)
	nowUTC := session.Add(-3 * time.Hour).UTC()

	if !ShouldSend(session, 12, nowUTC, loc) {
		t.Error("expected window to be open regardless of the zone now is expressed in")
	}
	if ShouldSend(session, 12, session.UTC(), loc) {
		t.Error("expected window to be closed at session start regardless of zone")
	}
}
