package service

import (
	"strings"
	"testing"
	"time"

	"github.com/vaidarjogo/go-confirmation-service/internal/domain"
)

func TestComposeConfirmationMessage(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}

	game := &domain.Game{Name: "Pelada de Sábado", Location: "Arena Society"}
	// Saturday, 2025-07-12 19:00 local
	session := &domain.GameSession{SessionDate: time.Date(2025, 7, 12, 19, 0, 0, 0, loc)}
	player := &domain.Player{Name: "Carlos"}

	t.Run("monthly player", func(t *testing.T) {
		tier := domain.SendTier{PlayerType: domain.PlayerTypeMonthly}
		msg := ComposeConfirmationMessage(player, game, session, tier, loc)

		for _, want := range []string{
			"Olá *Carlos*!",
			"*Mensalista*",
			"sábado, 12/07/2025",
			"*19:00h*",
			"Arena Society",
			"Sua vaga está garantida",
			"*SIM*",
			"*NÃO*",
			"*TALVEZ*",
		} {
			if !strings.Contains(msg, want) {
				t.Errorf("message missing %q:\n%s", want, msg)
			}
		}
	})

	t.Run("casual player", func(t *testing.T) {
		tier := domain.SendTier{PlayerType: domain.PlayerTypeCasual}
		msg := ComposeConfirmationMessage(player, game, session, tier, loc)

		if !strings.Contains(msg, "*Avulso*") {
			t.Errorf("expected casual label, got:\n%s", msg)
		}
		if strings.Contains(msg, "Mensalista") {
			t.Errorf("casual message must not carry the monthly copy:\n%s", msg)
		}
		if !strings.Contains(msg, "disponibilidade de vagas") {
			t.Errorf("expected casual availability copy:\n%s", msg)
		}
	})

	t.Run("location fallback", func(t *testing.T) {
		bare := &domain.Game{Name: "Pelada"}
		tier := domain.SendTier{PlayerType: domain.PlayerTypeMonthly}
		msg := ComposeConfirmationMessage(player, bare, session, tier, loc)

		if !strings.Contains(msg, "Local a confirmar") {
			t.Errorf("expected location placeholder:\n%s", msg)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		tier := domain.SendTier{PlayerType: domain.PlayerTypeMonthly}
		first := ComposeConfirmationMessage(player, game, session, tier, loc)
		second := ComposeConfirmationMessage(player, game, session, tier, loc)
		if first != second {
			t.Error("same inputs must produce identical text")
		}
	})

	t.Run("date rendered in game timezone", func(t *testing.T) {
		// 2025-07-12 23:00 UTC is already the 12th in UTC but still
		// 20:00 on the 12th in São Paulo; store the session in UTC.
		utcSession := &domain.GameSession{SessionDate: time.Date(2025, 7, 12, 23, 0, 0, 0, time.UTC)}
		tier := domain.SendTier{PlayerType: domain.PlayerTypeCasual}
		msg := ComposeConfirmationMessage(player, game, utcSession, tier, loc)

		if !strings.Contains(msg, "*20:00h*") {
			t.Errorf("expected time converted to game zone:\n%s", msg)
		}
		if !strings.Contains(msg, "12/07/2025") {
			t.Errorf("expected local date:\n%s", msg)
		}
	})
}
