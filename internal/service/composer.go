package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/vaidarjogo/go-confirmation-service/internal/domain"
)

var weekdaysPTBR = [...]string{
	"domingo",
	"segunda-feira",
	"terça-feira",
	"quarta-feira",
	"quinta-feira",
	"sexta-feira",
	"sábado",
}

// ComposeConfirmationMessage builds the presence prompt for one player. Pure:
// the same inputs always produce the same text. Dates are rendered in loc,
// the game's timezone.
func ComposeConfirmationMessage(player *domain.Player, game *domain.Game, session *domain.GameSession, tier domain.SendTier, loc *time.Location) string {
	sessionTime := session.SessionDate.In(loc)
	formattedDate := sessionTime.Format("02/01/2006")
	formattedTime := sessionTime.Format("15:04")
	dayOfWeek := weekdaysPTBR[sessionTime.Weekday()]

	location := game.Location
	if location == "" {
		location = "Local a confirmar"
	}

	playerLabel := "Avulso"
	playerEmoji := "🎯"
	if tier.PlayerType == domain.PlayerTypeMonthly {
		playerLabel = "Mensalista"
		playerEmoji = "⭐"
	}

	var b strings.Builder
	b.WriteString("🏈 *VaiDarJogo - Confirmação de Presença*\n\n")
	fmt.Fprintf(&b, "Olá *%s*! 👋\n\n", player.Name)
	fmt.Fprintf(&b, "%s Você é um jogador *%s* e está convidado para o próximo jogo:\n\n", playerEmoji, playerLabel)

	fmt.Fprintf(&b, "📅 *%s, %s*\n", dayOfWeek, formattedDate)
	fmt.Fprintf(&b, "⏰ *%sh*\n", formattedTime)
	fmt.Fprintf(&b, "📍 *%s*\n\n", location)

	if tier.PlayerType == domain.PlayerTypeMonthly {
		b.WriteString("⭐ *Mensalista* - Sua vaga está garantida! Confirme sua presença para organizarmos melhor o jogo.\n\n")
	} else {
		b.WriteString("🎯 *Jogador Avulso* - Confirme sua presença para verificarmos a disponibilidade de vagas.\n\n")
	}

	b.WriteString("🤔 *Você vai jogar?*\n\n")
	b.WriteString("✅ *SIM* - Estarei lá!\n")
	b.WriteString("❌ *NÃO* - Não poderei ir\n")
	b.WriteString("❓ *TALVEZ* - Ainda não sei\n\n")
	b.WriteString("💬 *Responda com uma das opções acima*\n\n")
	b.WriteString("⚡ *Resposta rápida:* Apenas digite \"sim\", \"não\" ou \"talvez\"\n\n")
	b.WriteString("_🤖 Mensagem automática do VaiDarJogo_")

	return b.String()
}
