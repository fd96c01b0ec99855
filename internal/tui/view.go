package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lox/blackjacktable/internal/deck"
	"github.com/lox/blackjacktable/internal/game"
)

// View renders the table
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	if m.showRules {
		return m.renderRules()
	}

	var b strings.Builder

	b.WriteString(HeaderStyle.Render(" Blackjack "))
	b.WriteString("  ")
	b.WriteString(SeatStyle.Render(fmt.Sprintf("Balance: %d points", m.account.Points)))
	b.WriteString("\n\n")

	b.WriteString(m.renderDealer())
	b.WriteString("\n\n")
	b.WriteString(m.renderSeats())
	b.WriteString("\n")

	if m.headline != "" {
		b.WriteString(HeadlineStyle.Render(m.headline))
		b.WriteString("\n")
	}
	if m.warning != "" {
		b.WriteString(WarningStyle.Render(m.warning))
		b.WriteString("\n")
	}
	if m.confirmQuit {
		b.WriteString(ErrorStyle.Render("Quit mid-round and forfeit your bets? (y/n)"))
		b.WriteString("\n")
	}
	if m.enteringBet {
		b.WriteString(m.betInput.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m *Model) renderDealer() string {
	cards := m.round.DealerCards()
	if len(cards) == 0 {
		return InfoStyle.Render("Dealer: waiting for deal")
	}

	var parts []string
	for i, c := range cards {
		if i == 1 && m.round.Phase() == game.PhasePlaying {
			parts = append(parts, HiddenCardStyle.Render("??"))
			continue
		}
		parts = append(parts, formatCard(c))
	}

	score := m.round.DealerVisibleScore()
	if m.round.Phase() == game.PhaseFinished {
		score = m.round.DealerScore()
	}
	return fmt.Sprintf("Dealer: [%s]  %s", strings.Join(parts, " "), SeatStyle.Render(fmt.Sprintf("(%d)", score)))
}

func (m *Model) renderSeats() string {
	current := m.round.CurrentSeat()

	var lines []string
	for _, s := range m.round.Seats() {
		style := SeatStyle
		marker := "  "
		if current != nil && current.ID == s.ID {
			style = CurrentSeatStyle
			marker = "▸ "
		}

		if !s.IsActive {
			lines = append(lines, InfoStyle.Render(fmt.Sprintf("  Seat %d: empty", s.ID)))
			continue
		}

		var parts []string
		for _, c := range s.Cards {
			parts = append(parts, formatCard(c))
		}
		line := fmt.Sprintf("%sSeat %d: bet %d", marker, s.ID, s.Bet)
		if len(parts) > 0 {
			line += fmt.Sprintf("  [%s] (%d)", strings.Join(parts, " "), s.Score())
		}
		if s.DoubledDown {
			line += "  " + WarningStyle.Render("doubled")
		}
		if s.Result != "" {
			if s.Result.IsWin() {
				line += "  " + SuccessStyle.Render(string(s.Result))
			} else {
				line += "  " + ErrorStyle.Render(string(s.Result))
			}
		}
		lines = append(lines, style.Render(line))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderHelp() string {
	var help string
	switch m.round.Phase() {
	case game.PhaseBetting:
		help = "1-3 toggle seat • +/- adjust bet • b type bet • d deal • ? rules • q quit"
	case game.PhasePlaying:
		help = "h hit • s stand"
		if cs := m.round.CurrentSeat(); cs != nil && cs.CanDoubleDown {
			help += " • x double down"
		}
		help += " • ? rules • q quit"
	case game.PhaseFinished:
		help = "p play again • ? rules • q quit"
	}
	return InfoStyle.Render(help)
}

func (m *Model) renderRules() string {
	rules := []string{
		HeaderStyle.Render(" How to Play "),
		"",
		"Pick up to three seats and set a bet for each.",
		"Beat the dealer without going over 21. Aces count 1 or 11.",
		"The dealer draws to 17 and stands on all 17s.",
		"",
		"Blackjack (an ace and a ten with two cards) pays 3:2.",
		"Five cards without busting is a 5-Card Charlie and pays 2:1.",
		"Double down on 9, 10 or 11: double the bet, take one card.",
		"Quitting mid-round forfeits all bets on the table.",
		"",
		InfoStyle.Render("press any key to return"),
	}
	return lipgloss.JoinVertical(lipgloss.Left, rules...)
}

func formatCard(c deck.Card) string {
	if c.IsRed() {
		return RedCardStyle.Render(c.String())
	}
	return BlackCardStyle.Render(c.String())
}
