package game

import (
	"context"
	"fmt"

	"github.com/lox/blackjacktable/internal/deck"
)

// Account is the player's points balance as the engine sees it. The engine
// reads Points to validate bets and double downs; only the owning service
// applies settlement nets, so the engine itself never mutates balances.
type Account struct {
	ID     string
	Points int
}

// Recorder records a concluded round (or abandonment) with the platform's
// transaction backend. Implementations must be invoked exactly once per
// round; the engine builds the record, callers deliver it.
type Recorder interface {
	Record(ctx context.Context, userID string, rec *RoundRecord) error
}

// Reason distinguishes a played-out round from a forfeited one
type Reason string

const (
	ReasonPlayed    Reason = "played"
	ReasonAbandoned Reason = "abandoned"
)

// SeatRecord is the per-seat detail included in a round record
type SeatRecord struct {
	ID          int         `json:"id"`
	Bet         int         `json:"bet"`
	Cards       []deck.Card `json:"-"`
	CardNames   []string    `json:"cards"`
	Score       int         `json:"score"`
	Result      Outcome     `json:"result"`
	Net         int         `json:"net"`
	DoubledDown bool        `json:"doubled_down,omitempty"`
}

// RoundRecord is the settlement summary reported to the transaction
// backend: total bet, signed net, coarse result, and per-seat detail.
type RoundRecord struct {
	GameType    string       `json:"game_type"`
	Reason      Reason       `json:"reason"`
	Bet         int          `json:"bet"`
	Net         int          `json:"net"`
	Result      string       `json:"result"` // win | lose | draw
	Seats       []SeatRecord `json:"seats"`
	DealerCards []string     `json:"dealer_cards"`
	DealerScore int          `json:"dealer_score"`
}

// Headline returns the banner shown to the player when the round ends
func (r *RoundRecord) Headline() string {
	if r.Reason == ReasonAbandoned {
		return fmt.Sprintf("Game Abandoned: -%d points", r.Bet)
	}
	switch {
	case r.Net > 0:
		return fmt.Sprintf("You Won! +%d points", r.Net)
	case r.Net < 0:
		return fmt.Sprintf("You Lost: %d points", r.Net)
	default:
		return "Break Even!"
	}
}

func coarseResult(net int) string {
	switch {
	case net > 0:
		return "win"
	case net < 0:
		return "lose"
	default:
		return "draw"
	}
}

func cardNames(cards []deck.Card) []string {
	names := make([]string, len(cards))
	for i, c := range cards {
		names[i] = c.String()
	}
	return names
}
