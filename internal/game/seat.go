package game

import "github.com/lox/blackjacktable/internal/deck"

// NumSeats is the number of fixed seats at the table. A single player may
// activate any subset of them, each with an independent bet and hand.
const NumSeats = 3

// DefaultBet is the bet each seat starts with in the betting phase.
const DefaultBet = 10

// Seat represents one of the table's fixed betting positions
type Seat struct {
	ID            int // 1-based
	Bet           int
	Cards         []deck.Card
	IsActive      bool
	CanDoubleDown bool
	DoubledDown   bool
	Resolved      bool    // no further actions this round
	Result        Outcome // set at settlement
	Net           int     // signed payout, set at settlement
}

// Score returns the seat's current hand value. Always derived from the
// cards, never cached.
func (s *Seat) Score() int {
	return Score(s.Cards)
}

// IsBust reports whether the seat's hand is over 21
func (s *Seat) IsBust() bool {
	return s.Score() > 21
}

// IsNatural reports whether the seat holds a two-card 21
func (s *Seat) IsNatural() bool {
	return IsNatural(s.Cards)
}

// clear resets per-round state, preserving the bet and seat identity
func (s *Seat) clear() {
	s.Cards = nil
	s.IsActive = false
	s.CanDoubleDown = false
	s.DoubledDown = false
	s.Resolved = false
	s.Result = ""
	s.Net = 0
}
