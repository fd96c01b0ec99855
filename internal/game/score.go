package game

import "github.com/lox/blackjacktable/internal/deck"

// Score returns the best blackjack value of a hand: every ace starts at 11,
// then aces are demoted to 1 one at a time while the total exceeds 21.
// The result is the highest total <= 21 reachable by valuing aces, or the
// minimum possible total when every valuation busts.
func Score(cards []deck.Card) int {
	score := 0
	aces := 0

	for _, c := range cards {
		if c.IsAce() {
			aces++
		}
		score += c.Points()
	}

	for score > 21 && aces > 0 {
		score -= 10
		aces--
	}

	return score
}

// IsNatural reports whether a hand is a natural blackjack: exactly two
// cards scoring 21 on the initial deal.
func IsNatural(cards []deck.Card) bool {
	return len(cards) == 2 && Score(cards) == 21
}

// IsBust reports whether a hand scores over 21.
func IsBust(cards []deck.Card) bool {
	return Score(cards) > 21
}
