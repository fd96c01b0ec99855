package game

// Outcome is the user-visible result of a single seat
type Outcome string

const (
	OutcomeBust       Outcome = "Bust"
	OutcomeCharlie    Outcome = "5-Card Charlie!"
	OutcomeDealerBust Outcome = "Win (Dealer Bust)"
	OutcomeBlackjack  Outcome = "Blackjack!"
	OutcomePush       Outcome = "Push"
	OutcomeWin        Outcome = "Win"
	OutcomeLose       Outcome = "Lose"
)

// IsWin reports whether the outcome pays the player
func (o Outcome) IsWin() bool {
	switch o {
	case OutcomeCharlie, OutcomeDealerBust, OutcomeBlackjack, OutcomeWin:
		return true
	}
	return false
}

// resolveSeat determines one seat's outcome and signed net against the
// dealer's final score. Rules apply in precedence order, first match wins:
//
//  1. seat busts               -> lose the bet
//  2. five-card Charlie        -> pays double, regardless of the dealer
//  3. dealer busts             -> pays the bet
//  4. natural blackjack        -> pays 3:2 (not after a double down)
//  5. equal scores             -> push
//  6. seat outscores dealer    -> pays the bet
//  7. otherwise                -> lose the bet
//
// The Charlie check precedes the dealer-bust check so a five-card hand pays
// double even when the dealer also busts, and the natural check precedes the
// push check so a two-card 21 beats a dealer's multi-card 21.
func resolveSeat(s *Seat, dealerScore int) (Outcome, int) {
	score := s.Score()

	switch {
	case score > 21:
		return OutcomeBust, -s.Bet
	case len(s.Cards) >= 5:
		return OutcomeCharlie, 2 * s.Bet
	case dealerScore > 21:
		return OutcomeDealerBust, s.Bet
	case score == 21 && len(s.Cards) == 2 && !s.DoubledDown:
		return OutcomeBlackjack, s.Bet * 3 / 2
	case score == dealerScore:
		return OutcomePush, 0
	case score > dealerScore:
		return OutcomeWin, s.Bet
	default:
		return OutcomeLose, -s.Bet
	}
}
