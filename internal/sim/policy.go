package sim

import (
	"fmt"

	"github.com/lox/blackjacktable/internal/game"
)

type action int

const (
	actionStand action = iota
	actionHit
	actionDouble
)

// Policy decides the next action for a seat given the dealer's up-card
// points
type Policy func(seat *game.Seat, dealerUp int) action

func policyFor(name string) (Policy, error) {
	switch name {
	case "stand":
		return standPolicy, nil
	case "seventeen":
		return seventeenPolicy, nil
	case "basic":
		return basicPolicy, nil
	default:
		return nil, fmt.Errorf("unknown policy %q (want stand, seventeen or basic)", name)
	}
}

// standPolicy never takes a card
func standPolicy(*game.Seat, int) action {
	return actionStand
}

// seventeenPolicy mirrors the dealer: hit below 17, stand otherwise
func seventeenPolicy(seat *game.Seat, _ int) action {
	if seat.Score() < 17 {
		return actionHit
	}
	return actionStand
}

// basicPolicy is a simplified basic strategy: double 10 and 11 against a
// weak dealer card, stand on 12+ against a bust card, otherwise draw to
// 17.
func basicPolicy(seat *game.Seat, dealerUp int) action {
	score := seat.Score()

	if seat.CanDoubleDown && score >= 10 && dealerUp <= 9 {
		return actionDouble
	}
	if score >= 17 {
		return actionStand
	}
	if score >= 12 && dealerUp >= 2 && dealerUp <= 6 {
		return actionStand
	}
	return actionHit
}
