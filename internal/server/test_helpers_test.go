package server

import (
	"encoding/json"
	"io"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjacktable/internal/deck"
	"github.com/lox/blackjacktable/internal/game"
	"github.com/lox/blackjacktable/internal/randutil"
)

// testLogger creates a logger that discards output for tests
func testLogger() *log.Logger {
	return log.New(io.Discard)
}

// stackedCards builds cards for the given ranks with cycling suits. Suit
// never matters to the engine, only presentation.
func stackedCards(ranks ...deck.Rank) []deck.Card {
	suits := []deck.Suit{deck.Spades, deck.Hearts, deck.Diamonds, deck.Clubs}
	cards := make([]deck.Card, len(ranks))
	for i, r := range ranks {
		cards[i] = deck.Card{Suit: suits[i%len(suits)], Rank: r}
	}
	return cards
}

// stackedSession builds a session whose round deals the given ranks in
// order, bypassing NewSession so tests control every card. The event bus
// is wired the same way NewSession wires it.
func stackedSession(playerID string, points int, ranks ...deck.Rank) *Session {
	account := &game.Account{ID: playerID, Points: points}
	sess := &Session{Account: account}
	bus := game.NewEventBus()
	bus.Subscribe(game.EventHandlerFunc(sess.collectEvent))
	sess.Round = game.NewRound(randutil.New(1), account,
		game.WithDeck(deck.NewStacked(stackedCards(ranks...)...)),
		game.WithEventBus(bus))
	return sess
}

func mustData(v interface{}) []byte {
	d, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return d
}
