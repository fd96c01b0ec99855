package game

import (
	"errors"
	"testing"

	"github.com/lox/blackjacktable/internal/deck"
	"github.com/lox/blackjacktable/internal/randutil"
)

// stacked builds a deck that deals the given ranks in order. Suits cycle,
// which is fine for engine tests: nothing in blackjack depends on suit.
func stacked(ranks ...deck.Rank) *deck.Deck {
	return deck.NewStacked(cards(ranks...)...)
}

func testRound(points int, opts ...RoundOption) (*Round, *Account) {
	account := &Account{ID: "user-1", Points: points}
	return NewRound(randutil.New(1), account, opts...), account
}

func TestBettingPhase(t *testing.T) {
	r, _ := testRound(100)

	if r.Phase() != PhaseBetting {
		t.Fatalf("new round phase = %s, want betting", r.Phase())
	}

	if err := r.SetBet(1, 50); err != nil {
		t.Fatalf("SetBet failed: %v", err)
	}
	if got := r.Seat(1).Bet; got != 50 {
		t.Errorf("bet = %d, want 50", got)
	}

	// Clamped to [1, points]
	if err := r.SetBet(1, 0); err != nil {
		t.Fatalf("SetBet failed: %v", err)
	}
	if got := r.Seat(1).Bet; got != 1 {
		t.Errorf("bet = %d, want clamp to 1", got)
	}
	if err := r.SetBet(1, 500); err != nil {
		t.Fatalf("SetBet failed: %v", err)
	}
	if got := r.Seat(1).Bet; got != 100 {
		t.Errorf("bet = %d, want clamp to balance 100", got)
	}

	if err := r.SetBet(4, 10); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("SetBet on seat 4 = %v, want ErrInvalidAction", err)
	}

	if err := r.ToggleSeat(2); err != nil {
		t.Fatalf("ToggleSeat failed: %v", err)
	}
	if !r.Seat(2).IsActive {
		t.Error("seat 2 should be active after toggle")
	}
	if err := r.ToggleSeat(2); err != nil {
		t.Fatalf("ToggleSeat failed: %v", err)
	}
	if r.Seat(2).IsActive {
		t.Error("seat 2 should be inactive after second toggle")
	}
}

func TestDealRequiresActiveSeat(t *testing.T) {
	r, _ := testRound(100)

	if err := r.Deal(); !errors.Is(err, ErrNoActiveSeats) {
		t.Errorf("Deal with no seats = %v, want ErrNoActiveSeats", err)
	}
	if r.Phase() != PhaseBetting {
		t.Errorf("failed deal should stay in betting, got %s", r.Phase())
	}
}

func TestDealInsufficientFunds(t *testing.T) {
	r, _ := testRound(5)
	r.ToggleSeat(1) // default bet 10 > 5 points

	if err := r.Deal(); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("Deal = %v, want ErrInsufficientFunds", err)
	}
	if r.Phase() != PhaseBetting {
		t.Errorf("failed deal should stay in betting, got %s", r.Phase())
	}
	if len(r.Seat(1).Cards) != 0 {
		t.Error("no cards should be dealt on a blocked round")
	}
}

func TestDealInitialState(t *testing.T) {
	// Seat 1: 10,9 = 19. Dealer: 5,2.
	r, _ := testRound(100, WithDeck(stacked(deck.Ten, deck.Nine, deck.Five, deck.Two)))
	r.ToggleSeat(1)

	if err := r.Deal(); err != nil {
		t.Fatalf("Deal failed: %v", err)
	}

	if r.Phase() != PhasePlaying {
		t.Fatalf("phase = %s, want playing", r.Phase())
	}
	if got := len(r.Seat(1).Cards); got != 2 {
		t.Errorf("seat cards = %d, want 2", got)
	}
	if got := len(r.DealerCards()); got != 2 {
		t.Errorf("dealer cards = %d, want 2", got)
	}
	if cur := r.CurrentSeat(); cur == nil || cur.ID != 1 {
		t.Errorf("current seat = %v, want seat 1", cur)
	}
	if r.Seat(1).CanDoubleDown {
		t.Error("19 should not allow double down")
	}

	// Actions from the betting phase are rejected once playing
	if err := r.SetBet(1, 20); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("SetBet while playing = %v, want ErrInvalidAction", err)
	}
	if err := r.ToggleSeat(2); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("ToggleSeat while playing = %v, want ErrInvalidAction", err)
	}
}

func TestDoubleDownGate(t *testing.T) {
	tests := []struct {
		name  string
		ranks []deck.Rank // two seat cards
		want  bool
	}{
		{"nine allows", []deck.Rank{deck.Four, deck.Five}, true},
		{"ten allows", []deck.Rank{deck.Four, deck.Six}, true},
		{"eleven allows", []deck.Rank{deck.Five, deck.Six}, true},
		{"eight blocks", []deck.Rank{deck.Three, deck.Five}, false},
		{"twelve blocks", []deck.Rank{deck.Five, deck.Seven}, false},
		{"soft twelve blocks", []deck.Rank{deck.Ace, deck.Ace}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranks := append(append([]deck.Rank{}, tt.ranks...), deck.Ten, deck.Seven)
			r, _ := testRound(100, WithDeck(stacked(ranks...)))
			r.ToggleSeat(1)
			if err := r.Deal(); err != nil {
				t.Fatalf("Deal failed: %v", err)
			}
			if got := r.Seat(1).CanDoubleDown; got != tt.want {
				t.Errorf("CanDoubleDown = %v, want %v (score %d)", got, tt.want, r.Seat(1).Score())
			}
		})
	}
}

func TestTurnOrderAcrossSeats(t *testing.T) {
	// Seats 1 and 3 active: 1 gets 10,9; 3 gets 10,8; dealer 10,7.
	r, _ := testRound(100, WithDeck(stacked(deck.Ten, deck.Nine, deck.Ten, deck.Eight, deck.Ten, deck.Seven)))
	r.ToggleSeat(1)
	r.ToggleSeat(3)

	if err := r.Deal(); err != nil {
		t.Fatalf("Deal failed: %v", err)
	}

	if cur := r.CurrentSeat(); cur.ID != 1 {
		t.Fatalf("first turn seat = %d, want 1", cur.ID)
	}
	if err := r.Stand(); err != nil {
		t.Fatalf("Stand failed: %v", err)
	}
	if cur := r.CurrentSeat(); cur.ID != 3 {
		t.Fatalf("second turn seat = %d, want 3", cur.ID)
	}
	if err := r.Stand(); err != nil {
		t.Fatalf("Stand failed: %v", err)
	}

	if !r.AllSeatsResolved() {
		t.Error("all seats should be resolved after both stand")
	}
	if err := r.Stand(); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("Stand with no current seat = %v, want ErrInvalidAction", err)
	}
}

func TestHitBustResolvesSeat(t *testing.T) {
	// Seat: 10,9 then hits a 5 -> 24 bust. Dealer 10,7.
	r, _ := testRound(100, WithDeck(stacked(deck.Ten, deck.Nine, deck.Ten, deck.Seven, deck.Five)))
	r.ToggleSeat(1)
	if err := r.Deal(); err != nil {
		t.Fatalf("Deal failed: %v", err)
	}

	card, err := r.Hit()
	if err != nil {
		t.Fatalf("Hit failed: %v", err)
	}
	if card.Rank != deck.Five {
		t.Errorf("hit card = %s, want a five", card)
	}
	if !r.Seat(1).IsBust() {
		t.Fatalf("seat score = %d, want bust", r.Seat(1).Score())
	}
	if !r.AllSeatsResolved() {
		t.Error("busted seat should resolve and end the turn")
	}
	if _, err := r.Hit(); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("Hit after bust = %v, want ErrInvalidAction", err)
	}
}

func TestHitKeepsTurnUnderTwentyOne(t *testing.T) {
	// Seat: 5,4 hits a 7 -> 16, keeps acting; clears double down.
	r, _ := testRound(100, WithDeck(stacked(deck.Five, deck.Four, deck.Ten, deck.Seven, deck.Seven)))
	r.ToggleSeat(1)
	if err := r.Deal(); err != nil {
		t.Fatalf("Deal failed: %v", err)
	}
	if !r.Seat(1).CanDoubleDown {
		t.Fatal("9 should allow double down before hitting")
	}

	if _, err := r.Hit(); err != nil {
		t.Fatalf("Hit failed: %v", err)
	}
	if cur := r.CurrentSeat(); cur == nil || cur.ID != 1 {
		t.Error("seat under 21 should keep the turn after a hit")
	}
	if r.Seat(1).CanDoubleDown {
		t.Error("hitting must clear the double down option")
	}
	if _, err := r.DoubleDown(); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("DoubleDown after hit = %v, want ErrInvalidAction", err)
	}
}

func TestDoubleDown(t *testing.T) {
	// Seat: 5,6 = 11 doubles, draws 9 -> 20. Dealer 10,7.
	r, _ := testRound(100, WithDeck(stacked(deck.Five, deck.Six, deck.Ten, deck.Seven, deck.Nine)))
	r.ToggleSeat(1)
	if err := r.Deal(); err != nil {
		t.Fatalf("Deal failed: %v", err)
	}

	if _, err := r.DoubleDown(); err != nil {
		t.Fatalf("DoubleDown failed: %v", err)
	}

	s := r.Seat(1)
	if s.Bet != 20 {
		t.Errorf("bet = %d, want doubled to 20", s.Bet)
	}
	if len(s.Cards) != 3 {
		t.Errorf("cards = %d, want exactly one extra card", len(s.Cards))
	}
	if !s.DoubledDown {
		t.Error("seat should be marked doubled down")
	}
	if !r.AllSeatsResolved() {
		t.Error("doubling resolves the seat immediately")
	}
	if _, err := r.Hit(); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("Hit after double = %v, want ErrInvalidAction", err)
	}
}

func TestDoubleDownInsufficientFunds(t *testing.T) {
	// 15 points, bet 10: doubling needs 20.
	r, _ := testRound(15, WithDeck(stacked(deck.Five, deck.Six, deck.Ten, deck.Seven, deck.Nine)))
	r.ToggleSeat(1)
	if err := r.Deal(); err != nil {
		t.Fatalf("Deal failed: %v", err)
	}

	if _, err := r.DoubleDown(); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("DoubleDown = %v, want ErrInsufficientFunds", err)
	}

	// State untouched: still this seat's turn, original bet, two cards
	s := r.Seat(1)
	if s.Bet != 10 || len(s.Cards) != 2 || s.DoubledDown {
		t.Errorf("blocked double mutated state: bet=%d cards=%d doubled=%v", s.Bet, len(s.Cards), s.DoubledDown)
	}
	if cur := r.CurrentSeat(); cur == nil || cur.ID != 1 {
		t.Error("seat should still be acting after a blocked double")
	}
}

func TestDealerDrawsToSeventeen(t *testing.T) {
	// Seat stands on 19; dealer 10,2 draws 4 (16) then 5 (21).
	r, _ := testRound(100, WithDeck(stacked(deck.Ten, deck.Nine, deck.Ten, deck.Two, deck.Four, deck.Five)))
	r.ToggleSeat(1)
	if err := r.Deal(); err != nil {
		t.Fatalf("Deal failed: %v", err)
	}

	if _, err := r.PlayDealer(); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("PlayDealer before seats resolve = %v, want ErrInvalidAction", err)
	}

	if err := r.Stand(); err != nil {
		t.Fatalf("Stand failed: %v", err)
	}
	drawn, err := r.PlayDealer()
	if err != nil {
		t.Fatalf("PlayDealer failed: %v", err)
	}
	if len(drawn) != 2 {
		t.Errorf("dealer drew %d cards, want 2", len(drawn))
	}
	if got := r.DealerScore(); got < 17 {
		t.Errorf("dealer stopped under 17 at %d", got)
	}
	if got := r.DealerScore(); got != 21 {
		t.Errorf("dealer score = %d, want 21", got)
	}
}

func TestDealerStandsOnSoftSeventeen(t *testing.T) {
	// Dealer A,6 is a soft 17: no draws.
	r, _ := testRound(100, WithDeck(stacked(deck.Ten, deck.Nine, deck.Ace, deck.Six, deck.King)))
	r.ToggleSeat(1)
	if err := r.Deal(); err != nil {
		t.Fatalf("Deal failed: %v", err)
	}
	if err := r.Stand(); err != nil {
		t.Fatalf("Stand failed: %v", err)
	}

	drawn, err := r.PlayDealer()
	if err != nil {
		t.Fatalf("PlayDealer failed: %v", err)
	}
	if len(drawn) != 0 {
		t.Errorf("dealer drew %d cards on soft 17, want 0", len(drawn))
	}
	if got := r.DealerScore(); got != 17 {
		t.Errorf("dealer score = %d, want 17", got)
	}
}

func TestNaturalShortCircuit(t *testing.T) {
	// Seat dealt A,K; dealer 10,9. Settlement runs against the two-card
	// dealer hand with no dealer play.
	r, _ := testRound(100, WithDeck(stacked(deck.Ace, deck.King, deck.Ten, deck.Nine)))
	r.ToggleSeat(1)
	if err := r.Deal(); err != nil {
		t.Fatalf("Deal failed: %v", err)
	}

	if !r.AllSeatsResolved() {
		t.Fatal("natural should resolve the seat at deal time")
	}
	if !r.NaturalShortCircuit() {
		t.Fatal("expected natural short circuit")
	}
	if _, err := r.PlayDealer(); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("PlayDealer on short circuit = %v, want ErrInvalidAction", err)
	}

	rec, err := r.Settle()
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
	if got := len(r.DealerCards()); got != 2 {
		t.Errorf("dealer cards = %d, want untouched 2", got)
	}
	if rec.Seats[0].Result != OutcomeBlackjack {
		t.Errorf("result = %q, want Blackjack!", rec.Seats[0].Result)
	}
	if rec.Net != 15 {
		t.Errorf("net = %d, want 15 (3:2 on 10)", rec.Net)
	}
}

func TestNaturalEndsPlayForWholeTable(t *testing.T) {
	// Seat 1 dealt A,K; seat 2 dealt 10,9 never acts. Both settle against
	// the dealer's two-card 18.
	r, _ := testRound(100, WithDeck(stacked(
		deck.Ace, deck.King, // seat 1: natural
		deck.Ten, deck.Nine, // seat 2: 19
		deck.Ten, deck.Eight, // dealer: 18
	)))
	r.ToggleSeat(1)
	r.ToggleSeat(2)
	if err := r.Deal(); err != nil {
		t.Fatalf("Deal failed: %v", err)
	}

	if !r.NaturalShortCircuit() {
		t.Fatal("expected natural short circuit with one natural at the table")
	}
	if s := r.CurrentSeat(); s != nil {
		t.Fatalf("current seat = %d, want none", s.ID)
	}
	if !r.AllSeatsResolved() {
		t.Fatal("all seats should resolve when any seat is dealt a natural")
	}

	rec, err := r.Settle()
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
	if got := len(r.DealerCards()); got != 2 {
		t.Errorf("dealer cards = %d, want untouched 2", got)
	}
	if rec.Seats[0].Result != OutcomeBlackjack {
		t.Errorf("seat 1 result = %q, want Blackjack!", rec.Seats[0].Result)
	}
	if rec.Seats[1].Result != OutcomeWin {
		t.Errorf("seat 2 result = %q, want Win (19 vs 18)", rec.Seats[1].Result)
	}
	if rec.Net != 25 {
		t.Errorf("net = %d, want 25 (15 + 10)", rec.Net)
	}
}

func TestZeroBalanceCannotDeal(t *testing.T) {
	r, _ := testRound(0)
	r.ToggleSeat(1)

	if err := r.SetBet(1, 50); err != nil {
		t.Fatalf("SetBet failed: %v", err)
	}
	if got := r.Seat(1).Bet; got != 1 {
		t.Errorf("bet = %d, want floor of 1 on a drained balance", got)
	}

	if err := r.Deal(); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("Deal with zero balance = %v, want ErrInsufficientFunds", err)
	}
	if r.Phase() != PhaseBetting {
		t.Errorf("phase = %s, want betting", r.Phase())
	}
}

func TestSettleFullRound(t *testing.T) {
	// Seat 1: 10,9 = 19 stands. Seat 2: 10,6 hits 10 -> bust.
	// Dealer: 10,8 = 18 stands.
	r, _ := testRound(100, WithDeck(stacked(
		deck.Ten, deck.Nine, // seat 1
		deck.Ten, deck.Six, // seat 2
		deck.Ten, deck.Eight, // dealer
		deck.Ten, // seat 2 hit
	)))
	r.ToggleSeat(1)
	r.ToggleSeat(2)
	if err := r.Deal(); err != nil {
		t.Fatalf("Deal failed: %v", err)
	}

	if err := r.Stand(); err != nil {
		t.Fatalf("seat 1 stand failed: %v", err)
	}
	if _, err := r.Hit(); err != nil {
		t.Fatalf("seat 2 hit failed: %v", err)
	}
	if _, err := r.PlayDealer(); err != nil {
		t.Fatalf("PlayDealer failed: %v", err)
	}

	rec, err := r.Settle()
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}

	if r.Phase() != PhaseFinished {
		t.Errorf("phase = %s, want finished", r.Phase())
	}
	if rec.Bet != 20 {
		t.Errorf("total bet = %d, want 20", rec.Bet)
	}
	if rec.Net != 0 {
		t.Errorf("net = %d, want 0 (win 10, lose 10)", rec.Net)
	}
	if rec.Result != "draw" {
		t.Errorf("result = %q, want draw", rec.Result)
	}
	if rec.Seats[0].Result != OutcomeWin {
		t.Errorf("seat 1 result = %q, want Win", rec.Seats[0].Result)
	}
	if rec.Seats[1].Result != OutcomeBust {
		t.Errorf("seat 2 result = %q, want Bust", rec.Seats[1].Result)
	}
	if rec.DealerScore != 18 {
		t.Errorf("dealer score = %d, want 18", rec.DealerScore)
	}

	if _, err := r.Settle(); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("second Settle = %v, want ErrInvalidAction", err)
	}
}

func TestAbandon(t *testing.T) {
	r, _ := testRound(100, WithDeck(stacked(
		deck.Ten, deck.Nine,
		deck.Ten, deck.Six,
		deck.Ten, deck.Eight,
	)))
	r.ToggleSeat(1)
	r.ToggleSeat(2)
	r.SetBet(1, 10)
	r.SetBet(2, 15)

	if _, err := r.Abandon(); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("Abandon in betting phase = %v, want ErrInvalidAction", err)
	}

	if err := r.Deal(); err != nil {
		t.Fatalf("Deal failed: %v", err)
	}

	rec, err := r.Abandon()
	if err != nil {
		t.Fatalf("Abandon failed: %v", err)
	}
	if rec.Reason != ReasonAbandoned {
		t.Errorf("reason = %q, want abandoned", rec.Reason)
	}
	if rec.Bet != 25 || rec.Net != -25 {
		t.Errorf("bet/net = %d/%d, want 25/-25", rec.Bet, rec.Net)
	}
	if rec.Result != "lose" {
		t.Errorf("result = %q, want lose", rec.Result)
	}
	if r.Phase() != PhaseFinished {
		t.Errorf("phase = %s, want finished", r.Phase())
	}
}

func TestReset(t *testing.T) {
	r, _ := testRound(100, WithDeck(stacked(deck.Ten, deck.Nine, deck.Ten, deck.Eight)))
	r.ToggleSeat(1)
	r.SetBet(1, 40)
	if err := r.Deal(); err != nil {
		t.Fatalf("Deal failed: %v", err)
	}

	if err := r.Reset(); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("Reset while playing = %v, want ErrInvalidAction", err)
	}

	r.Stand()
	if _, err := r.PlayDealer(); err != nil {
		t.Fatalf("PlayDealer failed: %v", err)
	}
	if _, err := r.Settle(); err != nil {
		t.Fatalf("Settle failed: %v", err)
	}

	if err := r.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if r.Phase() != PhaseBetting {
		t.Errorf("phase = %s, want betting", r.Phase())
	}
	if got := r.Seat(1).Bet; got != 40 {
		t.Errorf("bet = %d, want preserved 40", got)
	}
	if r.Seat(1).IsActive {
		t.Error("active flag should clear on reset")
	}
	if len(r.Seat(1).Cards) != 0 || len(r.DealerCards()) != 0 {
		t.Error("hands should clear on reset")
	}
	if r.Record() != nil {
		t.Error("record should clear on reset")
	}
}

func TestDeckExhaustion(t *testing.T) {
	// Two cards total cannot cover a seat plus the dealer
	r, _ := testRound(100, WithDeck(stacked(deck.Ten, deck.Nine)))
	r.ToggleSeat(1)

	if err := r.Deal(); !errors.Is(err, ErrDeckExhausted) {
		t.Fatalf("Deal = %v, want ErrDeckExhausted", err)
	}
	if !r.Aborted() {
		t.Error("round should be marked aborted")
	}
	if r.Phase() != PhaseFinished {
		t.Errorf("phase = %s, want finished after abort", r.Phase())
	}
}

func TestEventOrdering(t *testing.T) {
	bus := NewEventBus()
	var events []EventType
	bus.Subscribe(EventHandlerFunc(func(e GameEvent) {
		events = append(events, e.EventType())
	}))

	r, _ := testRound(100,
		WithDeck(stacked(deck.Ten, deck.Nine, deck.Ten, deck.Eight)),
		WithEventBus(bus),
	)
	r.ToggleSeat(1)
	if err := r.Deal(); err != nil {
		t.Fatalf("Deal failed: %v", err)
	}
	r.Stand()
	if _, err := r.PlayDealer(); err != nil {
		t.Fatalf("PlayDealer failed: %v", err)
	}
	if _, err := r.Settle(); err != nil {
		t.Fatalf("Settle failed: %v", err)
	}

	if len(events) == 0 {
		t.Fatal("no events published")
	}
	if events[0] != EventTypeRoundStart {
		t.Errorf("first event = %s, want round_start", events[0])
	}
	if events[len(events)-1] != EventTypeRoundSettled {
		t.Errorf("last event = %s, want round_settled", events[len(events)-1])
	}

	dealt := 0
	for _, et := range events {
		if et == EventTypeCardDealt {
			dealt++
		}
	}
	if dealt != 4 {
		t.Errorf("card_dealt events = %d, want 4", dealt)
	}
}
