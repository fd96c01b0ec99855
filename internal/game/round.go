package game

import (
	"errors"
	rand "math/rand/v2"

	"github.com/lox/blackjacktable/internal/deck"
)

// GameType identifies this engine to the transaction backend
const GameType = "blackjack"

// dealerStand is the score the dealer stands on, soft hands included
const dealerStand = 17

var (
	// ErrInvalidAction is returned for actions issued outside their phase
	// or for a seat that is not the current turn. Callers racing stale UI
	// input should treat it as a no-op.
	ErrInvalidAction = errors.New("action not valid in current state")

	// ErrInsufficientFunds is returned when a bet or double down would
	// exceed the player's balance. Callers should redirect to the top-up
	// flow rather than surface a failure.
	ErrInsufficientFunds = errors.New("insufficient points for bet")

	// ErrNoActiveSeats is returned when dealing with no seat activated
	ErrNoActiveSeats = errors.New("no active seats")

	// ErrDeckExhausted aborts the round if the shoe runs out mid-deal.
	// Unreachable with 3 seats and a fresh 52-card pack per round, but
	// dealing undefined cards is worse than aborting.
	ErrDeckExhausted = errors.New("deck exhausted")
)

// Phase is the round lifecycle phase
type Phase int

const (
	PhaseBetting Phase = iota
	PhasePlaying
	PhaseFinished
)

// String returns the string representation of a phase
func (p Phase) String() string {
	switch p {
	case PhaseBetting:
		return "betting"
	case PhasePlaying:
		return "playing"
	case PhaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Round is the table state machine for a single blackjack round: three
// fixed seats, a dealer hand, a per-round shoe, and an explicit phase.
type Round struct {
	phase   Phase
	seats   [NumSeats]*Seat
	dealer  []deck.Card
	deck    *deck.Deck
	current int // seats index of the acting seat, -1 when none
	rng     *rand.Rand
	account *Account
	bus     *EventBus
	record  *RoundRecord
	aborted bool
}

// RoundOption configures a Round
type RoundOption func(*Round)

// WithDeck supplies a pre-built deck, replacing the per-round shuffle.
// Used by tests to deal known cards.
func WithDeck(d *deck.Deck) RoundOption {
	return func(r *Round) {
		r.deck = d
	}
}

// WithEventBus attaches an event bus for incremental updates
func WithEventBus(bus *EventBus) RoundOption {
	return func(r *Round) {
		r.bus = bus
	}
}

// WithStartingBet stakes every seat at the given bet instead of
// DefaultBet. The stake is not clamped to the balance; an unaffordable
// stake surfaces as ErrInsufficientFunds at deal time.
func WithStartingBet(bet int) RoundOption {
	return func(r *Round) {
		for _, s := range r.seats {
			s.Bet = bet
		}
	}
}

// NewRound creates a table in the betting phase. The account is read for
// bet validation only; settlement nets are applied by the caller after the
// transaction record is delivered.
func NewRound(rng *rand.Rand, account *Account, opts ...RoundOption) *Round {
	r := &Round{
		phase:   PhaseBetting,
		rng:     rng,
		account: account,
		current: -1,
	}
	for i := range r.seats {
		r.seats[i] = &Seat{ID: i + 1, Bet: DefaultBet}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Phase returns the current lifecycle phase
func (r *Round) Phase() Phase {
	return r.phase
}

// Seats returns the table's three seats in id order
func (r *Round) Seats() []*Seat {
	return r.seats[:]
}

// Seat returns the seat with the given 1-based id, or nil
func (r *Round) Seat(id int) *Seat {
	if id < 1 || id > NumSeats {
		return nil
	}
	return r.seats[id-1]
}

// CurrentSeat returns the seat whose turn it is, or nil when no seat is
// awaiting action
func (r *Round) CurrentSeat() *Seat {
	if r.phase != PhasePlaying || r.current < 0 {
		return nil
	}
	return r.seats[r.current]
}

// ActiveSeats returns the seats taking part in this round, in id order
func (r *Round) ActiveSeats() []*Seat {
	var active []*Seat
	for _, s := range r.seats {
		if s.IsActive {
			active = append(active, s)
		}
	}
	return active
}

// TotalBet returns the sum of active seats' current bets
func (r *Round) TotalBet() int {
	total := 0
	for _, s := range r.ActiveSeats() {
		total += s.Bet
	}
	return total
}

// DealerCards returns a copy of the dealer's hand
func (r *Round) DealerCards() []deck.Card {
	cards := make([]deck.Card, len(r.dealer))
	copy(cards, r.dealer)
	return cards
}

// DealerScore returns the dealer's full hand value
func (r *Round) DealerScore() int {
	return Score(r.dealer)
}

// DealerUpCard returns the dealer's face-up first card
func (r *Round) DealerUpCard() (deck.Card, bool) {
	if len(r.dealer) == 0 {
		return deck.Card{}, false
	}
	return r.dealer[0], true
}

// DealerVisibleScore returns the score a player can see: just the up card
// while seats are still playing, the full hand once the round is finished.
func (r *Round) DealerVisibleScore() int {
	if r.phase == PhasePlaying {
		if up, ok := r.DealerUpCard(); ok {
			return up.Points()
		}
		return 0
	}
	return r.DealerScore()
}

// Record returns the settlement record, or nil while the round is live
func (r *Round) Record() *RoundRecord {
	return r.record
}

// Aborted reports whether the round died to a deck exhaustion error
func (r *Round) Aborted() bool {
	return r.aborted
}

// SetBet sets a seat's bet during the betting phase, clamped to the
// balance with a floor of 1. The floor applies last so a drained balance
// still leaves a minimum stake that Deal can reject. Rejected outside
// the betting phase.
func (r *Round) SetBet(seatID, amount int) error {
	s := r.Seat(seatID)
	if r.phase != PhaseBetting || s == nil {
		return ErrInvalidAction
	}

	if amount > r.account.Points {
		amount = r.account.Points
	}
	if amount < 1 {
		amount = 1
	}
	s.Bet = amount
	return nil
}

// ToggleSeat flips whether a seat takes part in the round. Rejected
// outside the betting phase.
func (r *Round) ToggleSeat(seatID int) error {
	s := r.Seat(seatID)
	if r.phase != PhaseBetting || s == nil {
		return ErrInvalidAction
	}
	s.IsActive = !s.IsActive
	return nil
}

// Deal starts the round: builds a fresh shuffled shoe, deals two cards to
// each active seat in id order and two to the dealer, and moves to the
// playing phase. A natural on any seat ends play for the whole table:
// every seat resolves as dealt and the caller settles against the dealer's
// two-card hand without dealer play (see NaturalShortCircuit).
func (r *Round) Deal() error {
	if r.phase != PhaseBetting {
		return ErrInvalidAction
	}

	active := r.ActiveSeats()
	if len(active) == 0 {
		return ErrNoActiveSeats
	}
	if r.TotalBet() > r.account.Points {
		return ErrInsufficientFunds
	}

	if r.deck == nil {
		r.deck = deck.New(r.rng)
	}

	r.publish(NewRoundStartEvent(seatIDs(active), r.TotalBet()))

	for _, s := range active {
		for i := 0; i < 2; i++ {
			card, err := r.draw()
			if err != nil {
				return err
			}
			s.Cards = append(s.Cards, card)
			r.publish(NewCardDealtEvent(s.ID, card, s.Score()))
		}
		score := s.Score()
		s.CanDoubleDown = score == 9 || score == 10 || score == 11
	}

	for i := 0; i < 2; i++ {
		card, err := r.draw()
		if err != nil {
			return err
		}
		r.dealer = append(r.dealer, card)
		r.publish(NewCardDealtEvent(0, card, Score(r.dealer)))
	}

	r.phase = PhasePlaying

	// A dealt natural on any seat ends play immediately; the other
	// seats never act and settle against the dealer's two cards.
	if r.anyNatural() {
		for _, s := range active {
			r.markResolved(s)
		}
		r.current = -1
		return nil
	}

	r.current = r.nextUnresolved(0)
	return nil
}

// NaturalShortCircuit reports whether a natural at deal time ended play,
// in which case settlement runs against the dealer's two-card hand and
// dealer play is skipped.
func (r *Round) NaturalShortCircuit() bool {
	return r.phase == PhasePlaying && r.current == -1 && len(r.dealer) == 2 && r.anyNatural()
}

func (r *Round) anyNatural() bool {
	for _, s := range r.ActiveSeats() {
		if s.IsNatural() {
			return true
		}
	}
	return false
}

// Hit deals one card to the current seat. A bust resolves the seat and
// advances the turn; otherwise the seat keeps acting. Double down is no
// longer available after a hit.
func (r *Round) Hit() (deck.Card, error) {
	s := r.CurrentSeat()
	if s == nil {
		return deck.Card{}, ErrInvalidAction
	}

	card, err := r.draw()
	if err != nil {
		return deck.Card{}, err
	}
	s.Cards = append(s.Cards, card)
	s.CanDoubleDown = false
	r.publish(NewCardDealtEvent(s.ID, card, s.Score()))

	if s.IsBust() {
		r.resolveCurrent()
	}
	return card, nil
}

// Stand resolves the current seat with no further cards and advances the
// turn
func (r *Round) Stand() error {
	if r.CurrentSeat() == nil {
		return ErrInvalidAction
	}
	r.resolveCurrent()
	return nil
}

// DoubleDown doubles the current seat's bet, deals exactly one card, and
// resolves the seat regardless of the result. Only available on an initial
// score of 9, 10 or 11, and only when the doubled bet fits the balance.
func (r *Round) DoubleDown() (deck.Card, error) {
	s := r.CurrentSeat()
	if s == nil || !s.CanDoubleDown {
		return deck.Card{}, ErrInvalidAction
	}
	if s.Bet*2 > r.account.Points {
		return deck.Card{}, ErrInsufficientFunds
	}

	card, err := r.draw()
	if err != nil {
		return deck.Card{}, err
	}
	s.Bet *= 2
	s.DoubledDown = true
	s.CanDoubleDown = false
	s.Cards = append(s.Cards, card)
	r.publish(NewCardDealtEvent(s.ID, card, s.Score()))

	r.resolveCurrent()
	return card, nil
}

// AllSeatsResolved reports whether every active seat has finished acting
func (r *Round) AllSeatsResolved() bool {
	return r.phase == PhasePlaying && r.current == -1
}

// PlayDealer runs the dealer's deterministic turn: draw while under 17,
// stand on any 17 (soft included). Only valid once every seat is resolved,
// and skipped entirely for an all-naturals deal.
func (r *Round) PlayDealer() ([]deck.Card, error) {
	if !r.AllSeatsResolved() || r.NaturalShortCircuit() {
		return nil, ErrInvalidAction
	}

	var drawn []deck.Card
	for Score(r.dealer) < dealerStand {
		card, err := r.draw()
		if err != nil {
			return drawn, err
		}
		r.dealer = append(r.dealer, card)
		drawn = append(drawn, card)
		r.publish(NewDealerDrawEvent(card, Score(r.dealer)))
	}
	return drawn, nil
}

// Settle computes every active seat's outcome against the dealer's final
// score, finalises the round, and returns the transaction record. The
// record must be delivered to the Recorder exactly once by the caller.
func (r *Round) Settle() (*RoundRecord, error) {
	if !r.AllSeatsResolved() {
		return nil, ErrInvalidAction
	}

	dealerScore := r.DealerScore()
	rec := &RoundRecord{
		GameType:    GameType,
		Reason:      ReasonPlayed,
		DealerCards: cardNames(r.dealer),
		DealerScore: dealerScore,
	}

	for _, s := range r.ActiveSeats() {
		outcome, net := resolveSeat(s, dealerScore)
		s.Result = outcome
		s.Net = net
		rec.Bet += s.Bet
		rec.Net += net
		rec.Seats = append(rec.Seats, seatRecord(s))
	}
	rec.Result = coarseResult(rec.Net)

	r.phase = PhaseFinished
	r.record = rec
	r.publish(NewRoundSettledEvent(rec))
	return rec, nil
}

// Abandon forfeits a round in progress: the full current bet of every
// active seat is lost, doubled bets included, and a distinguishing record
// is produced for the transaction backend.
func (r *Round) Abandon() (*RoundRecord, error) {
	if r.phase != PhasePlaying {
		return nil, ErrInvalidAction
	}

	total := r.TotalBet()
	rec := &RoundRecord{
		GameType:    GameType,
		Reason:      ReasonAbandoned,
		Bet:         total,
		Net:         -total,
		Result:      "lose",
		DealerCards: cardNames(r.dealer),
		DealerScore: r.DealerScore(),
	}
	for _, s := range r.ActiveSeats() {
		s.Result = OutcomeLose
		s.Net = -s.Bet
		rec.Seats = append(rec.Seats, seatRecord(s))
	}

	r.phase = PhaseFinished
	r.current = -1
	r.record = rec
	r.publish(NewRoundSettledEvent(rec))
	return rec, nil
}

// Reset returns a finished table to the betting phase for another round.
// Bets carry over; hands, results and active flags clear.
func (r *Round) Reset() error {
	if r.phase != PhaseFinished {
		return ErrInvalidAction
	}

	for _, s := range r.seats {
		bet := s.Bet
		s.clear()
		s.Bet = bet
	}
	r.dealer = nil
	r.deck = nil
	r.current = -1
	r.record = nil
	r.phase = PhaseBetting
	return nil
}

func (r *Round) draw() (deck.Card, error) {
	card, ok := r.deck.Deal()
	if !ok {
		r.aborted = true
		r.phase = PhaseFinished
		return deck.Card{}, ErrDeckExhausted
	}
	return card, nil
}

// resolveCurrent marks the acting seat done and advances the turn
func (r *Round) resolveCurrent() {
	s := r.seats[r.current]
	r.markResolved(s)
	r.current = r.nextUnresolved(r.current + 1)
}

func (r *Round) markResolved(s *Seat) {
	s.Resolved = true
	r.publish(NewSeatResolvedEvent(s.ID, s.Score(), s.IsBust()))
}

// nextUnresolved returns the index of the first active unresolved seat at
// or after from, or -1
func (r *Round) nextUnresolved(from int) int {
	for i := from; i < NumSeats; i++ {
		if r.seats[i].IsActive && !r.seats[i].Resolved {
			return i
		}
	}
	return -1
}

func (r *Round) publish(event GameEvent) {
	if r.bus != nil {
		r.bus.Publish(event)
	}
}

func seatRecord(s *Seat) SeatRecord {
	return SeatRecord{
		ID:          s.ID,
		Bet:         s.Bet,
		Cards:       append([]deck.Card(nil), s.Cards...),
		CardNames:   cardNames(s.Cards),
		Score:       s.Score(),
		Result:      s.Result,
		Net:         s.Net,
		DoubledDown: s.DoubledDown,
	}
}

func seatIDs(seats []*Seat) []int {
	ids := make([]int, len(seats))
	for i, s := range seats {
		ids[i] = s.ID
	}
	return ids
}
