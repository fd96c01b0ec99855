package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/blackjacktable/internal/game"
	"github.com/lox/blackjacktable/internal/randutil"
)

// Session is one player's table: an account and the current round. Each
// websocket connection owns exactly one session, so all engine access is
// serialised behind the session mutex.
type Session struct {
	mu      sync.Mutex
	Account *game.Account
	Round   *game.Round
	closed  bool

	// Engine events fire synchronously inside Round calls and buffer
	// here until Apply drains them into outbound messages.
	events     []*Message
	dealerSeen int
}

// collectEvent turns engine events into streamed client messages. The
// dealer's second card is the hole card and goes out masked.
func (s *Session) collectEvent(event game.GameEvent) {
	switch e := event.(type) {
	case game.RoundStartEvent:
		s.dealerSeen = 0
	case game.CardDealtEvent:
		card := e.Card.String()
		score := e.Score
		if e.SeatID == 0 {
			s.dealerSeen++
			if s.dealerSeen == 2 {
				card = hiddenCard
				score = 0
			}
		}
		s.buffer(MessageTypeCardDealt, CardDealtData{Seat: e.SeatID, Card: card, Score: score})
	case game.DealerDrawEvent:
		s.buffer(MessageTypeDealerDraw, DealerDrawData{Card: e.Card.String(), Score: e.Score})
	}
}

func (s *Session) buffer(msgType MessageType, data interface{}) {
	if msg, err := NewMessage(msgType, data); err == nil {
		s.events = append(s.events, msg)
	}
}

func (s *Session) drainEvents() []*Message {
	msgs := s.events
	s.events = nil
	return msgs
}

// GameService drives blackjack sessions: it applies client actions to the
// engine, paces settlement, delivers transaction records, and applies nets
// to the session balance (optimistically on recorder failure).
type GameService struct {
	recorder    game.Recorder
	logger      *log.Logger
	clock       quartz.Clock
	settleDelay time.Duration
	seedFn      func() int64
	points      int
	defaultBet  int
	betStep     int
}

// GameServiceOption configures a GameService
type GameServiceOption func(*GameService)

// WithClock injects a clock, letting tests advance the settle pause
// synchronously
func WithClock(clock quartz.Clock) GameServiceOption {
	return func(gs *GameService) {
		gs.clock = clock
	}
}

// WithSettleDelay sets the cosmetic pause between dealer play and the
// round result. Zero disables pacing.
func WithSettleDelay(d time.Duration) GameServiceOption {
	return func(gs *GameService) {
		gs.settleDelay = d
	}
}

// WithSeedFn overrides per-round RNG seeding for deterministic tests
func WithSeedFn(fn func() int64) GameServiceOption {
	return func(gs *GameService) {
		gs.seedFn = fn
	}
}

// WithDefaultPoints sets the balance granted to players who join without
// declaring one
func WithDefaultPoints(points int) GameServiceOption {
	return func(gs *GameService) {
		gs.points = points
	}
}

// WithDefaultBet sets the bet each seat starts with in new sessions
func WithDefaultBet(bet int) GameServiceOption {
	return func(gs *GameService) {
		gs.defaultBet = bet
	}
}

// WithBetStep sets the bet increment advertised to joining clients
func WithBetStep(step int) GameServiceOption {
	return func(gs *GameService) {
		gs.betStep = step
	}
}

// NewGameService creates a game service backed by the given recorder
func NewGameService(recorder game.Recorder, logger *log.Logger, opts ...GameServiceOption) *GameService {
	gs := &GameService{
		recorder:    recorder,
		logger:      logger.WithPrefix("game"),
		clock:       quartz.NewReal(),
		settleDelay: 500 * time.Millisecond,
		seedFn:      func() int64 { return time.Now().UnixNano() },
		points:      1000,
		defaultBet:  game.DefaultBet,
		betStep:     5,
	}
	for _, opt := range opts {
		opt(gs)
	}
	return gs
}

func (gs *GameService) defaultPoints() int {
	return gs.points
}

// NewSession creates a session for a player with the given starting
// balance, with every seat staked at the configured default bet
func (gs *GameService) NewSession(playerID string, points int) *Session {
	account := &game.Account{ID: playerID, Points: points}
	sess := &Session{Account: account}

	bus := game.NewEventBus()
	bus.Subscribe(game.EventHandlerFunc(sess.collectEvent))
	sess.Round = game.NewRound(randutil.New(gs.seedFn()), account,
		game.WithEventBus(bus),
		game.WithStartingBet(gs.defaultBet))

	gs.logger.Info("Session started", "player", playerID, "points", points)
	return sess
}

// Apply processes one client action against a session and returns the
// messages to deliver back, in order. Invalid actions produce an error
// message without mutating state; the session itself is never corrupted.
func (gs *GameService) Apply(ctx context.Context, sess *Session, msgType MessageType, data json.RawMessage) []*Message {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.closed {
		return []*Message{errorMessage("session_closed", "Session is closed")}
	}

	switch msgType {
	case MessageTypeSetBet:
		var d SetBetData
		if err := json.Unmarshal(data, &d); err != nil {
			return []*Message{errorMessage("invalid_message", "Failed to parse set_bet data")}
		}
		if err := sess.Round.SetBet(d.Seat, d.Amount); err != nil {
			return gs.actionError(err, sess)
		}
		return []*Message{gs.stateMessage(sess)}

	case MessageTypeToggleSeat:
		var d ToggleSeatData
		if err := json.Unmarshal(data, &d); err != nil {
			return []*Message{errorMessage("invalid_message", "Failed to parse toggle_seat data")}
		}
		if err := sess.Round.ToggleSeat(d.Seat); err != nil {
			return gs.actionError(err, sess)
		}
		return []*Message{gs.stateMessage(sess)}

	case MessageTypeDeal:
		if err := sess.Round.Deal(); err != nil {
			return gs.actionError(err, sess)
		}
		msgs := append(sess.drainEvents(), gs.stateMessage(sess))
		if sess.Round.NaturalShortCircuit() {
			msgs = append(msgs, gs.finishRound(ctx, sess)...)
		}
		return msgs

	case MessageTypeHit:
		if _, err := sess.Round.Hit(); err != nil {
			return gs.actionError(err, sess)
		}
		return gs.afterPlay(ctx, sess)

	case MessageTypeStand:
		if err := sess.Round.Stand(); err != nil {
			return gs.actionError(err, sess)
		}
		return gs.afterPlay(ctx, sess)

	case MessageTypeDoubleDown:
		if _, err := sess.Round.DoubleDown(); err != nil {
			return gs.actionError(err, sess)
		}
		return gs.afterPlay(ctx, sess)

	case MessageTypePlayAgain:
		if err := sess.Round.Reset(); err != nil {
			return gs.actionError(err, sess)
		}
		return []*Message{gs.stateMessage(sess)}

	case MessageTypeLeave:
		return gs.leave(ctx, sess)

	default:
		return []*Message{errorMessage("unknown_message", fmt.Sprintf("Unknown message type %q", msgType))}
	}
}

// Close abandons a round in progress and closes the session. Called on
// explicit leave and on disconnect, so a mid-round socket drop still
// produces the forfeit transaction exactly once.
func (gs *GameService) Close(ctx context.Context, sess *Session) []*Message {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return gs.closeLocked(ctx, sess)
}

func (gs *GameService) leave(ctx context.Context, sess *Session) []*Message {
	return gs.closeLocked(ctx, sess)
}

func (gs *GameService) closeLocked(ctx context.Context, sess *Session) []*Message {
	if sess.closed {
		return nil
	}
	sess.closed = true

	if sess.Round.Phase() != game.PhasePlaying {
		gs.logger.Info("Session closed", "player", sess.Account.ID)
		return nil
	}

	rec, err := sess.Round.Abandon()
	if err != nil {
		gs.logger.Error("Failed to abandon round", "error", err, "player", sess.Account.ID)
		return nil
	}
	gs.logger.Info("Round forfeited", "player", sess.Account.ID, "bet", rec.Bet)
	return gs.deliver(ctx, sess, rec)
}

// afterPlay finishes the round once the last seat resolves: dealer plays,
// the settle pause elapses, and the result is settled and recorded.
func (gs *GameService) afterPlay(ctx context.Context, sess *Session) []*Message {
	msgs := append(sess.drainEvents(), gs.stateMessage(sess))
	if !sess.Round.AllSeatsResolved() {
		return msgs
	}

	if !sess.Round.NaturalShortCircuit() {
		if _, err := sess.Round.PlayDealer(); err != nil {
			gs.logger.Error("Dealer play failed", "error", err, "player", sess.Account.ID)
			return append(msgs, errorMessage("engine_error", "Round aborted"))
		}
		msgs = append(msgs, sess.drainEvents()...)
	}

	return append(msgs, gs.finishRound(ctx, sess)...)
}

func (gs *GameService) finishRound(ctx context.Context, sess *Session) []*Message {
	gs.pause()

	rec, err := sess.Round.Settle()
	if err != nil {
		gs.logger.Error("Settlement failed", "error", err, "player", sess.Account.ID)
		return []*Message{errorMessage("engine_error", "Settlement failed")}
	}
	return gs.deliver(ctx, sess, rec)
}

// deliver records the transaction and applies the net to the session
// balance. The balance change is applied even when recording fails; the
// player gets a non-blocking warning and play continues (accepted drift).
func (gs *GameService) deliver(ctx context.Context, sess *Session, rec *game.RoundRecord) []*Message {
	var msgs []*Message

	if err := gs.recorder.Record(ctx, sess.Account.ID, rec); err != nil {
		gs.logger.Warn("Failed to record game transaction",
			"error", err,
			"player", sess.Account.ID,
			"net", rec.Net)
		if msg, merr := NewMessage(MessageTypeWarning, WarningData{
			Message: "Game transaction not recorded properly",
		}); merr == nil {
			msgs = append(msgs, msg)
		}
	}

	sess.Account.Points += rec.Net

	result, err := NewMessage(MessageTypeRoundResult, RoundResultData{
		Headline: rec.Headline(),
		Record:   rec,
		Balance:  sess.Account.Points,
	})
	if err != nil {
		gs.logger.Error("Failed to build round result", "error", err)
		return msgs
	}
	return append(msgs, result, gs.stateMessage(sess))
}

// actionError maps engine errors to client messages. Invalid actions and
// funds failures are expected outcomes, not server errors. Events from
// the failed call are discarded rather than leaking into the next action.
func (gs *GameService) actionError(err error, sess *Session) []*Message {
	sess.events = nil
	switch {
	case errors.Is(err, game.ErrInsufficientFunds):
		msg, merr := NewMessage(MessageTypeTopUpRequired, TopUpRequiredData{
			Required: sess.Round.TotalBet(),
			Balance:  sess.Account.Points,
		})
		if merr != nil {
			return []*Message{errorMessage("internal_error", "Failed to build message")}
		}
		return []*Message{msg}
	case errors.Is(err, game.ErrInvalidAction), errors.Is(err, game.ErrNoActiveSeats):
		return []*Message{errorMessage("invalid_action", err.Error())}
	default:
		gs.logger.Error("Engine error", "error", err, "player", sess.Account.ID)
		return []*Message{errorMessage("engine_error", err.Error())}
	}
}

func (gs *GameService) stateMessage(sess *Session) *Message {
	msg, err := NewMessage(MessageTypeState, snapshotState(sess.Round, sess.Account))
	if err != nil {
		gs.logger.Error("Failed to build state message", "error", err)
		msg = errorMessage("internal_error", "Failed to build state")
	}
	return msg
}

// pause blocks for the settle delay using the injected clock
func (gs *GameService) pause() {
	if gs.settleDelay <= 0 {
		return
	}
	done := make(chan struct{})
	timer := gs.clock.AfterFunc(gs.settleDelay, func() {
		close(done)
	})
	defer timer.Stop()
	<-done
}

func errorMessage(code, text string) *Message {
	msg, err := NewMessage(MessageTypeError, ErrorData{Code: code, Message: text})
	if err != nil {
		// ErrorData cannot fail to marshal; guard anyway
		return &Message{Type: MessageTypeError, Timestamp: time.Now()}
	}
	return msg
}
