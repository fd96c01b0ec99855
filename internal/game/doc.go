// Package game implements the blackjack table engine: scoring, seat
// bookkeeping, the betting/playing/finished round state machine, dealer
// auto-play and settlement.
//
// The engine is synchronous and presentation-free. Timed pauses between
// dealer play and settlement belong to callers (the server paces with a
// clock, the TUI with tea commands); every transition here runs to
// completion when invoked. Actions issued outside their phase or turn are
// rejected with ErrInvalidAction so callers can treat stale UI input as a
// no-op without corrupting state.
package game
