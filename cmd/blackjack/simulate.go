package main

import (
	"time"

	"github.com/lox/blackjacktable/cmd/blackjack/shared"
	"github.com/lox/blackjacktable/internal/sim"
)

// SimulateCmd simulates rounds with a fixed policy
type SimulateCmd struct {
	Rounds int    `kong:"default='10000',help='Number of rounds to simulate'"`
	Seats  int    `kong:"default='1',help='Seats to play each round (1-3)'"`
	Bet    int    `kong:"default='10',help='Bet per seat'"`
	Policy string `kong:"default='basic',help='Playing policy: stand, seventeen or basic'"`
	Seed   *int64 `kong:"help='Base RNG seed (optional, defaults to current time)'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
}

func (c *SimulateCmd) Run() error {
	level := "info"
	if c.Debug {
		level = "debug"
	}
	logger := shared.SetupLogger(level)

	seed := time.Now().UnixNano()
	if c.Seed != nil {
		seed = *c.Seed
	}
	logger.Info("Starting simulation",
		"rounds", c.Rounds,
		"seats", c.Seats,
		"bet", c.Bet,
		"policy", c.Policy,
		"seed", seed)

	stats, err := sim.New(sim.Config{
		Rounds: c.Rounds,
		Seats:  c.Seats,
		Bet:    c.Bet,
		Policy: c.Policy,
		Seed:   seed,
		Logger: logger,
	}).Run()
	if err != nil {
		return err
	}

	sim.PrintSummary(stats, c.Policy)
	return nil
}
