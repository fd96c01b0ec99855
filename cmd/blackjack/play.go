package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lox/blackjacktable/cmd/blackjack/shared"
	"github.com/lox/blackjacktable/internal/game"
	"github.com/lox/blackjacktable/internal/recorder"
	"github.com/lox/blackjacktable/internal/tui"
)

// PlayCmd plays a local table in the terminal
type PlayCmd struct {
	Player    string `kong:"default='player',help='Player name for the points ledger'"`
	Points    int    `kong:"default='1000',help='Starting points balance'"`
	BetStep   int    `kong:"name='bet-step',default='5',help='Bet adjustment step'"`
	RecordURL string `kong:"name='record-url',help='Transaction RPC endpoint (optional)'"`
	Seed      *int64 `kong:"help='Deterministic shuffle seed (optional)'"`
	Debug     bool   `kong:"help='Enable debug logging'"`
}

func (c *PlayCmd) Run() error {
	level := "warn"
	if c.Debug {
		level = "debug"
	}
	logger := shared.SetupLogger(level)

	var rec game.Recorder
	if c.RecordURL != "" {
		rec = recorder.NewHTTPRecorder(c.RecordURL, logger)
	} else {
		rec = recorder.NewMemoryRecorder()
	}

	opts := []tui.ModelOption{tui.WithBetStep(c.BetStep)}
	if c.Seed != nil {
		opts = append(opts, tui.WithSeed(*c.Seed))
	}
	model := tui.NewModel(c.Player, c.Points, rec, logger, opts...)

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run table: %w", err)
	}

	fmt.Printf("Final balance: %d points\n", model.Balance())
	return nil
}
