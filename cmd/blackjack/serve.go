package main

import (
	"time"

	"github.com/lox/blackjacktable/cmd/blackjack/shared"
	"github.com/lox/blackjacktable/internal/game"
	"github.com/lox/blackjacktable/internal/recorder"
	"github.com/lox/blackjacktable/internal/server"
)

// ServeCmd runs the WebSocket table server
type ServeCmd struct {
	Config    string `kong:"default='blackjack.hcl',help='Path to HCL config file'"`
	Addr      string `kong:"help='Listen address, overrides config'"`
	RecordURL string `kong:"name='record-url',help='Transaction RPC endpoint, overrides config'"`
	Seed      *int64 `kong:"help='Deterministic shuffle seed (optional)'"`
	Debug     bool   `kong:"help='Enable debug logging'"`
}

func (c *ServeCmd) Run() error {
	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return err
	}
	if c.RecordURL != "" {
		cfg.Game.RecordURL = c.RecordURL
	}

	level := cfg.Server.LogLevel
	if c.Debug {
		level = "debug"
	}
	logger := shared.SetupLogger(level)

	var rec game.Recorder
	if cfg.Game.RecordURL != "" {
		rec = recorder.NewHTTPRecorder(cfg.Game.RecordURL, logger)
	} else {
		logger.Warn("No record_url configured, transactions will only be logged")
		rec = recorder.NewLogRecorder(logger)
	}

	opts := []server.GameServiceOption{
		server.WithSettleDelay(time.Duration(cfg.Game.SettleDelayMs) * time.Millisecond),
		server.WithDefaultPoints(cfg.Game.DefaultPoints),
		server.WithDefaultBet(cfg.Game.DefaultBet),
		server.WithBetStep(cfg.Game.BetStep),
	}
	if c.Seed != nil {
		seed := *c.Seed
		logger.Info("Using deterministic seed", "seed", seed)
		opts = append(opts, server.WithSeedFn(func() int64 { return seed }))
	}
	gs := server.NewGameService(rec, logger, opts...)

	addr := cfg.ListenAddr()
	if c.Addr != "" {
		addr = c.Addr
	}
	s := server.NewServer(addr, gs, logger)

	logger.Info("Starting blackjack server",
		"address", addr,
		"default_bet", cfg.Game.DefaultBet,
		"default_points", cfg.Game.DefaultPoints,
		"settle_delay_ms", cfg.Game.SettleDelayMs)

	ctx := shared.SetupSignalHandler(logger)

	serverErr := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
		return s.Stop()
	case err := <-serverErr:
		return err
	}
}
