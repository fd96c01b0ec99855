package server

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Game   GameSettings   `hcl:"game,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// GameSettings contains table rules and backend wiring
type GameSettings struct {
	DefaultBet    int    `hcl:"default_bet,optional"`
	BetStep       int    `hcl:"bet_step,optional"`
	SettleDelayMs int    `hcl:"settle_delay_ms,optional"`
	RecordURL     string `hcl:"record_url,optional"`
	DefaultPoints int    `hcl:"default_points,optional"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Game: GameSettings{
			DefaultBet:    10,
			BetStep:       5,
			SettleDelayMs: 500,
			DefaultPoints: 1000,
		},
	}
}

// LoadServerConfig loads server configuration from an HCL file. A missing
// file yields the defaults; a present file has missing values back-filled.
func LoadServerConfig(filename string) (*ServerConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	defaults := DefaultServerConfig()
	if config.Server.Address == "" {
		config.Server.Address = defaults.Server.Address
	}
	if config.Server.Port == 0 {
		config.Server.Port = defaults.Server.Port
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = defaults.Server.LogLevel
	}
	if config.Game.DefaultBet == 0 {
		config.Game.DefaultBet = defaults.Game.DefaultBet
	}
	if config.Game.BetStep == 0 {
		config.Game.BetStep = defaults.Game.BetStep
	}
	if config.Game.SettleDelayMs == 0 {
		config.Game.SettleDelayMs = defaults.Game.SettleDelayMs
	}
	if config.Game.DefaultPoints == 0 {
		config.Game.DefaultPoints = defaults.Game.DefaultPoints
	}

	return &config, nil
}

// ListenAddr returns the host:port the server binds to
func (c *ServerConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
