package server

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server  ServerSettings  `hcl:"server,block"`
	Game    GameSettings    `hcl:"game,block"`
	Entropy EntropySettings `hcl:"entropy,block"`
	Storage StorageSettings `hcl:"storage,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// GameSettings contains the chip economy configuration.
type GameSettings struct {
	StartingChips      int64 `hcl:"starting_chips,optional"`
	Bet                int64 `hcl:"bet,optional"`
	BlackjackPayoutNum int64 `hcl:"blackjack_payout_num,optional"`
	BlackjackPayoutDen int64 `hcl:"blackjack_payout_den,optional"`
}

// EntropySettings configures the local randomness provider.
type EntropySettings struct {
	Fee          int64  `hcl:"fee,optional"`
	CallbackMs   int    `hcl:"callback_delay_ms,optional"`
	Seed         *int64 `hcl:"seed,optional"`
	ProviderAddr string `hcl:"provider_addr,optional"`
}

// StorageSettings selects the chip ledger backend.
type StorageSettings struct {
	Driver      string `hcl:"driver,optional"`       // "memory" or "postgres"
	DatabaseURL string `hcl:"database_url,optional"` // falls back to DATABASE_URL
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
			StartingChips:      200,
			Bet:                10,
			BlackjackPayoutNum: 3,
			BlackjackPayoutDen: 2,
		},
		Entropy: EntropySettings{
			Fee:          1,
			CallbackMs:   500,
			ProviderAddr: "local",
		},
		Storage: StorageSettings{
			Driver: "memory",
		},
	}
}

// LoadServerConfig loads server configuration from an HCL file. A missing
// file yields the defaults.
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

	// Apply defaults for missing values
	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.Game.StartingChips == 0 {
		config.Game.StartingChips = 200
	}
	if config.Game.Bet == 0 {
		config.Game.Bet = 10
	}
	if config.Game.BlackjackPayoutNum == 0 {
		config.Game.BlackjackPayoutNum = 3
	}
	if config.Game.BlackjackPayoutDen == 0 {
		config.Game.BlackjackPayoutDen = 2
	}
	if config.Entropy.CallbackMs == 0 {
		config.Entropy.CallbackMs = 500
	}
	if config.Entropy.ProviderAddr == "" {
		config.Entropy.ProviderAddr = "local"
	}
	if config.Storage.Driver == "" {
		config.Storage.Driver = "memory"
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Game.Bet <= 0 {
		return fmt.Errorf("bet must be positive: %d", c.Game.Bet)
	}
	if c.Game.StartingChips < c.Game.Bet {
		return fmt.Errorf("starting chips %d cannot cover a single bet of %d", c.Game.StartingChips, c.Game.Bet)
	}
	if c.Game.BlackjackPayoutNum <= 0 || c.Game.BlackjackPayoutDen <= 0 {
		return fmt.Errorf("blackjack payout must be positive: %d/%d", c.Game.BlackjackPayoutNum, c.Game.BlackjackPayoutDen)
	}
	if c.Entropy.Fee < 0 {
		return fmt.Errorf("entropy fee must not be negative: %d", c.Entropy.Fee)
	}
	if c.Entropy.CallbackMs < 0 {
		return fmt.Errorf("entropy callback delay must not be negative: %d", c.Entropy.CallbackMs)
	}

	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Storage.DatabaseURL == "" && os.Getenv("DATABASE_URL") == "" {
			return fmt.Errorf("postgres storage requires database_url or DATABASE_URL")
		}
	default:
		return fmt.Errorf("invalid storage driver: %s", c.Storage.Driver)
	}

	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// GetDatabaseURL returns the configured database URL, falling back to the
// DATABASE_URL environment variable.
func (c *ServerConfig) GetDatabaseURL() string {
	if c.Storage.DatabaseURL != "" {
		return c.Storage.DatabaseURL
	}
	return os.Getenv("DATABASE_URL")
}
