package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blackjackd.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadServerConfigMissingFile(t *testing.T) {
	config, err := LoadServerConfig(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)
	assert.Equal(t, DefaultServerConfig(), config)
}

func TestLoadServerConfig(t *testing.T) {
	path := writeConfigFile(t, `
server {
  address   = "0.0.0.0"
  port      = 9090
  log_level = "debug"
}

game {
  starting_chips = 500
  bet            = 25
}

entropy {
  fee               = 2
  callback_delay_ms = 100
  seed              = 42
}

storage {
  driver       = "postgres"
  database_url = "postgres://localhost/blackjack"
}
`)

	config, err := LoadServerConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", config.Server.Address)
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "debug", config.Server.LogLevel)
	assert.Equal(t, int64(500), config.Game.StartingChips)
	assert.Equal(t, int64(25), config.Game.Bet)
	// Unset payout fields take the defaults.
	assert.Equal(t, int64(3), config.Game.BlackjackPayoutNum)
	assert.Equal(t, int64(2), config.Game.BlackjackPayoutDen)
	assert.Equal(t, int64(2), config.Entropy.Fee)
	assert.Equal(t, 100, config.Entropy.CallbackMs)
	require.NotNil(t, config.Entropy.Seed)
	assert.Equal(t, int64(42), *config.Entropy.Seed)
	assert.Equal(t, "postgres", config.Storage.Driver)
	assert.Equal(t, "postgres://localhost/blackjack", config.Storage.DatabaseURL)

	require.NoError(t, config.Validate())
	assert.Equal(t, "0.0.0.0:9090", config.GetServerAddress())
}

func TestLoadServerConfigDefaultsForEmptyBlocks(t *testing.T) {
	path := writeConfigFile(t, `
server {}
game {}
entropy {}
storage {}
`)

	config, err := LoadServerConfig(path)
	require.NoError(t, err)

	defaults := DefaultServerConfig()
	// The entropy fee legitimately decodes to zero; everything else defaults.
	defaults.Entropy.Fee = 0
	assert.Equal(t, defaults, config)
	require.NoError(t, config.Validate())
}

func TestLoadServerConfigInvalidHCL(t *testing.T) {
	path := writeConfigFile(t, `server { port = `)
	_, err := LoadServerConfig(path)
	assert.Error(t, err)
}

func TestServerConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ServerConfig)
	}{
		{"port too low", func(c *ServerConfig) { c.Server.Port = 0 }},
		{"port too high", func(c *ServerConfig) { c.Server.Port = 70000 }},
		{"zero bet", func(c *ServerConfig) { c.Game.Bet = 0 }},
		{"chips below bet", func(c *ServerConfig) { c.Game.StartingChips = 5 }},
		{"bad payout", func(c *ServerConfig) { c.Game.BlackjackPayoutDen = 0 }},
		{"negative fee", func(c *ServerConfig) { c.Entropy.Fee = -1 }},
		{"negative delay", func(c *ServerConfig) { c.Entropy.CallbackMs = -1 }},
		{"unknown driver", func(c *ServerConfig) { c.Storage.Driver = "sqlite" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultServerConfig()
			tt.mutate(config)
			assert.Error(t, config.Validate())
		})
	}

	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, DefaultServerConfig().Validate())
	})
}

func TestValidatePostgresRequiresURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	config := DefaultServerConfig()
	config.Storage.Driver = "postgres"
	assert.Error(t, config.Validate())

	t.Setenv("DATABASE_URL", "postgres://localhost/blackjack")
	assert.NoError(t, config.Validate())
}

func TestGetDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/blackjack")

	config := DefaultServerConfig()
	assert.Equal(t, "postgres://env/blackjack", config.GetDatabaseURL())

	config.Storage.DatabaseURL = "postgres://file/blackjack"
	assert.Equal(t, "postgres://file/blackjack", config.GetDatabaseURL())
}
