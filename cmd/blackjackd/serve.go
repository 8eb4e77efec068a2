package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/cardroom/blackjackd/internal/engine"
	"github.com/cardroom/blackjackd/internal/entropy"
	"github.com/cardroom/blackjackd/internal/randutil"
	"github.com/cardroom/blackjackd/internal/server"
	"github.com/cardroom/blackjackd/internal/store"
)

// ServeCmd runs the HTTP/WebSocket server.
type ServeCmd struct {
	Config string `kong:"default='blackjackd.hcl',help='Path to HCL config file'"`
	Addr   string `kong:"help='Listen address, overrides config'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
}

func (c *ServeCmd) Run() error {
	// Optional .env for DATABASE_URL and friends
	_ = godotenv.Load()

	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := setupLogger(c.Debug, cfg.Server.LogLevel)

	addr := cfg.GetServerAddress()
	if c.Addr != "" {
		addr = c.Addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ledger, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer ledger.Close()

	eng := engine.New(engine.Config{
		StartingChips:      cfg.Game.StartingChips,
		Bet:                cfg.Game.Bet,
		BlackjackPayoutNum: cfg.Game.BlackjackPayoutNum,
		BlackjackPayoutDen: cfg.Game.BlackjackPayoutDen,
	}, nil, ledger, logger)

	providerCfg := entropy.LocalConfig{
		Addr:  cfg.Entropy.ProviderAddr,
		Fee:   cfg.Entropy.Fee,
		Delay: time.Duration(cfg.Entropy.CallbackMs) * time.Millisecond,
	}
	if cfg.Entropy.Seed != nil {
		logger.Info("Using deterministic entropy seed", "seed", *cfg.Entropy.Seed)
		providerCfg.Rand = randutil.New(*cfg.Entropy.Seed)
	}
	provider := entropy.NewLocal(providerCfg, eng.ResolveRandomness, logger)
	eng.SetProvider(provider)

	srv := server.NewServer(addr, eng, logger)

	logger.Info("Starting blackjackd",
		"addr", addr,
		"bet", cfg.Game.Bet,
		"starting_chips", cfg.Game.StartingChips,
		"entropy_fee", cfg.Entropy.Fee,
		"entropy_delay_ms", cfg.Entropy.CallbackMs,
		"storage", cfg.Storage.Driver)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		logger.Info("Shutting down")
		srv.Stop()
		return <-serverErr
	}
}

func openLedger(ctx context.Context, cfg *server.ServerConfig) (store.Ledger, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		ledger, err := store.OpenPostgres(ctx, cfg.GetDatabaseURL())
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres ledger: %w", err)
		}
		return ledger, nil
	default:
		return store.NewMemoryLedger(), nil
	}
}

func setupLogger(debug bool, level string) *log.Logger {
	logLevel := log.InfoLevel
	if parsed, err := log.ParseLevel(level); err == nil {
		logLevel = parsed
	}
	if debug {
		logLevel = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           logLevel,
		ReportTimestamp: true,
	})
}
