package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"

	"github.com/cardroom/blackjackd/internal/engine"
	"github.com/cardroom/blackjackd/internal/simulator"
)

// SimulateCmd plays hands offline and reports outcome statistics.
type SimulateCmd struct {
	Hands int   `kong:"default='1000',help='Number of hands to play'"`
	Seed  int64 `kong:"default='1',help='Deterministic RNG seed'"`
	Bet   int64 `kong:"default='10',help='Bet per hand'"`
	Debug bool  `kong:"help='Enable debug logging'"`
}

func (c *SimulateCmd) Run() error {
	level := log.WarnLevel
	if c.Debug {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{Level: level})

	gameCfg := engine.DefaultConfig()
	gameCfg.Bet = c.Bet
	if err := gameCfg.Validate(); err != nil {
		return err
	}

	sim := simulator.New(simulator.Config{
		Hands:   c.Hands,
		Seed:    c.Seed,
		GameCfg: gameCfg,
		Logger:  logger,
	})

	results, err := sim.Run(context.Background())
	if err != nil {
		return err
	}

	// Summary goes to stdout regardless of log level
	summary := log.NewWithOptions(os.Stdout, log.Options{Level: log.InfoLevel})
	summary.Info("Simulation complete",
		"hands", results.Hands,
		"blackjacks", results.Blackjacks,
		"wins", results.Wins,
		"busts", results.Busts,
		"net_chips", results.NetChips)
	return nil
}
