// Package simulator plays blackjack hands offline against a synchronous
// randomness provider. Useful for sanity-checking the chip economy and the
// card derivation without a running server.
package simulator

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/cardroom/blackjackd/internal/engine"
	"github.com/cardroom/blackjackd/internal/randutil"
	"github.com/cardroom/blackjackd/internal/store"
)

// Config holds configuration for running simulations
type Config struct {
	Hands   int
	Seed    int64
	GameCfg engine.Config
	Logger  *log.Logger
}

// Results aggregates simulated hand outcomes.
type Results struct {
	Hands      int
	Blackjacks int
	Wins       int
	Busts      int
	NetChips   int64
}

// Simulator runs blackjack hand simulations against an in-process engine.
type Simulator struct {
	config Config
}

// New creates a new simulator with the given configuration
func New(config Config) *Simulator {
	return &Simulator{config: config}
}

// Run executes the simulation and returns results. The game has no stand
// action: a hand only ends on 21 or bust, so the policy is simply to draw
// until the hand terminates, then reset.
func (s *Simulator) Run(ctx context.Context) (*Results, error) {
	ledger := store.NewMemoryLedger()
	provider := &syncProvider{fee: 1}
	eng := engine.New(s.config.GameCfg, provider, ledger, s.config.Logger)
	provider.resolve = eng.ResolveRandomness

	rng := randutil.New(s.config.Seed)
	player := "simulated"
	startingChips := s.config.GameCfg.StartingChips
	bet := s.config.GameCfg.Bet

	results := &Results{}
	for hand := 0; hand < s.config.Hands; hand++ {
		state := eng.GameState(player)
		if hand > 0 && state.Chips < bet {
			s.config.Logger.Info("Bankroll exhausted", "hands", hand)
			break
		}

		if _, err := eng.StartGame(ctx, player, randutil.Bytes32(rng), bet+provider.fee); err != nil {
			return nil, fmt.Errorf("hand %d: failed to start: %w", hand+1, err)
		}

		for {
			state = eng.GameState(player)
			if !state.IsAlive {
				break
			}
			if _, err := eng.DrawCard(ctx, player, randutil.Bytes32(rng), provider.fee); err != nil {
				return nil, fmt.Errorf("hand %d: failed to draw: %w", hand+1, err)
			}
		}

		results.Hands++
		switch {
		case state.HasBlackjack && len(state.Cards) == 2:
			results.Blackjacks++
		case state.HasBlackjack:
			results.Wins++
		default:
			results.Busts++
		}

		if err := eng.ResetGame(ctx, player); err != nil {
			return nil, fmt.Errorf("hand %d: failed to reset: %w", hand+1, err)
		}
	}

	if results.Hands > 0 {
		final := eng.GameState(player)
		results.NetChips = final.Chips - startingChips
	}
	return results, nil
}

// syncProvider resolves entropy requests inline: the transport adapter
// between request and callback collapses to a direct call.
type syncProvider struct {
	fee     int64
	resolve func(ctx context.Context, seq uint64, provider string, random [32]byte) error
}

func (p *syncProvider) Fee() int64 { return p.fee }

func (p *syncProvider) Request(seq uint64, userRandom [32]byte) {
	_ = p.resolve(context.Background(), seq, "sync", userRandom)
}
