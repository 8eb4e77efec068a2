// Package engine implements the blackjack game state machine: deck-less card
// generation from entropy callbacks, hand evaluation, the per-player chip
// ledger and the hand lifecycle (idle, awaiting randomness, active, resolved).
//
// Player actions return before the card outcome is known. The real state
// transition happens when the entropy provider invokes ResolveRandomness with
// the sequence number issued at request time. The one-pending-request-per-
// player invariant is the engine's only concurrency control between actions
// on the same player; actions on different players are independent.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cardroom/blackjackd/internal/handid"
	"github.com/cardroom/blackjackd/internal/store"
)

// Provider is the randomness oracle boundary. The engine registers a pending
// request and calls Request; the provider later invokes ResolveRandomness
// exactly once with the same sequence number, asynchronously and in no
// particular order relative to other players' requests.
type Provider interface {
	// Fee returns the provider's current fee, a pass-through cost charged
	// on every request.
	Fee() int64

	// Request asks the provider for entropy. The user-supplied randomness
	// is mixed into the eventual random value.
	Request(sequenceNumber uint64, userRandom [32]byte)
}

// Config holds the chip economy parameters.
type Config struct {
	StartingChips int64 // balance granted to a first-time player
	Bet           int64 // chips escrowed per hand
	// Natural blackjack pays Bet * PayoutNum / PayoutDen, credited
	// immediately when the initial deal resolves to 21.
	BlackjackPayoutNum int64
	BlackjackPayoutDen int64
}

// DefaultConfig returns the chip economy the original game shipped with:
// 200 starting chips, a 10 chip bet and 3:2 blackjack payout.
func DefaultConfig() Config {
	return Config{
		StartingChips:      200,
		Bet:                10,
		BlackjackPayoutNum: 3,
		BlackjackPayoutDen: 2,
	}
}

// Validate checks the config for values that would corrupt the chip ledger.
func (c Config) Validate() error {
	if c.StartingChips < 0 {
		return fmt.Errorf("starting chips must not be negative: %d", c.StartingChips)
	}
	if c.Bet <= 0 {
		return fmt.Errorf("bet must be positive: %d", c.Bet)
	}
	if c.BlackjackPayoutNum <= 0 || c.BlackjackPayoutDen <= 0 {
		return fmt.Errorf("blackjack payout must be positive: %d/%d", c.BlackjackPayoutNum, c.BlackjackPayoutDen)
	}
	return nil
}

// Engine owns every player session and the pending randomness requests.
type Engine struct {
	mu       sync.Mutex
	cfg      Config
	provider Provider
	ledger   store.Ledger
	bus      EventBus
	logger   *log.Logger
	ids      *handid.Generator

	sessions map[string]*PlayerSession
	requests map[uint64]*RandomnessRequest
	nextSeq  uint64
}

// New creates an engine. The ledger backs chip balances across restarts; the
// provider delivers entropy callbacks.
func New(cfg Config, provider Provider, ledger store.Ledger, logger *log.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		provider: provider,
		ledger:   ledger,
		bus:      NewEventBus(),
		logger:   logger.WithPrefix("engine"),
		ids:      handid.NewGenerator(nil),
		sessions: make(map[string]*PlayerSession),
		requests: make(map[uint64]*RandomnessRequest),
	}
}

// SetProvider wires the randomness provider after construction. Providers
// that need the engine's ResolveRandomness callback at their own construction
// are created second and attached here, before the first request.
func (e *Engine) SetProvider(p Provider) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.provider = p
}

// Bus returns the event bus for subscribing to game events.
func (e *Engine) Bus() EventBus {
	return e.bus
}

// Fee returns the provider's current fee.
func (e *Engine) Fee() int64 {
	return e.provider.Fee()
}

// StartGame begins a new hand for the player. The attached value must cover
// bet plus provider fee, and the chip balance must cover the bet. The bet is
// escrowed on the session; the visible balance is untouched until settlement.
// Returns the sequence number of the randomness request; the deal happens
// when the provider calls back.
func (e *Engine) StartGame(ctx context.Context, player string, userRandom [32]byte, value int64) (uint64, error) {
	e.mu.Lock()

	sess, err := e.sessionLocked(ctx, player)
	if err != nil {
		e.mu.Unlock()
		return 0, err
	}
	if sess.Pending != nil {
		e.mu.Unlock()
		return 0, ErrAlreadyPending
	}
	if sess.IsAlive {
		e.mu.Unlock()
		return 0, ErrGameStillActive
	}
	fee := e.provider.Fee()
	if value < e.cfg.Bet+fee {
		e.mu.Unlock()
		return 0, fmt.Errorf("%w: value %d below bet %d plus fee %d", ErrInsufficientFunds, value, e.cfg.Bet, fee)
	}
	if sess.Chips < e.cfg.Bet {
		e.mu.Unlock()
		return 0, fmt.Errorf("%w: %d chips cannot cover bet of %d", ErrInsufficientFunds, sess.Chips, e.cfg.Bet)
	}

	e.nextSeq++
	req := &RandomnessRequest{
		SequenceNumber: e.nextSeq,
		Player:         player,
		Type:           RequestStartGame,
	}
	e.requests[req.SequenceNumber] = req
	sess.Pending = req
	sess.Bet = e.cfg.Bet
	sess.HandID = e.ids.New()

	handID := sess.HandID
	e.mu.Unlock()

	e.logger.Info("Game start requested", "player", player, "seq", req.SequenceNumber, "handID", handID, "bet", e.cfg.Bet)
	e.bus.Publish(GameStartedEvent{
		Player:         player,
		HandID:         handID,
		SequenceNumber: req.SequenceNumber,
		Bet:            e.cfg.Bet,
		timestamp:      time.Now(),
	})
	e.provider.Request(req.SequenceNumber, userRandom)

	return req.SequenceNumber, nil
}

// DrawCard requests one more card for a live hand. The attached value must
// cover the provider fee. Returns the sequence number of the randomness
// request.
func (e *Engine) DrawCard(ctx context.Context, player string, userRandom [32]byte, value int64) (uint64, error) {
	e.mu.Lock()

	sess, ok := e.sessions[player]
	if !ok || !sess.IsAlive {
		e.mu.Unlock()
		return 0, ErrNoActiveGame
	}
	if sess.Pending != nil {
		e.mu.Unlock()
		return 0, ErrAlreadyPending
	}
	fee := e.provider.Fee()
	if value < fee {
		e.mu.Unlock()
		return 0, fmt.Errorf("%w: value %d below fee %d", ErrInsufficientFee, value, fee)
	}

	e.nextSeq++
	req := &RandomnessRequest{
		SequenceNumber: e.nextSeq,
		Player:         player,
		Type:           RequestDrawCard,
	}
	e.requests[req.SequenceNumber] = req
	sess.Pending = req

	handID := sess.HandID
	e.mu.Unlock()

	e.logger.Info("Card draw requested", "player", player, "seq", req.SequenceNumber, "handID", handID)
	e.bus.Publish(CardRequestedEvent{
		Player:         player,
		HandID:         handID,
		SequenceNumber: req.SequenceNumber,
		timestamp:      time.Now(),
	})
	e.provider.Request(req.SequenceNumber, userRandom)

	return req.SequenceNumber, nil
}

// ResolveRandomness applies an entropy callback to the pending request with
// the given sequence number. The resolution is all-or-nothing: cards, sum,
// liveness and chips update together or not at all. A second callback for a
// consumed sequence number fails with ErrUnknownRequest and mutates nothing.
func (e *Engine) ResolveRandomness(ctx context.Context, sequenceNumber uint64, providerAddr string, random [32]byte) error {
	e.mu.Lock()

	req, ok := e.requests[sequenceNumber]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: sequence number %d", ErrUnknownRequest, sequenceNumber)
	}
	sess, ok := e.sessions[req.Player]
	if !ok {
		// Requests are only issued for existing sessions.
		e.mu.Unlock()
		return fmt.Errorf("%w: no session for player %s", ErrUnknownRequest, req.Player)
	}

	// Compute the transition on copies so a ledger failure leaves the
	// session untouched.
	var (
		cards        []Rank
		isAlive      bool
		hasBlackjack bool
		payout       int64
		outcome      Outcome
	)

	switch req.Type {
	case RequestStartGame:
		cards = DeriveRanks(random, 2)
		sum := HandValue(cards)
		hasBlackjack = sum == 21
		isAlive = !hasBlackjack
		outcome = OutcomeDealt
		if hasBlackjack {
			outcome = OutcomeBlackjack
			payout = sess.Bet * e.cfg.BlackjackPayoutNum / e.cfg.BlackjackPayoutDen
		}
	case RequestDrawCard:
		cards = make([]Rank, len(sess.Cards), len(sess.Cards)+1)
		copy(cards, sess.Cards)
		cards = append(cards, DeriveRanks(random, 1)[0])
		sum := HandValue(cards)
		switch {
		case sum > 21:
			isAlive = false
			outcome = OutcomeBust
			payout = -sess.Bet
		case sum == 21:
			isAlive = false
			hasBlackjack = true
			outcome = OutcomeWin
			payout = sess.Bet
		default:
			isAlive = true
			hasBlackjack = false
			outcome = OutcomeDealt
		}
	default:
		e.mu.Unlock()
		return fmt.Errorf("%w: sequence number %d has invalid type %d", ErrUnknownRequest, sequenceNumber, req.Type)
	}

	newChips := sess.Chips + payout
	terminal := outcome != OutcomeDealt

	// Settlement must land in the ledger before the in-memory state flips;
	// on failure the request stays pending and the callback can be retried.
	if terminal && payout != 0 {
		if err := e.ledger.SaveChips(ctx, req.Player, newChips); err != nil {
			e.mu.Unlock()
			return fmt.Errorf("failed to settle chips for %s: %w", req.Player, err)
		}
	}

	sess.Cards = cards
	sess.IsAlive = isAlive
	sess.HasBlackjack = hasBlackjack
	sess.Chips = newChips
	sess.Pending = nil
	if terminal {
		sess.Bet = 0
	}
	delete(e.requests, sequenceNumber)

	handID := sess.HandID
	sum := HandValue(cards)
	e.mu.Unlock()

	e.logger.Info("Randomness resolved",
		"player", req.Player,
		"seq", sequenceNumber,
		"provider", providerAddr,
		"type", req.Type,
		"sum", sum,
		"outcome", outcome,
		"payout", payout)

	e.bus.Publish(HandResolvedEvent{
		Player:         req.Player,
		HandID:         handID,
		SequenceNumber: sequenceNumber,
		Cards:          cards,
		Sum:            sum,
		Outcome:        outcome,
		Payout:         payout,
		Chips:          newChips,
		timestamp:      time.Now(),
	})

	return nil
}

// ResetGame clears a finished hand so a new one can start. Chips are
// untouched. Any stray pending request is dropped for safety.
func (e *Engine) ResetGame(ctx context.Context, player string) error {
	e.mu.Lock()

	sess, ok := e.sessions[player]
	if !ok {
		e.mu.Unlock()
		return ErrNoActiveGame
	}
	if sess.IsAlive {
		e.mu.Unlock()
		return ErrGameStillActive
	}

	if sess.Pending != nil {
		delete(e.requests, sess.Pending.SequenceNumber)
		sess.Pending = nil
	}
	sess.Cards = nil
	sess.HasBlackjack = false
	sess.IsAlive = false
	sess.Bet = 0
	sess.HandID = ""
	chips := sess.Chips
	e.mu.Unlock()

	e.logger.Info("Game reset", "player", player, "chips", chips)
	e.bus.Publish(GameResetEvent{
		Player:    player,
		Chips:     chips,
		timestamp: time.Now(),
	})

	return nil
}

// GameState returns the player's current snapshot: the 5-tuple the polling
// client reads. A player without a session gets a zero-valued snapshot.
func (e *Engine) GameState(player string) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess, ok := e.sessions[player]
	if !ok {
		return Snapshot{Cards: []int{}}
	}
	return sess.snapshot()
}

// HasPending reports whether the player has an outstanding randomness
// request.
func (e *Engine) HasPending(player string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess, ok := e.sessions[player]
	return ok && sess.Pending != nil
}

// sessionLocked returns the player's session, creating it lazily with the
// persisted chip balance (or the configured starting chips for a new player).
func (e *Engine) sessionLocked(ctx context.Context, player string) (*PlayerSession, error) {
	if sess, ok := e.sessions[player]; ok {
		return sess, nil
	}

	chips, ok, err := e.ledger.LoadChips(ctx, player)
	if err != nil {
		return nil, fmt.Errorf("failed to load chips for %s: %w", player, err)
	}
	if !ok {
		chips = e.cfg.StartingChips
		if err := e.ledger.SaveChips(ctx, player, chips); err != nil {
			return nil, fmt.Errorf("failed to initialise chips for %s: %w", player, err)
		}
	}

	sess := &PlayerSession{Player: player, Chips: chips}
	e.sessions[player] = sess
	e.logger.Debug("Session created", "player", player, "chips", chips)
	return sess, nil
}
