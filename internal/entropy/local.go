// Package entropy provides randomness providers for the blackjack engine.
//
// The production deployment fronted an external entropy oracle that charged a
// fee per request and called back asynchronously. Local reproduces that shape
// in-process: it charges a configurable fee, waits a configurable delay on a
// quartz clock (mockable in tests) and then delivers the random value to the
// engine's ResolveRandomness entry point, exactly once per sequence number.
//
// A request whose callback never fires leaves the player stuck with a pending
// request; the engine deliberately models no expiry for that case.
package entropy

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	mrand "math/rand/v2"

	"github.com/cardroom/blackjackd/internal/randutil"
)

// Callback is the engine entry point a provider resolves into.
type Callback func(ctx context.Context, sequenceNumber uint64, provider string, random [32]byte) error

// LocalConfig configures the in-process provider.
type LocalConfig struct {
	// Addr identifies the provider in callbacks, standing in for the
	// oracle's on-chain address.
	Addr string
	// Fee charged per request.
	Fee int64
	// Delay before the callback fires.
	Delay time.Duration
	// Rand, when set, makes the provider's entropy contribution
	// reproducible. Nil uses crypto/rand.
	Rand *mrand.Rand
	// Clock drives the callback delay. Nil uses the real clock.
	Clock quartz.Clock
}

// Local is an in-process randomness provider.
type Local struct {
	cfg      LocalConfig
	clock    quartz.Clock
	logger   *log.Logger
	callback Callback

	mu   sync.Mutex
	rand *mrand.Rand
}

// NewLocal creates a local provider delivering into the given callback.
func NewLocal(cfg LocalConfig, callback Callback, logger *log.Logger) *Local {
	clock := cfg.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}
	if cfg.Addr == "" {
		cfg.Addr = "local"
	}
	return &Local{
		cfg:      cfg,
		clock:    clock,
		logger:   logger.WithPrefix("entropy"),
		callback: callback,
		rand:     cfg.Rand,
	}
}

// Fee returns the fee charged per request.
func (l *Local) Fee() int64 {
	return l.cfg.Fee
}

// Request schedules an asynchronous callback for the sequence number. The
// random value mixes the user-supplied randomness with the provider's own
// entropy through SHA-256, so neither side can pick the outcome alone.
func (l *Local) Request(sequenceNumber uint64, userRandom [32]byte) {
	random := l.mix(sequenceNumber, userRandom)

	l.logger.Debug("Entropy requested", "seq", sequenceNumber, "delay", l.cfg.Delay)
	l.clock.AfterFunc(l.cfg.Delay, func() {
		if err := l.callback(context.Background(), sequenceNumber, l.cfg.Addr, random); err != nil {
			l.logger.Error("Entropy callback rejected", "seq", sequenceNumber, "error", err)
		}
	})
}

func (l *Local) mix(sequenceNumber uint64, userRandom [32]byte) [32]byte {
	var providerRandom [32]byte
	l.mu.Lock()
	if l.rand != nil {
		providerRandom = randutil.Bytes32(l.rand)
	} else {
		if _, err := rand.Read(providerRandom[:]); err != nil {
			panic("failed to generate random bytes: " + err.Error())
		}
	}
	l.mu.Unlock()

	h := sha256.New()
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], sequenceNumber)
	h.Write(seq[:])
	h.Write(userRandom[:])
	h.Write(providerRandom[:])

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
