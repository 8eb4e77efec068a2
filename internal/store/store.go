// Package store persists per-player chip balances so they survive server
// restarts. The engine reads a balance once when a session is created and
// writes it back on every settlement.
package store

import (
	"context"
	"sync"
)

// Ledger is the chip persistence boundary consumed by the engine.
type Ledger interface {
	// LoadChips returns the stored balance for a player. ok is false when
	// the player has never been seen.
	LoadChips(ctx context.Context, player string) (chips int64, ok bool, err error)

	// SaveChips stores the balance for a player, creating the row if needed.
	SaveChips(ctx context.Context, player string, chips int64) error

	// Close releases any underlying resources.
	Close()
}

// MemoryLedger is the default in-process ledger. Balances live only as long
// as the process.
type MemoryLedger struct {
	mu    sync.RWMutex
	chips map[string]int64
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{chips: make(map[string]int64)}
}

// LoadChips implements Ledger.
func (m *MemoryLedger) LoadChips(_ context.Context, player string) (int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	chips, ok := m.chips[player]
	return chips, ok, nil
}

// SaveChips implements Ledger.
func (m *MemoryLedger) SaveChips(_ context.Context, player string, chips int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chips[player] = chips
	return nil
}

// Close implements Ledger.
func (m *MemoryLedger) Close() {}
