package entropy

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardroom/blackjackd/internal/randutil"
)

type callbackRecorder struct {
	mu    sync.Mutex
	calls []callbackCall
}

type callbackCall struct {
	seq      uint64
	provider string
	random   [32]byte
}

func (r *callbackRecorder) callback(_ context.Context, seq uint64, provider string, random [32]byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, callbackCall{seq: seq, provider: provider, random: random})
	return nil
}

func (r *callbackRecorder) snapshot() []callbackCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]callbackCall, len(r.calls))
	copy(out, r.calls)
	return out
}

func TestLocalFee(t *testing.T) {
	rec := &callbackRecorder{}
	provider := NewLocal(LocalConfig{Fee: 3}, rec.callback, log.New(io.Discard))
	assert.Equal(t, int64(3), provider.Fee())
}

func TestLocalDeliversAfterDelay(t *testing.T) {
	ctx := context.Background()
	mockClock := quartz.NewMock(t)
	rec := &callbackRecorder{}

	provider := NewLocal(LocalConfig{
		Addr:  "oracle-1",
		Fee:   1,
		Delay: 500 * time.Millisecond,
		Clock: mockClock,
	}, rec.callback, log.New(io.Discard))

	provider.Request(7, [32]byte{1, 2, 3})
	assert.Empty(t, rec.snapshot(), "callback must not fire before the delay")

	mockClock.Advance(500 * time.Millisecond).MustWait(ctx)

	calls := rec.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, uint64(7), calls[0].seq)
	assert.Equal(t, "oracle-1", calls[0].provider)

	// Advancing further must not replay the callback.
	mockClock.Advance(time.Second).MustWait(ctx)
	assert.Len(t, rec.snapshot(), 1)
}

func TestLocalDefaultsAddr(t *testing.T) {
	ctx := context.Background()
	mockClock := quartz.NewMock(t)
	rec := &callbackRecorder{}

	provider := NewLocal(LocalConfig{Delay: time.Millisecond, Clock: mockClock}, rec.callback, log.New(io.Discard))
	provider.Request(1, [32]byte{})
	mockClock.Advance(time.Millisecond).MustWait(ctx)

	calls := rec.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "local", calls[0].provider)
}

func TestLocalMixIsDeterministicWithSeededRand(t *testing.T) {
	ctx := context.Background()
	userRandom := [32]byte{0xaa, 0xbb}

	run := func(seed int64) [32]byte {
		mockClock := quartz.NewMock(t)
		rec := &callbackRecorder{}
		provider := NewLocal(LocalConfig{
			Delay: time.Millisecond,
			Rand:  randutil.New(seed),
			Clock: mockClock,
		}, rec.callback, log.New(io.Discard))
		provider.Request(42, userRandom)
		mockClock.Advance(time.Millisecond).MustWait(ctx)

		calls := rec.snapshot()
		require.Len(t, calls, 1)
		return calls[0].random
	}

	first := run(99)
	second := run(99)
	other := run(100)

	assert.Equal(t, first, second, "same seed must yield the same random value")
	assert.NotEqual(t, first, other)
}

func TestLocalMixDependsOnInputs(t *testing.T) {
	ctx := context.Background()
	mockClock := quartz.NewMock(t)
	rec := &callbackRecorder{}

	provider := NewLocal(LocalConfig{
		Delay: time.Millisecond,
		Rand:  randutil.New(1),
		Clock: mockClock,
	}, rec.callback, log.New(io.Discard))

	provider.Request(1, [32]byte{1})
	mockClock.Advance(time.Millisecond).MustWait(ctx)
	provider.Request(2, [32]byte{1})
	mockClock.Advance(time.Millisecond).MustWait(ctx)

	calls := rec.snapshot()
	require.Len(t, calls, 2)
	assert.NotEqual(t, calls[0].random, calls[1].random,
		"sequence number is part of the hash input")
}
