package server

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardroom/blackjackd/internal/engine"
	"github.com/cardroom/blackjackd/internal/store"
)

// inlineProvider resolves every entropy request synchronously, using the
// client-supplied randomness as the random value so requests can pick cards.
type inlineProvider struct {
	fee int64
	eng *engine.Engine
}

func (p *inlineProvider) Fee() int64 { return p.fee }

func (p *inlineProvider) Request(seq uint64, userRandom [32]byte) {
	_ = p.eng.ResolveRandomness(context.Background(), seq, "test", userRandom)
}

func newTestServer(t *testing.T) (*Server, *store.MemoryLedger) {
	t.Helper()
	logger := log.New(io.Discard)
	ledger := store.NewMemoryLedger()
	provider := &inlineProvider{fee: 1}
	eng := engine.New(engine.DefaultConfig(), provider, ledger, logger)
	provider.eng = eng
	return NewServer("localhost:0", eng, logger), ledger
}

// hexForRanks encodes a 32-byte value whose 4-byte slices derive exactly the
// given card ranks, as the 0x-prefixed hex string the API accepts.
func hexForRanks(ranks ...engine.Rank) string {
	var raw [32]byte
	for i, r := range ranks {
		binary.BigEndian.PutUint32(raw[i*4:i*4+4], uint32(r-engine.MinRank))
	}
	return "0x" + hex.EncodeToString(raw[:])
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestFeeEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/api/fee", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp feeResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, int64(1), resp.Fee)
}

func TestGameStateForNewPlayer(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/api/game/alice/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var state engine.Snapshot
	decodeBody(t, rec, &state)
	assert.Empty(t, state.Cards)
	assert.False(t, state.IsAlive)
	assert.Equal(t, int64(0), state.Chips)
}

func TestFullHandOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/game/alice/start", actionRequest{
		UserRandom: hexForRanks(10, 9),
		Value:      11,
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var started actionResponse
	decodeBody(t, rec, &started)
	assert.Equal(t, uint64(1), started.SequenceNumber)

	rec = doJSON(t, router, http.MethodGet, "/api/game/alice/", nil)
	var state engine.Snapshot
	decodeBody(t, rec, &state)
	assert.Equal(t, []int{10, 9}, state.Cards)
	assert.Equal(t, 19, state.Sum)
	assert.True(t, state.IsAlive)
	assert.Equal(t, int64(200), state.Chips)

	rec = doJSON(t, router, http.MethodPost, "/api/game/alice/draw", actionRequest{
		UserRandom: hexForRanks(3),
		Value:      1,
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/game/alice/", nil)
	decodeBody(t, rec, &state)
	assert.Equal(t, []int{10, 9, 3}, state.Cards)
	assert.Equal(t, 22, state.Sum)
	assert.False(t, state.IsAlive)
	assert.Equal(t, int64(190), state.Chips)

	rec = doJSON(t, router, http.MethodPost, "/api/game/alice/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &state)
	assert.Empty(t, state.Cards)
	assert.Equal(t, int64(190), state.Chips)
}

func TestStartGeneratesRandomnessWhenOmitted(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/game/alice/start", actionRequest{Value: 11})
	require.Equal(t, http.StatusAccepted, rec.Code)

	state := srv.engine.GameState("alice")
	assert.Len(t, state.Cards, 2)
}

func TestErrorCodeMapping(t *testing.T) {
	srv, ledger := newTestServer(t)
	router := srv.Router()

	// Start twice while the first hand is live.
	rec := doJSON(t, router, http.MethodPost, "/api/game/alice/start", actionRequest{
		UserRandom: hexForRanks(10, 9),
		Value:      11,
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	tests := []struct {
		name       string
		method     string
		path       string
		body       interface{}
		wantStatus int
		wantCode   string
	}{
		{
			name:       "start while active",
			method:     http.MethodPost,
			path:       "/api/game/alice/start",
			body:       actionRequest{UserRandom: hexForRanks(5, 5), Value: 11},
			wantStatus: http.StatusConflict,
			wantCode:   "game_still_active",
		},
		{
			name:       "reset while active",
			method:     http.MethodPost,
			path:       "/api/game/alice/reset",
			body:       nil,
			wantStatus: http.StatusConflict,
			wantCode:   "game_still_active",
		},
		{
			name:       "draw with low fee",
			method:     http.MethodPost,
			path:       "/api/game/alice/draw",
			body:       actionRequest{UserRandom: hexForRanks(2), Value: 0},
			wantStatus: http.StatusPaymentRequired,
			wantCode:   "insufficient_fee",
		},
		{
			name:       "draw without a game",
			method:     http.MethodPost,
			path:       "/api/game/bob/draw",
			body:       actionRequest{UserRandom: hexForRanks(2), Value: 1},
			wantStatus: http.StatusNotFound,
			wantCode:   "no_active_game",
		},
		{
			name:       "reset without a session",
			method:     http.MethodPost,
			path:       "/api/game/carol/reset",
			body:       nil,
			wantStatus: http.StatusNotFound,
			wantCode:   "no_active_game",
		},
		{
			name:       "start with low value",
			method:     http.MethodPost,
			path:       "/api/game/bob/start",
			body:       actionRequest{UserRandom: hexForRanks(10, 9), Value: 5},
			wantStatus: http.StatusPaymentRequired,
			wantCode:   "insufficient_funds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp errorResponse
			decodeBody(t, rec, &resp)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.NotEmpty(t, resp.Message)
		})
	}

	// Broke player maps to insufficient_funds too.
	require.NoError(t, ledger.SaveChips(context.Background(), "dave", 5))
	rec = doJSON(t, router, http.MethodPost, "/api/game/dave/start", actionRequest{
		UserRandom: hexForRanks(10, 9),
		Value:      11,
	})
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
}

func TestBadRequestBodies(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodPost, "/api/game/alice/start", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "invalid_request", resp.Code)
}

func TestInvalidUserRandom(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	tests := []string{
		"0x1234",       // too short
		"not-hex",      // not hex at all
		"0x" + "zz",    // invalid hex digits
		fmt.Sprintf("0x%064s", "1"), // hex but padded with spaces
	}
	for _, userRandom := range tests {
		rec := doJSON(t, router, http.MethodPost, "/api/game/alice/start", actionRequest{
			UserRandom: userRandom,
			Value:      11,
		})
		require.Equal(t, http.StatusBadRequest, rec.Code, "user_random %q", userRandom)

		var resp errorResponse
		decodeBody(t, rec, &resp)
		assert.Equal(t, "invalid_user_random", resp.Code)
	}
}

func TestWebSocketRequiresPlayer(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/ws", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
