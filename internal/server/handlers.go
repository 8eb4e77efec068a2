package server

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cardroom/blackjackd/internal/engine"
)

// actionRequest is the body for start and draw. UserRandom is an optional
// 0x-prefixed 32-byte hex string of client-side randomness, mirroring the
// bytes32 the frontend generated per transaction; omitted means the server
// generates it. Value is the funds attached to the action.
type actionRequest struct {
	UserRandom string `json:"user_random,omitempty"`
	Value      int64  `json:"value"`
}

type actionResponse struct {
	SequenceNumber uint64 `json:"sequence_number"`
}

type feeResponse struct {
	Fee int64 `json:"fee"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleFee(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, feeResponse{Fee: s.engine.Fee()})
}

func (s *Server) handleGameState(w http.ResponseWriter, r *http.Request) {
	player := chi.URLParam(r, "player")
	writeJSON(w, http.StatusOK, s.engine.GameState(player))
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	player := chi.URLParam(r, "player")

	req, userRandom, ok := s.decodeAction(w, r)
	if !ok {
		return
	}

	seq, err := s.engine.StartGame(r.Context(), player, userRandom, req.Value)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, actionResponse{SequenceNumber: seq})
}

func (s *Server) handleDrawCard(w http.ResponseWriter, r *http.Request) {
	player := chi.URLParam(r, "player")

	req, userRandom, ok := s.decodeAction(w, r)
	if !ok {
		return
	}

	seq, err := s.engine.DrawCard(r.Context(), player, userRandom, req.Value)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, actionResponse{SequenceNumber: seq})
}

func (s *Server) handleResetGame(w http.ResponseWriter, r *http.Request) {
	player := chi.URLParam(r, "player")

	if err := s.engine.ResetGame(r.Context(), player); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.GameState(player))
}

func (s *Server) decodeAction(w http.ResponseWriter, r *http.Request) (actionRequest, [32]byte, bool) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    "invalid_request",
			Message: "failed to parse request body: " + err.Error(),
		})
		return req, [32]byte{}, false
	}

	userRandom, err := parseUserRandom(req.UserRandom)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    "invalid_user_random",
			Message: err.Error(),
		})
		return req, [32]byte{}, false
	}
	return req, userRandom, true
}

// parseUserRandom decodes a 0x-prefixed 32-byte hex string. An empty string
// generates fresh randomness server-side.
func parseUserRandom(s string) ([32]byte, error) {
	var out [32]byte
	if s == "" {
		if _, err := rand.Read(out[:]); err != nil {
			return out, fmt.Errorf("failed to generate randomness: %w", err)
		}
		return out, nil
	}

	s = strings.TrimPrefix(s, "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("user_random must be hex: %w", err)
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("user_random must be 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

// writeEngineError maps engine errors to stable machine codes and HTTP
// statuses. The original frontend pattern-matched revert strings to produce
// user messages; the codes here are the server-side version of that contract.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	var (
		status = http.StatusInternalServerError
		code   = "internal_error"
	)

	switch {
	case errors.Is(err, engine.ErrAlreadyPending):
		status, code = http.StatusConflict, "already_pending"
	case errors.Is(err, engine.ErrGameStillActive):
		status, code = http.StatusConflict, "game_still_active"
	case errors.Is(err, engine.ErrInsufficientFunds):
		status, code = http.StatusPaymentRequired, "insufficient_funds"
	case errors.Is(err, engine.ErrInsufficientFee):
		status, code = http.StatusPaymentRequired, "insufficient_fee"
	case errors.Is(err, engine.ErrNoActiveGame):
		status, code = http.StatusNotFound, "no_active_game"
	case errors.Is(err, engine.ErrUnknownRequest):
		status, code = http.StatusNotFound, "unknown_request"
	default:
		s.logger.Error("Request failed", "error", err)
	}

	writeJSON(w, status, errorResponse{Code: code, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
