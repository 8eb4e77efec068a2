package server

import (
	"encoding/json"
	"time"

	"github.com/cardroom/blackjackd/internal/engine"
)

// MessageType identifies a WebSocket message type.
type MessageType string

const (
	// Server → Client
	MessageGameStarted   MessageType = "game_started"
	MessageCardRequested MessageType = "card_requested"
	MessageHandResolved  MessageType = "hand_resolved"
	MessageGameReset     MessageType = "game_reset"
	MessageError         MessageType = "error"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Server → Client payloads

type GameStartedData struct {
	Player         string `json:"player"`
	HandID         string `json:"hand_id"`
	SequenceNumber uint64 `json:"sequence_number"`
	Bet            int64  `json:"bet"`
}

type CardRequestedData struct {
	Player         string `json:"player"`
	HandID         string `json:"hand_id"`
	SequenceNumber uint64 `json:"sequence_number"`
}

type HandResolvedData struct {
	Player         string `json:"player"`
	HandID         string `json:"hand_id"`
	SequenceNumber uint64 `json:"sequence_number"`
	Cards          []int  `json:"cards"`
	Sum            int    `json:"sum"`
	Outcome        string `json:"outcome"`
	Payout         int64  `json:"payout"`
	Chips          int64  `json:"chips"`
}

type GameResetData struct {
	Player string `json:"player"`
	Chips  int64  `json:"chips"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// messageFromEvent converts an engine event to its wire message, or nil for
// event types that are not forwarded.
func messageFromEvent(event engine.GameEvent) (*Message, string, error) {
	switch e := event.(type) {
	case engine.GameStartedEvent:
		msg, err := NewMessage(MessageGameStarted, GameStartedData{
			Player:         e.Player,
			HandID:         e.HandID,
			SequenceNumber: e.SequenceNumber,
			Bet:            e.Bet,
		})
		return msg, e.Player, err
	case engine.CardRequestedEvent:
		msg, err := NewMessage(MessageCardRequested, CardRequestedData{
			Player:         e.Player,
			HandID:         e.HandID,
			SequenceNumber: e.SequenceNumber,
		})
		return msg, e.Player, err
	case engine.HandResolvedEvent:
		cards := make([]int, len(e.Cards))
		for i, c := range e.Cards {
			cards[i] = int(c)
		}
		msg, err := NewMessage(MessageHandResolved, HandResolvedData{
			Player:         e.Player,
			HandID:         e.HandID,
			SequenceNumber: e.SequenceNumber,
			Cards:          cards,
			Sum:            e.Sum,
			Outcome:        string(e.Outcome),
			Payout:         e.Payout,
			Chips:          e.Chips,
		})
		return msg, e.Player, err
	case engine.GameResetEvent:
		msg, err := NewMessage(MessageGameReset, GameResetData{
			Player: e.Player,
			Chips:  e.Chips,
		})
		return msg, e.Player, err
	default:
		return nil, "", nil
	}
}
