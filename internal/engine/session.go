package engine

// RequestType identifies what a randomness request will resolve into.
type RequestType int

const (
	// RequestStartGame resolves into the two-card initial deal.
	RequestStartGame RequestType = iota
	// RequestDrawCard resolves into a single additional card.
	RequestDrawCard
)

// String returns the request type name for logging.
func (rt RequestType) String() string {
	switch rt {
	case RequestStartGame:
		return "start_game"
	case RequestDrawCard:
		return "draw_card"
	default:
		return "unknown"
	}
}

// RandomnessRequest correlates an asynchronous entropy callback with the
// player action that requested it. Sequence numbers are allocated from a
// process-wide monotonic counter so they never collide across players.
type RandomnessRequest struct {
	SequenceNumber uint64
	Player         string
	Type           RequestType
}

// PlayerSession is the per-player game state. Sessions are created lazily on
// the first StartGame and never deleted, only reset between hands.
type PlayerSession struct {
	Player       string
	HandID       string
	Cards        []Rank
	IsAlive      bool
	HasBlackjack bool
	Chips        int64
	Bet          int64 // escrowed while a hand is running, zero otherwise
	Pending      *RandomnessRequest
}

// Snapshot is the read contract exposed to clients: the exact 5-tuple the
// original contract returned from getGameState. Sum is always recomputed from
// the cards so it can never drift.
type Snapshot struct {
	Cards        []int  `json:"cards"`
	Sum          int    `json:"sum"`
	IsAlive      bool   `json:"is_alive"`
	HasBlackjack bool   `json:"has_blackjack"`
	Chips        int64  `json:"chips"`
	HandID       string `json:"hand_id,omitempty"`
}

func (s *PlayerSession) snapshot() Snapshot {
	cards := make([]int, len(s.Cards))
	for i, c := range s.Cards {
		cards[i] = int(c)
	}
	return Snapshot{
		Cards:        cards,
		Sum:          HandValue(s.Cards),
		IsAlive:      s.IsAlive,
		HasBlackjack: s.HasBlackjack,
		Chips:        s.Chips,
		HandID:       s.HandID,
	}
}
