package engine

import (
	"encoding/binary"
	"fmt"
)

// Rank is a card rank in the range [2,14]. Ranks 2-10 are pip cards, 11 is
// the ace, and 12/13/14 are jack, queen and king. This matches the numeric
// encoding the frontend renders from.
type Rank int

const (
	MinRank   Rank = 2
	AceRank   Rank = 11
	MaxRank   Rank = 14
	rankCount      = 13
)

// Value returns the blackjack point value of the rank. The ace counts as 11
// here; HandValue demotes aces to 1 as needed to avoid busting.
func (r Rank) Value() int {
	switch {
	case r >= 12 && r <= 14:
		return 10
	default:
		return int(r)
	}
}

// IsAce reports whether the rank is an ace.
func (r Rank) IsAce() bool {
	return r == AceRank
}

// String returns a short human-readable rank like "7", "A" or "Q".
func (r Rank) String() string {
	switch r {
	case AceRank:
		return "A"
	case 12:
		return "J"
	case 13:
		return "Q"
	case 14:
		return "K"
	default:
		return fmt.Sprintf("%d", int(r))
	}
}

// maxDerivedCards is bounded by the 32-byte random value: one 4-byte slice
// per card.
const maxDerivedCards = 8

// DeriveRanks maps a 32-byte random value to n card ranks. Card i consumes
// bytes [4i, 4i+4) as a big-endian uint32 and maps it to 2 + v mod 13, giving
// a rank in [2,14]. The scheme is the canonical derivation for the whole
// system: given the same random value, the same cards come out, bit for bit.
func DeriveRanks(random [32]byte, n int) []Rank {
	if n < 1 || n > maxDerivedCards {
		panic(fmt.Sprintf("DeriveRanks: n must be in [1,%d], got %d", maxDerivedCards, n))
	}

	ranks := make([]Rank, n)
	for i := 0; i < n; i++ {
		v := binary.BigEndian.Uint32(random[i*4 : i*4+4])
		ranks[i] = MinRank + Rank(v%rankCount)
	}
	return ranks
}

// HandValue returns the best blackjack total for the hand: every ace starts
// at 11 and aces are demoted to 1 one at a time while the total exceeds 21.
func HandValue(cards []Rank) int {
	total := 0
	aces := 0
	for _, c := range cards {
		total += c.Value()
		if c.IsAce() {
			aces++
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}
