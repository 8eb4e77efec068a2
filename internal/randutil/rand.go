package randutil

import (
	"encoding/binary"
	rand "math/rand/v2"
)

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// New returns a *rand.Rand seeded deterministically from the provided int64.
// The helper centralises how we derive the two 64-bit seeds required by rand/v2
// so that all call sites get reproducible sequences.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// Bytes32 fills a 32-byte value from the generator, eight bytes at a time.
// Used where user-supplied randomness needs a reproducible stand-in.
func Bytes32(r *rand.Rand) [32]byte {
	var out [32]byte
	for i := 0; i < 32; i += 8 {
		binary.BigEndian.PutUint64(out[i:i+8], r.Uint64())
	}
	return out
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
