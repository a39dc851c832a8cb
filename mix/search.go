// Package mix implements the per-nonce mix-search kernel: the
// Keccak -> mix -> DAG-reads -> random-math -> Keccak -> target-compare
// pipeline that is the heart of AdaptivePow. It is the CPU-equivalent of
// the `search` GPU kernel entry point and is what the verifier and the
// CPU-reference device backend both run.
package mix

import "github.com/adaptivepow/core/primitives"

const (
	// HeaderWords is the width of a mining header in 32-bit words.
	HeaderWords = 20

	// dagLoads is the number of DAG-merge/random-math rounds per nonce.
	dagLoads = 64

	// mathOps is the number of random-math operations per round.
	mathOps = 16
)

// DagSource supplies 16-word items by index, satisfied by a materialized
// *dataset.Dag and, for the verifier, by an on-demand cache-backed
// reconstruction.
type DagSource interface {
	Items() uint64
	Item(i uint64) []uint32
}

// Search runs the full per-nonce pipeline for one nonce against one header
// and returns the top-64-bit hash and whether it passes target. It is
// pure: identical (header, nonce, dag) always yields identical results.
func Search(header [HeaderWords]uint32, nonce uint64, dag DagSource, target uint64) (hashHigh uint64, found bool) {
	var state [primitives.StateWords]uint32
	copy(state[:HeaderWords], header[:])
	state[19] = uint32(nonce)
	state[20] = uint32(nonce >> 32)
	for i := 21; i < primitives.StateWords; i++ {
		state[i] = 0
	}
	primitives.KeccakF800(&state)

	var m [64]uint32
	for k := range m {
		m[k] = state[k%primitives.StateWords]
	}

	rng := primitives.KISS99{
		Z: primitives.FNV1a(primitives.FNVOffset, state[0]),
	}
	rng.W = primitives.FNV1a(rng.Z, state[1])
	rng.Jsr = primitives.FNV1a(rng.W, state[2])
	rng.Jcong = primitives.FNV1a(rng.Jsr, state[3])

	nDag := dag.Items()
	for round := uint32(0); round < dagLoads; round++ {
		dagIdx := uint64(primitives.FNV1a(round^m[round%64], m[(round+1)%64])) % nDag
		dagData := dag.Item(dagIdx)
		for k := 0; k < 16; k++ {
			m[k] = primitives.FNV1a(m[k], dagData[k])
		}

		for op := 0; op < mathOps; op++ {
			s1 := rng.Next() % 64
			s2 := rng.Next() % 64
			d := rng.Next() % 64
			opType := rng.Next()
			m[d] = primitives.RandomOp(m[s1], m[s2], opType)
		}
	}

	for i := 0; i < 8; i++ {
		state[i] = m[i*8]
		for j := 1; j < 8; j++ {
			state[i] = primitives.FNV1a(state[i], m[i*8+j])
		}
	}
	for i := 8; i < primitives.StateWords; i++ {
		state[i] = 0
	}
	primitives.KeccakF800(&state)

	hashHigh = uint64(state[0])<<32 | uint64(state[1])
	return hashHigh, hashHigh <= target
}
