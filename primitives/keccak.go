// Package primitives implements the bit-exact building blocks shared by
// every AdaptivePow searcher: the Keccak-f[800] permutation, FNV1a,
// the KISS99 RNG and the random-op table. CPU and GPU implementations
// must agree on every value these functions produce.
package primitives

// StateWords is the width of the Keccak-f[800] state in 32-bit words.
const StateWords = 25

// roundConstants are the 22 round constants for Keccak-f[800].
var roundConstants = [22]uint32{
	0x00000001, 0x00008082, 0x0000808a, 0x80008000,
	0x0000808b, 0x80000001, 0x80008081, 0x00008009,
	0x0000008a, 0x00000088, 0x80008009, 0x8000000a,
	0x8000808b, 0x0000008b, 0x00008089, 0x00008003,
	0x00008002, 0x00000080, 0x0000800a, 0x8000000a,
	0x80008081, 0x00008080,
}

// rhoOffsets[i] is the left-rotation amount applied at step i of the
// rho/pi sweep, ((i+1)*(i+2)/2) mod 32 for i = 0..23.
var rhoOffsets = func() [24]uint32 {
	var offs [24]uint32
	for i := 0; i < 24; i++ {
		offs[i] = uint32(((i + 1) * (i + 2) / 2) % 32)
	}
	return offs
}()

// KeccakF800 applies the 22-round Keccak-f[800] permutation in place to
// a 25-word state.
func KeccakF800(state *[StateWords]uint32) {
	for round := 0; round < 22; round++ {
		keccakF800Round(state, roundConstants[round])
	}
}

func keccakF800Round(state *[StateWords]uint32, rc uint32) {
	// theta: column parity and fold-in.
	var c [5]uint32
	for x := 0; x < 5; x++ {
		c[x] = state[x] ^ state[x+5] ^ state[x+10] ^ state[x+15] ^ state[x+20]
	}
	var d [5]uint32
	for x := 0; x < 5; x++ {
		d[x] = c[(x+4)%5] ^ ROTL32(c[(x+1)%5], 1)
	}
	for x := 0; x < 5; x++ {
		for y := 0; y < 5; y++ {
			state[x+5*y] ^= d[x]
		}
	}

	// rho + pi: rotate state[(i+1) mod 25] left by rhoOffsets[i] while
	// cyclically shifting the permuted lane through positions, i=0..23.
	x, y := 1, 0
	current := state[x+5*y]
	for i := 0; i < 24; i++ {
		x, y = y, (2*x+3*y)%5
		idx := x + 5*y
		current, state[idx] = state[idx], ROTL32(current, rhoOffsets[i])
	}

	// chi: per 5-word row, s_i ^ (^s_{i+1} & s_{i+2}).
	for row := 0; row < 5; row++ {
		base := 5 * row
		var r [5]uint32
		for x := 0; x < 5; x++ {
			r[x] = state[base+x]
		}
		for x := 0; x < 5; x++ {
			state[base+x] = r[x] ^ ((^r[(x+1)%5]) & r[(x+2)%5])
		}
	}

	// iota: XOR state[0] with the round constant.
	state[0] ^= rc
}
