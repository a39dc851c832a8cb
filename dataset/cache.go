package dataset

import "github.com/adaptivepow/core/primitives"

// BuildCache derives the n-item cache for an epoch's seed, strictly in
// order: item 0 depends on the seed, and item i>0 depends on item i-1.
// This is the exposed equivalent of the generate_cache kernel entry
// point for a single-threaded (CPU or single work-item) dispatch.
func BuildCache(seed [32]byte, n uint64) *Cache {
	c := NewCache(n)
	if n == 0 {
		return c
	}

	seedWords := bytesToWordsLE(seed[:])

	first := c.Item(0)
	for k := 0; k < 8; k++ {
		first[k] = seedWords[k]
		first[k+8] = seedWords[k] ^ 0xFFFFFFFF
	}

	for i := uint64(1); i < n; i++ {
		prev := c.Item(i - 1)
		cur := c.Item(i)
		cacheStep(prev, cur)
	}
	return c
}

// cacheStep expands a 16-word block into a 25-word Keccak-f[800] state
// (the remaining 9 words zeroed), permutes it, and writes the first 16
// words of the result into out.
func cacheStep(block []uint32, out []uint32) {
	var state [primitives.StateWords]uint32
	copy(state[:16], block)
	primitives.KeccakF800(&state)
	copy(out, state[:16])
}
