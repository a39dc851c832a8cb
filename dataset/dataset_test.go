package dataset

import "testing"

func testSeed() [32]byte {
	var s [32]byte
	for i := range s {
		s[i] = byte(i)
	}
	return s
}

func TestBuildCacheDeterministic(t *testing.T) {
	seed := testSeed()
	const n = 64
	a := BuildCache(seed, n)
	b := BuildCache(seed, n)
	if string(a.Bytes()) != string(b.Bytes()) {
		t.Fatal("BuildCache is not deterministic for identical seeds")
	}
}

func TestBuildCacheItemZeroShape(t *testing.T) {
	seed := testSeed()
	c := BuildCache(seed, 4)
	seedWords := bytesToWordsLE(seed[:])
	item0 := c.Item(0)
	for k := 0; k < 8; k++ {
		if item0[k] != seedWords[k] {
			t.Fatalf("item0[%d] = %#x, want seed word %#x", k, item0[k], seedWords[k])
		}
		if item0[k+8] != seedWords[k]^0xFFFFFFFF {
			t.Fatalf("item0[%d] = %#x, want seed word XOR 0xFFFFFFFF", k+8, item0[k+8])
		}
	}
}

func TestBuildCacheChainsOnPredecessor(t *testing.T) {
	seed := testSeed()
	c := BuildCache(seed, 3)
	// Each item i>0 must be the permutation of item i-1, and adjacent
	// items must differ (the builder isn't just copying item 0 forward).
	for i := uint64(1); i < 3; i++ {
		want := make([]uint32, WordsPerItem)
		cacheStep(c.Item(i-1), want)
		if string(u32ToBytes(c.Item(i))) != string(u32ToBytes(want)) {
			t.Fatalf("cache item %d is not derived from item %d", i, i-1)
		}
	}
	if string(u32ToBytes(c.Item(0))) == string(u32ToBytes(c.Item(1))) {
		t.Fatal("cache items must not be identical across indices")
	}
	if string(u32ToBytes(c.Item(1))) == string(u32ToBytes(c.Item(2))) {
		t.Fatal("cache items must not be identical across indices")
	}
}

func u32ToBytes(words []uint32) []byte {
	out := make([]byte, 0, len(words)*4)
	for _, w := range words {
		out = append(out, byte(w), byte(w>>8), byte(w>>16), byte(w>>24))
	}
	return out
}

func TestBuildDAGDeterministic(t *testing.T) {
	seed := testSeed()
	cache := BuildCache(seed, 8)
	const nDag = 32
	a := BuildDAG(cache, nDag)
	b := BuildDAG(cache, nDag)
	if string(a.Bytes()) != string(b.Bytes()) {
		t.Fatal("BuildDAG is not deterministic for identical caches")
	}
}

func TestBuildDAGParallelMatchesSequential(t *testing.T) {
	seed := testSeed()
	cache := BuildCache(seed, 8)
	const nDag = 97 // deliberately not a multiple of common worker counts
	sequential := BuildDAG(cache, nDag)
	parallel := BuildDAGParallel(cache, nDag, 4)
	if string(sequential.Bytes()) != string(parallel.Bytes()) {
		t.Fatal("parallel DAG generation must be bit-identical to sequential generation")
	}
}

func TestBuildDAGRangeIsIdempotentOnSubrange(t *testing.T) {
	seed := testSeed()
	cache := BuildCache(seed, 8)
	const nDag = 16
	full := BuildDAG(cache, nDag)

	partial := NewDag(nDag)
	BuildDAGRange(cache, partial, 0, 8)
	BuildDAGRange(cache, partial, 8, nDag)
	if string(full.Bytes()) != string(partial.Bytes()) {
		t.Fatal("re-running generate_dag on a subrange must produce identical bytes")
	}
}
