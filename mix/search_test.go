package mix

import (
	"testing"

	"github.com/adaptivepow/core/dataset"
)

func testDag(t *testing.T) *dataset.Dag {
	t.Helper()
	var seed [32]byte
	for i := range seed {
		seed[i] = byte(i)
	}
	cache := dataset.BuildCache(seed, 8)
	return dataset.BuildDAG(cache, 32)
}

func TestSearchIsPure(t *testing.T) {
	dag := testDag(t)
	var header [HeaderWords]uint32
	header[16] = 0x12345678
	header[17] = 0x1d00ffff

	a, _ := Search(header, 42, dag, 0)
	b, _ := Search(header, 42, dag, ^uint64(0))
	if a != b {
		t.Fatalf("hash depends on target: %#x vs %#x", a, b)
	}
	c, _ := Search(header, 42, dag, 0)
	if a != c {
		t.Fatalf("hash not deterministic: %#x vs %#x", a, c)
	}
}

func TestSearchMaxTargetAcceptsEverything(t *testing.T) {
	dag := testDag(t)
	var header [HeaderWords]uint32
	if _, found := Search(header, 0, dag, ^uint64(0)); !found {
		t.Fatal("nonce 0 must pass the maximum target")
	}
}

func TestSearchZeroTargetAcceptsNothing(t *testing.T) {
	dag := testDag(t)
	var header [HeaderWords]uint32
	for nonce := uint64(0); nonce < 1000; nonce++ {
		if _, found := Search(header, nonce, dag, 0); found {
			t.Fatalf("nonce %d passed the zero target", nonce)
		}
	}
}

func TestSearchNonceChangesHash(t *testing.T) {
	dag := testDag(t)
	var header [HeaderWords]uint32
	a, _ := Search(header, 0, dag, 0)
	b, _ := Search(header, 1, dag, 0)
	if a == b {
		t.Fatal("adjacent nonces produced identical hashes")
	}
}

func TestSearchHeaderWord19IsOverwritten(t *testing.T) {
	dag := testDag(t)
	var a, b [HeaderWords]uint32
	b[19] = 0xdeadbeef
	// Word 19 is replaced by the nonce's low half before the initial
	// permutation, so caller-supplied data there never reaches the hash.
	ha, _ := Search(a, 7, dag, 0)
	hb, _ := Search(b, 7, dag, 0)
	if ha != hb {
		t.Fatalf("header word 19 leaked into the hash: %#x vs %#x", ha, hb)
	}

	a[18] = 1
	hc, _ := Search(a, 7, dag, 0)
	if hc == ha {
		t.Fatal("header word 18 must still contribute to the hash")
	}
}

func TestSearchAgainstLazyDagMatches(t *testing.T) {
	var seed [32]byte
	for i := range seed {
		seed[i] = byte(i)
	}
	cache := dataset.BuildCache(seed, 8)
	const nDag = 32
	dag := dataset.BuildDAG(cache, nDag)
	lazy := dataset.NewLazyDag(cache, nDag)

	var header [HeaderWords]uint32
	header[16] = 0x12345678
	for nonce := uint64(0); nonce < 64; nonce++ {
		full, _ := Search(header, nonce, dag, 0)
		ondemand, _ := Search(header, nonce, lazy, 0)
		if full != ondemand {
			t.Fatalf("nonce %d: materialized DAG hash %#x != cache-backed hash %#x", nonce, full, ondemand)
		}
	}
}
