package device

import (
	"context"
	"sort"
	"testing"

	"github.com/adaptivepow/core/batch"
	"github.com/adaptivepow/core/mix"
	"github.com/adaptivepow/core/verify"
)

func TestCPUReferenceGenerateDatasetAndSearch(t *testing.T) {
	b := NewCPUReference(nil, 2)
	if err := b.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	var seed [32]byte
	for i := range seed {
		seed[i] = byte(i)
	}
	dag, cache, err := b.GenerateDataset(context.Background(), 0, seed, 8, 16)
	if err != nil {
		t.Fatalf("GenerateDataset: %v", err)
	}
	if dag.Items() != 16 {
		t.Fatalf("dag.Items() = %d, want 16", dag.Items())
	}
	if cache.Items() != 8 {
		t.Fatalf("cache.Items() = %d, want 8", cache.Items())
	}

	var header [mix.HeaderWords]uint32
	results := batch.NewResultBuffer(batch.ResultCap)
	// Target is the maximum uint64, so every nonce in range must be
	// reported: this exercises the worker fan-out, not the math.
	if err := b.Search(context.Background(), header, 0, 32, ^uint64(0), results); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results.TotalReported() != 32 {
		t.Errorf("TotalReported() = %d, want 32", results.TotalReported())
	}
}

func TestCPUReferenceSearchBeforeDatasetFails(t *testing.T) {
	b := NewCPUReference(nil, 1)
	var header [mix.HeaderWords]uint32
	results := batch.NewResultBuffer(batch.ResultCap)
	if err := b.Search(context.Background(), header, 0, 1, ^uint64(0), results); err == nil {
		t.Error("Search before GenerateDataset must fail with DatasetNotReady")
	}
}

func TestCPUReferenceSearchMatchesVerifier(t *testing.T) {
	b := NewCPUReference(nil, 4)
	var seed [32]byte
	seed[0] = 0xa5
	dag, _, err := b.GenerateDataset(context.Background(), 0, seed, 8, 32)
	if err != nil {
		t.Fatalf("GenerateDataset: %v", err)
	}

	header := [mix.HeaderWords]uint32{0: 0x01010101, 8: 0x02020202, 16: 0x12345678, 17: 0x1d00ffff}
	// A mid-range target so the scan accepts roughly half the nonces:
	// enough hits to exercise the reporting path, enough misses to catch
	// a searcher that accepts everything.
	const target = uint64(1) << 63
	const count = 512

	results := batch.NewResultBuffer(count)
	if err := b.Search(context.Background(), header, 0, count, target, results); err != nil {
		t.Fatalf("Search: %v", err)
	}
	reported := append([]uint64(nil), results.Nonces()...)
	sort.Slice(reported, func(i, j int) bool { return reported[i] < reported[j] })

	var want []uint64
	for nonce := uint64(0); nonce < count; nonce++ {
		if verify.WithDag(header, nonce, target, dag) {
			want = append(want, nonce)
		}
	}

	if len(reported) != len(want) {
		t.Fatalf("searcher reported %d nonces, verifier accepts %d", len(reported), len(want))
	}
	for i := range want {
		if reported[i] != want[i] {
			t.Fatalf("accepted nonce sets differ at %d: searcher %d, verifier %d", i, reported[i], want[i])
		}
	}
}

func TestExcluded(t *testing.T) {
	cases := []struct {
		id       int
		list     []int
		excluded bool
	}{
		{1, nil, false},
		{2, []int{2}, true},
		{2, []int{3, 2}, true},
		{1, []int{2, 3}, false},
	}
	for _, c := range cases {
		if got := Excluded(c.id, c.list); got != c.excluded {
			t.Errorf("Excluded(%d, %v) = %v, want %v", c.id, c.list, got, c.excluded)
		}
	}
}
