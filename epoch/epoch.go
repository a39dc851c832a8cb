// Package epoch implements the time-bucketed dataset identifier that
// drives AdaptivePow's cache and DAG sizing, and the deterministic seed
// derived from it.
package epoch

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"
)

const (
	// Length is the number of seconds a single epoch covers (180 days).
	Length = 180 * 24 * 60 * 60

	// BaseDagSize is the DAG size at epoch 0, in bytes.
	BaseDagSize uint64 = 1 << 30

	// GrowthRate is the number of epochs between each DAG size doubling.
	GrowthRate uint32 = 4

	// MaxGrowthSteps caps the number of doublings applied to BaseDagSize.
	MaxGrowthSteps uint32 = 10

	// HashBytes is the size of one cache/DAG item, in bytes.
	HashBytes = 64

	// SeedSize is the length of a derived epoch seed, in bytes.
	SeedSize = 32
)

// Number returns the epoch index for a given timestamp and genesis time,
// both Unix seconds. Timestamps at or before genesis fall in epoch 0.
func Number(timestamp, genesisTime int64) uint32 {
	if timestamp <= genesisTime {
		return 0
	}
	return uint32((timestamp - genesisTime) / Length)
}

// growthSteps returns min(epoch/GrowthRate, MaxGrowthSteps).
func growthSteps(e uint32) uint32 {
	steps := e / GrowthRate
	if steps > MaxGrowthSteps {
		steps = MaxGrowthSteps
	}
	return steps
}

// DagSize returns the DAG size in bytes for the given epoch. It is
// always a multiple of HashBytes.
func DagSize(e uint32) uint64 {
	return BaseDagSize << growthSteps(e)
}

// CacheSize returns the cache size in bytes for the given epoch. It is
// always a multiple of HashBytes.
func CacheSize(e uint32) uint64 {
	return DagSize(e) / HashBytes
}

// DagItems returns the number of 64-byte items in the DAG for the given
// epoch.
func DagItems(e uint32) uint64 {
	return DagSize(e) / HashBytes
}

// CacheItems returns the number of 64-byte items in the cache for the
// given epoch.
func CacheItems(e uint32) uint64 {
	return CacheSize(e) / HashBytes
}

// Seed returns the deterministic 32-byte seed for an epoch: the
// Keccak-256 digest of the little-endian 32-bit epoch number, padded to
// 32 bytes before hashing. CPU verifiers and GPU searchers must agree on
// this value bit for bit.
func Seed(e uint32) [SeedSize]byte {
	var input [SeedSize]byte
	binary.LittleEndian.PutUint32(input[:4], e)

	h := sha3.NewLegacyKeccak256()
	h.Write(input[:])

	var out [SeedSize]byte
	copy(out[:], h.Sum(nil))
	return out
}
