// Package dataset builds and holds the two memory-hard structures
// AdaptivePow mines against: the small seed-derived cache and the large
// DAG derived from it. Both are owned contiguous byte regions exposed as
// 16-word item views, generated once per epoch and read-only afterward.
package dataset

import "encoding/binary"

// WordsPerItem is the number of little-endian 32-bit words in one
// cache/DAG item (a 64-byte HashBytes block).
const WordsPerItem = 16

// Cache is the small, seed-derived dataset the DAG is built from. Item 0
// depends on the seed; item i>0 depends on item i-1. Cache is owned
// exclusively by the DAG builder for the duration of DAG generation and
// is not safe for concurrent mutation.
type Cache struct {
	words []uint32 // len = nItems * WordsPerItem
	items uint64
}

// NewCache allocates a cache able to hold n items, zero-initialized.
func NewCache(n uint64) *Cache {
	return &Cache{words: make([]uint32, n*WordsPerItem), items: n}
}

// NewCacheFromBytes builds a Cache from a flat little-endian byte
// slice, the shape a device readback (e.g. the OpenCL backend reading
// its cache buffer back to host memory) arrives in. len(b) must be a
// multiple of an item's byte width.
func NewCacheFromBytes(b []byte) *Cache {
	words := bytesToWordsLE(b)
	return &Cache{words: words, items: uint64(len(words)) / WordsPerItem}
}

// Items returns the number of items the cache holds.
func (c *Cache) Items() uint64 { return c.items }

// Item returns the 16-word slice backing item i. The returned slice
// aliases the cache's storage; callers must not retain it past the
// cache's lifetime.
func (c *Cache) Item(i uint64) []uint32 {
	off := i * WordsPerItem
	return c.words[off : off+WordsPerItem]
}

// Dag is the large, read-only dataset searched by every nonce in an
// epoch. Its lifetime equals the epoch; it is replaced atomically on
// epoch change.
type Dag struct {
	words []uint32 // len = nItems * WordsPerItem
	items uint64
}

// NewDag allocates a DAG able to hold n items, zero-initialized.
func NewDag(n uint64) *Dag {
	return &Dag{words: make([]uint32, n*WordsPerItem), items: n}
}

// NewDagFromBytes builds a Dag from a flat little-endian byte slice,
// the shape a device readback arrives in. len(b) must be a multiple of
// an item's byte width.
func NewDagFromBytes(b []byte) *Dag {
	words := bytesToWordsLE(b)
	return &Dag{words: words, items: uint64(len(words)) / WordsPerItem}
}

// Items returns the number of items the DAG holds.
func (d *Dag) Items() uint64 { return d.items }

// Item returns the 16-word slice backing item i. The returned slice
// aliases the DAG's storage; callers must not retain it past the DAG's
// lifetime.
func (d *Dag) Item(i uint64) []uint32 {
	off := i * WordsPerItem
	return d.words[off : off+WordsPerItem]
}

// Bytes exposes the DAG's backing storage as a flat little-endian byte
// slice, the shape the GPU dispatch layer copies into a device buffer.
func (d *Dag) Bytes() []byte {
	return wordsToBytesLE(d.words)
}

// Bytes exposes the cache's backing storage as a flat little-endian byte
// slice, the shape the GPU dispatch layer copies into a device buffer.
func (c *Cache) Bytes() []byte {
	return wordsToBytesLE(c.words)
}

func wordsToBytesLE(words []uint32) []byte {
	out := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

// bytesToWordsLE decodes a little-endian byte slice into 32-bit words.
// len(b) must be a multiple of 4.
func bytesToWordsLE(b []byte) []uint32 {
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return words
}
