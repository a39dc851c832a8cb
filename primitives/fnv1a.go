package primitives

// FNVOffset is the FNV1a offset basis used to seed the mix-search RNG.
const FNVOffset uint32 = 0x811c9dc5

const fnvPrime uint32 = 0x01000193

// FNV1a combines a and b the way every AdaptivePow dataset item and
// mix round does: (a ^ b) * 0x01000193, wrapping 32-bit.
func FNV1a(a, b uint32) uint32 {
	return (a ^ b) * fnvPrime
}
