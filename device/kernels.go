package device

// These kernel sources implement the three AdaptivePow entry points
// (generate_cache, generate_dag, search) against the Keccak-f[800] /
// FNV1a / KISS99 pipeline, the OpenCL-C equivalent of the primitives,
// dataset and mix packages: plain data-parallel kernels taking
// read-only input buffers and writing a result buffer, one work-item
// per dataset index or per nonce. 64-bit scalars (nonce, target) are
// passed as lo/hi uint pairs and recomposed in-kernel.

const primitivesSource = `
inline uint rotl32(uint x, uint n) {
	n &= 31u;
	return n == 0u ? x : (x << n) | (x >> (32u - n));
}

inline uint rotr32(uint x, uint n) {
	n &= 31u;
	return n == 0u ? x : (x >> n) | (x << (32u - n));
}

__constant uint KECCAK_RC[22] = {
	0x00000001u, 0x00008082u, 0x0000808au, 0x80008000u,
	0x0000808bu, 0x80000001u, 0x80008081u, 0x00008009u,
	0x0000008au, 0x00000088u, 0x80008009u, 0x8000000au,
	0x8000808bu, 0x0000008bu, 0x00008089u, 0x00008003u,
	0x00008002u, 0x00000080u, 0x0000800au, 0x8000000au,
	0x80008081u, 0x00008080u
};

__constant uint KECCAK_RHO[24] = {
	1u, 3u, 6u, 10u, 15u, 21u, 28u, 36u, 45u, 55u, 2u, 14u,
	27u, 41u, 56u, 8u, 25u, 43u, 62u, 18u, 39u, 61u, 20u, 44u
};

inline void keccak_f800(uint *s) {
	for (int round = 0; round < 22; round++) {
		uint c[5];
		for (int x = 0; x < 5; x++)
			c[x] = s[x] ^ s[x+5] ^ s[x+10] ^ s[x+15] ^ s[x+20];
		for (int x = 0; x < 5; x++) {
			uint d = c[(x+4)%5] ^ rotl32(c[(x+1)%5], 1u);
			for (int y = 0; y < 25; y += 5)
				s[x+y] ^= d;
		}

		uint current = s[1];
		int x = 1, y = 0;
		for (int i = 0; i < 24; i++) {
			int nx = y;
			int ny = (2*x + 3*y) % 5;
			x = nx; y = ny;
			int idx = x + 5*y;
			uint tmp = s[idx];
			s[idx] = rotl32(current, KECCAK_RHO[i]);
			current = tmp;
		}

		for (int yy = 0; yy < 25; yy += 5) {
			uint row[5];
			for (int x = 0; x < 5; x++) row[x] = s[yy+x];
			for (int x = 0; x < 5; x++)
				s[yy+x] = row[x] ^ ((~row[(x+1)%5]) & row[(x+2)%5]);
		}

		s[0] ^= KECCAK_RC[round];
	}
}

inline uint fnv1a(uint a, uint b) { return (a ^ b) * 0x01000193u; }

typedef struct { uint z, w, jsr, jcong; } kiss99_t;

inline uint kiss99_next(kiss99_t *k) {
	k->z = 36969u * (k->z & 65535u) + (k->z >> 16);
	k->w = 18000u * (k->w & 65535u) + (k->w >> 16);
	uint mwc = (k->z << 16) + k->w;
	k->jsr ^= k->jsr << 17;
	k->jsr ^= k->jsr >> 13;
	k->jsr ^= k->jsr << 5;
	k->jcong = 69069u * k->jcong + 1234567u;
	return (mwc ^ k->jcong) + k->jsr;
}

inline uint random_op(uint a, uint b, uint op) {
	switch (op % 11u) {
	case 0: return a + b;
	case 1: return a * b;
	case 2: return a - b;
	case 3: return a ^ b;
	case 4: return rotl32(a, b & 31u);
	case 5: return rotr32(a, b & 31u);
	case 6: return a & b;
	case 7: return a | b;
	case 8: return clz(a) + clz(b);
	case 9: return popcount(a) + popcount(b);
	default: {
		uint shift = b & 15u;
		return (a >> shift) | (b << (16u - shift));
	}
	}
}
`

const generateCacheKernelSource = `
// generate_cache fills one 16-word cache item from its predecessor.
// Item 0 is seeded on the host; the chain runs in a single work-item,
// since each item depends on the last.
__kernel void generate_cache(__global uint *cache, const uint nItems) {
	for (uint i = 1; i < nItems; i++) {
		uint state[25];
		for (int k = 0; k < 16; k++) state[k] = cache[(i-1)*16 + k];
		for (int k = 16; k < 25; k++) state[k] = 0u;
		keccak_f800(state);
		for (int k = 0; k < 16; k++) cache[i*16 + k] = state[k];
	}
}
`

const generateDAGKernelSource = `
// generate_dag derives one DAG item per work-item from the cache. The
// work-item's global id is its absolute DAG index: the host dispatches
// the full index range in chunks via the global work offset, so the
// same kernel serves every chunk without re-basing the output.
__kernel void generate_dag(__global const uint *cache, const uint nCache,
                            __global uint *dag) {
	uint i = (uint)get_global_id(0);
	uint mix[16];
	uint base = (i % nCache) * 16u;
	for (int k = 0; k < 16; k++) mix[k] = cache[base + k];
	mix[0] ^= i;

	for (uint round = 0; round < 256u; round++) {
		uint parent = fnv1a(i ^ round, mix[0]) % nCache;
		uint pbase = parent * 16u;
		for (int k = 0; k < 16; k++)
			mix[k] = fnv1a(mix[k], cache[pbase + k]);
	}
	uint obase = i * 16u;
	for (int k = 0; k < 16; k++) dag[obase + k] = mix[k];
}
`

const searchKernelSource = `
// search runs the full mix pipeline for one nonce per work-item and
// reports candidates whose top 64 bits of hash pass target into a
// small atomic-counter-guarded result buffer, mirroring the host-side
// ResultBuffer's sampling bound.
__kernel void search(__global const uint *header,
                      const uint startNonceLo, const uint startNonceHi,
                      __global const uint *dag, const uint nDag,
                      const uint targetLo, const uint targetHi,
                      __global ulong *results, __global uint *resultCount,
                      const uint resultCap) {
	ulong startNonce = ((ulong)startNonceHi << 32) | (ulong)startNonceLo;
	ulong target = ((ulong)targetHi << 32) | (ulong)targetLo;
	ulong nonce = startNonce + get_global_id(0);

	uint state[25];
	for (int k = 0; k < 20; k++) state[k] = header[k];
	state[19] = (uint)(nonce);
	state[20] = (uint)(nonce >> 32);
	for (int k = 21; k < 25; k++) state[k] = 0u;
	keccak_f800(state);

	uint m[64];
	for (int k = 0; k < 64; k++) m[k] = state[k % 25];

	kiss99_t rng;
	rng.z = fnv1a(0x811c9dc5u, state[0]);
	rng.w = fnv1a(rng.z, state[1]);
	rng.jsr = fnv1a(rng.w, state[2]);
	rng.jcong = fnv1a(rng.jsr, state[3]);

	for (uint round = 0; round < 64u; round++) {
		uint dagIdx = fnv1a(round ^ m[round % 64u], m[(round+1) % 64u]) % nDag;
		uint dbase = dagIdx * 16u;
		for (int k = 0; k < 16; k++) m[k] = fnv1a(m[k], dag[dbase + k]);

		for (int op = 0; op < 16; op++) {
			uint s1 = kiss99_next(&rng) % 64u;
			uint s2 = kiss99_next(&rng) % 64u;
			uint d = kiss99_next(&rng) % 64u;
			uint opType = kiss99_next(&rng);
			m[d] = random_op(m[s1], m[s2], opType);
		}
	}

	for (int i = 0; i < 8; i++) {
		state[i] = m[i*8];
		for (int j = 1; j < 8; j++) state[i] = fnv1a(state[i], m[i*8+j]);
	}
	for (int i = 8; i < 25; i++) state[i] = 0u;
	keccak_f800(state);

	ulong hashHigh = ((ulong)state[0] << 32) | (ulong)state[1];
	if (hashHigh <= target) {
		uint slot = atomic_inc(resultCount);
		if (slot < resultCap) results[slot] = nonce;
	}
}
`

// programSource is the single translation unit handed to the OpenCL
// compiler: the shared primitives followed by the three entry points.
const programSource = primitivesSource + generateCacheKernelSource + generateDAGKernelSource + searchKernelSource
