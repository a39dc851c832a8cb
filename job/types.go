// Package job defines the data AdaptivePow exchanges with the rest of
// the miner: the 80-byte header layout, the mining job/result/stats
// types, and the n_bits -> target conversion. Everything here is a pure
// value type; parsing job descriptions off the wire is an external
// collaborator's concern.
package job

import (
	"fmt"

	"github.com/adaptivepow/core/mix"
)

// MaxJobIDLength is the longest accepted job_id string.
const MaxJobIDLength = 32

// MiningJob is one unit of work handed to a device context.
type MiningJob struct {
	JobID      string
	PrevHash   [32]byte
	MerkleRoot [32]byte
	NTime      uint32
	NBits      uint32
	Target     uint64
}

// Validate checks the structural constraints placed on a job before it
// is handed to a device context: a non-empty job_id within the length
// budget.
func (j MiningJob) Validate() error {
	if j.JobID == "" {
		return fmt.Errorf("job: empty job_id")
	}
	if len(j.JobID) > MaxJobIDLength {
		return fmt.Errorf("job: job_id %q exceeds %d bytes", j.JobID, MaxJobIDLength)
	}
	return nil
}

// MiningResult reports a single nonce as found (or not) for a job.
type MiningResult struct {
	JobID string
	Nonce uint64
	Found bool
}

// MinerStats summarizes a device context's running state.
type MinerStats struct {
	TotalHashes   uint64
	Accepted      uint64
	Rejected      uint64
	CurrentEpoch  uint32
	DagSize       uint64
	UptimeSeconds uint64
	Hashrate      float64
}

// Header builds the 20-word mining header for j, laying out the words
// the way the mix-search kernel expects: [0..8) previous-block hash,
// [8..16) merkle root, [16] time, [17] bits, [18..20) nonce low/high.
// The nonce slot is left zero. The kernel writes each work-item's nonce
// into state words 19 (low) and 20 (high), so word 18 is hashed as
// given here and word 19 is replaced.
func (j MiningJob) Header() [mix.HeaderWords]uint32 {
	var h [mix.HeaderWords]uint32
	for i := 0; i < 8; i++ {
		h[i] = beWordAt(j.PrevHash[:], i)
		h[i+8] = beWordAt(j.MerkleRoot[:], i)
	}
	h[16] = j.NTime
	h[17] = j.NBits
	h[18] = 0
	h[19] = 0
	return h
}

func beWordAt(b []byte, wordIndex int) uint32 {
	o := wordIndex * 4
	return uint32(b[o])<<24 | uint32(b[o+1])<<16 | uint32(b[o+2])<<8 | uint32(b[o+3])
}
