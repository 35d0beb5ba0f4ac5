// sim/rng.go

package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// EnsembleKey uniquely identifies a reproducible ensemble. Two ensembles
// with the same EnsembleKey and identical configuration MUST produce
// identical results.
type EnsembleKey int64

// NewEnsembleKey creates an EnsembleKey from a seed value.
func NewEnsembleKey(seed int64) EnsembleKey {
	return EnsembleKey(seed)
}

// RunLabel returns the canonical label for run n of an ensemble.
func RunLabel(n int) string {
	return fmt.Sprintf("run_%d", n)
}

// PartitionedRNG provides deterministic, isolated RNG instances per ensemble
// run. Each run's seed is derived as masterSeed XOR fnv1a64(label), so runs
// are independent of one another and of the number of workers executing
// them.
//
// Thread-safety: NOT thread-safe. Derive all run RNGs before fanning out to
// worker goroutines.
type PartitionedRNG struct {
	key  EnsembleKey
	runs map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from an EnsembleKey.
func NewPartitionedRNG(key EnsembleKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:  key,
		runs: make(map[string]*rand.Rand),
	}
}

// ForRun returns a deterministically-seeded RNG for the labeled run. The
// same label always returns the same *rand.Rand instance (cached). Never
// returns nil.
func (p *PartitionedRNG) ForRun(label string) *rand.Rand {
	if rng, ok := p.runs[label]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(int64(p.key) ^ fnv1a64(label)))
	p.runs[label] = rng
	return rng
}

// Key returns the EnsembleKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() EnsembleKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
