package testutil

import (
	"math/rand/v2"
	"sync"
)

// SeededRand returns a PCG-backed generator with a fixed seed.
func SeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// ScriptedRand replays a fixed list of choices. Each value is reduced modulo
// the requested bound; after the script runs out it returns 0.
type ScriptedRand struct {
	mu     sync.Mutex
	script []int
	idx    int
}

// NewScriptedRand creates a ScriptedRand that returns values in order.
func NewScriptedRand(values ...int) *ScriptedRand {
	return &ScriptedRand{script: values}
}

// IntN returns the next scripted value modulo n.
func (r *ScriptedRand) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.idx >= len(r.script) {
		return 0
	}
	v := r.script[r.idx] % n
	r.idx++
	return v
}

// Used returns how many scripted values have been consumed.
func (r *ScriptedRand) Used() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.idx
}
