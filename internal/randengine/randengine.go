// Package randengine wraps golang.org/x/exp/rand behind a small,
// thread-safe, seedable engine so every stochastic decision in the
// simulation (spawn probability, destination choice, per-vehicle
// aggression and IDM-parameter jitter) draws from one process-wide,
// reproducible source, as the spec's concurrency model requires.
package randengine

import (
	"sync"

	"golang.org/x/exp/rand"
)

// Engine is a seedable random source. The embedded *rand.Rand gives callers
// direct access to the full distribution surface (Float64, NormFloat64,
// Intn, ...); the mutex-guarded *Safe methods are for use from code paths
// that might run concurrently with the engine's owner (e.g. a renderer
// goroutine polling state between ticks).
type Engine struct {
	*rand.Rand
	mtx sync.Mutex
}

// New creates an engine seeded deterministically from seed.
func New(seed uint64) *Engine {
	return &Engine{Rand: rand.New(rand.NewSource(seed))}
}

// PTrue returns true with probability p (not safe for concurrent use).
func (e *Engine) PTrue(p float64) bool {
	return e.Float64() < p
}

// PTrueSafe is the mutex-guarded variant of PTrue.
func (e *Engine) PTrueSafe(p float64) bool {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.Float64() < p
}

// IntnSafe is the mutex-guarded variant of Intn.
func (e *Engine) IntnSafe(n int) int {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.Intn(n)
}

// Float64Safe is the mutex-guarded variant of Float64.
func (e *Engine) Float64Safe() float64 {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.Float64()
}

// Blend implements the per-vehicle IDM parameter sampling rule:
// lerp(safe, aggressive, aggression) plus uniform(-jitter, +jitter) noise,
// clamped to a minimum of 0.5 so no parameter collapses to zero or goes
// negative.
func (e *Engine) Blend(safe, aggressive, aggression, jitter float64) float64 {
	v := safe + (aggressive-safe)*aggression
	v += (e.Float64()*2 - 1) * jitter
	if v < 0.5 {
		v = 0.5
	}
	return v
}
