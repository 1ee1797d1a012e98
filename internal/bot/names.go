package bot

import (
	"math/rand/v2"
	"slices"
	"sync"
)

// NamePool hands out random display names without repeats. Names go back to
// the pool with Release.
type NamePool struct {
	mu    sync.Mutex
	names []string
	rng   *rand.Rand
}

// NewNamePool creates a pool over names
func NewNamePool(names []string, rng *rand.Rand) *NamePool {
	return &NamePool{names: slices.Clone(names), rng: rng}
}

// Take removes and returns a random name, or fallback when the pool is empty
func (p *NamePool) Take(fallback string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.names) == 0 {
		return fallback
	}
	i := p.rng.IntN(len(p.names))
	name := p.names[i]
	p.names = slices.Delete(p.names, i, i+1)
	return name
}

// Release returns a name to the pool
func (p *NamePool) Release(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !slices.Contains(p.names, name) {
		p.names = append(p.names, name)
	}
}

// Len returns the number of names left
func (p *NamePool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.names)
}
