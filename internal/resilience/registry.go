package resilience

import "sync"

// Registry holds one breaker per named dependency, shared process-wide so
// every caller sees the same failure accounting.
type Registry struct {
	mu       sync.Mutex
	cfg      Config
	opts     []BreakerOption
	breakers map[string]*Breaker
}

func NewRegistry(cfg Config, opts ...BreakerOption) *Registry {
	return &Registry{
		cfg:      cfg,
		opts:     opts,
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for name, creating it on first use.
func (r *Registry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[name]
	if !ok {
		b = NewBreaker(name, r.cfg, r.opts...)
		r.breakers[name] = b
	}
	return b
}

// Snapshots returns the current view of every registered breaker.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Snapshot, 0, len(r.breakers))
	for _, b := range r.breakers {
		out = append(out, b.Snapshot())
	}
	return out
}
