package destinations

import (
	"fmt"
	"log"
	"sync"

	"waygate.ai/internal/sim/worldgraph"
)

// Override is the persisted live state layered over a seed record: the
// visited flag and coordinates captured by a successful arrival.
type Override struct {
	Visited bool
	Pos     *worldgraph.Vec3
}

// Store persists overrides across restarts. Seed records themselves are
// config, never written back.
type Store interface {
	LoadOverrides() (map[string]Override, error)
	SaveOverride(name string, o Override) error
}

// Registry owns the merged destination view. Records are created at load
// time and only edited in place afterwards; nothing is deleted at runtime.
type Registry struct {
	mu    sync.Mutex
	order []string
	dests map[string]*Destination
	store Store
	log   *log.Logger
}

func NewRegistry(seed []Destination, store Store, logger *log.Logger) (*Registry, error) {
	r := &Registry{
		dests: map[string]*Destination{},
		store: store,
		log:   logger,
	}
	for _, d := range seed {
		if _, dup := r.dests[d.Name]; dup {
			return nil, fmt.Errorf("registry: duplicate destination %q", d.Name)
		}
		cp := d
		r.dests[d.Name] = &cp
		r.order = append(r.order, d.Name)
	}
	if store != nil {
		ovr, err := store.LoadOverrides()
		if err != nil {
			return nil, fmt.Errorf("registry: load overrides: %w", err)
		}
		for name, o := range ovr {
			d := r.dests[name]
			if d == nil {
				// Stale override for a record removed from the seed.
				if logger != nil {
					logger.Printf("registry: dropping override for unknown destination %q", name)
				}
				continue
			}
			d.Visited = d.Visited || o.Visited
			if d.Pos == nil && o.Pos != nil {
				p := *o.Pos
				d.Pos = &p
			}
		}
	}
	return r, nil
}

// Get returns a copy; callers never hold live registry state.
func (r *Registry) Get(name string) (Destination, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.dests[name]
	if d == nil {
		return Destination{}, false
	}
	return copyDest(d), true
}

// List returns destinations that are visited or enabled, in seed order.
// Non-actionable records are included; presentation is the caller's problem.
func (r *Registry) List() []Destination {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Destination
	for _, name := range r.order {
		d := r.dests[name]
		if !d.Visited && !d.Enabled {
			continue
		}
		out = append(out, copyDest(d))
	}
	return out
}

// MarkVisited flips the visited flag and captures arrival coordinates when
// the record previously had none (auto-discovery by successful travel).
func (r *Registry) MarkVisited(name string, pos *worldgraph.Vec3) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.dests[name]
	if d == nil {
		return fmt.Errorf("registry: unknown destination %q", name)
	}
	d.Visited = true
	if d.Pos == nil && pos != nil {
		p := *pos
		d.Pos = &p
	}
	if r.store == nil {
		return nil
	}
	o := Override{Visited: d.Visited}
	if d.Pos != nil {
		p := *d.Pos
		o.Pos = &p
	}
	if err := r.store.SaveOverride(name, o); err != nil {
		return fmt.Errorf("registry: save override %q: %w", name, err)
	}
	return nil
}

func copyDest(d *Destination) Destination {
	cp := *d
	if d.Pos != nil {
		p := *d.Pos
		cp.Pos = &p
	}
	if d.Price != nil {
		pr := *d.Price
		cp.Price = &pr
	}
	return cp
}
