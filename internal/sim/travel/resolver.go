package travel

import (
	"strings"

	"waygate.ai/internal/sim/worldgraph"
)

// ResolveConfig names the heuristics used to find the player in a live
// graph. All matching is best-effort; the graph is externally owned and can
// be torn down under us at any point.
type ResolveConfig struct {
	// NamePrefixes is the player naming convention, tried first.
	NamePrefixes []string
	// Keyword is the looser contains-match used against scene roots.
	Keyword string
	// Tag is the engine tag conventionally carried by the player.
	Tag string
	// PlayerComponents are component type names that only the controllable
	// character carries.
	PlayerComponents []string
}

// Resolution is a transient handle plus the name of the strategy that found
// it. Never cache the node across a scene load.
type Resolution struct {
	Node     *worldgraph.Node
	Strategy string
}

type Resolver struct {
	q      worldgraph.Query
	cfg    ResolveConfig
	events EventSink
}

func NewResolver(q worldgraph.Query, cfg ResolveConfig, events EventSink) *Resolver {
	return &Resolver{q: q, cfg: cfg, events: events}
}

// ResolvePlayer runs the strategy chain in order and returns the first hit.
// Strategies are independent; there is no scoring or merging. A strategy
// that panics (engine mid-teardown) counts as no match.
func (r *Resolver) ResolvePlayer() (Resolution, bool) {
	strategies := []struct {
		name string
		fn   func() *worldgraph.Node
	}{
		{"name_prefix", r.byNamePrefix},
		{"component", r.byComponent},
		{"tag", r.byTag},
		{"scene_root_keyword", r.bySceneRootKeyword},
		{"camera", r.byCamera},
	}
	for _, s := range strategies {
		n := safeScan(s.fn)
		if n == nil {
			continue
		}
		emit(r.events, ResolveEvent{Event: "resolve", Strategy: s.name, Found: true, Node: n.Name})
		return Resolution{Node: n, Strategy: s.name}, true
	}
	emit(r.events, ResolveEvent{Event: "resolve", Found: false})
	return Resolution{}, false
}

func (r *Resolver) byNamePrefix() *worldgraph.Node {
	for _, n := range r.q.Transforms() {
		for _, p := range r.cfg.NamePrefixes {
			if strings.HasPrefix(n.Name, p) {
				return n.Root()
			}
		}
	}
	return nil
}

func (r *Resolver) byComponent() *worldgraph.Node {
	for _, typeName := range r.cfg.PlayerComponents {
		if nodes := r.q.NodesWithComponent(typeName); len(nodes) > 0 {
			return nodes[0].Root()
		}
	}
	return nil
}

func (r *Resolver) byTag() *worldgraph.Node {
	if r.cfg.Tag == "" {
		return nil
	}
	if n := r.q.FindTag(r.cfg.Tag); n != nil {
		return n.Root()
	}
	return nil
}

func (r *Resolver) bySceneRootKeyword() *worldgraph.Node {
	kw := strings.ToLower(r.cfg.Keyword)
	if kw == "" {
		return nil
	}
	for _, root := range r.q.SceneRoots() {
		for _, d := range root.Descendants() {
			if strings.Contains(strings.ToLower(d.Name), kw) {
				return d.Root()
			}
		}
	}
	return nil
}

// byCamera assumes a camera rigidly attached to the player. Degraded but
// non-nil beats nil.
func (r *Resolver) byCamera() *worldgraph.Node {
	if cam := r.q.ActiveCamera(); cam != nil {
		return cam.Root()
	}
	return nil
}

// ResolveCharacter narrows a coarse root down to the controllable
// character. The root found by name can be a container (the player's house,
// a vehicle); moving that instead of the character is the classic failure
// this second phase exists to avoid. Falls back to the root unchanged.
func (r *Resolver) ResolveCharacter(root *worldgraph.Node) *worldgraph.Node {
	if root == nil {
		return nil
	}
	n := safeScan(func() *worldgraph.Node {
		desc := root.Descendants()
		for _, d := range desc {
			for _, p := range r.cfg.NamePrefixes {
				if strings.HasPrefix(d.Name, p) {
					return d
				}
			}
		}
		for _, d := range desc {
			for _, typeName := range r.cfg.PlayerComponents {
				if _, ok := d.Component(typeName); ok {
					return d
				}
			}
		}
		return nil
	})
	if n == nil {
		return root
	}
	return n
}

// safeScan absorbs panics from the engine-owned graph and turns them into
// "no match".
func safeScan(fn func() *worldgraph.Node) (n *worldgraph.Node) {
	defer func() {
		if recover() != nil {
			n = nil
		}
	}()
	return fn()
}
