package worldgraph

import (
	"sort"
	"strings"
)

type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3) Array() [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

// Node is one transform in the engine-owned object hierarchy.
// Handles are only valid until the next scene activation; the graph is
// rebuilt on every load and anything cached across it is dangling.
type Node struct {
	Name string
	Tag  string

	Pos Vec3
	Vel Vec3

	parent     *Node
	children   []*Node
	components map[string]any
}

func NewNode(name string) *Node {
	return &Node{Name: name, components: map[string]any{}}
}

func (n *Node) Parent() *Node     { return n.parent }
func (n *Node) Children() []*Node { return n.children }

func (n *Node) AddChild(c *Node) *Node {
	c.parent = n
	n.children = append(n.children, c)
	return c
}

// Root walks up to the top of the owning hierarchy.
func (n *Node) Root() *Node {
	r := n
	for r.parent != nil {
		r = r.parent
	}
	return r
}

func (n *Node) SetComponent(typeName string, c any) {
	if n.components == nil {
		n.components = map[string]any{}
	}
	n.components[typeName] = c
}

func (n *Node) Component(typeName string) (any, bool) {
	c, ok := n.components[typeName]
	return c, ok
}

// ComponentNames returns the attached component type names in sorted order,
// so callers that scan components behave deterministically.
func (n *Node) ComponentNames() []string {
	names := make([]string, 0, len(n.components))
	for name := range n.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Descendants returns the node and everything below it, depth-first.
func (n *Node) Descendants() []*Node {
	out := []*Node{n}
	for _, c := range n.children {
		out = append(out, c.Descendants()...)
	}
	return out
}

func (n *Node) ZeroVelocity() { n.Vel = Vec3{} }

// Collider is an axis-aligned slab used by the downward ray cast. Trigger
// volumes are overlap sensors, never standable ground.
type Collider struct {
	MinX, MaxX float64
	MinZ, MaxZ float64
	TopY       float64
	Trigger    bool
}

func (c Collider) contains(x, z float64) bool {
	return x >= c.MinX && x <= c.MaxX && z >= c.MinZ && z <= c.MaxZ
}

// Query is the capability surface the travel core consumes. It is the
// read-only view of a live, externally-owned world graph; implementations
// may panic mid-teardown and callers are expected to absorb that.
type Query interface {
	// Transforms enumerates every live transform, in no guaranteed order.
	Transforms() []*Node
	// NodesWithComponent returns live nodes carrying the named component type.
	NodesWithComponent(typeName string) []*Node
	// FindTag returns some node carrying the engine tag, or nil.
	FindTag(tag string) *Node
	// SceneRoots returns the root objects of the active scene.
	SceneRoots() []*Node
	// ActiveCamera returns the rendering camera's node, or nil.
	ActiveCamera() *Node
	// RayCastDown casts straight down from the given point, up to maxDist,
	// ignoring trigger colliders. Returns the surface height on a hit.
	RayCastDown(from Vec3, maxDist float64) (hitY float64, ok bool)
}

// Graph is the in-process world graph. A single goroutine owns mutation;
// the travel flow only reads it between scene loads.
type Graph struct {
	ActiveSceneID string

	roots     []*Node
	camera    *Node
	colliders []Collider

	// tearingDown makes every query panic, imitating an engine whose world
	// is being destroyed under the caller.
	tearingDown bool
}

func NewGraph(sceneID string) *Graph {
	return &Graph{ActiveSceneID: sceneID}
}

func (g *Graph) AddRoot(n *Node) *Node {
	g.roots = append(g.roots, n)
	return n
}

func (g *Graph) SetCamera(n *Node)      { g.camera = n }
func (g *Graph) AddCollider(c Collider) { g.colliders = append(g.colliders, c) }
func (g *Graph) SetTearingDown(v bool)  { g.tearingDown = v }

// Clear drops every root, camera and collider. Existing *Node handles keep
// pointing at the dead hierarchy; this matches engine scene unload.
func (g *Graph) Clear() {
	g.roots = nil
	g.camera = nil
	g.colliders = nil
}

func (g *Graph) guard() {
	if g.tearingDown {
		panic("worldgraph: query during scene teardown")
	}
}

func (g *Graph) Transforms() []*Node {
	g.guard()
	var out []*Node
	for _, r := range g.roots {
		out = append(out, r.Descendants()...)
	}
	return out
}

func (g *Graph) NodesWithComponent(typeName string) []*Node {
	g.guard()
	var out []*Node
	for _, n := range g.Transforms() {
		if _, ok := n.Component(typeName); ok {
			out = append(out, n)
		}
	}
	return out
}

func (g *Graph) FindTag(tag string) *Node {
	g.guard()
	for _, n := range g.Transforms() {
		if n.Tag == tag {
			return n
		}
	}
	return nil
}

func (g *Graph) SceneRoots() []*Node {
	g.guard()
	out := make([]*Node, len(g.roots))
	copy(out, g.roots)
	return out
}

func (g *Graph) ActiveCamera() *Node {
	g.guard()
	return g.camera
}

func (g *Graph) RayCastDown(from Vec3, maxDist float64) (float64, bool) {
	g.guard()
	best := 0.0
	found := false
	for _, c := range g.colliders {
		if c.Trigger || !c.contains(from.X, from.Z) {
			continue
		}
		if c.TopY > from.Y || from.Y-c.TopY > maxDist {
			continue
		}
		if !found || c.TopY > best {
			best = c.TopY
			found = true
		}
	}
	return best, found
}

// FindByName returns the first transform whose name matches exactly.
// Test and bootstrap helper; the travel core never uses exact lookup.
func (g *Graph) FindByName(name string) *Node {
	for _, n := range g.Transforms() {
		if strings.EqualFold(n.Name, name) {
			return n
		}
	}
	return nil
}
