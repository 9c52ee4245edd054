// Package scenehost is the in-process implementation of the engine's
// asynchronous scene loading. Activation swaps the world graph population
// wholesale: the previous scene's hierarchy dies, persistent roots (the
// player rig) are re-attached, and every handle held across the swap is
// dangling. That teardown-before-build ordering is the whole point of
// routing big transitions through a small staging scene.
package scenehost

import (
	"fmt"
	"log"
	"sync"
	"time"

	"waygate.ai/internal/sim/travel"
	"waygate.ai/internal/sim/worldgraph"
)

// SceneDef declares one loadable scene.
type SceneDef struct {
	ID string
	// Duration is how long the asynchronous load takes before the handle
	// reports ready to activate.
	Duration time.Duration
	// Build populates the graph on activation. May be nil (empty scene,
	// e.g. the low-memory staging scene).
	Build func(g *worldgraph.Graph)
}

type Host struct {
	mu sync.Mutex

	graph  *worldgraph.Graph
	scenes map[string]SceneDef
	log    *log.Logger

	// persistent roots survive scene swaps, like an engine's
	// keep-across-loads object set.
	persistent []*worldgraph.Node
	camera     *worldgraph.Node

	// Fault injection for tests and drills.
	failBegin    map[string]bool
	stallReady   map[string]bool
	failActivate map[string]bool
}

func New(g *worldgraph.Graph, logger *log.Logger) *Host {
	return &Host{
		graph:        g,
		scenes:       map[string]SceneDef{},
		log:          logger,
		failBegin:    map[string]bool{},
		stallReady:   map[string]bool{},
		failActivate: map[string]bool{},
	}
}

func (h *Host) Register(def SceneDef) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scenes[def.ID] = def
}

// KeepAcrossLoads marks a root as surviving scene swaps. The node is
// re-attached to the fresh graph after every activation.
func (h *Host) KeepAcrossLoads(n *worldgraph.Node) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.persistent = append(h.persistent, n)
}

// KeepCamera marks the camera node surviving swaps.
func (h *Host) KeepCamera(n *worldgraph.Node) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.camera = n
}

func (h *Host) ActiveScene() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.graph.ActiveSceneID
}

func (h *Host) FailBegin(sceneID string, v bool)    { h.setFault(h.failBegin, sceneID, v) }
func (h *Host) StallReady(sceneID string, v bool)   { h.setFault(h.stallReady, sceneID, v) }
func (h *Host) FailActivate(sceneID string, v bool) { h.setFault(h.failActivate, sceneID, v) }

func (h *Host) setFault(m map[string]bool, sceneID string, v bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m[sceneID] = v
}

// BeginLoad starts an asynchronous load. The handle parks at progress 0.9
// until ready, engine-style; activation accounts for the last stretch.
func (h *Host) BeginLoad(sceneID string) (travel.LoadHandle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	def, ok := h.scenes[sceneID]
	if !ok {
		return nil, fmt.Errorf("scenehost: unknown scene %q", sceneID)
	}
	if h.failBegin[sceneID] {
		return nil, fmt.Errorf("scenehost: load of %q refused", sceneID)
	}
	if h.log != nil {
		h.log.Printf("scenehost: begin load %q", sceneID)
	}
	return &load{host: h, def: def, start: time.Now()}, nil
}

type load struct {
	host  *Host
	def   SceneDef
	start time.Time
	done  bool
}

func (l *load) Progress() float64 {
	if l.ReadyToActivate() {
		return 0.9
	}
	if l.def.Duration <= 0 {
		return 0.9
	}
	p := float64(time.Since(l.start)) / float64(l.def.Duration) * 0.9
	if p > 0.9 {
		p = 0.9
	}
	return p
}

func (l *load) ReadyToActivate() bool {
	l.host.mu.Lock()
	stalled := l.host.stallReady[l.def.ID]
	l.host.mu.Unlock()
	if stalled {
		return false
	}
	return time.Since(l.start) >= l.def.Duration
}

// Activate tears the current scene down and builds the new one. Old
// handles are left dangling on purpose; queries against the graph panic
// for the duration of the swap.
func (l *load) Activate() error {
	h := l.host
	h.mu.Lock()
	defer h.mu.Unlock()
	if l.done {
		return fmt.Errorf("scenehost: scene %q already activated", l.def.ID)
	}
	if h.failActivate[l.def.ID] {
		return fmt.Errorf("scenehost: activate of %q refused", l.def.ID)
	}
	l.done = true

	g := h.graph
	g.SetTearingDown(true)
	g.Clear()
	g.ActiveSceneID = l.def.ID
	if l.def.Build != nil {
		l.def.Build(g)
	}
	for _, n := range h.persistent {
		g.AddRoot(n)
	}
	if h.camera != nil {
		g.SetCamera(h.camera)
	}
	g.SetTearingDown(false)
	if h.log != nil {
		h.log.Printf("scenehost: activated %q", l.def.ID)
	}
	return nil
}
