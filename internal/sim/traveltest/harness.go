// Package traveltest is a black-box harness for driving the travel stack
// through its exported APIs: a real graph, a real scene host, a memory-backed
// registry and an orchestrator wired the way cmd/server wires them. Tests
// stay outside the travel package and see only what callers see.
package traveltest

import (
	"sync"
	"testing"
	"time"

	"waygate.ai/internal/persistence/destdb"
	"waygate.ai/internal/sim/destinations"
	"waygate.ai/internal/sim/scenehost"
	"waygate.ai/internal/sim/travel"
	"waygate.ai/internal/sim/worldgraph"
)

const (
	StagingScene = "lowmem_staging"
	HarborScene  = "harbor_town"
	HarborName   = "Harbor Town"
	// Harbor ground sits at 1.0; arrivals should rest at 1.1.
	HarborGroundY = 1.0
)

type Options struct {
	Silver       int64
	Staged       bool
	LoadDuration time.Duration
	LoadTimeout  time.Duration
	Refund       bool
	// PlayerLost drops the player rig on every scene swap, so post-load
	// resolution finds nothing.
	PlayerLost bool
	// Seed overrides the default destination set.
	Seed []destinations.Destination
	// Overrides pre-populates the store, as if persisted by an earlier run.
	Overrides map[string]destinations.Override
}

type Harness struct {
	T        *testing.T
	Graph    *worldgraph.Graph
	Host     *scenehost.Host
	Loader   *CountingLoader
	Registry *destinations.Registry
	Store    *destdb.MemoryStore
	Orch     *travel.Orchestrator
	Player   *worldgraph.Node
	Wallet   *worldgraph.Wallet
	Events   *EventRecorder
}

func intp(v int64) *int64 { return &v }

func DefaultSeed() []destinations.Destination {
	return []destinations.Destination{
		{Name: HarborName, Pos: &worldgraph.Vec3{X: 100, Y: 1.5, Z: -20}, Price: intp(200), Enabled: true, SceneID: HarborScene},
		{Name: "Sunken Archive", Price: intp(500), Enabled: true, SceneID: "sunken_archive"},
	}
}

func New(t *testing.T, opts Options) *Harness {
	t.Helper()
	if opts.Silver == 0 {
		opts.Silver = 300
	}
	if opts.LoadDuration == 0 {
		opts.LoadDuration = 10 * time.Millisecond
	}
	if opts.LoadTimeout == 0 {
		opts.LoadTimeout = time.Second
	}
	if opts.Seed == nil {
		opts.Seed = DefaultSeed()
	}

	graph := worldgraph.NewGraph("hub")
	player := worldgraph.NewNode("Player")
	player.Tag = "Player"
	player.SetComponent("PlayerMovement", struct{}{})
	wallet := worldgraph.NewWallet()
	wallet.SetCurrencyAmount("Silver", opts.Silver)
	player.SetComponent("Inventory", wallet)
	graph.AddRoot(player)
	camera := worldgraph.NewNode("MainCamera")
	player.AddChild(camera)
	graph.SetCamera(camera)
	graph.AddCollider(worldgraph.Collider{MinX: -64, MaxX: 64, MinZ: -64, MaxZ: 64, TopY: 0})

	host := scenehost.New(graph, nil)
	if !opts.PlayerLost {
		host.KeepAcrossLoads(player)
		host.KeepCamera(camera)
	}
	host.Register(scenehost.SceneDef{ID: StagingScene, Duration: opts.LoadDuration / 2})
	for _, d := range opts.Seed {
		if d.SceneID == "" {
			continue
		}
		def := scenehost.SceneDef{ID: d.SceneID, Duration: opts.LoadDuration}
		if d.Pos != nil {
			pos := *d.Pos
			def.Build = func(g *worldgraph.Graph) {
				g.AddCollider(worldgraph.Collider{
					MinX: pos.X - 64, MaxX: pos.X + 64,
					MinZ: pos.Z - 64, MaxZ: pos.Z + 64,
					TopY: HarborGroundY,
				})
			}
		}
		host.Register(def)
	}

	store := destdb.NewMemoryStore()
	for name, o := range opts.Overrides {
		if err := store.SaveOverride(name, o); err != nil {
			t.Fatalf("seed override: %v", err)
		}
	}
	reg, err := destinations.NewRegistry(opts.Seed, store, nil)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	events := &EventRecorder{}
	resolver := travel.NewResolver(graph, travel.ResolveConfig{
		NamePrefixes:     []string{"Player", "PC_"},
		Keyword:          "player",
		Tag:              "Player",
		PlayerComponents: []string{"PlayerMovement", "PlayerController"},
	}, events)
	ledger := travel.NewLedger(travel.LedgerConfig{
		CurrencyID:       "Silver",
		HolderComponents: []string{"Inventory", "PlayerInventory", "Wallet"},
	}, events, nil)
	loader := &CountingLoader{inner: host}
	orch := travel.NewOrchestrator(travel.Config{
		DefaultPrice:          100,
		StagedTransition:      opts.Staged,
		StagingSceneID:        StagingScene,
		LoadTimeout:           opts.LoadTimeout,
		LoadPoll:              2 * time.Millisecond,
		RefundOnFailedArrival: opts.Refund,
	}, resolver, ledger, travel.NewGroundProbe(graph), loader, reg, events, nil)

	return &Harness{
		T:        t,
		Graph:    graph,
		Host:     host,
		Loader:   loader,
		Registry: reg,
		Store:    store,
		Orch:     orch,
		Player:   player,
		Wallet:   wallet,
		Events:   events,
	}
}

// Silver reads the live wallet balance.
func (h *Harness) Silver() int64 {
	q, _ := h.Wallet.CurrencyAmount("Silver")
	return q
}

// CountingLoader records the order scenes were requested in.
type CountingLoader struct {
	mu    sync.Mutex
	inner travel.SceneLoader
	calls []string
}

func (c *CountingLoader) BeginLoad(sceneID string) (travel.LoadHandle, error) {
	c.mu.Lock()
	c.calls = append(c.calls, sceneID)
	c.mu.Unlock()
	return c.inner.BeginLoad(sceneID)
}

func (c *CountingLoader) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

// EventRecorder keeps emitted diagnostic events for assertions.
type EventRecorder struct {
	mu     sync.Mutex
	events []any
}

func (r *EventRecorder) Write(v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, v)
	return nil
}

func (r *EventRecorder) All() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.events...)
}

// Discrepancies filters recorded events down to charge discrepancies.
func (r *EventRecorder) Discrepancies() []travel.DiscrepancyEvent {
	var out []travel.DiscrepancyEvent
	for _, e := range r.All() {
		if d, ok := e.(travel.DiscrepancyEvent); ok {
			out = append(out, d)
		}
	}
	return out
}
