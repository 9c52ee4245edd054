package scenehost

import (
	"testing"
	"time"

	"waygate.ai/internal/sim/worldgraph"
)

func TestLoadAndActivateSwapsPopulation(t *testing.T) {
	g := worldgraph.NewGraph("hub")
	old := g.AddRoot(worldgraph.NewNode("OldTown"))
	player := g.AddRoot(worldgraph.NewNode("Player"))
	cam := player.AddChild(worldgraph.NewNode("MainCamera"))
	g.SetCamera(cam)

	h := New(g, nil)
	h.KeepAcrossLoads(player)
	h.KeepCamera(cam)
	h.Register(SceneDef{ID: "keep", Duration: 5 * time.Millisecond, Build: func(g *worldgraph.Graph) {
		g.AddRoot(worldgraph.NewNode("KeepGate"))
	}})

	l, err := h.BeginLoad("keep")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	deadline := time.Now().Add(time.Second)
	for !l.ReadyToActivate() {
		if time.Now().After(deadline) {
			t.Fatal("never ready")
		}
		time.Sleep(time.Millisecond)
	}
	if p := l.Progress(); p != 0.9 {
		t.Fatalf("ready progress = %v, want parked at 0.9", p)
	}
	if err := l.Activate(); err != nil {
		t.Fatalf("activate: %v", err)
	}

	if h.ActiveScene() != "keep" {
		t.Fatalf("active = %q", h.ActiveScene())
	}
	if g.FindByName("OldTown") != nil {
		t.Fatal("old scene survived the swap")
	}
	if g.FindByName("KeepGate") == nil {
		t.Fatal("new scene not built")
	}
	if g.FindByName("Player") != player {
		t.Fatal("persistent root lost")
	}
	if g.ActiveCamera() != cam {
		t.Fatal("camera lost")
	}
	_ = old

	if err := l.Activate(); err == nil {
		t.Fatal("double activation accepted")
	}
}

func TestProgressRampsBeforeReady(t *testing.T) {
	g := worldgraph.NewGraph("hub")
	h := New(g, nil)
	h.Register(SceneDef{ID: "slow", Duration: 500 * time.Millisecond})
	l, err := h.BeginLoad("slow")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if l.ReadyToActivate() {
		t.Fatal("ready immediately")
	}
	if p := l.Progress(); p < 0 || p >= 0.9 {
		t.Fatalf("early progress = %v", p)
	}
}

func TestFaultInjection(t *testing.T) {
	g := worldgraph.NewGraph("hub")
	h := New(g, nil)
	h.Register(SceneDef{ID: "keep"})

	h.FailBegin("keep", true)
	if _, err := h.BeginLoad("keep"); err == nil {
		t.Fatal("begin fault ignored")
	}
	h.FailBegin("keep", false)

	h.StallReady("keep", true)
	l, err := h.BeginLoad("keep")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if l.ReadyToActivate() {
		t.Fatal("stalled scene reported ready")
	}
	h.StallReady("keep", false)

	h.FailActivate("keep", true)
	if !l.ReadyToActivate() {
		t.Fatal("scene should be ready once unstalled")
	}
	if err := l.Activate(); err == nil {
		t.Fatal("activate fault ignored")
	}

	if _, err := h.BeginLoad("unregistered"); err == nil {
		t.Fatal("unknown scene accepted")
	}
}
