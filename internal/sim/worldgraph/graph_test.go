package worldgraph

import (
	"reflect"
	"testing"
)

func TestHierarchyQueries(t *testing.T) {
	g := NewGraph("hub")
	town := g.AddRoot(NewNode("Town"))
	gate := town.AddChild(NewNode("Gate"))
	player := g.AddRoot(NewNode("Player"))
	player.Tag = "Player"
	player.SetComponent("PlayerMovement", struct{}{})
	rig := player.AddChild(NewNode("Rig"))

	if got := len(g.Transforms()); got != 4 {
		t.Fatalf("transforms = %d, want 4", got)
	}
	if rig.Root() != player || gate.Root() != town {
		t.Fatal("Root walked to the wrong top")
	}
	if g.FindTag("Player") != player {
		t.Fatal("FindTag missed the player")
	}
	if g.FindTag("Boss") != nil {
		t.Fatal("FindTag invented a node")
	}
	if got := g.NodesWithComponent("PlayerMovement"); len(got) != 1 || got[0] != player {
		t.Fatalf("NodesWithComponent = %v", got)
	}
	if got := len(g.SceneRoots()); got != 2 {
		t.Fatalf("roots = %d, want 2", got)
	}
}

func TestComponentNamesSorted(t *testing.T) {
	n := NewNode("x")
	n.SetComponent("Zeta", struct{}{})
	n.SetComponent("Alpha", struct{}{})
	n.SetComponent("Mid", struct{}{})
	want := []string{"Alpha", "Mid", "Zeta"}
	if got := n.ComponentNames(); !reflect.DeepEqual(got, want) {
		t.Fatalf("names = %v, want %v", got, want)
	}
}

func TestRayCastDown(t *testing.T) {
	g := NewGraph("hub")
	g.AddCollider(Collider{MinX: -10, MaxX: 10, MinZ: -10, MaxZ: 10, TopY: 0})
	g.AddCollider(Collider{MinX: -1, MaxX: 1, MinZ: -1, MaxZ: 1, TopY: 2})
	g.AddCollider(Collider{MinX: -10, MaxX: 10, MinZ: -10, MaxZ: 10, TopY: 4, Trigger: true})

	// Highest non-trigger surface under the point wins.
	if y, ok := g.RayCastDown(Vec3{X: 0, Y: 5}, 50); !ok || y != 2 {
		t.Fatalf("hit = %v,%v, want 2,true", y, ok)
	}
	// Off the platform only the ground remains.
	if y, ok := g.RayCastDown(Vec3{X: 5, Y: 5}, 50); !ok || y != 0 {
		t.Fatalf("hit = %v,%v, want 0,true", y, ok)
	}
	// Surfaces above the origin are not below it.
	if _, ok := g.RayCastDown(Vec3{X: 0, Y: 1}, 50); ok {
		t.Fatal("hit a surface above the ray origin")
	}
	// Out of range.
	if _, ok := g.RayCastDown(Vec3{X: 5, Y: 100}, 50); ok {
		t.Fatal("hit beyond max distance")
	}
	// Nothing under the point at all.
	if _, ok := g.RayCastDown(Vec3{X: 99, Y: 5}, 50); ok {
		t.Fatal("hit outside every collider")
	}
}

func TestTeardownPanics(t *testing.T) {
	g := NewGraph("hub")
	g.AddRoot(NewNode("Town"))
	g.SetTearingDown(true)

	mustPanic := func(name string, f func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Errorf("%s did not panic during teardown", name)
			}
		}()
		f()
	}
	mustPanic("Transforms", func() { g.Transforms() })
	mustPanic("FindTag", func() { g.FindTag("Player") })
	mustPanic("SceneRoots", func() { g.SceneRoots() })
	mustPanic("ActiveCamera", func() { g.ActiveCamera() })
	mustPanic("RayCastDown", func() { g.RayCastDown(Vec3{}, 50) })

	g.SetTearingDown(false)
	if got := len(g.Transforms()); got != 1 {
		t.Fatalf("transforms after teardown cleared = %d, want 1", got)
	}
}

func TestClearLeavesHandlesDangling(t *testing.T) {
	g := NewGraph("hub")
	town := g.AddRoot(NewNode("Town"))
	g.Clear()
	if len(g.Transforms()) != 0 {
		t.Fatal("graph not empty after Clear")
	}
	// The old handle still reads, it just points at nothing live.
	if town.Name != "Town" {
		t.Fatal("stale handle corrupted")
	}
}
