package travel

import "waygate.ai/internal/sim/worldgraph"

const (
	// Ray starts this far above the target and reaches this far down.
	rayHeight = 5.0
	rayRange  = 50.0
	// Arrival rests this far above the hit surface.
	groundClearance = 0.1
	// Flat lift used when no ray data exists for the point at all.
	fallbackLift = 1.0
)

// GroundProbe corrects a target point onto standable ground.
type GroundProbe struct {
	q worldgraph.Query
}

func NewGroundProbe(q worldgraph.Query) GroundProbe { return GroundProbe{q: q} }

// Grounded casts down from above the point and snaps Y onto the surface
// plus clearance. Returns the input unchanged and false when nothing is hit
// or the cast itself fails; callers must treat that as best effort, not a
// safety guarantee.
func (g GroundProbe) Grounded(p worldgraph.Vec3) (out worldgraph.Vec3, ok bool) {
	defer func() {
		if recover() != nil {
			out, ok = p, false
		}
	}()
	from := p
	from.Y += rayHeight
	hitY, hit := g.q.RayCastDown(from, rayRange)
	if !hit {
		return p, false
	}
	p.Y = hitY + groundClearance
	return p, true
}

// EnsureClearance lifts a stored coordinate that predates ray correction so
// the entity does not spawn intersecting the surface it was captured on.
func EnsureClearance(p worldgraph.Vec3) worldgraph.Vec3 {
	p.Y += fallbackLift
	return p
}
