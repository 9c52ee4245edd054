package travel

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"waygate.ai/internal/protocol"
	"waygate.ai/internal/sim/destinations"
	"waygate.ai/internal/sim/worldgraph"
)

// SceneLoader is the engine's asynchronous scene-load primitive. Handles
// tolerate being polled every frame.
type SceneLoader interface {
	BeginLoad(sceneID string) (LoadHandle, error)
}

type LoadHandle interface {
	Progress() float64
	ReadyToActivate() bool
	Activate() error
}

// Registry is the destination store the orchestrator reads records from and
// reports visited state back to.
type Registry interface {
	Get(name string) (destinations.Destination, bool)
	MarkVisited(name string, pos *worldgraph.Vec3) error
}

type Config struct {
	DefaultPrice     int64
	StagedTransition bool
	// StagingSceneID is the fixed low-memory scene loaded between two heavy
	// scenes so the old one is fully unloaded before the new one comes in.
	StagingSceneID string
	LoadTimeout    time.Duration
	LoadPoll       time.Duration
	// RefundOnFailedArrival returns the charge when travel fails after
	// funds were committed. Off by default; the discrepancy is logged
	// either way.
	RefundOnFailedArrival bool
}

// Request is one travel attempt. Consumed once, never persisted.
type Request struct {
	Destination destinations.Destination
	// Entity is an optional pre-resolved handle. It is only trusted before
	// the first scene load; placement always re-resolves.
	Entity *worldgraph.Node
	Price  int64
	Staged bool
}

// Outcome is the single result of one attempt. Code is one of the
// protocol.Outcome* values; the rest is diagnostic context.
type Outcome struct {
	Code      string
	Detail    string
	Strategy  string
	Candidate string
	Pos       *worldgraph.Vec3
	Remaining *int64
}

// Orchestrator drives one travel attempt through
// Charging -> (StagingLoad) -> DestinationLoading -> Placing. Funds are
// committed strictly before any scene starts changing, and placement only
// happens once the destination scene reports ready. At most one attempt is
// in flight at a time.
type Orchestrator struct {
	cfg      Config
	resolver *Resolver
	ledger   *Ledger
	probe    GroundProbe
	loader   SceneLoader
	registry Registry
	events   EventSink
	log      *log.Logger

	busy      atomic.Bool
	cancelled atomic.Bool
}

func NewOrchestrator(cfg Config, resolver *Resolver, ledger *Ledger, probe GroundProbe, loader SceneLoader, registry Registry, events EventSink, logger *log.Logger) *Orchestrator {
	if cfg.LoadPoll <= 0 {
		cfg.LoadPoll = 50 * time.Millisecond
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = 30 * time.Second
	}
	return &Orchestrator{
		cfg:      cfg,
		resolver: resolver,
		ledger:   ledger,
		probe:    probe,
		loader:   loader,
		registry: registry,
		events:   events,
		log:      logger,
	}
}

// AttemptTravel is the single entry point the UI layer calls on user
// confirmation. Unknown names are an error, not an outcome. A non-nil
// staged overrides the configured staged-transition default for this
// attempt only.
func (o *Orchestrator) AttemptTravel(ctx context.Context, name string, staged *bool) (Outcome, error) {
	dest, ok := o.registry.Get(name)
	if !ok {
		return Outcome{}, fmt.Errorf("unknown destination %q", name)
	}
	useStaged := o.cfg.StagedTransition
	if staged != nil {
		useStaged = *staged
	}
	return o.Travel(ctx, Request{
		Destination: dest,
		Price:       dest.PriceOr(o.cfg.DefaultPrice),
		Staged:      useStaged,
	}), nil
}

// Cancel requests cooperative cancellation of the in-flight attempt. It is
// honored only before placement begins; placement is atomic once started.
func (o *Orchestrator) Cancel() {
	o.cancelled.Store(true)
}

// InFlight reports whether an attempt is currently past admission.
func (o *Orchestrator) InFlight() bool {
	return o.busy.Load()
}

// Travel runs one attempt to completion. A second call while one is in
// flight is rejected with Busy and has no side effects. The in-progress
// guard is released on every exit path, panics included, and a panic
// anywhere mid-machine becomes Done(LoadFailed) instead of a stuck flag.
func (o *Orchestrator) Travel(ctx context.Context, req Request) (out Outcome) {
	if !o.busy.CompareAndSwap(false, true) {
		return Outcome{Code: protocol.OutcomeBusy, Detail: "travel already in progress"}
	}
	defer func() {
		o.busy.Store(false)
		if r := recover(); r != nil {
			if o.log != nil {
				o.log.Printf("travel: panic mid-transition: %v", r)
			}
			out = Outcome{Code: protocol.OutcomeLoadFailed, Detail: fmt.Sprintf("internal: %v", r)}
		}
	}()
	o.cancelled.Store(false)
	return o.run(ctx, req)
}

var (
	errCancelled   = errors.New("cancelled")
	errLoadTimeout = errors.New("load timeout")
)

func (o *Orchestrator) run(ctx context.Context, req Request) Outcome {
	dest := req.Destination

	// A destination without coordinates is never attempted: no charge, no
	// load, nothing to undo.
	if dest.Pos == nil {
		return Outcome{Code: protocol.OutcomeMissingCoordinates, Detail: "destination has no coordinates"}
	}
	if o.cancelRequested(ctx) {
		return Outcome{Code: protocol.OutcomeCancelled}
	}

	// Charging. Funds commit before the world starts changing so a failed
	// charge never leaves the player mid-transition.
	ent := req.Entity
	strategy := "provided"
	if ent == nil {
		res, ok := o.resolver.ResolvePlayer()
		if !ok {
			return Outcome{Code: protocol.OutcomeEntityNotFound, Detail: "player not found before charge"}
		}
		ent, strategy = res.Node, res.Strategy
	}
	ch := o.ledger.TryCharge(ent, req.Price)
	switch ch.Status {
	case InsufficientFunds:
		return Outcome{Code: protocol.OutcomeInsufficientFunds, Strategy: strategy, Detail: "insufficient funds"}
	case DetectionFailed:
		// Fail closed: an undetectable purse must never become free travel.
		return Outcome{Code: protocol.OutcomeInsufficientFunds, Strategy: strategy, Detail: "currency detection failed"}
	}
	remaining := ch.Remaining

	fail := func(code, reason string) Outcome {
		o.settleFailure(dest.Name, ch.Candidate, req.Price, reason)
		return Outcome{Code: code, Strategy: strategy, Candidate: ch.Candidate, Detail: reason}
	}

	if o.cancelRequested(ctx) {
		return fail(protocol.OutcomeCancelled, "cancelled after charge")
	}

	// StagingLoad and DestinationLoading. An empty scene id means the
	// destination lives in the current scene and nothing is loaded.
	if dest.SceneID != "" {
		if req.Staged && o.cfg.StagingSceneID != "" {
			if err := o.loadScene(ctx, o.cfg.StagingSceneID, "staging"); err != nil {
				if errors.Is(err, errCancelled) {
					return fail(protocol.OutcomeCancelled, "cancelled during staging load")
				}
				return fail(protocol.OutcomeLoadFailed, fmt.Sprintf("staging load: %v", err))
			}
		}
		if err := o.loadScene(ctx, dest.SceneID, "destination"); err != nil {
			if errors.Is(err, errCancelled) {
				return fail(protocol.OutcomeCancelled, "cancelled during destination load")
			}
			return fail(protocol.OutcomeLoadFailed, fmt.Sprintf("destination load: %v", err))
		}
	}

	// Placing. The graph may have been rebuilt; a handle captured before
	// the load is dangling, so resolve fresh and narrow to the character.
	res, ok := o.resolver.ResolvePlayer()
	if !ok {
		return fail(protocol.OutcomeEntityNotFound, "player not found after load")
	}
	char := o.resolver.ResolveCharacter(res.Node)
	char.ZeroVelocity()
	target, grounded := o.probe.Grounded(*dest.Pos)
	if !grounded {
		target = EnsureClearance(*dest.Pos)
	}
	char.Pos = target
	emit(o.events, PlaceEvent{Event: "place", Destination: dest.Name, Strategy: res.Strategy, Pos: target.Array(), Grounded: grounded})

	if err := o.registry.MarkVisited(dest.Name, &target); err != nil && o.log != nil {
		o.log.Printf("travel: mark visited %q: %v", dest.Name, err)
	}
	return Outcome{
		Code:      protocol.OutcomeSucceeded,
		Strategy:  res.Strategy,
		Candidate: ch.Candidate,
		Pos:       &target,
		Remaining: &remaining,
	}
}

// loadScene begins an asynchronous load and polls until the handle reports
// ready to activate, then activates. "Started" is not completion; only
// ready-to-activate is.
func (o *Orchestrator) loadScene(ctx context.Context, sceneID, stage string) error {
	start := time.Now()
	h, err := o.loader.BeginLoad(sceneID)
	if err != nil {
		emit(o.events, StageEvent{Event: "load_stage", Stage: stage, SceneID: sceneID, DurationMs: time.Since(start).Milliseconds(), Detail: err.Error()})
		return err
	}
	deadline := start.Add(o.cfg.LoadTimeout)
	tick := time.NewTicker(o.cfg.LoadPoll)
	defer tick.Stop()
	for !h.ReadyToActivate() {
		if time.Now().After(deadline) {
			emit(o.events, StageEvent{Event: "load_stage", Stage: stage, SceneID: sceneID, DurationMs: time.Since(start).Milliseconds(), Progress: h.Progress(), Detail: "timeout"})
			return errLoadTimeout
		}
		select {
		case <-ctx.Done():
			return errCancelled
		case <-tick.C:
			if o.cancelled.Load() {
				return errCancelled
			}
		}
	}
	if err := h.Activate(); err != nil {
		emit(o.events, StageEvent{Event: "load_stage", Stage: stage, SceneID: sceneID, DurationMs: time.Since(start).Milliseconds(), Progress: h.Progress(), Detail: err.Error()})
		return err
	}
	emit(o.events, StageEvent{Event: "load_stage", Stage: stage, SceneID: sceneID, DurationMs: time.Since(start).Milliseconds(), Progress: h.Progress(), OK: true})
	return nil
}

// settleFailure records the funds-charged-but-never-arrived discrepancy and
// applies the optional refund policy. Refund is best effort: it needs a
// resolvable player and the same candidate to still exist.
func (o *Orchestrator) settleFailure(destName, candidateName string, amount int64, reason string) {
	if amount <= 0 || candidateName == "" {
		return
	}
	refunded := false
	if o.cfg.RefundOnFailedArrival {
		if res, ok := o.resolver.ResolvePlayer(); ok {
			refunded = o.ledger.Refund(res.Node, candidateName, amount)
		}
		if !refunded && o.log != nil {
			o.log.Printf("travel: refund of %d to %s failed", amount, candidateName)
		}
	}
	if o.log != nil {
		o.log.Printf("travel: discrepancy: charged %d for %q, not arrived (%s), refunded=%v", amount, destName, reason, refunded)
	}
	emit(o.events, DiscrepancyEvent{Event: "discrepancy", Destination: destName, Candidate: candidateName, Amount: amount, Reason: reason, Refunded: refunded})
}

func (o *Orchestrator) cancelRequested(ctx context.Context) bool {
	return o.cancelled.Load() || ctx.Err() != nil
}
