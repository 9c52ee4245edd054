package travel

import (
	"fmt"
	"log"
	"reflect"
	"strings"

	"waygate.ai/internal/sim/worldgraph"
)

type ChargeStatus int

const (
	// Charged: exactly one candidate's stored quantity went down by the
	// charged amount, and the new value was read back.
	Charged ChargeStatus = iota
	// InsufficientFunds: at least one candidate was readable, none held
	// enough. Nothing was mutated.
	InsufficientFunds
	// DetectionFailed: no candidate was even readable. The caller must
	// treat this as a failed charge, never as a free pass.
	DetectionFailed
)

func (s ChargeStatus) String() string {
	switch s {
	case Charged:
		return "charged"
	case InsufficientFunds:
		return "insufficient_funds"
	default:
		return "detection_failed"
	}
}

type Charge struct {
	Status    ChargeStatus
	Candidate string
	Remaining int64
}

type LedgerConfig struct {
	// CurrencyID is the currency/item identifier, "Silver" by default.
	CurrencyID string
	// HolderComponents are the known inventory component type names tried
	// first, in order.
	HolderComponents []string
}

// Ledger detects and mutates the currency quantity owned by an entity's
// inventory-like subsystem. Candidate storage shapes are tried in a fixed
// order; the two hard rules are: never deduct without a confirmed re-read,
// and never report success without the stored quantity actually dropping.
type Ledger struct {
	cfg    LedgerConfig
	events EventSink
	log    *log.Logger
}

func NewLedger(cfg LedgerConfig, events EventSink, logger *log.Logger) *Ledger {
	return &Ledger{cfg: cfg, events: events, log: logger}
}

// candidate is one plausible storage location, bound to a live component.
type candidate struct {
	name  string
	read  func() (int64, bool)
	write func(qty int64) bool
}

func safeRead(c candidate) (q int64, ok bool) {
	defer func() {
		if recover() != nil {
			q, ok = 0, false
		}
	}()
	return c.read()
}

// TryCharge deducts amount from the first candidate that holds enough.
// A candidate whose deduction cannot be confirmed is rolled back and
// abandoned; the chain moves on without leaving a partial charge behind.
func (l *Ledger) TryCharge(ent *worldgraph.Node, amount int64) Charge {
	if amount < 0 {
		return Charge{Status: DetectionFailed}
	}
	cands := l.candidates(ent)
	if amount == 0 {
		// Free travel still requires a detectable purse.
		for _, c := range cands {
			if q, ok := safeRead(c); ok {
				return Charge{Status: Charged, Candidate: c.name, Remaining: q}
			}
		}
		return Charge{Status: DetectionFailed}
	}

	sawReadable := false
	for _, c := range cands {
		if ch, ok := l.tryCandidate(c, amount, &sawReadable); ok {
			emit(l.events, ChargeEvent{Event: "charge", Candidate: ch.Candidate, Amount: amount, Remaining: ch.Remaining, Status: ch.Status.String()})
			return ch
		}
	}
	st := DetectionFailed
	if sawReadable {
		st = InsufficientFunds
	}
	emit(l.events, ChargeEvent{Event: "charge", Amount: amount, Status: st.String()})
	return Charge{Status: st}
}

func (l *Ledger) tryCandidate(c candidate, amount int64, sawReadable *bool) (ch Charge, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if l.log != nil {
				l.log.Printf("ledger: candidate %s panicked: %v", c.name, r)
			}
			ch, ok = Charge{}, false
		}
	}()

	qty, readable := c.read()
	if !readable {
		return Charge{}, false
	}
	*sawReadable = true
	if qty < amount {
		return Charge{}, false
	}
	if !c.write(qty - amount) {
		// Write refused before anything changed; move on.
		return Charge{}, false
	}
	confirm, readable := c.read()
	if readable && confirm == qty-amount {
		return Charge{Status: Charged, Candidate: c.name, Remaining: confirm}, true
	}
	// Deduction did not stick (or stuck wrong). Restore and abandon the
	// candidate; reporting success here would be a silent failure.
	_ = c.write(qty)
	if l.log != nil {
		l.log.Printf("ledger: candidate %s failed confirm (want %d, got %d readable=%v); rolled back", c.name, qty-amount, confirm, readable)
	}
	return Charge{}, false
}

// Refund puts amount back into the named candidate. Best effort: used only
// by the optional failed-arrival refund policy, and the discrepancy is
// logged regardless of what this returns.
func (l *Ledger) Refund(ent *worldgraph.Node, candidateName string, amount int64) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	if amount <= 0 {
		return false
	}
	for _, c := range l.candidates(ent) {
		if c.name != candidateName {
			continue
		}
		qty, readable := c.read()
		if !readable || !c.write(qty+amount) {
			return false
		}
		confirm, readable := c.read()
		return readable && confirm == qty+amount
	}
	return false
}

// candidates enumerates storage locations in fallback order: known holder
// component types, then slot containers searched by item name, then a
// reflect scan over plain numeric fields as last resort. Per-node order is
// the deterministic descendant walk.
func (l *Ledger) candidates(ent *worldgraph.Node) (cands []candidate) {
	defer func() {
		if recover() != nil {
			cands = nil
		}
	}()
	if ent == nil {
		return nil
	}
	nodes := ent.Descendants()

	for _, typeName := range l.cfg.HolderComponents {
		for _, n := range nodes {
			comp, ok := n.Component(typeName)
			if !ok {
				continue
			}
			holder, ok := comp.(worldgraph.CurrencyHolder)
			if !ok {
				continue
			}
			cands = append(cands, l.holderCandidate(typeName, holder))
		}
	}
	for _, n := range nodes {
		for _, typeName := range n.ComponentNames() {
			comp, _ := n.Component(typeName)
			if sc, ok := comp.(worldgraph.SlotContainer); ok {
				if c, ok := l.slotCandidate(typeName, sc); ok {
					cands = append(cands, c)
				}
			}
		}
	}
	for _, n := range nodes {
		for _, typeName := range n.ComponentNames() {
			comp, _ := n.Component(typeName)
			cands = append(cands, l.fieldCandidates(typeName, comp)...)
		}
	}
	return cands
}

func (l *Ledger) holderCandidate(typeName string, h worldgraph.CurrencyHolder) candidate {
	id := l.cfg.CurrencyID
	return candidate{
		name:  "holder:" + typeName,
		read:  func() (int64, bool) { return h.CurrencyAmount(id) },
		write: func(qty int64) bool { return h.SetCurrencyAmount(id, qty) },
	}
}

func (l *Ledger) slotCandidate(typeName string, sc worldgraph.SlotContainer) (candidate, bool) {
	idx := -1
	for i, s := range sc.Slots() {
		if strings.EqualFold(s.Item, l.cfg.CurrencyID) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return candidate{}, false
	}
	id := l.cfg.CurrencyID
	return candidate{
		name: "slot:" + typeName,
		read: func() (int64, bool) {
			slots := sc.Slots()
			if idx >= len(slots) || !strings.EqualFold(slots[idx].Item, id) {
				return 0, false
			}
			return slots[idx].Count, true
		},
		write: func(qty int64) bool { return sc.SetSlotCount(idx, qty) },
	}, true
}

// fieldCandidates scans exported integer fields of a pointer-to-struct
// component for names matching the currency identifier. This is the
// reflection-style "any plausible numeric field" last resort.
func (l *Ledger) fieldCandidates(typeName string, comp any) []candidate {
	rv := reflect.ValueOf(comp)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return nil
	}
	elem := rv.Elem()
	if elem.Kind() != reflect.Struct {
		return nil
	}
	id := strings.ToLower(l.cfg.CurrencyID)
	var out []candidate
	rt := elem.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() || !strings.Contains(strings.ToLower(f.Name), id) {
			continue
		}
		switch f.Type.Kind() {
		case reflect.Int, reflect.Int32, reflect.Int64:
		default:
			continue
		}
		fv := elem.Field(i)
		out = append(out, candidate{
			name:  fmt.Sprintf("field:%s.%s", typeName, f.Name),
			read:  func() (int64, bool) { return fv.Int(), true },
			write: func(qty int64) bool {
				if !fv.CanSet() {
					return false
				}
				fv.SetInt(qty)
				return true
			},
		})
	}
	return out
}
