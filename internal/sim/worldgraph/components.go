package worldgraph

// Capability interfaces for inventory-like components. The currency ledger
// binds to these shapes in a fixed fallback order; anything that fits none
// of them is left to the reflect-based last resort.

// CurrencyHolder is a component that stores currencies by identifier.
type CurrencyHolder interface {
	CurrencyAmount(id string) (int64, bool)
	SetCurrencyAmount(id string, qty int64) bool
}

// Slot is one stack inside a SlotContainer.
type Slot struct {
	Item  string
	Count int64
}

// SlotContainer is a component that stores item stacks in indexed slots.
type SlotContainer interface {
	Slots() []Slot
	SetSlotCount(i int, count int64) bool
}

// Wallet is the reference CurrencyHolder used by the built-in scenes.
type Wallet struct {
	Currencies map[string]int64
}

func NewWallet() *Wallet { return &Wallet{Currencies: map[string]int64{}} }

func (w *Wallet) CurrencyAmount(id string) (int64, bool) {
	q, ok := w.Currencies[id]
	return q, ok
}

func (w *Wallet) SetCurrencyAmount(id string, qty int64) bool {
	if w.Currencies == nil {
		w.Currencies = map[string]int64{}
	}
	w.Currencies[id] = qty
	return true
}

// Satchel is the reference SlotContainer.
type Satchel struct {
	Stacks []Slot
}

func (s *Satchel) Slots() []Slot { return append([]Slot(nil), s.Stacks...) }

func (s *Satchel) SetSlotCount(i int, count int64) bool {
	if i < 0 || i >= len(s.Stacks) {
		return false
	}
	s.Stacks[i].Count = count
	return true
}

// Purse carries plain numeric fields and no capability interface at all.
// It exists so the ledger's reflect fallback has a realistic target.
type Purse struct {
	Silver int64
	Gold   int64
}
