package travel

// EventSink receives structured diagnostic events (JSONL on disk in the
// server). Events are operator material only; the functional contract of a
// travel attempt is carried entirely by its Outcome.
type EventSink interface {
	Write(v any) error
}

type ResolveEvent struct {
	Event    string `json:"event"` // "resolve"
	Strategy string `json:"strategy"`
	Found    bool   `json:"found"`
	Node     string `json:"node,omitempty"`
}

type ChargeEvent struct {
	Event     string `json:"event"` // "charge"
	Candidate string `json:"candidate,omitempty"`
	Amount    int64  `json:"amount"`
	Remaining int64  `json:"remaining,omitempty"`
	Status    string `json:"status"`
}

type StageEvent struct {
	Event      string  `json:"event"` // "load_stage"
	Stage      string  `json:"stage"`
	SceneID    string  `json:"scene_id"`
	DurationMs int64   `json:"duration_ms"`
	Progress   float64 `json:"progress"`
	OK         bool    `json:"ok"`
	Detail     string  `json:"detail,omitempty"`
}

// DiscrepancyEvent records funds committed without a completed arrival.
type DiscrepancyEvent struct {
	Event       string `json:"event"` // "discrepancy"
	Destination string `json:"destination"`
	Candidate   string `json:"candidate"`
	Amount      int64  `json:"amount"`
	Reason      string `json:"reason"`
	Refunded    bool   `json:"refunded"`
}

type PlaceEvent struct {
	Event       string     `json:"event"` // "place"
	Destination string     `json:"destination"`
	Strategy    string     `json:"strategy"`
	Pos         [3]float64 `json:"pos"`
	Grounded    bool       `json:"grounded"`
}

func emit(sink EventSink, v any) {
	if sink == nil {
		return
	}
	_ = sink.Write(v)
}
