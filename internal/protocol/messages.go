package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string           `json:"type"`
	ProtocolVersion string           `json:"protocol_version"`
	CurrencyID      string           `json:"currency_id"`
	Destinations    []DestinationRef `json:"destinations"`
}

// DestinationRef is the client-facing view of a destination record.
// Actionable is false when the record has no stored coordinates; such a
// destination is listed but must be rendered non-selectable.
type DestinationRef struct {
	Name       string      `json:"name"`
	Pos        *[3]float64 `json:"pos,omitempty"`
	Price      int64       `json:"price"`
	Enabled    bool        `json:"enabled"`
	Visited    bool        `json:"visited"`
	Actionable bool        `json:"actionable"`
	SceneID    string      `json:"scene_id,omitempty"`
}

// LIST (client -> server) requests a fresh destination listing.
type ListMsg struct {
	Type string `json:"type"`
}

// DESTINATIONS (server -> client)
type DestinationsMsg struct {
	Type         string           `json:"type"`
	Destinations []DestinationRef `json:"destinations"`
}

// TRAVEL (client -> server) starts one travel attempt.
type TravelMsg struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	Destination string `json:"destination"`
	// Staged overrides the server-side staged-transition default when set.
	Staged *bool `json:"staged,omitempty"`
}

// CANCEL (client -> server) requests cooperative cancellation of the
// in-flight attempt. Ignored once placement has begun.
type CancelMsg struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

// OUTCOME (server -> client) reports the single result of one attempt.
type OutcomeMsg struct {
	Type        string      `json:"type"`
	ID          string      `json:"id,omitempty"`
	Destination string      `json:"destination"`
	Outcome     string      `json:"outcome"`
	Code        string      `json:"code,omitempty"`
	Detail      string      `json:"detail,omitempty"`
	Pos         *[3]float64 `json:"pos,omitempty"`
	Remaining   *int64      `json:"remaining,omitempty"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}
