package protocol

import (
	"encoding/json"
	"fmt"
)

const Version = "1.0"

const (
	TypeHello        = "HELLO"
	TypeWelcome      = "WELCOME"
	TypeList         = "LIST"
	TypeDestinations = "DESTINATIONS"
	TypeTravel       = "TRAVEL"
	TypeCancel       = "CANCEL"
	TypeOutcome      = "OUTCOME"
	TypeError        = "ERROR"
)

type BaseMsg struct {
	Type string `json:"type"`
}

func DecodeBase(b []byte) (BaseMsg, error) {
	var m BaseMsg
	if err := json.Unmarshal(b, &m); err != nil {
		return m, err
	}
	if m.Type == "" {
		return m, fmt.Errorf("missing type")
	}
	return m, nil
}
