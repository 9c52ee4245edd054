package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Travel layer.
	ErrBusy               = "E_BUSY"
	ErrUnknownDestination = "E_UNKNOWN_DESTINATION"
	ErrNoCoordinates      = "E_NO_COORDS"
	ErrNoFunds            = "E_NO_FUNDS"
	ErrLoadFailed         = "E_LOAD_FAILED"
	ErrEntityNotFound     = "E_ENTITY_NOT_FOUND"
	ErrCancelled          = "E_CANCELLED"
	ErrInternal           = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:    {},
	ErrBusy:               {},
	ErrUnknownDestination: {},
	ErrNoCoordinates:      {},
	ErrNoFunds:            {},
	ErrLoadFailed:         {},
	ErrEntityNotFound:     {},
	ErrCancelled:          {},
	ErrInternal:           {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
