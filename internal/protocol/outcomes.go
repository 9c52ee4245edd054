package protocol

// Travel attempt outcomes. Exactly one is reported per attempt; Busy is the
// rejection reported when an attempt is refused because another is in flight.
const (
	OutcomeSucceeded          = "SUCCEEDED"
	OutcomeInsufficientFunds  = "INSUFFICIENT_FUNDS"
	OutcomeMissingCoordinates = "MISSING_COORDINATES"
	OutcomeEntityNotFound     = "ENTITY_NOT_FOUND"
	OutcomeLoadFailed         = "LOAD_FAILED"
	OutcomeCancelled          = "CANCELLED"
	OutcomeBusy               = "BUSY"
)

var knownOutcomes = map[string]struct{}{
	OutcomeSucceeded:          {},
	OutcomeInsufficientFunds:  {},
	OutcomeMissingCoordinates: {},
	OutcomeEntityNotFound:     {},
	OutcomeLoadFailed:         {},
	OutcomeCancelled:          {},
	OutcomeBusy:               {},
}

func IsKnownOutcome(outcome string) bool {
	_, ok := knownOutcomes[outcome]
	return ok
}

// OutcomeErrCode maps a non-success outcome to the wire error code the
// gateway reports alongside it.
func OutcomeErrCode(outcome string) string {
	switch outcome {
	case OutcomeSucceeded:
		return ""
	case OutcomeInsufficientFunds:
		return ErrNoFunds
	case OutcomeMissingCoordinates:
		return ErrNoCoordinates
	case OutcomeEntityNotFound:
		return ErrEntityNotFound
	case OutcomeLoadFailed:
		return ErrLoadFailed
	case OutcomeCancelled:
		return ErrCancelled
	case OutcomeBusy:
		return ErrBusy
	default:
		return ErrInternal
	}
}
