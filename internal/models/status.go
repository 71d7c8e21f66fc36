package models

// Kind distinguishes customer collections from operator disbursements
type Kind string

const (
	KindPayment Kind = "PAYMENT"
	KindPayout  Kind = "PAYOUT"
)

// Status is a gateway-reported transaction status
type Status string

const (
	StatusProcessing Status = "PROCESSING"
	StatusPending    Status = "PENDING"
	StatusAuthorized Status = "AUTHORIZED"
	StatusSuccess    Status = "SUCCESS"
	StatusSettled    Status = "SETTLED"
	StatusFailed     Status = "FAILED"
	StatusReversed   Status = "REVERSED"
	StatusRefunded   Status = "REFUNDED"
)

// Currency codes accepted by the gateway
type Currency string

const (
	CurrencyTZS Currency = "TZS"
	CurrencyUSD Currency = "USD"
)

var paymentStatuses = map[Status]bool{
	StatusProcessing: false,
	StatusPending:    false,
	StatusSuccess:    true,
	StatusSettled:    true,
	StatusFailed:     true,
}

var payoutStatuses = map[Status]bool{
	StatusAuthorized: false,
	StatusPending:    false,
	StatusProcessing: false,
	StatusSuccess:    true,
	StatusFailed:     true,
	StatusReversed:   true,
	StatusRefunded:   true,
}

func statusSet(kind Kind) map[Status]bool {
	if kind == KindPayout {
		return payoutStatuses
	}
	return paymentStatuses
}

// ValidStatus reports whether s is a known status for the given kind
func ValidStatus(kind Kind, s Status) bool {
	_, ok := statusSet(kind)[s]
	return ok
}

// IsTerminal reports whether s permits no further transition for the given kind
func IsTerminal(kind Kind, s Status) bool {
	return statusSet(kind)[s]
}

// IsSuccessful reports whether s means the money moved
func IsSuccessful(kind Kind, s Status) bool {
	if kind == KindPayout {
		return s == StatusSuccess
	}
	return s == StatusSuccess || s == StatusSettled
}

// NonTerminalStatuses lists the statuses worth re-checking for a kind
func NonTerminalStatuses(kind Kind) []Status {
	var out []Status
	for s, terminal := range statusSet(kind) {
		if !terminal {
			out = append(out, s)
		}
	}
	return out
}

// CheckTransition applies the reconciliation policy: unchanged statuses and
// terminal replays are permitted no-ops, non-terminal records may move to any
// known status, and a terminal record may never move to a different status.
func CheckTransition(kind Kind, from, to Status) error {
	if !ValidStatus(kind, to) {
		return &InconsistentStateError{Kind: kind, From: from, To: to, Reason: "unknown status"}
	}
	if from == to {
		return nil
	}
	if IsTerminal(kind, from) {
		return &InconsistentStateError{Kind: kind, From: from, To: to, Reason: "terminal status may not change"}
	}
	return nil
}
