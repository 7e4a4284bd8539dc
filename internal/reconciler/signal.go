package reconciler

import "github.com/shopspring/decimal"

// SignalKind discriminates the tagged Signal variants.
type SignalKind string

const (
	SignalPoll    SignalKind = "poll"
	SignalSettled SignalKind = "settled"
	SignalFailed  SignalKind = "failed"
)

// Signal is a tagged variant describing one observation of a transaction:
// a client poll, a settlement confirmation carrying the confirmed amount, or
// a failure notice carrying the acquirer's reason. It is constructed at the
// transport boundary after validation; the Reconciler never sees raw payloads.
type Signal struct {
	Kind   SignalKind
	Amount decimal.Decimal
	Reason string
}

func PollSignal() Signal {
	return Signal{Kind: SignalPoll}
}

func SettledSignal(amount decimal.Decimal) Signal {
	return Signal{Kind: SignalSettled, Amount: amount}
}

func FailedSignal(reason string) Signal {
	return Signal{Kind: SignalFailed, Reason: reason}
}
