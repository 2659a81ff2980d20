package types

type SignalType string

const (
	// SignalTypeBuy is emitted on a strict upward crossover while flat.
	SignalTypeBuy SignalType = "buy"
	// SignalTypeSell is emitted on a strict downward crossover while a position is open.
	SignalTypeSell SignalType = "sell"
	// SignalTypeNoAction is emitted on every other step.
	SignalTypeNoAction SignalType = "no_action"
)

// Signal is one step's trading decision, evaluated once per closed candle.
type Signal struct {
	Type SignalType
	// Name is the name of the strategy that produced the signal.
	Name string
	// Reason is a human-readable explanation used for logs and reports.
	Reason string
}
