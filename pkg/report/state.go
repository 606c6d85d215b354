package report

// State is the lifecycle position of a Report.
type State int

const (
	// StateConstructed: params are validated, nothing to aggregate is attached.
	StateConstructed State = iota
	// StateRawAttached: raw records or precomputed rows are attached.
	StateRawAttached
	// StateAggregated: rows are final, calculators and trackers applied.
	StateAggregated
	// StateTotaled: rows are final and the total report is built.
	StateTotaled
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateRawAttached:
		return "raw_attached"
	case StateAggregated:
		return "aggregated"
	case StateTotaled:
		return "totaled"
	default:
		return "unknown"
	}
}
