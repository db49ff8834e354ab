package xcorrsound

import "github.com/hupe1980/xcorrsound/internal/collapse"

// CollapseStrategy selects how 32-bit fingerprints are reduced to 16 bits.
type CollapseStrategy = collapse.Strategy

const (
	// OrPairs16 ORs the interleaved bit pairs. No collapsing-induced false
	// negatives, more false positives.
	OrPairs16 = collapse.OrPairs16
	// OrHalf16 ORs the high and the low 16 bits.
	OrHalf16 = collapse.OrHalf16
	// EveryOther0 keeps every other bit starting with the most significant one.
	EveryOther0 = collapse.EveryOther0
	// EveryOther1 keeps every other bit starting with the second most significant one.
	EveryOther1 = collapse.EveryOther1
	// FirstHalf keeps the high 16 bits.
	FirstHalf = collapse.FirstHalf
	// LastHalf keeps the low 16 bits.
	LastHalf = collapse.LastHalf

	// DefaultCollapseStrategy is used when no strategy is configured.
	DefaultCollapseStrategy = collapse.Default
)

// ParseCollapseStrategy returns the strategy with the given name, e.g. "or_pairs_16".
func ParseCollapseStrategy(name string) (CollapseStrategy, error) {
	s, err := collapse.Parse(name)
	return s, translateError(err)
}

// CollapseStrategies returns all strategies in declaration order.
func CollapseStrategies() []CollapseStrategy {
	return collapse.Strategies()
}
