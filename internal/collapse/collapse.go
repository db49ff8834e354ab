package collapse

import (
	"errors"
	"fmt"
)

// ErrUnknownStrategy is returned when a strategy name or value is not recognised.
var ErrUnknownStrategy = errors.New("collapse: unknown strategy")

// Strategy selects how a raw fingerprint is reduced to 16 bits.
type Strategy uint8

const (
	// OrPairs16 ORs the odd-position bits with the even-position bits.
	OrPairs16 Strategy = iota
	// OrHalf16 ORs the high 16 bits with the low 16 bits.
	OrHalf16
	// EveryOther0 keeps the odd-position bits (31, 29, ..., 1).
	EveryOther0
	// EveryOther1 keeps the even-position bits (30, 28, ..., 0).
	EveryOther1
	// FirstHalf keeps the high 16 bits.
	FirstHalf
	// LastHalf keeps the low 16 bits.
	LastHalf
)

var names = [...]string{
	OrPairs16:   "or_pairs_16",
	OrHalf16:    "or_half_16",
	EveryOther0: "every_other_0",
	EveryOther1: "every_other_1",
	FirstHalf:   "first_half",
	LastHalf:    "last_half",
}

// Default is the strategy used when none is configured.
const Default = OrPairs16

// String returns the stable name of the strategy.
func (s Strategy) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Strategy(%d)", s)
	}
	return names[s]
}

// Valid reports whether s is one of the defined strategies.
func (s Strategy) Valid() bool {
	return int(s) < len(names)
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, s)
	}
	return []byte(names[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Parse returns the strategy with the given name.
func Parse(name string) (Strategy, error) {
	for i, n := range names {
		if n == name {
			return Strategy(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// Strategies returns all defined strategies in declaration order.
func Strategies() []Strategy {
	out := make([]Strategy, len(names))
	for i := range names {
		out[i] = Strategy(i)
	}
	return out
}

// Collapsor applies one Strategy. The zero value uses OrPairs16.
type Collapsor struct {
	strategy Strategy
}

// New returns a Collapsor for the given strategy.
func New(s Strategy) (Collapsor, error) {
	if !s.Valid() {
		return Collapsor{}, fmt.Errorf("%w: %d", ErrUnknownStrategy, s)
	}
	return Collapsor{strategy: s}, nil
}

// Strategy returns the configured strategy.
func (c Collapsor) Strategy() Strategy {
	return c.strategy
}

// Collapse reduces a raw fingerprint to 16 bits.
func (c Collapsor) Collapse(raw uint32) uint16 {
	switch c.strategy {
	case OrHalf16:
		return uint16(raw>>16) | uint16(raw)
	case EveryOther0:
		return odd(raw)
	case EveryOther1:
		return even(raw)
	case FirstHalf:
		return uint16(raw >> 16)
	case LastHalf:
		return uint16(raw)
	default:
		return odd(raw) | even(raw)
	}
}

// CollapseAll collapses raw into dst, reusing dst when it has enough capacity.
func (c Collapsor) CollapseAll(dst []uint16, raw []uint32) []uint16 {
	if cap(dst) < len(raw) {
		dst = make([]uint16, len(raw))
	}
	dst = dst[:len(raw)]
	for i, r := range raw {
		dst[i] = c.Collapse(r)
	}
	return dst
}

// odd gathers bits 31, 29, ..., 1 into a 16-bit value, highest first.
func odd(raw uint32) uint16 {
	return compact(raw >> 1)
}

// even gathers bits 30, 28, ..., 0 into a 16-bit value, highest first.
func even(raw uint32) uint16 {
	return compact(raw)
}

// compact packs the even-position bits of x into the low 16 bits.
func compact(x uint32) uint16 {
	x &= 0x55555555
	x = (x | x>>1) & 0x33333333
	x = (x | x>>2) & 0x0F0F0F0F
	x = (x | x>>4) & 0x00FF00FF
	x = (x | x>>8) & 0x0000FFFF
	return uint16(x)
}
