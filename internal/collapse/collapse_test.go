package collapse

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reference is a bit-by-bit rendition of the interleaved split.
func reference(raw uint32) (a, b uint16) {
	for i := 0; i < 16; i++ {
		if raw&(1<<(31-2*i)) != 0 {
			a |= 1 << (15 - i)
		}
		if raw&(1<<(30-2*i)) != 0 {
			b |= 1 << (15 - i)
		}
	}
	return a, b
}

func mustNew(t *testing.T, s Strategy) Collapsor {
	t.Helper()
	c, err := New(s)
	require.NoError(t, err)
	return c
}

func TestCollapse_KnownValues(t *testing.T) {
	tests := []struct {
		strategy Strategy
		raw      uint32
		want     uint16
	}{
		{FirstHalf, 0xABCD1234, 0xABCD},
		{LastHalf, 0xABCD1234, 0x1234},
		{OrHalf16, 0xF0000F00, 0xFF00},
		{EveryOther0, 0xAAAAAAAA, 0xFFFF},
		{EveryOther0, 0x55555555, 0x0000},
		{EveryOther1, 0x55555555, 0xFFFF},
		{EveryOther1, 0xAAAAAAAA, 0x0000},
		{OrPairs16, 0xAAAAAAAA, 0xFFFF},
		{OrPairs16, 0x55555555, 0xFFFF},
		{OrPairs16, 0x80000000, 0x8000},
		{OrPairs16, 0x40000000, 0x8000},
		{OrPairs16, 0x00000001, 0x0001},
		{OrPairs16, 0x00000000, 0x0000},
	}

	for _, tt := range tests {
		t.Run(tt.strategy.String(), func(t *testing.T) {
			c := mustNew(t, tt.strategy)
			assert.Equal(t, tt.want, c.Collapse(tt.raw), "raw=%#08x", tt.raw)
		})
	}
}

func TestCollapse_MatchesReference(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for range 10000 {
		raw := r.Uint32()
		a, b := reference(raw)

		assert.Equal(t, a, mustNew(t, EveryOther0).Collapse(raw))
		assert.Equal(t, b, mustNew(t, EveryOther1).Collapse(raw))
		assert.Equal(t, a|b, mustNew(t, OrPairs16).Collapse(raw))
		assert.Equal(t, uint16(raw>>16)|uint16(raw), mustNew(t, OrHalf16).Collapse(raw))
	}
}

func TestCollapse_Deterministic(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	for _, s := range Strategies() {
		c := mustNew(t, s)
		for range 1000 {
			raw := r.Uint32()
			require.Equal(t, c.Collapse(raw), c.Collapse(raw))
		}
	}
}

func TestCollapse_OrStrategiesAreLenient(t *testing.T) {
	// Setting extra raw bits can only add bits to the OR-collapsed value, so a
	// query print with a subset of the bits still shares all set bits.
	r := rand.New(rand.NewPCG(5, 6))
	for _, s := range []Strategy{OrPairs16, OrHalf16} {
		c := mustNew(t, s)
		for range 1000 {
			raw := r.Uint32()
			sub := raw & r.Uint32()
			assert.Equal(t, c.Collapse(sub), c.Collapse(sub)&c.Collapse(raw))
		}
	}
}

func TestCollapseAll(t *testing.T) {
	c := mustNew(t, LastHalf)
	raw := []uint32{0x10001, 0x20002, 0x30003}

	got := c.CollapseAll(nil, raw)
	assert.Equal(t, []uint16{1, 2, 3}, got)

	buf := make([]uint16, 0, 8)
	got = c.CollapseAll(buf, raw[:2])
	assert.Equal(t, []uint16{1, 2}, got)
	assert.Equal(t, 8, cap(got))
}

func TestParse(t *testing.T) {
	for _, s := range Strategies() {
		got, err := Parse(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := Parse("or_pairs_32")
	require.ErrorIs(t, err, ErrUnknownStrategy)

	_, err = New(Strategy(42))
	require.ErrorIs(t, err, ErrUnknownStrategy)
	assert.Equal(t, "Strategy(42)", Strategy(42).String())
}

func TestStrategy_Text(t *testing.T) {
	b, err := EveryOther1.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "every_other_1", string(b))

	var s Strategy
	require.NoError(t, s.UnmarshalText([]byte("first_half")))
	assert.Equal(t, FirstHalf, s)

	require.ErrorIs(t, s.UnmarshalText([]byte("bogus")), ErrUnknownStrategy)
}

func TestCollapsor_ZeroValue(t *testing.T) {
	var c Collapsor
	assert.Equal(t, OrPairs16, c.Strategy())
	assert.Equal(t, uint16(0xFFFF), c.Collapse(0xFFFFFFFF))
}
