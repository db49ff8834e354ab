package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	ID     string `json:"id"`
	Prints int    `json:"prints"`
	Blob   string `json:"blob,omitempty"`
}

type manifest struct {
	Version int     `json:"version"`
	Entries []entry `json:"entries"`
}

func TestByName(t *testing.T) {
	for _, name := range Names() {
		c, ok := ByName(name)
		require.True(t, ok, name)
		assert.Equal(t, name, c.Name())
	}

	_, ok := ByName("msgpack")
	assert.False(t, ok)
}

func TestCodecs_Interchangeable(t *testing.T) {
	in := manifest{Version: 1, Entries: []entry{
		{ID: "radio-1987-05-01", Prints: 51600},
		{ID: "hour-2", Prints: 1000, Blob: "prints/day.rawPrints"},
	}}

	for _, w := range []Codec{JSON{}, GoJSON{}} {
		for _, r := range []Codec{JSON{}, GoJSON{}} {
			data, err := w.Marshal(in)
			require.NoError(t, err)

			var out manifest
			require.NoError(t, r.Unmarshal(data, &out), "%s -> %s", w.Name(), r.Name())
			assert.Equal(t, in, out)
		}
	}
}

func TestUnmarshal_Invalid(t *testing.T) {
	var out manifest
	assert.Error(t, JSON{}.Unmarshal([]byte("{not json"), &out))
	assert.Error(t, GoJSON{}.Unmarshal([]byte("{not json"), &out))
}

func TestMustMarshal(t *testing.T) {
	assert.JSONEq(t, `{"version":2,"entries":null}`, string(MustMarshal(nil, manifest{Version: 2})))
	assert.Panics(t, func() { MustMarshal(JSON{}, make(chan int)) })
}

func BenchmarkCodec_Marshal(b *testing.B) {
	m := manifest{Version: 1}
	for i := range 1000 {
		m.Entries = append(m.Entries, entry{ID: "rec", Prints: i})
	}
	for _, c := range []Codec{JSON{}, GoJSON{}} {
		b.Run(c.Name(), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				if _, err := c.Marshal(m); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
