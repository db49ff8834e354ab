package xcorrsound

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/xcorrsound/blobstore"
	"github.com/hupe1980/xcorrsound/codec"
	"github.com/hupe1980/xcorrsound/fingerprint"
	"github.com/hupe1980/xcorrsound/testutil"
)

func TestSaveLoad_RoundTrip(t *testing.T) {
	for _, c := range []codec.Codec{codec.JSON{}, codec.GoJSON{}} {
		t.Run(c.Name(), func(t *testing.T) {
			ctx := context.Background()
			store := blobstore.NewMemoryStore()
			d, recs := newRandomDiscovery(t)
			require.NoError(t, d.Save(ctx, store, "shard-0", c))

			src := fingerprint.NewMapSource()
			for i, p := range recs {
				src.Set(recordingID(i), p)
			}
			loaded, err := Load(ctx, store, "shard-0", SourceResolver{Source: src}, WithLogger(NoopLogger()))
			require.NoError(t, err)

			want, got := d.Stats(), loaded.Stats()
			want.ChunkCapacity, got.ChunkCapacity = 0, 0
			assert.Equal(t, want, got)
			rec, ok := loaded.Recording("rec-1")
			require.True(t, ok)
			assert.Equal(t, KindSource, rec.Kind())

			q := ChunkedQuery{TopX: 3, ChunkLength: 300}
			snippet := NewMemoryRecording("s", recs[1][2300:2600])
			before, err := d.FindCandidatesChunked(ctx, snippet, q)
			require.NoError(t, err)
			after, err := loaded.FindCandidatesChunked(ctx, snippet, q)
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestSaveLoad_LocalStoreAndPrinted(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewLocalStore(t.TempDir())

	day := testutil.NewRNG(31).Prints(3000)
	require.NoError(t, store.Put(ctx, "prints/day.rawPrints", fingerprint.Encode(day)))

	d := testDiscovery(t, WithChunkLength(500), WithChunkOverlap(100), WithCollapseStrategy(EveryOther1))
	for i, off := range []int{0, 1000, 2000} {
		rec, err := NewPrintedRecording("hour-"+string(rune('0'+i)), store, "prints/day.rawPrints", off, 1000)
		require.NoError(t, err)
		require.NoError(t, d.AddRecording(ctx, rec))
	}
	require.NoError(t, d.Save(ctx, store, "index/day", nil))

	names, err := ListSnapshots(ctx, store, "index/")
	require.NoError(t, err)
	assert.Equal(t, []string{"index/day"}, names)

	m, err := ReadManifest(ctx, store, "index/day")
	require.NoError(t, err)
	assert.Equal(t, codec.Default.Name(), m.Codec)
	assert.Equal(t, EveryOther1, m.Strategy)
	require.Len(t, m.Recordings, 3)
	assert.Equal(t, RecordingRecord{ID: "hour-1", Kind: KindPrinted, Prints: 1000, Blob: "prints/day.rawPrints", Offset: 1000, Length: 1000}, m.Recordings[1])

	loaded, err := Load(ctx, store, "index/day", SourceResolver{Store: store}, WithLogger(NoopLogger()))
	require.NoError(t, err)
	assert.Equal(t, EveryOther1, loaded.Strategy())
	assert.Equal(t, 500, loaded.ChunkLength())

	lists, err := loaded.FindCandidatesChunked(ctx, NewMemoryRecording("s", day[2100:2200]), ChunkedQuery{TopX: 1, ChunkLength: 100})
	require.NoError(t, err)
	require.Len(t, lists, 1)
	require.Len(t, lists[0], 1)
	assert.Equal(t, "hour-2", lists[0][0].Recording)
	assert.Equal(t, 100, lists[0][0].RawOffset)
	assert.InDelta(t, 1.0, lists[0][0].RawScore, 1e-9)
}

func TestLoad_Errors(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	resolver := SourceResolver{Source: fingerprint.NewMapSource()}

	_, err := Load(ctx, store, "missing", resolver, WithLogger(NoopLogger()))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Load(ctx, store, "missing", nil, WithLogger(NoopLogger()))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	d := newScenario(t)
	require.NoError(t, d.Save(ctx, store, "s", codec.JSON{}))

	require.NoError(t, store.Put(ctx, "bad"+ManifestSuffix, []byte("json\n{not json")))
	_, err = Load(ctx, store, "bad", resolver, WithLogger(NoopLogger()))
	assert.ErrorIs(t, err, ErrCorrupt)

	require.NoError(t, store.Put(ctx, "bad"+ManifestSuffix, []byte("msgpack\n{}")))
	_, err = Load(ctx, store, "bad", resolver, WithLogger(NoopLogger()))
	assert.ErrorIs(t, err, ErrCorrupt)

	require.NoError(t, store.Put(ctx, "bad"+ManifestSuffix, []byte(`json`+"\n"+`{"version":7}`)))
	_, err = Load(ctx, store, "bad", resolver, WithLogger(NoopLogger()))
	assert.ErrorIs(t, err, ErrCorrupt)

	// Index without a matching manifest entry count.
	data, err := blobstore.ReadAll(ctx, store, "s"+IndexSuffix)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "bad"+IndexSuffix, data))
	require.NoError(t, store.Put(ctx, "bad"+ManifestSuffix, []byte(`json`+"\n"+`{"version":1,"strategy":"last_half","chunk_length":3,"chunk_overlap":1,"recordings":[]}`)))
	_, err = Load(ctx, store, "bad", resolver, WithLogger(NoopLogger()))
	assert.ErrorIs(t, err, ErrCorrupt)

	// Flipped byte in the index.
	data[len(data)/2] ^= 0xFF
	require.NoError(t, store.Put(ctx, "s"+IndexSuffix, data))
	_, err = Load(ctx, store, "s", resolver, WithLogger(NoopLogger()))
	assert.ErrorIs(t, err, ErrCorrupt)

	// Printed recordings need a store.
	_, err = SourceResolver{}.Resolve(ctx, RecordingRecord{ID: "x", Kind: KindPrinted})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = SourceResolver{}.Resolve(ctx, RecordingRecord{ID: "x", Kind: KindSource})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestLoadArchive(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	shards, prints := newShards(t, 2)

	src := fingerprint.NewMapSource()
	for i, s := range shards {
		name := "archive/shard-" + string(rune('0'+i))
		require.NoError(t, s.Save(ctx, store, name, nil))
		for j, p := range prints[i] {
			src.Set("s"+string(rune('0'+i))+"-r"+string(rune('0'+j)), p)
		}
	}

	names, err := ListSnapshots(ctx, store, "archive/")
	require.NoError(t, err)
	require.Len(t, names, 2)

	a, err := LoadArchive(ctx, store, names, SourceResolver{Source: src},
		[]Option{WithLogger(NoopLogger())}, WithArchiveLogger(NoopLogger()))
	require.NoError(t, err)
	defer a.Close()

	res, err := a.Search(ctx, NewMemoryRecording("s", prints[1][0][100:400]), ChunkedQuery{TopX: 1, ChunkLength: 300})
	require.NoError(t, err)
	require.NoError(t, res.Err())
	require.Len(t, res.Hits[0], 1)
	assert.Equal(t, "s1-r0", res.Hits[0][0].Recording)
	assert.Equal(t, 1, res.Hits[0][0].Shard)
}

// gatedStore blocks the index upload until release is closed.
type gatedStore struct {
	*blobstore.MemoryStore
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) Put(ctx context.Context, name string, data []byte) error {
	if strings.HasSuffix(name, IndexSuffix) {
		close(s.entered)
		<-s.release
	}
	return s.MemoryStore.Put(ctx, name, data)
}

func TestSave_DoesNotBlockAdds(t *testing.T) {
	ctx := context.Background()
	store := &gatedStore{MemoryStore: blobstore.NewMemoryStore(), entered: make(chan struct{}), release: make(chan struct{})}
	d := newScenario(t)

	saved := make(chan error, 1)
	go func() { saved <- d.Save(ctx, store, "s", nil) }()
	<-store.entered

	added := make(chan error, 1)
	go func() { added <- d.AddRecording(ctx, NewMemoryRecording("late", testutil.Chars("xyz"))) }()
	select {
	case err := <-added:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("AddRecording blocked by an upload in progress")
	}

	close(store.release)
	require.NoError(t, <-saved)

	m, err := ReadManifest(ctx, store, "s")
	require.NoError(t, err)
	assert.Len(t, m.Recordings, 2)
	assert.Equal(t, 3, d.Stats().Recordings)
}
