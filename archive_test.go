package xcorrsound

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/xcorrsound/testutil"
)

// stallingRecording serves its prints once, then blocks until the context ends.
type stallingRecording struct {
	id     string
	prints []uint32
	served atomic.Bool
}

func (r *stallingRecording) ID() string { return r.id }
func (r *stallingRecording) Kind() Kind { return KindMemory }
func (r *stallingRecording) RawPrints(ctx context.Context) ([]uint32, error) {
	if r.served.CompareAndSwap(false, true) {
		return r.prints, nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

// failingRecording serves its prints once, then fails.
type failingRecording struct {
	stallingRecording
	err error
}

func (r *failingRecording) RawPrints(context.Context) ([]uint32, error) {
	if r.served.CompareAndSwap(false, true) {
		return r.prints, nil
	}
	return nil, r.err
}

// newShards builds count shards with two random recordings of 3000 prints each.
// Recording j of shard i has the ID "s<i>-r<j>".
func newShards(t *testing.T, count int) ([]*Discovery, [][][]uint32) {
	t.Helper()
	rng := testutil.NewRNG(2024)
	shards := make([]*Discovery, count)
	prints := make([][][]uint32, count)
	for i := range shards {
		shards[i] = testDiscovery(t, WithChunkLength(1000), WithChunkOverlap(400), WithCollapseStrategy(LastHalf))
		prints[i] = rng.Recordings(2, 3000)
		for j, p := range prints[i] {
			id := "s" + string(rune('0'+i)) + "-r" + string(rune('0'+j))
			require.NoError(t, shards[i].AddRecording(context.Background(), NewMemoryRecording(id, p)))
		}
	}
	return shards, prints
}

func TestArchive_Search(t *testing.T) {
	shards, prints := newShards(t, 3)
	mc := &BasicMetricsCollector{}
	a, err := NewArchive(shards, WithParallelism(2), WithArchiveLogger(NoopLogger()), WithArchiveMetrics(mc))
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, 3, a.Shards())
	assert.Equal(t, 2, a.Workers())

	snippet := NewMemoryRecording("snippet", prints[2][1][1200:1500])
	res, err := a.Search(context.Background(), snippet, ChunkedQuery{TopX: 4, ChunkLength: 300})
	require.NoError(t, err)
	require.NoError(t, res.Err())
	require.Len(t, res.Hits, 1)
	require.Len(t, res.Hits[0], 4)

	top := res.Hits[0][0]
	assert.Equal(t, "s2-r1", top.Recording)
	assert.Equal(t, 2, top.Shard)
	assert.Equal(t, 1200, top.RawOffset)
	assert.InDelta(t, 1.0, top.RawScore, 1e-9)

	for i := 1; i < len(res.Hits[0]); i++ {
		assert.LessOrEqual(t, CompareHits(res.Hits[0][i-1], res.Hits[0][i]), 0)
	}
	assert.Equal(t, int64(3), mc.GetStats().ShardCount)
}

func TestArchive_WorkersBoundedByShards(t *testing.T) {
	shards, _ := newShards(t, 2)
	a, err := NewArchive(shards, WithParallelism(16), WithArchiveLogger(NoopLogger()))
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, 2, a.Workers())
}

func TestArchive_ShardFailureIsIsolated(t *testing.T) {
	ctx := context.Background()
	shards, prints := newShards(t, 2)

	boom := errors.New("disk gone")
	rec := &failingRecording{stallingRecording: stallingRecording{id: "bad", prints: testutil.NewRNG(1).Prints(2000)}, err: boom}
	bad := testDiscovery(t, WithChunkLength(1000), WithChunkOverlap(400), WithCollapseStrategy(LastHalf))
	require.NoError(t, bad.AddRecording(ctx, rec))
	shards = append(shards, bad)

	a, err := NewArchive(shards, WithArchiveLogger(NoopLogger()))
	require.NoError(t, err)
	defer a.Close()

	// The snippet matches shard 0 and the failing recording.
	snip := append(append([]uint32{}, prints[0][0][0:150]...), rec.prints[0:150]...)
	res, err := a.Search(ctx, NewMemoryRecording("snippet", snip), ChunkedQuery{TopX: 3, ChunkLength: 300})
	require.NoError(t, err)

	require.Len(t, res.Failures, 1)
	assert.Equal(t, 2, res.Failures[0].Shard)
	assert.ErrorIs(t, res.Err(), boom)

	require.Len(t, res.Hits, 1)
	require.NotEmpty(t, res.Hits[0])
	assert.Equal(t, "s0-r0", res.Hits[0][0].Recording)
	assert.Equal(t, 0, res.Hits[0][0].Shard)
}

func TestArchive_ShardTimeout(t *testing.T) {
	ctx := context.Background()
	shards, prints := newShards(t, 2)

	rec := &stallingRecording{id: "slow", prints: prints[0][0]}
	slow := testDiscovery(t, WithChunkLength(1000), WithChunkOverlap(400), WithCollapseStrategy(LastHalf))
	require.NoError(t, slow.AddRecording(ctx, rec))
	shards = append(shards, slow)

	a, err := NewArchive(shards, WithShardTimeout(500*time.Millisecond), WithArchiveLogger(NoopLogger()))
	require.NoError(t, err)
	defer a.Close()

	start := time.Now()
	res, err := a.Search(ctx, NewMemoryRecording("snippet", prints[0][0][500:800]), ChunkedQuery{TopX: 2, ChunkLength: 300})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)

	require.Len(t, res.Failures, 1)
	assert.Equal(t, 2, res.Failures[0].Shard)
	assert.ErrorIs(t, res.Failures[0], ErrShardTimeout)

	require.Len(t, res.Hits, 1)
	require.NotEmpty(t, res.Hits[0])
	assert.Equal(t, "s0-r0", res.Hits[0][0].Recording)
	for _, h := range res.Hits[0] {
		assert.NotEqual(t, "slow", h.Recording)
	}
}

func TestArchive_Errors(t *testing.T) {
	_, err := NewArchive(nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewArchive([]*Discovery{nil})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	shards, _ := newShards(t, 1)
	_, err = NewArchive(shards, WithShardTimeout(0))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	a, err := NewArchive(shards, WithArchiveLogger(NoopLogger()))
	require.NoError(t, err)

	_, err = a.Search(context.Background(), NewMemoryRecording("s", []uint32{1}), ChunkedQuery{TopX: 1})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	_, err = a.Search(context.Background(), NewMemoryRecording("s", []uint32{1}), ChunkedQuery{TopX: 1, ChunkLength: 1})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMergeShardHits(t *testing.T) {
	perShard := [][][]Hit{
		{{{Recording: "a", Matches: 5}}, {{Recording: "a", Matches: 1}}},
		nil,
		{{{Recording: "b", Matches: 9}, {Recording: "c", Matches: 2}}},
	}
	merged := mergeShardHits(perShard, 2)
	require.Len(t, merged, 2)
	assert.Equal(t, []string{"b", "a"}, []string{merged[0][0].Recording, merged[0][1].Recording})
	assert.Len(t, merged[1], 1)
}
