package blobstore

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("PutOpenRead", func(t *testing.T) {
		data := []byte("hello fingerprints")
		require.NoError(t, store.Put(ctx, "a/rec.rawPrints", data))

		ok, err := store.Exists(ctx, "a/rec.rawPrints")
		require.NoError(t, err)
		assert.True(t, ok)

		b, err := store.Open(ctx, "a/rec.rawPrints")
		require.NoError(t, err)
		defer b.Close()

		assert.Equal(t, int64(len(data)), b.Size())

		buf := make([]byte, 5)
		n, err := b.ReadAt(ctx, buf, 6)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, "finge", string(buf))

		n, err = b.ReadAt(ctx, make([]byte, 10), int64(len(data))-2)
		assert.Equal(t, 2, n)
		assert.Equal(t, io.EOF, err)

		rc, err := b.ReadRange(ctx, 0, 5)
		require.NoError(t, err)
		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		assert.Equal(t, "hello", string(got))

		all, err := ReadAll(ctx, store, "a/rec.rawPrints")
		require.NoError(t, err)
		assert.Equal(t, data, all)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "over", []byte("one")))
		require.NoError(t, store.Put(ctx, "over", []byte("three")))

		all, err := ReadAll(ctx, store, "over")
		require.NoError(t, err)
		assert.Equal(t, "three", string(all))
	})

	t.Run("Create", func(t *testing.T) {
		w, err := store.Create(ctx, "streamed")
		require.NoError(t, err)
		_, err = w.Write([]byte("part1-"))
		require.NoError(t, err)
		_, err = w.Write([]byte("part2"))
		require.NoError(t, err)
		require.NoError(t, w.Sync())
		require.NoError(t, w.Close())

		all, err := ReadAll(ctx, store, "streamed")
		require.NoError(t, err)
		assert.Equal(t, "part1-part2", string(all))
	})

	t.Run("Empty", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "empty", nil))
		all, err := ReadAll(ctx, store, "empty")
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := store.Open(ctx, "missing")
		assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

		ok, err := store.Exists(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = ReadAll(ctx, store, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ListDelete", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "list/b", []byte("b")))
		require.NoError(t, store.Put(ctx, "list/a", []byte("a")))

		names, err := store.List(ctx, "list/")
		require.NoError(t, err)
		assert.Equal(t, []string{"list/a", "list/b"}, names)

		require.NoError(t, store.Delete(ctx, "list/a"))
		require.NoError(t, store.Delete(ctx, "list/a"))

		names, err = store.List(ctx, "list/")
		require.NoError(t, err)
		assert.Equal(t, []string{"list/b"}, names)
	})
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestLocalStore(t *testing.T) {
	testStore(t, NewLocalStore(t.TempDir()))
}

func TestLocalStore_MissingRoot(t *testing.T) {
	s := NewLocalStore(t.TempDir() + "/does/not/exist")
	names, err := s.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLocalStore_Mappable(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore(t.TempDir())
	require.NoError(t, s.Put(ctx, "m", []byte("mapped")))

	b, err := s.Open(ctx, "m")
	require.NoError(t, err)
	defer b.Close()

	m, ok := b.(Mappable)
	require.True(t, ok)
	data, err := m.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "mapped", string(data))
}

func TestLocalStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewLocalStore(t.TempDir())
	_, err := s.Open(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Put(ctx, "x", []byte("x")), context.Canceled)
}
