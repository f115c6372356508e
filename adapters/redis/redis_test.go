package redis

import (
	"sync"
	"testing"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/stretchr/testify/require"

	"github.com/RHeactorJS/rheactor-server/core/es"
	"github.com/RHeactorJS/rheactor-server/ports/index"
)

func newTestClient(t *testing.T) *Store {
	connect := NewTestContainer(t)
	client, closeClient, err := connect()
	require.NoError(t, err)
	t.Cleanup(closeClient)
	return NewStore(client)
}

func testEnvelope(aggID int64, version es.Version) es.Envelope {
	return es.Envelope{
		ID:            gonanoid.Must(),
		OccurredAt:    time.Now(),
		AggregateType: "test",
		AggregateID:   aggID,
		Type:          "foobar",
		Version:       version,
	}
}

func TestStore_Append(t *testing.T) {
	store := newTestClient(t)

	t.Run("append and load", func(t *testing.T) {
		res, err := store.Append(t.Context(), "test", 123, 0, []es.Envelope{
			testEnvelope(123, 1),
			testEnvelope(123, 2),
			testEnvelope(123, 3),
		})
		require.NoError(t, err)
		require.NotNil(t, res)
		require.EqualValues(t, 3, res.LastSeq)

		events, err := store.Load(t.Context(), "test", 123)
		require.NoError(t, err)
		require.Len(t, events, 3)
		require.EqualValues(t, 1, events[0].Version)
		require.EqualValues(t, 3, events[2].Version)
		require.EqualValues(t, 1, events[0].Seq)
		require.EqualValues(t, 3, events[2].Seq)
	})

	t.Run("stale expected version conflicts", func(t *testing.T) {
		_, err := store.Append(t.Context(), "test", 123, 1, []es.Envelope{
			testEnvelope(123, 2),
		})
		require.ErrorIs(t, err, es.ErrConflict)
	})

	t.Run("sequence spans streams", func(t *testing.T) {
		res, err := store.Append(t.Context(), "test", 456, 0, []es.Envelope{
			testEnvelope(456, 1),
		})
		require.NoError(t, err)
		require.EqualValues(t, 4, res.LastSeq)
	})

	t.Run("unknown stream", func(t *testing.T) {
		_, err := store.Load(t.Context(), "test", 999)
		require.ErrorIs(t, err, es.ErrEntryNotFound)
	})
}

func TestStore_ConcurrentAppend(t *testing.T) {
	store := newTestClient(t)

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Append(t.Context(), "test", 1, 0, []es.Envelope{
				testEnvelope(1, 1),
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else {
				require.ErrorIs(t, err, es.ErrConflict)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, succeeded, "exactly one writer wins version 1")

	events, err := store.Load(t.Context(), "test", 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestIndex(t *testing.T) {
	store := newTestClient(t)
	idx := NewIndex(store.client)

	t.Run("reserve and lookup", func(t *testing.T) {
		require.NoError(t, idx.Reserve(t.Context(), "user.email", "john@example.com", 17))

		id, err := idx.Lookup(t.Context(), "user.email", "john@example.com")
		require.NoError(t, err)
		require.EqualValues(t, 17, id)
	})

	t.Run("double reserve fails", func(t *testing.T) {
		err := idx.Reserve(t.Context(), "user.email", "john@example.com", 18)
		require.ErrorIs(t, err, index.ErrAlreadyExists)

		id, err := idx.Lookup(t.Context(), "user.email", "john@example.com")
		require.NoError(t, err)
		require.EqualValues(t, 17, id, "losing reservation must not overwrite")
	})

	t.Run("remove frees the key", func(t *testing.T) {
		require.NoError(t, idx.Remove(t.Context(), "user.email", "john@example.com"))

		_, err := idx.Lookup(t.Context(), "user.email", "john@example.com")
		require.ErrorIs(t, err, index.ErrNotFound)

		require.NoError(t, idx.Reserve(t.Context(), "user.email", "john@example.com", 18))
	})

	t.Run("remove absent key is a no-op", func(t *testing.T) {
		require.NoError(t, idx.Remove(t.Context(), "user.email", "nobody@example.com"))
	})
}

func TestAllocator(t *testing.T) {
	store := newTestClient(t)
	alloc := NewAllocator(store.client, "test:ids")

	cur, err := alloc.Current(t.Context())
	require.NoError(t, err)
	require.EqualValues(t, 0, cur)

	for want := int64(1); want <= 5; want++ {
		id, err := alloc.Next(t.Context())
		require.NoError(t, err)
		require.Equal(t, want, id)
	}

	cur, err = alloc.Current(t.Context())
	require.NoError(t, err)
	require.EqualValues(t, 5, cur)
}
