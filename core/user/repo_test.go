package user

import (
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RHeactorJS/rheactor-server/core/es"
	"github.com/RHeactorJS/rheactor-server/ports/idgen"
	"github.com/RHeactorJS/rheactor-server/ports/index"
)

func newTestRepo(t *testing.T) (*Repository, index.Index, *idgen.MemAllocator) {
	t.Helper()
	idx := index.NewMemIndex()
	ids := idgen.NewMemAllocator()
	repo := NewRepository(slog.Default(), es.NewInMemoryStore(), idx, ids)
	return repo, idx, ids
}

func draft(email string) Draft {
	return Draft{
		Email:        email,
		Firstname:    "John",
		Lastname:     "Doe",
		PasswordHash: testHash,
	}
}

func TestRepository_Add(t *testing.T) {
	repo, idx, ids := newTestRepo(t)

	u, err := repo.Add(t.Context(), draft("John@Example.com"))
	require.NoError(t, err)
	require.EqualValues(t, 1, u.Meta.ID)
	require.EqualValues(t, 1, u.Meta.Version)
	require.Equal(t, "john@example.com", u.Email, "emails are lowercased")

	t.Run("email is reserved", func(t *testing.T) {
		id, err := idx.Lookup(t.Context(), EmailIndex, "john@example.com")
		require.NoError(t, err)
		require.EqualValues(t, 1, id)
	})

	t.Run("duplicate email fails before append", func(t *testing.T) {
		_, err := repo.Add(t.Context(), draft("john@example.com"))
		require.ErrorIs(t, err, es.ErrEntryAlreadyExists)

		// the loser's id is burned, never written
		cur, err := ids.Current(t.Context())
		require.NoError(t, err)
		require.EqualValues(t, 2, cur)

		burned, err := repo.FindByID(t.Context(), 2)
		require.NoError(t, err)
		require.Nil(t, burned)
	})

	t.Run("duplicate differing only in case fails", func(t *testing.T) {
		_, err := repo.Add(t.Context(), draft("JOHN@EXAMPLE.COM"))
		require.ErrorIs(t, err, es.ErrEntryAlreadyExists)
	})

	t.Run("invalid draft fails without allocating", func(t *testing.T) {
		before, err := ids.Current(t.Context())
		require.NoError(t, err)

		_, err = repo.Add(t.Context(), draft("not-an-email"))
		require.ErrorIs(t, err, es.ErrValidationFailed)

		after, err := ids.Current(t.Context())
		require.NoError(t, err)
		require.Equal(t, before, after)
	})
}

func TestRepository_ConcurrentAdd(t *testing.T) {
	repo, _, _ := newTestRepo(t)

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
			_, err := repo.Add(t.Context(), draft("race@example.com"))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else {
				require.ErrorIs(t, err, es.ErrEntryAlreadyExists)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, succeeded, "exactly one registration wins the email")

	u, err := repo.GetByEmail(t.Context(), "race@example.com")
	require.NoError(t, err)
	require.EqualValues(t, 1, u.Meta.Version)
}

func TestRepository_Lookups(t *testing.T) {
	repo, _, _ := newTestRepo(t)

	u, err := repo.Add(t.Context(), draft("john@example.com"))
	require.NoError(t, err)

	t.Run("get by id", func(t *testing.T) {
		got, err := repo.GetByID(t.Context(), u.Meta.ID)
		require.NoError(t, err)
		require.Equal(t, u, got)
	})

	t.Run("get by email is case-insensitive", func(t *testing.T) {
		got, err := repo.GetByEmail(t.Context(), "John@Example.COM")
		require.NoError(t, err)
		require.Equal(t, u.Meta.ID, got.Meta.ID)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := repo.GetByID(t.Context(), 999)
		require.ErrorIs(t, err, es.ErrEntryNotFound)

		got, err := repo.FindByID(t.Context(), 999)
		require.NoError(t, err)
		require.Nil(t, got)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := repo.GetByEmail(t.Context(), "nobody@example.com")
		require.ErrorIs(t, err, es.ErrEntryNotFound)

		got, err := repo.FindByEmail(t.Context(), "nobody@example.com")
		require.NoError(t, err)
		require.Nil(t, got)
	})
}

func TestRepository_ApplyCommand(t *testing.T) {
	repo, _, _ := newTestRepo(t)

	u, err := repo.Add(t.Context(), draft("john@example.com"))
	require.NoError(t, err)

	t.Run("appends and folds", func(t *testing.T) {
		ev, err := u.Activate()
		require.NoError(t, err)

		next, err := repo.ApplyCommand(t.Context(), u, u.Meta.ID, ev)
		require.NoError(t, err)
		require.True(t, next.IsActive)
		require.EqualValues(t, 2, next.Meta.Version)
		u = next
	})

	t.Run("stale state conflicts and writes nothing", func(t *testing.T) {
		stale := u.clone()
		stale.Meta.Version = 1

		ev, err := stale.SetFirstname("Jane")
		require.NoError(t, err)

		_, err = repo.ApplyCommand(t.Context(), stale, stale.Meta.ID, ev)
		require.ErrorIs(t, err, es.ErrConflict)

		fresh, err := repo.GetByID(t.Context(), u.Meta.ID)
		require.NoError(t, err)
		require.Equal(t, "John", fresh.Firstname)
		require.EqualValues(t, 2, fresh.Meta.Version)
	})
}

func TestRepository_EmailChange(t *testing.T) {
	repo, idx, _ := newTestRepo(t)

	u, err := repo.Add(t.Context(), draft("john@example.com"))
	require.NoError(t, err)
	_, err = repo.Add(t.Context(), draft("taken@example.com"))
	require.NoError(t, err)

	t.Run("moves the index entry", func(t *testing.T) {
		ev, err := u.SetEmail("new@example.com")
		require.NoError(t, err)

		next, err := repo.ApplyCommand(t.Context(), u, u.Meta.ID, ev.(*EmailChangedEvent))
		require.NoError(t, err)
		require.Equal(t, "new@example.com", next.Email)

		id, err := idx.Lookup(t.Context(), EmailIndex, "new@example.com")
		require.NoError(t, err)
		require.Equal(t, u.Meta.ID, id)

		_, err = idx.Lookup(t.Context(), EmailIndex, "john@example.com")
		require.ErrorIs(t, err, index.ErrNotFound)
		u = next
	})

	t.Run("taken address fails", func(t *testing.T) {
		ev, err := u.SetEmail("taken@example.com")
		require.NoError(t, err)

		_, err = repo.ApplyCommand(t.Context(), u, u.Meta.ID, ev)
		require.ErrorIs(t, err, es.ErrEntryAlreadyExists)
	})

	t.Run("lost version race rolls back the reservation", func(t *testing.T) {
		stale := u.clone()
		stale.Meta.Version = 1

		ev, err := stale.SetEmail("fresh@example.com")
		require.NoError(t, err)

		_, err = repo.ApplyCommand(t.Context(), stale, stale.Meta.ID, ev)
		require.ErrorIs(t, err, es.ErrConflict)

		_, err = idx.Lookup(t.Context(), EmailIndex, "fresh@example.com")
		require.ErrorIs(t, err, index.ErrNotFound, "reservation must be rolled back")
	})
}

func TestRepository_ListAll(t *testing.T) {
	repo, _, _ := newTestRepo(t)

	for i := 0; i < 5; i++ {
		_, err := repo.Add(t.Context(), draft(fmt.Sprintf("user-%d@example.com", i)))
		require.NoError(t, err)
	}
	// burn an id with a duplicate
	_, err := repo.Add(t.Context(), draft("user-0@example.com"))
	require.ErrorIs(t, err, es.ErrEntryAlreadyExists)

	items, total, err := repo.ListAll(t.Context(), 0, 3)
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Len(t, items, 3)
	require.Equal(t, "user-0@example.com", items[0].Email)

	items, total, err = repo.ListAll(t.Context(), 3, 3)
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Len(t, items, 2)
	require.Equal(t, "user-4@example.com", items[1].Email)
}
