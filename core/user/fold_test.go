package user

import (
	"encoding/json"
	"testing"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/stretchr/testify/require"

	"github.com/RHeactorJS/rheactor-server/core/es"
)

const testHash = "$2a$04$9J9g5cfQKyf1bMCQZg7oGua.CjHe5lfOQs4jW5fwGN/Gm5zTxPqh2"

func envelope(t *testing.T, version es.Version, event any) es.Envelope {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return es.Envelope{
		ID:            gonanoid.Must(),
		OccurredAt:    time.Date(2026, 3, int(version), 0, 0, 0, 0, time.UTC),
		AggregateType: AggregateType,
		AggregateID:   1,
		Type:          es.EventTypeOf(event),
		Version:       version,
		Data:          data,
	}
}

func createdEnvelope(t *testing.T) es.Envelope {
	return envelope(t, 1, &CreatedEvent{
		Email:     "john@example.com",
		Firstname: "John",
		Lastname:  "Doe",
		Password:  testHash,
	})
}

func TestFold_Created(t *testing.T) {
	env := createdEnvelope(t)
	u, err := Fold(nil, &CreatedEvent{
		Email:     "john@example.com",
		Firstname: "John",
		Lastname:  "Doe",
		Password:  testHash,
	}, env)
	require.NoError(t, err)
	require.EqualValues(t, 1, u.Meta.ID)
	require.EqualValues(t, 1, u.Meta.Version)
	require.Equal(t, env.OccurredAt, u.Meta.CreatedAt)
	require.Equal(t, "john@example.com", u.Email)
	require.Equal(t, "John Doe", u.Name())
	require.False(t, u.IsActive)
	require.True(t, u.ActivatedAt.IsZero())

	t.Run("created on existing aggregate fails", func(t *testing.T) {
		_, err := Fold(u, &CreatedEvent{}, envelope(t, 2, &CreatedEvent{}))
		require.Error(t, err)
	})

	t.Run("active at birth stamps activation time", func(t *testing.T) {
		active, err := Fold(nil, &CreatedEvent{
			Email:    "admin@example.com",
			Password: testHash,
			IsActive: true,
		}, env)
		require.NoError(t, err)
		require.True(t, active.IsActive)
		require.Equal(t, env.OccurredAt, active.ActivatedAt)
	})
}

func TestFold_Transitions(t *testing.T) {
	base, err := Fold(nil, &CreatedEvent{
		Email:     "john@example.com",
		Firstname: "John",
		Lastname:  "Doe",
		Password:  testHash,
	}, createdEnvelope(t))
	require.NoError(t, err)

	apply := func(t *testing.T, prior *User, event any) *User {
		t.Helper()
		env := envelope(t, prior.Meta.Version+1, event)
		next, err := Fold(prior, event, env)
		require.NoError(t, err)
		require.Equal(t, prior.Meta.Version+1, next.Meta.Version, "version bumps by exactly 1")
		require.Equal(t, env.OccurredAt, next.Meta.UpdatedAt)
		return next
	}

	t.Run("activate and deactivate", func(t *testing.T) {
		u := apply(t, base, &ActivatedEvent{})
		require.True(t, u.IsActive)
		require.False(t, u.ActivatedAt.IsZero())

		u = apply(t, u, &DeactivatedEvent{})
		require.False(t, u.IsActive)
		require.False(t, u.DeactivatedAt.IsZero())
	})

	t.Run("password change", func(t *testing.T) {
		u := apply(t, base, &PasswordChangedEvent{Password: "$2a$10$abcdefghijklmnopqrstuv"})
		require.Equal(t, "$2a$10$abcdefghijklmnopqrstuv", u.PasswordHash)
	})

	t.Run("email change", func(t *testing.T) {
		u := apply(t, base, &EmailChangedEvent{Email: "new@example.com", OldEmail: "john@example.com"})
		require.Equal(t, "new@example.com", u.Email)
	})

	t.Run("superuser flags", func(t *testing.T) {
		u := apply(t, base, &SuperUserGrantedEvent{})
		require.True(t, u.SuperUser)
		u = apply(t, u, &SuperUserRevokedEvent{})
		require.False(t, u.SuperUser)
	})

	t.Run("property change", func(t *testing.T) {
		u := apply(t, base, &PropertyChangedEvent{Property: "firstname", Value: "Jane"})
		require.Equal(t, "Jane", u.Firstname)
		u = apply(t, u, &PropertyChangedEvent{Property: "lastname", Value: "Smith"})
		require.Equal(t, "Smith", u.Lastname)
	})

	t.Run("unknown property fails", func(t *testing.T) {
		ev := &PropertyChangedEvent{Property: "shoeSize", Value: "44"}
		_, err := Fold(base, ev, envelope(t, 2, ev))
		require.ErrorIs(t, err, es.ErrUnhandledDomainEvent)
	})

	t.Run("preferences replaced by copy", func(t *testing.T) {
		prefs := map[string]any{"theme": "dark"}
		u := apply(t, base, &PreferencesChangedEvent{Preferences: prefs})
		require.Equal(t, "dark", u.Preferences["theme"])
		prefs["theme"] = "light"
		require.Equal(t, "dark", u.Preferences["theme"], "fold must copy the map")
	})

	t.Run("prior state untouched", func(t *testing.T) {
		_ = apply(t, base, &AvatarUpdatedEvent{Avatar: "https://example.com/a.png"})
		require.Empty(t, base.Avatar)
		require.EqualValues(t, 1, base.Meta.Version)
	})

	t.Run("event on uncreated aggregate fails", func(t *testing.T) {
		ev := &ActivatedEvent{}
		_, err := Fold(nil, ev, envelope(t, 1, ev))
		require.Error(t, err)
	})

	t.Run("unhandled event kind fails", func(t *testing.T) {
		type strangerEvent struct{}
		_, err := Fold(base, &strangerEvent{}, envelope(t, 2, &ActivatedEvent{}))
		require.ErrorIs(t, err, es.ErrUnhandledDomainEvent)
	})
}

func TestFold_ReplayDeterminism(t *testing.T) {
	registry := es.NewRegistry()
	RegisterEvents(registry)

	envs := []es.Envelope{
		createdEnvelope(t),
		envelope(t, 2, &ActivatedEvent{}),
		envelope(t, 3, &PropertyChangedEvent{Property: "firstname", Value: "Jane"}),
		envelope(t, 4, &PreferencesChangedEvent{Preferences: map[string]any{"lang": "de"}}),
	}

	a, err := es.Replay(registry, Fold, envs)
	require.NoError(t, err)
	b, err := es.Replay(registry, Fold, envs)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.EqualValues(t, 4, a.Meta.Version)
	require.Equal(t, "Jane", a.Firstname)
	require.True(t, a.IsActive)
}
