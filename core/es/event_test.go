package es

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

type somethingHappened struct {
	What string `json:"what"`
}

type renamedEvent struct{}

func (renamedEvent) EventType() string { return "LegacyWireName" }

func TestEventTypeOf(t *testing.T) {
	require.Equal(t, "somethingHappened", EventTypeOf(&somethingHappened{}))
	require.Equal(t, "somethingHappened", EventTypeOf(somethingHappened{}))
	require.Equal(t, "LegacyWireName", EventTypeOf(&renamedEvent{}))
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	RegisterEvents(registry,
		Event[somethingHappened](),
		Event[renamedEvent](),
	)

	t.Run("decode", func(t *testing.T) {
		ev, err := registry.Decode(Envelope{
			Type: "somethingHappened",
			Data: json.RawMessage(`{"what":"boom"}`),
		})
		require.NoError(t, err)
		require.Equal(t, &somethingHappened{What: "boom"}, ev)
	})

	t.Run("decode by wire name", func(t *testing.T) {
		ev, err := registry.Decode(Envelope{Type: "LegacyWireName"})
		require.NoError(t, err)
		require.IsType(t, &renamedEvent{}, ev)
	})

	t.Run("fresh instance per decode", func(t *testing.T) {
		a, err := registry.Decode(Envelope{Type: "somethingHappened", Data: json.RawMessage(`{"what":"a"}`)})
		require.NoError(t, err)
		b, err := registry.Decode(Envelope{Type: "somethingHappened", Data: json.RawMessage(`{"what":"b"}`)})
		require.NoError(t, err)
		require.NotSame(t, a, b)
		require.Equal(t, "a", a.(*somethingHappened).What)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := registry.Decode(Envelope{Type: "NobodyKnowsThis"})
		require.ErrorIs(t, err, ErrUnhandledDomainEvent)
	})
}
