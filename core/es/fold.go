package es

import (
	"fmt"
	"time"
)

// Meta carries the aggregate metadata shared by every event-sourced entity:
// identity, stream version and the lifecycle timestamps.
type Meta struct {
	ID        int64     `json:"id"`
	Version   Version   `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	DeletedAt time.Time `json:"deleted_at,omitzero"`
}

// NewMeta returns the metadata of a freshly created aggregate: version 1,
// created and updated at the time of the first event.
func NewMeta(id int64, createdAt time.Time) Meta {
	return Meta{ID: id, Version: 1, CreatedAt: createdAt, UpdatedAt: createdAt}
}

// Updated returns a copy with the version bumped by exactly 1 and the
// update timestamp set to the event time.
func (m Meta) Updated(at time.Time) Meta {
	m.Version++
	m.UpdatedAt = at
	return m
}

// Deleted returns a copy marked deleted. Not used by every entity but part
// of the general contract.
func (m Meta) Deleted(at time.Time) Meta {
	m = m.Updated(at)
	m.DeletedAt = at
	return m
}

func (m Meta) IsDeleted() bool { return !m.DeletedAt.IsZero() }

// FoldFunc is the entity-specific projector: a pure, deterministic function
// mapping (prior state or nil, decoded event, envelope) to the next state.
// It must be total over the entity's event kind enumeration and fail with
// ErrUnhandledDomainEvent for anything else.
type FoldFunc[S any] func(prior *S, event any, env Envelope) (*S, error)

// Replay folds an ordered stream of envelopes into state, starting from the
// initial "does not exist" state (nil). It verifies version continuity:
// envelope n must carry version n. Replay returns (nil, nil) for an empty
// stream; callers decide whether that is an error.
func Replay[S any](registry *EventRegistry, fold FoldFunc[S], envs []Envelope) (*S, error) {
	var (
		state   *S
		version Version
	)
	for _, env := range envs {
		if env.Version != version+1 {
			return nil, fmt.Errorf("replay %s-%d: expect version %d, got %d", env.AggregateType, env.AggregateID, version+1, env.Version)
		}

		ev, err := registry.Decode(env)
		if err != nil {
			return nil, err
		}

		state, err = fold(state, ev, env)
		if err != nil {
			return nil, err
		}

		version = env.Version
	}
	return state, nil
}
