package es

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// IDGenerator is a function that generates unique IDs for event envelopes.
type IDGenerator func() string

// DefaultIDGenerator returns the default ID generator using nanoid.
func DefaultIDGenerator() IDGenerator {
	return func() string { return gonanoid.Must() }
}

// Hook is invoked after an envelope has been durably appended. Hooks run
// synchronously in append order; side-effect dispatch beyond that (queues,
// notification fan-out) is the hook's own business.
type Hook func(env Envelope)

type (
	repoOpts struct {
		idGenerator IDGenerator
		metrics     ESMetrics
		now         func() time.Time
	}

	RepositoryOption interface{ applyToRepository(*repoOpts) }

	repoIDGeneratorOption struct{ v IDGenerator }
	repoNowOption         struct{ v func() time.Time }
)

func (o repoIDGeneratorOption) applyToRepository(options *repoOpts) { options.idGenerator = o.v }
func (o repoNowOption) applyToRepository(options *repoOpts)        { options.now = o.v }

// WithIDGenerator sets a custom ID generator for event envelope IDs.
func WithIDGenerator(gen IDGenerator) RepositoryOption { return repoIDGeneratorOption{v: gen} }

// WithClock sets the clock used to stamp envelope times. Tests use this to
// make event times deterministic.
func WithClock(now func() time.Time) RepositoryOption { return repoNowOption{v: now} }

func newRepoOpts(opts ...RepositoryOption) repoOpts {
	options := repoOpts{
		idGenerator: DefaultIDGenerator(),
		metrics:     NopESMetrics(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt.applyToRepository(&options)
	}
	return options
}

// Repository reconstructs aggregate state from event streams and persists new
// events with optimistic concurrency. It is parameterized by the entity's
// fold function; there is no in-process state cache - every Load replays the
// stream fresh from the store.
type Repository[S any] struct {
	log      *slog.Logger
	store    EventStore
	registry *EventRegistry
	aggType  string
	fold     FoldFunc[S]
	newID    IDGenerator
	metrics  ESMetrics
	now      func() time.Time

	mu    sync.RWMutex
	hooks []Hook
}

func NewRepository[S any](
	log *slog.Logger,
	store EventStore,
	registry *EventRegistry,
	aggType string,
	fold FoldFunc[S],
	opts ...RepositoryOption,
) *Repository[S] {
	options := newRepoOpts(opts...)
	return &Repository[S]{
		log:      log.With(slog.String("repo", aggType)),
		store:    store,
		registry: registry,
		aggType:  aggType,
		fold:     fold,
		newID:    options.idGenerator,
		metrics:  options.metrics,
		now:      options.now,
	}
}

func (r *Repository[S]) AggType() string { return r.aggType }

// Registry exposes the event registry so callers can replay envelopes they
// obtained elsewhere (e.g. from a post-append hook).
func (r *Repository[S]) Registry() *EventRegistry { return r.registry }

// OnAppend registers a post-append hook.
func (r *Repository[S]) OnAppend(h Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, h)
}

// Load reads the full event stream for aggID and folds it from the empty
// state. It fails with ErrEntryNotFound when the stream is empty.
func (r *Repository[S]) Load(ctx context.Context, aggID int64) (*S, error) {
	defer r.metrics.RepoLoadDuration(r.aggType).ObserveDuration()

	loadTimer := r.metrics.StoreLoadDuration(r.aggType)
	envs, err := r.store.Load(ctx, r.aggType, aggID)
	loadTimer.ObserveDuration()
	if err != nil {
		return nil, err
	}

	state, err := Replay(r.registry, r.fold, envs)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, ErrEntryNotFound
	}

	r.log.Debug(
		"loaded",
		slog.Group("agg",
			slog.Int64("id", aggID),
			slog.Int("num_events", len(envs)),
		),
	)

	return state, nil
}

// Append persists events against the stream of aggID with an expected-version
// precondition. The store rejects the write with ErrConflict if the stream
// has advanced past expect since the caller read its state. On success the
// appended envelopes are returned and post-append hooks fire.
func (r *Repository[S]) Append(
	ctx context.Context,
	aggID int64,
	expect Version,
	authorID int64,
	events ...any,
) ([]Envelope, error) {
	if len(events) == 0 {
		return nil, ErrStoreNoEvents
	}

	defer r.metrics.RepoSaveDuration(r.aggType).ObserveDuration()

	newEnvs := make([]Envelope, 0, len(events))
	v := expect
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			return nil, err
		}

		v++

		env := Envelope{
			ID:            r.newID(),
			Type:          EventTypeOf(ev),
			AggregateID:   aggID,
			AggregateType: r.aggType,
			AuthorID:      authorID,
			Version:       v,
			OccurredAt:    r.now(),
			Data:          data,
		}

		if err := env.Validate(); err != nil {
			return nil, err
		}

		newEnvs = append(newEnvs, env)
	}

	appendTimer := r.metrics.StoreAppendDuration(r.aggType)
	res, err := r.store.Append(ctx, r.aggType, aggID, expect, newEnvs)
	appendTimer.ObserveDuration()
	if err != nil {
		if errors.Is(err, ErrConflict) {
			r.metrics.ConcurrencyConflict(r.aggType)
		}
		return nil, fmt.Errorf("failed to append agg_type=%s agg_id=%d: %w", r.aggType, aggID, err)
	}

	// seq is assigned by the store
	for i := range newEnvs {
		newEnvs[i].Seq = res.LastSeq - uint64(len(newEnvs)-1-i)
	}

	r.metrics.EventsAppended(r.aggType, len(newEnvs))

	r.log.Debug(
		"appended",
		slog.Group("agg",
			slog.Int64("id", aggID),
			slog.Uint64("seq", res.LastSeq),
			v.SlogAttr(),
		),
		slog.Int("num_events", len(newEnvs)),
	)

	r.mu.RLock()
	hooks := r.hooks
	r.mu.RUnlock()
	for _, env := range newEnvs {
		for _, h := range hooks {
			h(env)
		}
	}

	return newEnvs, nil
}

// ApplyCommand appends a single event produced by a command handler against
// the state the caller read, using the state's version as the expected
// version, then folds the accepted event onto that state and returns the
// updated value. This is the optimistic-concurrency enforcement point for
// every mutation other than creation; on ErrConflict the caller re-reads
// state and retries - the repository never retries on its own.
func (r *Repository[S]) ApplyCommand(
	ctx context.Context,
	aggID int64,
	state *S,
	expect Version,
	authorID int64,
	event any,
) (*S, error) {
	envs, err := r.Append(ctx, aggID, expect, authorID, event)
	if err != nil {
		return nil, err
	}
	return r.fold(state, event, envs[0])
}
