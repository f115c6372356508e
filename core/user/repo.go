package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/RHeactorJS/rheactor-server/core/es"
	"github.com/RHeactorJS/rheactor-server/ports/idgen"
	"github.com/RHeactorJS/rheactor-server/ports/index"
)

// EmailIndex is the name of the secondary index mapping email -> user id.
const EmailIndex = "user.email"

type Option func(*Repository)

// WithMetrics sets the metrics implementation for the repository and its
// underlying event-sourcing plumbing.
func WithMetrics(m es.ESMetrics) Option {
	return func(r *Repository) {
		r.metrics = m
		r.esOpts = append(r.esOpts, es.WithMetrics(m))
	}
}

// WithESOptions passes options through to the underlying event repository.
func WithESOptions(opts ...es.RepositoryOption) Option {
	return func(r *Repository) { r.esOpts = append(r.esOpts, opts...) }
}

// Repository is the unit callers interact with. It orchestrates id
// allocation, email uniqueness reservation, event persistence and state
// reconstruction. There is no in-process cache: every read replays the
// account's stream fresh from the journal.
type Repository struct {
	log     *slog.Logger
	repo    *es.Repository[User]
	index   index.Index
	ids     idgen.Allocator
	metrics es.ESMetrics
	esOpts  []es.RepositoryOption
}

func NewRepository(
	log *slog.Logger,
	store es.EventStore,
	idx index.Index,
	ids idgen.Allocator,
	opts ...Option,
) *Repository {
	r := &Repository{
		log:     log.With(slog.String("repo", AggregateType)),
		index:   idx,
		ids:     ids,
		metrics: es.NopESMetrics(),
	}
	for _, opt := range opts {
		opt(r)
	}

	registry := es.NewRegistry()
	RegisterEvents(registry)
	r.repo = es.NewRepository[User](log, store, registry, AggregateType, Fold, r.esOpts...)

	return r
}

// OnAppend registers a post-append hook with the underlying event repository.
func (r *Repository) OnAppend(h es.Hook) { r.repo.OnAppend(h) }

// Registry exposes the event registry, e.g. for replaying envelopes received
// through a hook or a message channel.
func (r *Repository) Registry() *es.EventRegistry { return r.repo.Registry() }

// Add creates a new user account from a validated draft. It allocates the
// next id, reserves the email in the uniqueness index and appends the
// Created event. A duplicate email fails with ErrEntryAlreadyExists before
// anything is appended; the allocated id is burned, which is accepted - ids
// are cheap and never reused, so no rollback is attempted. The reservation
// is the sole serialization point: of two concurrent adds with the same
// email exactly one wins.
func (r *Repository) Add(ctx context.Context, draft Draft) (*User, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	id, err := r.ids.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate user id: %w", err)
	}

	email := strings.ToLower(draft.Email)
	if err := r.index.Reserve(ctx, EmailIndex, email, id); err != nil {
		if errors.Is(err, index.ErrAlreadyExists) {
			r.metrics.IndexReservationConflict(EmailIndex)
			return nil, fmt.Errorf("%w: user with email %q", es.ErrEntryAlreadyExists, email)
		}
		return nil, err
	}

	ev := draft.createdEvent()
	envs, err := r.repo.Append(ctx, id, 0, id, ev)
	if err != nil {
		return nil, err
	}

	r.log.Debug("user added", slog.Int64("id", id))
	return Fold(nil, ev, envs[0])
}

// GetByID reads the full event stream for id and folds it from empty state.
// It fails with ErrEntryNotFound if the stream is empty.
func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	return r.repo.Load(ctx, id)
}

// FindByID is GetByID, with a nil result instead of ErrEntryNotFound.
func (r *Repository) FindByID(ctx context.Context, id int64) (*User, error) {
	u, err := r.repo.Load(ctx, id)
	if errors.Is(err, es.ErrEntryNotFound) {
		return nil, nil
	}
	return u, err
}

// GetByEmail resolves the id through the secondary index, then delegates to
// GetByID.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	id, err := r.index.Lookup(ctx, EmailIndex, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, index.ErrNotFound) {
			return nil, fmt.Errorf("%w: user with email %q", es.ErrEntryNotFound, email)
		}
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// FindByEmail is GetByEmail, with a nil result instead of ErrEntryNotFound.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	u, err := r.GetByEmail(ctx, email)
	if errors.Is(err, es.ErrEntryNotFound) {
		return nil, nil
	}
	return u, err
}

// ApplyCommand appends the event a command guard produced, using the version
// of the state the caller read as the expected version. If another writer
// advanced the stream in between, the journal rejects the append with
// ErrConflict and nothing is written - the caller re-reads and retries.
// On success the event is folded onto the passed state and the updated
// value returned.
//
// An email change additionally moves the uniqueness-index entry: the new
// email is reserved before the append (so uniqueness holds at all times)
// and the old reservation is released after it. If the append loses the
// version race the new reservation is rolled back.
func (r *Repository) ApplyCommand(ctx context.Context, u *User, authorID int64, event any) (*User, error) {
	if e, ok := event.(*EmailChangedEvent); ok {
		return r.applyEmailChange(ctx, u, authorID, e)
	}
	return r.repo.ApplyCommand(ctx, u.Meta.ID, u, u.Meta.Version, authorID, event)
}

func (r *Repository) applyEmailChange(ctx context.Context, u *User, authorID int64, e *EmailChangedEvent) (*User, error) {
	if err := r.index.Reserve(ctx, EmailIndex, e.Email, u.Meta.ID); err != nil {
		if errors.Is(err, index.ErrAlreadyExists) {
			r.metrics.IndexReservationConflict(EmailIndex)
			return nil, fmt.Errorf("%w: user with email %q", es.ErrEntryAlreadyExists, e.Email)
		}
		return nil, err
	}

	updated, err := r.repo.ApplyCommand(ctx, u.Meta.ID, u, u.Meta.Version, authorID, e)
	if err != nil {
		if rbErr := r.index.Remove(ctx, EmailIndex, e.Email); rbErr != nil {
			r.log.Error("failed to roll back email reservation",
				slog.String("email", e.Email),
				slog.Any("error", rbErr),
			)
		}
		return nil, err
	}

	if err := r.index.Remove(ctx, EmailIndex, e.OldEmail); err != nil {
		r.log.Error("failed to release old email",
			slog.String("email", e.OldEmail),
			slog.Any("error", err),
		)
	}

	return updated, nil
}

// ListAll returns a page of all user accounts ordered by id, plus the total
// count. Ids are allocated from a dense monotonic counter, so the scan walks
// 1..Current and skips burned ids (allocated but never written).
func (r *Repository) ListAll(ctx context.Context, offset, limit int) ([]*User, int, error) {
	cur, err := r.ids.Current(ctx)
	if err != nil {
		return nil, 0, err
	}

	var (
		out   = make([]*User, 0, limit)
		total int
	)
	for id := int64(1); id <= cur; id++ {
		u, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, 0, err
		}
		if u == nil {
			continue
		}
		if total >= offset && len(out) < limit {
			out = append(out, u)
		}
		total++
	}
	return out, total, nil
}
