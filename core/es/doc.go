// Package es provides the event-sourced aggregate core of the server.
//
// # Overview
//
// Application state is never stored directly. Every aggregate is represented
// by an append-only stream of events; its current state is derived by folding
// the stream, in order, into a value. The package provides the abstractions
// to do that:
//
// Envelope: the unit of storage. Wraps an event payload with the metadata
// needed to replay and route it (stream version, aggregate id, author,
// timestamp).
//
// EventStore: the persistence layer. [EventStore.Load] retrieves the full
// stream for an aggregate, [EventStore.Append] persists new envelopes with an
// expected-version precondition - the optimistic concurrency enforcement
// point. Use [NewInMemoryStore] for testing or implement the interface for
// production storage (e.g. Redis via the adapters/redis package).
//
// FoldFunc: the entity-specific projector. A pure, deterministic function
// mapping (prior state or nil, event) to the next state. [Replay] drives a
// FoldFunc over a loaded stream and verifies version continuity.
//
// Repository: the application-level unit. Parameterized by a FoldFunc, it
// loads streams, replays them into state, and appends new events:
//
//	repo := es.NewRepository[User](log, store, registry, "user", user.Fold)
//	u, err := repo.Load(ctx, 17)
//
// Side effects are decoupled from persistence: register post-append hooks
// with [Repository.OnAppend]; the repository's job ends once the event is
// durably appended.
package es
