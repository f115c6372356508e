package es

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// InMemoryStore is a simple, correct (optimistic) store for tests/dev.
type InMemoryStore struct {
	mu      sync.Mutex
	log     *slog.Logger
	seq     atomic.Uint64
	streams map[string][]Envelope
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		log:     slog.Default().With(slog.String("store", "memory")),
		streams: map[string][]Envelope{},
	}
}

func (s *InMemoryStore) streamKey(aggType string, aggID int64) string {
	return fmt.Sprintf("%s-%d", aggType, aggID)
}

func (s *InMemoryStore) Load(_ context.Context, aggType string, aggID int64) ([]Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sk := s.streamKey(aggType, aggID)
	events, ok := s.streams[sk]
	if !ok {
		return nil, ErrEntryNotFound
	}

	out := make([]Envelope, len(events))
	copy(out, events)
	return out, nil
}

func (s *InMemoryStore) Append(
	_ context.Context,
	aggType string,
	aggID int64,
	expectVersion Version,
	events []Envelope,
) (*StoreAppendResult, error) {
	if len(events) == 0 {
		return nil, ErrStoreNoEvents
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		sk         = s.streamKey(aggType, aggID)
		curStream  = s.streams[sk]
		curVersion Version
	)

	if len(curStream) > 0 {
		curVersion = curStream[len(curStream)-1].Version
	}
	if curVersion != expectVersion {
		return nil, fmt.Errorf("%w: stream %s at version %d, expected %d", ErrConflict, sk, curVersion, expectVersion)
	}

	var (
		lastSeq   uint64
		allEvents = make([]Envelope, 0, len(events))
	)
	for _, e := range events {
		if err := e.Validate(); err != nil {
			return nil, err
		}

		lastSeq = s.seq.Add(1)
		e.Seq = lastSeq
		allEvents = append(allEvents, e)
	}
	s.streams[sk] = append(curStream, allEvents...)
	s.log.Debug(
		"append",
		slog.Uint64("last_seq", lastSeq),
		slog.Int("num_events", len(allEvents)),
	)

	return &StoreAppendResult{LastSeq: lastSeq}, nil
}

var _ EventStore = (*InMemoryStore)(nil)
