package es

import (
	"context"
)

type (
	StoreAppendResult struct {
		LastSeq uint64
	}

	// EventStore stores and loads envelopes per aggregate stream.
	//
	// Append must reject the write with ErrConflict when the stream's actual
	// version does not equal expectedVersion - this is the sole serialization
	// point for concurrent writers of one aggregate. Load returns the full
	// ordered stream and ErrEntryNotFound when no stream exists.
	EventStore interface {
		Load(ctx context.Context, aggType string, aggID int64) ([]Envelope, error)
		Append(ctx context.Context, aggType string, aggID int64, expectedVersion Version, events []Envelope) (*StoreAppendResult, error)
	}
)
