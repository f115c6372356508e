// Package idgen defines the aggregate id allocator port: a process-wide,
// monotonically increasing integer counter. Ids are allocated once per
// aggregate at creation and never reused - an id burned by a failed
// uniqueness reservation simply stays unused.
package idgen

import (
	"context"
	"sync/atomic"
)

type Allocator interface {
	// Next allocates and returns the next id. Ids strictly increase.
	Next(ctx context.Context) (int64, error)
	// Current returns the highest id allocated so far, 0 if none.
	Current(ctx context.Context) (int64, error)
}

// MemAllocator is an in-memory Allocator for tests/dev.
type MemAllocator struct {
	last atomic.Int64
}

func NewMemAllocator() *MemAllocator { return &MemAllocator{} }

func (m *MemAllocator) Next(_ context.Context) (int64, error) {
	return m.last.Add(1), nil
}

func (m *MemAllocator) Current(_ context.Context) (int64, error) {
	return m.last.Load(), nil
}

var _ Allocator = (*MemAllocator)(nil)
