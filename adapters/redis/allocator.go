package redis

import (
	"context"
	"errors"
	"fmt"

	redisgo "github.com/redis/go-redis/v9"

	"github.com/RHeactorJS/rheactor-server/ports/idgen"
)

// Allocator implements idgen.Allocator on a single Redis counter. INCR is
// atomic, so concurrent processes never see the same id twice.
type Allocator struct {
	client redisgo.UniversalClient
	key    string
}

func NewAllocator(client redisgo.UniversalClient, key string) *Allocator {
	if key == "" {
		key = "ids"
	}
	return &Allocator{client: client, key: key}
}

func (a *Allocator) Next(ctx context.Context) (int64, error) {
	id, err := a.client.Incr(ctx, a.key).Result()
	if err != nil {
		return 0, fmt.Errorf("allocate id: %w", err)
	}
	return id, nil
}

func (a *Allocator) Current(ctx context.Context) (int64, error) {
	cur, err := a.client.Get(ctx, a.key).Int64()
	if err != nil {
		if errors.Is(err, redisgo.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("read id counter: %w", err)
	}
	return cur, nil
}

var _ idgen.Allocator = (*Allocator)(nil)
