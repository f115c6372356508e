package redis

import (
	"context"
	"errors"
	"fmt"

	redisgo "github.com/redis/go-redis/v9"

	"github.com/RHeactorJS/rheactor-server/ports/index"
)

// Index implements index.Index on Redis hashes, one hash per named index.
// HSETNX gives the required atomic set-if-absent.
type Index struct {
	client redisgo.UniversalClient
	prefix string
}

type IndexOption func(*Index)

func WithIndexPrefix(prefix string) IndexOption {
	return func(i *Index) { i.prefix = prefix }
}

func NewIndex(client redisgo.UniversalClient, opts ...IndexOption) *Index {
	i := &Index{client: client, prefix: "index"}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Index) key(name string) string {
	return i.prefix + ":" + name
}

func (i *Index) Reserve(ctx context.Context, name, key string, id int64) error {
	set, err := i.client.HSetNX(ctx, i.key(name), key, id).Result()
	if err != nil {
		return fmt.Errorf("reserve %s/%s: %w", name, key, err)
	}
	if !set {
		return fmt.Errorf("%w: %s/%s", index.ErrAlreadyExists, name, key)
	}
	return nil
}

func (i *Index) Lookup(ctx context.Context, name, key string) (int64, error) {
	id, err := i.client.HGet(ctx, i.key(name), key).Int64()
	if err != nil {
		if errors.Is(err, redisgo.Nil) {
			return 0, fmt.Errorf("%w: %s/%s", index.ErrNotFound, name, key)
		}
		return 0, fmt.Errorf("lookup %s/%s: %w", name, key, err)
	}
	return id, nil
}

func (i *Index) Remove(ctx context.Context, name, key string) error {
	if err := i.client.HDel(ctx, i.key(name), key).Err(); err != nil {
		return fmt.Errorf("remove %s/%s: %w", name, key, err)
	}
	return nil
}

var _ index.Index = (*Index)(nil)
