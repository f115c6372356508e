package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	redisgo "github.com/redis/go-redis/v9"

	"github.com/RHeactorJS/rheactor-server/core/es"
)

// appendScript is the serialization point for one aggregate stream: it
// compares the stream length against the expected version, allocates global
// sequence numbers and pushes the envelopes in a single atomic step.
var appendScript = redisgo.NewScript(`
local cur = redis.call('LLEN', KEYS[1])
if cur ~= tonumber(ARGV[1]) then
  return redis.error_reply('conflict:' .. cur)
end
local last = 0
for i = 2, #ARGV do
  last = redis.call('INCR', KEYS[2])
  local env = cjson.decode(ARGV[i])
  env['seq'] = last
  redis.call('RPUSH', KEYS[1], cjson.encode(env))
end
return last
`)

type StoreOption func(*Store)

func WithPrefix(prefix string) StoreOption {
	return func(s *Store) { s.prefix = prefix }
}

// Store implements es.EventStore on Redis lists, one list per aggregate
// stream plus a single counter for the global sequence.
type Store struct {
	log    *slog.Logger
	client redisgo.UniversalClient
	prefix string
}

func NewStore(client redisgo.UniversalClient, opts ...StoreOption) *Store {
	s := &Store{
		log:    slog.Default().With(slog.String("store", "redis")),
		client: client,
		prefix: "es",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) streamKey(aggType string, aggID int64) string {
	return fmt.Sprintf("%s:stream:%s.%d", s.prefix, aggType, aggID)
}

func (s *Store) seqKey() string {
	return s.prefix + ":seq"
}

func (s *Store) Load(ctx context.Context, aggType string, aggID int64) ([]es.Envelope, error) {
	raw, err := s.client.LRange(ctx, s.streamKey(aggType, aggID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load stream: %w", err)
	}
	if len(raw) == 0 {
		return nil, es.ErrEntryNotFound
	}

	events := make([]es.Envelope, 0, len(raw))
	for _, r := range raw {
		var env es.Envelope
		if err := json.Unmarshal([]byte(r), &env); err != nil {
			return nil, fmt.Errorf("decode envelope: %w", err)
		}
		events = append(events, env)
	}
	return events, nil
}

func (s *Store) Append(
	ctx context.Context,
	aggType string,
	aggID int64,
	expectVersion es.Version,
	events []es.Envelope,
) (*es.StoreAppendResult, error) {
	if len(events) == 0 {
		return nil, es.ErrStoreNoEvents
	}

	args := make([]any, 0, len(events)+1)
	args = append(args, uint64(expectVersion))
	for _, e := range events {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("encode envelope: %w", err)
		}
		args = append(args, string(data))
	}

	sk := s.streamKey(aggType, aggID)
	res, err := appendScript.Run(ctx, s.client, []string{sk, s.seqKey()}, args...).Int64()
	if err != nil {
		if strings.HasPrefix(err.Error(), "conflict:") {
			cur := strings.TrimPrefix(err.Error(), "conflict:")
			return nil, fmt.Errorf("%w: stream %s at version %s, expected %d", es.ErrConflict, sk, cur, expectVersion)
		}
		return nil, fmt.Errorf("append stream: %w", err)
	}

	lastSeq := uint64(res)
	s.log.Debug(
		"append",
		slog.Uint64("last_seq", lastSeq),
		slog.Int("num_events", len(events)),
	)
	return &es.StoreAppendResult{LastSeq: lastSeq}, nil
}

var _ es.EventStore = (*Store)(nil)
