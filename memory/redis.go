package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/roundtable-ai/roundtable/core"
)

// RedisStore keeps an agent's memory in a Redis list so that context survives
// process restarts. Entries are appended with RPUSH and recalled with LRANGE,
// newest N in chronological order, matching SimpleStore semantics. Any Redis
// error is wrapped in *core.MemoryUnavailableError: a store unreachable at
// write time must fail the containing turn, not drop the write.
type RedisStore struct {
	client *redis.Client
	key    string
	limit  int
}

// RedisOption customizes a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisRecallLimit overrides the number of entries Recall returns.
func WithRedisRecallLimit(n int) RedisOption {
	return func(r *RedisStore) {
		if n > 0 {
			r.limit = n
		}
	}
}

// NewRedisStore creates a store for one agent. sessionID and agentName scope
// the backing key so concurrent sessions never share memory.
func NewRedisStore(client *redis.Client, sessionID, agentName string, opts ...RedisOption) *RedisStore {
	r := &RedisStore{
		client: client,
		key:    fmt.Sprintf("roundtable:memory:%s:%s", sessionID, agentName),
		limit:  DefaultRecallLimit,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Remember implements core.MemoryStore.
func (r *RedisStore) Remember(ctx context.Context, e core.Entry) error {
	if e.ID == "" {
		e.ID = core.NewID()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return &core.MemoryUnavailableError{Op: "remember", Err: err}
	}
	if err := r.client.RPush(ctx, r.key, payload).Err(); err != nil {
		return &core.MemoryUnavailableError{Op: "remember", Err: err}
	}
	return nil
}

// Recall implements core.MemoryStore returning the newest entries oldest first.
func (r *RedisStore) Recall(ctx context.Context, _ string) ([]core.Entry, error) {
	raw, err := r.client.LRange(ctx, r.key, int64(-r.limit), -1).Result()
	if err != nil {
		return nil, &core.MemoryUnavailableError{Op: "recall", Err: err}
	}
	out := make([]core.Entry, 0, len(raw))
	for _, item := range raw {
		var e core.Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, &core.MemoryUnavailableError{Op: "recall", Err: err}
		}
		out = append(out, e)
	}
	return out, nil
}
