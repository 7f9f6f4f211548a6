package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/sells-group/viability-cli/internal/model"
)

// DefaultPrefix namespaces analysis keys in a shared Redis.
const DefaultPrefix = "viability:analysis:"

// RedisOption configures a Redis cache.
type RedisOption func(*Redis)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = prefix }
}

// Redis stores responses as JSON with a native key TTL.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis wraps an existing go-redis client.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{client: client, prefix: DefaultPrefix}
	for _, o := range opts {
		o(r)
	}
	return r
}

// DialRedis connects to addr and verifies the connection.
func DialRedis(ctx context.Context, addr, password string, db int, opts ...RedisOption) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, eris.Wrapf(err, "cache: ping redis %s", addr)
	}
	return NewRedis(client, opts...), nil
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

// Get decodes the stored response.
func (r *Redis) Get(ctx context.Context, key string) (*model.AnalysisResponse, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, eris.Wrap(err, "cache: redis get")
	}

	var v model.AnalysisResponse
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, eris.Wrap(err, "cache: decode analysis")
	}
	return &v, nil
}

// Set encodes v and stores it with ttl. A non-positive ttl uses DefaultTTL.
func (r *Redis) Set(ctx context.Context, key string, v *model.AnalysisResponse, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	data, err := json.Marshal(v)
	if err != nil {
		return eris.Wrap(err, "cache: encode analysis")
	}
	if err := r.client.Set(ctx, r.key(key), data, ttl).Err(); err != nil {
		return eris.Wrap(err, "cache: redis set")
	}
	return nil
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
