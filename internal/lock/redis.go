package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/feral-file/ff-stacks-mint/internal/adapter"
)

// releaseScript deletes the key only while it still holds our token
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// redisLocker shares leases across replicas through Redis
type redisLocker struct {
	client    adapter.RedisClient
	keyPrefix string
}

// NewRedisLocker creates a locker backed by SET NX PX
func NewRedisLocker(client adapter.RedisClient, keyPrefix string) Locker {
	return &redisLocker{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (l *redisLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	redisKey := l.keyPrefix + "lock:" + key
	token := ulid.Make().String()

	ok, err := l.client.SetNX(ctx, redisKey, token, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire %s: %w", key, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}

	return &redisLease{client: l.client, key: redisKey, token: token}, nil
}

type redisLease struct {
	client adapter.RedisClient
	key    string
	token  string
}

func (r *redisLease) Release(ctx context.Context) error {
	if _, err := r.client.Eval(ctx, releaseScript, []string{r.key}, r.token); err != nil {
		return fmt.Errorf("failed to release %s: %w", r.key, err)
	}
	return nil
}
