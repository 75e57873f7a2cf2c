package locking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	defaultLockTTL       = 5 * time.Second
	defaultRetryInterval = 20 * time.Millisecond
	lockKeyPrefix        = "lock:"
)

// Only the holder's token may delete the key.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every API instance pointing at the same Redis.
// TTL bounds how long a crashed holder can block a key.
type Redis struct {
	Client        *redis.Client
	TTL           time.Duration
	RetryInterval time.Duration
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	ttl := r.TTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	interval := r.RetryInterval
	if interval <= 0 {
		interval = defaultRetryInterval
	}
	fullKey := lockKeyPrefix + key
	token := uuid.New().String()

	for {
		ok, err := r.Client.SetNX(ctx, fullKey, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			var once sync.Once
			return func() {
				once.Do(func() {
					if err := unlockScript.Run(context.Background(), r.Client, []string{fullKey}, token).Err(); err != nil {
						log.Warn().Err(err).Str("lock_key", fullKey).Msg("Failed to release lock")
					}
				})
			}, nil
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
