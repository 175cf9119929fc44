package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/placequest/placequest-api/internal/core/domain"
)

const defaultLockTTL = 5 * time.Second

// releaseScript deletes the key only while it still holds our fencing value,
// so an expired lock re-acquired by another login is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LoginLock is a per-user mutual exclusion around the login check-then-issue
// sequence. Key format: login_lock:<user_id>
type LoginLock struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewLoginLock wraps client. The TTL bounds how long a crashed login can hold
// the slot; defaultLockTTL is used when ttl <= 0.
func NewLoginLock(client *redis.Client, ttl time.Duration, log zerolog.Logger) *LoginLock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &LoginLock{client: client, ttl: ttl, log: log}
}

// Acquire takes the lock for userID or returns domain.ErrLoginInProgress.
func (l *LoginLock) Acquire(ctx context.Context, userID string) (func(), error) {
	key := l.key(userID)
	fence := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, fence, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("login lock: %w", err)
	}
	if !ok {
		return nil, domain.ErrLoginInProgress
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{key}, fence).Err(); err != nil {
			l.log.Warn().Err(err).Str("user_id", userID).Msg("failed to release login lock")
		}
	}
	return release, nil
}

func (l *LoginLock) key(userID string) string {
	return fmt.Sprintf("login_lock:%s", userID)
}
