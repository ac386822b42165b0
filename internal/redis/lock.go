package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("schedule lock not acquired")
)

// Locker serialises validate-then-write for one practitioner's agenda on one day.
type Locker interface {
	WithDayLock(ctx context.Context, practitionerID uuid.UUID, date time.Time, fn func(ctx context.Context) error) error
}

type redisDayLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDayLocker creates a locker that uses a per practitioner-day Redis key
func NewRedisDayLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisDayLocker{
		client: client,
		ttl:    ttl,
	}
}

func DayLockKey(practitionerID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("lock:schedule:%s:%s", practitionerID.String(), date.Format("2006-01-02"))
}

func (l *redisDayLocker) WithDayLock(ctx context.Context, practitionerID uuid.UUID, date time.Time, fn func(ctx context.Context) error) error {
	key := DayLockKey(practitionerID, date)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire schedule lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		// release with a fresh context so a cancelled caller still frees the key
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = l.release(releaseCtx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisDayLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release schedule lock: %w", err)
	}
	return nil
}
