package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

const redisRetryInterval = 25 * time.Millisecond

var errNotAcquired = errors.New("lock is held")

// удаляем ключ, только если он всё ещё наш
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLock распределённая блокировка: SET NX PX с уникальным токеном
type RedisLock struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
}

func NewRedisLock(redisAddr string, ttl, wait time.Duration) (*RedisLock, error) {
	const op = "lock.NewRedisLock"

	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return NewRedisLockWithClient(client, ttl, wait), nil
}

func NewRedisLockWithClient(client *redis.Client, ttl, wait time.Duration) *RedisLock {
	return &RedisLock{client: client, ttl: ttl, wait: wait}
}

func (r *RedisLock) Acquire(ctx context.Context, key string) (Unlock, error) {
	const op = "lock.RedisLock.Acquire"

	lockKey := fmt.Sprintf("lock:%s", key)
	token := uuid.NewString()

	backoff := retry.WithMaxDuration(r.wait, retry.NewConstant(redisRetryInterval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		ok, err := r.client.SetNX(ctx, lockKey, token, r.ttl).Result()
		if err != nil {
			return err
		}
		if !ok {
			return retry.RetryableError(errNotAcquired)
		}
		return nil
	})
	if errors.Is(err, errNotAcquired) {
		return nil, fmt.Errorf("%s: %s: %w", op, key, ErrTimeout)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, r.client, []string{lockKey}, token).Err(); err != nil {
			return fmt.Errorf("lock.RedisLock.Unlock: %w", err)
		}
		return nil
	}, nil
}

func (r *RedisLock) Close() error {
	return r.client.Close()
}
