package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"

	"tdrs/pkg/platform/sentinel"
)

// Unlock releases a lock taken by a Locker.
type Unlock func(ctx context.Context) error

// Locker serializes extract generation per quarter. TryLock does not wait:
// it returns sentinel.ErrLocked when the key is already held.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (Unlock, error)
}

// LocalLocker is an in-process keyed lock. The ttl is ignored; a key is held
// until its Unlock is called.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

func (l *LocalLocker) TryLock(_ context.Context, key string, _ time.Duration) (Unlock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return nil, fmt.Errorf("%w: %s", sentinel.ErrLocked, key)
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
		return nil
	}, nil
}

var errLockLost = errors.New("lock expired before release")

// RedisLocker holds locks as Redis keys with a random token and an expiry,
// so a crashed holder cannot block a quarter forever. While a lock is held it
// is extended every third of its ttl; a generation that outlives the ttl
// keeps the quarter locked.
type RedisLocker struct {
	rs     *redsync.Redsync
	prefix string
}

func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{rs: redsync.New(goredis.NewPool(client)), prefix: "tdrs:lock:"}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (Unlock, error) {
	mutex := l.rs.NewMutex(l.prefix+key,
		redsync.WithExpiry(ttl),
		redsync.WithTries(1),
	)
	if err := mutex.LockContext(ctx); err != nil {
		if isContention(err) {
			return nil, fmt.Errorf("%w: %s", sentinel.ErrLocked, key)
		}
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go keepAlive(context.WithoutCancel(ctx), mutex, ttl, stop, done)

	var once sync.Once
	var unlockErr error
	return func(ctx context.Context) error {
		once.Do(func() {
			close(stop)
			<-done
			ok, err := mutex.UnlockContext(ctx)
			if !ok {
				if err == nil {
					err = errLockLost
				}
				unlockErr = fmt.Errorf("release lock %s: %w", key, err)
			}
		})
		return unlockErr
	}, nil
}

// keepAlive extends mutex until stop is closed or an extension fails, in
// which case the lock is already gone.
func keepAlive(ctx context.Context, mutex *redsync.Mutex, ttl time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			extendCtx, cancel := context.WithTimeout(ctx, ttl/3)
			ok, err := mutex.ExtendContext(extendCtx)
			cancel()
			if !ok || err != nil {
				return
			}
		}
	}
}

// isContention separates "someone else holds it" from transport failures.
func isContention(err error) bool {
	msg := err.Error()
	return errors.Is(err, redsync.ErrFailed) ||
		strings.Contains(msg, "lock already taken") ||
		strings.Contains(msg, "failed to acquire lock")
}
