package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrNotAcquired is returned when a lock could not be obtained within the retry budget.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker serialises critical sections identified by a key.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// Options tunes lock acquisition.
type Options struct {
	TTL     time.Duration
	Retries int
	Backoff time.Duration
	Logger  *zap.Logger
}

// DefaultOptions mirror the INDEX_LOCK_* configuration defaults.
func DefaultOptions() Options {
	return Options{TTL: 30 * time.Second, Retries: 25, Backoff: 200 * time.Millisecond}
}

func (o Options) normalise() Options {
	if o.TTL <= 0 {
		o.TTL = 30 * time.Second
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.Backoff <= 0 {
		o.Backoff = 200 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// releaseScript deletes the key only when it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript resets the expiry only while the key still holds our token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker implements a single instance Redis lock (SET NX PX + compare and delete).
type RedisLocker struct {
	client redis.UniversalClient
	opts   Options
}

// NewRedisLocker constructs a Redis backed locker.
func NewRedisLocker(client redis.UniversalClient, opts Options) *RedisLocker {
	return &RedisLocker{client: client, opts: opts.normalise()}
}

// Lease is a held lock.
type Lease struct {
	Key   string
	token string
}

// Acquire tries to take key, retrying with a fixed backoff.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (*Lease, error) {
	token := uuid.NewString()
	for attempt := 0; attempt <= l.opts.Retries; attempt++ {
		ok, err := l.client.SetNX(ctx, key, token, l.opts.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return &Lease{Key: key, token: token}, nil
		}
		if attempt == l.opts.Retries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.opts.Backoff):
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotAcquired, key)
}

// Release frees the lease if it is still owned by the caller.
func (l *RedisLocker) Release(ctx context.Context, lease *Lease) error {
	if lease == nil {
		return nil
	}
	if err := releaseScript.Run(ctx, l.client, []string{lease.Key}, lease.token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", lease.Key, err)
	}
	return nil
}

// Extend pushes the lease expiry a full TTL ahead. It returns ErrNotAcquired
// once the key has expired or been taken by another holder.
func (l *RedisLocker) Extend(ctx context.Context, lease *Lease) error {
	n, err := extendScript.Run(ctx, l.client, []string{lease.Key}, lease.token, l.opts.TTL.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", lease.Key, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s lost", ErrNotAcquired, lease.Key)
	}
	return nil
}

// WithLock runs fn while holding key. The lease is extended every third of
// its TTL until fn returns.
func (l *RedisLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	lease, err := l.Acquire(ctx, key)
	if err != nil {
		return err
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.keepAlive(ctx, lease, stop)
	}()
	defer func() {
		close(stop)
		<-done
		// release must outlive a cancelled request context
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := l.Release(releaseCtx, lease); err != nil {
			l.opts.Logger.Warn("failed to release lock", zap.String("key", key), zap.Error(err))
		}
	}()
	return fn(ctx)
}

func (l *RedisLocker) keepAlive(ctx context.Context, lease *Lease, stop <-chan struct{}) {
	ticker := time.NewTicker(l.opts.TTL / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			extendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.opts.TTL/3)
			err := l.Extend(extendCtx, lease)
			cancel()
			if err != nil {
				l.opts.Logger.Warn("failed to extend lock", zap.String("key", lease.Key), zap.Error(err))
				if errors.Is(err, ErrNotAcquired) {
					return
				}
			}
		}
	}
}

// LocalLocker serialises keys within a single process. It is used when no
// Redis is configured and waits with the same retry budget as RedisLocker.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
	opts  Options
}

// NewLocalLocker returns an in-process locker.
func NewLocalLocker(opts Options) *LocalLocker {
	return &LocalLocker{locks: make(map[string]chan struct{}), opts: opts.normalise()}
}

func (l *LocalLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[key] = ch
	}
	return ch
}

// WithLock runs fn while holding key.
func (l *LocalLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	ch := l.slot(key)
	wait := time.Duration(l.opts.Retries) * l.opts.Backoff
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
	default:
		select {
		case ch <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return fmt.Errorf("%w: %s", ErrNotAcquired, key)
		}
	}
	defer func() { <-ch }()
	return fn(ctx)
}
