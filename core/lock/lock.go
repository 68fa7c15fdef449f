package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/bsm/redislock"
	"github.com/gofrs/flock"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotObtained is returned when another pass holds the lock.
	ErrNotObtained = errors.New("lock is held by another pass")
	// ErrLost is the cancel cause of a KeepAlive context whose lease could not be extended.
	ErrLost = errors.New("lock lease lost")
)

// Config holds configuration for pass locking.
type Config struct {
	// Driver selects the lock backend (redis, file, none).
	Driver string `mapstructure:"driver" default:"redis"`
	// Dir holds lock files for the file driver.
	Dir string `mapstructure:"dir" default:"/tmp/dsc-locks"`
	// TTLSeconds is the lease of a redis lock.
	TTLSeconds int `mapstructure:"ttl_seconds" default:"900"`
}

const (
	DriverRedis = "redis"
	DriverFile  = "file"
	DriverNone  = "none"
)

// Locker serializes passes operating on the same key.
type Locker interface {
	// Obtain acquires the lock for key or returns ErrNotObtained.
	Obtain(ctx context.Context, key string) (Lock, error)
}

// Lock is a held lock.
type Lock interface {
	// Refresh extends the lease. Locks without a lease return nil.
	Refresh(ctx context.Context) error
	Release(ctx context.Context) error
}

// Lease returns the redis lock lease.
func (c Config) Lease() time.Duration {
	if c.TTLSeconds <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.TTLSeconds) * time.Second
}

// New builds the Locker for the configured driver.
func New(cfg Config, rdb redis.UniversalClient) (Locker, error) {
	switch cfg.Driver {
	case DriverRedis, "":
		if rdb == nil {
			return nil, fmt.Errorf("redis lock driver requires a redis client")
		}
		return &RedisLocker{client: redislock.New(rdb), ttl: cfg.Lease()}, nil
	case DriverFile:
		return &FileLocker{dir: cfg.Dir}, nil
	case DriverNone:
		return NopLocker{}, nil
	default:
		return nil, fmt.Errorf("unsupported lock driver: %s", cfg.Driver)
	}
}

// BatchKey is the lock key for passes over one batch.
func BatchKey(batchID string) string {
	return "dsc:batch:" + batchID
}

// RedisLocker leases locks from Redis with redislock.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
}

func (l *RedisLocker) Obtain(ctx context.Context, key string) (Lock, error) {
	lk, err := l.client.Obtain(ctx, key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrNotObtained, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}
	return redisLock{Lock: lk, ttl: l.ttl}, nil
}

type redisLock struct {
	*redislock.Lock
	ttl time.Duration
}

func (l redisLock) Refresh(ctx context.Context) error {
	err := l.Lock.Refresh(ctx, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return fmt.Errorf("%w: %s", ErrLost, l.Key())
	}
	return err
}

func (l redisLock) Release(ctx context.Context) error {
	err := l.Lock.Release(ctx)
	if err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
		return err
	}
	return nil
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileLocker takes an exclusive flock per key inside dir.
// It only serializes passes on the same host.
type FileLocker struct {
	dir string
}

func (l *FileLocker) Obtain(_ context.Context, key string) (Lock, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock dir: %w", err)
	}
	path := filepath.Join(l.dir, unsafeFileChars.ReplaceAllString(key, "_")+".lock")
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotObtained, key)
	}
	return fileLock{fl}, nil
}

type fileLock struct {
	fl *flock.Flock
}

func (fileLock) Refresh(context.Context) error { return nil }

func (l fileLock) Release(context.Context) error {
	return l.fl.Unlock()
}

// NopLocker never blocks.
type NopLocker struct{}

func (NopLocker) Obtain(context.Context, string) (Lock, error) {
	return nopLock{}, nil
}

type nopLock struct{}

func (nopLock) Refresh(context.Context) error { return nil }

func (nopLock) Release(context.Context) error { return nil }

// KeepAlive refreshes lk every interval until stop is called. When a refresh
// fails the returned context is cancelled with a cause wrapping ErrLost.
func KeepAlive(ctx context.Context, lk Lock, interval time.Duration) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := lk.Refresh(ctx); err != nil {
					if !errors.Is(err, ErrLost) {
						err = fmt.Errorf("%w: %w", ErrLost, err)
					}
					cancel(err)
					return
				}
			}
		}
	}()

	return ctx, func() {
		close(done)
		<-stopped
		cancel(nil)
	}
}
