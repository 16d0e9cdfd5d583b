package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newTestRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	return mr, rdb
}

func TestMutexTryLockAndUnlock(t *testing.T) {
	t.Parallel()

	_, rdb := newTestRedisClient(t)

	mutex, err := NewMutex(rdb, "sweep:lock", time.Minute)
	if err != nil {
		t.Fatalf("NewMutex() error = %v", err)
	}

	acquired, err := mutex.TryLock(context.Background())
	if err != nil {
		t.Fatalf("TryLock() error = %v", err)
	}
	if !acquired {
		t.Fatal("first TryLock should acquire")
	}

	if err := mutex.Unlock(context.Background()); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}

	acquired, err = mutex.TryLock(context.Background())
	if err != nil {
		t.Fatalf("TryLock() after unlock error = %v", err)
	}
	if !acquired {
		t.Fatal("lock should be reacquirable after unlock")
	}
}

func TestMutexSecondHolderBlocked(t *testing.T) {
	t.Parallel()

	_, rdb := newTestRedisClient(t)

	first, err := NewMutex(rdb, "sweep:lock", time.Minute)
	if err != nil {
		t.Fatalf("NewMutex() error = %v", err)
	}
	second, err := NewMutex(rdb, "sweep:lock", time.Minute)
	if err != nil {
		t.Fatalf("NewMutex() error = %v", err)
	}

	if acquired, err := first.TryLock(context.Background()); err != nil || !acquired {
		t.Fatalf("first TryLock() = %v, %v", acquired, err)
	}

	acquired, err := second.TryLock(context.Background())
	if err != nil {
		t.Fatalf("second TryLock() error = %v", err)
	}
	if acquired {
		t.Fatal("second holder should not acquire a held lock")
	}

	if err := first.Unlock(context.Background()); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}

	acquired, err = second.TryLock(context.Background())
	if err != nil {
		t.Fatalf("second TryLock() after unlock error = %v", err)
	}
	if !acquired {
		t.Fatal("second holder should acquire after release")
	}
}

func TestMutexUnlockDoesNotReleaseForeignLock(t *testing.T) {
	t.Parallel()

	mr, rdb := newTestRedisClient(t)

	stale, err := NewMutex(rdb, "sweep:lock", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewMutex() error = %v", err)
	}
	if acquired, err := stale.TryLock(context.Background()); err != nil || !acquired {
		t.Fatalf("TryLock() = %v, %v", acquired, err)
	}

	// Expire the stale holder's key, then let a fresh holder take the lock.
	mr.FastForward(time.Second)

	fresh, err := NewMutex(rdb, "sweep:lock", time.Minute)
	if err != nil {
		t.Fatalf("NewMutex() error = %v", err)
	}
	if acquired, err := fresh.TryLock(context.Background()); err != nil || !acquired {
		t.Fatalf("fresh TryLock() = %v, %v", acquired, err)
	}

	// The stale holder's token no longer matches; its unlock must not
	// release the fresh holder's lock.
	if err := stale.Unlock(context.Background()); err != nil {
		t.Fatalf("stale Unlock() error = %v", err)
	}

	another, err := NewMutex(rdb, "sweep:lock", time.Minute)
	if err != nil {
		t.Fatalf("NewMutex() error = %v", err)
	}
	acquired, err := another.TryLock(context.Background())
	if err != nil {
		t.Fatalf("TryLock() error = %v", err)
	}
	if acquired {
		t.Fatal("fresh holder's lock should survive a stale unlock")
	}
}

func TestMutexUnlockWithoutLockIsNoop(t *testing.T) {
	t.Parallel()

	_, rdb := newTestRedisClient(t)

	mutex, err := NewMutex(rdb, "sweep:lock", time.Minute)
	if err != nil {
		t.Fatalf("NewMutex() error = %v", err)
	}

	if err := mutex.Unlock(context.Background()); err != nil {
		t.Fatalf("Unlock() without a held lock should be a no-op, got %v", err)
	}
}
