package pathlock_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mediavault/internal/pathlock"
	"mediavault/internal/services"
)

func TestLockSerializesSamePath(t *testing.T) {
	locker := pathlock.New(pathlock.WithRetryDelay(5 * time.Millisecond))
	path := filepath.Join(t.TempDir(), "1.mp4")

	var active, maxActive int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Lock(context.Background(), path)
			if err != nil {
				t.Errorf("Lock: %v", err)
				return
			}
			defer release()
			now := atomic.AddInt32(&active, 1)
			for {
				prev := atomic.LoadInt32(&maxActive)
				if now <= prev || atomic.CompareAndSwapInt32(&maxActive, prev, now) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()
	if maxActive != 1 {
		t.Fatalf("expected at most one holder, saw %d", maxActive)
	}
}

func TestLockDifferentPathsDoNotBlock(t *testing.T) {
	locker := pathlock.New()
	dir := t.TempDir()
	releaseA, err := locker.Lock(context.Background(), filepath.Join(dir, "1.mp4"))
	if err != nil {
		t.Fatalf("Lock A: %v", err)
	}
	defer releaseA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	releaseB, err := locker.Lock(ctx, filepath.Join(dir, "2.mp4"))
	if err != nil {
		t.Fatalf("Lock B: %v", err)
	}
	releaseB()
}

func TestLockHonoursContextWhileWaiting(t *testing.T) {
	locker := pathlock.New()
	path := filepath.Join(t.TempDir(), "temp.mp4")
	release, err := locker.Lock(context.Background(), path)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, path); !errors.Is(err, services.ErrCanceled) {
		t.Fatalf("expected canceled error, got %v", err)
	}

	release()
	release()
	again, err := locker.Lock(context.Background(), path)
	if err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	again()
}

func TestFileLockExcludesOtherLockers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "3.pdf")
	first := pathlock.New()
	second := pathlock.New(pathlock.WithRetryDelay(5 * time.Millisecond))

	release, err := first.Lock(context.Background(), path)
	if err != nil {
		t.Fatalf("first Lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := second.Lock(ctx, path); err == nil {
		t.Fatal("expected second locker to be blocked by file lock")
	}

	release()
	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	releaseSecond, err := second.Lock(ctx2, path)
	if err != nil {
		t.Fatalf("second Lock after release: %v", err)
	}
	releaseSecond()
}

func TestLockRejectsEmptyPath(t *testing.T) {
	if _, err := pathlock.New().Lock(context.Background(), ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLockFileCreatedBesidePath(t *testing.T) {
	locker := pathlock.New()
	path := filepath.Join(t.TempDir(), "9.pdf")
	release, err := locker.Lock(context.Background(), path)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer release()
	if pathlock.LockFile(path) != path+".lock" {
		t.Fatalf("LockFile = %q", pathlock.LockFile(path))
	}
	if _, err := os.Stat(pathlock.LockFile(path)); err != nil {
		t.Fatalf("expected lock file while held: %v", err)
	}
}
