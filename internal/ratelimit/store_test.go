package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryStore_Incr_CountsWithinWindow(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Stop()

	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		count, remaining, err := s.Incr(ctx, "user:alice:login:1m0s", time.Minute)
		if err != nil {
			t.Fatalf("Incr: %v", err)
		}
		if count != i {
			t.Errorf("count = %d, want %d", count, i)
		}
		if remaining <= 0 || remaining > time.Minute {
			t.Errorf("remaining = %v, want (0, 1m]", remaining)
		}
	}
}

func TestMemoryStore_Incr_IndependentKeys(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Stop()

	ctx := context.Background()

	s.Incr(ctx, "user:alice", time.Minute)
	s.Incr(ctx, "user:alice", time.Minute)
	count, _, _ := s.Incr(ctx, "ip:10.0.0.1", time.Minute)

	if count != 1 {
		t.Errorf("count for independent key = %d, want 1", count)
	}
}

func TestMemoryStore_Incr_WindowRollover(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Stop()

	ctx := context.Background()

	// 極めて短いウィンドウで満了を待ち、カウンタが1から再開することを検証
	s.Incr(ctx, "user:alice", 10*time.Millisecond)
	s.Incr(ctx, "user:alice", 10*time.Millisecond)

	time.Sleep(20 * time.Millisecond)

	count, _, err := s.Incr(ctx, "user:alice", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Incr: %v", err)
	}
	if count != 1 {
		t.Errorf("count after rollover = %d, want 1", count)
	}
}

func TestMemoryStore_Incr_ConcurrentIncrements(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Stop()

	ctx := context.Background()

	const goroutines = 50
	const perGoroutine = 10

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				s.Incr(ctx, "user:concurrent", time.Minute)
			}
		}()
	}
	wg.Wait()

	// 読み取り時点でカウンタは完了した全インクリメントを反映する
	count, _, err := s.Incr(ctx, "user:concurrent", time.Minute)
	if err != nil {
		t.Fatalf("Incr: %v", err)
	}
	if count != goroutines*perGoroutine+1 {
		t.Errorf("count = %d, want %d", count, goroutines*perGoroutine+1)
	}
}

func TestMemoryStore_Cleanup_RemovesExpiredEntries(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	defer s.Stop()

	ctx := context.Background()

	s.Incr(ctx, "user:short", 5*time.Millisecond)
	s.Incr(ctx, "user:long", time.Hour)

	time.Sleep(10 * time.Millisecond)
	s.cleanup()

	if got := s.EntryCount(); got != 1 {
		t.Errorf("EntryCount = %d, want 1 (expired entry removed)", got)
	}
}
