package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLimiter(t *testing.T, config Config) *Limiter {
	t.Helper()
	store := NewMemoryStore(time.Minute)
	t.Cleanup(store.Stop)
	return NewLimiter(store, config, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestLimiter_Admit_AllowsWithinLimit(t *testing.T) {
	l := testLimiter(t, Config{
		PerClass: map[RouteClass][]Limit{
			ClassLogin: {{Max: 3, Window: time.Minute}},
		},
	})

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d := l.Admit(ctx, "user:alice", ClassLogin)
		if !d.Allowed {
			t.Fatalf("request %d denied, want allowed", i+1)
		}
	}
}

func TestLimiter_Admit_DeniesOverLimitWithRetryAfter(t *testing.T) {
	l := testLimiter(t, Config{
		PerClass: map[RouteClass][]Limit{
			ClassLogin: {{Max: 3, Window: time.Minute}},
		},
	})

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		l.Admit(ctx, "user:alice", ClassLogin)
	}

	// N+1回目は拒否され、構造化された理由とretry-afterを持つ
	d := l.Admit(ctx, "user:alice", ClassLogin)
	if d.Allowed {
		t.Fatal("request over limit was allowed")
	}
	if d.Reason != "rate_limit_exceeded" {
		t.Errorf("Reason = %q, want %q", d.Reason, "rate_limit_exceeded")
	}
	if d.RetryAfter < 1 || d.RetryAfter > 60 {
		t.Errorf("RetryAfter = %d, want [1, 60]", d.RetryAfter)
	}
}

func TestLimiter_Admit_DifferentIdentityUnaffected(t *testing.T) {
	l := testLimiter(t, Config{
		PerClass: map[RouteClass][]Limit{
			ClassLogin: {{Max: 2, Window: time.Minute}},
		},
	})

	ctx := context.Background()

	l.Admit(ctx, "user:alice", ClassLogin)
	l.Admit(ctx, "user:alice", ClassLogin)

	if d := l.Admit(ctx, "user:alice", ClassLogin); d.Allowed {
		t.Fatal("alice over limit was allowed")
	}

	// 同じウィンドウ内でも別アイデンティティは許可される
	if d := l.Admit(ctx, "ip:10.0.0.1", ClassLogin); !d.Allowed {
		t.Fatal("different identity was denied")
	}
}

func TestLimiter_Admit_GlobalLimitApplies(t *testing.T) {
	// 分類ごとの制限は緩いが、Global制限で拒否される
	l := testLimiter(t, Config{
		Global: []Limit{{Max: 2, Window: time.Hour}},
		PerClass: map[RouteClass][]Limit{
			ClassTask: {{Max: 100, Window: time.Minute}},
		},
	})

	ctx := context.Background()

	l.Admit(ctx, "user:alice", ClassTask)
	l.Admit(ctx, "user:alice", ClassTask)

	d := l.Admit(ctx, "user:alice", ClassTask)
	if d.Allowed {
		t.Fatal("request over global limit was allowed")
	}
}

func TestLimiter_Admit_GlobalSpansRouteClasses(t *testing.T) {
	l := testLimiter(t, Config{
		Global: []Limit{{Max: 2, Window: time.Hour}},
	})

	ctx := context.Background()

	// Globalカウンタはルート分類をまたいで同一アイデンティティに適用される
	l.Admit(ctx, "user:alice", ClassUser)
	l.Admit(ctx, "user:alice", ClassTask)

	if d := l.Admit(ctx, "user:alice", ClassAuth); d.Allowed {
		t.Fatal("global limit did not span route classes")
	}
}

func TestLimiter_Admit_HealthIsExempt(t *testing.T) {
	l := testLimiter(t, Config{
		Global: []Limit{{Max: 1, Window: time.Hour}},
	})

	ctx := context.Background()

	for i := 0; i < 20; i++ {
		if d := l.Admit(ctx, "ip:10.0.0.1", ClassHealth); !d.Allowed {
			t.Fatalf("health request %d denied", i+1)
		}
	}
}

// errorStore は常にエラーを返すStoreのモック実装。
type errorStore struct{}

func (errorStore) Incr(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("store unavailable")
}

func TestLimiter_Admit_FailsOpenOnStoreError(t *testing.T) {
	l := NewLimiter(errorStore{}, Config{
		Global: []Limit{{Max: 1, Window: time.Hour}},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	// ストア障害時は可用性を優先して許可する
	if d := l.Admit(context.Background(), "user:alice", ClassTask); !d.Allowed {
		t.Fatal("expected fail-open on store error")
	}
}

func TestDefaultConfig_HasGlobalAndClassLimits(t *testing.T) {
	cfg := DefaultConfig()

	if len(cfg.Global) == 0 {
		t.Error("default config has no global limits")
	}
	for _, class := range []RouteClass{ClassLogin, ClassRegister, ClassAuth, ClassUser, ClassTask} {
		if len(cfg.PerClass[class]) == 0 {
			t.Errorf("default config has no limits for class %q", class)
		}
	}
	// ヘルスチェックは制限対象外
	if len(cfg.PerClass[ClassHealth]) != 0 {
		t.Error("health class must not carry limits")
	}
}
