package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// RouteClass はレート制限のルート分類を表す。
type RouteClass string

// ルート分類の定義
const (
	ClassLogin    RouteClass = "login"
	ClassRegister RouteClass = "register"
	ClassAuth     RouteClass = "auth"
	ClassUser     RouteClass = "user"
	ClassTask     RouteClass = "task"
	// ClassHealth はヘルスチェック。すべての制限から明示的に除外される。
	ClassHealth RouteClass = "health"
)

// Limit は1ウィンドウあたりの上限を表す。
type Limit struct {
	Max    int64
	Window time.Duration
}

// Config はレート制限の設定を保持する。
// リクエストはGlobalとルート分類ごとの制限のすべてを通過しなければ許可されない。
type Config struct {
	// Global はルート分類に関わらず適用されるアイデンティティ単位の上限。
	Global []Limit
	// PerClass はルート分類ごとの上限。エントリがない分類はGlobalのみが適用される。
	PerClass map[RouteClass][]Limit
}

// DefaultConfig はデフォルトのレート制限設定を返す。
func DefaultConfig() Config {
	return Config{
		Global: []Limit{
			{Max: 1000, Window: time.Hour},
			{Max: 5000, Window: 24 * time.Hour},
		},
		PerClass: map[RouteClass][]Limit{
			ClassLogin:    {{Max: 10, Window: time.Minute}, {Max: 100, Window: time.Hour}},
			ClassRegister: {{Max: 5, Window: time.Minute}, {Max: 20, Window: time.Hour}},
			ClassAuth:     {{Max: 60, Window: time.Minute}},
			ClassUser:     {{Max: 120, Window: time.Minute}},
			ClassTask:     {{Max: 120, Window: time.Minute}},
		},
	}
}

// Decision はアドミッション判定の結果を表す。
type Decision struct {
	Allowed bool
	// Reason は拒否時の機械可読な理由コード。
	Reason string
	// RetryAfter は違反したすべてのウィンドウが解除されるまでの秒数。不明な場合は0。
	RetryAfter int
}

// Limiter はアイデンティティ単位の流入制御を行う。
// カウンタの保存先はStoreとして注入される。
type Limiter struct {
	store  Store
	config Config
	logger *slog.Logger
}

// NewLimiter はLimiterを生成する。
func NewLimiter(store Store, config Config, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{
		store:  store,
		config: config,
		logger: logger,
	}
}

// Admit はアイデンティティキーとルート分類に対する流入可否を判定する。
// Global制限とルート分類制限のすべてを通過した場合のみ許可する。
// ヘルスチェック分類は無条件に許可する。
// ストア障害時はフェイルオープン（許可）とし、ログに記録する。
func (l *Limiter) Admit(ctx context.Context, identityKey string, class RouteClass) Decision {
	if class == ClassHealth {
		return Decision{Allowed: true}
	}

	var retryAfter time.Duration
	denied := false

	check := func(scope string, limit Limit) {
		key := fmt.Sprintf("%s:%s:%s", identityKey, scope, limit.Window)
		count, remaining, err := l.store.Incr(ctx, key, limit.Window)
		if err != nil {
			// 可用性を優先してフェイルオープンにする
			l.logger.Warn("rate limit store error",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
			return
		}
		if count > limit.Max {
			denied = true
			if remaining > retryAfter {
				retryAfter = remaining
			}
		}
	}

	for _, limit := range l.config.Global {
		check("global", limit)
	}
	for _, limit := range l.config.PerClass[class] {
		check(string(class), limit)
	}

	if denied {
		return Decision{
			Allowed:    false,
			Reason:     "rate_limit_exceeded",
			RetryAfter: retryAfterSeconds(retryAfter),
		}
	}

	return Decision{Allowed: true}
}

// retryAfterSeconds は残り時間を切り上げの秒数に変換する。最低1秒。
func retryAfterSeconds(d time.Duration) int {
	sec := int(math.Ceil(d.Seconds()))
	if sec < 1 {
		sec = 1
	}
	return sec
}
