package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore はRedisを使用した固定ウィンドウカウンタストア。
// 複数のゲートウェイインスタンス間でカウンタを共有する場合に使用する。
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore はRedisStoreを生成する。
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Incr はキーのカウンタをインクリメントする。
// ウィンドウ内の最初のヒットでのみTTLを設定する（固定ウィンドウ方式）。
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	redisKey := "ratelimit:" + key

	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to increment counter: %w", err)
	}

	if count == 1 {
		if err := s.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("failed to set counter ttl: %w", err)
		}
		return count, window, nil
	}

	remaining, err := s.client.TTL(ctx, redisKey).Result()
	if err != nil || remaining < 0 {
		// TTLが取得できない場合はウィンドウ全長を残り時間として扱う
		remaining = window
	}

	return count, remaining, nil
}

// compile-time interface check
var _ Store = (*RedisStore)(nil)
