// Package ratelimit はアイデンティティ単位の流入制御（アドミッションコントロール）を提供する。
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Store はウィンドウ付きカウンタの保存先インターフェース。
// プロセス内メモリ実装がデフォルトだが、複数インスタンス構成では
// Redis等の共有ストアに差し替えられるよう注入可能にしている。
type Store interface {
	// Incr はキーのカウンタをインクリメントし、現在値とウィンドウ残り時間を返す。
	// キーが未登録または前ウィンドウが満了している場合は1から開始する。
	Incr(ctx context.Context, key string, window time.Duration) (count int64, remaining time.Duration, err error)
}

// counterEntry は固定ウィンドウカウンタの1エントリ。
type counterEntry struct {
	count   int64
	resetAt time.Time
}

// MemoryStore はプロセス内メモリの固定ウィンドウカウンタストア。
// 並行アクセスに対して安全。プロセスローカルであり、インスタンス間で共有されない。
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*counterEntry

	stopCh chan struct{}
}

// NewMemoryStore はMemoryStoreを生成する。
// バックグラウンドで満了エントリのクリーンアップを開始する。
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*counterEntry),
		stopCh:  make(chan struct{}),
	}

	go s.cleanupLoop(cleanupInterval)

	return s
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (s *MemoryStore) Stop() {
	close(s.stopCh)
}

// Incr はキーのカウンタをインクリメントする。
func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || now.After(e.resetAt) {
		// 新規作成またはウィンドウのロールオーバー
		e = &counterEntry{count: 0, resetAt: now.Add(window)}
		s.entries[key] = e
	}

	e.count++
	return e.count, e.resetAt.Sub(now), nil
}

// EntryCount は現在保持しているカウンタのエントリ数を返す。
// テストおよびメトリクス用。
func (s *MemoryStore) EntryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// cleanupLoop はバックグラウンドで満了エントリを定期的に削除する。
func (s *MemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup はウィンドウが満了したエントリを削除する。
func (s *MemoryStore) cleanup() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.entries {
		if now.After(e.resetAt) {
			delete(s.entries, key)
		}
	}
}

// compile-time interface check
var _ Store = (*MemoryStore)(nil)
