// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"

	"github.com/nvalencia/taskhub/internal/token"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// claimsContextKey はリクエストコンテキストに認証済みクレームを格納するためのキー。
	claimsContextKey = contextKey("claims")
	// identityContextKey はレート制限用のアイデンティティキーを格納するためのキー。
	identityContextKey = contextKey("identity")
	// identityHolderContextKey はアイデンティティスロットを格納するためのキー。
	identityHolderContextKey = contextKey("identity_holder")
	// requestIDContextKey はリクエストIDを格納するためのキー。
	requestIDContextKey = contextKey("request_id")
)

// identityHolder は下流ミドルウェアが解決したアイデンティティを、派生前の
// コンテキストしか持たない上流（監査ログ）へ伝搬するための可変スロット。
// リクエストごとに1つ生成され、リクエスト処理goroutine内でのみ書き込まれる。
type identityHolder struct {
	value string
}

// ClaimsFromContext はリクエストコンテキストから認証済みクレームを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func ClaimsFromContext(ctx context.Context) (*token.Claims, error) {
	claims, ok := ctx.Value(claimsContextKey).(*token.Claims)
	if !ok || claims == nil {
		return nil, fmt.Errorf("claims not found in context")
	}
	return claims, nil
}

// ContextWithClaims はコンテキストに認証済みクレームを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithClaims(ctx context.Context, claims *token.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// IdentityFromContext はリクエストコンテキストからアイデンティティキーを取得する。
// レート制限ミドルウェアがアイデンティティを解決した後でのみ有効。
// スロット経由の値を優先し、直接注入された値にフォールバックする。
func IdentityFromContext(ctx context.Context) (string, error) {
	if holder, ok := ctx.Value(identityHolderContextKey).(*identityHolder); ok && holder.value != "" {
		return holder.value, nil
	}
	identity, ok := ctx.Value(identityContextKey).(string)
	if !ok || identity == "" {
		return "", fmt.Errorf("identity not found in context")
	}
	return identity, nil
}

// ContextWithIdentity はコンテキストにアイデンティティキーを注入する。
func ContextWithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// ContextWithIdentityHolder は空のアイデンティティスロットをコンテキストに設置する。
// ロギングミドルウェアがリクエスト先頭で呼び出し、下流で解決された
// アイデンティティを監査ログから参照できるようにする。
func ContextWithIdentityHolder(ctx context.Context) context.Context {
	return context.WithValue(ctx, identityHolderContextKey, &identityHolder{})
}

// SetIdentity は設置済みのスロットに解決済みアイデンティティを書き込む。
// スロットが未設置の場合は何もしない。
func SetIdentity(ctx context.Context, identity string) {
	if holder, ok := ctx.Value(identityHolderContextKey).(*identityHolder); ok {
		holder.value = identity
	}
}

// RequestIDFromContext はリクエストコンテキストからリクエストIDを取得する。
// 未設定の場合は空文字列を返す。
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

// ContextWithRequestID はコンテキストにリクエストIDを注入する。
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}
