// Package model はドメインモデルを定義する。
package model

import "fmt"

// ErrorKind はエラー分類を表す。
// HTTPステータスへの変換はmiddleware.WriteErrorの1箇所でのみ行う。
type ErrorKind string

// エラー分類の定義
const (
	KindBadRequest         ErrorKind = "bad_request"
	KindUnauthorized       ErrorKind = "unauthorized"
	KindConflict           ErrorKind = "conflict"
	KindNotFound           ErrorKind = "not_found"
	KindRateLimited        ErrorKind = "rate_limited"
	KindServiceUnavailable ErrorKind = "service_unavailable"
	KindInternal           ErrorKind = "internal"
)

// APIError は統一エラーフォーマットを表す。
// 境界（ハンドラー／ゲートウェイ）で一度だけHTTPレスポンスに変換する。
type APIError struct {
	Kind       ErrorKind // エラー分類
	Message    string    // ユーザー向けメッセージ
	RetryAfter int       // レート制限時の再試行待ち秒数（0なら不明）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// NewBadRequestError は入力不備エラーを生成する。
func NewBadRequestError(message string) *APIError {
	return &APIError{Kind: KindBadRequest, Message: message}
}

// NewUnauthorizedError は認証失敗エラーを生成する。
func NewUnauthorizedError(message string) *APIError {
	return &APIError{Kind: KindUnauthorized, Message: message}
}

// NewConflictError は一意制約違反エラーを生成する。
func NewConflictError(message string) *APIError {
	return &APIError{Kind: KindConflict, Message: message}
}

// NewNotFoundError はリソース未検出エラーを生成する。
func NewNotFoundError(message string) *APIError {
	return &APIError{Kind: KindNotFound, Message: message}
}

// NewRateLimitedError はレート制限エラーを生成する。
// retryAfterは最も早く制限が解除されるまでの秒数。
func NewRateLimitedError(retryAfter int) *APIError {
	return &APIError{
		Kind:       KindRateLimited,
		Message:    "リクエスト数が上限に達しました。しばらく待ってから再度お試しください。",
		RetryAfter: retryAfter,
	}
}

// NewServiceUnavailableError はバックエンド到達不能エラーを生成する。
func NewServiceUnavailableError() *APIError {
	return &APIError{
		Kind:    KindServiceUnavailable,
		Message: "バックエンドサービスに接続できません。しばらく待ってから再度お試しください。",
	}
}

// NewInternalError は予期しない内部エラーを生成する。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Kind:    KindInternal,
		Message: "内部エラーが発生しました。",
	}
}
