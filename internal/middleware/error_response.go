package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/nvalencia/taskhub/internal/model"
)

// ErrorResponseBody は通常エラーレスポンスの統一フォーマット。
type ErrorResponseBody struct {
	Error string `json:"error"`
}

// RateLimitResponseBody はレート制限エラーレスポンスのフォーマット。
type RateLimitResponseBody struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

// statusOf はエラー分類をHTTPステータスコードに変換する。
// 分類からステータスへの変換はここでのみ行う。
func statusOf(kind model.ErrorKind) int {
	switch kind {
	case model.KindBadRequest:
		return http.StatusBadRequest
	case model.KindUnauthorized:
		return http.StatusUnauthorized
	case model.KindConflict:
		return http.StatusConflict
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindRateLimited:
		return http.StatusTooManyRequests
	case model.KindServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError はエラーを統一フォーマットのHTTPレスポンスに変換して書き込む。
// APIError以外のエラーは内部エラーとして扱い、詳細はレスポンスに含めない。
func WriteError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		apiErr = model.NewInternalError()
	}

	w.Header().Set("Content-Type", "application/json")

	// レート制限のみRetry-Afterヘッダー付きの専用フォーマットを使用
	if apiErr.Kind == model.KindRateLimited {
		retryAfter := apiErr.RetryAfter
		if retryAfter < 1 {
			retryAfter = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(RateLimitResponseBody{
			Error:      "rate_limit_exceeded",
			Message:    apiErr.Message,
			RetryAfter: retryAfter,
		})
		return
	}

	w.WriteHeader(statusOf(apiErr.Kind))
	json.NewEncoder(w).Encode(ErrorResponseBody{Error: apiErr.Message})
}

// WriteJSON はJSONレスポンスを書き込む。
func WriteJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}
