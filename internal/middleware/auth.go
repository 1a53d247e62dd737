package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/nvalencia/taskhub/internal/model"
	"github.com/nvalencia/taskhub/internal/token"
)

// BearerToken はAuthorizationヘッダーからbearerトークンを取り出す。
// ヘッダーが存在しない、または形式が不正な場合は空文字列を返す。
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// NewAuthMiddleware はセッショントークンを要求するミドルウェアを返す。
// トークンを検証し、認証済みクレームをリクエストコンテキストに注入する。
// OTP検証前の一時トークン（MFAフラグ付き）は拒否する。
func NewAuthMiddleware(codec *token.Codec) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := BearerToken(r)
			if raw == "" {
				WriteError(w, model.NewUnauthorizedError("認証トークンがありません。"))
				return
			}

			claims, err := codec.Decode(raw)
			if err != nil {
				if errors.Is(err, token.ErrExpired) {
					WriteError(w, model.NewUnauthorizedError("トークンの有効期限が切れています。再度ログインしてください。"))
					return
				}
				WriteError(w, model.NewUnauthorizedError("無効なトークンです。"))
				return
			}

			// OTP検証を完了していない一時トークンではAPIにアクセスできない
			if claims.MFAPending {
				WriteError(w, model.NewUnauthorizedError("OTP検証が完了していません。"))
				return
			}

			ctx := ContextWithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
