package middleware

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/nvalencia/taskhub/internal/model"
	"github.com/nvalencia/taskhub/internal/ratelimit"
	"github.com/nvalencia/taskhub/internal/token"
)

// ClassifyRoute はリクエストパスからレート制限のルートクラスを決定する。
func ClassifyRoute(path string) ratelimit.RouteClass {
	switch {
	case path == "/health":
		return ratelimit.ClassHealth
	case path == "/auth/login":
		return ratelimit.ClassLogin
	case path == "/auth/register":
		return ratelimit.ClassRegister
	case path == "/auth" || strings.HasPrefix(path, "/auth/"):
		return ratelimit.ClassAuth
	case path == "/user" || strings.HasPrefix(path, "/user/"):
		return ratelimit.ClassUser
	default:
		return ratelimit.ClassTask
	}
}

// ResolveIdentity はリクエストからレート制限用のアイデンティティキーを解決する。
// デコード可能なbearerトークンがあれば"user:<ユーザー名>"、なければ"ip:<送信元アドレス>"。
// トークンの不備はここではエラーにせず、IPベースのキーに静かに降格する。
func ResolveIdentity(r *http.Request, codec *token.Codec) string {
	if raw := BearerToken(r); raw != "" {
		if claims, err := codec.Decode(raw); err == nil && claims.Username != "" {
			return fmt.Sprintf("user:%s", claims.Username)
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return fmt.Sprintf("ip:%s", host)
}

// NewRateLimitMiddleware はルートクラスごとのレート制限ミドルウェアを返す。
// 解決したアイデンティティをコンテキストに注入する（監査ログで使用）。
// 制限超過時はRetry-Afterヘッダー付きの429を返す。
func NewRateLimitMiddleware(limiter *ratelimit.Limiter, codec *token.Codec, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := ResolveIdentity(r, codec)
			// 上流の監査ログへはスロット経由で、下流へは派生コンテキストで伝搬する
			SetIdentity(r.Context(), identity)
			ctx := ContextWithIdentity(r.Context(), identity)
			r = r.WithContext(ctx)

			class := ClassifyRoute(r.URL.Path)

			decision := limiter.Admit(ctx, identity, class)
			if !decision.Allowed {
				logger.Warn("rate limit exceeded",
					slog.String("identity", identity),
					slog.String("route_class", string(class)),
					slog.String("path", r.URL.Path),
					slog.Int("retry_after", decision.RetryAfter),
				)
				WriteError(w, model.NewRateLimitedError(decision.RetryAfter))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
