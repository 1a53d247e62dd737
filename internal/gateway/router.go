package gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nvalencia/taskhub/internal/metrics"
	"github.com/nvalencia/taskhub/internal/middleware"
	"github.com/nvalencia/taskhub/internal/ratelimit"
	"github.com/nvalencia/taskhub/internal/token"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Proxy             *Proxy
	Limiter           *ratelimit.Limiter
	Codec             *token.Codec
	Logger            *slog.Logger
	Collector         metrics.GatewayCollector
	Gatherer          prometheus.Gatherer
	CORSAllowedOrigin string
}

// NewRouter はゲートウェイの全ルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Logging → Recovery → CORS → Metrics → RateLimit
//
// /healthと/metricsはプロキシせずゲートウェイ自身が応答する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(newMetricsMiddleware(deps.Collector))
	r.Use(middleware.NewRateLimitMiddleware(deps.Limiter, deps.Codec, deps.Logger))

	// ゲートウェイ自身のエンドポイント
	r.Get("/health", HealthHandler)
	r.Handle("/metrics", metrics.Handler(deps.Gatherer))

	// それ以外はすべてバックエンドへプロキシ
	r.NotFound(deps.Proxy.ServeHTTP)

	return r
}

// HealthHandler はゲートウェイの死活確認に応答する。
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// metricsRecorder はhttp.ResponseWriterをラップし、ステータスコードを記録する。
type metricsRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (mr *metricsRecorder) WriteHeader(code int) {
	if !mr.written {
		mr.statusCode = code
		mr.written = true
	}
	mr.ResponseWriter.WriteHeader(code)
}

func (mr *metricsRecorder) Write(b []byte) (int, error) {
	if !mr.written {
		mr.statusCode = http.StatusOK
		mr.written = true
	}
	return mr.ResponseWriter.Write(b)
}

// newMetricsMiddleware はルートクラスとステータスコード別のメトリクスを記録する
// ミドルウェアを返す。429はレート制限拒否としても記録する。
func newMetricsMiddleware(collector metrics.GatewayCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &metricsRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rec, r)

			class := string(middleware.ClassifyRoute(r.URL.Path))
			collector.RecordRequest(class, rec.statusCode)
			if rec.statusCode == http.StatusTooManyRequests {
				collector.RecordRateLimitDenial(class)
			}
		})
	}
}
