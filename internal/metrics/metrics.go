// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// GatewayCollector はゲートウェイのメトリクス収集のインターフェース。
// ミドルウェアとプロキシ層から利用する。
type GatewayCollector interface {
	RecordRequest(routeClass string, statusCode int)
	RecordRateLimitDenial(routeClass string)
	RecordUpstreamLatency(backend string, duration time.Duration)
	RecordUpstreamError(backend string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	requests        *prometheus.CounterVec
	rateLimitDenied *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	upstreamErrors  *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskhub_gateway_requests_total",
			Help: "ルートクラスとステータスコード別のリクエスト数",
		}, []string{"route_class", "status_code"}),
		rateLimitDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskhub_gateway_rate_limit_denied_total",
			Help: "ルートクラス別のレート制限拒否数",
		}, []string{"route_class"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskhub_gateway_upstream_latency_seconds",
			Help:    "バックエンド別のプロキシレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"backend"}),
		upstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskhub_gateway_upstream_errors_total",
			Help: "バックエンド別の到達不能エラー数",
		}, []string{"backend"}),
	}

	reg.MustRegister(
		c.requests,
		c.rateLimitDenied,
		c.upstreamLatency,
		c.upstreamErrors,
	)

	return c
}

// RecordRequest は処理済みリクエストを記録する。
func (c *Collector) RecordRequest(routeClass string, statusCode int) {
	c.requests.WithLabelValues(routeClass, strconv.Itoa(statusCode)).Inc()
}

// RecordRateLimitDenial はレート制限による拒否を記録する。
func (c *Collector) RecordRateLimitDenial(routeClass string) {
	c.rateLimitDenied.WithLabelValues(routeClass).Inc()
}

// RecordUpstreamLatency はバックエンド呼び出しのレイテンシを記録する。
func (c *Collector) RecordUpstreamLatency(backend string, duration time.Duration) {
	c.upstreamLatency.WithLabelValues(backend).Observe(duration.Seconds())
}

// RecordUpstreamError はバックエンド到達不能エラーを記録する。
func (c *Collector) RecordUpstreamError(backend string) {
	c.upstreamErrors.WithLabelValues(backend).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
