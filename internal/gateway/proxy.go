// Package gateway はAPIゲートウェイのルーティングとバックエンドへのプロキシを提供する。
package gateway

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nvalencia/taskhub/internal/metrics"
	"github.com/nvalencia/taskhub/internal/middleware"
	"github.com/nvalencia/taskhub/internal/model"
)

// DefaultProxyTimeout はバックエンド呼び出しのデフォルトタイムアウト。
const DefaultProxyTimeout = 10 * time.Second

// hopByHopHeaders はプロキシで転送してはならないヘッダー。
// Content-Lengthは転送時にhttpパッケージが再計算するため除外する。
var hopByHopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
	"Content-Length":      {},
}

// Backends は3つのバックエンドサービスのベースURL。
type Backends struct {
	Auth string
	User string
	Task string
}

// Proxy はパスプレフィックスに基づいてリクエストをバックエンドへ中継する。
// メソッド、サブパス、クエリ、ボディ、ステータスをそのまま転送する。
type Proxy struct {
	client    *http.Client
	logger    *slog.Logger
	collector metrics.GatewayCollector

	authBase *url.URL
	userBase *url.URL
	taskBase *url.URL
}

// NewProxy はProxyの新しいインスタンスを生成する。
// いずれかのベースURLがパースできない場合はエラーを返す。
func NewProxy(client *http.Client, logger *slog.Logger, collector metrics.GatewayCollector, backends Backends) (*Proxy, error) {
	authBase, err := url.Parse(backends.Auth)
	if err != nil {
		return nil, fmt.Errorf("認証サービスのURLのパースに失敗しました: %w", err)
	}
	userBase, err := url.Parse(backends.User)
	if err != nil {
		return nil, fmt.Errorf("ユーザーサービスのURLのパースに失敗しました: %w", err)
	}
	taskBase, err := url.Parse(backends.Task)
	if err != nil {
		return nil, fmt.Errorf("タスクサービスのURLのパースに失敗しました: %w", err)
	}

	return &Proxy{
		client:    client,
		logger:    logger,
		collector: collector,
		authBase:  authBase,
		userBase:  userBase,
		taskBase:  taskBase,
	}, nil
}

// resolve はリクエストパスから転送先バックエンドと転送パスを決定する。
// /authと/userのプレフィックスは取り除いてサブパスのみを転送する。
// /tasksはタスクサービス側も同じパスを公開しているためそのまま転送する。
// どのバックエンドにも該当しないパスはok=falseを返す。
func (p *Proxy) resolve(path string) (name string, base *url.URL, upstreamPath string, ok bool) {
	switch {
	case path == "/auth" || strings.HasPrefix(path, "/auth/"):
		sub := strings.TrimPrefix(path, "/auth")
		if sub == "" {
			sub = "/"
		}
		return "auth", p.authBase, sub, true
	case path == "/user" || strings.HasPrefix(path, "/user/"):
		sub := strings.TrimPrefix(path, "/user")
		if sub == "" {
			sub = "/"
		}
		return "user", p.userBase, sub, true
	case path == "/tasks" || strings.HasPrefix(path, "/tasks/"):
		return "task", p.taskBase, path, true
	default:
		return "", nil, "", false
	}
}

// ServeHTTP はリクエストをバックエンドへ中継する。
// どのバックエンドにも該当しないパスは404を返す。
// バックエンドに到達できない場合やタイムアウト時は503を返す。
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	backend, base, path, ok := p.resolve(r.URL.Path)
	if !ok {
		middleware.WriteError(w, model.NewNotFoundError("指定されたパスは存在しません。"))
		return
	}

	// 空のサブパスはコレクションルートに正規化する（/tasks/ → /tasks）
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}

	target := *base
	target.Path = strings.TrimSuffix(base.Path, "/") + path
	target.RawQuery = r.URL.RawQuery

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), r.Body)
	if err != nil {
		p.logger.Error("failed to build upstream request",
			slog.String("backend", backend),
			slog.String("error", err.Error()),
		)
		middleware.WriteError(w, model.NewInternalError())
		return
	}

	copyHeaders(req.Header, r.Header)
	// Hostヘッダーはバックエンドのものに置き換える（net/httpがURLから設定する）
	req.Host = ""

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		p.collector.RecordUpstreamError(backend)
		p.logger.Error("upstream request failed",
			slog.String("backend", backend),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		middleware.WriteError(w, model.NewServiceUnavailableError())
		return
	}
	defer resp.Body.Close()

	p.collector.RecordUpstreamLatency(backend, time.Since(start))

	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		p.logger.Warn("failed to relay upstream response body",
			slog.String("backend", backend),
			slog.String("error", err.Error()),
		)
	}
}

// copyHeaders はhop-by-hopヘッダーを除いてヘッダーをコピーする。
func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		if _, skip := hopByHopHeaders[http.CanonicalHeaderKey(key)]; skip {
			continue
		}
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}
