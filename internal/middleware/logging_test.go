package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nvalencia/taskhub/internal/ratelimit"
	"github.com/nvalencia/taskhub/internal/token"
)

func TestLoggingMiddleware_RecordsRequestFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := NewLoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	r := httptest.NewRequest(http.MethodPost, "/auth/register", nil)
	r = r.WithContext(ContextWithIdentity(r.Context(), "ip:192.0.2.1"))
	r = r.WithContext(ContextWithRequestID(r.Context(), "req-123"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log is not valid JSON: %v", err)
	}

	if entry["msg"] != "http_request" {
		t.Errorf("msg = %v, want http_request", entry["msg"])
	}
	if entry["method"] != "POST" {
		t.Errorf("method = %v, want POST", entry["method"])
	}
	if entry["path"] != "/auth/register" {
		t.Errorf("path = %v, want /auth/register", entry["path"])
	}
	if entry["status"] != float64(http.StatusCreated) {
		t.Errorf("status = %v, want 201", entry["status"])
	}
	if entry["identity"] != "ip:192.0.2.1" {
		t.Errorf("identity = %v, want ip:192.0.2.1", entry["identity"])
	}
	if entry["request_id"] != "req-123" {
		t.Errorf("request_id = %v, want req-123", entry["request_id"])
	}
	if _, ok := entry["duration_ms"]; !ok {
		t.Error("duration_ms is missing")
	}
}

// ロギングはレート制限より先に実行されるため、下流で解決された
// アイデンティティがスロット経由で監査ログに届くことを検証する。
// ゲートウェイルーターと同じ順序でチェーンを組む。
func TestLoggingMiddleware_RecordsIdentityResolvedDownstream(t *testing.T) {
	codec := newTestCodec(t)
	sessionToken, err := codec.Issue(1, "alice", false, token.SessionTTL)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	cfg := ratelimit.Config{
		Global: []ratelimit.Limit{{Max: 1000, Window: time.Hour}},
	}
	limiter := newTestLimiter(t, cfg)

	tests := []struct {
		name         string
		header       string
		wantIdentity string
	}{
		{"bearer token resolves to user identity", "Bearer " + sessionToken, "user:alice"},
		{"no token falls back to ip identity", "", "ip:192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			handler := NewLoggingMiddleware(logger)(NewRateLimitMiddleware(limiter, codec, logger)(inner))

			r := httptest.NewRequest(http.MethodGet, "/tasks", nil)
			r.RemoteAddr = "192.0.2.1:54321"
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("log is not valid JSON: %v", err)
			}
			if entry["identity"] != tt.wantIdentity {
				t.Errorf("identity = %v, want %q", entry["identity"], tt.wantIdentity)
			}
		})
	}
}

// 制限超過で429が返るパスでも、監査ログにアイデンティティが残ることを検証する。
func TestLoggingMiddleware_RecordsIdentityOnRateLimitDenial(t *testing.T) {
	codec := newTestCodec(t)
	cfg := ratelimit.Config{
		Global: []ratelimit.Limit{{Max: 1, Window: time.Hour}},
	}
	limiter := newTestLimiter(t, cfg)

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := NewLoggingMiddleware(logger)(NewRateLimitMiddleware(limiter, codec, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	for i := 0; i < 2; i++ {
		buf.Reset()
		r := httptest.NewRequest(http.MethodGet, "/tasks", nil)
		r.RemoteAddr = "192.0.2.1:54321"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
	}

	// 2回目は拒否される。拒否ログとhttp_requestログの両方が出るため行ごとに見る
	var found bool
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		if err := json.Unmarshal(line, &entry); err != nil {
			t.Fatalf("log is not valid JSON: %v", err)
		}
		if entry["msg"] != "http_request" {
			continue
		}
		found = true
		if entry["status"] != float64(http.StatusTooManyRequests) {
			t.Errorf("status = %v, want 429", entry["status"])
		}
		if entry["identity"] != "ip:192.0.2.1" {
			t.Errorf("identity = %v, want ip:192.0.2.1", entry["identity"])
		}
	}
	if !found {
		t.Fatal("http_request log entry not found")
	}
}

func TestLoggingMiddleware_LevelByStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{"2xx is info", http.StatusOK, "INFO"},
		{"4xx is warn", http.StatusNotFound, "WARN"},
		{"5xx is error", http.StatusInternalServerError, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			handler := NewLoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			r := httptest.NewRequest(http.MethodGet, "/tasks", nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("log is not valid JSON: %v", err)
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s", entry["level"], tt.wantLevel)
			}
		})
	}
}

func TestLoggingMiddleware_DefaultStatusIs200(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	// WriteHeaderを呼ばずにボディだけ書くハンドラー
	handler := NewLoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log is not valid JSON: %v", err)
	}
	if entry["status"] != float64(http.StatusOK) {
		t.Errorf("status = %v, want 200", entry["status"])
	}
}
