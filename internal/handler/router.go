package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nvalencia/taskhub/internal/middleware"
	"github.com/nvalencia/taskhub/internal/token"
)

// HealthHandler はバックエンドサービスの死活確認に応答する。
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// useCommonMiddleware は全バックエンド共通のミドルウェアチェーンを適用する。
func useCommonMiddleware(r chi.Router, logger *slog.Logger) {
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware())
}

// NewAuthRouter は認証サービスのルーティングを設定したchi.Routerを返す。
// ゲートウェイが/authプレフィックスを取り除くため、ルート直下にエンドポイントを置く。
func NewAuthRouter(service AuthServiceInterface, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	useCommonMiddleware(r, logger)

	h := NewAuthHandler(service)

	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/verify-otp", h.VerifyOTP)
	r.Get("/health", HealthHandler)

	return r
}

// NewUserRouter はユーザーサービスのルーティングを設定したchi.Routerを返す。
func NewUserRouter(service UserServiceInterface, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	useCommonMiddleware(r, logger)

	h := NewUserHandler(service)

	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.List)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
		})
	})
	r.Get("/health", HealthHandler)

	return r
}

// NewTaskRouter はタスクサービスのルーティングを設定したchi.Routerを返す。
// /tasks配下はすべてセッショントークンを要求する。
func NewTaskRouter(service TaskServiceInterface, codec *token.Codec, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	useCommonMiddleware(r, logger)

	h := NewTaskHandler(service)

	r.Route("/tasks", func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(codec))

		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
		})
	})
	r.Get("/health", HealthHandler)

	return r
}
