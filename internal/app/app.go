// Package app はアプリケーションの起動とワイヤリングを提供する。
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/nvalencia/taskhub/internal/auth"
	"github.com/nvalencia/taskhub/internal/config"
	"github.com/nvalencia/taskhub/internal/database"
	"github.com/nvalencia/taskhub/internal/gateway"
	"github.com/nvalencia/taskhub/internal/handler"
	"github.com/nvalencia/taskhub/internal/logger"
	"github.com/nvalencia/taskhub/internal/metrics"
	"github.com/nvalencia/taskhub/internal/ratelimit"
	"github.com/nvalencia/taskhub/internal/repository"
	"github.com/nvalencia/taskhub/internal/task"
	"github.com/nvalencia/taskhub/internal/token"
	"github.com/nvalencia/taskhub/internal/totp"
	"github.com/nvalencia/taskhub/internal/user"
)

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	logger.SetupDefault(w)

	slog.Info("starting application", slog.String("command", string(cmd)))

	switch cmd {
	case CommandAuth:
		return runAuth()
	case CommandUser:
		return runUser()
	case CommandTask:
		return runTask()
	case CommandMigrate:
		return runMigrate()
	default:
		return runGateway()
	}
}

// runGateway はAPIゲートウェイモードで起動する。
// REDIS_URLが設定されている場合はレート制限カウンタをRedisで共有し、
// 未設定の場合はプロセス内メモリストアを使用する。
func runGateway() error {
	cfg, err := config.LoadGateway()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	codec, err := token.NewCodec(cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("failed to initialize token codec: %w", err)
	}

	// レート制限ストアの選択
	var store ratelimit.Store
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		store = ratelimit.NewRedisStore(client)
		slog.Info("rate limit store: redis")
	} else {
		memStore := ratelimit.NewMemoryStore(cfg.RateLimitCleanupInterval)
		defer memStore.Stop()
		store = memStore
		slog.Info("rate limit store: in-memory")
	}

	limiter := ratelimit.NewLimiter(store, ratelimit.DefaultConfig(), slog.Default())

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	proxy, err := gateway.NewProxy(
		&http.Client{Timeout: cfg.ProxyTimeout},
		slog.Default(),
		collector,
		gateway.Backends{
			Auth: cfg.AuthServiceURL,
			User: cfg.UserServiceURL,
			Task: cfg.TaskServiceURL,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to initialize proxy: %w", err)
	}

	router := gateway.NewRouter(&gateway.RouterDeps{
		Proxy:             proxy,
		Limiter:           limiter,
		Codec:             codec,
		Logger:            slog.Default(),
		Collector:         collector,
		Gatherer:          registry,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
	})

	slog.Info("gateway configuration",
		slog.String("auth_service_url", cfg.AuthServiceURL),
		slog.String("user_service_url", cfg.UserServiceURL),
		slog.String("task_service_url", cfg.TaskServiceURL),
		slog.Duration("proxy_timeout", cfg.ProxyTimeout),
	)

	return serveHTTP("gateway", cfg.ServerPort, router)
}

// runAuth は認証サービスモードで起動する。
func runAuth() error {
	cfg, db, err := initService()
	if err != nil {
		return err
	}
	defer db.Close()

	codec, err := token.NewCodec(cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("failed to initialize token codec: %w", err)
	}

	userRepo := repository.NewPostgresUserRepo(db)
	authService := auth.NewService(userRepo, codec, totp.NewManager(cfg.TOTPIssuer))

	router := handler.NewAuthRouter(authService, slog.Default())
	return serveHTTP("auth", cfg.ServerPort, router)
}

// runUser はユーザーサービスモードで起動する。
func runUser() error {
	cfg, db, err := initService()
	if err != nil {
		return err
	}
	defer db.Close()

	userRepo := repository.NewPostgresUserRepo(db)
	userService := user.NewService(userRepo)

	router := handler.NewUserRouter(userService, slog.Default())
	return serveHTTP("user", cfg.ServerPort, router)
}

// runTask はタスクサービスモードで起動する。
func runTask() error {
	cfg, db, err := initService()
	if err != nil {
		return err
	}
	defer db.Close()

	codec, err := token.NewCodec(cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("failed to initialize token codec: %w", err)
	}

	taskRepo := repository.NewPostgresTaskRepo(db)
	taskService := task.NewService(taskRepo)

	router := handler.NewTaskRouter(taskService, codec, slog.Default())
	return serveHTTP("task", cfg.ServerPort, router)
}

// initService はバックエンドサービス共通の初期化（設定読み込みとDB接続）を行う。
func initService() (*config.Config, *sql.DB, error) {
	cfg, err := config.LoadService()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")
	return cfg, db, nil
}

// serveHTTP はHTTPサーバーを起動し、SIGINTまたはSIGTERMで
// グレースフルシャットダウンを行う。
func serveHTTP(name, port string, router http.Handler) error {
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting",
			slog.String("service", name),
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down server...", slog.String("service", name))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("server stopped gracefully", slog.String("service", name))
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate() error {
	cfg, err := config.LoadService()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed", slog.Uint64("schema_version", uint64(version)))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
