// Package config は環境変数からのアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// 必須項目はプロセスの役割（ゲートウェイ／バックエンド）で異なる。
type Config struct {
	// Shared
	JWTSecret  string
	ServerPort string

	// Backend services
	DatabaseURL string
	TOTPIssuer  string

	// Gateway
	AuthServiceURL           string
	UserServiceURL           string
	TaskServiceURL           string
	ProxyTimeout             time.Duration
	CORSAllowedOrigin        string
	RedisURL                 string // 空の場合はプロセス内メモリストアを使用する
	RateLimitCleanupInterval time.Duration
}

// LoadGateway はゲートウェイプロセス用の設定を環境変数から読み込む。
// 必須環境変数が未設定の場合は、不足している変数をすべて列挙したエラーを返す。
func LoadGateway() (*Config, error) {
	cfg := &Config{}

	var missing []string

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	cfg.AuthServiceURL = os.Getenv("AUTH_SERVICE_URL")
	if cfg.AuthServiceURL == "" {
		missing = append(missing, "AUTH_SERVICE_URL")
	}

	cfg.UserServiceURL = os.Getenv("USER_SERVICE_URL")
	if cfg.UserServiceURL == "" {
		missing = append(missing, "USER_SERVICE_URL")
	}

	cfg.TaskServiceURL = os.Getenv("TASK_SERVICE_URL")
	if cfg.TaskServiceURL == "" {
		missing = append(missing, "TASK_SERVICE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.ProxyTimeout = getEnvDuration("PROXY_TIMEOUT", 10*time.Second)
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:4200")
	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.RateLimitCleanupInterval = getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute)

	return cfg, nil
}

// LoadService はバックエンドサービス（auth/user/task）用の設定を環境変数から読み込む。
// 必須環境変数が未設定の場合は、不足している変数をすべて列挙したエラーを返す。
func LoadService() (*Config, error) {
	cfg := &Config{}

	var missing []string

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.TOTPIssuer = getEnvString("TOTP_ISSUER", "taskhub")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
