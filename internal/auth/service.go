// Package auth は登録・パスワードログイン・OTP検証からなる認証フローを提供する。
//
// ログインは2段階に分かれる。パスワード検証に成功すると短命のMFA待ちトークンが
// 発行され、OTP検証に成功して初めて保護リソースにアクセス可能なセッショントークンが
// 発行される。パスワード単独では保護リソースへ到達できない。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nvalencia/taskhub/internal/model"
	"github.com/nvalencia/taskhub/internal/password"
	"github.com/nvalencia/taskhub/internal/repository"
	"github.com/nvalencia/taskhub/internal/token"
	"github.com/nvalencia/taskhub/internal/totp"
)

// Service は認証フローのオーケストレーションを行う。
type Service struct {
	users repository.UserRepository
	codec *token.Codec
	totp  *totp.Manager
}

// NewService はServiceを生成する。
func NewService(users repository.UserRepository, codec *token.Codec, totpManager *totp.Manager) *Service {
	return &Service{
		users: users,
		codec: codec,
		totp:  totpManager,
	}
}

// RegisterResult は登録成功時の応答を表す。
// ProvisioningURIは認証アプリ登録用のotpauth:// URIで、
// クライアント側でQRコード等として表示される。
type RegisterResult struct {
	UserID          int64
	ProvisioningURI string
}

// Register は新規ユーザーを登録する。
// パスワードはソルト付き一方向ハッシュで保存し、TOTP秘密鍵をこの時点で生成する。
// username/emailの重複はConflictとなり、部分的な書き込みは発生しない。
func (s *Service) Register(ctx context.Context, username, pass, email string) (*RegisterResult, error) {
	if username == "" || pass == "" || email == "" {
		return nil, model.NewBadRequestError("username、password、emailは必須です。")
	}

	hash, err := password.Hash(pass)
	if err != nil {
		slog.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, model.NewInternalError()
	}

	secret, provisioningURI, err := s.totp.GenerateSecret(username)
	if err != nil {
		slog.Error("failed to generate totp secret", slog.String("error", err.Error()))
		return nil, model.NewInternalError()
	}

	now := time.Now()
	user := &model.User{
		Username:     username,
		PasswordHash: hash,
		Email:        email,
		Status:       model.UserStatusActive,
		TOTPSecret:   secret,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewConflictError("ユーザー名またはメールアドレスは既に使用されています。")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &RegisterResult{
		UserID:          user.ID,
		ProvisioningURI: provisioningURI,
	}, nil
}

// Login はパスワードを検証し、MFA待ちトークンを発行する。
// 発行されるトークンは保護リソースへのアクセスには使用できず、
// OTP検証の提示にのみ有効（TTL 5分）。
// ユーザー不在・パスワード不一致・無効化済みはいずれも同一メッセージの
// Unauthorizedとし、ユーザーの存在を漏らさない。
func (s *Service) Login(ctx context.Context, username, pass string) (string, error) {
	if username == "" || pass == "" {
		return "", model.NewBadRequestError("usernameとpasswordは必須です。")
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}

	if user == nil || !user.IsActive() {
		return "", model.NewUnauthorizedError("ユーザー名またはパスワードが正しくありません。")
	}

	ok, err := password.Verify(pass, user.PasswordHash)
	if err != nil || !ok {
		return "", model.NewUnauthorizedError("ユーザー名またはパスワードが正しくありません。")
	}

	pendingToken, err := s.codec.Issue(user.ID, user.Username, true, token.PendingTTL)
	if err != nil {
		slog.Error("failed to issue pending token", slog.String("error", err.Error()))
		return "", model.NewInternalError()
	}

	return pendingToken, nil
}

// VerifyOTP はMFA待ちトークンとOTPコードを検証し、セッショントークンを発行する。
// これがセッショントークンを生成する唯一の経路。
// 一時トークンはサーバー側で消費管理されないため、TTL内は同じトークンで
// 再検証が可能（運用判断に委ねる既知の挙動）。
func (s *Service) VerifyOTP(ctx context.Context, bearerToken, code string) (string, error) {
	if bearerToken == "" {
		return "", model.NewUnauthorizedError("認証トークンが必要です。")
	}
	if code == "" {
		return "", model.NewBadRequestError("otpは必須です。")
	}

	claims, err := s.codec.Decode(bearerToken)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return "", model.NewUnauthorizedError("トークンの有効期限が切れています。ログインし直してください。")
		}
		return "", model.NewUnauthorizedError("無効なトークンです。")
	}

	// セッショントークンをここに流用する呼び出しを拒否する
	if !claims.MFAPending {
		return "", model.NewUnauthorizedError("MFA検証にはログインで発行された一時トークンが必要です。")
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return "", model.NewNotFoundError("ユーザーが見つかりません。")
	}

	if !s.totp.Verify(user.TOTPSecret, code) {
		return "", model.NewUnauthorizedError("OTPコードが正しくありません。")
	}

	sessionToken, err := s.codec.Issue(user.ID, user.Username, false, token.SessionTTL)
	if err != nil {
		slog.Error("failed to issue session token", slog.String("error", err.Error()))
		return "", model.NewInternalError()
	}

	return sessionToken, nil
}
