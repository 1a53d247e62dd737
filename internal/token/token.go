// Package token は署名付き時限トークンの発行と検証を提供する。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// デフォルトの有効期間
const (
	// PendingTTL はパスワード検証後に発行されるMFA待ちトークンの有効期間。
	// パスワードのみが漏洩した場合の露出時間をこの長さに制限する。
	PendingTTL = 5 * time.Minute
	// SessionTTL はOTP検証後に発行されるセッショントークンの有効期間。
	SessionTTL = time.Hour
)

var (
	// ErrExpired はトークンの有効期限切れを示す。
	ErrExpired = errors.New("token expired")
	// ErrInvalid は署名不一致・改ざん・形式不正などの検証失敗を示す。
	ErrInvalid = errors.New("token invalid")
)

// Claims はトークンに埋め込むクレームを表す。
// MFAPending=trueのトークンはOTP検証専用であり、保護リソースへのアクセスには使えない。
type Claims struct {
	UserID    int64  `json:"id"`
	Username  string `json:"username"`
	MFAPending bool  `json:"mfa,omitempty"`
	jwt.RegisteredClaims
}

// Codec は共有シークレットによるHS256署名のトークンコーデック。
// 副作用を持たず、並行利用可能。
type Codec struct {
	secret []byte
}

// NewCodec はCodecを生成する。
// シークレットが空の場合はエラーを返す（起動時の前提条件）。
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token signing secret is empty")
	}
	return &Codec{secret: []byte(secret)}, nil
}

// Issue はクレームと有効期間からトークン文字列を発行する。
func (c *Codec) Issue(userID int64, username string, mfaPending bool, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:     userID,
		Username:   username,
		MFAPending: mfaPending,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Decode はトークンを検証してクレームを返す。
// 期限切れはErrExpired、それ以外の検証失敗はErrInvalidを返す。
// 呼び出し側はユーザー向けメッセージを分けるため両者を区別する。
func (c *Codec) Decode(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)

	t, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}

	claims, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, ErrInvalid
	}

	return claims, nil
}
