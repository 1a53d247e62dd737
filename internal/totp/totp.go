// Package totp はTOTP（時刻ベースワンタイムパスワード）の秘密鍵生成と検証を提供する。
package totp

import (
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Manager はpquerna/otpをラップしたTOTPマネージャ。
// 30秒周期・6桁・SHA1の標準パラメータを使用する。
type Manager struct {
	issuer string
}

// NewManager はManagerを生成する。
// issuerはプロビジョニングURIに埋め込まれるサービス名。
func NewManager(issuer string) *Manager {
	if strings.TrimSpace(issuer) == "" {
		issuer = "taskhub"
	}
	return &Manager{issuer: issuer}
}

// GenerateSecret は新しいTOTP秘密鍵を生成する。
// base32エンコードされた秘密鍵と、認証アプリ登録用のotpauth:// URIを返す。
func (m *Manager) GenerateSecret(accountName string) (secret string, provisioningURI string, err error) {
	if strings.TrimSpace(accountName) == "" {
		return "", "", fmt.Errorf("account name is empty")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      m.issuer,
		AccountName: accountName,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
		SecretSize:  20,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to generate totp secret: %w", err)
	}

	return key.Secret(), key.URL(), nil
}

// Verify は提示されたコードが秘密鍵から導出される現在のコードと一致するかを検証する。
// 時計ずれ許容として前後1ステップ（±30秒）を受け付ける。
func (m *Manager) Verify(secret, code string) bool {
	if secret == "" || code == "" {
		return false
	}

	valid, err := totp.ValidateCustom(code, secret, time.Now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false
	}
	return valid
}
