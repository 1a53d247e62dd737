// Package model はドメインモデルを定義する。
package model

import "time"

// UserStatus はユーザーの状態を表す。
type UserStatus string

const (
	// UserStatusActive は有効なユーザーを示す。
	UserStatusActive UserStatus = "active"
	// UserStatusInactive は管理操作により無効化されたユーザーを示す。
	// 物理削除は行わない（論理削除）。
	UserStatusInactive UserStatus = "inactive"
)

// User はサービス利用ユーザーを表す。
// TOTPSecretは登録時に生成され、以後変更されない。
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Email        string
	Status       UserStatus
	TOTPSecret   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsActive はユーザーが有効かどうかを返す。
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}
