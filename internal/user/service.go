// Package user はユーザー管理のビジネスロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/nvalencia/taskhub/internal/model"
	"github.com/nvalencia/taskhub/internal/repository"
)

// Service はユーザー管理サービス。
type Service struct {
	users repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(users repository.UserRepository) *Service {
	return &Service{users: users}
}

// List は全ユーザーの一覧を返す。
// 論理削除済み（inactive）のユーザーも含む。statusで見分けられる。
func (s *Service) List(ctx context.Context) ([]*model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}

// Get は指定IDのユーザーを返す。
// 存在しない場合はNotFoundを返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewNotFoundError("ユーザーが見つかりません。")
	}
	return user, nil
}

// UpdateProfile はユーザーのusernameとemailを更新する。
func (s *Service) UpdateProfile(ctx context.Context, id int64, username, email string) error {
	if username == "" || email == "" {
		return model.NewBadRequestError("usernameとemailは必須です。")
	}

	err := s.users.UpdateProfile(ctx, id, username, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewNotFoundError("ユーザーが見つかりません。")
		}
		if errors.Is(err, repository.ErrDuplicate) {
			return model.NewConflictError("ユーザー名またはメールアドレスは既に使用されています。")
		}
		return fmt.Errorf("ユーザーの更新に失敗しました: %w", err)
	}
	return nil
}

// Deactivate はユーザーを論理削除する（statusをinactiveにする）。
// 既にinactive、または存在しないIDに対しても成功を返す（冪等）。
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if err := s.users.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("ユーザーの無効化に失敗しました: %w", err)
	}
	return nil
}
