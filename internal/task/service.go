// Package task はタスク管理のビジネスロジックを提供する。
// すべての操作は所有者単位に閉じる。他ユーザーのタスクは存在しないものとして扱う。
package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nvalencia/taskhub/internal/model"
	"github.com/nvalencia/taskhub/internal/repository"
)

// Update はタスク更新リクエストを表す。nilのフィールドは変更しない。
type Update struct {
	Name        *string
	Description *string
	Deadline    *string
	Status      *string
	IsAlive     *bool
}

// Service はタスク管理サービス。
type Service struct {
	tasks repository.TaskRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(tasks repository.TaskRepository) *Service {
	return &Service{tasks: tasks}
}

// parseDeadline はRFC3339形式のdeadline文字列をパースする。
func parseDeadline(value string) (time.Time, error) {
	deadline, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, model.NewBadRequestError("deadlineの形式が不正です。RFC3339形式で指定してください。")
	}
	return deadline, nil
}

// Create は新しいタスクを作成し、採番されたIDを返す。
// name、description、deadlineはすべて必須。ステータスはInProgressで開始する。
func (s *Service) Create(ctx context.Context, ownerID int64, name, description, deadline string) (int64, error) {
	if name == "" || description == "" || deadline == "" {
		return 0, model.NewBadRequestError("name、description、deadlineは必須です。")
	}

	parsed, err := parseDeadline(deadline)
	if err != nil {
		return 0, err
	}

	task := &model.Task{
		Name:        name,
		Description: description,
		Deadline:    &parsed,
		Status:      model.TaskStatusInProgress,
		IsAlive:     true,
		CreatedBy:   ownerID,
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return 0, fmt.Errorf("タスクの作成に失敗しました: %w", err)
	}
	return task.ID, nil
}

// List は所有者の論理削除されていないタスク一覧を返す。
func (s *Service) List(ctx context.Context, ownerID int64) ([]*model.Task, error) {
	tasks, err := s.tasks.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("タスク一覧の取得に失敗しました: %w", err)
	}
	return tasks, nil
}

// Get は所有者のタスクを返す。
// 論理削除済み、他ユーザーのタスク、存在しないIDはいずれもNotFoundになる。
func (s *Service) Get(ctx context.Context, id, ownerID int64) (*model.Task, error) {
	task, err := s.tasks.FindAliveByID(ctx, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}
	if task == nil {
		return nil, model.NewNotFoundError("タスクが見つかりません。")
	}
	return task, nil
}

// ApplyUpdate はタスクを部分更新する。
// 論理削除済みのタスクも更新対象になる（IsAlive=trueでの復活を許容する）。
func (s *Service) ApplyUpdate(ctx context.Context, id, ownerID int64, update Update) error {
	task, err := s.tasks.FindByID(ctx, id, ownerID)
	if err != nil {
		return fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}
	if task == nil {
		return model.NewNotFoundError("タスクが見つかりません。")
	}

	if update.Status != nil {
		status := model.TaskStatus(*update.Status)
		if !model.ValidTaskStatus(status) {
			return model.NewBadRequestError("statusの値が不正です。")
		}
		task.Status = status
	}
	if update.Name != nil {
		task.Name = *update.Name
	}
	if update.Description != nil {
		task.Description = *update.Description
	}
	if update.Deadline != nil && *update.Deadline != "" {
		parsed, err := parseDeadline(*update.Deadline)
		if err != nil {
			return err
		}
		task.Deadline = &parsed
	}
	if update.IsAlive != nil {
		task.IsAlive = *update.IsAlive
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return fmt.Errorf("タスクの更新に失敗しました: %w", err)
	}
	return nil
}

// Delete はタスクを論理削除する。
// 他ユーザーのタスクや存在しないIDはNotFoundになる。
func (s *Service) Delete(ctx context.Context, id, ownerID int64) error {
	err := s.tasks.LogicalDelete(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewNotFoundError("タスクが見つかりません。")
		}
		return fmt.Errorf("タスクの削除に失敗しました: %w", err)
	}
	return nil
}
