// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/nvalencia/taskhub/internal/model"
)

var (
	// ErrDuplicate は一意制約違反（username/emailの重複）を示す。
	ErrDuplicate = errors.New("duplicate key")
	// ErrNotFound は対象レコードが存在しないことを示す。
	ErrNotFound = errors.New("record not found")
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Create はユーザーを作成し、採番されたIDをuser.IDに設定する。
	// username/emailが重複する場合はErrDuplicateを返す（部分書き込みなし）。
	Create(ctx context.Context, user *model.User) error

	// FindByUsername は指定usernameのユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// List は全ユーザーを取得する。
	List(ctx context.Context) ([]*model.User, error)

	// UpdateProfile はusernameとemailを更新する。
	// 対象が存在しない場合はErrNotFound、重複する場合はErrDuplicateを返す。
	UpdateProfile(ctx context.Context, id int64, username, email string) error

	// Deactivate はユーザーのstatusをinactiveに変更する（論理削除）。
	// 既にinactive、または存在しない場合も冪等にnilを返す。
	Deactivate(ctx context.Context, id int64) error
}

// TaskRepository はタスクデータの永続化インターフェース。
// is_alive=falseのタスクは読み取り系の操作から隠蔽される。
type TaskRepository interface {
	// Create はタスクを作成し、採番されたIDをtask.IDに設定する。
	Create(ctx context.Context, task *model.Task) error

	// FindAliveByID は所有者のタスクのうち論理削除されていないものを取得する。
	// 見つからない場合はnilを返す。
	FindAliveByID(ctx context.Context, id, ownerID int64) (*model.Task, error)

	// FindByID は所有者のタスクを論理削除の有無にかかわらず取得する。
	// 更新・削除操作で使用する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id, ownerID int64) (*model.Task, error)

	// ListByOwner は所有者の論理削除されていないタスク一覧を返す。
	ListByOwner(ctx context.Context, ownerID int64) ([]*model.Task, error)

	// Update はタスクを上書き更新する。
	Update(ctx context.Context, task *model.Task) error

	// LogicalDelete はis_aliveをfalseにする。
	// 対象が存在しない場合はErrNotFoundを返す。
	LogicalDelete(ctx context.Context, id, ownerID int64) error
}
