package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nvalencia/taskhub/internal/model"
)

// PostgresTaskRepo はPostgreSQLを使用したタスクリポジトリ。
type PostgresTaskRepo struct {
	db *sql.DB
}

// NewPostgresTaskRepo はPostgresTaskRepoを生成する。
func NewPostgresTaskRepo(db *sql.DB) *PostgresTaskRepo {
	return &PostgresTaskRepo{db: db}
}

// Create はタスクを作成し、採番されたIDをtask.IDに設定する。
func (r *PostgresTaskRepo) Create(ctx context.Context, task *model.Task) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO tasks (name, description, created_at, deadline, status, is_alive, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		task.Name, task.Description, task.CreatedAt, task.Deadline,
		task.Status, task.IsAlive, task.CreatedBy,
	).Scan(&task.ID)

	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}

	return nil
}

// FindAliveByID は所有者の論理削除されていないタスクを取得する。見つからない場合はnilを返す。
func (r *PostgresTaskRepo) FindAliveByID(ctx context.Context, id, ownerID int64) (*model.Task, error) {
	return r.findOne(ctx,
		`SELECT id, name, COALESCE(description, ''), created_at, deadline, status, is_alive, created_by
		 FROM tasks WHERE id = $1 AND created_by = $2 AND is_alive = TRUE`,
		id, ownerID,
	)
}

// FindByID は所有者のタスクを論理削除の有無にかかわらず取得する。見つからない場合はnilを返す。
func (r *PostgresTaskRepo) FindByID(ctx context.Context, id, ownerID int64) (*model.Task, error) {
	return r.findOne(ctx,
		`SELECT id, name, COALESCE(description, ''), created_at, deadline, status, is_alive, created_by
		 FROM tasks WHERE id = $1 AND created_by = $2`,
		id, ownerID,
	)
}

// ListByOwner は所有者の論理削除されていないタスク一覧をID昇順で返す。
func (r *PostgresTaskRepo) ListByOwner(ctx context.Context, ownerID int64) ([]*model.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, COALESCE(description, ''), created_at, deadline, status, is_alive, created_by
		 FROM tasks WHERE created_by = $1 AND is_alive = TRUE ORDER BY id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		task := &model.Task{}
		if err := rows.Scan(
			&task.ID, &task.Name, &task.Description, &task.CreatedAt,
			&task.Deadline, &task.Status, &task.IsAlive, &task.CreatedBy,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return tasks, nil
}

// Update はタスクを上書き更新する。
func (r *PostgresTaskRepo) Update(ctx context.Context, task *model.Task) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tasks
		 SET name = $1, description = $2, deadline = $3, status = $4, is_alive = $5
		 WHERE id = $6 AND created_by = $7`,
		task.Name, task.Description, task.Deadline, task.Status, task.IsAlive,
		task.ID, task.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("task %d: %w", task.ID, ErrNotFound)
	}

	return nil
}

// LogicalDelete はis_aliveをfalseにする。
func (r *PostgresTaskRepo) LogicalDelete(ctx context.Context, id, ownerID int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET is_alive = FALSE WHERE id = $1 AND created_by = $2`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}

	return nil
}

func (r *PostgresTaskRepo) findOne(ctx context.Context, query string, args ...any) (*model.Task, error) {
	task := &model.Task{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&task.ID, &task.Name, &task.Description, &task.CreatedAt,
		&task.Deadline, &task.Status, &task.IsAlive, &task.CreatedBy,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	return task, nil
}

// compile-time interface check
var _ TaskRepository = (*PostgresTaskRepo)(nil)
