// Package model はドメインモデルを定義する。
package model

import "time"

// TaskStatus はタスクの進行状態を表す。
type TaskStatus string

// タスク状態の定義
const (
	TaskStatusInProgress TaskStatus = "InProgress"
	TaskStatusRevision   TaskStatus = "Revision"
	TaskStatusCompleted  TaskStatus = "Completed"
	TaskStatusPaused     TaskStatus = "Paused"
)

// ValidTaskStatus はstatusが定義済みの値かどうかを返す。
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusInProgress, TaskStatusRevision, TaskStatusCompleted, TaskStatusPaused:
		return true
	}
	return false
}

// Task はユーザーが所有するタスクを表す。
// IsAlive=falseは論理削除済みを示し、読み取りからは隠蔽される。
type Task struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	Deadline    *time.Time
	Status      TaskStatus
	IsAlive     bool
	CreatedBy   int64
}
