package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nvalencia/taskhub/internal/middleware"
	"github.com/nvalencia/taskhub/internal/model"
	"github.com/nvalencia/taskhub/internal/task"
)

// TaskServiceInterface はタスクハンドラーが必要とするサービスインターフェース。
type TaskServiceInterface interface {
	Create(ctx context.Context, ownerID int64, name, description, deadline string) (int64, error)
	List(ctx context.Context, ownerID int64) ([]*model.Task, error)
	Get(ctx context.Context, id, ownerID int64) (*model.Task, error)
	ApplyUpdate(ctx context.Context, id, ownerID int64, update task.Update) error
	Delete(ctx context.Context, id, ownerID int64) error
}

// TaskHandler はタスク管理のHTTPハンドラー。
// 認証ミドルウェアの後段に配置する。所有者は常にトークンのクレームから取る。
type TaskHandler struct {
	service TaskServiceInterface
}

// NewTaskHandler はTaskHandlerを生成する。
func NewTaskHandler(service TaskServiceInterface) *TaskHandler {
	return &TaskHandler{service: service}
}

// taskResponse はタスクのAPI表現。
type taskResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	CreateAt    string  `json:"create_at"`
	Deadline    *string `json:"deadline"`
	Status      string  `json:"status"`
	IsAlive     bool    `json:"isAlive"`
}

func toTaskResponse(t *model.Task) taskResponse {
	resp := taskResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		CreateAt:    t.CreatedAt.Format(time.RFC3339),
		Status:      string(t.Status),
		IsAlive:     t.IsAlive,
	}
	if t.Deadline != nil {
		deadline := t.Deadline.Format(time.RFC3339)
		resp.Deadline = &deadline
	}
	return resp
}

// ownerFromContext は認証済みクレームから所有者IDを取り出す。
func ownerFromContext(ctx context.Context) (int64, error) {
	claims, err := middleware.ClaimsFromContext(ctx)
	if err != nil {
		return 0, model.NewUnauthorizedError("認証が必要です。")
	}
	return claims.UserID, nil
}

// taskIDFromURL はURLパラメータからタスクIDを取り出す。
func taskIDFromURL(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, model.NewBadRequestError("タスクIDの形式が不正です。")
	}
	return id, nil
}

type createTaskRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Deadline    string `json:"deadline"`
}

// Create は新しいタスクを作成する。
// POST /tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewBadRequestError("リクエストボディが不正です。"))
		return
	}

	taskID, err := h.service.Create(r.Context(), ownerID, req.Name, req.Description, req.Deadline)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "タスクを作成しました。",
		"task_id": taskID,
	})
}

// List は自分のタスク一覧を返す。
// GET /tasks
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	tasks, err := h.service.List(r.Context(), ownerID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	responses := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		responses = append(responses, toTaskResponse(t))
	}

	middleware.WriteJSON(w, http.StatusOK, map[string][]taskResponse{"tasks": responses})
}

// Get は自分のタスクを返す。
// GET /tasks/{id}
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	id, err := taskIDFromURL(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	t, err := h.service.Get(r.Context(), id, ownerID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]taskResponse{"task": toTaskResponse(t)})
}

type updateTaskRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Deadline    *string `json:"deadline"`
	Status      *string `json:"status"`
	IsAlive     *bool   `json:"isAlive"`
}

// Update はタスクを部分更新する。
// PUT /tasks/{id}
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	id, err := taskIDFromURL(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewBadRequestError("リクエストボディが不正です。"))
		return
	}

	update := task.Update{
		Name:        req.Name,
		Description: req.Description,
		Deadline:    req.Deadline,
		Status:      req.Status,
		IsAlive:     req.IsAlive,
	}

	if err := h.service.ApplyUpdate(r.Context(), id, ownerID, update); err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "タスクを更新しました。"})
}

// Delete はタスクを論理削除する。
// DELETE /tasks/{id}
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	id, err := taskIDFromURL(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), id, ownerID); err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "タスクを削除しました。"})
}
