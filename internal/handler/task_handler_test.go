package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nvalencia/taskhub/internal/model"
	"github.com/nvalencia/taskhub/internal/task"
	"github.com/nvalencia/taskhub/internal/token"
)

// mockTaskService はTaskServiceInterfaceのモック実装。
type mockTaskService struct {
	createFn func(ctx context.Context, ownerID int64, name, description, deadline string) (int64, error)
	listFn   func(ctx context.Context, ownerID int64) ([]*model.Task, error)
	getFn    func(ctx context.Context, id, ownerID int64) (*model.Task, error)
	updateFn func(ctx context.Context, id, ownerID int64, update task.Update) error
	deleteFn func(ctx context.Context, id, ownerID int64) error
}

func (m *mockTaskService) Create(ctx context.Context, ownerID int64, name, description, deadline string) (int64, error) {
	return m.createFn(ctx, ownerID, name, description, deadline)
}

func (m *mockTaskService) List(ctx context.Context, ownerID int64) ([]*model.Task, error) {
	return m.listFn(ctx, ownerID)
}

func (m *mockTaskService) Get(ctx context.Context, id, ownerID int64) (*model.Task, error) {
	return m.getFn(ctx, id, ownerID)
}

func (m *mockTaskService) ApplyUpdate(ctx context.Context, id, ownerID int64, update task.Update) error {
	return m.updateFn(ctx, id, ownerID, update)
}

func (m *mockTaskService) Delete(ctx context.Context, id, ownerID int64) error {
	return m.deleteFn(ctx, id, ownerID)
}

func newTaskTestRouter(t *testing.T, svc TaskServiceInterface) (http.Handler, string) {
	t.Helper()
	codec, err := token.NewCodec("test-secret")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	sessionToken, err := codec.Issue(1, "alice", false, token.SessionTTL)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return NewTaskRouter(svc, codec, testLogger()), sessionToken
}

func TestTaskHandler_RequiresSessionToken(t *testing.T) {
	router, _ := newTaskTestRouter(t, &mockTaskService{})

	r := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestTaskHandler_RejectsPendingToken(t *testing.T) {
	codec, _ := token.NewCodec("test-secret")
	pending, _ := codec.Issue(1, "alice", true, token.PendingTTL)
	router := NewTaskRouter(&mockTaskService{}, codec, testLogger())

	r := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	r.Header.Set("Authorization", "Bearer "+pending)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestTaskHandler_Create(t *testing.T) {
	var gotOwnerID int64
	router, sessionToken := newTaskTestRouter(t, &mockTaskService{
		createFn: func(ctx context.Context, ownerID int64, name, description, deadline string) (int64, error) {
			gotOwnerID = ownerID
			return 5, nil
		},
	})

	body := strings.NewReader(`{"name":"買い物","description":"週末","deadline":"2026-09-30T12:00:00Z"}`)
	r := httptest.NewRequest(http.MethodPost, "/tasks", body)
	r.Header.Set("Authorization", "Bearer "+sessionToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	// 所有者はトークンのクレームから取られる
	if gotOwnerID != 1 {
		t.Errorf("ownerID = %d, want 1", gotOwnerID)
	}

	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp["task_id"] != float64(5) {
		t.Errorf("task_id = %v, want 5", resp["task_id"])
	}
}

func TestTaskHandler_List(t *testing.T) {
	deadline := time.Date(2026, 9, 30, 12, 0, 0, 0, time.UTC)
	router, sessionToken := newTaskTestRouter(t, &mockTaskService{
		listFn: func(ctx context.Context, ownerID int64) ([]*model.Task, error) {
			return []*model.Task{
				{
					ID:          1,
					Name:        "買い物",
					Description: "週末",
					CreatedAt:   time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
					Deadline:    &deadline,
					Status:      model.TaskStatusInProgress,
					IsAlive:     true,
					CreatedBy:   1,
				},
			}, nil
		},
	})

	r := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	r.Header.Set("Authorization", "Bearer "+sessionToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp map[string][]taskResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	tasks := resp["tasks"]
	if len(tasks) != 1 {
		t.Fatalf("len(tasks) = %d, want 1", len(tasks))
	}
	if tasks[0].CreateAt != "2026-09-01T10:00:00Z" {
		t.Errorf("create_at = %q", tasks[0].CreateAt)
	}
	if tasks[0].Deadline == nil || *tasks[0].Deadline != "2026-09-30T12:00:00Z" {
		t.Errorf("deadline = %v", tasks[0].Deadline)
	}
}

func TestTaskHandler_Get_NotFound(t *testing.T) {
	router, sessionToken := newTaskTestRouter(t, &mockTaskService{
		getFn: func(ctx context.Context, id, ownerID int64) (*model.Task, error) {
			return nil, model.NewNotFoundError("タスクが見つかりません。")
		},
	})

	r := httptest.NewRequest(http.MethodGet, "/tasks/999", nil)
	r.Header.Set("Authorization", "Bearer "+sessionToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestTaskHandler_Update(t *testing.T) {
	var gotUpdate task.Update
	router, sessionToken := newTaskTestRouter(t, &mockTaskService{
		updateFn: func(ctx context.Context, id, ownerID int64, update task.Update) error {
			gotUpdate = update
			return nil
		},
	})

	body := strings.NewReader(`{"status":"Completed"}`)
	r := httptest.NewRequest(http.MethodPut, "/tasks/5", body)
	r.Header.Set("Authorization", "Bearer "+sessionToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if gotUpdate.Status == nil || *gotUpdate.Status != "Completed" {
		t.Errorf("update.Status = %v, want Completed", gotUpdate.Status)
	}
	// 指定していないフィールドはnilのまま
	if gotUpdate.Name != nil {
		t.Errorf("update.Name = %v, want nil", gotUpdate.Name)
	}
}

func TestTaskHandler_Delete(t *testing.T) {
	var gotID, gotOwnerID int64
	router, sessionToken := newTaskTestRouter(t, &mockTaskService{
		deleteFn: func(ctx context.Context, id, ownerID int64) error {
			gotID, gotOwnerID = id, ownerID
			return nil
		},
	})

	r := httptest.NewRequest(http.MethodDelete, "/tasks/5", nil)
	r.Header.Set("Authorization", "Bearer "+sessionToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if gotID != 5 || gotOwnerID != 1 {
		t.Errorf("service received id=%d owner=%d", gotID, gotOwnerID)
	}
}

func TestTaskHandler_InvalidTaskID(t *testing.T) {
	router, sessionToken := newTaskTestRouter(t, &mockTaskService{
		getFn: func(ctx context.Context, id, ownerID int64) (*model.Task, error) {
			return nil, nil
		},
	})

	r := httptest.NewRequest(http.MethodGet, "/tasks/abc", nil)
	r.Header.Set("Authorization", "Bearer "+sessionToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
