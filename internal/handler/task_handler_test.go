package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dozyo/internal/config"
	"github.com/dozyo/internal/db"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) (*API, func()) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := gdb.AutoMigrate(&db.User{}, &db.Task{}, &db.MicroTask{}, &db.Streak{}, &db.StreakLog{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	if err := gdb.Create(&db.User{Email: "tester@example.com", Password: "hashed"}).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	db.DB = gdb

	// 不配置生成密钥：创建任务走确定性的兜底模板，测试无需网络
	return NewAPI(gdb, config.AppConfig{}), func() {
		sqlDB, err := db.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}

func authedContext(t *testing.T, method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Set(contextUserIDKey, uint(1))
	return c, w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return payload
}

func createTaskViaHandler(t *testing.T, api *API, text string) map[string]any {
	t.Helper()

	body, _ := json.Marshal(map[string]any{"originalText": text})
	c, w := authedContext(t, http.MethodPost, "/tasks", body)
	api.CreateTask(c)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	return decodeBody(t, w)["task"].(map[string]any)
}

func TestCreateTaskRejectsEmptyText(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	body, _ := json.Marshal(map[string]any{"originalText": "  "})
	c, w := authedContext(t, http.MethodPost, "/tasks", body)
	api.CreateTask(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestCreateTaskUsesCleaningFallback(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	task := createTaskViaHandler(t, api, "Clean my room")

	steps := task["microTasks"].([]any)
	if len(steps) != 6 {
		t.Fatalf("expected 6 fallback steps, got %d", len(steps))
	}
	for i, raw := range steps {
		step := raw.(map[string]any)
		if step["done"].(bool) {
			t.Fatalf("step %d should start not done", i)
		}
		if step["id"].(string) == "" || step["text"].(string) == "" {
			t.Fatalf("step %d missing id or text", i)
		}
	}
	if task["_id"].(string) == "" {
		t.Fatal("expected opaque task id")
	}
}

func TestGetTaskNotFound(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	c, w := authedContext(t, http.MethodGet, "/tasks/missing", nil)
	c.Params = gin.Params{gin.Param{Key: "id", Value: "missing"}}
	api.GetTask(c)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}

func TestToggleByIDCreatesStreak(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	task := createTaskViaHandler(t, api, "Clean my room")
	taskID := task["_id"].(string)
	stepID := task["microTasks"].([]any)[0].(map[string]any)["id"].(string)

	body, _ := json.Marshal(map[string]any{"done": true})
	c, w := authedContext(t, http.MethodPatch, "/tasks/"+taskID+"/microtasks/"+stepID, body)
	c.Params = gin.Params{
		gin.Param{Key: "id", Value: taskID},
		gin.Param{Key: "microTaskId", Value: stepID},
	}
	api.UpdateMicroTaskByID(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	updated := decodeBody(t, w)["task"].(map[string]any)
	if !updated["microTasks"].([]any)[0].(map[string]any)["done"].(bool) {
		t.Fatal("expected step to be done in response")
	}

	var streak db.Streak
	if err := db.DB.Where("user_id = ?", 1).First(&streak).Error; err != nil {
		t.Fatalf("expected streak record to be created: %v", err)
	}
	if streak.CurrentStreak != 1 || streak.LongestStreak != 1 || !streak.TodayCompleted {
		t.Fatalf("unexpected streak record: %+v", streak)
	}
}

func TestToggleByIDRejectsNonBooleanDone(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	task := createTaskViaHandler(t, api, "Clean my room")
	taskID := task["_id"].(string)
	stepID := task["microTasks"].([]any)[0].(map[string]any)["id"].(string)

	c, w := authedContext(t, http.MethodPatch, "/tasks/"+taskID+"/microtasks/"+stepID, []byte(`{"done":"yes"}`))
	c.Params = gin.Params{
		gin.Param{Key: "id", Value: taskID},
		gin.Param{Key: "microTaskId", Value: stepID},
	}
	api.UpdateMicroTaskByID(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestToggleByIndexOutOfRange(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	task := createTaskViaHandler(t, api, "Clean my room")
	taskID := task["_id"].(string)

	body, _ := json.Marshal(map[string]any{"microTaskIndex": 42, "done": true})
	c, w := authedContext(t, http.MethodPatch, "/tasks/"+taskID, body)
	c.Params = gin.Params{gin.Param{Key: "id", Value: taskID}}
	api.UpdateMicroTaskByIndex(c)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}

func TestDeleteTaskResponseShape(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	task := createTaskViaHandler(t, api, "Clean my room")
	taskID := task["_id"].(string)

	c, w := authedContext(t, http.MethodDelete, "/tasks/"+taskID, nil)
	c.Params = gin.Params{gin.Param{Key: "id", Value: taskID}}
	api.DeleteTask(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	payload := decodeBody(t, w)
	if payload["success"] != true {
		t.Fatalf("expected success true, got %v", payload)
	}

	// 再删一次必须是 404
	c, w = authedContext(t, http.MethodDelete, "/tasks/"+taskID, nil)
	c.Params = gin.Params{gin.Param{Key: "id", Value: taskID}}
	api.DeleteTask(c)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 on second delete, got %d", w.Code)
	}
}

func TestSuggestWithoutCandidates(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	c, w := authedContext(t, http.MethodGet, "/tasks/suggest", nil)
	api.SuggestNextStep(c)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}

func TestSuggestReturnsFirstIncompleteStep(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	task := createTaskViaHandler(t, api, "Clean my room")
	taskID := task["_id"].(string)

	c, w := authedContext(t, http.MethodGet, "/tasks/suggest", nil)
	api.SuggestNextStep(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	payload := decodeBody(t, w)["task"].(map[string]any)
	if payload["_id"].(string) != taskID {
		t.Fatalf("expected suggestion from the created task, got %v", payload["_id"])
	}
	if payload["microTaskIndex"].(float64) != 0 {
		t.Fatalf("expected first step suggested, got %v", payload["microTaskIndex"])
	}
}
