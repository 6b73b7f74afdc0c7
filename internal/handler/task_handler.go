package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/dozyo/internal/config"
	"github.com/dozyo/internal/db"
	"github.com/dozyo/internal/service"
	"github.com/gin-gonic/gin"
)

type createTaskPayload struct {
	OriginalText string `json:"originalText"`
}

type toggleByIndexPayload struct {
	MicroTaskIndex *int  `json:"microTaskIndex"`
	Done           *bool `json:"done"`
}

type toggleByIDPayload struct {
	Done *bool `json:"done"`
}

// ListTasks 返回调用者的全部任务，最新创建的在前
func (a *API) ListTasks(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	tasks, err := a.tasks.List(userID)
	if err != nil {
		config.Logger.Errorf("list tasks failed: %v", err)
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	items := make([]gin.H, 0, len(tasks))
	for _, task := range tasks {
		items = append(items, taskToPayload(task))
	}

	c.JSON(http.StatusOK, gin.H{"tasks": items})
}

// CreateTask 生成微步骤并创建任务。
// 上游生成失败在服务内静默回退到模板，这里只会看到空描述和存储错误。
func (a *API) CreateTask(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload createTaskPayload
	if !bindJSON(c, &payload, "Task text is required") {
		return
	}

	task, err := a.tasks.Create(c.Request.Context(), userID, payload.OriginalText)
	if err != nil {
		if errors.Is(err, service.ErrEmptyTask) {
			respondError(c, http.StatusBadRequest, "Task text is required")
			return
		}
		config.Logger.Errorf("create task failed: %v", err)
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"task": taskToPayload(*task)})
}

// GetTask 按 ID 返回任务；归属他人的任务与不存在同样返回 404
func (a *API) GetTask(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	task, err := a.tasks.Get(userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			respondError(c, http.StatusNotFound, "Task not found")
			return
		}
		config.Logger.Errorf("get task failed: %v", err)
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": taskToPayload(*task)})
}

// UpdateMicroTaskByIndex 按数组位置切换微步骤，历史路由，仅为兼容保留
func (a *API) UpdateMicroTaskByIndex(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload toggleByIndexPayload
	if !bindJSON(c, &payload, "microTaskIndex and done are required") {
		return
	}
	if payload.MicroTaskIndex == nil || payload.Done == nil {
		respondError(c, http.StatusBadRequest, "microTaskIndex and done are required")
		return
	}

	task, transitioned, err := a.tasks.SetDoneByIndex(userID, c.Param("id"), *payload.MicroTaskIndex, *payload.Done)
	a.respondToggled(c, userID, task, transitioned, err)
}

// UpdateMicroTaskByID 按稳定 ID 切换微步骤完成标记
func (a *API) UpdateMicroTaskByID(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload toggleByIDPayload
	if !bindJSON(c, &payload, "Done status must be a boolean") {
		return
	}
	if payload.Done == nil {
		respondError(c, http.StatusBadRequest, "Done status must be a boolean")
		return
	}

	task, transitioned, err := a.tasks.SetDoneByID(userID, c.Param("id"), c.Param("microTaskId"), *payload.Done)
	a.respondToggled(c, userID, task, transitioned, err)
}

// respondToggled 统一处理切换结果：首次转为完成时先触发连胜更新，再返回任务
func (a *API) respondToggled(c *gin.Context, userID uint, task *db.Task, transitioned bool, err error) {
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			respondError(c, http.StatusNotFound, "Task not found")
			return
		}
		if errors.Is(err, service.ErrMicroTaskNotFound) {
			respondError(c, http.StatusNotFound, "Micro-task not found")
			return
		}
		config.Logger.Errorf("toggle micro task failed: %v", err)
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	if transitioned {
		if _, err := a.streaks.RecordCompletion(userID, time.Now()); err != nil {
			config.Logger.Errorf("record completion failed: %v", err)
			respondError(c, http.StatusInternalServerError, "Internal server error")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"task": taskToPayload(*task)})
}

// DeleteTask 整体删除任务
func (a *API) DeleteTask(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := a.tasks.Delete(userID, c.Param("id")); err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			respondError(c, http.StatusNotFound, "Task not found")
			return
		}
		config.Logger.Errorf("delete task failed: %v", err)
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Task deleted"})
}

// DeleteMicroTask 删除单个微步骤
func (a *API) DeleteMicroTask(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	task, err := a.tasks.DeleteMicroTask(userID, c.Param("id"), c.Param("microTaskId"))
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			respondError(c, http.StatusNotFound, "Task not found")
			return
		}
		if errors.Is(err, service.ErrMicroTaskNotFound) {
			respondError(c, http.StatusNotFound, "Micro-task not found")
			return
		}
		config.Logger.Errorf("delete micro task failed: %v", err)
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": taskToPayload(*task)})
}

// SuggestNextStep 返回"下一件小事"：一个任务加上其中一个未完成微步骤
func (a *API) SuggestNextStep(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	suggestion, err := a.tasks.Suggest(userID)
	if err != nil {
		if errors.Is(err, service.ErrNoSuggestion) {
			respondError(c, http.StatusNotFound, "No tasks with incomplete micro-tasks found")
			return
		}
		config.Logger.Errorf("suggest next step failed: %v", err)
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"task": gin.H{
			"_id":            suggestion.TaskID,
			"originalText":   suggestion.OriginalText,
			"microTask":      microTaskToPayload(suggestion.MicroTask),
			"microTaskIndex": suggestion.MicroTaskIndex,
		},
	})
}

func taskToPayload(task db.Task) gin.H {
	steps := make([]gin.H, 0, len(task.MicroTasks))
	for _, mt := range task.MicroTasks {
		steps = append(steps, microTaskToPayload(mt))
	}

	return gin.H{
		"_id":          task.ID,
		"originalText": task.OriginalText,
		"microTasks":   steps,
		"createdAt":    task.CreatedAt,
	}
}

func microTaskToPayload(mt db.MicroTask) gin.H {
	return gin.H{
		"id":   mt.ID,
		"text": mt.Text,
		"done": mt.Done,
	}
}
