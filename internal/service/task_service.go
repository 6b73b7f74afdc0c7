package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/dozyo/internal/db"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

var (
	// ErrTaskNotFound 在任务不存在或不属于调用者时返回，两种情况对外不作区分
	ErrTaskNotFound = errors.New("task not found")
	// ErrMicroTaskNotFound 在指定微步骤不存在时返回
	ErrMicroTaskNotFound = errors.New("micro task not found")
	// ErrEmptyTask 在任务描述为空时返回
	ErrEmptyTask = errors.New("task text is required")
	// ErrNoSuggestion 在没有任何未完成微步骤时返回
	ErrNoSuggestion = errors.New("no incomplete micro task available")
)

// TaskService 负责任务及其微步骤的增删改查
// 所有方法都要求显式传入已认证的用户 ID，内部不读取任何环境状态
type TaskService struct {
	db        *gorm.DB
	generator StepGenerator
	sanitizer *bluemonday.Policy
}

// Suggestion 是"下一件小事"的选择结果
type Suggestion struct {
	TaskID         string
	OriginalText   string
	MicroTask      db.MicroTask
	MicroTaskIndex int
}

// NewTaskService 构造 TaskService
func NewTaskService(gdb *gorm.DB, generator StepGenerator) *TaskService {
	return &TaskService{
		db:        gdb,
		generator: generator,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// Create 生成微步骤并持久化一个新任务。
// 描述为空返回 ErrEmptyTask；生成器保证步骤列表非空，上游失败在其内部消化。
func (s *TaskService) Create(ctx context.Context, userID uint, originalText string) (*db.Task, error) {
	text := strings.TrimSpace(originalText)
	if text == "" {
		return nil, ErrEmptyTask
	}
	// 任务描述是用户自由输入，入库前剥掉 HTML
	text = strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(text)))
	if text == "" {
		return nil, ErrEmptyTask
	}

	steps := s.generator.Generate(ctx, text)

	task := db.Task{
		ID:           uuid.NewString(),
		UserID:       userID,
		OriginalText: text,
	}
	for i, step := range steps {
		task.MicroTasks = append(task.MicroTasks, db.MicroTask{
			ID:       uuid.NewString(),
			Position: i,
			Text:     step,
			Done:     false,
		})
	}

	if err := s.db.Create(&task).Error; err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	return s.Get(userID, task.ID)
}

// List 返回调用者的全部任务，创建时间倒序，微步骤按位置排列
func (s *TaskService) List(userID uint) ([]db.Task, error) {
	var tasks []db.Task
	if err := s.db.
		Preload("MicroTasks", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Get 按 ID 获取调用者的任务
func (s *TaskService) Get(userID uint, taskID string) (*db.Task, error) {
	var task db.Task
	if err := s.db.
		Preload("MicroTasks", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Where("id = ? AND user_id = ?", taskID, userID).
		First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &task, nil
}

// SetDoneByID 按稳定 ID 更新单个微步骤的完成标记。
// 返回值 transitioned 表示本次调用是否发生了 未完成→完成 的转变，
// 调用方据此决定是否触发连胜更新。
func (s *TaskService) SetDoneByID(userID uint, taskID, microTaskID string, done bool) (task *db.Task, transitioned bool, err error) {
	current, err := s.Get(userID, taskID)
	if err != nil {
		return nil, false, err
	}

	var target *db.MicroTask
	for i := range current.MicroTasks {
		if current.MicroTasks[i].ID == microTaskID {
			target = &current.MicroTasks[i]
			break
		}
	}
	if target == nil {
		return nil, false, ErrMicroTaskNotFound
	}

	transitioned = done && !target.Done

	// 单字段更新，避免覆盖同任务下其他微步骤的并发修改
	if err := s.db.Model(&db.MicroTask{}).
		Where("id = ? AND task_id = ?", microTaskID, taskID).
		Update("done", done).Error; err != nil {
		return nil, false, fmt.Errorf("update micro task: %w", err)
	}

	updated, err := s.Get(userID, taskID)
	if err != nil {
		return nil, false, err
	}
	return updated, transitioned, nil
}

// SetDoneByIndex 按数组位置更新微步骤，属于历史路由的兼容路径。
// 位置寻址在并发结构变更下不稳固，新代码应使用 SetDoneByID。
func (s *TaskService) SetDoneByIndex(userID uint, taskID string, index int, done bool) (*db.Task, bool, error) {
	current, err := s.Get(userID, taskID)
	if err != nil {
		return nil, false, err
	}

	if index < 0 || index >= len(current.MicroTasks) {
		return nil, false, ErrMicroTaskNotFound
	}

	return s.SetDoneByID(userID, taskID, current.MicroTasks[index].ID, done)
}

// Delete 整体删除任务及其微步骤，无软删除
func (s *TaskService) Delete(userID uint, taskID string) error {
	if _, err := s.Get(userID, taskID); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", taskID).Delete(&db.MicroTask{}).Error; err != nil {
			return fmt.Errorf("delete micro tasks: %w", err)
		}
		if err := tx.Where("id = ? AND user_id = ?", taskID, userID).Delete(&db.Task{}).Error; err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		return nil
	})
}

// DeleteMicroTask 删除单个微步骤并重排剩余步骤的位置
func (s *TaskService) DeleteMicroTask(userID uint, taskID, microTaskID string) (*db.Task, error) {
	current, err := s.Get(userID, taskID)
	if err != nil {
		return nil, err
	}

	found := false
	for _, mt := range current.MicroTasks {
		if mt.ID == microTaskID {
			found = true
			break
		}
	}
	if !found {
		return nil, ErrMicroTaskNotFound
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND task_id = ?", microTaskID, taskID).Delete(&db.MicroTask{}).Error; err != nil {
			return fmt.Errorf("delete micro task: %w", err)
		}

		position := 0
		for _, mt := range current.MicroTasks {
			if mt.ID == microTaskID {
				continue
			}
			if err := tx.Model(&db.MicroTask{}).
				Where("id = ?", mt.ID).
				Update("position", position).Error; err != nil {
				return fmt.Errorf("repack positions: %w", err)
			}
			position++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(userID, taskID)
}

// Suggest 从调用者的任务中挑出一个未完成的微步骤作为"下一件小事"。
// 优先选择已有进展的任务（既有完成又有未完成的步骤），否则取最新创建的任务，
// 任务内取位置最靠前的未完成步骤。结果对相同输入是确定的。
func (s *TaskService) Suggest(userID uint) (*Suggestion, error) {
	tasks, err := s.List(userID)
	if err != nil {
		return nil, err
	}

	candidates := make([]db.Task, 0, len(tasks))
	for _, task := range tasks {
		if hasIncompleteStep(task) {
			candidates = append(candidates, task)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoSuggestion
	}

	selected := candidates[0]
	for _, task := range candidates {
		if hasCompletedStep(task) {
			selected = task
			break
		}
	}

	for i, mt := range selected.MicroTasks {
		if !mt.Done {
			return &Suggestion{
				TaskID:         selected.ID,
				OriginalText:   selected.OriginalText,
				MicroTask:      mt,
				MicroTaskIndex: i,
			}, nil
		}
	}

	return nil, ErrNoSuggestion
}

func hasIncompleteStep(task db.Task) bool {
	for _, mt := range task.MicroTasks {
		if !mt.Done {
			return true
		}
	}
	return false
}

func hasCompletedStep(task db.Task) bool {
	for _, mt := range task.MicroTasks {
		if mt.Done {
			return true
		}
	}
	return false
}
