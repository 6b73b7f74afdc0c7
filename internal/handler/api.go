package handler

import (
	"github.com/dozyo/internal/config"
	"github.com/dozyo/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db      *gorm.DB
	tasks   *service.TaskService
	streaks *service.StreakService
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, cfg config.AppConfig) *API {
	breakdown := service.NewBreakdownService(
		cfg.OpenAIAPIKey,
		cfg.OpenAIBaseURL,
		cfg.OpenAIModel,
		cfg.AITimeout(),
	)

	return &API{
		db:      gdb,
		tasks:   service.NewTaskService(gdb, breakdown),
		streaks: service.NewStreakService(gdb),
	}
}

// NewAPIWithGenerator 允许注入自定义生成器，主要用于测试。
func NewAPIWithGenerator(gdb *gorm.DB, generator service.StepGenerator) *API {
	return &API{
		db:      gdb,
		tasks:   service.NewTaskService(gdb, generator),
		streaks: service.NewStreakService(gdb),
	}
}

// DB exposes the underlying gorm instance for legacy paths.
func (a *API) DB() *gorm.DB {
	return a.db
}
