package db

import "time"

// Task 定义了用户任务模型
// OriginalText 保存用户原始描述，MicroTasks 为生成的微步骤，顺序有意义
// ID 使用 UUID 字符串，对外作为不透明标识
type Task struct {
	ID           string `gorm:"type:varchar(36);primaryKey"`
	UserID       uint   `gorm:"index;not null"`
	OriginalText string `gorm:"type:text;not null"`
	CreatedAt    time.Time
	MicroTasks   []MicroTask `gorm:"constraint:OnDelete:CASCADE"`
}

// MicroTask 是任务下的单个微步骤
// Position 保证展示顺序稳定；Done 可独立切换，步骤间不存在强依赖
type MicroTask struct {
	ID       string `gorm:"type:varchar(36);primaryKey"`
	TaskID   string `gorm:"type:varchar(36);index;not null"`
	Position int    `gorm:"not null"`
	Text     string `gorm:"type:text;not null"`
	Done     bool   `gorm:"default:false"`
}
