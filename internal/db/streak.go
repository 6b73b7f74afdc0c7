package db

import (
	"time"

	"gorm.io/gorm"
)

// Streak 记录每个用户的连续完成天数
// LastCompletionDate 为最近一次合格完成的时间；TodayCompleted 是"今天是否已完成"的缓存
// 不变量：任何更新之后 LongestStreak >= CurrentStreak
type Streak struct {
	gorm.Model
	UserID             uint `gorm:"uniqueIndex;not null"`
	CurrentStreak      int
	LongestStreak      int
	TodayCompleted     bool
	LastCompletionDate *time.Time
}

// StreakLog 记录每个合格完成日的打卡历史
// UserID + Date 采用唯一索引，同一天重复完成保持幂等
type StreakLog struct {
	gorm.Model
	UserID    uint      `gorm:"index;index:idx_streak_log_unique,unique"`
	Date      time.Time `gorm:"index:idx_streak_log_unique,unique"`
	Completed bool
}

// TableName 重写确保唯一索引作用到 user_id + date
func (StreakLog) TableName() string {
	return "streak_logs"
}
