package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/dozyo/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StreakService 维护每用户的连续完成记录。
// 天的边界统一按服务器本地时区截断到零点，不做按用户时区归一化，
// 这是沿用原有产品行为的既定决策而非疏漏。
type StreakService struct {
	db *gorm.DB
}

// StreakStatus 是对外返回的连胜快照
type StreakStatus struct {
	CurrentStreak      int
	LongestStreak      int
	TodayCompleted     bool
	LastCompletionDate *time.Time
}

// NewStreakService 构造 StreakService
func NewStreakService(gdb *gorm.DB) *StreakService {
	return &StreakService{db: gdb}
}

// RecordCompletion 在某个微步骤完成时更新连胜。
// 整个读改写在单个事务内执行，同一用户同一天的并发完成不会重复累加：
//   - 无记录：创建 current=1/longest=1
//   - 最近完成日 == 今天：幂等，不变
//   - 最近完成日 == 昨天：current+1，必要时抬高 longest
//   - 其余情况：current 重置为 1
func (s *StreakService) RecordCompletion(userID uint, now time.Time) (*StreakStatus, error) {
	var result *StreakStatus

	err := s.db.Transaction(func(tx *gorm.DB) error {
		today := normalizeToDate(now)

		var streak db.Streak
		if err := tx.Where("user_id = ?", userID).First(&streak).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("load streak: %w", err)
			}

			streak = db.Streak{
				UserID:             userID,
				CurrentStreak:      1,
				LongestStreak:      1,
				TodayCompleted:     true,
				LastCompletionDate: &now,
			}
			if err := tx.Create(&streak).Error; err != nil {
				return fmt.Errorf("create streak: %w", err)
			}
			if err := upsertStreakLog(tx, userID, today); err != nil {
				return err
			}
			result = statusOf(streak)
			return nil
		}

		lastDay := time.Time{}
		if streak.LastCompletionDate != nil {
			lastDay = normalizeToDate(*streak.LastCompletionDate)
		}

		if lastDay.Equal(today) {
			// 同一天的第二次完成不改变连胜
			result = statusOf(streak)
			return nil
		}

		yesterday := today.AddDate(0, 0, -1)
		if lastDay.Equal(yesterday) {
			streak.CurrentStreak++
		} else {
			streak.CurrentStreak = 1
		}
		if streak.CurrentStreak > streak.LongestStreak {
			streak.LongestStreak = streak.CurrentStreak
		}
		streak.TodayCompleted = true
		streak.LastCompletionDate = &now

		if err := tx.Save(&streak).Error; err != nil {
			return fmt.Errorf("update streak: %w", err)
		}
		if err := upsertStreakLog(tx, userID, today); err != nil {
			return err
		}
		result = statusOf(streak)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Status 返回连胜快照，并在读取时惰性纠偏：
// 最近完成日既不是今天也不是昨天且 current > 0 时，把 current 归零并落库，
// longest 保持不变。没有记录时返回全零快照。
func (s *StreakService) Status(userID uint, now time.Time) (*StreakStatus, error) {
	var streak db.Streak
	if err := s.db.Where("user_id = ?", userID).First(&streak).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &StreakStatus{}, nil
		}
		return nil, fmt.Errorf("load streak: %w", err)
	}

	today := normalizeToDate(now)
	lastDay := time.Time{}
	if streak.LastCompletionDate != nil {
		lastDay = normalizeToDate(*streak.LastCompletionDate)
	}

	if !lastDay.Equal(today) {
		yesterday := today.AddDate(0, 0, -1)
		if !lastDay.Equal(yesterday) && streak.CurrentStreak > 0 {
			streak.CurrentStreak = 0
			streak.TodayCompleted = false
			if err := s.db.Model(&db.Streak{}).
				Where("user_id = ?", userID).
				Updates(map[string]interface{}{
					"current_streak":  0,
					"today_completed": false,
				}).Error; err != nil {
				return nil, fmt.Errorf("reset streak: %w", err)
			}
		}
	}

	return statusOf(streak), nil
}

// upsertStreakLog 记录打卡历史，user_id + date 唯一索引保证同日幂等
func upsertStreakLog(tx *gorm.DB, userID uint, day time.Time) error {
	record := db.StreakLog{
		UserID:    userID,
		Date:      day,
		Completed: true,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoNothing: true,
	}).Create(&record).Error; err != nil {
		return fmt.Errorf("upsert streak log: %w", err)
	}
	return nil
}

func statusOf(streak db.Streak) *StreakStatus {
	return &StreakStatus{
		CurrentStreak:      streak.CurrentStreak,
		LongestStreak:      streak.LongestStreak,
		TodayCompleted:     streak.TodayCompleted,
		LastCompletionDate: streak.LastCompletionDate,
	}
}

func normalizeToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
