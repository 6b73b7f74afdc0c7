package handler

import (
	"net/http"
	"time"

	"github.com/dozyo/internal/config"
	"github.com/dozyo/internal/service"
	"github.com/gin-gonic/gin"
)

// GetStreak 返回连胜状态，读取时惰性过期（见 StreakService.Status）
func (a *API) GetStreak(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	status, err := a.streaks.Status(userID, time.Now())
	if err != nil {
		config.Logger.Errorf("get streak failed: %v", err)
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, streakToPayload(status))
}

// IncrementStreak 手动记录一次完成，同一天重复调用保持幂等
func (a *API) IncrementStreak(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	status, err := a.streaks.RecordCompletion(userID, time.Now())
	if err != nil {
		config.Logger.Errorf("increment streak failed: %v", err)
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, streakToPayload(status))
}

func streakToPayload(status *service.StreakStatus) gin.H {
	return gin.H{
		"currentStreak":      status.CurrentStreak,
		"longestStreak":      status.LongestStreak,
		"todayCompleted":     status.TodayCompleted,
		"lastCompletionDate": status.LastCompletionDate,
	}
}
