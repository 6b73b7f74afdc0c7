package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/dozyo/internal/db"
)

func TestIncrementStreakSameDayIdempotent(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	c, w := authedContext(t, http.MethodPost, "/streak/increment", nil)
	api.IncrementStreak(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	first := decodeBody(t, w)
	if first["currentStreak"].(float64) != 1 || first["longestStreak"].(float64) != 1 {
		t.Fatalf("expected 1/1 on first increment, got %v", first)
	}
	if first["todayCompleted"] != true {
		t.Fatalf("expected todayCompleted true, got %v", first)
	}

	// 同一天第二次调用不改变连胜
	c, w = authedContext(t, http.MethodPost, "/streak/increment", nil)
	api.IncrementStreak(c)
	second := decodeBody(t, w)
	if second["currentStreak"].(float64) != 1 || second["longestStreak"].(float64) != 1 {
		t.Fatalf("expected unchanged 1/1 on same day, got %v", second)
	}
}

func TestGetStreakResetsStaleRecord(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	last := time.Now().AddDate(0, 0, -3)
	record := db.Streak{
		UserID:             1,
		CurrentStreak:      5,
		LongestStreak:      9,
		TodayCompleted:     true,
		LastCompletionDate: &last,
	}
	if err := db.DB.Create(&record).Error; err != nil {
		t.Fatalf("failed to seed streak: %v", err)
	}

	c, w := authedContext(t, http.MethodGet, "/streak", nil)
	api.GetStreak(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	payload := decodeBody(t, w)
	if payload["currentStreak"].(float64) != 0 {
		t.Fatalf("expected stale streak reset to 0, got %v", payload)
	}
	if payload["longestStreak"].(float64) != 9 {
		t.Fatalf("longest must be unchanged, got %v", payload)
	}

	var persisted db.Streak
	if err := db.DB.Where("user_id = ?", 1).First(&persisted).Error; err != nil {
		t.Fatalf("failed to reload streak: %v", err)
	}
	if persisted.CurrentStreak != 0 || persisted.TodayCompleted {
		t.Fatalf("reset was not persisted: %+v", persisted)
	}
}

func TestGetStreakWithoutRecord(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	c, w := authedContext(t, http.MethodGet, "/streak", nil)
	api.GetStreak(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var payload struct {
		CurrentStreak      int        `json:"currentStreak"`
		LongestStreak      int        `json:"longestStreak"`
		TodayCompleted     bool       `json:"todayCompleted"`
		LastCompletionDate *time.Time `json:"lastCompletionDate"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.CurrentStreak != 0 || payload.LongestStreak != 0 || payload.TodayCompleted {
		t.Fatalf("expected zero-value streak, got %+v", payload)
	}
	if payload.LastCompletionDate != nil {
		t.Fatal("expected null lastCompletionDate")
	}
}
