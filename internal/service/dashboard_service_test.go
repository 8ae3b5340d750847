package service

import (
	"testing"
	"time"

	"exam_prep_backend/internal/model"
)

func intPtr(v int) *int { return &v }

func TestSummarizeWeek(t *testing.T) {
	attempts := []model.Attempt{
		{Percent: intPtr(80)},
		{Percent: intPtr(55)},
		{Percent: nil}, // 进行中，不计入
		{Percent: intPtr(90)},
	}

	avg, best := SummarizeWeek(attempts)
	if avg != 75.0 {
		t.Errorf("avg = %v, want 75.0", avg)
	}
	if best != 90 {
		t.Errorf("best = %d, want 90", best)
	}
}

func TestSummarizeWeekRoundsToOneDecimal(t *testing.T) {
	attempts := []model.Attempt{
		{Percent: intPtr(33)},
		{Percent: intPtr(33)},
		{Percent: intPtr(34)},
	}

	avg, _ := SummarizeWeek(attempts)
	if avg != 33.3 {
		t.Errorf("avg = %v, want 33.3", avg)
	}
}

func TestSummarizeWeekEmpty(t *testing.T) {
	avg, best := SummarizeWeek(nil)
	if avg != 0 || best != 0 {
		t.Errorf("empty week should be zero, got avg=%v best=%d", avg, best)
	}

	avg, best = SummarizeWeek([]model.Attempt{{Percent: nil}})
	if avg != 0 || best != 0 {
		t.Errorf("week with only in-progress attempts should be zero, got avg=%v best=%d", avg, best)
	}
}

func TestWeekStart(t *testing.T) {
	now := time.Date(2026, 8, 29, 18, 0, 0, 0, time.Local)
	want := time.Date(2026, 8, 23, 0, 0, 0, 0, time.Local)
	if got := WeekStart(now); !got.Equal(want) {
		t.Errorf("WeekStart = %v, want %v", got, want)
	}
}
