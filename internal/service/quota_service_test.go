package service

import (
	"testing"
	"time"
)

func TestCanCreatePaper(t *testing.T) {
	if !CanCreatePaper(2, false, 3) {
		t.Error("free user below limit should be allowed")
	}
	if CanCreatePaper(3, false, 3) {
		t.Error("free user at limit should be blocked")
	}
	if !CanCreatePaper(100, true, 3) {
		t.Error("paid user should never be blocked")
	}
}

func TestCanStartAttempt(t *testing.T) {
	if !CanStartAttempt(4, false, 5) {
		t.Error("free user below daily limit should be allowed")
	}
	if CanStartAttempt(5, false, 5) {
		t.Error("free user at daily limit should be blocked")
	}
	if !CanStartAttempt(50, true, 5) {
		t.Error("paid user should never be blocked")
	}
}

func TestHistoryWindowStartFreeClamped(t *testing.T) {
	now := time.Date(2026, 8, 29, 15, 30, 0, 0, time.Local)
	floor := time.Date(2026, 8, 23, 0, 0, 0, 0, time.Local) // 7天窗口 = 6天前零点

	got := HistoryWindowStart(false, nil, 7, now)
	if got == nil || !got.Equal(floor) {
		t.Fatalf("free user with no request: got %v, want %v", got, floor)
	}

	// 请求比窗口还早：钳回窗口起点
	early := floor.AddDate(0, 0, -30)
	got = HistoryWindowStart(false, &early, 7, now)
	if got == nil || !got.Equal(floor) {
		t.Fatalf("free user requesting earlier start: got %v, want %v", got, floor)
	}

	// 请求在窗口内：允许收窄
	narrow := floor.AddDate(0, 0, 2)
	got = HistoryWindowStart(false, &narrow, 7, now)
	if got == nil || !got.Equal(narrow) {
		t.Fatalf("free user narrowing window: got %v, want %v", got, narrow)
	}
}

func TestHistoryWindowStartPaidUnrestricted(t *testing.T) {
	now := time.Now()

	if got := HistoryWindowStart(true, nil, 7, now); got != nil {
		t.Fatalf("paid user with no request should be unlimited, got %v", got)
	}

	requested := now.AddDate(-1, 0, 0)
	got := HistoryWindowStart(true, &requested, 7, now)
	if got == nil || !got.Equal(requested) {
		t.Fatalf("paid user request should pass through, got %v", got)
	}
}

func TestMidnight(t *testing.T) {
	now := time.Date(2026, 8, 29, 23, 59, 59, 12345, time.Local)
	m := Midnight(now)
	if m.Hour() != 0 || m.Minute() != 0 || m.Second() != 0 || m.Nanosecond() != 0 {
		t.Fatalf("Midnight returned %v", m)
	}
	if m.Day() != 29 || m.Month() != 8 {
		t.Fatalf("Midnight changed the date: %v", m)
	}
}
