package timer

import (
	"testing"
	"time"
)

// 测试里用一小时的 tick 周期，后台循环不会自己触发，全部由 Tick() 手动驱动
const quiet = time.Hour

func TestExpiresExactlyOnce(t *testing.T) {
	expireCalls := 0
	c := NewCountdown(quiet, nil, func() { expireCalls++ })

	c.Start(1)
	if got := c.Remaining(); got != 60 {
		t.Fatalf("remaining = %d, want 60", got)
	}
	if got := c.Status(); got != StatusRunning {
		t.Fatalf("status = %s, want running", got)
	}

	for i := 0; i < 60; i++ {
		c.Tick()
	}

	if got := c.Status(); got != StatusExpired {
		t.Fatalf("status = %s, want expired", got)
	}
	if expireCalls != 1 {
		t.Fatalf("onExpire called %d times, want 1", expireCalls)
	}

	// 终态之后 tick、启动、提交都不再有任何效果
	c.Tick()
	c.Start(1)
	c.Submit()
	if got := c.Status(); got != StatusExpired {
		t.Fatalf("status after terminal ops = %s, want expired", got)
	}
	if expireCalls != 1 {
		t.Fatalf("onExpire re-fired, calls = %d", expireCalls)
	}
}

func TestStartDoesNotResetClock(t *testing.T) {
	c := NewCountdown(quiet, nil, nil)
	c.Start(2)
	c.Tick()
	c.Tick()

	c.Start(2) // 已在运行，no-op
	if got := c.Remaining(); got != 118 {
		t.Fatalf("remaining = %d, want 118", got)
	}

	if err := c.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	c.Start(2) // paused 下重新 Start 继续计时，但不重置
	if got := c.Remaining(); got != 118 {
		t.Fatalf("remaining after restart = %d, want 118", got)
	}
	if got := c.Status(); got != StatusRunning {
		t.Fatalf("status = %s, want running", got)
	}
}

func TestPauseResumeTransitions(t *testing.T) {
	c := NewCountdown(quiet, nil, nil)

	if err := c.Pause(); err != ErrNotRunning {
		t.Fatalf("pause from idle: %v, want ErrNotRunning", err)
	}
	if err := c.Resume(); err != ErrNotPaused {
		t.Fatalf("resume from idle: %v, want ErrNotPaused", err)
	}

	c.Start(1)
	if err := c.Resume(); err != ErrNotPaused {
		t.Fatalf("resume from running: %v, want ErrNotPaused", err)
	}
	if err := c.Pause(); err != nil {
		t.Fatalf("pause from running: %v", err)
	}

	// paused 状态下 tick 无效
	before := c.Remaining()
	c.Tick()
	if got := c.Remaining(); got != before {
		t.Fatalf("tick while paused changed remaining: %d -> %d", before, got)
	}

	if err := c.Resume(); err != nil {
		t.Fatalf("resume from paused: %v", err)
	}
	c.Tick()
	if got := c.Remaining(); got != before-1 {
		t.Fatalf("remaining = %d, want %d", got, before-1)
	}
}

func TestSubmitIsTerminal(t *testing.T) {
	ticks := 0
	c := NewCountdown(quiet, func(int) { ticks++ }, nil)
	c.Start(1)
	c.Tick()
	c.Submit()

	if got := c.Status(); got != StatusSubmitted {
		t.Fatalf("status = %s, want submitted", got)
	}

	c.Tick()
	if err := c.Pause(); err != ErrNotRunning {
		t.Fatalf("pause after submit: %v, want ErrNotRunning", err)
	}
	if err := c.Resume(); err != ErrNotPaused {
		t.Fatalf("resume after submit: %v, want ErrNotPaused", err)
	}
	if ticks != 1 {
		t.Fatalf("onTick fired %d times, want 1", ticks)
	}
}

func TestBackgroundLoopTicks(t *testing.T) {
	done := make(chan struct{})
	c := NewCountdown(10*time.Millisecond, nil, func() { close(done) })
	c.Start(0) // 0 分钟：第一次 tick 即到期
	c.mu.Lock()
	c.remaining = 1
	c.mu.Unlock()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("background loop never expired the timer")
	}
	if got := c.Status(); got != StatusExpired {
		t.Fatalf("status = %s, want expired", got)
	}
}
