// Package timer 实现答题倒计时状态机。
// 状态：idle → running ⇄ paused → expired/submitted，expired 和 submitted 为终态。
// 每个计时器持有唯一的停止通道，暂停、提交、到期都会收回 tick 循环，
// 不会出现终态之后仍在触发的僵尸 tick。
package timer

import (
	"errors"
	"sync"
	"time"
)

type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusExpired   Status = "expired"
	StatusSubmitted Status = "submitted"
)

var (
	ErrNotRunning = errors.New("timer is not running")
	ErrNotPaused  = errors.New("timer is not paused")
)

type Countdown struct {
	mu        sync.Mutex
	status    Status
	remaining int // 剩余秒数
	seeded    bool
	interval  time.Duration
	stop      chan struct{}
	onTick    func(remaining int)
	onExpire  func()
}

// NewCountdown 创建倒计时。interval 为 tick 周期（生产用 time.Second），
// onTick、onExpire 可为 nil，onExpire 至多触发一次。
func NewCountdown(interval time.Duration, onTick func(remaining int), onExpire func()) *Countdown {
	if interval <= 0 {
		interval = time.Second
	}
	return &Countdown{
		status:   StatusIdle,
		interval: interval,
		onTick:   onTick,
		onExpire: onExpire,
	}
}

// Start 启动计时。首次启动按 limitMinutes 设置剩余时间；
// 已在运行或已终态时为 no-op，不会重置时钟。
func (t *Countdown) Start(limitMinutes int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status == StatusRunning || t.terminalLocked() {
		return
	}
	if !t.seeded {
		t.remaining = limitMinutes * 60
		t.seeded = true
	}
	t.status = StatusRunning
	t.spawnLocked()
}

// Pause 仅在 running 状态合法，停止循环但保留剩余时间
func (t *Countdown) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != StatusRunning {
		return ErrNotRunning
	}
	t.status = StatusPaused
	t.cancelLocked()
	return nil
}

// Resume 仅在 paused 状态合法，继续计时不重置时钟
func (t *Countdown) Resume() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != StatusPaused {
		return ErrNotPaused
	}
	t.status = StatusRunning
	t.spawnLocked()
	return nil
}

// Submit 进入 submitted 终态并回收循环；已终态时为 no-op
func (t *Countdown) Submit() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.terminalLocked() {
		return
	}
	t.status = StatusSubmitted
	t.cancelLocked()
}

// Tick 状态机单步：非 running 状态下是 no-op；
// 减到 0 时转入 expired 终态，回收循环并触发一次 onExpire。
func (t *Countdown) Tick() {
	t.mu.Lock()
	if t.status != StatusRunning {
		t.mu.Unlock()
		return
	}
	t.remaining--
	remaining := t.remaining
	expired := false
	if remaining <= 0 {
		t.status = StatusExpired
		t.cancelLocked()
		expired = true
	}
	t.mu.Unlock()

	// 回调在锁外执行，允许回调内再操作计时器
	if t.onTick != nil {
		t.onTick(remaining)
	}
	if expired && t.onExpire != nil {
		t.onExpire()
	}
}

func (t *Countdown) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *Countdown) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

func (t *Countdown) terminalLocked() bool {
	return t.status == StatusExpired || t.status == StatusSubmitted
}

func (t *Countdown) spawnLocked() {
	if t.stop != nil {
		return
	}
	stop := make(chan struct{})
	t.stop = stop

	go func() {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.Tick()
			case <-stop:
				return
			}
		}
	}()
}

func (t *Countdown) cancelLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}
