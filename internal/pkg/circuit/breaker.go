package circuit

import (
	"errors"
	"sync"
	"time"

	"agentdesk/internal/logger"
)

// ErrOpen 表示熔断器处于打开状态，调用被直接拒绝。
var ErrOpen = errors.New("circuit open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// Breaker 连续失败达到阈值后打开，冷却期过后放行一次试探调用。
type Breaker struct {
	mu        sync.Mutex
	name      string
	threshold int
	cooldown  time.Duration
	state     State
	failures  int
	openedAt  time.Time
	nowFn     func() time.Time
	onChange  func(name string, from, to State)
}

func New(name string, threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 1
	}
	return &Breaker{
		name:      name,
		threshold: threshold,
		cooldown:  cooldown,
		nowFn:     time.Now,
	}
}

// OnStateChange 注册状态变更回调（同步调用，回调内不得再调用 Breaker）。
func (b *Breaker) OnStateChange(fn func(name string, from, to State)) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateOpen {
		return true
	}
	if b.nowFn().Sub(b.openedAt) >= b.cooldown {
		b.moveTo(StateHalfOpen)
		return true
	}
	return false
}

// Do 在熔断保护下执行 fn，并按结果记录成功/失败。
func (b *Breaker) Do(fn func() error) error {
	if !b.Allow() {
		return ErrOpen
	}
	if err := fn(); err != nil {
		b.Failure()
		return err
	}
	b.Success()
	return nil
}

func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	if b.state == StateHalfOpen {
		b.moveTo(StateClosed)
	}
}

func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	switch b.state {
	case StateHalfOpen:
		b.openedAt = b.nowFn()
		b.moveTo(StateOpen)
	case StateClosed:
		if b.failures >= b.threshold {
			b.openedAt = b.nowFn()
			b.moveTo(StateOpen)
		}
	}
}

func (b *Breaker) moveTo(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.onChange != nil {
		b.onChange(b.name, from, to)
		return
	}
	logger.Warnf("circuit %s: %s -> %s (failures=%d/%d cooldown=%s)", b.name, from, to, b.failures, b.threshold, b.cooldown)
}
