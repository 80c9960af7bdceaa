package scheduler

import (
	"context"
	"time"

	"agentdesk/internal/logger"
)

// Scheduler 以固定间隔执行任务；任务执行超时时跳过错过的轮次，不会叠加执行。
type Scheduler struct {
	Name           string
	Interval       time.Duration
	RunImmediately bool

	nowFn func() time.Time
}

func New(name string, interval time.Duration) *Scheduler {
	return &Scheduler{Name: name, Interval: interval, RunImmediately: true, nowFn: time.Now}
}

// Run 阻塞直到 ctx 结束。
func (s *Scheduler) Run(ctx context.Context, task func(context.Context)) {
	if task == nil {
		logger.Warnf("scheduler %s: task is nil, exit", s.Name)
		return
	}
	if s.Interval <= 0 {
		logger.Warnf("scheduler %s: invalid interval=%s, exit", s.Name, s.Interval)
		return
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}
	logger.Infof("scheduler %s: started interval=%s run_immediately=%v", s.Name, s.Interval, s.RunImmediately)

	next := s.nowFn()
	if !s.RunImmediately {
		next = next.Add(s.Interval)
	}
	for {
		wait := next.Sub(s.nowFn())
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				logger.Infof("scheduler %s: ctx done, exit", s.Name)
				return
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			logger.Infof("scheduler %s: ctx done, exit", s.Name)
			return
		}
		started := s.nowFn()
		task(ctx)
		next = nextRun(next, s.nowFn(), s.Interval)
		if took := s.nowFn().Sub(started); took > s.Interval {
			logger.Warnf("scheduler %s: run took %s, longer than interval %s", s.Name, took.Truncate(time.Millisecond), s.Interval)
		}
	}
}

// nextRun 返回 prev 之后第一个晚于 now 的整数倍时间点。
func nextRun(prev, now time.Time, interval time.Duration) time.Time {
	next := prev.Add(interval)
	if next.After(now) {
		return next
	}
	missed := now.Sub(prev) / interval
	return prev.Add((missed + 1) * interval)
}
