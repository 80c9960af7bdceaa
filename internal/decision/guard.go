package decision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agentdesk/internal/metrics"
	"agentdesk/internal/pkg/circuit"

	"golang.org/x/time/rate"
)

// GuardedOracle 为每次调用加上超时、限速与熔断；任一触发都作为错误返回，由生成器跳过。
// 下游即使不响应 ctx，Decide 也会在超时后返回。
type GuardedOracle struct {
	Inner   Oracle
	Timeout time.Duration
	Limiter *rate.Limiter
	Breaker *circuit.Breaker
}

type oracleResult struct {
	decision *Decision
	err      error
}

func (g GuardedOracle) Decide(ctx context.Context, req Request) (*Decision, error) {
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}
	if g.Limiter != nil {
		if err := g.Limiter.Wait(ctx); err != nil {
			metrics.OracleCall("timeout")
			return nil, fmt.Errorf("oracle rate limit wait: %w", err)
		}
	}
	var out *Decision
	call := func() error {
		ch := make(chan oracleResult, 1)
		go func() {
			d, err := g.Inner.Decide(ctx, req)
			ch <- oracleResult{decision: d, err: err}
		}()
		select {
		case r := <-ch:
			out = r.decision
			return r.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	var err error
	if g.Breaker != nil {
		err = g.Breaker.Do(call)
	} else {
		err = call()
	}
	switch {
	case errors.Is(err, circuit.ErrOpen):
		metrics.OracleCall("rejected")
		return nil, err
	case errors.Is(err, context.DeadlineExceeded):
		metrics.OracleCall("timeout")
		return nil, fmt.Errorf("oracle timeout after %s: %w", g.Timeout, err)
	case err != nil:
		metrics.OracleCall("error")
		return nil, err
	case out == nil:
		metrics.OracleCall("no_trade")
	default:
		metrics.OracleCall("trade")
	}
	return out, nil
}
