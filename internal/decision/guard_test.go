package decision

import (
	"context"
	"errors"
	"testing"
	"time"

	"agentdesk/internal/pkg/circuit"
	"agentdesk/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardedOracle_TimeoutIsError(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	slow := OracleFunc(func(ctx context.Context, req Request) (*Decision, error) {
		<-block
		return &Decision{Side: types.SideYes, Confidence: 1}, nil
	})
	g := GuardedOracle{Inner: slow, Timeout: 20 * time.Millisecond}

	start := time.Now()
	d, err := g.Decide(context.Background(), testRequest())
	assert.Nil(t, d)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGuardedOracle_BreakerRejects(t *testing.T) {
	failing := OracleFunc(func(context.Context, Request) (*Decision, error) {
		return nil, errors.New("upstream down")
	})
	g := GuardedOracle{Inner: failing, Breaker: circuit.New("test", 1, time.Hour)}

	_, err := g.Decide(context.Background(), testRequest())
	assert.ErrorContains(t, err, "upstream down")
	_, err = g.Decide(context.Background(), testRequest())
	assert.ErrorIs(t, err, circuit.ErrOpen)
}

func TestGuardedOracle_PassesThrough(t *testing.T) {
	ok := OracleFunc(func(context.Context, Request) (*Decision, error) {
		return &Decision{Side: types.SideNo, Confidence: 0.75}, nil
	})
	g := GuardedOracle{Inner: ok, Timeout: time.Second}
	d, err := g.Decide(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, types.SideNo, d.Side)
}
