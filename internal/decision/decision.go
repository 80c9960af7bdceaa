package decision

import (
	"context"
	"errors"
	"time"

	"agentdesk/internal/market"
	"agentdesk/internal/profile"
	"agentdesk/internal/scoring"
	"agentdesk/internal/types"
)

// Decision 是 oracle 对单个 (agent, market) 的交易建议。
type Decision struct {
	Side       types.Side `json:"side"`
	Confidence float64    `json:"confidence"`
	Reasoning  string     `json:"reasoning"`
	Source     string     `json:"source,omitempty"`
}

// Request 是一次 oracle 调用的输入。
type Request struct {
	Profile profile.AgentProfile
	Market  scoring.ScoredMarket
	News    []market.NewsArticle
	Now     time.Time
}

func (r Request) AgentID() string  { return r.Profile.ID }
func (r Request) MarketID() string { return r.Market.Market.ID }

// Oracle 返回 (nil, nil) 表示不交易；error 表示本次调用失败，调用方应跳过该候选。
type Oracle interface {
	Decide(ctx context.Context, req Request) (*Decision, error)
}

// OracleFunc 让普通函数满足 Oracle。
type OracleFunc func(ctx context.Context, req Request) (*Decision, error)

func (f OracleFunc) Decide(ctx context.Context, req Request) (*Decision, error) {
	return f(ctx, req)
}

var (
	ErrNoProvider      = errors.New("no model provider for agent")
	ErrInvalidDecision = errors.New("invalid oracle decision")
)

// acceptable 按 agent 置信度下限过滤建议。
func acceptable(d *Decision, p profile.AgentProfile) *Decision {
	if d == nil || d.Confidence < p.MinConfidence {
		return nil
	}
	return d
}
