package livehttp

import (
	"context"

	"agentdesk/internal/config"
	"agentdesk/internal/engine"
	"agentdesk/internal/portfolio"
	"agentdesk/internal/profile"
	"agentdesk/internal/store/decisionlog"
	"agentdesk/internal/trade"
	"agentdesk/internal/types"
)

// Engine 由 engine.Service 实现。
type Engine interface {
	Registry() *profile.Registry
	Ledger() *portfolio.Ledger
	TradeCache() *trade.Cache
	Features() config.Features
	RunGenerationCycle(ctx context.Context) (*engine.CycleResult, error)
	RunLifecycle(ctx context.Context) ([]types.ClosedPosition, error)
}

// DecisionLogs 由 decisionlog.DecisionLogStore 实现。
type DecisionLogs interface {
	ListDecisions(ctx context.Context, q decisionlog.Query) ([]decisionlog.DecisionLogRecord, error)
	CountDecisions(ctx context.Context, q decisionlog.Query) (int, error)
}

// CloseHistory 由 store.TradeLog 实现。
type CloseHistory interface {
	RecentCloses(ctx context.Context, agentID string, limit int) ([]types.ClosedPosition, error)
}

// AgentView 是 agent 配置与账本统计的合并视图。
type AgentView struct {
	Profile profile.AgentProfile `json:"profile"`
	Stats   portfolio.AgentStats `json:"stats"`
}

type tradesResponse struct {
	AgentID string             `json:"agent_id"`
	Source  string             `json:"source"`
	Trades  []types.AgentTrade `json:"trades"`
}
