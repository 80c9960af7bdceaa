package types

import (
	"strings"
	"time"
)

// Side 是二元市场的方向；概率字段始终表示 YES 的概率。
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

func ParseSide(raw string) (Side, bool) {
	switch Side(strings.ToUpper(strings.TrimSpace(raw))) {
	case SideYes:
		return SideYes, true
	case SideNo:
		return SideNo, true
	default:
		return "", false
	}
}

func (s Side) Opposite() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

type TradeStatus string

const (
	TradeOpen   TradeStatus = "OPEN"
	TradeClosed TradeStatus = "CLOSED"
)

// CloseReason 记录平仓原因。
type CloseReason string

const (
	CloseTakeProfit CloseReason = "take_profit"
	CloseStopLoss   CloseReason = "stop_loss"
	CloseTimeLimit  CloseReason = "time_limit"
	CloseScoreDecay CloseReason = "score_decay"
	CloseDelisted   CloseReason = "delisted"
	CloseFlip       CloseReason = "flip"
)

// AgentTrade 由生成器创建，仅在平仓时变更状态与盈亏；平仓后不会重新打开。
type AgentTrade struct {
	ID               string      `json:"id"`
	AgentID          string      `json:"agent_id"`
	MarketID         string      `json:"market_id"`
	Question         string      `json:"question,omitempty"`
	Category         string      `json:"category,omitempty"`
	Side             Side        `json:"side"`
	Confidence       float64     `json:"confidence"`
	InvestmentUSD    float64     `json:"investment_usd"`
	EntryProbability float64     `json:"entry_probability"`
	Score            float64     `json:"score"`
	Status           TradeStatus `json:"status"`
	RealizedPnL      *float64    `json:"realized_pnl,omitempty"`
	ExitProbability  *float64    `json:"exit_probability,omitempty"`
	CloseReason      CloseReason `json:"close_reason,omitempty"`
	// LastProbability / UnrealizedPnL 为 OPEN 交易最近一次估值，重启后用于恢复持仓的估值。
	LastProbability  *float64    `json:"last_probability,omitempty"`
	UnrealizedPnL    *float64    `json:"unrealized_pnl,omitempty"`
	Reasoning        string      `json:"reasoning"`
	CreatedAt        time.Time   `json:"created_at"`
	ClosedAt         *time.Time  `json:"closed_at,omitempty"`
}

// Position 是组合中的一个持仓；同一 agent 同一市场最多一个。
type Position struct {
	TradeID          string    `json:"trade_id"`
	MarketID         string    `json:"market_id"`
	Category         string    `json:"category,omitempty"`
	Side             Side      `json:"side"`
	EntryProbability float64   `json:"entry_probability"`
	SizeUSD          float64   `json:"size_usd"`
	OpenedAt         time.Time `json:"opened_at"`
	// LastProbability / UnrealizedPnL 在每次估值时更新，市场下架后用于强制平仓。
	LastProbability float64 `json:"last_probability"`
	UnrealizedPnL   float64 `json:"unrealized_pnl"`
}

// ClosedPosition 是生命周期处理输出的平仓记录。
type ClosedPosition struct {
	AgentID         string      `json:"agent_id"`
	Position        Position    `json:"position"`
	ExitProbability float64     `json:"exit_probability"`
	RealizedPnL     float64     `json:"realized_pnl"`
	Reason          CloseReason `json:"reason"`
	ClosedAt        time.Time   `json:"closed_at"`
}
