package model

import (
	"encoding/json"
	"time"

	"agentdesk/internal/types"

	"gorm.io/datatypes"
)

// TradeModel 对应 agent_trades 表，时间统一存毫秒。
type TradeModel struct {
	ID               string         `gorm:"column:id;primaryKey"`
	AgentID          string         `gorm:"column:agent_id;index:idx_agent_trades_agent_status,priority:1"`
	MarketID         string         `gorm:"column:market_id;index"`
	Question         string         `gorm:"column:question"`
	Category         string         `gorm:"column:category"`
	Side             string         `gorm:"column:side"`
	Confidence       float64        `gorm:"column:confidence"`
	InvestmentUSD    float64        `gorm:"column:investment_usd"`
	EntryProbability float64        `gorm:"column:entry_probability"`
	Score            float64        `gorm:"column:score"`
	Status           string         `gorm:"column:status;index:idx_agent_trades_agent_status,priority:2"`
	RealizedPnL      *float64       `gorm:"column:realized_pnl"`
	ExitProbability  *float64       `gorm:"column:exit_probability"`
	CloseReason      string         `gorm:"column:close_reason"`
	MarkProbability  *float64       `gorm:"column:mark_probability"`
	MarkPnL          *float64       `gorm:"column:mark_pnl"`
	Reasoning        string         `gorm:"column:reasoning"`
	CreatedAtMs      int64          `gorm:"column:created_at"`
	ClosedAtMs       *int64         `gorm:"column:closed_at"`
	UpdatedAtMs      int64          `gorm:"column:updated_at"`
	RawJSON          datatypes.JSON `gorm:"column:raw_json;type:TEXT"`
}

func (TradeModel) TableName() string { return "agent_trades" }

// PositionCloseModel 对应 position_closes 表，每次平仓一行。
type PositionCloseModel struct {
	ID              int64          `gorm:"column:id;primaryKey;autoIncrement"`
	TradeID         string         `gorm:"column:trade_id;uniqueIndex"`
	AgentID         string         `gorm:"column:agent_id;index"`
	MarketID        string         `gorm:"column:market_id"`
	Side            string         `gorm:"column:side"`
	Reason          string         `gorm:"column:reason"`
	ExitProbability float64        `gorm:"column:exit_probability"`
	RealizedPnL     float64        `gorm:"column:realized_pnl"`
	PositionJSON    datatypes.JSON `gorm:"column:position_json;type:TEXT"`
	ClosedAtMs      int64          `gorm:"column:closed_at"`
}

func (PositionCloseModel) TableName() string { return "position_closes" }

func NewTradeModel(t types.AgentTrade, now time.Time) TradeModel {
	m := TradeModel{
		ID:               t.ID,
		AgentID:          t.AgentID,
		MarketID:         t.MarketID,
		Question:         t.Question,
		Category:         t.Category,
		Side:             string(t.Side),
		Confidence:       t.Confidence,
		InvestmentUSD:    t.InvestmentUSD,
		EntryProbability: t.EntryProbability,
		Score:            t.Score,
		Status:           string(t.Status),
		RealizedPnL:      t.RealizedPnL,
		ExitProbability:  t.ExitProbability,
		CloseReason:      string(t.CloseReason),
		MarkProbability:  t.LastProbability,
		MarkPnL:          t.UnrealizedPnL,
		Reasoning:        t.Reasoning,
		CreatedAtMs:      t.CreatedAt.UnixMilli(),
		UpdatedAtMs:      now.UnixMilli(),
	}
	if t.ClosedAt != nil {
		ms := t.ClosedAt.UnixMilli()
		m.ClosedAtMs = &ms
	}
	if raw, err := json.Marshal(t); err == nil {
		m.RawJSON = datatypes.JSON(raw)
	}
	return m
}

func (m TradeModel) ToDomain() types.AgentTrade {
	t := types.AgentTrade{
		ID:               m.ID,
		AgentID:          m.AgentID,
		MarketID:         m.MarketID,
		Question:         m.Question,
		Category:         m.Category,
		Side:             types.Side(m.Side),
		Confidence:       m.Confidence,
		InvestmentUSD:    m.InvestmentUSD,
		EntryProbability: m.EntryProbability,
		Score:            m.Score,
		Status:           types.TradeStatus(m.Status),
		RealizedPnL:      m.RealizedPnL,
		ExitProbability:  m.ExitProbability,
		CloseReason:      types.CloseReason(m.CloseReason),
		LastProbability:  m.MarkProbability,
		UnrealizedPnL:    m.MarkPnL,
		Reasoning:        m.Reasoning,
		CreatedAt:        time.UnixMilli(m.CreatedAtMs).UTC(),
	}
	if m.ClosedAtMs != nil {
		at := time.UnixMilli(*m.ClosedAtMs).UTC()
		t.ClosedAt = &at
	}
	return t
}

func NewPositionCloseModel(c types.ClosedPosition) PositionCloseModel {
	m := PositionCloseModel{
		TradeID:         c.Position.TradeID,
		AgentID:         c.AgentID,
		MarketID:        c.Position.MarketID,
		Side:            string(c.Position.Side),
		Reason:          string(c.Reason),
		ExitProbability: c.ExitProbability,
		RealizedPnL:     c.RealizedPnL,
		ClosedAtMs:      c.ClosedAt.UnixMilli(),
	}
	if raw, err := json.Marshal(c.Position); err == nil {
		m.PositionJSON = datatypes.JSON(raw)
	}
	return m
}

func (m PositionCloseModel) ToDomain() types.ClosedPosition {
	c := types.ClosedPosition{
		AgentID:         m.AgentID,
		ExitProbability: m.ExitProbability,
		RealizedPnL:     m.RealizedPnL,
		Reason:          types.CloseReason(m.Reason),
		ClosedAt:        time.UnixMilli(m.ClosedAtMs).UTC(),
	}
	if len(m.PositionJSON) > 0 {
		_ = json.Unmarshal(m.PositionJSON, &c.Position)
	}
	if c.Position.TradeID == "" {
		c.Position = types.Position{TradeID: m.TradeID, MarketID: m.MarketID, Side: types.Side(m.Side)}
	}
	return c
}
