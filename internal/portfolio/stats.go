package portfolio

import (
	"sort"

	"agentdesk/internal/types"

	"github.com/shopspring/decimal"
)

// AgentStats 是单个 agent 账本的只读投影。
type AgentStats struct {
	AgentID         string  `json:"agent_id"`
	StartingCapital float64 `json:"starting_capital"`
	CurrentCapital  float64 `json:"current_capital"`
	Cash            float64 `json:"cash"`
	Exposure        float64 `json:"exposure"`
	RealizedPnL     float64 `json:"realized_pnl"`
	UnrealizedPnL   float64 `json:"unrealized_pnl"`
	TotalCapital    float64 `json:"total_capital"`
	TotalPnL        float64 `json:"total_pnl"`
	OpenPositions   int     `json:"open_positions"`
	ClosedTrades    int     `json:"closed_trades"`
	Wins            int     `json:"wins"`
	Losses          int     `json:"losses"`
	WinRate         float64 `json:"win_rate"`
}

// SummaryStats 汇总所有 agent，Agents 按总盈亏降序。
type SummaryStats struct {
	Agents           []AgentStats `json:"agents"`
	BestAgentByPnL   *string      `json:"best_agent_by_pnl"`
	TotalRealizedPnL float64      `json:"total_realized_pnl"`
	TotalExposure    float64      `json:"total_exposure"`
	OpenPositions    int          `json:"open_positions"`
	ClosedTrades     int          `json:"closed_trades"`
}

// ComputeAgentStats 计算统计；未实现盈亏取持仓最近一次估值，未估值视为 0。
func ComputeAgentStats(p *Portfolio) AgentStats {
	realized := decimal.NewFromFloat(p.RealizedPnL)
	unrealized := decimal.NewFromFloat(p.UnrealizedPnL())
	exposure := decimal.NewFromFloat(p.Exposure())
	current := decimal.NewFromFloat(p.StartingCapital).Add(realized)
	cash := current.Sub(exposure)
	if cash.IsNegative() {
		cash = decimal.Zero
	}
	s := AgentStats{
		AgentID:         p.AgentID,
		StartingCapital: p.StartingCapital,
		CurrentCapital:  current.InexactFloat64(),
		Cash:            cash.InexactFloat64(),
		Exposure:        exposure.InexactFloat64(),
		RealizedPnL:     realized.InexactFloat64(),
		UnrealizedPnL:   unrealized.InexactFloat64(),
		TotalCapital:    current.Add(unrealized).InexactFloat64(),
		TotalPnL:        realized.Add(unrealized).InexactFloat64(),
		OpenPositions:   p.OpenCount(),
	}
	for _, t := range p.trades {
		if t.Status != types.TradeClosed || t.RealizedPnL == nil {
			continue
		}
		s.ClosedTrades++
		switch {
		case *t.RealizedPnL > 0:
			s.Wins++
		case *t.RealizedPnL < 0:
			s.Losses++
		}
	}
	if decided := s.Wins + s.Losses; decided > 0 {
		s.WinRate = float64(s.Wins) / float64(decided)
	}
	return s
}

// ComputeSummaryStats 只在存在已平仓交易的 agent 中选出最佳者，否则为 nil。
func ComputeSummaryStats(stats []AgentStats) SummaryStats {
	agents := append([]AgentStats(nil), stats...)
	sort.SliceStable(agents, func(i, j int) bool {
		if agents[i].TotalPnL != agents[j].TotalPnL {
			return agents[i].TotalPnL > agents[j].TotalPnL
		}
		return agents[i].AgentID < agents[j].AgentID
	})
	out := SummaryStats{Agents: agents}
	realized, exposure := decimal.Zero, decimal.Zero
	for i := range agents {
		a := agents[i]
		realized = realized.Add(decimal.NewFromFloat(a.RealizedPnL))
		exposure = exposure.Add(decimal.NewFromFloat(a.Exposure))
		out.OpenPositions += a.OpenPositions
		out.ClosedTrades += a.ClosedTrades
		if out.BestAgentByPnL == nil && a.ClosedTrades > 0 {
			id := a.AgentID
			out.BestAgentByPnL = &id
		}
	}
	out.TotalRealizedPnL = realized.InexactFloat64()
	out.TotalExposure = exposure.InexactFloat64()
	return out
}

// LedgerStats 对账本中所有 agent 计算统计与汇总。
func LedgerStats(l *Ledger) ([]AgentStats, SummaryStats) {
	snaps := l.Snapshots()
	stats := make([]AgentStats, 0, len(snaps))
	for _, p := range snaps {
		stats = append(stats, ComputeAgentStats(p))
	}
	return stats, ComputeSummaryStats(stats)
}
