package lifecycle

import (
	"time"

	"agentdesk/internal/logger"
	"agentdesk/internal/market"
	"agentdesk/internal/metrics"
	"agentdesk/internal/portfolio"
	"agentdesk/internal/types"
)

// ProcessPositionLifecycle 扫描一次全部持仓：下架市场强制平仓，其余先估值再按规则平仓。
// 各持仓独立处理；scores 为 nil 时不做评分衰减检查。
func ProcessPositionLifecycle(p *portfolio.Portfolio, markets map[string]market.Market, scores map[string]float64, now time.Time) []types.ClosedPosition {
	var closed []types.ClosedPosition
	for _, pos := range p.Positions() {
		m, listed := markets[pos.MarketID]
		if !listed {
			c, err := p.ForceClose(pos.MarketID, now)
			if err != nil {
				logger.Warnf("force close %s/%s failed: %v", p.AgentID, pos.MarketID, err)
				continue
			}
			closed = append(closed, c)
			continue
		}
		unrealized := CalculateRealizedPnL(pos, m.Probability)
		if err := p.MarkToMarket(pos.MarketID, m.Probability, unrealized); err != nil {
			logger.Warnf("mark %s/%s failed: %v", p.AgentID, pos.MarketID, err)
			continue
		}
		var score *float64
		if s, ok := scores[pos.MarketID]; ok {
			score = &s
		}
		reason, ok := ShouldClosePosition(pos, m, score, now)
		if !ok {
			continue
		}
		c := ClosePosition(p.AgentID, pos, m.Probability, reason, now)
		if err := p.Close(c); err != nil {
			logger.Warnf("close %s/%s failed: %v", p.AgentID, pos.MarketID, err)
			continue
		}
		closed = append(closed, c)
	}
	for _, c := range closed {
		metrics.PositionClosed(string(c.Reason))
		logger.Infof("position closed agent=%s market=%s side=%s reason=%s pnl=%.2f",
			c.AgentID, c.Position.MarketID, c.Position.Side, c.Reason, c.RealizedPnL)
	}
	return closed
}
