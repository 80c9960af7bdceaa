package scoring

import (
	"agentdesk/internal/market"
	"agentdesk/internal/profile"
)

// FilterCandidates 返回满足 agent 成交量/流动性下限的市场。
// 关注领域不在此处过滤，只在评分阶段作为加成。
func FilterCandidates(p profile.AgentProfile, markets []market.Market) []market.Market {
	out := make([]market.Market, 0, len(markets))
	for _, m := range markets {
		if m.Volume24h < p.MinVolume || m.Liquidity < p.MinLiquidity {
			continue
		}
		if !(m.Probability >= 0 && m.Probability <= 1) {
			continue
		}
		out = append(out, m)
	}
	return out
}
