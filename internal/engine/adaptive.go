package engine

import "agentdesk/internal/scoring"

// AdaptiveAdjustments 按分类已实现盈亏给出评分乘数：盈利加成，亏损降权，持平不调整。
func AdaptiveAdjustments(categoryPnL map[string]float64) map[string]float64 {
	if len(categoryPnL) == 0 {
		return nil
	}
	out := make(map[string]float64, len(categoryPnL))
	for cat, pnl := range categoryPnL {
		switch {
		case pnl > 0:
			out[cat] = scoring.AdaptiveBoost
		case pnl < 0:
			out[cat] = scoring.AdaptivePenalty
		}
	}
	return out
}
