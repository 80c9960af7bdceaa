package lifecycle

import (
	"time"

	"agentdesk/internal/market"
	"agentdesk/internal/types"

	"github.com/shopspring/decimal"
)

// 阈值均为 YES 概率；比较按十进制精确进行，0.80 恰好触发止盈。
var (
	TakeProfitYes = decimal.RequireFromString("0.80")
	TakeProfitNo  = decimal.RequireFromString("0.20")
	StopLossYes   = decimal.RequireFromString("0.30")
	StopLossNo    = decimal.RequireFromString("0.70")

	FlipMinConfidence = decimal.RequireFromString("0.70")
	FlipMinMove       = decimal.RequireFromString("0.10")
)

const (
	MaxHoldDuration = 30 * 24 * time.Hour
	ScoreDecayFloor = 20.0
)

func prob(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// ShouldClosePosition 依次检查止盈、止损、持有时长与评分衰减。score 为 nil 时跳过评分衰减。
func ShouldClosePosition(pos types.Position, m market.Market, score *float64, now time.Time) (types.CloseReason, bool) {
	p := prob(m.Probability)
	switch pos.Side {
	case types.SideYes:
		if p.GreaterThanOrEqual(TakeProfitYes) {
			return types.CloseTakeProfit, true
		}
		if p.LessThanOrEqual(StopLossYes) {
			return types.CloseStopLoss, true
		}
	case types.SideNo:
		if p.LessThanOrEqual(TakeProfitNo) {
			return types.CloseTakeProfit, true
		}
		if p.GreaterThanOrEqual(StopLossNo) {
			return types.CloseStopLoss, true
		}
	}
	if !pos.OpenedAt.IsZero() && now.Sub(pos.OpenedAt) >= MaxHoldDuration {
		return types.CloseTimeLimit, true
	}
	if score != nil && *score < ScoreDecayFloor {
		return types.CloseScoreDecay, true
	}
	return "", false
}

// ShouldFlipPosition 只给出建议：持仓亏损、反向置信度 > 0.70 且概率较入场移动至少 0.10。
// 执行翻转（先平仓再开新仓）由调用方负责。
func ShouldFlipPosition(pos types.Position, m market.Market, newConfidence float64) bool {
	entry, current := prob(pos.EntryProbability), prob(m.Probability)
	var losing bool
	switch pos.Side {
	case types.SideYes:
		losing = current.LessThan(entry)
	case types.SideNo:
		losing = current.GreaterThan(entry)
	}
	if !losing {
		return false
	}
	if !prob(newConfidence).GreaterThan(FlipMinConfidence) {
		return false
	}
	return current.Sub(entry).Abs().GreaterThanOrEqual(FlipMinMove)
}

// CalculateRealizedPnL 线性二元收益：YES 为 (exit-entry)×size，NO 为 (entry-exit)×size。
func CalculateRealizedPnL(pos types.Position, exitProbability float64) float64 {
	delta := prob(exitProbability).Sub(prob(pos.EntryProbability))
	if pos.Side == types.SideNo {
		delta = delta.Neg()
	}
	return delta.Mul(decimal.NewFromFloat(pos.SizeUSD)).InexactFloat64()
}

// ClosePosition 按退出概率构造平仓记录。
func ClosePosition(agentID string, pos types.Position, exitProbability float64, reason types.CloseReason, at time.Time) types.ClosedPosition {
	return types.ClosedPosition{
		AgentID:         agentID,
		Position:        pos,
		ExitProbability: exitProbability,
		RealizedPnL:     CalculateRealizedPnL(pos, exitProbability),
		Reason:          reason,
		ClosedAt:        at,
	}
}
