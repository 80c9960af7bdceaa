package scoring

import (
	"math"
	"sort"
	"time"

	"agentdesk/internal/market"
	"agentdesk/internal/profile"

	"github.com/markcheno/go-talib"
)

const (
	// CategoryFocusBonus 市场分类命中 agent 关注领域时的乘数。
	CategoryFocusBonus = 1.25
	// movementSaturation 概率变动达到该值时价格变动子分为 1。
	movementSaturation = 0.20
	// movementLookback 价格历史中用于计算动量的最大点数。
	movementLookback = 24
	// AdaptiveBoost / AdaptivePenalty 为自适应评分下按分类盈亏给出的乘数。
	AdaptiveBoost   = 1.10
	AdaptivePenalty = 0.90
)

// Components 记录各子评分（均在 [0,1]）及乘数，便于解释。
type Components struct {
	Volume        float64 `json:"volume"`
	Liquidity     float64 `json:"liquidity"`
	PriceMovement float64 `json:"price_movement"`
	News          float64 `json:"news"`
	Probability   float64 `json:"probability"`
	FocusBonus    float64 `json:"focus_bonus"`
	Adaptive      float64 `json:"adaptive"`
}

// ScoredMarket 是某 agent 视角下的评分结果，每个周期重新计算。
type ScoredMarket struct {
	Market       market.Market        `json:"market"`
	AgentID      string               `json:"agent_id"`
	Score        float64              `json:"score"`
	Components   Components           `json:"components"`
	RelevantNews []market.NewsArticle `json:"relevant_news,omitempty"`
}

// Scorer 计算加权评分。Adjustments 为分类 -> 乘数（自适应评分），为空时不调整。
type Scorer struct {
	Adjustments map[string]float64
}

// Score 对固定输入是纯函数。
func (s Scorer) Score(m market.Market, news []market.NewsArticle, p profile.AgentProfile, now time.Time) ScoredMarket {
	relevance, relevant := NewsRelevance(m, news, now)
	c := Components{
		Volume:        logScaled(m.Volume24h, p.MinVolume),
		Liquidity:     logScaled(m.Liquidity, p.MinLiquidity),
		PriceMovement: priceMovement(m),
		News:          relevance,
		Probability:   clamp01(math.Abs(m.Probability-0.5) * 2),
		FocusBonus:    1,
		Adaptive:      1,
	}
	if p.FocusMatches(m.Category) {
		c.FocusBonus = CategoryFocusBonus
	}
	if adj, ok := s.Adjustments[m.Category]; ok && adj > 0 {
		c.Adaptive = adj
	}
	w := p.Weights
	weighted := w.Volume*c.Volume +
		w.Liquidity*c.Liquidity +
		w.PriceMovement*c.PriceMovement +
		w.News*c.News +
		w.Probability*c.Probability
	score := 0.0
	if sum := w.Sum(); sum > 0 {
		score = 100 * weighted / sum * c.FocusBonus * c.Adaptive
	}
	return ScoredMarket{
		Market:       m,
		AgentID:      p.ID,
		Score:        score,
		Components:   c,
		RelevantNews: relevant,
	}
}

// ScoreAll 对候选集评分并排序。
func (s Scorer) ScoreAll(p profile.AgentProfile, candidates []market.Market, news []market.NewsArticle, now time.Time) []ScoredMarket {
	out := make([]ScoredMarket, 0, len(candidates))
	for _, m := range candidates {
		out = append(out, s.Score(m, news, p, now))
	}
	Rank(out)
	return out
}

// Rank 按分数降序排列，分数相同按 market id 升序。
func Rank(scored []ScoredMarket) {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Market.ID < scored[j].Market.ID
	})
}

// logScaled 以 agent 下限为基准的对数缩放：log10(1+x/min)/2，两个数量级饱和。
func logScaled(value, floor float64) float64 {
	if value <= 0 {
		return 0
	}
	base := math.Max(floor, 1)
	return clamp01(math.Log10(1+value/base) / 2)
}

// priceMovement 取价格历史的动量绝对值；历史不足时退回 24h 变化量。
func priceMovement(m market.Market) float64 {
	delta := m.PriceChange24h
	if n := len(m.PriceHistory); n >= 2 {
		period := n - 1
		if period > movementLookback {
			period = movementLookback
		}
		mom := talib.Mom(m.PriceHistory, period)
		delta = mom[n-1]
	}
	return clamp01(math.Abs(delta) / movementSaturation)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
