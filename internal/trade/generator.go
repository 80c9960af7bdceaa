package trade

import (
	"context"
	"time"

	"agentdesk/internal/decision"
	"agentdesk/internal/logger"
	"agentdesk/internal/market"
	"agentdesk/internal/metrics"
	"agentdesk/internal/profile"
	"agentdesk/internal/scoring"
	"agentdesk/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Generator 负责 过滤 -> 评分 -> 排名 -> 逐个询问 oracle -> 构造交易。
type Generator struct {
	Oracle       decision.Oracle
	BufferFactor int
	// NewID 生成交易 id，默认 uuid。
	NewID func() string
}

func NewGenerator(oracle decision.Oracle) *Generator {
	return &Generator{Oracle: oracle, BufferFactor: DefaultBufferFactor}
}

// Options 是单次生成的可选输入。
type Options struct {
	// Adjustments 为自适应评分的分类乘数，nil 表示不调整。
	Adjustments map[string]float64
	// MinScore 低于该分数的候选不询问 oracle，0 表示不限。
	MinScore float64
}

// Generate 为 agent 生成至多 MaxTrades 笔交易，输出顺序即接受顺序。
// 单个候选的 oracle 失败只记录日志并跳过；只有 ctx 取消会返回错误。
func (g *Generator) Generate(ctx context.Context, p profile.AgentProfile, markets []market.Market, news []market.NewsArticle, now time.Time, opts Options) ([]types.AgentTrade, error) {
	log := logger.Agent(p.ID)
	candidates := scoring.FilterCandidates(p, markets)
	if len(candidates) == 0 {
		log.Debug("no candidates", "markets", len(markets))
		return []types.AgentTrade{}, nil
	}
	ranked := scoring.Scorer{Adjustments: opts.Adjustments}.ScoreAll(p, candidates, news, now)
	if opts.MinScore > 0 {
		ranked = aboveScore(ranked, opts.MinScore)
	}
	it := NewCandidateIterator(ranked, p.MaxTrades, g.BufferFactor)

	trades := make([]types.AgentTrade, 0, p.MaxTrades)
	for !it.Done() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sm, _ := it.Next()
		d, err := g.Oracle.Decide(ctx, decision.Request{
			Profile: p,
			Market:  sm,
			News:    sm.RelevantNews,
			Now:     now,
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Warnf("oracle failed, skipping (agent=%s market=%s): %v", p.ID, sm.Market.ID, err)
			continue
		}
		if d == nil || d.Confidence < p.MinConfidence {
			log.Debug("no trade", "market", sm.Market.ID, "score", sm.Score)
			continue
		}
		trades = append(trades, g.build(p, sm, d, now))
		it.Accept()
	}
	log.Info("generation done",
		"candidates", len(candidates),
		"buffered", it.Buffered(),
		"accepted", it.Accepted())
	metrics.TradesGenerated(p.ID, len(trades))
	return trades, nil
}

// aboveScore 保留分数不低于 floor 的候选，保持排名顺序。
func aboveScore(ranked []scoring.ScoredMarket, floor float64) []scoring.ScoredMarket {
	out := make([]scoring.ScoredMarket, 0, len(ranked))
	for _, sm := range ranked {
		if sm.Score >= floor {
			out = append(out, sm)
		}
	}
	return out
}

func (g *Generator) build(p profile.AgentProfile, sm scoring.ScoredMarket, d *decision.Decision, now time.Time) types.AgentTrade {
	id := uuid.NewString()
	if g.NewID != nil {
		id = g.NewID()
	}
	return types.AgentTrade{
		ID:               id,
		AgentID:          p.ID,
		MarketID:         sm.Market.ID,
		Question:         sm.Market.Question,
		Category:         sm.Market.Category,
		Side:             d.Side,
		Confidence:       d.Confidence,
		InvestmentUSD:    Investment(p.MaxPositionUSD, d.Confidence),
		EntryProbability: sm.Market.Probability,
		Score:            sm.Score,
		Status:           types.TradeOpen,
		Reasoning:        d.Reasoning,
		CreatedAt:        now,
	}
}

// Investment = maxPosition × confidence，按分取整。
func Investment(maxPositionUSD, confidence float64) float64 {
	v, _ := decimal.NewFromFloat(maxPositionUSD).
		Mul(decimal.NewFromFloat(confidence)).
		Round(2).
		Float64()
	return v
}
