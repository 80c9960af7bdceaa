package decision

import (
	"context"
	"fmt"
	"math"

	"agentdesk/internal/types"
)

const (
	// momentumThreshold 24h/历史变动超过该值时顺势，否则押注当前更可能的一方。
	momentumThreshold = 0.02
	maxHeuristicConf  = 0.95
)

// HeuristicOracle 是 SIMULATION 模式下的确定性 oracle，不访问外部服务。
type HeuristicOracle struct{}

func (HeuristicOracle) Decide(ctx context.Context, req Request) (*Decision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := req.Market.Market
	c := req.Market.Components
	delta := m.PriceChange24h
	if n := len(m.PriceHistory); n >= 2 {
		delta = m.PriceHistory[n-1] - m.PriceHistory[0]
	}
	side := types.SideYes
	basis := "favourite"
	switch {
	case delta >= momentumThreshold:
		basis = "upward momentum"
	case delta <= -momentumThreshold:
		side, basis = types.SideNo, "downward momentum"
	case m.Probability < 0.5:
		side = types.SideNo
	}
	conf := 0.45 + 0.35*c.Probability + 0.20*c.News + 0.10*c.PriceMovement
	conf = math.Round(math.Min(conf, maxHeuristicConf)*1000) / 1000
	d := &Decision{
		Side:       side,
		Confidence: conf,
		Reasoning: fmt.Sprintf("%s on %q at %.0f%% YES, score %.1f, %d relevant articles",
			basis, m.Question, m.Probability*100, req.Market.Score, len(req.News)),
		Source: "heuristic",
	}
	return acceptable(d, req.Profile), nil
}
