package lifecycle

import (
	"testing"
	"time"

	"agentdesk/internal/market"
	"agentdesk/internal/portfolio"
	"agentdesk/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func position(side types.Side, entry float64) types.Position {
	return types.Position{
		TradeID:          "t-" + string(side),
		MarketID:         "m",
		Side:             side,
		EntryProbability: entry,
		SizeUSD:          100,
		OpenedAt:         now.Add(-time.Hour),
		LastProbability:  entry,
	}
}

func at(p float64) market.Market { return market.Market{ID: "m", Probability: p} }

func TestShouldClosePosition_Boundaries(t *testing.T) {
	cases := []struct {
		name   string
		side   types.Side
		prob   float64
		reason types.CloseReason
		close  bool
	}{
		{"yes take profit at 0.80", types.SideYes, 0.80, types.CloseTakeProfit, true},
		{"yes holds at 0.79", types.SideYes, 0.79, "", false},
		{"yes stop loss at 0.30", types.SideYes, 0.30, types.CloseStopLoss, true},
		{"yes holds at 0.31", types.SideYes, 0.31, "", false},
		{"no take profit at 0.20", types.SideNo, 0.20, types.CloseTakeProfit, true},
		{"no holds at 0.21", types.SideNo, 0.21, "", false},
		{"no stop loss at 0.70", types.SideNo, 0.70, types.CloseStopLoss, true},
		{"no holds at 0.69", types.SideNo, 0.69, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reason, ok := ShouldClosePosition(position(tc.side, 0.5), at(tc.prob), nil, now)
			assert.Equal(t, tc.close, ok)
			assert.Equal(t, tc.reason, reason)
		})
	}
}

func TestShouldClosePosition_TimeAndScore(t *testing.T) {
	pos := position(types.SideYes, 0.5)
	pos.OpenedAt = now.Add(-MaxHoldDuration)
	reason, ok := ShouldClosePosition(pos, at(0.5), nil, now)
	assert.True(t, ok)
	assert.Equal(t, types.CloseTimeLimit, reason)

	pos.OpenedAt = now.Add(-MaxHoldDuration + time.Second)
	_, ok = ShouldClosePosition(pos, at(0.5), nil, now)
	assert.False(t, ok)

	low, floor := 19.9, ScoreDecayFloor
	reason, ok = ShouldClosePosition(pos, at(0.5), &low, now)
	assert.True(t, ok)
	assert.Equal(t, types.CloseScoreDecay, reason)
	_, ok = ShouldClosePosition(pos, at(0.5), &floor, now)
	assert.False(t, ok)
}

func TestShouldFlipPosition(t *testing.T) {
	yes := position(types.SideYes, 0.55)
	assert.True(t, ShouldFlipPosition(yes, at(0.45), 0.75))
	assert.False(t, ShouldFlipPosition(yes, at(0.45), 0.70), "confidence must exceed 0.70")
	assert.False(t, ShouldFlipPosition(yes, at(0.46), 0.90), "moved less than 0.10")
	assert.False(t, ShouldFlipPosition(yes, at(0.70), 0.90), "winning position")

	no := position(types.SideNo, 0.40)
	assert.True(t, ShouldFlipPosition(no, at(0.50), 0.71))
	assert.False(t, ShouldFlipPosition(no, at(0.30), 0.95))
}

func TestCalculateRealizedPnL(t *testing.T) {
	assert.Equal(t, 30.0, CalculateRealizedPnL(position(types.SideYes, 0.40), 0.70))
	assert.Equal(t, 30.0, CalculateRealizedPnL(position(types.SideNo, 0.60), 0.30))
	assert.Equal(t, -10.0, CalculateRealizedPnL(position(types.SideYes, 0.40), 0.30))
	assert.Equal(t, 0.0, CalculateRealizedPnL(position(types.SideNo, 0.55), 0.55))
}

func openTrade(t *testing.T, p *portfolio.Portfolio, id, marketID string, side types.Side, entry, size float64) {
	t.Helper()
	_, err := p.Open(types.AgentTrade{
		ID: id, AgentID: p.AgentID, MarketID: marketID, Side: side,
		EntryProbability: entry, InvestmentUSD: size, CreatedAt: now.Add(-time.Hour),
	})
	require.NoError(t, err)
}

func TestProcessPositionLifecycle(t *testing.T) {
	p := portfolio.New("GPT", 10000)
	openTrade(t, p, "t1", "gone", types.SideYes, 0.40, 100)
	openTrade(t, p, "t2", "tp", types.SideYes, 0.40, 100)
	openTrade(t, p, "t3", "hold", types.SideNo, 0.50, 200)
	require.NoError(t, p.MarkToMarket("gone", 0.45, 5))

	markets := market.Index([]market.Market{
		{ID: "tp", Probability: 0.80},
		{ID: "hold", Probability: 0.45},
	})
	closed := ProcessPositionLifecycle(p, markets, nil, now)
	require.Len(t, closed, 2)

	byMarket := map[string]types.ClosedPosition{}
	for _, c := range closed {
		byMarket[c.Position.MarketID] = c
	}
	assert.Equal(t, types.CloseDelisted, byMarket["gone"].Reason)
	assert.Equal(t, 5.0, byMarket["gone"].RealizedPnL)
	assert.Equal(t, 0.45, byMarket["gone"].ExitProbability)
	assert.Equal(t, types.CloseTakeProfit, byMarket["tp"].Reason)
	assert.InDelta(t, 40.0, byMarket["tp"].RealizedPnL, 1e-9)

	assert.Equal(t, 1, p.OpenCount())
	hold, ok := p.Position("hold")
	require.True(t, ok)
	assert.Equal(t, 0.45, hold.LastProbability)
	assert.InDelta(t, 10.0, hold.UnrealizedPnL, 1e-9)
	assert.InDelta(t, 45.0, p.RealizedPnL, 1e-9)

	tr, ok := p.Trade("t1")
	require.True(t, ok)
	assert.Equal(t, types.TradeClosed, tr.Status)
	require.NotNil(t, tr.RealizedPnL)
	assert.Equal(t, 5.0, *tr.RealizedPnL)
}

func TestProcessPositionLifecycle_ScoreDecay(t *testing.T) {
	p := portfolio.New("GPT", 10000)
	openTrade(t, p, "t1", "a", types.SideYes, 0.50, 100)
	openTrade(t, p, "t2", "b", types.SideYes, 0.50, 100)
	markets := market.Index([]market.Market{{ID: "a", Probability: 0.5}, {ID: "b", Probability: 0.5}})

	closed := ProcessPositionLifecycle(p, markets, map[string]float64{"a": 12, "b": 40}, now)
	require.Len(t, closed, 1)
	assert.Equal(t, "a", closed[0].Position.MarketID)
	assert.Equal(t, types.CloseScoreDecay, closed[0].Reason)
	assert.Equal(t, 0.0, closed[0].RealizedPnL)
}
