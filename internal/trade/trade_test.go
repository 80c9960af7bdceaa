package trade

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"agentdesk/internal/decision"
	"agentdesk/internal/market"
	"agentdesk/internal/profile"
	"agentdesk/internal/scoring"
	"agentdesk/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type MockOracle struct {
	mock.Mock
}

func (m *MockOracle) Decide(ctx context.Context, req decision.Request) (*decision.Decision, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*decision.Decision), args.Error(1)
}

func forMarket(id string) any {
	return mock.MatchedBy(func(req decision.Request) bool { return req.MarketID() == id })
}

func testProfile(maxTrades int) profile.AgentProfile {
	return profile.AgentProfile{
		ID:             "GPT",
		DisplayName:    "GPT",
		Risk:           profile.RiskMedium,
		MinVolume:      50000,
		MinLiquidity:   10000,
		MaxTrades:      maxTrades,
		Weights:        profile.Weights{Volume: 1, Liquidity: 1, PriceMovement: 1, News: 1, Probability: 1},
		MinConfidence:  0.6,
		MaxPositionUSD: 500,
	}
}

// 成交量递减，保证排名为 m-1 > m-2 > ...
func rankedMarkets(n int) []market.Market {
	out := make([]market.Market, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, market.Market{
			ID:          fmt.Sprintf("m-%d", i),
			Question:    fmt.Sprintf("Question %d?", i),
			Category:    market.CategoryOther,
			Probability: 0.6,
			Volume24h:   float64(2_000_000 / i),
			Liquidity:   50000,
		})
	}
	return out
}

func yes(conf float64) *decision.Decision {
	return &decision.Decision{Side: types.SideYes, Confidence: conf, Reasoning: "ok"}
}

func TestGenerate_LiquidityScenario(t *testing.T) {
	markets := []market.Market{
		{ID: "a", Question: "A?", Probability: 0.7, Volume24h: 120000, Liquidity: 30000},
		{ID: "b", Question: "B?", Probability: 0.4, Volume24h: 80000, Liquidity: 12000},
		{ID: "c", Question: "C?", Probability: 0.5, Volume24h: 900000, Liquidity: 5000},
	}
	oracle := new(MockOracle)
	oracle.On("Decide", mock.Anything, mock.Anything).Return(yes(0.8), nil)

	trades, err := NewGenerator(oracle).Generate(context.Background(), testProfile(2), markets, nil, now, Options{})
	require.NoError(t, err)
	require.Len(t, trades, 2)
	for _, tr := range trades {
		assert.NotEqual(t, "c", tr.MarketID)
		assert.Equal(t, types.TradeOpen, tr.Status)
		assert.Equal(t, 400.0, tr.InvestmentUSD)
		assert.NotEmpty(t, tr.ID)
	}
	oracle.AssertNotCalled(t, "Decide", mock.Anything, forMarket("c"))
}

func TestGenerate_SkipsFailuresAndNoTrade(t *testing.T) {
	oracle := new(MockOracle)
	oracle.On("Decide", mock.Anything, forMarket("m-1")).Return(nil, errors.New("timeout"))
	oracle.On("Decide", mock.Anything, forMarket("m-2")).Return(nil, nil)
	oracle.On("Decide", mock.Anything, forMarket("m-3")).Return(yes(0.9), nil)
	oracle.On("Decide", mock.Anything, forMarket("m-4")).Return(&decision.Decision{Side: types.SideNo, Confidence: 0.7}, nil)

	g := NewGenerator(oracle)
	g.NewID = func() string { return "fixed" }
	trades, err := g.Generate(context.Background(), testProfile(2), rankedMarkets(6), nil, now, Options{})
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "m-3", trades[0].MarketID)
	assert.Equal(t, "m-4", trades[1].MarketID)
	assert.Equal(t, types.SideNo, trades[1].Side)
	assert.Equal(t, 0.6, trades[1].EntryProbability)
	oracle.AssertNumberOfCalls(t, "Decide", 4)
}

func TestGenerate_StopsAtMaxTrades(t *testing.T) {
	oracle := new(MockOracle)
	oracle.On("Decide", mock.Anything, mock.Anything).Return(yes(0.95), nil)

	trades, err := NewGenerator(oracle).Generate(context.Background(), testProfile(3), rankedMarkets(10), nil, now, Options{})
	require.NoError(t, err)
	assert.Len(t, trades, 3)
	oracle.AssertNumberOfCalls(t, "Decide", 3)
	assert.Equal(t, []string{"m-1", "m-2", "m-3"}, []string{trades[0].MarketID, trades[1].MarketID, trades[2].MarketID})
}

func TestGenerate_BufferBoundsOracleCalls(t *testing.T) {
	oracle := new(MockOracle)
	oracle.On("Decide", mock.Anything, mock.Anything).Return(nil, nil)

	g := NewGenerator(oracle)
	g.BufferFactor = 3
	trades, err := g.Generate(context.Background(), testProfile(2), rankedMarkets(10), nil, now, Options{})
	require.NoError(t, err)
	assert.Empty(t, trades)
	oracle.AssertNumberOfCalls(t, "Decide", 6)
}

func TestGenerate_MinScoreSkipsWeakCandidates(t *testing.T) {
	markets := []market.Market{
		{ID: "strong", Question: "Strong?", Probability: 0.6, Volume24h: 2_000_000, Liquidity: 50000},
		{ID: "weak", Question: "Weak?", Probability: 0.5, Volume24h: 50000, Liquidity: 10000},
	}

	t.Run("floor applied", func(t *testing.T) {
		oracle := new(MockOracle)
		oracle.On("Decide", mock.Anything, forMarket("strong")).Return(yes(0.8), nil)
		trades, err := NewGenerator(oracle).Generate(context.Background(), testProfile(2), markets, nil, now, Options{MinScore: 20})
		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.Equal(t, "strong", trades[0].MarketID)
		assert.GreaterOrEqual(t, trades[0].Score, 20.0)
		oracle.AssertNotCalled(t, "Decide", mock.Anything, forMarket("weak"))
	})

	t.Run("no floor", func(t *testing.T) {
		oracle := new(MockOracle)
		oracle.On("Decide", mock.Anything, mock.Anything).Return(yes(0.8), nil)
		trades, err := NewGenerator(oracle).Generate(context.Background(), testProfile(2), markets, nil, now, Options{})
		require.NoError(t, err)
		require.Len(t, trades, 2)
		assert.Less(t, trades[1].Score, 20.0)
	})
}

func TestGenerate_BelowConfidenceFloor(t *testing.T) {
	oracle := decision.OracleFunc(func(context.Context, decision.Request) (*decision.Decision, error) {
		return yes(0.5), nil
	})
	trades, err := NewGenerator(oracle).Generate(context.Background(), testProfile(2), rankedMarkets(3), nil, now, Options{})
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestGenerate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	oracle := decision.OracleFunc(func(ctx context.Context, _ decision.Request) (*decision.Decision, error) {
		cancel()
		return nil, ctx.Err()
	})
	trades, err := NewGenerator(oracle).Generate(ctx, testProfile(2), rankedMarkets(3), nil, now, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, trades)
}

func TestGenerate_NoCandidates(t *testing.T) {
	oracle := new(MockOracle)
	trades, err := NewGenerator(oracle).Generate(context.Background(), testProfile(2), nil, nil, now, Options{})
	require.NoError(t, err)
	assert.NotNil(t, trades)
	assert.Empty(t, trades)
	oracle.AssertNotCalled(t, "Decide", mock.Anything, mock.Anything)
}

func TestCandidateIterator(t *testing.T) {
	ranked := make([]scoring.ScoredMarket, 5)
	it := NewCandidateIterator(ranked, 2, 2)
	assert.Equal(t, 4, it.Buffered())
	seen := 0
	for !it.Done() {
		_, ok := it.Next()
		require.True(t, ok)
		seen++
		if seen%2 == 0 {
			it.Accept()
		}
	}
	assert.Equal(t, 4, seen)
	assert.Equal(t, 2, it.Accepted())

	it = NewCandidateIterator(ranked, 0, 2)
	assert.True(t, it.Done())
	_, ok := it.Next()
	assert.False(t, ok)
}

func TestInvestment(t *testing.T) {
	assert.Equal(t, 333.33, Investment(500, 0.66666))
	assert.Equal(t, 0.0, Investment(0, 0.9))
}

func TestCache(t *testing.T) {
	clock := now
	c := NewCache(0, 0)
	c.nowFn = func() time.Time { return clock }
	trades := []types.AgentTrade{{ID: "t1", AgentID: "GPT", MarketID: "b"}}
	c.Set("GPT", trades, []string{"b", "a", "c"})

	t.Run("same set in any order hits", func(t *testing.T) {
		got := c.Get("GPT", []string{"a", "b", "c"})
		assert.Equal(t, trades, got)
	})
	t.Run("other agent misses", func(t *testing.T) {
		assert.Nil(t, c.Get("GROK", []string{"a", "b", "c"}))
	})
	t.Run("different id same size evicts", func(t *testing.T) {
		assert.Nil(t, c.Get("GPT", []string{"a", "b", "d"}))
		assert.Nil(t, c.Get("GPT", []string{"a", "b", "c"}), "entry was evicted")
	})
	t.Run("different count misses", func(t *testing.T) {
		c.Set("GPT", trades, []string{"a", "b"})
		assert.Nil(t, c.Get("GPT", []string{"a", "b", "c"}))
	})
	t.Run("expires after ttl", func(t *testing.T) {
		c.Set("GPT", trades, []string{"a"})
		clock = clock.Add(AgentTradeCacheTTL - time.Second)
		assert.NotNil(t, c.Get("GPT", []string{"a"}))
		clock = clock.Add(time.Second)
		assert.Nil(t, c.Get("GPT", []string{"a"}))
	})
	t.Run("quick lookup ignores market set", func(t *testing.T) {
		c.Set("GPT", trades, []string{"a"})
		clock = clock.Add(AgentTradeCacheTTL + time.Second)
		assert.Equal(t, trades, c.GetQuick("GPT"))
		clock = clock.Add(AgentTradeCacheRelaxedTTL)
		assert.Nil(t, c.GetQuick("GPT"))
	})
	t.Run("empty list is a hit", func(t *testing.T) {
		c.Set("QWEN", nil, []string{"a"})
		got := c.Get("QWEN", []string{"a"})
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}
