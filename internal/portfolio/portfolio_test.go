package portfolio

import (
	"sync"
	"testing"
	"time"

	"agentdesk/internal/profile"
	"agentdesk/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func trade(id, agent, marketID string, side types.Side, size float64) types.AgentTrade {
	return types.AgentTrade{
		ID: id, AgentID: agent, MarketID: marketID, Category: "crypto", Side: side,
		EntryProbability: 0.5, InvestmentUSD: size, CreatedAt: now,
	}
}

func closeAt(p *Portfolio, marketID string, pnl float64) error {
	pos, _ := p.Position(marketID)
	return p.Close(types.ClosedPosition{
		AgentID: p.AgentID, Position: pos, ExitProbability: 0.6, RealizedPnL: pnl,
		Reason: types.CloseTakeProfit, ClosedAt: now,
	})
}

func TestPortfolio_OpenRules(t *testing.T) {
	p := New("GPT", 1000)
	pos, err := p.Open(trade("t1", "GPT", "m1", types.SideYes, 600))
	require.NoError(t, err)
	assert.Equal(t, 0.5, pos.LastProbability)

	_, err = p.Open(trade("t2", "GPT", "m1", types.SideNo, 10))
	assert.ErrorIs(t, err, ErrPositionExists)

	_, err = p.Open(trade("t3", "GPT", "m2", types.SideYes, 400.01))
	assert.ErrorIs(t, err, ErrInsufficientCash)

	_, err = p.Open(trade("t4", "GROK", "m3", types.SideYes, 10))
	assert.ErrorIs(t, err, ErrInvalidTrade)

	assert.Equal(t, 1, p.OpenCount())
	assert.Len(t, p.Trades(), 1)
	assert.Equal(t, 600.0, p.Exposure())
	assert.Equal(t, 400.0, p.Cash())
}

func TestPortfolio_CloseAndCapitalInvariant(t *testing.T) {
	p := New("GPT", 1000)
	_, err := p.Open(trade("t1", "GPT", "m1", types.SideYes, 100))
	require.NoError(t, err)
	_, err = p.Open(trade("t2", "GPT", "m2", types.SideNo, 200))
	require.NoError(t, err)

	require.NoError(t, closeAt(p, "m1", 30.1))
	require.NoError(t, closeAt(p, "m2", -12.2))
	assert.Equal(t, 0, p.OpenCount())
	assert.Equal(t, 17.9, p.RealizedPnL)
	assert.Equal(t, 1017.9, p.CurrentCapital())
	assert.Equal(t, p.CurrentCapital(), p.Cash())

	assert.ErrorIs(t, closeAt(p, "m1", 1), ErrNoPosition)

	tr, ok := p.Trade("t2")
	require.True(t, ok)
	assert.Equal(t, types.TradeClosed, tr.Status)
	assert.Equal(t, types.CloseTakeProfit, tr.CloseReason)
	assert.Equal(t, map[string]float64{"crypto": 17.9}, p.CategoryPnL())
}

func TestPortfolio_ForceClose(t *testing.T) {
	p := New("GPT", 1000)
	_, err := p.Open(trade("t1", "GPT", "m1", types.SideYes, 100))
	require.NoError(t, err)
	require.NoError(t, p.MarkToMarket("m1", 0.42, -8))

	c, err := p.ForceClose("m1", now)
	require.NoError(t, err)
	assert.Equal(t, types.CloseDelisted, c.Reason)
	assert.Equal(t, -8.0, c.RealizedPnL)
	assert.Equal(t, 0.42, c.ExitProbability)
	assert.Equal(t, -8.0, p.RealizedPnL)

	_, err = p.ForceClose("m1", now)
	assert.ErrorIs(t, err, ErrNoPosition)
}

func TestPortfolio_Restore(t *testing.T) {
	pnl := 25.0
	open := trade("t1", "GPT", "m1", types.SideYes, 100)
	open.Status = types.TradeOpen
	closed := trade("t2", "GPT", "m2", types.SideNo, 50)
	closed.Status = types.TradeClosed
	closed.RealizedPnL = &pnl
	other := trade("t3", "GROK", "m3", types.SideYes, 10)
	other.Status = types.TradeOpen

	p := New("GPT", 1000)
	assert.Empty(t, p.Restore([]types.AgentTrade{open, closed, other, open}))
	assert.Equal(t, 1, p.OpenCount())
	assert.Equal(t, 25.0, p.RealizedPnL)
	assert.Len(t, p.Trades(), 2)
}

func TestPortfolio_RestoreKeepsMark(t *testing.T) {
	prob, unrealized := 0.35, -15.0
	open := trade("t1", "GPT", "m1", types.SideYes, 100)
	open.Status = types.TradeOpen
	open.LastProbability = &prob
	open.UnrealizedPnL = &unrealized

	p := New("GPT", 1000)
	require.Empty(t, p.Restore([]types.AgentTrade{open}))
	pos, ok := p.Position("m1")
	require.True(t, ok)
	assert.Equal(t, 0.35, pos.LastProbability)
	assert.Equal(t, -15.0, pos.UnrealizedPnL)

	c, err := p.ForceClose("m1", now)
	require.NoError(t, err)
	assert.Equal(t, -15.0, c.RealizedPnL)
	assert.Equal(t, 0.35, c.ExitProbability)
}

func TestPortfolio_MarkToMarketUpdatesTrade(t *testing.T) {
	p := New("GPT", 1000)
	_, err := p.Open(trade("t1", "GPT", "m1", types.SideYes, 100))
	require.NoError(t, err)
	require.NoError(t, p.MarkToMarket("m1", 0.7, 20))

	tr, ok := p.Trade("t1")
	require.True(t, ok)
	require.NotNil(t, tr.LastProbability)
	assert.Equal(t, 0.7, *tr.LastProbability)
	require.NotNil(t, tr.UnrealizedPnL)
	assert.Equal(t, 20.0, *tr.UnrealizedPnL)
}

func TestPortfolio_RestoreSupersededOpen(t *testing.T) {
	older := trade("old", "GPT", "m1", types.SideYes, 100)
	older.Status = types.TradeOpen
	newer := trade("new", "GPT", "m1", types.SideNo, 80)
	newer.Status = types.TradeOpen
	newer.EntryProbability = 0.4
	newer.CreatedAt = now.Add(time.Hour)

	p := New("GPT", 1000)
	stale := p.Restore([]types.AgentTrade{older, newer})
	require.Len(t, stale, 1)
	assert.Equal(t, "old", stale[0].Position.TradeID)
	assert.Equal(t, "new", stale[0].By.ID)

	pos, ok := p.Position("m1")
	require.True(t, ok)
	assert.Equal(t, "new", pos.TradeID)
	assert.Equal(t, 80.0, p.Exposure())

	t.Run("settle closes the superseded trade", func(t *testing.T) {
		c := types.ClosedPosition{AgentID: "GPT", Position: stale[0].Position, ExitProbability: 0.4,
			RealizedPnL: -10, Reason: types.CloseFlip, ClosedAt: newer.CreatedAt}
		require.NoError(t, p.Settle(c))
		assert.Equal(t, -10.0, p.RealizedPnL)
		tr, ok := p.Trade("old")
		require.True(t, ok)
		assert.Equal(t, types.TradeClosed, tr.Status)
		assert.Equal(t, 1, p.OpenCount())

		assert.ErrorIs(t, p.Settle(c), ErrNoPosition, "already settled")
	})

	t.Run("settle refuses a held position", func(t *testing.T) {
		assert.ErrorIs(t, p.Settle(types.ClosedPosition{Position: pos}), ErrInvalidTrade)
	})
}

func TestLedger(t *testing.T) {
	l := NewLedger(0, []string{"GPT", "GROK", "GPT"})
	assert.Equal(t, DefaultStartingCapital, l.StartingCapital())
	assert.Equal(t, []string{"GPT", "GROK"}, l.AgentIDs())

	err := l.With("NOPE", func(*Portfolio) error { return nil })
	assert.ErrorIs(t, err, profile.ErrUnknownAgent)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = l.With("GPT", func(p *Portfolio) error {
				p.RealizedPnL += 1
				return nil
			})
		}(i)
	}
	wg.Wait()

	snap, err := l.Snapshot("GPT")
	require.NoError(t, err)
	assert.Equal(t, 50.0, snap.RealizedPnL)
	snap.RealizedPnL = 0
	again, _ := l.Snapshot("GPT")
	assert.Equal(t, 50.0, again.RealizedPnL, "snapshot is a copy")
}

func TestComputeAgentStats(t *testing.T) {
	p := New("GPT", 1000)
	for i, pnl := range []float64{40, -10, 0} {
		id := string(rune('a' + i))
		_, err := p.Open(trade(id, "GPT", id, types.SideYes, 100))
		require.NoError(t, err)
		require.NoError(t, closeAt(p, id, pnl))
	}
	_, err := p.Open(trade("open", "GPT", "open", types.SideYes, 900))
	require.NoError(t, err)
	require.NoError(t, p.MarkToMarket("open", 0.55, 45))
	_, err = p.Open(trade("x", "GPT", "x", types.SideYes, 130))
	require.NoError(t, err)

	s := ComputeAgentStats(p)
	assert.Equal(t, 1030.0, s.CurrentCapital)
	assert.Equal(t, 1030.0, s.Exposure)
	assert.Equal(t, 0.0, s.Cash)
	assert.Equal(t, 45.0, s.UnrealizedPnL)
	assert.Equal(t, 1075.0, s.TotalCapital)
	assert.Equal(t, 75.0, s.TotalPnL)
	assert.Equal(t, 3, s.ClosedTrades)
	assert.Equal(t, 0.5, s.WinRate)
	assert.Equal(t, 2, s.OpenPositions)

	fresh := ComputeAgentStats(New("QWEN", 1000))
	assert.Equal(t, 0.0, fresh.WinRate)
	assert.Equal(t, 1000.0, fresh.Cash)
}

func TestComputeSummaryStats(t *testing.T) {
	t.Run("no closed trades means no best agent", func(t *testing.T) {
		s := ComputeSummaryStats([]AgentStats{
			{AgentID: "GPT", TotalPnL: 12, OpenPositions: 1},
			{AgentID: "GROK"},
		})
		assert.Nil(t, s.BestAgentByPnL)
		assert.Equal(t, "GPT", s.Agents[0].AgentID)
	})
	t.Run("empty", func(t *testing.T) {
		s := ComputeSummaryStats(nil)
		assert.Nil(t, s.BestAgentByPnL)
		assert.Empty(t, s.Agents)
	})
	t.Run("best among agents with closed trades", func(t *testing.T) {
		s := ComputeSummaryStats([]AgentStats{
			{AgentID: "A", TotalPnL: -5, ClosedTrades: 2, RealizedPnL: -5},
			{AgentID: "B", TotalPnL: 100, ClosedTrades: 0, Exposure: 50},
			{AgentID: "C", TotalPnL: 20, ClosedTrades: 1, RealizedPnL: 20},
		})
		require.NotNil(t, s.BestAgentByPnL)
		assert.Equal(t, "C", *s.BestAgentByPnL)
		assert.Equal(t, []string{"B", "C", "A"}, []string{s.Agents[0].AgentID, s.Agents[1].AgentID, s.Agents[2].AgentID})
		assert.Equal(t, 15.0, s.TotalRealizedPnL)
		assert.Equal(t, 50.0, s.TotalExposure)
		assert.Equal(t, 3, s.ClosedTrades)
	})
}
