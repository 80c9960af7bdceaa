package portfolio

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"agentdesk/internal/types"

	"github.com/shopspring/decimal"
)

var (
	ErrPositionExists   = errors.New("position already open for market")
	ErrInsufficientCash = errors.New("insufficient cash")
	ErrNoPosition       = errors.New("no open position for market")
	ErrInvalidTrade     = errors.New("invalid trade")
)

// Portfolio 是单个 agent 的账本。本身不加锁，由 Ledger 保证同一 agent 串行访问。
// 不变量：无持仓时 CurrentCapital = StartingCapital + RealizedPnL；Cash = CurrentCapital - Exposure。
type Portfolio struct {
	AgentID         string
	StartingCapital float64
	RealizedPnL     float64
	positions       map[string]types.Position
	trades          []types.AgentTrade
	tradeIndex      map[string]int
}

func New(agentID string, startingCapital float64) *Portfolio {
	return &Portfolio{
		AgentID:         agentID,
		StartingCapital: startingCapital,
		positions:       make(map[string]types.Position),
		tradeIndex:      make(map[string]int),
	}
}

func (p *Portfolio) CurrentCapital() float64 {
	return addMoney(p.StartingCapital, p.RealizedPnL)
}

// Exposure 为持仓投入总额。
func (p *Portfolio) Exposure() float64 {
	sum := decimal.Zero
	for _, pos := range p.positions {
		sum = sum.Add(decimal.NewFromFloat(pos.SizeUSD))
	}
	return sum.InexactFloat64()
}

// Cash 可能为负（亏损超过剩余资金）；对外展示时由统计层截断为 0。
func (p *Portfolio) Cash() float64 {
	return addMoney(p.CurrentCapital(), -p.Exposure())
}

func (p *Portfolio) UnrealizedPnL() float64 {
	sum := decimal.Zero
	for _, pos := range p.positions {
		sum = sum.Add(decimal.NewFromFloat(pos.UnrealizedPnL))
	}
	return sum.InexactFloat64()
}

func (p *Portfolio) Position(marketID string) (types.Position, bool) {
	pos, ok := p.positions[marketID]
	return pos, ok
}

// Positions 返回按 market id 排序的持仓副本。
func (p *Portfolio) Positions() []types.Position {
	out := make([]types.Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MarketID < out[j].MarketID })
	return out
}

func (p *Portfolio) OpenCount() int { return len(p.positions) }

// Trades 返回全部交易历史（按创建顺序）。
func (p *Portfolio) Trades() []types.AgentTrade {
	return append([]types.AgentTrade(nil), p.trades...)
}

func (p *Portfolio) Trade(id string) (types.AgentTrade, bool) {
	idx, ok := p.tradeIndex[id]
	if !ok {
		return types.AgentTrade{}, false
	}
	return p.trades[idx], true
}

// Open 将新交易落为持仓。同一市场已有持仓或现金不足时拒绝，账本不变。
func (p *Portfolio) Open(t types.AgentTrade) (types.Position, error) {
	if t.AgentID != p.AgentID || t.MarketID == "" || t.InvestmentUSD <= 0 {
		return types.Position{}, fmt.Errorf("%w: %s/%s size=%.2f", ErrInvalidTrade, t.AgentID, t.MarketID, t.InvestmentUSD)
	}
	if _, exists := p.positions[t.MarketID]; exists {
		return types.Position{}, fmt.Errorf("%w: %s", ErrPositionExists, t.MarketID)
	}
	if cash := p.Cash(); t.InvestmentUSD > cash {
		return types.Position{}, fmt.Errorf("%w: need %.2f have %.2f", ErrInsufficientCash, t.InvestmentUSD, cash)
	}
	pos := types.Position{
		TradeID:          t.ID,
		MarketID:         t.MarketID,
		Category:         t.Category,
		Side:             t.Side,
		EntryProbability: t.EntryProbability,
		SizeUSD:          t.InvestmentUSD,
		OpenedAt:         t.CreatedAt,
		LastProbability:  t.EntryProbability,
	}
	p.positions[t.MarketID] = pos
	t.Status = types.TradeOpen
	p.appendTrade(t)
	return pos, nil
}

// MarkToMarket 记录最新概率与未实现盈亏（由调用方按当前价格计算）。
func (p *Portfolio) MarkToMarket(marketID string, probability, unrealized float64) error {
	pos, ok := p.positions[marketID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPosition, marketID)
	}
	pos.LastProbability = probability
	pos.UnrealizedPnL = unrealized
	p.positions[marketID] = pos
	if idx, ok := p.tradeIndex[pos.TradeID]; ok {
		p.trades[idx].LastProbability = &probability
		p.trades[idx].UnrealizedPnL = &unrealized
	}
	return nil
}

// Close 结算一笔平仓：移除持仓、累计已实现盈亏并更新对应交易。
func (p *Portfolio) Close(c types.ClosedPosition) error {
	pos, ok := p.positions[c.Position.MarketID]
	if !ok || pos.TradeID != c.Position.TradeID {
		return fmt.Errorf("%w: %s", ErrNoPosition, c.Position.MarketID)
	}
	delete(p.positions, pos.MarketID)
	p.settle(c)
	return nil
}

// Settle 结算一笔已不在持仓表中的 OPEN 交易（见 Restore 返回的 Superseded）。
func (p *Portfolio) Settle(c types.ClosedPosition) error {
	idx, ok := p.tradeIndex[c.Position.TradeID]
	if !ok || p.trades[idx].Status != types.TradeOpen {
		return fmt.Errorf("%w: trade %s", ErrNoPosition, c.Position.TradeID)
	}
	if pos, held := p.positions[c.Position.MarketID]; held && pos.TradeID == c.Position.TradeID {
		return fmt.Errorf("%w: trade %s still held, use Close", ErrInvalidTrade, c.Position.TradeID)
	}
	p.settle(c)
	return nil
}

func (p *Portfolio) settle(c types.ClosedPosition) {
	p.RealizedPnL = addMoney(p.RealizedPnL, c.RealizedPnL)
	if idx, ok := p.tradeIndex[c.Position.TradeID]; ok {
		t := &p.trades[idx]
		pnl, exit, closedAt := c.RealizedPnL, c.ExitProbability, c.ClosedAt
		t.Status = types.TradeClosed
		t.RealizedPnL = &pnl
		t.ExitProbability = &exit
		t.CloseReason = c.Reason
		t.ClosedAt = &closedAt
	}
}

// ForceClose 用于市场下架：无法再定价，以最后一次未实现盈亏作为已实现值。
func (p *Portfolio) ForceClose(marketID string, at time.Time) (types.ClosedPosition, error) {
	pos, ok := p.positions[marketID]
	if !ok {
		return types.ClosedPosition{}, fmt.Errorf("%w: %s", ErrNoPosition, marketID)
	}
	c := types.ClosedPosition{
		AgentID:         p.AgentID,
		Position:        pos,
		ExitProbability: pos.LastProbability,
		RealizedPnL:     pos.UnrealizedPnL,
		Reason:          types.CloseDelisted,
		ClosedAt:        at,
	}
	return c, p.Close(c)
}

// Superseded 是恢复时被同一市场更新的 OPEN 交易顶替的旧持仓。
// 正常情况下翻转在一个事务内写入，出现它说明历史数据来自一次中断的写入。
type Superseded struct {
	Position types.Position
	By       types.AgentTrade
}

// Restore 从持久化的交易重建账本：OPEN -> 持仓，CLOSED -> 已实现盈亏。
// 不做现金校验，历史状态以存储为准。同一市场出现多笔 OPEN 时保留最新一笔，
// 旧的从持仓表移出并返回，交易本身仍为 OPEN，由调用方决定如何结算（Settle）。
// trades 需按创建时间升序。
func (p *Portfolio) Restore(trades []types.AgentTrade) []Superseded {
	var stale []Superseded
	for _, t := range trades {
		if t.AgentID != p.AgentID {
			continue
		}
		if _, dup := p.tradeIndex[t.ID]; dup {
			continue
		}
		switch t.Status {
		case types.TradeOpen:
			pos := types.Position{
				TradeID:          t.ID,
				MarketID:         t.MarketID,
				Category:         t.Category,
				Side:             t.Side,
				EntryProbability: t.EntryProbability,
				SizeUSD:          t.InvestmentUSD,
				OpenedAt:         t.CreatedAt,
				LastProbability:  t.EntryProbability,
			}
			if t.LastProbability != nil {
				pos.LastProbability = *t.LastProbability
			}
			if t.UnrealizedPnL != nil {
				pos.UnrealizedPnL = *t.UnrealizedPnL
			}
			if prev, exists := p.positions[t.MarketID]; exists {
				stale = append(stale, Superseded{Position: prev, By: t})
			}
			p.positions[t.MarketID] = pos
		case types.TradeClosed:
			if t.RealizedPnL != nil {
				p.RealizedPnL = addMoney(p.RealizedPnL, *t.RealizedPnL)
			}
		}
		p.appendTrade(t)
	}
	return stale
}

// CategoryPnL 汇总已平仓交易按分类的已实现盈亏。
func (p *Portfolio) CategoryPnL() map[string]float64 {
	out := make(map[string]float64)
	for _, t := range p.trades {
		if t.Status != types.TradeClosed || t.RealizedPnL == nil || t.Category == "" {
			continue
		}
		out[t.Category] = addMoney(out[t.Category], *t.RealizedPnL)
	}
	return out
}

func (p *Portfolio) appendTrade(t types.AgentTrade) {
	p.tradeIndex[t.ID] = len(p.trades)
	p.trades = append(p.trades, t)
}

func (p *Portfolio) clone() *Portfolio {
	cp := New(p.AgentID, p.StartingCapital)
	cp.RealizedPnL = p.RealizedPnL
	for k, v := range p.positions {
		cp.positions[k] = v
	}
	cp.trades = append(cp.trades, p.trades...)
	for k, v := range p.tradeIndex {
		cp.tradeIndex[k] = v
	}
	return cp
}

func addMoney(a, b float64) float64 {
	return decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).InexactFloat64()
}
