package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"agentdesk/internal/config"
	"agentdesk/internal/lifecycle"
	"agentdesk/internal/logger"
	"agentdesk/internal/market"
	"agentdesk/internal/metrics"
	"agentdesk/internal/portfolio"
	"agentdesk/internal/profile"
	"agentdesk/internal/scoring"
	"agentdesk/internal/trade"
	"agentdesk/internal/types"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// ErrSnapshotFailed 表示市场或新闻拉取失败，整个生成周期放弃。
var ErrSnapshotFailed = errors.New("snapshot fetch failed")

// TradeStore 持久化账本变更，并在启动时提供历史交易。
// Apply 必须原子：一次翻转的平仓与开仓要么都落地，要么都不落地。
type TradeStore interface {
	Apply(ctx context.Context, opened []types.AgentTrade, closed []types.ClosedPosition, marks []types.Position) error
	LoadTrades(ctx context.Context) ([]types.AgentTrade, error)
}

// TradeNotifier 接收开仓与平仓事件，实现方不得阻塞。
type TradeNotifier interface {
	TradesOpened(trades []types.AgentTrade)
	PositionsClosed(closes []types.ClosedPosition)
}

type ServiceParams struct {
	Registry    *profile.Registry
	Markets     market.MarketSource
	News        market.NewsSource
	Generator   *trade.Generator
	TradeCache  *trade.Cache
	Ledger      *portfolio.Ledger
	Store       TradeStore
	Notifier    TradeNotifier
	Features    config.Features
	Concurrency int
	Now         func() time.Time
}

// Service 编排生成周期与生命周期扫描。同一 agent 的缓存槽与账本在周期内独占。
type Service struct {
	registry    *profile.Registry
	markets     market.MarketSource
	news        market.NewsSource
	generator   *trade.Generator
	tradeCache  *trade.Cache
	ledger      *portfolio.Ledger
	store       TradeStore
	notifier    TradeNotifier
	features    config.Features
	concurrency int64
	nowFn       func() time.Time

	agentLocks *keyedMutex

	snapMu   sync.RWMutex
	snapshot *market.Snapshot
}

func NewService(p ServiceParams) *Service {
	now := p.Now
	if now == nil {
		now = time.Now
	}
	conc := int64(p.Concurrency)
	if conc <= 0 {
		conc = 1
	}
	news := p.News
	if news == nil || !p.Features.NewsSearch {
		news = market.NoNews{}
	}
	return &Service{
		registry:    p.Registry,
		markets:     p.Markets,
		news:        news,
		generator:   p.Generator,
		tradeCache:  p.TradeCache,
		ledger:      p.Ledger,
		store:       p.Store,
		notifier:    p.Notifier,
		features:    p.Features,
		concurrency: conc,
		nowFn:       now,
		agentLocks:  newKeyedMutex(),
	}
}

func (s *Service) Registry() *profile.Registry { return s.registry }
func (s *Service) Ledger() *portfolio.Ledger { return s.ledger }
func (s *Service) TradeCache() *trade.Cache { return s.tradeCache }
func (s *Service) Features() config.Features { return s.features }

// Snapshot 返回最近一次生成周期使用的快照。
func (s *Service) Snapshot() (market.Snapshot, bool) {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	if s.snapshot == nil {
		return market.Snapshot{}, false
	}
	return *s.snapshot, true
}

// Restore 用持久化的交易重建所有 agent 的账本。
// 同一市场残留的旧 OPEN 交易按翻转结算（以新交易的入场概率为出场价），并写回存储。
func (s *Service) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	trades, err := s.store.LoadTrades(ctx)
	if err != nil {
		return fmt.Errorf("load trades: %w", err)
	}
	var healed []types.ClosedPosition
	for _, id := range s.ledger.AgentIDs() {
		err := s.ledger.With(id, func(p *portfolio.Portfolio) error {
			for _, st := range p.Restore(trades) {
				c := lifecycle.ClosePosition(p.AgentID, st.Position, st.By.EntryProbability, types.CloseFlip, st.By.CreatedAt)
				if err := p.Settle(c); err != nil {
					return fmt.Errorf("settle superseded trade %s: %w", st.Position.TradeID, err)
				}
				logger.Warnf("agent %s: trade %s on %s superseded by %s, settled pnl=%.2f",
					p.AgentID, st.Position.TradeID, st.Position.MarketID, st.By.ID, c.RealizedPnL)
				healed = append(healed, c)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	if len(healed) > 0 {
		if err := s.store.Apply(ctx, nil, healed, nil); err != nil {
			return fmt.Errorf("persist superseded closes: %w", err)
		}
	}
	logger.Infof("ledger restored from %d stored trades", len(trades))
	return nil
}

// AgentCycleResult 是单个 agent 在一个生成周期内的结果。
type AgentCycleResult struct {
	AgentID    string                 `json:"agent_id"`
	Cached     bool                   `json:"cached"`
	Trades     []types.AgentTrade     `json:"trades"`
	Opened     int                    `json:"opened"`
	Suppressed int                    `json:"suppressed"`
	Flipped    []types.ClosedPosition `json:"flipped,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// CycleResult 汇总一次生成周期。
type CycleResult struct {
	CycleID   string             `json:"cycle_id"`
	StartedAt time.Time          `json:"started_at"`
	Markets   int                `json:"markets"`
	News      int                `json:"news"`
	Agents    []AgentCycleResult `json:"agents"`
}

func (s *Service) fetchSnapshot(ctx context.Context) (market.Snapshot, error) {
	var snap market.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		markets, err := s.markets.FetchMarkets(gctx)
		if err != nil {
			return fmt.Errorf("%w: markets: %w", ErrSnapshotFailed, err)
		}
		snap.Markets = markets
		return nil
	})
	g.Go(func() error {
		news, err := s.news.FetchNews(gctx)
		if err != nil {
			return fmt.Errorf("%w: news: %w", ErrSnapshotFailed, err)
		}
		snap.News = news
		return nil
	})
	if err := g.Wait(); err != nil {
		return market.Snapshot{}, err
	}
	snap.FetchedAt = s.nowFn()
	return snap, nil
}

// RunGenerationCycle 拉取快照后为每个 agent 生成并落地交易。
// 快照失败返回 ErrSnapshotFailed；单个 agent 的失败记录在结果中，不影响其他 agent。
func (s *Service) RunGenerationCycle(ctx context.Context) (*CycleResult, error) {
	start := time.Now()
	defer func() { metrics.CycleDuration("generation", time.Since(start).Seconds()) }()

	snap, err := s.fetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	s.snapMu.Lock()
	s.snapshot = &snap
	s.snapMu.Unlock()

	res := &CycleResult{
		CycleID:   uuid.NewString(),
		StartedAt: snap.FetchedAt,
		Markets:   len(snap.Markets),
		News:      len(snap.News),
	}
	profiles := s.registry.All()
	res.Agents = make([]AgentCycleResult, len(profiles))
	sem := semaphore.NewWeighted(s.concurrency)
	var wg sync.WaitGroup
	for i, p := range profiles {
		if err := sem.Acquire(ctx, 1); err != nil {
			res.Agents[i] = AgentCycleResult{AgentID: p.ID, Error: err.Error()}
			continue
		}
		i, p := i, p
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			out, err := s.runAgent(ctx, p, snap)
			if err != nil {
				logger.Warnf("cycle %s agent %s failed: %v", res.CycleID, p.ID, err)
				out.Error = err.Error()
			}
			res.Agents[i] = out
		}()
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return res, err
	}
	logger.Infof("cycle %s done: markets=%d news=%d agents=%d took=%s",
		res.CycleID, res.Markets, res.News, len(profiles), time.Since(start).Truncate(time.Millisecond))
	return res, nil
}

func (s *Service) runAgent(ctx context.Context, p profile.AgentProfile, snap market.Snapshot) (AgentCycleResult, error) {
	unlock := s.agentLocks.Lock(p.ID)
	defer unlock()

	out := AgentCycleResult{AgentID: p.ID}
	ids := market.SortedIDs(snap.Markets)
	if cached := s.tradeCache.Get(p.ID, ids); cached != nil {
		out.Cached = true
		out.Trades = cached
		return out, nil
	}

	var opts trade.Options
	if s.features.Lifecycle {
		opts.MinScore = lifecycle.ScoreDecayFloor
	}
	if s.features.AdaptiveScoring {
		pf, err := s.ledger.Snapshot(p.ID)
		if err != nil {
			return out, err
		}
		opts.Adjustments = AdaptiveAdjustments(pf.CategoryPnL())
	}
	now := s.nowFn()
	trades, err := s.generator.Generate(ctx, p, snap.Markets, snap.News, now, opts)
	if err != nil {
		return out, err
	}
	out.Trades = trades

	byID := snap.ByID()
	var opened []types.AgentTrade
	err = s.ledger.With(p.ID, func(pf *portfolio.Portfolio) error {
		for _, t := range trades {
			flipped, ok := s.applyTrade(pf, t, byID[t.MarketID], now)
			if flipped != nil {
				out.Flipped = append(out.Flipped, *flipped)
			}
			if ok {
				opened = append(opened, t)
			} else {
				out.Suppressed++
			}
		}
		metrics.AgentCapital(p.ID, portfolio.ComputeAgentStats(pf).TotalCapital)
		return nil
	})
	if err != nil {
		return out, err
	}
	out.Opened = len(opened)
	s.persist(ctx, opened, out.Flipped, nil)
	s.tradeCache.Set(p.ID, trades, ids)
	return out, nil
}

// applyTrade 无持仓则开仓；同向抑制；反向且满足翻转条件时先平旧仓再开新仓。
func (s *Service) applyTrade(pf *portfolio.Portfolio, t types.AgentTrade, m market.Market, now time.Time) (*types.ClosedPosition, bool) {
	var flipped *types.ClosedPosition
	if pos, exists := pf.Position(t.MarketID); exists {
		if pos.Side == t.Side || !lifecycle.ShouldFlipPosition(pos, m, t.Confidence) {
			logger.Debugf("agent %s: suppress %s %s, position %s already open", t.AgentID, t.Side, t.MarketID, pos.Side)
			return nil, false
		}
		c := lifecycle.ClosePosition(pf.AgentID, pos, m.Probability, types.CloseFlip, now)
		if err := pf.Close(c); err != nil {
			logger.Warnf("agent %s: flip close %s failed: %v", t.AgentID, t.MarketID, err)
			return nil, false
		}
		metrics.PositionClosed(string(types.CloseFlip))
		logger.Infof("agent %s: flip %s %s -> %s pnl=%.2f", t.AgentID, t.MarketID, pos.Side, t.Side, c.RealizedPnL)
		flipped = &c
	}
	if _, err := pf.Open(t); err != nil {
		logger.Warnf("agent %s: open %s suppressed: %v", t.AgentID, t.MarketID, err)
		return flipped, false
	}
	return flipped, true
}

// RunLifecycle 拉取最新市场并对每个 agent 的持仓执行一次生命周期扫描。
// 市场拉取失败时跳过本轮，避免把所有持仓误判为下架。
func (s *Service) RunLifecycle(ctx context.Context) ([]types.ClosedPosition, error) {
	if !s.features.Lifecycle {
		return nil, nil
	}
	start := time.Now()
	defer func() { metrics.CycleDuration("lifecycle", time.Since(start).Seconds()) }()

	markets, err := s.markets.FetchMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: markets: %w", ErrSnapshotFailed, err)
	}
	byID := market.Index(markets)
	var news []market.NewsArticle
	if snap, ok := s.Snapshot(); ok {
		news = snap.News
	}
	now := s.nowFn()

	var all []types.ClosedPosition
	var marks []types.Position
	for _, p := range s.registry.All() {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		closed, held, err := s.lifecycleForAgent(p, byID, news, now)
		if err != nil {
			logger.Warnf("lifecycle agent %s failed: %v", p.ID, err)
			continue
		}
		all = append(all, closed...)
		marks = append(marks, held...)
	}
	s.persist(ctx, nil, all, marks)
	return all, nil
}

// lifecycleForAgent 返回本轮平仓与仍持有的（已估值）持仓。
func (s *Service) lifecycleForAgent(p profile.AgentProfile, byID map[string]market.Market, news []market.NewsArticle, now time.Time) ([]types.ClosedPosition, []types.Position, error) {
	unlock := s.agentLocks.Lock(p.ID)
	defer unlock()

	var closed []types.ClosedPosition
	var held []types.Position
	err := s.ledger.With(p.ID, func(pf *portfolio.Portfolio) error {
		var scorer scoring.Scorer
		if s.features.AdaptiveScoring {
			scorer.Adjustments = AdaptiveAdjustments(pf.CategoryPnL())
		}
		scores := make(map[string]float64)
		for _, pos := range pf.Positions() {
			if m, ok := byID[pos.MarketID]; ok {
				scores[pos.MarketID] = scorer.Score(m, news, p, now).Score
			}
		}
		closed = lifecycle.ProcessPositionLifecycle(pf, byID, scores, now)
		held = pf.Positions()
		metrics.AgentCapital(p.ID, portfolio.ComputeAgentStats(pf).TotalCapital)
		return nil
	})
	return closed, held, err
}

// persist 在账本已变更后写库并推送，不受调用方取消影响；失败只记日志。
// 开仓、平仓与估值在一次 Apply 中落地，翻转不会只写一半。
func (s *Service) persist(ctx context.Context, opened []types.AgentTrade, closed []types.ClosedPosition, marks []types.Position) {
	if s.notifier != nil {
		s.notifier.PositionsClosed(closed)
		s.notifier.TradesOpened(opened)
	}
	if s.store == nil {
		return
	}
	if err := s.store.Apply(context.WithoutCancel(ctx), opened, closed, marks); err != nil {
		logger.Errorf("persist opened=%d closed=%d marks=%d failed: %v", len(opened), len(closed), len(marks), err)
	}
}
