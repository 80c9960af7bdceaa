package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"agentdesk/internal/config"
	cfgloader "agentdesk/internal/config/loader"
	"agentdesk/internal/decision"
	"agentdesk/internal/engine"
	"agentdesk/internal/gateway"
	"agentdesk/internal/gateway/notifier"
	"agentdesk/internal/gateway/provider"
	"agentdesk/internal/logger"
	"agentdesk/internal/market"
	"agentdesk/internal/pkg/circuit"
	"agentdesk/internal/portfolio"
	"agentdesk/internal/profile"
	"agentdesk/internal/store"
	"agentdesk/internal/store/decisionlog"
	"agentdesk/internal/store/sqlite"
	"agentdesk/internal/trade"
	livehttp "agentdesk/internal/transport/http/live"

	"golang.org/x/time/rate"
)

type AppBuilder struct {
	cfg *config.Config

	marketSourceFn func(*config.Config) (market.MarketSource, error)
	newsSourceFn   func(*config.Config) market.NewsSource
	providersFn    func([]config.ResolvedModelConfig, time.Duration) *provider.Set

	storeOverride store.Store
}

type AppBuilderOption func(*AppBuilder)

// WithMarketSource 替换市场数据源（测试或离线回放）。
func WithMarketSource(src market.MarketSource) AppBuilderOption {
	return func(b *AppBuilder) {
		b.marketSourceFn = func(*config.Config) (market.MarketSource, error) { return src, nil }
	}
}

func WithNewsSource(src market.NewsSource) AppBuilderOption {
	return func(b *AppBuilder) {
		b.newsSourceFn = func(*config.Config) market.NewsSource { return src }
	}
}

func WithStore(s store.Store) AppBuilderOption {
	return func(b *AppBuilder) { b.storeOverride = s }
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:            cfg,
		marketSourceFn: gateway.NewMarketSourceFromConfig,
		newsSourceFn:   gateway.NewNewsSourceFromConfig,
		providersFn:    provider.BuildFromConfig,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (app *App, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	var closers []namedCloser
	defer func() {
		if err != nil {
			closeAll(closers)
		}
	}()

	registry, err := b.loadRegistry(cfg)
	if err != nil {
		return nil, err
	}
	logger.Infof("✓ 已加载 %d 个 agent: %v", registry.Len(), registry.IDs())

	markets, err := b.marketSourceFn(cfg)
	if err != nil {
		return nil, err
	}
	news := b.newsSourceFn(cfg)

	logs, err := decisionlog.NewDecisionLogStore(cfg.Storage.DecisionLogPath)
	if err != nil {
		return nil, fmt.Errorf("初始化决策日志失败: %w", err)
	}
	closers = append(closers, namedCloser{"决策日志", logs.Close})

	st := b.storeOverride
	if st == nil {
		sq, err := sqlite.NewSqliteStore(cfg.Storage.TradesDBPath)
		if err != nil {
			return nil, fmt.Errorf("初始化交易存储失败: %w", err)
		}
		st = sq
	}
	closers = append(closers, namedCloser{"交易存储", st.Close})
	tradeLog := store.NewTradeLog(st)

	oracle, oracleDesc, err := b.buildOracle(cfg, logs)
	if err != nil {
		return nil, err
	}

	var dispatcher *notifier.Dispatcher
	var tradeNotifier engine.TradeNotifier
	if tg := cfg.Notify.Telegram; tg.Enabled {
		dispatcher = notifier.NewDispatcher(notifier.NewTelegram("", os.ExpandEnv(tg.BotToken), os.ExpandEnv(tg.ChatID)), 0)
		tradeNotifier = dispatcher
		logger.Infof("✓ Telegram 推送已启用")
	}

	capital := cfg.Engine.StartingCapitalUSD
	if capital <= 0 {
		capital = portfolio.DefaultStartingCapital
	}
	svc := engine.NewService(engine.ServiceParams{
		Registry:    registry,
		Markets:     markets,
		News:        news,
		Generator:   trade.NewGenerator(oracle),
		TradeCache:  trade.NewCache(trade.AgentTradeCacheTTL, trade.AgentTradeCacheRelaxedTTL),
		Ledger:      portfolio.NewLedger(capital, registry.IDs()),
		Store:       tradeLog,
		Notifier:    tradeNotifier,
		Features:    cfg.Features,
		Concurrency: cfg.Engine.AgentConcurrency,
	})
	if err := svc.Restore(ctx); err != nil {
		return nil, err
	}

	server, err := livehttp.NewServer(livehttp.ServerConfig{
		Addr:   cfg.App.HTTPAddr,
		Engine: svc,
		Logs:   logs,
		Closes: tradeLog,
	})
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		engine:   svc,
		liveHTTP: server,
		notifier: dispatcher,
		closers:  closers,
		Summary:  buildSummary(cfg, registry, markets, news, oracleDesc),
	}, nil
}

func (b *AppBuilder) loadRegistry(cfg *config.Config) (*profile.Registry, error) {
	all, err := cfgloader.LoadRegistry(cfg.Engine.ProfilesPath)
	if err != nil {
		return nil, err
	}
	return all.Subset(cfg.Engine.Agents)
}

// buildOracle 组装 缓存 -> 保护(超时/限速/熔断) -> 模型或启发式 的调用链。
func (b *AppBuilder) buildOracle(cfg *config.Config, logs decision.Recorder) (decision.Oracle, string, error) {
	var inner decision.Oracle = decision.HeuristicOracle{}
	desc := "heuristic"
	if cfg.Features.UsesExternalOracle() {
		models, err := cfg.AI.ResolveModelConfigs()
		if err != nil {
			return nil, "", err
		}
		timeout := time.Duration(cfg.Engine.OracleTimeoutSeconds) * time.Second
		set := b.providersFn(models, timeout)
		if set.Len() == 0 {
			return nil, "", fmt.Errorf("mode %s requires at least one model provider", cfg.Features.Mode)
		}
		inner = &decision.LLMOracle{
			Providers:   set,
			Recorder:    logs,
			MaxTokens:   cfg.AI.MaxTokens,
			Temperature: cfg.AI.Temperature,
		}
		ids := make([]string, 0, len(models))
		for _, m := range models {
			ids = append(ids, m.ID)
		}
		desc = "llm(" + strings.Join(ids, ", ") + ")"
	}
	eng := cfg.Engine
	breaker := circuit.New("oracle", eng.BreakerThreshold, time.Duration(eng.BreakerCooldownSeconds)*time.Second)
	breaker.OnStateChange(func(name string, from, to circuit.State) {
		logger.Warnf("circuit %s: %s -> %s", name, from, to)
	})
	guarded := decision.GuardedOracle{
		Inner:   inner,
		Timeout: time.Duration(eng.OracleTimeoutSeconds) * time.Second,
		Limiter: rate.NewLimiter(rate.Limit(eng.OracleRatePerSecond), max(eng.OracleBurst, 1)),
		Breaker: breaker,
	}
	return decision.CachedOracle{Inner: guarded, Cache: decision.NewCache(decision.DecisionCacheTTL)}, desc, nil
}
