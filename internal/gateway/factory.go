package gateway

import (
	"fmt"
	"strings"
	"time"

	"agentdesk/internal/config"
	"agentdesk/internal/gateway/gamma"
	"agentdesk/internal/gateway/news"
	"agentdesk/internal/market"
)

// NewMarketSourceFromConfig 启用 gamma 时走远程接口，否则读取本地快照文件。
func NewMarketSourceFromConfig(cfg *config.Config) (market.MarketSource, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	src := cfg.Sources
	if src.Gamma.Enabled {
		return gamma.New(gamma.Config{
			BaseURL:       src.Gamma.BaseURL,
			Limit:         src.Gamma.Limit,
			RatePerSecond: src.Gamma.RatePerSecond,
			HTTPTimeout:   time.Duration(src.Gamma.TimeoutSeconds) * time.Second,
		}), nil
	}
	if path := strings.TrimSpace(src.Fixture); path != "" {
		return market.NewFixtureSource(path), nil
	}
	return nil, fmt.Errorf("no market source configured: enable sources.gamma or set sources.fixture_path")
}

// fixtureNewsAge 让离线快照中的新闻保持在相关度衰减窗口内。
const fixtureNewsAge = 6 * time.Hour

// NewNewsSourceFromConfig 新闻搜索关闭时返回 NoNews；无 RSS 源时退回快照文件中的新闻。
func NewNewsSourceFromConfig(cfg *config.Config) market.NewsSource {
	if cfg == nil || !cfg.Features.NewsSearch {
		return market.NoNews{}
	}
	n := cfg.Sources.News
	if len(n.Feeds) > 0 {
		return news.NewRSSClient(n.Feeds, n.MaxArticles, time.Duration(n.TimeoutSeconds)*time.Second)
	}
	if path := strings.TrimSpace(cfg.Sources.Fixture); path != "" {
		fx := market.NewFixtureSource(path)
		fx.NewsAge = fixtureNewsAge
		return fx
	}
	return market.NoNews{}
}
