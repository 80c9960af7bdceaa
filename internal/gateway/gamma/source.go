package gamma

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"agentdesk/internal/logger"
	"agentdesk/internal/market"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// Source 从 Gamma 风格的 REST 接口拉取活跃市场列表。
type Source struct {
	cfg     Config
	client  *resty.Client
	limiter *rate.Limiter
}

func New(cfg Config) *Source {
	final := cfg.withDefaults()
	client := resty.New().
		SetBaseURL(final.BaseURL).
		SetTimeout(final.HTTPTimeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && r != nil && r.StatusCode() >= 500
		})
	burst := int(final.RatePerSecond)
	if burst < 1 {
		burst = 1
	}
	return &Source{
		cfg:     final,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(final.RatePerSecond), burst),
	}
}

// FetchMarkets 返回按 24h 成交量降序的活跃市场；任何请求或解析失败都作为整体错误返回。
func (s *Source) FetchMarkets(ctx context.Context) ([]market.Market, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"active":    "true",
			"closed":    "false",
			"limit":     strconv.Itoa(s.cfg.Limit),
			"order":     "volume24hr",
			"ascending": "false",
		}).
		Get("/markets")
	if err != nil {
		return nil, fmt.Errorf("gamma markets: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("gamma markets: http %s", resp.Status())
	}
	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("gamma markets: invalid json")
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		root = root.Get("data")
	}
	var (
		out     []market.Market
		skipped int
	)
	root.ForEach(func(_, item gjson.Result) bool {
		m, ok := parseMarket(item)
		if !ok {
			skipped++
			return true
		}
		out = append(out, m)
		return true
	})
	if skipped > 0 {
		logger.Debugf("gamma: skipped %d markets without a usable YES price", skipped)
	}
	return out, nil
}

// parseMarket 兼容数字与字符串两种数值编码；outcomePrices 本身是 JSON 字符串。
func parseMarket(item gjson.Result) (market.Market, bool) {
	id := strings.TrimSpace(item.Get("id").String())
	question := strings.TrimSpace(item.Get("question").String())
	if id == "" || question == "" {
		return market.Market{}, false
	}
	prob, ok := yesProbability(item.Get("outcomePrices"))
	if !ok {
		return market.Market{}, false
	}
	label := item.Get("category").String()
	if label == "" {
		label = item.Get("tags.0.label").String()
	}
	m := market.Market{
		ID:             id,
		Question:       question,
		Category:       market.NormalizeCategory(label, question),
		Probability:    prob,
		PriceChange24h: item.Get("oneDayPriceChange").Float(),
		Volume24h:      firstFloat(item, "volume24hr", "volume24hrClob"),
		Volume7d:       firstFloat(item, "volume1wk", "volume1wkClob"),
		Liquidity:      firstFloat(item, "liquidityNum", "liquidity"),
		Slug:           item.Get("slug").String(),
		ImageURL:       item.Get("image").String(),
	}
	if end := item.Get("endDate").String(); end != "" {
		if ts, err := time.Parse(time.RFC3339, end); err == nil {
			m.EndDate = ts
		}
	}
	return m, true
}

func yesProbability(v gjson.Result) (float64, bool) {
	arr := v
	if v.Type == gjson.String {
		arr = gjson.Parse(v.String())
	}
	if !arr.IsArray() {
		return 0, false
	}
	first := arr.Get("0")
	if !first.Exists() {
		return 0, false
	}
	p := first.Float()
	if p < 0 || p > 1 {
		return 0, false
	}
	return p, true
}

func firstFloat(item gjson.Result, keys ...string) float64 {
	for _, k := range keys {
		if v := item.Get(k); v.Exists() && v.String() != "" {
			return v.Float()
		}
	}
	return 0
}

var _ market.MarketSource = (*Source)(nil)
