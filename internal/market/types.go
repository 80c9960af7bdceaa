package market

import (
	"context"
	"sort"
	"time"
)

// Market 是一次快照中的预测市场；同一 id 在后续快照中可能价格漂移。
type Market struct {
	ID          string  `json:"id"`
	Question    string  `json:"question"`
	Category    string  `json:"category"`
	Probability float64 `json:"probability"`
	// PriceChange24h 是 YES 概率在 24h 内的变化量。
	PriceChange24h float64   `json:"price_change_24h"`
	PriceHistory   []float64 `json:"price_history,omitempty"`
	Volume24h      float64   `json:"volume_24h"`
	Volume7d       float64   `json:"volume_7d"`
	Liquidity      float64   `json:"liquidity"`
	Slug           string    `json:"slug,omitempty"`
	ImageURL       string    `json:"image_url,omitempty"`
	EndDate        time.Time `json:"end_date,omitempty"`
}

// NewsArticle 是一条只读新闻。
type NewsArticle struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
}

// Snapshot 是一次生成周期的输入。
type Snapshot struct {
	Markets   []Market
	News      []NewsArticle
	FetchedAt time.Time
}

// ByID 返回 id -> Market 索引。
func (s Snapshot) ByID() map[string]Market {
	return Index(s.Markets)
}

func Index(markets []Market) map[string]Market {
	out := make(map[string]Market, len(markets))
	for _, m := range markets {
		out[m.ID] = m
	}
	return out
}

// SortedIDs 返回升序排列的 market id。
func SortedIDs(markets []Market) []string {
	ids := make([]string, 0, len(markets))
	for _, m := range markets {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return ids
}

// MarketSource 提供市场列表。
type MarketSource interface {
	FetchMarkets(ctx context.Context) ([]Market, error)
}

// NewsSource 提供新闻列表。
type NewsSource interface {
	FetchNews(ctx context.Context) ([]NewsArticle, error)
}

// NoNews 在新闻搜索关闭时使用。
type NoNews struct{}

func (NoNews) FetchNews(context.Context) ([]NewsArticle, error) { return nil, nil }
