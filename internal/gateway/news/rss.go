package news

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
	"time"

	"agentdesk/internal/logger"
	"agentdesk/internal/market"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"
)

type rss struct {
	XMLName xml.Name `xml:"rss"`
	Channel channel  `xml:"channel"`
}

type channel struct {
	Title string `xml:"title"`
	Items []item `xml:"item"`
}

type item struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	GUID        string `xml:"guid"`
	Source      source `xml:"source"`
	Category    string `xml:"category"`
}

type source struct {
	URL  string `xml:"url,attr"`
	Text string `xml:",chardata"`
}

var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	time.RFC3339,
}

const defaultMaxArticles = 100

// RSSClient 并发拉取配置的 RSS 源，按 URL 去重并用 Classify 打分类标签。
type RSSClient struct {
	feeds       []string
	maxArticles int
	client      *resty.Client
}

func NewRSSClient(feeds []string, maxArticles int, timeout time.Duration) *RSSClient {
	if maxArticles <= 0 {
		maxArticles = defaultMaxArticles
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "agentdesk/1.0 (+rss)").
		SetRetryCount(1)
	return &RSSClient{feeds: feeds, maxArticles: maxArticles, client: client}
}

// FetchNews 单个源失败只记日志；所有源都失败时返回错误。
func (c *RSSClient) FetchNews(ctx context.Context) ([]market.NewsArticle, error) {
	if len(c.feeds) == 0 {
		return nil, nil
	}
	results := make([][]market.NewsArticle, len(c.feeds))
	errs := make([]error, len(c.feeds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, feed := range c.feeds {
		i, feed := i, feed
		g.Go(func() error {
			results[i], errs[i] = c.fetchFeed(gctx, feed)
			if errs[i] != nil {
				logger.Warnf("news feed %s failed: %v", feed, errs[i])
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	failed := 0
	seen := make(map[string]struct{})
	var out []market.NewsArticle
	for i := range c.feeds {
		if errs[i] != nil {
			failed++
			continue
		}
		for _, a := range results[i] {
			if _, dup := seen[a.URL]; dup {
				continue
			}
			seen[a.URL] = struct{}{}
			out = append(out, a)
		}
	}
	if failed == len(c.feeds) {
		return nil, fmt.Errorf("all %d news feeds failed: %w", failed, errs[0])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	if len(out) > c.maxArticles {
		out = out[:c.maxArticles]
	}
	return out, nil
}

func (c *RSSClient) fetchFeed(ctx context.Context, feedURL string) ([]market.NewsArticle, error) {
	resp, err := c.client.R().SetContext(ctx).Get(feedURL)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("http %s", resp.Status())
	}
	return ParseFeed(resp.Body(), feedURL)
}

// ParseFeed 解析 RSS 2.0 文档；描述中的 HTML 会被剥离为纯文本。
func ParseFeed(body []byte, feedURL string) ([]market.NewsArticle, error) {
	var doc rss
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse rss: %w", err)
	}
	out := make([]market.NewsArticle, 0, len(doc.Channel.Items))
	for _, it := range doc.Channel.Items {
		title := strings.TrimSpace(it.Title)
		link := strings.TrimSpace(it.Link)
		if title == "" || link == "" {
			continue
		}
		desc := plainText(it.Description)
		src := strings.TrimSpace(it.Source.Text)
		if src == "" {
			src = strings.TrimSpace(doc.Channel.Title)
		}
		if src == "" {
			src = feedURL
		}
		out = append(out, market.NewsArticle{
			ID:          articleID(it.GUID, link),
			URL:         link,
			Title:       title,
			Description: desc,
			Category:    market.NormalizeCategory(it.Category, title+" "+desc),
			Source:      src,
			PublishedAt: parsePubDate(it.PubDate),
		})
	}
	return out, nil
}

func plainText(html string) string {
	html = strings.TrimSpace(html)
	if html == "" || !strings.Contains(html, "<") {
		return html
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func parsePubDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range pubDateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

func articleID(guid, link string) string {
	key := strings.TrimSpace(guid)
	if key == "" {
		key = link
	}
	sum := sha1.Sum([]byte(key))
	return hex.EncodeToString(sum[:8])
}

var _ market.NewsSource = (*RSSClient)(nil)
