package scoring

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"agentdesk/internal/market"
)

const (
	// NewsHalfLife 新闻相关度的衰减半衰期。
	NewsHalfLife = 6 * time.Hour
	// keywordSaturation 命中该数量的关键词即视为完全相关。
	keywordSaturation = 3.0
	maxRelevantNews   = 5
	minKeywordLen     = 4
)

var stopwords = map[string]struct{}{
	"will": {}, "what": {}, "when": {}, "which": {}, "with": {}, "from": {}, "that": {}, "this": {},
	"than": {}, "then": {}, "there": {}, "their": {}, "have": {}, "been": {}, "before": {}, "after": {},
	"more": {}, "less": {}, "over": {}, "under": {}, "above": {}, "below": {}, "into": {}, "about": {},
	"does": {}, "next": {}, "year": {}, "2025": {}, "2026": {}, "2027": {}, "2028": {}, "end": {},
}

// Keywords 从市场问题中提取去重后的关键词（保持出现顺序）。
func Keywords(question string) []string {
	fields := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < minKeywordLen {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

type weightedArticle struct {
	article market.NewsArticle
	weight  float64
}

// NewsRelevance 返回 [0,1) 的相关度以及按贡献排序的相关新闻。
// 单篇贡献 = min(1, hits/3) × 0.5^(age/halfLife)，汇总 R 后取 R/(1+R)。
func NewsRelevance(m market.Market, news []market.NewsArticle, now time.Time) (float64, []market.NewsArticle) {
	if len(news) == 0 {
		return 0, nil
	}
	keywords := Keywords(m.Question)
	var total float64
	hits := make([]weightedArticle, 0)
	for _, a := range news {
		w := articleWeight(m, keywords, a, now)
		if w <= 0 {
			continue
		}
		total += w
		hits = append(hits, weightedArticle{article: a, weight: w})
	}
	if len(hits) == 0 {
		return 0, nil
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].weight > hits[j].weight })
	if len(hits) > maxRelevantNews {
		hits = hits[:maxRelevantNews]
	}
	relevant := make([]market.NewsArticle, len(hits))
	for i, h := range hits {
		relevant[i] = h.article
	}
	return total / (1 + total), relevant
}

func articleWeight(m market.Market, keywords []string, a market.NewsArticle, now time.Time) float64 {
	text := " " + strings.ToLower(a.Title+" "+a.Description) + " "
	count := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			count++
		}
	}
	if m.Category != "" && m.Category != market.CategoryOther && strings.EqualFold(a.Category, m.Category) {
		count++
	}
	if count == 0 {
		return 0
	}
	return math.Min(1, float64(count)/keywordSaturation) * decay(now.Sub(a.PublishedAt))
}

// decay 按半衰期指数衰减；未来时间视为刚发布。
func decay(age time.Duration) float64 {
	if age < 0 {
		age = 0
	}
	return math.Pow(0.5, float64(age)/float64(NewsHalfLife))
}
