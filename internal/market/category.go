package market

import (
	"strings"
	"unicode"
)

// 分类常量，同时作为 agent 关注领域的取值。
const (
	CategoryElections   = "elections"
	CategoryPolitics    = "politics"
	CategoryCrypto      = "crypto"
	CategoryEconomy     = "economy"
	CategoryTech        = "tech"
	CategoryScience     = "science"
	CategorySports      = "sports"
	CategoryGeopolitics = "geopolitics"
	CategoryCulture     = "culture"
	CategoryOther       = "other"
)

type categoryRule struct {
	category string
	keywords []string
}

// categoryRules 按顺序匹配，先命中者生效。
// elections 必须排在 politics 之前；关键词跨类重叠属于已知误判来源。
var categoryRules = []categoryRule{
	{CategoryElections, []string{"election", "ballot", "primary", "nominee", "electoral", "midterm", "polls", "runoff", "vote share"}},
	{CategoryPolitics, []string{"president", "senate", "congress", "parliament", "governor", "minister", "white house", "supreme court", "impeach*", "democrat", "republican", "legislation"}},
	{CategoryCrypto, []string{"bitcoin", "btc", "ethereum", "eth", "crypto", "solana", "stablecoin", "blockchain", "token", "defi", "etf inflow"}},
	{CategoryEconomy, []string{"fed", "federal reserve", "interest rate", "inflation", "cpi", "gdp", "recession", "unemployment", "tariff", "jobs report", "treasury"}},
	{CategoryGeopolitics, []string{"war", "ceasefire", "nato", "invasion", "sanction*", "missile", "treaty", "ukraine", "russia", "israel", "gaza", "taiwan"}},
	{CategoryTech, []string{"openai", "apple", "google", "microsoft", "nvidia", "ai model", "artificial intelligence", "iphone", "tesla", "spacex", "chip"}},
	{CategoryScience, []string{"nasa", "climate", "vaccine", "pandemic", "asteroid", "hurricane", "earthquake", "temperature"}},
	{CategorySports, []string{"nba", "nfl", "mlb", "nhl", "fifa", "world cup", "super bowl", "championship", "olympic*", "premier league", "tennis", "f1"}},
	{CategoryCulture, []string{"oscar", "grammy", "movie", "box office", "album", "taylor swift", "celebrity", "tiktok", "youtube", "netflix"}},
}

// Classify 对文本做尽力而为的分类，纯函数，无命中返回 other。
// 关键词按整词匹配（允许 s/es 复数），以 * 结尾的关键词按词首前缀匹配。
func Classify(text string) string {
	padded := " " + strings.Join(tokenize(text), " ") + " "
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if matchKeyword(padded, kw) {
				return rule.category
			}
		}
	}
	return CategoryOther
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func matchKeyword(padded, kw string) bool {
	if stem, ok := strings.CutSuffix(kw, "*"); ok {
		return strings.Contains(padded, " "+stem)
	}
	for _, suffix := range []string{" ", "s ", "es "} {
		if strings.Contains(padded, " "+kw+suffix) {
			return true
		}
	}
	return false
}

// NormalizeCategory 将外部来源的标签映射到内部分类；无法识别时按文本分类。
func NormalizeCategory(label, fallbackText string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	switch label {
	case CategoryElections, CategoryPolitics, CategoryCrypto, CategoryEconomy, CategoryTech,
		CategoryScience, CategorySports, CategoryGeopolitics, CategoryCulture:
		return label
	case "us-current-affairs", "us politics", "global politics":
		return CategoryPolitics
	case "business", "finance", "economics":
		return CategoryEconomy
	case "pop-culture", "pop culture", "entertainment":
		return CategoryCulture
	case "world", "world affairs":
		return CategoryGeopolitics
	case "technology", "ai":
		return CategoryTech
	}
	return Classify(label + " " + fallbackText)
}
