package decision

import (
	"fmt"
	"strings"
	"text/template"
	"time"
)

var systemTemplate = template.Must(template.New("system").Parse(`You are {{.Profile.DisplayName}}, an autonomous prediction-market trader.
Persona: {{.Profile.Persona}}
Risk tier: {{.Profile.Risk}}. Only recommend a trade when your confidence is at least {{printf "%.2f" .Profile.MinConfidence}}.
Prices are the market-implied probability of YES. Buying YES profits when the probability rises; buying NO profits when it falls.
Respond with a single JSON object and nothing else:
{"action": "YES" | "NO" | "PASS", "confidence": <0..1>, "reasoning": "<one or two sentences>"}`))

var userTemplate = template.Must(template.New("user").Funcs(template.FuncMap{
	"pct": func(v float64) string { return fmt.Sprintf("%.1f%%", v*100) },
	"usd": func(v float64) string { return fmt.Sprintf("$%.0f", v) },
	"ago": func(now, t time.Time) string { return now.Sub(t).Truncate(time.Minute).String() },
}).Parse(`Market: {{.Market.Market.Question}}
Category: {{.Market.Market.Category}}
YES probability: {{pct .Market.Market.Probability}} (24h change {{pct .Market.Market.PriceChange24h}})
24h volume: {{usd .Market.Market.Volume24h}} | 7d volume: {{usd .Market.Market.Volume7d}} | liquidity: {{usd .Market.Market.Liquidity}}
Desirability score: {{printf "%.1f" .Market.Score}}
{{- if .News}}
Relevant news:
{{- range .News}}
- [{{ago $.Now .PublishedAt}} ago] {{.Title}}{{if .Description}}: {{.Description}}{{end}}
{{- end}}
{{- else}}
No relevant news.
{{- end}}`))

// RenderPrompts 生成 system/user 提示词。
func RenderPrompts(req Request) (string, string, error) {
	var sys, usr strings.Builder
	if err := systemTemplate.Execute(&sys, req); err != nil {
		return "", "", fmt.Errorf("render system prompt: %w", err)
	}
	if err := userTemplate.Execute(&usr, req); err != nil {
		return "", "", fmt.Errorf("render user prompt: %w", err)
	}
	return sys.String(), usr.String(), nil
}
