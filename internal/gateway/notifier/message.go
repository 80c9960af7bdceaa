package notifier

import (
	"fmt"
	"strings"
	"time"

	"agentdesk/internal/pkg/text"
	"agentdesk/internal/types"
)

const (
	maxStructuredMessageLen = 3800
	maxQuestionLen          = 160
)

// MessageSection 表示通知中的一个段落。
type MessageSection struct {
	Title string
	Lines []string
}

// StructuredMessage 描述统一格式的推送。
type StructuredMessage struct {
	Icon      string
	Title     string
	Sections  []MessageSection
	Footer    string
	Timestamp time.Time
}

// RenderMarkdown 生成 Markdown 文本，自动裁剪长度。
func (m StructuredMessage) RenderMarkdown() string {
	var b strings.Builder
	if header := strings.TrimSpace(m.Icon + " " + m.Title); header != "" {
		b.WriteString(header + "\n\n")
	}
	b.WriteString(renderSections(m.Sections))
	if footer := strings.TrimSpace(m.Footer); footer != "" {
		b.WriteString(sanitize(footer))
		b.WriteString("\n")
	}
	if !m.Timestamp.IsZero() {
		b.WriteString("时间：" + m.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))
	}
	return text.Truncate(strings.TrimSpace(b.String()), maxStructuredMessageLen)
}

func renderSections(secs []MessageSection) string {
	var body strings.Builder
	first := true
	for _, sec := range secs {
		lines := sanitizeLines(sec.Lines)
		if len(lines) == 0 {
			continue
		}
		if !first {
			body.WriteString("\n")
		}
		first = false
		if title := strings.TrimSpace(sec.Title); title != "" {
			body.WriteString(sanitize(title) + "\n")
		}
		for _, line := range lines {
			body.WriteString("- " + sanitize(line) + "\n")
		}
	}
	if body.Len() == 0 {
		return ""
	}
	return "```\n" + body.String() + "```\n\n"
}

func sanitizeLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if s := strings.TrimSpace(line); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func sanitize(s string) string {
	return strings.ReplaceAll(s, "```", "'''")
}

// TradesOpenedMessage 汇总某 agent 本轮新开的仓位。
func TradesOpenedMessage(agentID string, trades []types.AgentTrade, at time.Time) StructuredMessage {
	secs := make([]MessageSection, 0, len(trades))
	for _, t := range trades {
		secs = append(secs, MessageSection{
			Title: text.Truncate(t.Question, maxQuestionLen),
			Lines: []string{
				fmt.Sprintf("方向 %s  金额 $%.2f  置信度 %.2f", t.Side, t.InvestmentUSD, t.Confidence),
				fmt.Sprintf("入场概率 %.3f  评分 %.1f", t.EntryProbability, t.Score),
				text.Truncate(t.Reasoning, maxQuestionLen),
			},
		})
	}
	return StructuredMessage{
		Icon:      "🟢",
		Title:     fmt.Sprintf("%s 开仓 %d 笔", agentID, len(trades)),
		Sections:  secs,
		Timestamp: at,
	}
}

// PositionClosedMessage 描述一次平仓。
func PositionClosedMessage(c types.ClosedPosition) StructuredMessage {
	icon := "✅"
	if c.RealizedPnL < 0 {
		icon = "🔴"
	}
	pos := c.Position
	return StructuredMessage{
		Icon:  icon,
		Title: fmt.Sprintf("%s 平仓 %s (%s)", c.AgentID, pos.MarketID, c.Reason),
		Sections: []MessageSection{{
			Lines: []string{
				fmt.Sprintf("方向 %s  仓位 $%.2f", pos.Side, pos.SizeUSD),
				fmt.Sprintf("入场 %.3f -> 出场 %.3f", pos.EntryProbability, c.ExitProbability),
				fmt.Sprintf("已实现盈亏 %+.2f", c.RealizedPnL),
			},
		}},
		Timestamp: c.ClosedAt,
	}
}
