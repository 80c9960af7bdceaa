package app

import (
	"fmt"
	"strings"
	"time"

	"agentdesk/internal/config"
	"agentdesk/internal/engine"
	"agentdesk/internal/gateway/gamma"
	"agentdesk/internal/gateway/news"
	"agentdesk/internal/market"
	"agentdesk/internal/portfolio"
	"agentdesk/internal/profile"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)
	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Width(14)
	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#10B981")).
			Padding(0, 1)
	gainStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	lossStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
)

// StartupSummary 是启动配置摘要。
type StartupSummary struct {
	Mode            config.Mode
	Features        config.Features
	Agents          []profile.AgentProfile
	MarketSource    string
	NewsSource      string
	Oracle          string
	HTTPAddr        string
	GenerationEvery time.Duration
	LifecycleEvery  time.Duration
	TradesDB        string
	DecisionLog     string
}

func buildSummary(cfg *config.Config, reg *profile.Registry, markets market.MarketSource, newsSrc market.NewsSource, oracle string) *StartupSummary {
	return &StartupSummary{
		Mode:            cfg.Features.Mode,
		Features:        cfg.Features,
		Agents:          reg.All(),
		MarketSource:    describeSource(markets),
		NewsSource:      describeSource(newsSrc),
		Oracle:          oracle,
		HTTPAddr:        cfg.App.HTTPAddr,
		GenerationEvery: time.Duration(cfg.Engine.GenerationIntervalSeconds) * time.Second,
		LifecycleEvery:  time.Duration(cfg.Engine.LifecycleIntervalSeconds) * time.Second,
		TradesDB:        cfg.Storage.TradesDBPath,
		DecisionLog:     cfg.Storage.DecisionLogPath,
	}
}

func describeSource(src any) string {
	switch s := src.(type) {
	case *gamma.Source:
		return "gamma"
	case *news.RSSClient:
		return "rss"
	case *market.FixtureSource:
		return "fixture(" + s.Path + ")"
	case market.NoNews:
		return "disabled"
	case nil:
		return "-"
	default:
		return fmt.Sprintf("%T", src)
	}
}

func line(label, value string) string {
	return labelStyle.Render(label) + " " + value
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// Render 返回带样式的摘要文本。
func (s *StartupSummary) Render() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("agentdesk 启动配置摘要"))
	b.WriteString("\n")

	runtime := strings.Join([]string{
		line("模式", string(s.Mode)),
		line("生命周期", onOff(s.Features.Lifecycle)),
		line("自适应评分", onOff(s.Features.AdaptiveScoring)),
		line("新闻搜索", onOff(s.Features.NewsSearch)),
		line("Oracle", s.Oracle),
		line("市场源", s.MarketSource),
		line("新闻源", s.NewsSource),
		line("生成周期", s.GenerationEvery.String()),
		line("扫描周期", s.LifecycleEvery.String()),
		line("HTTP", s.HTTPAddr),
		line("交易库", s.TradesDB),
		line("决策日志", s.DecisionLog),
	}, "\n")
	b.WriteString(boxStyle.Render(runtime))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("[Agents]"))
	b.WriteString("\n")
	b.WriteString(agentsTable(s.Agents))
	return b.String()
}

func (s *StartupSummary) Print() {
	fmt.Println(s.Render())
}

func agentsTable(agents []profile.AgentProfile) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "NAME", "RISK", "MAX", "MIN CONF", "MAX POS", "FOCUS")
	for _, p := range agents {
		focus := "-"
		if len(p.FocusCategories) > 0 {
			focus = strings.Join(p.FocusCategories, ",")
		}
		t.Row(p.ID, p.DisplayName, string(p.Risk),
			fmt.Sprintf("%d", p.MaxTrades),
			fmt.Sprintf("%.2f", p.MinConfidence),
			fmt.Sprintf("$%.0f", p.MaxPositionUSD),
			focus)
	}
	return t.String()
}

// RenderAgents 渲染 agent 列表（CLI agents 命令）。
func RenderAgents(agents []profile.AgentProfile) string {
	return agentsTable(agents)
}

// RenderCycle 渲染一次生成周期的结果。
func RenderCycle(res *engine.CycleResult) string {
	if res == nil {
		return ""
	}
	head := titleStyle.Render(fmt.Sprintf("cycle %s", res.CycleID)) +
		fmt.Sprintf("  markets=%d news=%d", res.Markets, res.News)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("AGENT", "TRADES", "OPENED", "SUPPRESSED", "FLIPPED", "CACHED", "ERROR")
	for _, a := range res.Agents {
		errText := a.Error
		if errText == "" {
			errText = "-"
		}
		t.Row(a.AgentID,
			fmt.Sprintf("%d", len(a.Trades)),
			fmt.Sprintf("%d", a.Opened),
			fmt.Sprintf("%d", a.Suppressed),
			fmt.Sprintf("%d", len(a.Flipped)),
			fmt.Sprintf("%v", a.Cached),
			errText)
	}
	var b strings.Builder
	b.WriteString(head)
	b.WriteString("\n")
	b.WriteString(t.String())
	for _, a := range res.Agents {
		for _, tr := range a.Trades {
			b.WriteString(fmt.Sprintf("\n  %s %-3s $%-8.2f conf=%.2f score=%5.1f  %s",
				a.AgentID, tr.Side, tr.InvestmentUSD, tr.Confidence, tr.Score, tr.Question))
		}
	}
	return b.String()
}

// RenderLeaderboard 渲染各 agent 盈亏排行。
func RenderLeaderboard(summary portfolio.SummaryStats) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("AGENT", "CAPITAL", "PNL", "REALIZED", "OPEN", "CLOSED", "WIN RATE")
	for _, s := range summary.Agents {
		t.Row(s.AgentID,
			fmt.Sprintf("%.2f", s.TotalCapital),
			pnl(s.TotalPnL),
			pnl(s.RealizedPnL),
			fmt.Sprintf("%d", s.OpenPositions),
			fmt.Sprintf("%d", s.ClosedTrades),
			fmt.Sprintf("%.0f%%", s.WinRate*100))
	}
	best := "-"
	if summary.BestAgentByPnL != nil {
		best = *summary.BestAgentByPnL
	}
	return t.String() + "\n" + line("最佳 agent", best)
}

func pnl(v float64) string {
	text := fmt.Sprintf("%+.2f", v)
	if v < 0 {
		return lossStyle.Render(text)
	}
	return gainStyle.Render(text)
}
