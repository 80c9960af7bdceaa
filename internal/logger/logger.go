package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	levelVar slog.LevelVar
	mu       sync.RWMutex
	base     *slog.Logger
)

func init() {
	levelVar.Set(slog.LevelInfo)
	base = build(os.Stdout)
}

func build(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: &levelVar}))
}

// SetOutput 切换日志输出（例如 stdout + 文件）。
func SetOutput(w io.Writer) {
	mu.Lock()
	base = build(w)
	mu.Unlock()
}

// ParseLevel 将配置中的级别字符串转换为 slog.Level，未知值回落到 info。
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func SetLevel(level string) {
	levelVar.Set(ParseLevel(level))
}

func Level() slog.Level {
	return levelVar.Level()
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func Debugf(format string, v ...any) {
	current().Debug(fmt.Sprintf(format, v...))
}

func Infof(format string, v ...any) {
	current().Info(fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...any) {
	current().Warn(fmt.Sprintf(format, v...))
}

func Errorf(format string, v ...any) {
	current().Error(fmt.Sprintf(format, v...))
}

// Agent 返回带 agent 字段的 slog.Logger，供按 agent 维度输出结构化日志。
func Agent(agentID string) *slog.Logger {
	return current().With(slog.String("agent", agentID))
}

// InfoBlock 按行输出多行文本。
func InfoBlock(block string) {
	block = strings.TrimSpace(block)
	if block == "" {
		return
	}
	for _, line := range strings.Split(block, "\n") {
		Infof("%s", line)
	}
}
