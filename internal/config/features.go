package config

import (
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Mode 是引擎运行模式。
type Mode string

const (
	ModeLive       Mode = "LIVE"
	ModeSimulation Mode = "SIMULATION"
	ModeDebug      Mode = "DEBUG"
)

const EnvPrefix = "AGENTDESK"

// Features 描述启动时从环境变量读取的模式与功能开关。
type Features struct {
	Mode            Mode `json:"mode"`
	Lifecycle       bool `json:"lifecycle"`
	AdaptiveScoring bool `json:"adaptive_scoring"`
	NewsSearch      bool `json:"news_search"`
}

// UsesExternalOracle 表示该模式是否调用外部模型。
func (f Features) UsesExternalOracle() bool {
	return f.Mode == ModeLive || f.Mode == ModeDebug
}

var (
	featuresOnce sync.Once
	features     Features
)

// CurrentFeatures 返回进程级开关；首次调用时读取环境变量，之后不再变化。
func CurrentFeatures() Features {
	featuresOnce.Do(func() {
		features = ReadFeatures()
	})
	return features
}

// ReadFeatures 直接读取当前环境变量：
// AGENTDESK_MODE, AGENTDESK_FEATURE_LIFECYCLE, AGENTDESK_FEATURE_ADAPTIVE_SCORING, AGENTDESK_FEATURE_NEWS_SEARCH。
func ReadFeatures() Features {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetDefault("mode", string(ModeSimulation))
	v.SetDefault("feature_lifecycle", true)
	v.SetDefault("feature_adaptive_scoring", false)
	v.SetDefault("feature_news_search", true)
	return Features{
		Mode:            ParseMode(v.GetString("mode")),
		Lifecycle:       v.GetBool("feature_lifecycle"),
		AdaptiveScoring: v.GetBool("feature_adaptive_scoring"),
		NewsSearch:      v.GetBool("feature_news_search"),
	}
}

// ParseMode 解析模式字符串，无法识别时回落到 SIMULATION。
func ParseMode(raw string) Mode {
	switch Mode(strings.ToUpper(strings.TrimSpace(raw))) {
	case ModeLive:
		return ModeLive
	case ModeDebug:
		return ModeDebug
	default:
		return ModeSimulation
	}
}
