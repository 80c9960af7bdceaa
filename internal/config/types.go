package config

import (
	"os"
	"strings"
)

// Config 是 agentdesk 的主配置载体。
type Config struct {
	App     AppConfig     `toml:"app"`
	Engine  EngineConfig  `toml:"engine"`
	Sources SourcesConfig `toml:"sources"`
	AI      AIConfig      `toml:"ai"`
	Storage StorageConfig `toml:"storage"`
	Notify  NotifyConfig  `toml:"notify"`

	// Features 来自环境变量，不从配置文件读取。
	Features Features `toml:"-"`
}

type AppConfig struct {
	Env           string `toml:"env"`
	LogLevel      string `toml:"log_level"`
	HTTPAddr      string `toml:"http_addr"`
	LogPath       string `toml:"log_path"`
	OracleLogPath string `toml:"oracle_log_path"`
}

// EngineConfig 控制生成/生命周期循环与 oracle 调用保护。
type EngineConfig struct {
	GenerationIntervalSeconds int      `toml:"generation_interval_seconds"`
	LifecycleIntervalSeconds  int      `toml:"lifecycle_interval_seconds"`
	OracleTimeoutSeconds      int      `toml:"oracle_timeout_seconds"`
	OracleRatePerSecond       float64  `toml:"oracle_rate_per_second"`
	OracleBurst               int      `toml:"oracle_burst"`
	BreakerThreshold          int      `toml:"breaker_threshold"`
	BreakerCooldownSeconds    int      `toml:"breaker_cooldown_seconds"`
	AgentConcurrency          int      `toml:"agent_concurrency"`
	StartingCapitalUSD        float64  `toml:"starting_capital_usd"`
	ProfilesPath              string   `toml:"profiles_path"`
	Agents                    []string `toml:"agents"`
}

type SourcesConfig struct {
	Gamma   GammaConfig `toml:"gamma"`
	News    NewsConfig  `toml:"news"`
	Fixture string      `toml:"fixture_path"`
}

// GammaConfig 描述预测市场列表接口。
type GammaConfig struct {
	Enabled        bool    `toml:"enabled"`
	BaseURL        string  `toml:"base_url"`
	Limit          int     `toml:"limit"`
	RatePerSecond  float64 `toml:"rate_per_second"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

type NewsConfig struct {
	Feeds          []string `toml:"feeds"`
	MaxArticles    int      `toml:"max_articles"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

type StorageConfig struct {
	TradesDBPath    string `toml:"trades_db_path"`
	DecisionLogPath string `toml:"decision_log_path"`
}

// NotifyConfig 控制开仓/平仓推送。
type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

// AIConfig 描述 oracle 使用的模型连接。
type AIConfig struct {
	ProviderPresets map[string]ModelPreset `toml:"provider_presets"`
	Models          []AIModelConfig        `toml:"models"`
	MaxTokens       int                    `toml:"max_tokens"`
	Temperature     float64                `toml:"temperature"`
}

// ModelPreset 描述可复用的 API 连接配置。
type ModelPreset struct {
	APIURL  string            `toml:"api_url"`
	APIKey  string            `toml:"api_key"`
	Headers map[string]string `toml:"headers"`
}

// AIModelConfig 对应一个 agent 使用的模型；Agent 为空时作为兜底模型。
type AIModelConfig struct {
	ID      string            `toml:"id"`
	Agent   string            `toml:"agent"`
	Preset  string            `toml:"preset"`
	Enabled bool              `toml:"enabled"`
	APIURL  string            `toml:"api_url"`
	APIKey  string            `toml:"api_key"`
	Model   string            `toml:"model"`
	Headers map[string]string `toml:"headers"`
}

// ResolvedModelConfig 是合并预设后的最终模型配置。
type ResolvedModelConfig struct {
	ID      string
	Agent   string
	APIURL  string
	APIKey  string
	Model   string
	Headers map[string]string
}

// ResolveModelConfigs 合并 preset，返回启用的模型；api_url/api_key 中的 ${VAR} 按环境变量展开。
func (a AIConfig) ResolveModelConfigs() ([]ResolvedModelConfig, error) {
	out := make([]ResolvedModelConfig, 0, len(a.Models))
	for _, m := range a.Models {
		if !m.Enabled {
			continue
		}
		r := ResolvedModelConfig{
			ID:      strings.TrimSpace(m.ID),
			Agent:   strings.ToUpper(strings.TrimSpace(m.Agent)),
			APIURL:  strings.TrimSpace(m.APIURL),
			APIKey:  strings.TrimSpace(m.APIKey),
			Model:   strings.TrimSpace(m.Model),
			Headers: map[string]string{},
		}
		if name := strings.TrimSpace(m.Preset); name != "" {
			preset, ok := a.ProviderPresets[name]
			if !ok {
				return nil, errUnknownPreset(m.ID, name)
			}
			if r.APIURL == "" {
				r.APIURL = preset.APIURL
			}
			if r.APIKey == "" {
				r.APIKey = preset.APIKey
			}
			for k, v := range preset.Headers {
				r.Headers[k] = v
			}
		}
		for k, v := range m.Headers {
			r.Headers[k] = v
		}
		r.APIURL = os.ExpandEnv(r.APIURL)
		r.APIKey = os.ExpandEnv(r.APIKey)
		if r.ID == "" {
			r.ID = r.Model
		}
		out = append(out, r)
	}
	return out, nil
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	_, ok := k[strings.ToLower(strings.TrimSpace(path))]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
