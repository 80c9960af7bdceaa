package config

import "strings"

const (
	defaultAppEnv            = "dev"
	defaultAppLogLevel       = "info"
	defaultAppHTTPAddr       = ":9991"
	defaultGenerationSeconds = 60
	defaultLifecycleSeconds  = 15
	defaultOracleTimeout     = 20
	defaultOracleRate        = 2.0
	defaultOracleBurst       = 4
	defaultBreakerThreshold  = 5
	defaultBreakerCooldown   = 60
	defaultAgentConcurrency  = 3
	defaultStartingCapital   = 10000
	defaultGammaBaseURL      = "https://gamma-api.polymarket.com"
	defaultGammaLimit        = 200
	defaultGammaRate         = 5.0
	defaultSourceTimeout     = 15
	defaultNewsMaxArticles   = 100
	defaultTradesDBPath      = "data/agentdesk.db"
	defaultDecisionLogPath   = "data/decisions.db"
	defaultAIMaxTokens       = 600
	defaultAITemperature     = 0.3
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Engine.applyDefaults(keys)
	c.Sources.applyDefaults(keys)
	c.AI.applyDefaults(keys)
	c.Storage.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (e *EngineConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		intFieldDefault("engine.generation_interval_seconds", &e.GenerationIntervalSeconds, defaultGenerationSeconds),
		intFieldDefault("engine.lifecycle_interval_seconds", &e.LifecycleIntervalSeconds, defaultLifecycleSeconds),
		intFieldDefault("engine.oracle_timeout_seconds", &e.OracleTimeoutSeconds, defaultOracleTimeout),
		intFieldDefault("engine.oracle_burst", &e.OracleBurst, defaultOracleBurst),
		intFieldDefault("engine.breaker_threshold", &e.BreakerThreshold, defaultBreakerThreshold),
		intFieldDefault("engine.breaker_cooldown_seconds", &e.BreakerCooldownSeconds, defaultBreakerCooldown),
		intFieldDefault("engine.agent_concurrency", &e.AgentConcurrency, defaultAgentConcurrency),
		floatFieldDefault("engine.oracle_rate_per_second", &e.OracleRatePerSecond, defaultOracleRate),
		floatFieldDefault("engine.starting_capital_usd", &e.StartingCapitalUSD, defaultStartingCapital),
	)
	e.Agents = normalizeAgentList(e.Agents)
}

func (s *SourcesConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		boolFieldDefault("sources.gamma.enabled", &s.Gamma.Enabled, true),
		stringFieldDefault("sources.gamma.base_url", &s.Gamma.BaseURL, defaultGammaBaseURL),
		intFieldDefault("sources.gamma.limit", &s.Gamma.Limit, defaultGammaLimit),
		intFieldDefault("sources.gamma.timeout_seconds", &s.Gamma.TimeoutSeconds, defaultSourceTimeout),
		floatFieldDefault("sources.gamma.rate_per_second", &s.Gamma.RatePerSecond, defaultGammaRate),
		intFieldDefault("sources.news.max_articles", &s.News.MaxArticles, defaultNewsMaxArticles),
		intFieldDefault("sources.news.timeout_seconds", &s.News.TimeoutSeconds, defaultSourceTimeout),
	)
}

func (a *AIConfig) applyDefaults(keys keySet) {
	if a.ProviderPresets == nil {
		a.ProviderPresets = make(map[string]ModelPreset)
	}
	applyFieldDefaults(keys,
		intFieldDefault("ai.max_tokens", &a.MaxTokens, defaultAIMaxTokens),
		floatFieldDefault("ai.temperature", &a.Temperature, defaultAITemperature),
	)
}

func (s *StorageConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("storage.trades_db_path", &s.TradesDBPath, defaultTradesDBPath),
		stringFieldDefault("storage.decision_log_path", &s.DecisionLogPath, defaultDecisionLogPath),
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return strings.TrimSpace(*target) == "" },
		apply: func() { *target = def },
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = def },
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = def },
	}
}

// boolFieldDefault 仅在配置文件未显式设置时生效。
func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:   key,
		apply: func() { *target = def },
	}
}

func normalizeAgentList(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.ToUpper(strings.TrimSpace(id))
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
