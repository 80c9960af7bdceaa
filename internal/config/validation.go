package config

import (
	"fmt"
	"strings"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Engine.validate(); err != nil {
		return err
	}
	if err := c.Sources.validate(); err != nil {
		return err
	}
	if err := c.AI.validate(); err != nil {
		return err
	}
	return c.Notify.validate()
}

func (n *NotifyConfig) validate() error {
	tg := n.Telegram
	if tg.Enabled && (strings.TrimSpace(tg.BotToken) == "" || strings.TrimSpace(tg.ChatID) == "") {
		return fmt.Errorf("notify.telegram requires bot_token and chat_id when enabled")
	}
	return nil
}

func (e *EngineConfig) validate() error {
	if e.OracleRatePerSecond <= 0 {
		return fmt.Errorf("engine.oracle_rate_per_second must be > 0")
	}
	if e.AgentConcurrency <= 0 {
		return fmt.Errorf("engine.agent_concurrency must be > 0")
	}
	if e.StartingCapitalUSD <= 0 {
		return fmt.Errorf("engine.starting_capital_usd must be > 0")
	}
	if e.GenerationIntervalSeconds <= 0 || e.LifecycleIntervalSeconds <= 0 {
		return fmt.Errorf("engine intervals must be > 0")
	}
	return nil
}

func (s *SourcesConfig) validate() error {
	if s.Gamma.Enabled && strings.TrimSpace(s.Gamma.BaseURL) == "" {
		return fmt.Errorf("sources.gamma.base_url cannot be empty when gamma is enabled")
	}
	if !s.Gamma.Enabled && strings.TrimSpace(s.Fixture) == "" {
		return fmt.Errorf("sources requires gamma.enabled or fixture_path")
	}
	for i, feed := range s.News.Feeds {
		if strings.TrimSpace(feed) == "" {
			return fmt.Errorf("sources.news.feeds[%d] is empty", i)
		}
	}
	return nil
}

func (a *AIConfig) validate() error {
	models, err := a.ResolveModelConfigs()
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(models))
	for _, m := range models {
		if m.Model == "" {
			return fmt.Errorf("ai.models contains entry without model (id=%s)", m.ID)
		}
		if m.APIURL == "" {
			return fmt.Errorf("ai.models.%s missing api_url (can inherit from preset)", m.ID)
		}
		if seen[m.ID] {
			return fmt.Errorf("ai.models has duplicate id %s", m.ID)
		}
		seen[m.ID] = true
	}
	return nil
}

func errUnknownPreset(modelID, preset string) error {
	return fmt.Errorf("ai.models.%s references unknown preset %s", modelID, preset)
}
