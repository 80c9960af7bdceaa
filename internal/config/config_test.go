package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
app:
  log_level: debug
sources:
  gamma:
    enabled: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, defaultAppHTTPAddr, cfg.App.HTTPAddr)
	assert.Equal(t, defaultOracleTimeout, cfg.Engine.OracleTimeoutSeconds)
	assert.Equal(t, float64(defaultStartingCapital), cfg.Engine.StartingCapitalUSD)
	assert.Equal(t, defaultGammaBaseURL, cfg.Sources.Gamma.BaseURL)
	assert.Equal(t, defaultTradesDBPath, cfg.Storage.TradesDBPath)
}

func TestLoad_IncludeOrderAndExplicitFalse(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
engine:
  agent_concurrency: 7
  agents: [deepseek, " gpt ", DEEPSEEK]
sources:
  gamma:
    enabled: true
`)
	path := writeFile(t, dir, "config.yaml", `
include: [base.yaml]
engine:
  agent_concurrency: 2
sources:
  fixture_path: testdata/markets.json
  gamma:
    enabled: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Engine.AgentConcurrency)
	assert.Equal(t, []string{"DEEPSEEK", "GPT"}, cfg.Engine.Agents)
	assert.False(t, cfg.Sources.Gamma.Enabled)
}

func TestLoad_IncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include: [b.yaml]\n")
	writeFile(t, dir, "b.yaml", "include: [a.yaml]\n")
	_, err := Load(filepath.Join(dir, "a.yaml"))
	assert.ErrorContains(t, err, "include cycle")
}

func TestLoad_RejectsUnknownPreset(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
ai:
  models:
    - id: m1
      preset: missing
      enabled: true
      model: gpt-4o-mini
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "unknown preset")
}

func TestResolveModelConfigs_MergesPreset(t *testing.T) {
	ai := AIConfig{
		ProviderPresets: map[string]ModelPreset{
			"openai": {APIURL: "https://api.example.com/v1", APIKey: "k", Headers: map[string]string{"X-A": "1"}},
		},
		Models: []AIModelConfig{
			{ID: "gpt", Agent: "gpt", Preset: "openai", Enabled: true, Model: "gpt-4o", Headers: map[string]string{"X-B": "2"}},
			{ID: "off", Enabled: false, Model: "x"},
		},
	}
	models, err := ai.ResolveModelConfigs()
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "GPT", models[0].Agent)
	assert.Equal(t, "https://api.example.com/v1", models[0].APIURL)
	assert.Equal(t, map[string]string{"X-A": "1", "X-B": "2"}, models[0].Headers)
}

func TestReadFeatures(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		f := ReadFeatures()
		assert.Equal(t, ModeSimulation, f.Mode)
		assert.True(t, f.Lifecycle)
		assert.False(t, f.AdaptiveScoring)
		assert.True(t, f.NewsSearch)
		assert.False(t, f.UsesExternalOracle())
	})
	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("AGENTDESK_MODE", "debug")
		t.Setenv("AGENTDESK_FEATURE_LIFECYCLE", "false")
		t.Setenv("AGENTDESK_FEATURE_ADAPTIVE_SCORING", "1")
		t.Setenv("AGENTDESK_FEATURE_NEWS_SEARCH", "0")
		f := ReadFeatures()
		assert.Equal(t, ModeDebug, f.Mode)
		assert.False(t, f.Lifecycle)
		assert.True(t, f.AdaptiveScoring)
		assert.False(t, f.NewsSearch)
		assert.True(t, f.UsesExternalOracle())
	})
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeLive, ParseMode(" live "))
	assert.Equal(t, ModeSimulation, ParseMode("paper"))
	assert.Equal(t, ModeSimulation, ParseMode(""))
}
