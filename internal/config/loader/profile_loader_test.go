package loader

import (
	"os"
	"path/filepath"
	"testing"

	"agentdesk/internal/profile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRegistry_AppliesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
agents:
  gpt:
    max_trades: 1
    risk: high
    focus_categories: [tech]
    weights: {volume: 2, liquidity: 1, price_movement: 1, news: 1, probability: 1}
`), 0o644))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	gpt, err := reg.Lookup("GPT")
	require.NoError(t, err)
	assert.Equal(t, 1, gpt.MaxTrades)
	assert.Equal(t, profile.RiskHigh, gpt.Risk)
	assert.Equal(t, []string{"tech"}, gpt.FocusCategories)
	assert.Equal(t, 2.0, gpt.Weights.Volume)

	deepseek, err := reg.Lookup("DEEPSEEK")
	require.NoError(t, err)
	assert.Equal(t, 3, deepseek.MaxTrades)
}

func TestLoadRegistry_Errors(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"unknown agent": "agents:\n  nobody:\n    max_trades: 2\n",
		"unknown field": "agents:\n  gpt:\n    leverage: 2\n",
		"invalid value": "agents:\n  gpt:\n    max_trades: 0\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := LoadRegistry(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadRegistry_MissingFileFallsBack(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, len(profile.Builtin()), reg.Len())
}
