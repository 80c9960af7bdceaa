package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Lookup(t *testing.T) {
	reg := DefaultRegistry()

	p, err := reg.Lookup(" deepseek ")
	require.NoError(t, err)
	assert.Equal(t, "DEEPSEEK", p.ID)

	_, err = reg.Lookup("CHATBOT-9000")
	assert.ErrorIs(t, err, ErrUnknownAgent)
	assert.ErrorContains(t, err, "CHATBOT-9000")
}

func TestRegistry_LookupReturnsCopy(t *testing.T) {
	reg := DefaultRegistry()
	p, err := reg.Lookup("GROK")
	require.NoError(t, err)
	p.FocusCategories[0] = "mutated"

	again, err := reg.Lookup("GROK")
	require.NoError(t, err)
	assert.Equal(t, "crypto", again.FocusCategories[0])
}

func TestNewRegistry_Validation(t *testing.T) {
	valid := Builtin()[0]

	_, err := NewRegistry(valid, valid)
	assert.ErrorContains(t, err, "duplicate")

	bad := valid
	bad.ID = "BAD"
	bad.Weights.News = 0
	_, err = NewRegistry(bad)
	assert.ErrorContains(t, err, "weight news")

	bad = valid
	bad.ID = "BAD"
	bad.Risk = "EXTREME"
	_, err = NewRegistry(bad)
	assert.ErrorContains(t, err, "risk tier")
}

func TestRegistry_Subset(t *testing.T) {
	reg := DefaultRegistry()
	sub, err := reg.Subset([]string{"gpt", "kimi"})
	require.NoError(t, err)
	assert.Equal(t, []string{"GPT", "KIMI"}, sub.IDs())

	_, err = reg.Subset([]string{"nope"})
	assert.ErrorIs(t, err, ErrUnknownAgent)
}

func TestFocusMatches(t *testing.T) {
	p := AgentProfile{FocusCategories: []string{"Crypto"}}
	assert.True(t, p.FocusMatches("crypto"))
	assert.False(t, p.FocusMatches("sports"))
	assert.False(t, p.FocusMatches(""))
}
