package decision

import (
	"context"
	"errors"
	"strings"
	"testing"

	"agentdesk/internal/gateway/provider"
	"agentdesk/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLLMOracle_Decide(t *testing.T) {
	req := testRequest()
	p := new(MockProvider)
	p.On("Call", mock.Anything, mock.MatchedBy(func(pl provider.ChatPayload) bool {
		return pl.ExpectJSON && strings.Contains(pl.User, "Will it rain?") && strings.Contains(pl.User, "Storm front approaching")
	})).Return(`{"action":"YES","confidence":0.8,"reasoning":"storm"}`, nil)
	rec := new(MockRecorder)
	rec.On("RecordDecision", mock.Anything, mock.MatchedBy(func(r Record) bool {
		return r.AgentID == "GPT" && r.MarketID == "m-1" && r.Decision != nil && r.Error == ""
	})).Return(nil)

	o := &LLMOracle{Providers: singleProvider{p}, Recorder: rec, MaxTokens: 200}
	d, err := o.Decide(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, types.SideYes, d.Side)
	assert.Equal(t, "mock-model", d.Source)
	p.AssertExpectations(t)
	rec.AssertExpectations(t)
}

func TestLLMOracle_BelowFloorIsNoTrade(t *testing.T) {
	p := new(MockProvider)
	p.On("Call", mock.Anything, mock.Anything).Return(`{"action":"NO","confidence":0.55}`, nil)
	o := &LLMOracle{Providers: singleProvider{p}}
	d, err := o.Decide(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestLLMOracle_Errors(t *testing.T) {
	o := &LLMOracle{Providers: singleProvider{}}
	_, err := o.Decide(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrNoProvider)

	p := new(MockProvider)
	p.On("Call", mock.Anything, mock.Anything).Return("", errors.New("503"))
	rec := new(MockRecorder)
	rec.On("RecordDecision", mock.Anything, mock.MatchedBy(func(r Record) bool { return r.Error == "503" })).Return(errors.New("disk full"))
	o = &LLMOracle{Providers: singleProvider{p}, Recorder: rec}
	_, err = o.Decide(context.Background(), testRequest())
	assert.EqualError(t, err, "503")
	rec.AssertExpectations(t)
}

func TestHeuristicOracle(t *testing.T) {
	req := testRequest()
	req.Market.Components.Probability = 0.9
	req.Market.Components.News = 0.5
	req.Market.Market.PriceHistory = []float64{0.50, 0.62}

	d, err := HeuristicOracle{}.Decide(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, types.SideYes, d.Side)
	assert.InDelta(t, 0.865, d.Confidence, 1e-9)

	again, _ := HeuristicOracle{}.Decide(context.Background(), req)
	assert.Equal(t, d, again)

	req.Market.Market.PriceHistory = []float64{0.70, 0.62}
	d, _ = HeuristicOracle{}.Decide(context.Background(), req)
	require.NotNil(t, d)
	assert.Equal(t, types.SideNo, d.Side)

	req.Market.Components.Probability = 0
	req.Market.Components.News = 0
	d, err = HeuristicOracle{}.Decide(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, d, "0.45 confidence is below the 0.6 floor")
}

func TestRenderPrompts(t *testing.T) {
	sys, usr, err := RenderPrompts(testRequest())
	require.NoError(t, err)
	assert.Contains(t, sys, "at least 0.60")
	assert.Contains(t, usr, "YES probability: 62.0%")
	assert.Contains(t, usr, "[1h30m0s ago] Storm front approaching")
}
