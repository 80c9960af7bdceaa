package decision

import (
	"context"
	"time"

	"agentdesk/internal/gateway/provider"
	"agentdesk/internal/market"
	"agentdesk/internal/profile"
	"agentdesk/internal/scoring"

	"github.com/stretchr/testify/mock"
)

type MockOracle struct {
	mock.Mock
}

func (m *MockOracle) Decide(ctx context.Context, req Request) (*Decision, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Decision), args.Error(1)
}

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) ID() string { return "mock-model" }

func (m *MockProvider) Call(ctx context.Context, payload provider.ChatPayload) (string, error) {
	args := m.Called(ctx, payload)
	return args.String(0), args.Error(1)
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) RecordDecision(ctx context.Context, rec Record) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

type singleProvider struct{ p provider.ModelProvider }

func (s singleProvider) For(string) (provider.ModelProvider, bool) { return s.p, s.p != nil }

var fixedNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func testRequest() Request {
	p := profile.AgentProfile{ID: "GPT", DisplayName: "GPT", Risk: profile.RiskMedium, MinConfidence: 0.6, Persona: "test"}
	m := market.Market{ID: "m-1", Question: "Will it rain?", Category: market.CategoryScience, Probability: 0.62, Volume24h: 80000, Liquidity: 20000}
	return Request{
		Profile: p,
		Market:  scoring.ScoredMarket{Market: m, AgentID: "GPT", Score: 55},
		News: []market.NewsArticle{
			{Title: "Storm front approaching", PublishedAt: fixedNow.Add(-90 * time.Minute)},
		},
		Now: fixedNow,
	}
}
