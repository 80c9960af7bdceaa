package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"agentdesk/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) SendText(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

func sampleTrade(agent, market string) types.AgentTrade {
	return types.AgentTrade{
		ID: "t-" + market, AgentID: agent, MarketID: market, Question: "Will it rain?",
		Side: types.SideYes, Confidence: 0.8, InvestmentUSD: 400, EntryProbability: 0.6, Score: 71.5,
		Reasoning: "clouds",
	}
}

func TestRenderMarkdown(t *testing.T) {
	t.Run("opened trades", func(t *testing.T) {
		msg := TradesOpenedMessage("GPT", []types.AgentTrade{sampleTrade("GPT", "m-1")}, at)
		out := msg.RenderMarkdown()
		assert.True(t, strings.HasPrefix(out, "🟢 GPT 开仓 1 笔"))
		assert.Contains(t, out, "Will it rain?")
		assert.Contains(t, out, "$400.00")
		assert.Contains(t, out, "2026-03-01 12:00:00 UTC")
	})

	t.Run("closed position sign", func(t *testing.T) {
		c := types.ClosedPosition{
			AgentID:         "GPT",
			Position:        types.Position{MarketID: "m-1", Side: types.SideYes, EntryProbability: 0.6, SizeUSD: 400},
			ExitProbability: 0.45,
			RealizedPnL:     -60,
			Reason:          types.CloseStopLoss,
			ClosedAt:        at,
		}
		out := PositionClosedMessage(c).RenderMarkdown()
		assert.True(t, strings.HasPrefix(out, "🔴"))
		assert.Contains(t, out, "-60.00")
		assert.Contains(t, out, "stop_loss")
	})

	t.Run("code fences are escaped and empty sections skipped", func(t *testing.T) {
		msg := StructuredMessage{Title: "x", Sections: []MessageSection{{Title: "empty"}, {Lines: []string{"a ``` b"}}}}
		out := msg.RenderMarkdown()
		assert.NotContains(t, out, "empty")
		assert.Contains(t, out, "a ''' b")
	})
}

func TestTelegramSendText(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "chat-1", body["chat_id"])
		assert.Equal(t, "hello", body["text"])
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram(srv.URL, "TOKEN", "chat-1")
	require.NoError(t, tg.SendText(context.Background(), "hello"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTelegramClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewTelegram(srv.URL, "TOKEN", "chat-1").SendText(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestDispatcher(t *testing.T) {
	sender := new(MockSender)
	done := make(chan struct{}, 3)
	sender.On("SendText", mock.Anything, mock.Anything).Return(nil).Run(func(mock.Arguments) { done <- struct{}{} })

	d := NewDispatcher(sender, 8)
	d.nowFn = func() time.Time { return at }
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	d.TradesOpened([]types.AgentTrade{sampleTrade("GPT", "m-1"), sampleTrade("GROK", "m-1"), sampleTrade("GPT", "m-2")})
	d.PositionsClosed([]types.ClosedPosition{{AgentID: "GPT", Reason: types.CloseTakeProfit, ClosedAt: at}})

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("dispatcher did not deliver")
		}
	}
	sender.AssertNumberOfCalls(t, "SendText", 3)
	sender.AssertCalled(t, "SendText", mock.Anything, mock.MatchedBy(func(s string) bool {
		return strings.Contains(s, "GPT 开仓 2 笔")
	}))
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	d := NewDispatcher(new(MockSender), 1)
	d.PositionsClosed([]types.ClosedPosition{{AgentID: "A"}, {AgentID: "B"}})
	assert.Len(t, d.queue, 1)
}
