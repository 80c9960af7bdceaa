package market

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"Will the Republican nominee win the 2028 presidential election?", CategoryElections},
		{"Will the Senate confirm the nominee for Supreme Court?", CategoryElections},
		{"Will the Senate pass the budget bill?", CategoryPolitics},
		{"Bitcoin above $150k by December?", CategoryCrypto},
		{"Will the Fed cut interest rates in March?", CategoryEconomy},
		{"Ceasefire in Gaza before July?", CategoryGeopolitics},
		{"Will OpenAI release a new model?", CategoryTech},
		{"Who wins the NBA championship?", CategorySports},
		{"Best Picture at the Oscars", CategoryCulture},
		{"Will it snow in Lisbon?", CategoryOther},
		{"Will Oppenheimer win the Best Picture award?", CategoryOther},
		{"Will it rain in London together with snow?", CategoryOther},
		{"Whether the bridge opens on time", CategoryOther},
		{"Who wins the 2026 Wimbledon championships?", CategorySports},
		{"Will the House vote to impeachment hearings?", CategoryPolitics},
		{"New sanctions on Russia before June?", CategoryGeopolitics},
		{"ETH above $5k?", CategoryCrypto},
		{"Will the Fed hike in June?", CategoryEconomy},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.text))
		})
	}
}

func TestNormalizeCategory(t *testing.T) {
	assert.Equal(t, CategoryCrypto, NormalizeCategory("Crypto", ""))
	assert.Equal(t, CategoryEconomy, NormalizeCategory("Business", ""))
	assert.Equal(t, CategorySports, NormalizeCategory("", "Super Bowl winner"))
}

func TestSortedIDs(t *testing.T) {
	ids := SortedIDs([]Market{{ID: "c"}, {ID: "a"}, {ID: "b"}})
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestFixtureSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "markets": [{"id": "m1", "question": "Bitcoin above 100k?", "probability": 0.4, "volume_24h": 60000, "liquidity": 12000}],
  "news": [{"id": "n1", "title": "Bitcoin ETF sees record inflows", "published_at": "2026-01-01T00:00:00Z"}]
}`), 0o644))

	src := NewFixtureSource(path)
	markets, err := src.FetchMarkets(context.Background())
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, CategoryCrypto, markets[0].Category)

	news, err := src.FetchNews(context.Background())
	require.NoError(t, err)
	require.Len(t, news, 1)
	assert.Equal(t, CategoryCrypto, news[0].Category)
}

func TestFixtureSource_ShiftsNewsTogether(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "markets": [],
  "news": [
    {"id": "old", "title": "Senate debate", "published_at": "2026-01-01T00:00:00Z"},
    {"id": "newest", "title": "Senate vote", "published_at": "2026-01-01T05:00:00Z"},
    {"id": "undated", "title": "Undated note"}
  ]
}`), 0o644))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("stale news is shifted by one offset", func(t *testing.T) {
		src := NewFixtureSource(path)
		src.NewsAge = 6 * time.Hour
		src.nowFn = func() time.Time { return now }
		news, err := src.FetchNews(context.Background())
		require.NoError(t, err)
		require.Len(t, news, 3)
		assert.True(t, news[1].PublishedAt.Equal(now.Add(-6*time.Hour)))
		assert.Equal(t, 5*time.Hour, news[1].PublishedAt.Sub(news[0].PublishedAt))
		assert.True(t, news[2].PublishedAt.IsZero())
	})

	t.Run("fresh news is untouched", func(t *testing.T) {
		src := NewFixtureSource(path)
		src.NewsAge = 6 * time.Hour
		src.nowFn = func() time.Time { return time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC) }
		news, err := src.FetchNews(context.Background())
		require.NoError(t, err)
		assert.True(t, news[1].PublishedAt.Equal(time.Date(2026, 1, 1, 5, 0, 0, 0, time.UTC)))
	})
}
