package market

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// FixtureFile 是离线快照文件格式（SIMULATION 与测试使用）。
type FixtureFile struct {
	Markets []Market      `json:"markets"`
	News    []NewsArticle `json:"news"`
}

// FixtureSource 每次调用都重新读取文件，便于在运行中替换快照。
type FixtureSource struct {
	Path string
	// NewsAge 非零且最新一条新闻早于 now-NewsAge 时，所有新闻按同一偏移整体平移，
	// 使最新一条落在 now-NewsAge，相对先后保持不变。
	NewsAge time.Duration
	nowFn   func() time.Time
}

func NewFixtureSource(path string) *FixtureSource {
	return &FixtureSource{Path: path, nowFn: time.Now}
}

func (f *FixtureSource) read() (FixtureFile, error) {
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return FixtureFile{}, fmt.Errorf("read fixture %s: %w", f.Path, err)
	}
	var file FixtureFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return FixtureFile{}, fmt.Errorf("decode fixture %s: %w", f.Path, err)
	}
	return file, nil
}

func (f *FixtureSource) FetchMarkets(ctx context.Context) ([]Market, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := f.read()
	if err != nil {
		return nil, err
	}
	for i := range file.Markets {
		m := &file.Markets[i]
		m.Category = NormalizeCategory(m.Category, m.Question)
	}
	return file.Markets, nil
}

func (f *FixtureSource) FetchNews(ctx context.Context) ([]NewsArticle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := f.read()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if f.nowFn != nil {
		now = f.nowFn()
	}
	shift := newsShift(file.News, now, f.NewsAge)
	for i := range file.News {
		a := &file.News[i]
		if a.Category == "" {
			a.Category = Classify(a.Title + " " + a.Description)
		}
		if !a.PublishedAt.IsZero() {
			a.PublishedAt = a.PublishedAt.Add(shift)
		}
	}
	return file.News, nil
}

func newsShift(news []NewsArticle, now time.Time, maxAge time.Duration) time.Duration {
	if maxAge <= 0 {
		return 0
	}
	var newest time.Time
	for _, a := range news {
		if a.PublishedAt.After(newest) {
			newest = a.PublishedAt
		}
	}
	if newest.IsZero() || now.Sub(newest) <= maxAge {
		return 0
	}
	return now.Add(-maxAge).Sub(newest)
}
