package gamma

import (
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://gamma-api.polymarket.com"
	defaultLimit   = 200
	maxLimit       = 500
)

type Config struct {
	BaseURL       string
	Limit         int
	RatePerSecond float64
	HTTPTimeout   time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	out.BaseURL = strings.TrimRight(strings.TrimSpace(out.BaseURL), "/")
	if out.BaseURL == "" {
		out.BaseURL = defaultBaseURL
	}
	if out.Limit <= 0 {
		out.Limit = defaultLimit
	}
	if out.Limit > maxLimit {
		out.Limit = maxLimit
	}
	if out.RatePerSecond <= 0 {
		out.RatePerSecond = 5
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 15 * time.Second
	}
	return out
}
