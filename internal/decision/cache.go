package decision

import (
	"context"
	"sync"
	"time"

	"agentdesk/internal/metrics"
)

// DecisionCacheTTL 决策缓存的有效期，保持建议接近实时。
const DecisionCacheTTL = 30 * time.Second

type cacheKey struct {
	agentID  string
	marketID string
}

type cacheEntry struct {
	decision *Decision
	storedAt time.Time
}

// Cache 以 (agent, market) 为键缓存 oracle 结果，读取时惰性淘汰过期项。
// 不交易（nil）同样会被缓存；失败不缓存。
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[cacheKey]cacheEntry
	nowFn   func() time.Time
}

func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DecisionCacheTTL
	}
	return &Cache{ttl: ttl, entries: make(map[cacheKey]cacheEntry), nowFn: time.Now}
}

// Get 返回缓存的决策；ok=false 表示未命中或已过期。
func (c *Cache) Get(agentID, marketID string) (*Decision, bool) {
	key := cacheKey{agentID, marketID}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.nowFn().Sub(entry.storedAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return copyDecision(entry.decision), true
}

func (c *Cache) Set(agentID, marketID string, d *Decision) {
	c.mu.Lock()
	c.entries[cacheKey{agentID, marketID}] = cacheEntry{decision: copyDecision(d), storedAt: c.nowFn()}
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func copyDecision(d *Decision) *Decision {
	if d == nil {
		return nil
	}
	cp := *d
	return &cp
}

// CachedOracle 命中缓存时不再调用下游 oracle。
type CachedOracle struct {
	Inner Oracle
	Cache *Cache
}

func (o CachedOracle) Decide(ctx context.Context, req Request) (*Decision, error) {
	if d, ok := o.Cache.Get(req.AgentID(), req.MarketID()); ok {
		metrics.CacheLookup("decision", true)
		return d, nil
	}
	metrics.CacheLookup("decision", false)
	d, err := o.Inner.Decide(ctx, req)
	if err != nil {
		return nil, err
	}
	o.Cache.Set(req.AgentID(), req.MarketID(), d)
	return d, nil
}
