package trade

import (
	"slices"
	"sort"
	"sync"
	"time"

	"agentdesk/internal/metrics"
	"agentdesk/internal/types"
)

const (
	// AgentTradeCacheTTL 严格查询（Get）的有效期。
	AgentTradeCacheTTL = 30 * time.Second
	// AgentTradeCacheRelaxedTTL 供只读汇总等对时效不敏感的调用方使用（GetQuick）。
	AgentTradeCacheRelaxedTTL = 2 * time.Minute
)

type cacheEntry struct {
	trades    []types.AgentTrade
	marketIDs []string
	storedAt  time.Time
}

// Cache 缓存每个 agent 最近一次生成的完整交易列表。
// 命中要求未过期且当前市场 id 集合与写入时逐项一致；任何不一致都会淘汰该条目。
type Cache struct {
	mu         sync.Mutex
	ttl        time.Duration
	relaxedTTL time.Duration
	entries    map[string]cacheEntry
	nowFn      func() time.Time
}

func NewCache(ttl, relaxedTTL time.Duration) *Cache {
	if ttl <= 0 {
		ttl = AgentTradeCacheTTL
	}
	if relaxedTTL <= 0 {
		relaxedTTL = AgentTradeCacheRelaxedTTL
	}
	return &Cache{
		ttl:        ttl,
		relaxedTTL: relaxedTTL,
		entries:    make(map[string]cacheEntry),
		nowFn:      time.Now,
	}
}

// Get 返回缓存的交易列表；nil 表示未命中（包括过期与市场集合变化）。
func (c *Cache) Get(agentID string, marketIDs []string) []types.AgentTrade {
	fingerprint := sortedCopy(marketIDs)
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[agentID]
	if !ok {
		metrics.CacheLookup("agent_trades", false)
		return nil
	}
	if c.nowFn().Sub(entry.storedAt) >= c.ttl || !slices.Equal(entry.marketIDs, fingerprint) {
		delete(c.entries, agentID)
		metrics.CacheLookup("agent_trades", false)
		return nil
	}
	metrics.CacheLookup("agent_trades", true)
	return cloneTrades(entry.trades)
}

// GetQuick 跳过市场集合校验，只按宽松 TTL 判断。
func (c *Cache) GetQuick(agentID string) []types.AgentTrade {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[agentID]
	if !ok {
		return nil
	}
	if c.nowFn().Sub(entry.storedAt) >= c.relaxedTTL {
		delete(c.entries, agentID)
		return nil
	}
	return cloneTrades(entry.trades)
}

// Set 记录交易列表以及生成时的市场 id 集合。空列表同样是有效结果。
func (c *Cache) Set(agentID string, trades []types.AgentTrade, marketIDs []string) {
	entry := cacheEntry{
		trades:    cloneTrades(trades),
		marketIDs: sortedCopy(marketIDs),
	}
	if entry.trades == nil {
		entry.trades = []types.AgentTrade{}
	}
	c.mu.Lock()
	entry.storedAt = c.nowFn()
	c.entries[agentID] = entry
	c.mu.Unlock()
}

func (c *Cache) Invalidate(agentID string) {
	c.mu.Lock()
	delete(c.entries, agentID)
	c.mu.Unlock()
}

func sortedCopy(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}

func cloneTrades(in []types.AgentTrade) []types.AgentTrade {
	if in == nil {
		return nil
	}
	out := make([]types.AgentTrade, len(in))
	copy(out, in)
	return out
}
