package livehttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"agentdesk/internal/engine"
	"agentdesk/internal/logger"
	"agentdesk/internal/portfolio"
	"agentdesk/internal/profile"
	"agentdesk/internal/store/decisionlog"
	"agentdesk/internal/types"

	"github.com/gin-gonic/gin"
)

// Router 暴露 agent、账本、决策日志与周期触发接口。
type Router struct {
	Engine Engine
	Logs   DecisionLogs
	Closes CloseHistory
}

func NewRouter(eng Engine, logs DecisionLogs, closes CloseHistory) *Router {
	return &Router{Engine: eng, Logs: logs, Closes: closes}
}

// Register 将 /api 路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/agents", r.handleAgents)
	group.GET("/agents/:id", r.handleAgent)
	group.GET("/agents/:id/trades", r.handleAgentTrades)
	group.GET("/agents/:id/positions", r.handleAgentPositions)
	group.GET("/agents/:id/closes", r.handleAgentCloses)
	group.GET("/summary", r.handleSummary)
	group.GET("/decisions", r.handleDecisions)
	group.GET("/features", r.handleFeatures)
	group.POST("/cycle", r.handleCycle)
	group.POST("/lifecycle", r.handleLifecycle)
}

func (r *Router) handleAgents(c *gin.Context) {
	reg := r.Engine.Registry()
	out := make([]AgentView, 0, reg.Len())
	for _, p := range reg.All() {
		pf, err := r.Engine.Ledger().Snapshot(p.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		out = append(out, AgentView{Profile: p, Stats: portfolio.ComputeAgentStats(pf)})
	}
	c.JSON(http.StatusOK, gin.H{"agents": out})
}

// lookup 解析 :id；未知 agent 返回 404，不做回退。
func (r *Router) lookup(c *gin.Context) (profile.AgentProfile, *portfolio.Portfolio, bool) {
	p, err := r.Engine.Registry().Lookup(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return profile.AgentProfile{}, nil, false
	}
	pf, err := r.Engine.Ledger().Snapshot(p.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return profile.AgentProfile{}, nil, false
	}
	return p, pf, true
}

func (r *Router) handleAgent(c *gin.Context) {
	p, pf, ok := r.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, AgentView{Profile: p, Stats: portfolio.ComputeAgentStats(pf)})
}

func (r *Router) handleAgentTrades(c *gin.Context) {
	p, pf, ok := r.lookup(c)
	if !ok {
		return
	}
	if cached := r.Engine.TradeCache().GetQuick(p.ID); cached != nil {
		c.JSON(http.StatusOK, tradesResponse{AgentID: p.ID, Source: "cache", Trades: cached})
		return
	}
	trades := pf.Trades()
	if trades == nil {
		trades = []types.AgentTrade{}
	}
	c.JSON(http.StatusOK, tradesResponse{AgentID: p.ID, Source: "ledger", Trades: trades})
}

func (r *Router) handleAgentPositions(c *gin.Context) {
	p, pf, ok := r.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"agent_id": p.ID, "positions": pf.Positions()})
}

// handleAgentCloses 从存储读取平仓历史（新的在前），limit 缺省 20，上限 200。
func (r *Router) handleAgentCloses(c *gin.Context) {
	if r.Closes == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "交易存储未启用"})
		return
	}
	p, _, ok := r.lookup(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	closes, err := r.Closes.RecentCloses(ctx, p.ID, limit)
	if err != nil {
		logger.Errorf("[api] closes list failed agent=%s err=%v", p.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if closes == nil {
		closes = []types.ClosedPosition{}
	}
	c.JSON(http.StatusOK, gin.H{"agent_id": p.ID, "closes": closes, "limit": limit})
}

func (r *Router) handleSummary(c *gin.Context) {
	stats, summary := portfolio.LedgerStats(r.Engine.Ledger())
	c.JSON(http.StatusOK, gin.H{"agents": stats, "summary": summary})
}

func (r *Router) handleFeatures(c *gin.Context) {
	f := r.Engine.Features()
	c.JSON(http.StatusOK, gin.H{
		"mode":             f.Mode,
		"lifecycle":        f.Lifecycle,
		"adaptive_scoring": f.AdaptiveScoring,
		"news_search":      f.NewsSearch,
	})
}

func (r *Router) handleDecisions(c *gin.Context) {
	if r.Logs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "决策日志未启用"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	q := decisionlog.Query{
		AgentID:  strings.TrimSpace(c.Query("agent")),
		MarketID: strings.TrimSpace(c.Query("market")),
		Limit:    limit,
		Offset:   offset,
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	records, err := r.Logs.ListDecisions(ctx, q)
	if err != nil {
		logger.Errorf("[api] decisions list failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	total, err := r.Logs.CountDecisions(ctx, q)
	if err != nil {
		total = -1
	}
	if records == nil {
		records = []decisionlog.DecisionLogRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "total": total, "limit": limit, "offset": offset})
}

func (r *Router) handleCycle(c *gin.Context) {
	res, err := r.Engine.RunGenerationCycle(c.Request.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, engine.ErrSnapshotFailed) {
			status = http.StatusBadGateway
		}
		logger.Warnf("[api] manual cycle failed: %v", err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (r *Router) handleLifecycle(c *gin.Context) {
	closed, err := r.Engine.RunLifecycle(c.Request.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, engine.ErrSnapshotFailed) {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	if closed == nil {
		closed = []types.ClosedPosition{}
	}
	c.JSON(http.StatusOK, gin.H{"closed": closed})
}
