package decision

import (
	"context"
	"fmt"
	"time"

	"agentdesk/internal/gateway/provider"
	"agentdesk/internal/logger"
)

// Record 是一次 oracle 调用的审计记录。
type Record struct {
	AgentID    string
	MarketID   string
	ProviderID string
	System     string
	User       string
	RawOutput  string
	Decision   *Decision
	Error      string
	Timestamp  time.Time
}

// Recorder 持久化 oracle 审计记录；写入失败只记日志。
type Recorder interface {
	RecordDecision(ctx context.Context, rec Record) error
}

// ProviderSource 为 agent 选择模型。
type ProviderSource interface {
	For(agentID string) (provider.ModelProvider, bool)
}

// LLMOracle 通过聊天模型生成交易建议（LIVE / DEBUG 模式）。
type LLMOracle struct {
	Providers   ProviderSource
	Recorder    Recorder
	MaxTokens   int
	Temperature float64
}

func (o *LLMOracle) Decide(ctx context.Context, req Request) (*Decision, error) {
	p, ok := o.Providers.For(req.AgentID())
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoProvider, req.AgentID())
	}
	system, user, err := RenderPrompts(req)
	if err != nil {
		return nil, err
	}
	logger.LogOracleRequest(req.AgentID(), req.MarketID(), system, user)
	raw, callErr := p.Call(ctx, provider.ChatPayload{
		System:      system,
		User:        user,
		ExpectJSON:  true,
		MaxTokens:   o.MaxTokens,
		Temperature: o.Temperature,
	})
	rec := Record{
		AgentID:    req.AgentID(),
		MarketID:   req.MarketID(),
		ProviderID: p.ID(),
		System:     system,
		User:       user,
		RawOutput:  raw,
		Timestamp:  req.Now,
	}
	var d *Decision
	if callErr == nil {
		logger.LogOracleResponse(req.AgentID(), req.MarketID(), raw)
		d, err = ParseDecision(raw)
		if d != nil {
			d.Source = p.ID()
		}
	} else {
		err = callErr
	}
	if err != nil {
		rec.Error = err.Error()
	}
	rec.Decision = d
	o.record(ctx, rec)
	if err != nil {
		return nil, err
	}
	return acceptable(d, req.Profile), nil
}

func (o *LLMOracle) record(ctx context.Context, rec Record) {
	if o.Recorder == nil {
		return
	}
	if err := o.Recorder.RecordDecision(context.WithoutCancel(ctx), rec); err != nil {
		logger.Warnf("decision log write failed (agent=%s market=%s): %v", rec.AgentID, rec.MarketID, err)
	}
}
