package provider

import (
	"strings"
	"time"

	"agentdesk/internal/config"
)

// Set 按 agent 选择模型，未绑定 agent 的第一个模型作为兜底。
type Set struct {
	byAgent  map[string]ModelProvider
	fallback ModelProvider
}

// BuildFromConfig 根据 ai.models 构建 provider 集合。
func BuildFromConfig(models []config.ResolvedModelConfig, timeout time.Duration) *Set {
	set := &Set{byAgent: make(map[string]ModelProvider)}
	for _, m := range models {
		p := NewOpenAIChatClient(m.ID, m.APIURL, m.APIKey, m.Model, m.Headers, timeout)
		set.Add(m.Agent, p)
	}
	return set
}

// Add 绑定 provider；agent 为空时作为兜底（仅第一个生效）。
func (s *Set) Add(agent string, p ModelProvider) {
	agent = strings.ToUpper(strings.TrimSpace(agent))
	if agent == "" {
		if s.fallback == nil {
			s.fallback = p
		}
		return
	}
	if _, exists := s.byAgent[agent]; !exists {
		s.byAgent[agent] = p
	}
}

// For 返回 agent 对应的 provider。
func (s *Set) For(agentID string) (ModelProvider, bool) {
	if s == nil {
		return nil, false
	}
	if p, ok := s.byAgent[strings.ToUpper(agentID)]; ok {
		return p, true
	}
	return s.fallback, s.fallback != nil
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	n := len(s.byAgent)
	if s.fallback != nil {
		n++
	}
	return n
}
