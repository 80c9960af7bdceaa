package profile

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownAgent 表示查询了未注册的 agent id。
var ErrUnknownAgent = errors.New("unknown agent id")

// Registry 是只读的 agent 集合，按注册顺序枚举。
type Registry struct {
	byID  map[string]AgentProfile
	order []string
}

func NewRegistry(profiles ...AgentProfile) (*Registry, error) {
	r := &Registry{byID: make(map[string]AgentProfile, len(profiles))}
	for _, p := range profiles {
		p.ID = normalizeID(p.ID)
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate agent id %s", p.ID)
		}
		r.byID[p.ID] = p.clone()
		r.order = append(r.order, p.ID)
	}
	return r, nil
}

// Lookup 返回 agent 配置；未知 id 直接报错，不会回落到其他 agent。
func (r *Registry) Lookup(id string) (AgentProfile, error) {
	key := normalizeID(id)
	p, ok := r.byID[key]
	if !ok {
		return AgentProfile{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownAgent, id, strings.Join(r.order, ", "))
	}
	return p.clone(), nil
}

func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) All() []AgentProfile {
	out := make([]AgentProfile, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id].clone())
	}
	return out
}

func (r *Registry) Len() int { return len(r.order) }

// Subset 仅保留给定 id；空列表返回全部。
func (r *Registry) Subset(ids []string) (*Registry, error) {
	if len(ids) == 0 {
		return r, nil
	}
	picked := make([]AgentProfile, 0, len(ids))
	for _, id := range ids {
		p, err := r.Lookup(id)
		if err != nil {
			return nil, err
		}
		picked = append(picked, p)
	}
	return NewRegistry(picked...)
}

func normalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
