package profile

import (
	"fmt"
	"strings"
)

// RiskTier 风险等级。
type RiskTier string

const (
	RiskLow    RiskTier = "LOW"
	RiskMedium RiskTier = "MEDIUM"
	RiskHigh   RiskTier = "HIGH"
)

func (r RiskTier) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	default:
		return false
	}
}

// Weights 是五个子评分的权重，均为正数。
type Weights struct {
	Volume        float64 `json:"volume" yaml:"volume"`
	Liquidity     float64 `json:"liquidity" yaml:"liquidity"`
	PriceMovement float64 `json:"price_movement" yaml:"price_movement"`
	News          float64 `json:"news" yaml:"news"`
	Probability   float64 `json:"probability" yaml:"probability"`
}

func (w Weights) Sum() float64 {
	return w.Volume + w.Liquidity + w.PriceMovement + w.News + w.Probability
}

func (w Weights) validate() error {
	for name, v := range map[string]float64{
		"volume":         w.Volume,
		"liquidity":      w.Liquidity,
		"price_movement": w.PriceMovement,
		"news":           w.News,
		"probability":    w.Probability,
	} {
		if v <= 0 {
			return fmt.Errorf("weight %s must be > 0, got %v", name, v)
		}
	}
	return nil
}

// AgentProfile 是单个 agent 的静态配置，启动后不再修改。
type AgentProfile struct {
	ID              string   `json:"id"`
	DisplayName     string   `json:"display_name"`
	Avatar          string   `json:"avatar"`
	Risk            RiskTier `json:"risk"`
	MinVolume       float64  `json:"min_volume"`
	MinLiquidity    float64  `json:"min_liquidity"`
	MaxTrades       int      `json:"max_trades"`
	FocusCategories []string `json:"focus_categories"`
	Weights         Weights  `json:"weights"`
	// MinConfidence 低于该置信度的建议视为 no trade。
	MinConfidence float64 `json:"min_confidence"`
	// MaxPositionUSD 单笔投入上限，实际投入 = MaxPositionUSD × confidence。
	MaxPositionUSD float64 `json:"max_position_usd"`
	Persona        string  `json:"persona"`
}

// FocusMatches 判断市场分类是否属于该 agent 的关注领域。
func (p AgentProfile) FocusMatches(category string) bool {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return false
	}
	for _, c := range p.FocusCategories {
		if strings.ToLower(c) == category {
			return true
		}
	}
	return false
}

func (p AgentProfile) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("profile id cannot be empty")
	}
	if !p.Risk.Valid() {
		return fmt.Errorf("profile %s: invalid risk tier %q", p.ID, p.Risk)
	}
	if p.MinVolume < 0 || p.MinLiquidity < 0 {
		return fmt.Errorf("profile %s: volume/liquidity floors must be >= 0", p.ID)
	}
	if p.MaxTrades <= 0 {
		return fmt.Errorf("profile %s: max_trades must be > 0", p.ID)
	}
	if p.MinConfidence < 0 || p.MinConfidence > 1 {
		return fmt.Errorf("profile %s: min_confidence must be in [0,1]", p.ID)
	}
	if p.MaxPositionUSD <= 0 {
		return fmt.Errorf("profile %s: max_position_usd must be > 0", p.ID)
	}
	if err := p.Weights.validate(); err != nil {
		return fmt.Errorf("profile %s: %w", p.ID, err)
	}
	return nil
}

func (p AgentProfile) clone() AgentProfile {
	out := p
	out.FocusCategories = append([]string(nil), p.FocusCategories...)
	return out
}
