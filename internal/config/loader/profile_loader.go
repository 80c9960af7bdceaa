package loader

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"agentdesk/internal/logger"
	"agentdesk/internal/profile"

	"gopkg.in/yaml.v3"
)

// ProfileFile 是 profiles 覆盖文件的结构，仅允许调整已有 agent 的参数。
type ProfileFile struct {
	Agents map[string]ProfileOverride `yaml:"agents"`
}

// ProfileOverride 中为 nil 的字段保持内置值。
type ProfileOverride struct {
	DisplayName     *string          `yaml:"display_name"`
	Avatar          *string          `yaml:"avatar"`
	Risk            *string          `yaml:"risk"`
	MinVolume       *float64         `yaml:"min_volume"`
	MinLiquidity    *float64         `yaml:"min_liquidity"`
	MaxTrades       *int             `yaml:"max_trades"`
	FocusCategories []string         `yaml:"focus_categories"`
	Weights         *profile.Weights `yaml:"weights"`
	MinConfidence   *float64         `yaml:"min_confidence"`
	MaxPositionUSD  *float64         `yaml:"max_position_usd"`
	Persona         *string          `yaml:"persona"`
}

// ReadProfileFile 严格解析覆盖文件（未知字段报错）。
func ReadProfileFile(path string) (ProfileFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ProfileFile{}, fmt.Errorf("read profiles file failed: %w", err)
	}
	var file ProfileFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return ProfileFile{}, fmt.Errorf("parse profiles file failed: %w", err)
	}
	return file, nil
}

// LoadRegistry 在内置 profile 上应用覆盖文件；path 为空或文件不存在时直接返回内置集合。
func LoadRegistry(path string) (*profile.Registry, error) {
	base := profile.Builtin()
	path = strings.TrimSpace(path)
	if path == "" {
		return profile.NewRegistry(base...)
	}
	file, err := ReadProfileFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warnf("profiles file %s not found, using built-in agents", path)
		return profile.NewRegistry(base...)
	}
	if err != nil {
		return nil, err
	}
	merged, err := ApplyOverrides(base, file.Agents)
	if err != nil {
		return nil, err
	}
	return profile.NewRegistry(merged...)
}

// ApplyOverrides 合并覆盖项；引用未知 agent 时报错。
func ApplyOverrides(base []profile.AgentProfile, overrides map[string]ProfileOverride) ([]profile.AgentProfile, error) {
	index := make(map[string]int, len(base))
	for i, p := range base {
		index[strings.ToUpper(p.ID)] = i
	}
	out := append([]profile.AgentProfile(nil), base...)
	for id, ov := range overrides {
		i, ok := index[strings.ToUpper(strings.TrimSpace(id))]
		if !ok {
			return nil, fmt.Errorf("profiles file: %w: %q", profile.ErrUnknownAgent, id)
		}
		p := &out[i]
		if ov.DisplayName != nil {
			p.DisplayName = *ov.DisplayName
		}
		if ov.Avatar != nil {
			p.Avatar = *ov.Avatar
		}
		if ov.Risk != nil {
			p.Risk = profile.RiskTier(strings.ToUpper(*ov.Risk))
		}
		if ov.MinVolume != nil {
			p.MinVolume = *ov.MinVolume
		}
		if ov.MinLiquidity != nil {
			p.MinLiquidity = *ov.MinLiquidity
		}
		if ov.MaxTrades != nil {
			p.MaxTrades = *ov.MaxTrades
		}
		if ov.FocusCategories != nil {
			p.FocusCategories = append([]string(nil), ov.FocusCategories...)
		}
		if ov.Weights != nil {
			p.Weights = *ov.Weights
		}
		if ov.MinConfidence != nil {
			p.MinConfidence = *ov.MinConfidence
		}
		if ov.MaxPositionUSD != nil {
			p.MaxPositionUSD = *ov.MaxPositionUSD
		}
		if ov.Persona != nil {
			p.Persona = *ov.Persona
		}
	}
	return out, nil
}
