package decision

import (
	"encoding/json"
	"fmt"
	"strings"

	"agentdesk/internal/types"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

const codeFence = "```"

// decisionSchema 约束模型输出：action 必填，confidence 允许 0~1 或 0~100。
const decisionSchema = `{
  "type": "object",
  "required": ["action"],
  "properties": {
    "action": {"type": "string", "enum": ["YES", "NO", "PASS", "yes", "no", "pass", "Yes", "No", "Pass"]},
    "confidence": {"type": "number", "minimum": 0, "maximum": 100},
    "reasoning": {"type": "string"}
  }
}`

var compiledSchema = jsonschema.MustCompileString("decision.json", decisionSchema)

// ExtractJSONObject 从模型原始输出中取出第一个 JSON 对象（优先代码块）。
func ExtractJSONObject(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if block, ok := fencedBlock(raw); ok {
		raw = block
	}
	start := strings.Index(raw, "{")
	if start < 0 {
		return "", false
	}
	depth := 0
	inString, escape := false, false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			switch {
			case escape:
				escape = false
			case ch == '\\':
				escape = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return "", false
}

func fencedBlock(raw string) (string, bool) {
	start := strings.Index(raw, codeFence)
	if start < 0 {
		return "", false
	}
	rest := raw[start+len(codeFence):]
	end := strings.Index(rest, codeFence)
	if end < 0 {
		return "", false
	}
	block := strings.TrimSpace(rest[:end])
	block = strings.TrimPrefix(block, "json")
	return strings.TrimSpace(block), true
}

// ParseDecision 解析并校验模型输出；PASS 返回 (nil, nil)。
func ParseDecision(raw string) (*Decision, error) {
	obj, ok := ExtractJSONObject(raw)
	if !ok {
		return nil, fmt.Errorf("%w: no json object in output", ErrInvalidDecision)
	}
	if !gjson.Valid(obj) {
		return nil, fmt.Errorf("%w: malformed json", ErrInvalidDecision)
	}
	var doc any
	if err := json.Unmarshal([]byte(obj), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDecision, err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDecision, err)
	}
	parsed := gjson.Parse(obj)
	action := strings.ToUpper(strings.TrimSpace(parsed.Get("action").String()))
	if action == "PASS" {
		return nil, nil
	}
	side, ok := types.ParseSide(action)
	if !ok {
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidDecision, action)
	}
	conf := parsed.Get("confidence").Float()
	if conf > 1 {
		conf /= 100
	}
	return &Decision{
		Side:       side,
		Confidence: conf,
		Reasoning:  strings.TrimSpace(parsed.Get("reasoning").String()),
	}, nil
}
