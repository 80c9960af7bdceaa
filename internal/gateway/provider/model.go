package provider

import "context"

// ChatPayload 是一次对话补全请求。
type ChatPayload struct {
	System      string
	User        string
	ExpectJSON  bool
	MaxTokens   int
	Temperature float64
}

// ModelProvider 是 oracle 调用的模型端点。
type ModelProvider interface {
	ID() string
	Call(ctx context.Context, payload ChatPayload) (string, error)
}
