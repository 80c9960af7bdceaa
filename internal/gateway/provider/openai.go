package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"agentdesk/internal/logger"

	"github.com/go-resty/resty/v2"
)

// OpenAIChatClient 兼容 OpenAI / DeepSeek / Qwen 等 /chat/completions 接口。
type OpenAIChatClient struct {
	id     string
	model  string
	client *resty.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewOpenAIChatClient 构建客户端；429/5xx 自动重试（指数退避，尊重 Retry-After）。
func NewOpenAIChatClient(id, baseURL, apiKey, model string, headers map[string]string, timeout time.Duration) *OpenAIChatClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := resty.New().
		SetBaseURL(normalizeBaseURL(baseURL)).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(800 * time.Millisecond).
		SetRetryMaxWaitTime(8 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil || r == nil {
				return false
			}
			code := r.StatusCode()
			return code == http.StatusTooManyRequests || code >= 500
		})
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	if len(headers) > 0 {
		client.SetHeaders(headers)
	}
	return &OpenAIChatClient{id: id, model: model, client: client}
}

func normalizeBaseURL(u string) string {
	u = strings.TrimRight(strings.TrimSpace(u), "/")
	if u == "" {
		u = "https://api.openai.com/v1"
	}
	return strings.TrimSuffix(u, "/chat/completions")
}

func (c *OpenAIChatClient) ID() string { return c.id }

func (c *OpenAIChatClient) Call(ctx context.Context, payload ChatPayload) (string, error) {
	req := chatRequest{
		Model:       c.model,
		Temperature: payload.Temperature,
		MaxTokens:   payload.MaxTokens,
	}
	if payload.System != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: payload.System})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: payload.User})
	if payload.ExpectJSON {
		req.ResponseFormat = map[string]string{"type": "json_object"}
	}

	var out chatResponse
	var apiErr chatError
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("%s: request failed: %w", c.id, err)
	}
	logger.Debugf("[oracle] %s POST %s status=%d dur=%s", c.id, resp.Request.URL, resp.StatusCode(), resp.Time())
	if resp.IsError() {
		msg := strings.TrimSpace(apiErr.Error.Message)
		if msg == "" {
			msg = resp.Status()
		}
		return "", fmt.Errorf("%s: status=%d: %s", c.id, resp.StatusCode(), msg)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%s: empty choices", c.id)
	}
	return out.Choices[0].Message.Content, nil
}
