package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultTelegramAPI = "https://api.telegram.org"

// Telegram 将消息推送至指定群/频道。
type Telegram struct {
	chatID string
	client *resty.Client
}

// NewTelegram 创建客户端；baseURL 为空时使用官方 API。失败最多重试 2 次。
func NewTelegram(baseURL, botToken, chatID string) *Telegram {
	if baseURL == "" {
		baseURL = defaultTelegramAPI
	}
	client := resty.New().
		SetBaseURL(fmt.Sprintf("%s/bot%s", baseURL, botToken)).
		SetTimeout(15*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == 429 || r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")
	return &Telegram{chatID: chatID, client: client}
}

func (t *Telegram) SendText(ctx context.Context, text string) error {
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"chat_id":    t.chatID,
			"text":       text,
			"parse_mode": "Markdown",
		}).
		Post("/sendMessage")
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("telegram status=%d", resp.StatusCode())
	}
	return nil
}
