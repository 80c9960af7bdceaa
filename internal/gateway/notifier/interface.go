package notifier

import "context"

// TextNotifier 发送一条已渲染的文本消息。
type TextNotifier interface {
	SendText(ctx context.Context, text string) error
}
