package notifier

import (
	"context"
	"time"

	"agentdesk/internal/logger"
	"agentdesk/internal/types"
)

const defaultQueueSize = 64

// Dispatcher 异步发送交易事件，队列满时丢弃并记录日志，不阻塞引擎。
type Dispatcher struct {
	sender TextNotifier
	queue  chan StructuredMessage
	nowFn  func() time.Time
}

func NewDispatcher(sender TextNotifier, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Dispatcher{sender: sender, queue: make(chan StructuredMessage, queueSize), nowFn: time.Now}
}

// TradesOpened 按 agent 分组，每个 agent 一条消息。
func (d *Dispatcher) TradesOpened(trades []types.AgentTrade) {
	if len(trades) == 0 {
		return
	}
	byAgent := make(map[string][]types.AgentTrade)
	var order []string
	for _, t := range trades {
		if _, ok := byAgent[t.AgentID]; !ok {
			order = append(order, t.AgentID)
		}
		byAgent[t.AgentID] = append(byAgent[t.AgentID], t)
	}
	now := d.nowFn()
	for _, id := range order {
		d.enqueue(TradesOpenedMessage(id, byAgent[id], now))
	}
}

func (d *Dispatcher) PositionsClosed(closes []types.ClosedPosition) {
	for _, c := range closes {
		d.enqueue(PositionClosedMessage(c))
	}
}

func (d *Dispatcher) enqueue(msg StructuredMessage) {
	select {
	case d.queue <- msg:
	default:
		logger.Warnf("notifier queue full, drop message %q", msg.Title)
	}
}

// Run 发送队列中的消息直到 ctx 结束。
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-d.queue:
			if err := d.sender.SendText(ctx, msg.RenderMarkdown()); err != nil {
				logger.Warnf("notifier send %q failed: %v", msg.Title, err)
			}
		}
	}
}
