package store

import (
	"context"
	"fmt"
	"time"

	"agentdesk/internal/store/model"
	"agentdesk/internal/types"
)

// TradeLog 在 Store 之上提供面向领域类型的读写。
type TradeLog struct {
	store Store
	nowFn func() time.Time
}

func NewTradeLog(s Store) *TradeLog {
	return &TradeLog{store: s, nowFn: time.Now}
}

// Apply 在同一事务内落地一批账本变更：先平仓，再写新交易，最后更新持仓估值。
// 翻转（平旧仓 + 开新仓）因此要么整体写入，要么整体回滚。
func (l *TradeLog) Apply(ctx context.Context, opened []types.AgentTrade, closed []types.ClosedPosition, marks []types.Position) error {
	if len(opened) == 0 && len(closed) == 0 && len(marks) == 0 {
		return nil
	}
	return l.inTx(ctx, func(uow UnitOfWork) error {
		for _, c := range closed {
			m := model.NewPositionCloseModel(c)
			if err := uow.Closes().Insert(ctx, &m); err != nil {
				return fmt.Errorf("insert close %s: %w", m.TradeID, err)
			}
			if err := uow.Trades().MarkClosed(ctx, &m); err != nil {
				return fmt.Errorf("mark trade %s closed: %w", m.TradeID, err)
			}
		}
		now := l.nowFn()
		for _, t := range opened {
			m := model.NewTradeModel(t, now)
			if err := uow.Trades().Save(ctx, &m); err != nil {
				return fmt.Errorf("save trade %s: %w", t.ID, err)
			}
		}
		for _, pos := range marks {
			if err := uow.Trades().UpdateMark(ctx, pos.TradeID, pos.LastProbability, pos.UnrealizedPnL, now.UnixMilli()); err != nil {
				return fmt.Errorf("mark trade %s: %w", pos.TradeID, err)
			}
		}
		return nil
	})
}

// LoadTrades 读取全部交易（按创建时间升序），用于启动时重建账本。
func (l *TradeLog) LoadTrades(ctx context.Context) ([]types.AgentTrade, error) {
	var out []types.AgentTrade
	err := l.inTx(ctx, func(uow UnitOfWork) error {
		rows, err := uow.Trades().ListAll(ctx)
		if err != nil {
			return err
		}
		out = make([]types.AgentTrade, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.ToDomain())
		}
		return nil
	})
	return out, err
}

// RecentCloses 返回 agent 最近的平仓记录（新的在前），limit <= 0 表示不限。
func (l *TradeLog) RecentCloses(ctx context.Context, agentID string, limit int) ([]types.ClosedPosition, error) {
	var out []types.ClosedPosition
	err := l.inTx(ctx, func(uow UnitOfWork) error {
		rows, err := uow.Closes().ListByAgent(ctx, agentID, limit)
		if err != nil {
			return err
		}
		out = make([]types.ClosedPosition, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.ToDomain())
		}
		return nil
	})
	return out, err
}

func (l *TradeLog) inTx(ctx context.Context, fn func(UnitOfWork) error) (err error) {
	uow, err := l.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = uow.Rollback()
		}
	}()
	if err = fn(uow); err != nil {
		return err
	}
	return uow.Commit()
}
