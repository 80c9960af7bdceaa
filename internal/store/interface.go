package store

import (
	"context"

	"agentdesk/internal/store/model"
)

// UnitOfWork defines a transaction scope.
type UnitOfWork interface {
	Commit() error
	Rollback() error

	Trades() TradeRepository
	Closes() CloseRepository
}

// Store is the entry point for database access.
type Store interface {
	Begin(ctx context.Context) (UnitOfWork, error)
	Close() error
}

// TradeRepository handles agent trade persistence.
type TradeRepository interface {
	Save(ctx context.Context, trade *model.TradeModel) error
	ListAll(ctx context.Context) ([]model.TradeModel, error)
	MarkClosed(ctx context.Context, close *model.PositionCloseModel) error
	// UpdateMark only touches OPEN rows; a missing or closed trade is not an error.
	UpdateMark(ctx context.Context, tradeID string, probability, unrealized float64, atMs int64) error
}

// CloseRepository handles position close records.
type CloseRepository interface {
	Insert(ctx context.Context, close *model.PositionCloseModel) error
	ListByAgent(ctx context.Context, agentID string, limit int) ([]model.PositionCloseModel, error)
}
