package sqlite

import (
	"context"
	"errors"

	"agentdesk/internal/store/model"
	"agentdesk/internal/types"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// tradeRepository implements the TradeRepository interface.
type tradeRepository struct {
	db *gorm.DB
}

func NewTradeRepo(db *gorm.DB) *tradeRepository {
	return &tradeRepository{db: db}
}

// Save inserts a trade or overwrites the stored row with the same id.
func (r *tradeRepository) Save(ctx context.Context, trade *model.TradeModel) error {
	if trade == nil {
		return errors.New("trade cannot be nil")
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(trade).Error
}

// ListAll lists every trade in creation order.
func (r *tradeRepository) ListAll(ctx context.Context) ([]model.TradeModel, error) {
	var trades []model.TradeModel
	if err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&trades).Error; err != nil {
		return nil, err
	}
	return trades, nil
}

// MarkClosed copies the close outcome onto the trade row.
func (r *tradeRepository) MarkClosed(ctx context.Context, c *model.PositionCloseModel) error {
	if c == nil {
		return errors.New("close cannot be nil")
	}
	closedAt := c.ClosedAtMs
	res := r.db.WithContext(ctx).Model(&model.TradeModel{}).
		Where("id = ?", c.TradeID).
		Updates(map[string]interface{}{
			"status":           string(types.TradeClosed),
			"realized_pnl":     c.RealizedPnL,
			"exit_probability": c.ExitProbability,
			"close_reason":     c.Reason,
			"closed_at":        closedAt,
			"updated_at":       closedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *tradeRepository) UpdateMark(ctx context.Context, tradeID string, probability, unrealized float64, atMs int64) error {
	return r.db.WithContext(ctx).Model(&model.TradeModel{}).
		Where("id = ? AND status = ?", tradeID, string(types.TradeOpen)).
		Updates(map[string]interface{}{
			"mark_probability": probability,
			"mark_pnl":         unrealized,
			"updated_at":       atMs,
		}).Error
}
