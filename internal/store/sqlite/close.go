package sqlite

import (
	"context"
	"errors"

	"agentdesk/internal/store/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type closeRepository struct {
	db *gorm.DB
}

func NewCloseRepo(db *gorm.DB) *closeRepository {
	return &closeRepository{db: db}
}

// Insert is idempotent per trade id.
func (r *closeRepository) Insert(ctx context.Context, c *model.PositionCloseModel) error {
	if c == nil {
		return errors.New("close cannot be nil")
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "trade_id"}},
		DoNothing: true,
	}).Create(c).Error
}

// ListByAgent lists an agent's closes, newest first. limit <= 0 means no limit.
func (r *closeRepository) ListByAgent(ctx context.Context, agentID string, limit int) ([]model.PositionCloseModel, error) {
	var rows []model.PositionCloseModel
	q := r.db.WithContext(ctx).Where("agent_id = ?", agentID).Order("closed_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
