package postgres

import (
	"context"
	"errors"

	"github.com/yoockh/doclingate/internal/models"
	"github.com/yoockh/doclingate/internal/utils"
	"gorm.io/gorm"
)

type ConversionRepository interface {
	Insert(ctx context.Context, rec *models.ConversionRecord) error
	// ListByUser returns the user's rows newest first; limit <= 0 means all.
	ListByUser(ctx context.Context, userID string, limit int) ([]models.ConversionRecord, error)
	GetByID(ctx context.Context, userID, id string) (*models.ConversionRecord, error)
	// DeleteByID removes the row only if it belongs to userID.
	DeleteByID(ctx context.Context, userID, id string) (int64, error)
}

type conversionRepo struct {
	db *gorm.DB
}

func NewConversionRepo(db *gorm.DB) ConversionRepository {
	return &conversionRepo{db: db}
}

func (r *conversionRepo) Insert(ctx context.Context, rec *models.ConversionRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *conversionRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.ConversionRecord, error) {
	q := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []models.ConversionRecord
	err := q.Find(&rows).Error
	return rows, err
}

func (r *conversionRepo) GetByID(ctx context.Context, userID, id string) (*models.ConversionRecord, error) {
	var row models.ConversionRecord
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *conversionRepo) DeleteByID(ctx context.Context, userID, id string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.ConversionRecord{})
	return res.RowsAffected, res.Error
}
