package repositories

import (
	"context"
	"time"

	"happyinvest/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type investmentRepository struct {
	db *gorm.DB
}

func NewInvestmentRepository(db *gorm.DB) InvestmentRepository {
	return &investmentRepository{db: db}
}

func (r *investmentRepository) Create(ctx context.Context, inv *models.Investment) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(inv).Error, "create investment")
}

func (r *investmentRepository) GetByID(ctx context.Context, id string) (*models.Investment, error) {
	var inv models.Investment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&inv).Error; err != nil {
		return nil, notFoundOr(err, "get investment")
	}
	return &inv, nil
}

func (r *investmentRepository) ListByUser(ctx context.Context, userID string) ([]*models.Investment, error) {
	var invs []*models.Investment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("purchased_at DESC").
		Find(&invs).Error
	return invs, errors.Wrap(err, "list investments")
}

func (r *investmentRepository) ListActiveByUser(ctx context.Context, userID string) ([]*models.Investment, error) {
	var invs []*models.Investment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.InvestmentStatusActive).
		Order("id").
		Find(&invs).Error
	return invs, errors.Wrap(err, "list active investments")
}

func (r *investmentRepository) ListDue(ctx context.Context, dueBy time.Time, afterID string, limit int) ([]*models.Investment, error) {
	var invs []*models.Investment
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_payout_due <= ? AND id > ?", models.InvestmentStatusActive, dueBy, afterID).
		Order("id").
		Limit(limit).
		Find(&invs).Error
	return invs, errors.Wrap(err, "list due investments")
}

func (r *investmentRepository) CompareAndSwap(ctx context.Context, inv *models.Investment, expected int64) error {
	inv.Version = expected + 1
	res := r.db.WithContext(ctx).
		Model(&models.Investment{}).
		Where("id = ? AND version = ?", inv.ID, expected).
		Select("*").Omit("id", "created_at").
		Updates(inv)
	if res.Error != nil {
		inv.Version = expected
		return errors.Wrap(res.Error, "update investment")
	}
	if res.RowsAffected == 0 {
		inv.Version = expected
		return ErrVersionConflict
	}
	return nil
}
