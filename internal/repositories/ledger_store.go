package repositories

import (
	"context"

	"happyinvest/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(tx).Error, "create transaction")
}

func (r *transactionRepository) ListByUser(ctx context.Context, userID string, kinds []string, limit, offset int) ([]*models.Transaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Transaction{}).Where("user_id = ?", userID)
	if len(kinds) > 0 {
		query = query.Where("kind IN ?", kinds)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count transactions")
	}

	var txs []*models.Transaction
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&txs).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "list transactions")
	}
	return txs, total, nil
}

type withdrawalRepository struct {
	db *gorm.DB
}

func NewWithdrawalRepository(db *gorm.DB) WithdrawalRepository {
	return &withdrawalRepository{db: db}
}

func (r *withdrawalRepository) Create(ctx context.Context, w *models.Withdrawal) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(w).Error, "create withdrawal")
}

func (r *withdrawalRepository) GetByID(ctx context.Context, id string) (*models.Withdrawal, error) {
	var w models.Withdrawal
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&w).Error; err != nil {
		return nil, notFoundOr(err, "get withdrawal")
	}
	return &w, nil
}

func (r *withdrawalRepository) ListByUser(ctx context.Context, userID string) ([]*models.Withdrawal, error) {
	var ws []*models.Withdrawal
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&ws).Error
	return ws, errors.Wrap(err, "list withdrawals")
}

func (r *withdrawalRepository) ListByStatus(ctx context.Context, status string) ([]*models.Withdrawal, error) {
	var ws []*models.Withdrawal
	err := r.db.WithContext(ctx).Where("status = ?", status).Order("created_at").Find(&ws).Error
	return ws, errors.Wrap(err, "list withdrawals by status")
}

func (r *withdrawalRepository) CompareAndSwap(ctx context.Context, w *models.Withdrawal, expected int64) error {
	w.Version = expected + 1
	res := r.db.WithContext(ctx).
		Model(&models.Withdrawal{}).
		Where("id = ? AND version = ?", w.ID, expected).
		Select("*").Omit("id", "created_at").
		Updates(w)
	if res.Error != nil {
		w.Version = expected
		return errors.Wrap(res.Error, "update withdrawal")
	}
	if res.RowsAffected == 0 {
		w.Version = expected
		return ErrVersionConflict
	}
	return nil
}

type rechargeRepository struct {
	db *gorm.DB
}

func NewRechargeRepository(db *gorm.DB) RechargeRepository {
	return &rechargeRepository{db: db}
}

func (r *rechargeRepository) Create(ctx context.Context, rc *models.Recharge) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(rc).Error, "create recharge")
}

func (r *rechargeRepository) GetByID(ctx context.Context, id string) (*models.Recharge, error) {
	var rc models.Recharge
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rc).Error; err != nil {
		return nil, notFoundOr(err, "get recharge")
	}
	return &rc, nil
}

func (r *rechargeRepository) ListByStatus(ctx context.Context, status string) ([]*models.Recharge, error) {
	var rcs []*models.Recharge
	err := r.db.WithContext(ctx).Where("status = ?", status).Order("created_at").Find(&rcs).Error
	return rcs, errors.Wrap(err, "list recharges by status")
}

func (r *rechargeRepository) CompareAndSwap(ctx context.Context, rc *models.Recharge, expected int64) error {
	rc.Version = expected + 1
	res := r.db.WithContext(ctx).
		Model(&models.Recharge{}).
		Where("id = ? AND version = ?", rc.ID, expected).
		Select("*").Omit("id", "created_at").
		Updates(rc)
	if res.Error != nil {
		rc.Version = expected
		return errors.Wrap(res.Error, "update recharge")
	}
	if res.RowsAffected == 0 {
		rc.Version = expected
		return ErrVersionConflict
	}
	return nil
}
