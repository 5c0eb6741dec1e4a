package repositories

import (
	"context"

	"happyinvest/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type banRepository struct {
	db *gorm.DB
}

func NewBanRepository(db *gorm.DB) BanRepository {
	return &banRepository{db: db}
}

func (r *banRepository) Get(ctx context.Context, userID string) (*models.Ban, error) {
	var ban models.Ban
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&ban).Error; err != nil {
		return nil, notFoundOr(err, "get ban")
	}
	return &ban, nil
}

// Put creates the ban or replaces an existing one for the same user.
func (r *banRepository) Put(ctx context.Context, ban *models.Ban) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(ban).Error
	return errors.Wrap(err, "put ban")
}

func (r *banRepository) Delete(ctx context.Context, userID string) error {
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Ban{}).Error
	return errors.Wrap(err, "delete ban")
}

type violationRepository struct {
	db *gorm.DB
}

func NewViolationRepository(db *gorm.DB) ViolationRepository {
	return &violationRepository{db: db}
}

func (r *violationRepository) Create(ctx context.Context, v *models.CheatViolation) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(v).Error, "create violation")
}

func (r *violationRepository) ListByUser(ctx context.Context, userID string) ([]*models.CheatViolation, error) {
	var vs []*models.CheatViolation
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Find(&vs).Error
	return vs, errors.Wrap(err, "list violations")
}

type referralRepository struct {
	db *gorm.DB
}

func NewReferralRepository(db *gorm.DB) ReferralRepository {
	return &referralRepository{db: db}
}

func (r *referralRepository) Get(ctx context.Context, referredID string) (*models.ReferralEdge, error) {
	var edge models.ReferralEdge
	if err := r.db.WithContext(ctx).Where("referred_id = ?", referredID).First(&edge).Error; err != nil {
		return nil, notFoundOr(err, "get referral edge")
	}
	return &edge, nil
}

func (r *referralRepository) Create(ctx context.Context, edge *models.ReferralEdge) error {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(edge)
	if res.Error != nil {
		return errors.Wrap(res.Error, "create referral edge")
	}
	if res.RowsAffected == 0 {
		return ErrDuplicate
	}
	return nil
}

func (r *referralRepository) ListByReferrer(ctx context.Context, referrerID string) ([]*models.ReferralEdge, error) {
	var edges []*models.ReferralEdge
	err := r.db.WithContext(ctx).Where("referrer_id = ?", referrerID).Order("created_at").Find(&edges).Error
	return edges, errors.Wrap(err, "list referral edges")
}

func (r *referralRepository) CompareAndSwap(ctx context.Context, edge *models.ReferralEdge, expected int64) error {
	edge.Version = expected + 1
	res := r.db.WithContext(ctx).
		Model(&models.ReferralEdge{}).
		Where("referred_id = ? AND version = ?", edge.ReferredID, expected).
		Select("*").Omit("referred_id", "created_at").
		Updates(edge)
	if res.Error != nil {
		edge.Version = expected
		return errors.Wrap(res.Error, "update referral edge")
	}
	if res.RowsAffected == 0 {
		edge.Version = expected
		return ErrVersionConflict
	}
	return nil
}
