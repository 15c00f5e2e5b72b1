package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/pitchplease/facility-booking/services/payment-service/internal/domain"
)

type PaymentRepo struct{ db *gorm.DB }

func NewPaymentRepo(db *gorm.DB) *PaymentRepo {
	return &PaymentRepo{db: db}
}

func (r *PaymentRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.Payment{})
}

func (r *PaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepo) ByID(ctx context.Context, id int64) (*domain.Payment, error) {
	return r.first(ctx, r.db.Where("payment_id = ?", id))
}

// ByBookingGroup returns the newest payment for the group.
func (r *PaymentRepo) ByBookingGroup(ctx context.Context, groupID int64) (*domain.Payment, error) {
	return r.first(ctx, r.db.Where("booking_group_id = ?", groupID).Order("payment_id DESC"))
}

func (r *PaymentRepo) ByTransactionID(ctx context.Context, txID string) (*domain.Payment, error) {
	return r.first(ctx, r.db.Where("transaction_id = ?", txID))
}

func (r *PaymentRepo) ByUser(ctx context.Context, userID int64) ([]domain.Payment, error) {
	return r.find(ctx, r.db.Where("user_id = ?", userID))
}

func (r *PaymentRepo) ByFacility(ctx context.Context, facilityID int64) ([]domain.Payment, error) {
	return r.find(ctx, r.db.Where("facility_id = ?", facilityID))
}

func (r *PaymentRepo) UpdateStatus(ctx context.Context, id int64, st domain.Status) (*domain.Payment, error) {
	var p domain.Payment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, "payment_id = ?", id).Error; err != nil {
			return err
		}
		p.PaymentStatus = st
		p.UpdatedAt = time.Now().UTC()
		return tx.Save(&p).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepo) UpdateStatusByBookingGroup(ctx context.Context, groupID int64, st domain.Status) (int64, error) {
	return r.updateWhere(ctx, st, "booking_group_id = ?", groupID)
}

func (r *PaymentRepo) UpdateStatusByFacility(ctx context.Context, facilityID int64, st domain.Status) (int64, error) {
	return r.updateWhere(ctx, st, "facility_id = ?", facilityID)
}

func (r *PaymentRepo) updateWhere(ctx context.Context, st domain.Status, query string, arg any) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Payment{}).
		Where(query, arg).
		Updates(map[string]any{"payment_status": st, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

func (r *PaymentRepo) first(ctx context.Context, qb *gorm.DB) (*domain.Payment, error) {
	var p domain.Payment
	if err := qb.WithContext(ctx).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepo) find(ctx context.Context, qb *gorm.DB) ([]domain.Payment, error) {
	out := []domain.Payment{}
	if err := qb.WithContext(ctx).Order("payment_id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
