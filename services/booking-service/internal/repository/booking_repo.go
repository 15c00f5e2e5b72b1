package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/pitchplease/facility-booking/services/booking-service/internal/domain"
)

type BookingRepo struct{ db *gorm.DB }

func NewBookingRepo(db *gorm.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

func (r *BookingRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.BookingSlot{})
}

func (r *BookingRepo) Create(ctx context.Context, b *domain.BookingSlot) error {
	return r.db.WithContext(ctx).Create(b).Error
}

// SetGroupStatus moves every slot of a group that is currently in `from` to `to`.
func (r *BookingRepo) SetGroupStatus(ctx context.Context, groupID int64, from, to domain.Status) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.BookingSlot{}).
		Where("booking_group_id = ? AND status = ?", groupID, from).
		Update("status", to)
	return res.RowsAffected, res.Error
}

// CancelGroup marks all live slots of a group cancelled in one statement.
func (r *BookingRepo) CancelGroup(ctx context.Context, groupID int64) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.BookingSlot{}).
		Where("booking_group_id = ? AND status <> ?", groupID, domain.StatusCancelled).
		Update("status", domain.StatusCancelled)
	return res.RowsAffected, res.Error
}

func (r *BookingRepo) ByID(ctx context.Context, id int64) (*domain.BookingSlot, error) {
	var b domain.BookingSlot
	if err := r.db.WithContext(ctx).First(&b, "booking_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepo) All(ctx context.Context) ([]domain.BookingSlot, error) {
	return r.find(ctx, r.db)
}

func (r *BookingRepo) ByUser(ctx context.Context, userID int64) ([]domain.BookingSlot, error) {
	return r.find(ctx, r.db.Where("user_id = ?", userID))
}

func (r *BookingRepo) ByFacility(ctx context.Context, facilityID int64) ([]domain.BookingSlot, error) {
	return r.find(ctx, r.db.Where("facility_id = ?", facilityID))
}

func (r *BookingRepo) ByUserAndStatus(ctx context.Context, userID int64, st domain.Status) ([]domain.BookingSlot, error) {
	return r.find(ctx, r.db.Where("user_id = ? AND status = ?", userID, st))
}

func (r *BookingRepo) ByGroup(ctx context.Context, groupID int64) ([]domain.BookingSlot, error) {
	return r.find(ctx, r.db.Where("booking_group_id = ?", groupID))
}

// Conflicts returns live slots of a facility overlapping [start, end).
func (r *BookingRepo) Conflicts(ctx context.Context, facilityID int64, start, end time.Time) ([]domain.BookingSlot, error) {
	return r.find(ctx, r.db.
		Where("facility_id = ? AND status <> ?", facilityID, domain.StatusCancelled).
		Where("start_time < ? AND end_time > ?", end, start))
}

func (r *BookingRepo) find(ctx context.Context, qb *gorm.DB) ([]domain.BookingSlot, error) {
	out := []domain.BookingSlot{}
	if err := qb.WithContext(ctx).Order("start_time ASC, booking_id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
