package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/pitchplease/facility-booking/services/facility-service/internal/domain"
)

const defaultPageSize = 50

type FacilityRepo struct {
	db *gorm.DB
}

func NewFacilityRepo(db *gorm.DB) *FacilityRepo {
	return &FacilityRepo{db: db}
}

func (r *FacilityRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.Facility{})
}

func (r *FacilityRepo) Create(ctx context.Context, f *domain.Facility) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *FacilityRepo) ByID(ctx context.Context, id int64) (*domain.Facility, error) {
	var f domain.Facility
	err := r.db.WithContext(ctx).First(&f, "facility_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FacilityRepo) ByOwner(ctx context.Context, ownerID int64) ([]domain.Facility, error) {
	out := []domain.Facility{}
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("facility_id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// List pages through facilities matching s. City and type match
// case-insensitively on a substring.
func (r *FacilityRepo) List(ctx context.Context, s domain.Search) ([]domain.Facility, error) {
	if s.Size <= 0 {
		s.Size = defaultPageSize
	}
	if s.Page < 0 {
		s.Page = 0
	}
	qb := r.db.WithContext(ctx).Model(&domain.Facility{})
	if s.City != "" {
		qb = qb.Where("LOWER(city) LIKE ?", "%"+strings.ToLower(s.City)+"%")
	}
	if s.FacilityType != "" {
		qb = qb.Where("LOWER(facility_type) LIKE ?", "%"+strings.ToLower(s.FacilityType)+"%")
	}
	if s.MinPrice != nil {
		qb = qb.Where("hourly_rate >= ?", *s.MinPrice)
	}
	if s.MaxPrice != nil {
		qb = qb.Where("hourly_rate <= ?", *s.MaxPrice)
	}
	out := []domain.Facility{}
	if err := qb.Order("facility_id").Limit(s.Size).Offset(s.Page * s.Size).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *FacilityRepo) Update(ctx context.Context, f *domain.Facility) error {
	res := r.db.WithContext(ctx).Model(&domain.Facility{}).Where("facility_id = ?", f.ID).
		Select("name", "description", "address", "city", "facility_type", "hourly_rate", "owner_id", "updated_at").
		Updates(f)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *FacilityRepo) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&domain.Facility{}, "facility_id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
