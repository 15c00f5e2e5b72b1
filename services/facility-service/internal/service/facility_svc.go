package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pitchplease/facility-booking/pkg/events"
	"github.com/pitchplease/facility-booking/pkg/mq"
	"github.com/pitchplease/facility-booking/services/facility-service/internal/domain"
)

type Store interface {
	Create(ctx context.Context, f *domain.Facility) error
	ByID(ctx context.Context, id int64) (*domain.Facility, error)
	ByOwner(ctx context.Context, ownerID int64) ([]domain.Facility, error)
	List(ctx context.Context, s domain.Search) ([]domain.Facility, error)
	Update(ctx context.Context, f *domain.Facility) error
	Delete(ctx context.Context, id int64) error
}

type FacilitySvc struct {
	repo Store
	pub  mq.EventPublisher
	log  logrus.FieldLogger
	now  func() time.Time
}

func NewFacilitySvc(r Store, pub mq.EventPublisher, log logrus.FieldLogger) *FacilitySvc {
	return &FacilitySvc{repo: r, pub: pub, log: log, now: time.Now}
}

func (s *FacilitySvc) Create(ctx context.Context, f *domain.Facility) (*domain.Facility, error) {
	f.ID = 0
	trim(f)
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("create facility: %w", err)
	}
	s.log.WithFields(logrus.Fields{"facility_id": f.ID, "owner_id": f.OwnerID}).Info("facility created")
	return f, nil
}

func (s *FacilitySvc) Get(ctx context.Context, id int64) (*domain.Facility, error) {
	return s.repo.ByID(ctx, id)
}

func (s *FacilitySvc) List(ctx context.Context, q domain.Search) ([]domain.Facility, error) {
	if q.MinPrice != nil && q.MaxPrice != nil && q.MinPrice.GreaterThan(*q.MaxPrice) {
		return nil, fmt.Errorf("%w: minPrice is above maxPrice", domain.ErrValidation)
	}
	return s.repo.List(ctx, q)
}

func (s *FacilitySvc) ByOwner(ctx context.Context, ownerID int64) ([]domain.Facility, error) {
	return s.repo.ByOwner(ctx, ownerID)
}

func (s *FacilitySvc) Update(ctx context.Context, f *domain.Facility) (*domain.Facility, error) {
	if f.ID <= 0 {
		return nil, fmt.Errorf("%w: missing facilityId", domain.ErrValidation)
	}
	trim(f)
	if err := f.Validate(); err != nil {
		return nil, err
	}
	f.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, f); err != nil {
		return nil, err
	}
	return s.repo.ByID(ctx, f.ID)
}

// Delete removes the facility. Payments under it are moved to the delisted
// status by the caller, not here.
func (s *FacilitySvc) Delete(ctx context.Context, id int64) error {
	f, err := s.repo.ByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	log := s.log.WithField("facility_id", id)
	log.Info("facility deleted")
	if err := s.pub.PublishJSON(ctx, events.RKFacilityDeleted, events.FacilityDeleted{
		FacilityID: f.ID,
		Name:       f.Name,
		OwnerID:    f.OwnerID,
		OccurredAt: s.now().UTC(),
	}); err != nil {
		log.WithError(err).Warn("publish facility.deleted failed")
	}
	return nil
}

func trim(f *domain.Facility) {
	f.Name = strings.TrimSpace(f.Name)
	f.Address = strings.TrimSpace(f.Address)
	f.City = strings.TrimSpace(f.City)
	f.FacilityType = strings.TrimSpace(f.FacilityType)
}
