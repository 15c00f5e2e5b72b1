package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pitchplease/facility-booking/pkg/events"
	"github.com/pitchplease/facility-booking/services/facility-service/internal/domain"
	"github.com/pitchplease/facility-booking/services/facility-service/internal/repository"
)

type recPub struct {
	keys []string
	last any
	err  error
}

func (r *recPub) PublishJSON(_ context.Context, key string, v any) error {
	r.keys = append(r.keys, key)
	r.last = v
	return r.err
}

func newSvc(t *testing.T) (*FacilitySvc, *recPub, *test.Hook) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	repo := repository.NewFacilityRepo(gdb)
	require.NoError(t, repo.Migrate())
	log, hook := test.NewNullLogger()
	pub := &recPub{}
	return NewFacilitySvc(repo, pub, log), pub, hook
}

func court() *domain.Facility {
	return &domain.Facility{
		Name: " Court A ", Address: "1 Main St", City: "Bangkok", FacilityType: "Badminton",
		HourlyRate: decimal.NewFromInt(20), OwnerID: 7,
	}
}

func TestCreateValidates(t *testing.T) {
	svc, _, _ := newSvc(t)
	ctx := context.Background()

	f, err := svc.Create(ctx, court())
	require.NoError(t, err)
	assert.Equal(t, "Court A", f.Name)

	bad := court()
	bad.City = ""
	bad.FacilityType = " "
	_, err = svc.Create(ctx, bad)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "city, facilityType")

	neg := court()
	neg.HourlyRate = decimal.NewFromInt(-1)
	_, err = svc.Create(ctx, neg)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestListRejectsInvertedPriceRange(t *testing.T) {
	svc, _, _ := newSvc(t)
	lo, hi := decimal.NewFromInt(50), decimal.NewFromInt(10)
	_, err := svc.List(context.Background(), domain.Search{MinPrice: &lo, MaxPrice: &hi})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdate(t *testing.T) {
	svc, _, _ := newSvc(t)
	ctx := context.Background()
	f, err := svc.Create(ctx, court())
	require.NoError(t, err)

	f.HourlyRate = decimal.NewFromInt(25)
	got, err := svc.Update(ctx, f)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(25).Equal(got.HourlyRate))

	_, err = svc.Update(ctx, &domain.Facility{Name: "x"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDeletePublishes(t *testing.T) {
	svc, pub, _ := newSvc(t)
	ctx := context.Background()
	f, err := svc.Create(ctx, court())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, f.ID))
	assert.Equal(t, []string{events.RKFacilityDeleted}, pub.keys)
	ev, ok := pub.last.(events.FacilityDeleted)
	require.True(t, ok)
	assert.Equal(t, f.ID, ev.FacilityID)
	assert.Equal(t, int64(7), ev.OwnerID)

	assert.ErrorIs(t, svc.Delete(ctx, f.ID), domain.ErrNotFound)
	assert.Len(t, pub.keys, 1)
}

func TestDeleteSurvivesPublishFailure(t *testing.T) {
	svc, pub, hook := newSvc(t)
	ctx := context.Background()
	f, err := svc.Create(ctx, court())
	require.NoError(t, err)

	pub.err = errors.New("broker down")
	require.NoError(t, svc.Delete(ctx, f.ID))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}
