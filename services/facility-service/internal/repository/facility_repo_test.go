package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pitchplease/facility-booking/services/facility-service/internal/domain"
)

func newRepo(t *testing.T) *FacilityRepo {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	r := NewFacilityRepo(gdb)
	require.NoError(t, r.Migrate())
	return r
}

func seed(t *testing.T, r *FacilityRepo, name, city, typ, rate string, owner int64) *domain.Facility {
	t.Helper()
	f := &domain.Facility{
		Name: name, Address: "1 Main St", City: city, FacilityType: typ,
		HourlyRate: decimal.RequireFromString(rate), OwnerID: owner,
	}
	require.NoError(t, r.Create(context.Background(), f))
	return f
}

func names(in []domain.Facility) []string {
	out := make([]string, 0, len(in))
	for _, f := range in {
		out = append(out, f.Name)
	}
	return out
}

func TestCreateAndByID(t *testing.T) {
	r := newRepo(t)
	f := seed(t, r, "Court A", "Bangkok", "Badminton", "20.00", 7)
	assert.NotZero(t, f.ID)

	got, err := r.ByID(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, "Court A", got.Name)
	assert.True(t, decimal.RequireFromString("20").Equal(got.HourlyRate))

	_, err = r.ByID(context.Background(), f.ID+100)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListFilters(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	seed(t, r, "Court A", "Bangkok", "Badminton", "20.00", 1)
	seed(t, r, "Pitch B", "Chiang Mai", "Football", "50.00", 1)
	seed(t, r, "Court C", "bangkok", "Tennis", "35.00", 2)

	all, err := r.List(ctx, domain.Search{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Court A", "Pitch B", "Court C"}, names(all))

	byCity, err := r.List(ctx, domain.Search{City: "BANGKOK"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Court A", "Court C"}, names(byCity))

	byType, err := r.List(ctx, domain.Search{FacilityType: "ball"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Pitch B"}, names(byType))

	lo, hi := decimal.NewFromInt(30), decimal.NewFromInt(50)
	byPrice, err := r.List(ctx, domain.Search{MinPrice: &lo, MaxPrice: &hi})
	require.NoError(t, err)
	assert.Equal(t, []string{"Pitch B", "Court C"}, names(byPrice))

	page, err := r.List(ctx, domain.Search{Page: 1, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"Court C"}, names(page))
}

func TestByOwner(t *testing.T) {
	r := newRepo(t)
	seed(t, r, "Court A", "Bangkok", "Badminton", "20.00", 1)
	seed(t, r, "Court B", "Bangkok", "Badminton", "20.00", 2)

	out, err := r.ByOwner(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Court B"}, names(out))

	out, err = r.ByOwner(context.Background(), 99)
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestUpdateAndDelete(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	f := seed(t, r, "Court A", "Bangkok", "Badminton", "20.00", 1)

	f.Name = "Court A (indoor)"
	f.Description = ""
	require.NoError(t, r.Update(ctx, f))
	got, err := r.ByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "Court A (indoor)", got.Name)

	missing := *f
	missing.ID = f.ID + 100
	assert.ErrorIs(t, r.Update(ctx, &missing), domain.ErrNotFound)

	require.NoError(t, r.Delete(ctx, f.ID))
	assert.ErrorIs(t, r.Delete(ctx, f.ID), domain.ErrNotFound)
	_, err = r.ByID(ctx, f.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
