package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pitchplease/facility-booking/services/booking-service/internal/domain"
)

const HoursPerDay = 24

// Source is the read side of the booking store the engine needs.
type Source interface {
	ByFacility(ctx context.Context, facilityID int64) ([]domain.BookingSlot, error)
}

type Engine struct {
	src   Source
	cache *Cache
	log   logrus.FieldLogger
}

// NewEngine builds an engine; a nil cache disables caching.
func NewEngine(src Source, cache *Cache, log logrus.FieldLogger) *Engine {
	return &Engine{src: src, cache: cache, log: log}
}

// Slots returns the 24 hourly windows for facilityID on date.
// date is a local calendar date already resolved by the caller.
func (e *Engine) Slots(ctx context.Context, facilityID int64, date time.Time) ([]domain.AvailabilitySlot, error) {
	day := date.Format(domain.DateLayout)
	if cached, ok := e.cache.Get(ctx, facilityID, day); ok {
		return cached, nil
	}

	bookings, err := e.src.ByFacility(ctx, facilityID)
	if err != nil {
		return nil, fmt.Errorf("failed to determine available time slots: %w", err)
	}
	slots := Compute(date, bookings)

	e.log.WithFields(logrus.Fields{
		"facility_id": facilityID,
		"date":        day,
		"bookings":    len(bookings),
	}).Debug("availability computed")

	e.cache.Set(ctx, facilityID, day, slots)
	return slots, nil
}

// Invalidate drops cached days after the facility's bookings changed.
func (e *Engine) Invalidate(ctx context.Context, facilityID int64, days ...string) {
	e.cache.Invalidate(ctx, facilityID, days...)
}

// Compute derives the availability bitmap for one day from stored bookings.
// Only non-cancelled bookings starting on date count. A booking covers
// [startHour, endHour); one ending on a later date covers through hour 23.
// Slot times are UTC wall-clock regardless of the zone the driver returns.
func Compute(date time.Time, bookings []domain.BookingSlot) []domain.AvailabilitySlot {
	y, m, d := date.Date()
	var booked [HoursPerDay]bool

	for _, b := range bookings {
		if b.Status == domain.StatusCancelled {
			continue
		}
		st, et := b.StartTime.UTC(), b.EndTime.UTC()
		by, bm, bd := st.Date()
		if by != y || bm != m || bd != d {
			continue
		}
		start := st.Hour()
		end := et.Hour()
		ey, em, ed := et.Date()
		if time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC).After(time.Date(y, m, d, 0, 0, 0, 0, time.UTC)) {
			end = HoursPerDay
		}
		for h := start; h < end && h < HoursPerDay; h++ {
			booked[h] = true
		}
	}

	out := make([]domain.AvailabilitySlot, HoursPerDay)
	for h := 0; h < HoursPerDay; h++ {
		out[h] = domain.AvailabilitySlot{StartHour: h, EndHour: h + 1, Available: !booked[h]}
	}
	return out
}
