package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/pitchplease/facility-booking/pkg/events"
	"github.com/pitchplease/facility-booking/pkg/mq"
	"github.com/pitchplease/facility-booking/services/booking-service/internal/domain"
)

// GroupStatusCompleted is what the create response reports for a fully persisted group.
const GroupStatusCompleted = "COMPLETED"

type Store interface {
	Create(ctx context.Context, b *domain.BookingSlot) error
	SetGroupStatus(ctx context.Context, groupID int64, from, to domain.Status) (int64, error)
	CancelGroup(ctx context.Context, groupID int64) (int64, error)
	ByID(ctx context.Context, id int64) (*domain.BookingSlot, error)
	All(ctx context.Context) ([]domain.BookingSlot, error)
	ByUser(ctx context.Context, userID int64) ([]domain.BookingSlot, error)
	ByFacility(ctx context.Context, facilityID int64) ([]domain.BookingSlot, error)
	ByUserAndStatus(ctx context.Context, userID int64, st domain.Status) ([]domain.BookingSlot, error)
	ByGroup(ctx context.Context, groupID int64) ([]domain.BookingSlot, error)
	Conflicts(ctx context.Context, facilityID int64, start, end time.Time) ([]domain.BookingSlot, error)
}

type IDGenerator interface {
	Next() int64
}

type Availability interface {
	Slots(ctx context.Context, facilityID int64, date time.Time) ([]domain.AvailabilitySlot, error)
	Invalidate(ctx context.Context, facilityID int64, days ...string)
}

type BookingSvc struct {
	repo       Store
	ids        IDGenerator
	avail      Availability
	pub        mq.EventPublisher
	hourlyRate decimal.Decimal
	log        logrus.FieldLogger
}

func NewBookingSvc(r Store, ids IDGenerator, avail Availability, pub mq.EventPublisher, hourlyRate decimal.Decimal, log logrus.FieldLogger) *BookingSvc {
	if pub == nil {
		pub = mq.Noop{}
	}
	return &BookingSvc{repo: r, ids: ids, avail: avail, pub: pub, hourlyRate: hourlyRate, log: log}
}

type plannedSlot struct {
	start, end time.Time
	hours      int
}

func (s *BookingSvc) plan(req domain.CreateGroupRequest) ([]plannedSlot, error) {
	if req.UserID <= 0 || req.FacilityID <= 0 {
		return nil, fmt.Errorf("%w: userId and facilityId are required", domain.ErrValidation)
	}
	if len(req.TimeSlots) == 0 {
		return nil, fmt.Errorf("%w: No valid time slots provided for booking", domain.ErrValidation)
	}
	out := make([]plannedSlot, 0, len(req.TimeSlots))
	for i, ts := range req.TimeSlots {
		ds := ts.Date
		if ds == "" {
			ds = req.Date
		}
		day, err := time.Parse(domain.DateLayout, ds)
		if err != nil {
			return nil, fmt.Errorf("%w: slot %d: invalid date %q", domain.ErrValidation, i, ds)
		}
		if ts.StartHour < 0 || ts.EndHour > 24 || ts.StartHour >= ts.EndHour {
			return nil, fmt.Errorf("%w: slot %d: invalid hours %d-%d", domain.ErrValidation, i, ts.StartHour, ts.EndHour)
		}
		out = append(out, plannedSlot{
			// hour 24 normalises to 00:00 of the next day
			start: time.Date(day.Year(), day.Month(), day.Day(), ts.StartHour, 0, 0, 0, time.UTC),
			end:   time.Date(day.Year(), day.Month(), day.Day(), ts.EndHour, 0, 0, 0, time.UTC),
			hours: ts.EndHour - ts.StartHour,
		})
	}
	return out, nil
}

// CreateGroup persists one slot per requested range under a fresh group id.
// Slots are written one at a time; a failure part way leaves the earlier
// slots in storage as pending.
func (s *BookingSvc) CreateGroup(ctx context.Context, req domain.CreateGroupRequest) (*domain.Group, error) {
	planned, err := s.plan(req)
	if err != nil {
		return nil, err
	}

	groupID := s.ids.Next()
	log := s.log.WithFields(logrus.Fields{
		"booking_group_id": groupID,
		"user_id":          req.UserID,
		"facility_id":      req.FacilityID,
	})

	created := make([]domain.BookingSlot, 0, len(planned))
	total := decimal.Zero
	for i, p := range planned {
		b := domain.BookingSlot{
			BookingGroupID: groupID,
			FacilityID:     req.FacilityID,
			UserID:         req.UserID,
			StartTime:      p.start,
			EndTime:        p.end,
			TotalPrice:     s.hourlyRate.Mul(decimal.NewFromInt(int64(p.hours))),
			Status:         domain.StatusPending,
		}
		if err := s.repo.Create(ctx, &b); err != nil {
			log.WithError(err).WithField("persisted", i).Error("booking group partially persisted")
			s.invalidate(ctx, req.FacilityID, created)
			return nil, fmt.Errorf("create slot %d of group %d: %w", i+1, groupID, err)
		}
		created = append(created, b)
		total = total.Add(b.TotalPrice)
	}

	if _, err := s.repo.SetGroupStatus(ctx, groupID, domain.StatusPending, domain.StatusCompleted); err != nil {
		log.WithError(err).Error("promote booking group")
		s.invalidate(ctx, req.FacilityID, created)
		return nil, fmt.Errorf("complete group %d: %w", groupID, err)
	}
	for i := range created {
		created[i].Status = domain.StatusCompleted
	}
	s.invalidate(ctx, req.FacilityID, created)

	if err := s.pub.PublishJSON(ctx, events.RKBookingGroupCreated, events.BookingGroupCreated{
		BookingGroupID: groupID,
		UserID:         req.UserID,
		FacilityID:     req.FacilityID,
		Slots:          len(created),
		TotalPrice:     total.StringFixed(2),
		FirstStart:     created[0].StartTime,
		OccurredAt:     time.Now().UTC(),
	}); err != nil {
		log.WithError(err).Warn("publish booking.group.created")
	}

	log.WithField("slots", len(created)).Info("booking group created")
	return &domain.Group{
		BookingGroupID: groupID,
		UserID:         req.UserID,
		FacilityID:     req.FacilityID,
		Status:         GroupStatusCompleted,
		Bookings:       created,
	}, nil
}

// CancelGroup marks every live slot of the group cancelled and returns how many changed.
// An unknown group yields 0 and no error.
func (s *BookingSvc) CancelGroup(ctx context.Context, groupID int64) (int64, error) {
	slots, err := s.repo.ByGroup(ctx, groupID)
	if err != nil {
		return 0, fmt.Errorf("load group %d: %w", groupID, err)
	}
	n, err := s.repo.CancelGroup(ctx, groupID)
	if err != nil {
		return 0, fmt.Errorf("cancel group %d: %w", groupID, err)
	}

	byFacility := map[int64][]domain.BookingSlot{}
	for _, b := range slots {
		byFacility[b.FacilityID] = append(byFacility[b.FacilityID], b)
	}
	for fid, bs := range byFacility {
		s.invalidate(ctx, fid, bs)
	}

	log := s.log.WithFields(logrus.Fields{"booking_group_id": groupID, "cancelled": n})
	if n == 0 {
		log.Info("no bookings to cancel for group")
		return 0, nil
	}
	if err := s.pub.PublishJSON(ctx, events.RKBookingGroupCancelled, events.BookingGroupCancelled{
		BookingGroupID: groupID,
		CancelledCount: n,
		OccurredAt:     time.Now().UTC(),
	}); err != nil {
		log.WithError(err).Warn("publish booking.group.cancelled")
	}
	log.Info("booking group cancelled")
	return n, nil
}

func (s *BookingSvc) AvailableSlots(ctx context.Context, facilityID int64, date string) ([]domain.AvailabilitySlot, error) {
	day, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q", domain.ErrValidation, date)
	}
	return s.avail.Slots(ctx, facilityID, day)
}

// IsAvailable reports whether [start, end) is free for the facility. It is a
// read path only; CreateGroup does not consult it.
func (s *BookingSvc) IsAvailable(ctx context.Context, facilityID int64, start, end time.Time) (bool, error) {
	if !end.After(start) {
		return false, fmt.Errorf("%w: end must be after start", domain.ErrValidation)
	}
	conflicts, err := s.repo.Conflicts(ctx, facilityID, start, end)
	if err != nil {
		return false, err
	}
	return len(conflicts) == 0, nil
}

func (s *BookingSvc) Get(ctx context.Context, id int64) (*domain.BookingSlot, error) {
	return s.repo.ByID(ctx, id)
}

func (s *BookingSvc) All(ctx context.Context) ([]domain.BookingSlot, error) {
	return s.repo.All(ctx)
}

func (s *BookingSvc) ByUser(ctx context.Context, userID int64) ([]domain.BookingSlot, error) {
	return s.repo.ByUser(ctx, userID)
}

func (s *BookingSvc) ByFacility(ctx context.Context, facilityID int64) ([]domain.BookingSlot, error) {
	return s.repo.ByFacility(ctx, facilityID)
}

func (s *BookingSvc) ByUserAndStatus(ctx context.Context, userID int64, status string) ([]domain.BookingSlot, error) {
	st, err := domain.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	return s.repo.ByUserAndStatus(ctx, userID, st)
}

func (s *BookingSvc) ByGroup(ctx context.Context, groupID int64) ([]domain.BookingSlot, error) {
	return s.repo.ByGroup(ctx, groupID)
}

func (s *BookingSvc) invalidate(ctx context.Context, facilityID int64, slots []domain.BookingSlot) {
	if len(slots) == 0 {
		return
	}
	seen := map[string]struct{}{}
	for _, b := range slots {
		seen[b.StartTime.UTC().Format(domain.DateLayout)] = struct{}{}
	}
	days := make([]string, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Strings(days)
	s.avail.Invalidate(ctx, facilityID, days...)
}
