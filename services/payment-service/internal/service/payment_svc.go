package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pitchplease/facility-booking/pkg/events"
	"github.com/pitchplease/facility-booking/pkg/mq"
	"github.com/pitchplease/facility-booking/services/payment-service/internal/domain"
	"github.com/pitchplease/facility-booking/services/payment-service/internal/strategy"
)

type Store interface {
	Create(ctx context.Context, p *domain.Payment) error
	ByID(ctx context.Context, id int64) (*domain.Payment, error)
	ByBookingGroup(ctx context.Context, groupID int64) (*domain.Payment, error)
	ByTransactionID(ctx context.Context, txID string) (*domain.Payment, error)
	ByUser(ctx context.Context, userID int64) ([]domain.Payment, error)
	ByFacility(ctx context.Context, facilityID int64) ([]domain.Payment, error)
	UpdateStatus(ctx context.Context, id int64, st domain.Status) (*domain.Payment, error)
	UpdateStatusByBookingGroup(ctx context.Context, groupID int64, st domain.Status) (int64, error)
	UpdateStatusByFacility(ctx context.Context, facilityID int64, st domain.Status) (int64, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, ch strategy.Charge) (strategy.Settlement, error)
	Methods() []string
}

type PaymentSvc struct {
	repo     Store
	dispatch Dispatcher
	statuses *domain.StatusSet
	pub      mq.EventPublisher
	log      logrus.FieldLogger
}

func NewPaymentSvc(r Store, d Dispatcher, statuses *domain.StatusSet, pub mq.EventPublisher, log logrus.FieldLogger) *PaymentSvc {
	if pub == nil {
		pub = mq.Noop{}
	}
	return &PaymentSvc{repo: r, dispatch: d, statuses: statuses, pub: pub, log: log}
}

// Create settles the charge first and only persists a record when the
// handler accepted it. An unsupported method leaves no trace in storage.
func (s *PaymentSvc) Create(ctx context.Context, in domain.CreatePaymentRequest) (*domain.Payment, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	log := s.log.WithFields(logrus.Fields{
		"booking_group_id": in.BookingGroupID,
		"user_id":          in.UserID,
		"payment_method":   in.PaymentMethod,
	})

	st, err := s.dispatch.Dispatch(ctx, strategy.Charge{
		BookingGroupID: in.BookingGroupID,
		UserID:         in.UserID,
		Amount:         in.Amount,
		Method:         in.PaymentMethod,
	})
	if err != nil {
		log.WithError(err).Warn("payment not settled")
		return nil, err
	}

	p := &domain.Payment{
		BookingGroupID: in.BookingGroupID,
		UserID:         in.UserID,
		UserName:       in.UserName,
		FacilityID:     in.FacilityID,
		FacilityName:   in.FacilityName,
		AddonsString:   in.AddonsString,
		Amount:         in.Amount,
		PaymentMethod:  in.PaymentMethod,
		PaymentStatus:  st.Status,
		TransactionID:  st.TransactionID,
		CreatedAt:      st.CreatedAt,
		UpdatedAt:      st.CreatedAt,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		log.WithError(err).WithField("transaction_id", st.TransactionID).Error("payment settled but not stored")
		return nil, fmt.Errorf("store payment: %w", err)
	}

	if err := s.pub.PublishJSON(ctx, events.RKPaymentCreated, events.PaymentCreated{
		PaymentID:      p.PaymentID,
		BookingGroupID: p.BookingGroupID,
		UserID:         p.UserID,
		Amount:         p.Amount.StringFixed(2),
		Method:         p.PaymentMethod,
		Status:         string(p.PaymentStatus),
		TransactionID:  p.TransactionID,
		OccurredAt:     time.Now().UTC(),
	}); err != nil {
		log.WithError(err).Warn("publish payment.created")
	}
	log.WithFields(logrus.Fields{"payment_id": p.PaymentID, "status": p.PaymentStatus}).Info("payment created")
	return p, nil
}

func (s *PaymentSvc) Get(ctx context.Context, id int64) (*domain.Payment, error) {
	return s.repo.ByID(ctx, id)
}

func (s *PaymentSvc) ByBookingGroup(ctx context.Context, groupID int64) (*domain.Payment, error) {
	return s.repo.ByBookingGroup(ctx, groupID)
}

func (s *PaymentSvc) ByUser(ctx context.Context, userID int64) ([]domain.Payment, error) {
	return s.repo.ByUser(ctx, userID)
}

func (s *PaymentSvc) ByFacility(ctx context.Context, facilityID int64) ([]domain.Payment, error) {
	return s.repo.ByFacility(ctx, facilityID)
}

func (s *PaymentSvc) Methods() []string {
	return s.dispatch.Methods()
}

func (s *PaymentSvc) UpdateStatus(ctx context.Context, id int64, raw string) (*domain.Payment, error) {
	st, err := s.statuses.Parse(raw)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.UpdateStatus(ctx, id, st)
	if err != nil {
		return nil, err
	}
	s.statusChanged(ctx, "payment", id, p.BookingGroupID, st, 1)
	return p, nil
}

func (s *PaymentSvc) Refund(ctx context.Context, id int64) (*domain.Payment, error) {
	return s.UpdateStatus(ctx, id, string(domain.StatusRefunded))
}

// UpdateStatusByBookingGroup is the target of the booking-cancel cascade.
func (s *PaymentSvc) UpdateStatusByBookingGroup(ctx context.Context, groupID int64, raw string) (int64, error) {
	st, err := s.statuses.Parse(raw)
	if err != nil {
		return 0, err
	}
	n, err := s.repo.UpdateStatusByBookingGroup(ctx, groupID, st)
	if err != nil {
		return 0, fmt.Errorf("update payments of group %d: %w", groupID, err)
	}
	s.statusChanged(ctx, "booking_group", groupID, groupID, st, n)
	return n, nil
}

// UpdateStatusByFacility is the target of the facility-delisting cascade.
func (s *PaymentSvc) UpdateStatusByFacility(ctx context.Context, facilityID int64, raw string) (int64, error) {
	st, err := s.statuses.Parse(raw)
	if err != nil {
		return 0, err
	}
	n, err := s.repo.UpdateStatusByFacility(ctx, facilityID, st)
	if err != nil {
		return 0, fmt.Errorf("update payments of facility %d: %w", facilityID, err)
	}
	s.statusChanged(ctx, "facility", facilityID, 0, st, n)
	return n, nil
}

// SettleByTransaction applies an asynchronous gateway result to the payment
// holding txID.
func (s *PaymentSvc) SettleByTransaction(ctx context.Context, txID string, st domain.Status) (*domain.Payment, error) {
	p, err := s.repo.ByTransactionID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if p.PaymentStatus == st {
		return p, nil
	}
	return s.UpdateStatus(ctx, p.PaymentID, string(st))
}

func (s *PaymentSvc) statusChanged(ctx context.Context, scope string, ref, groupID int64, st domain.Status, n int64) {
	log := s.log.WithFields(logrus.Fields{"scope": scope, "ref": ref, "status": st, "updated": n})
	log.Info("payment status updated")
	if n == 0 {
		return
	}
	if err := s.pub.PublishJSON(ctx, events.RKPaymentStatusUpdated, events.PaymentStatusUpdated{
		Scope:          scope,
		Ref:            ref,
		BookingGroupID: groupID,
		Status:         string(st),
		UpdatedCount:   n,
		OccurredAt:     time.Now().UTC(),
	}); err != nil {
		log.WithError(err).Warn("publish payment.status.updated")
	}
}
