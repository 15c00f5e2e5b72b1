package saga

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pitchplease/facility-booking/services/api-gateway/internal/clients"
)

const (
	FlowCreate         = "create"
	FlowCancelGroup    = "cancel_group"
	FlowDeleteFacility = "delete_facility"

	OutcomeSuccess        = "success"
	OutcomeBookingFailed  = "booking_failed"
	OutcomeFacilityFailed = "facility_failed"
	OutcomePartialFailure = "partial_failure"
	OutcomeCascadeFailure = "cascade_failure"
)

var outcomes = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "saga_outcomes_total",
		Help: "Saga runs by flow and outcome",
	},
	[]string{"flow", "outcome"},
)

type Bookings interface {
	CreateGroup(ctx context.Context, body any) (*clients.Reply, error)
	CancelGroup(ctx context.Context, groupID int64) (*clients.Reply, error)
}

type Payments interface {
	Create(ctx context.Context, body any) (*clients.Reply, error)
	UpdateStatusByBookingGroup(ctx context.Context, groupID int64, status string) (*clients.Reply, error)
	UpdateStatusByFacility(ctx context.Context, facilityID int64, status string) (*clients.Reply, error)
}

type Facilities interface {
	Delete(ctx context.Context, facilityID int64) (*clients.Reply, error)
}

// Orchestrator runs the cross-service flows at the edge. It holds no durable
// state: every step is one synchronous downstream call and the first failure
// ends the flow.
type Orchestrator struct {
	bookings   Bookings
	payments   Payments
	facilities Facilities
	log        logrus.FieldLogger
	tracer     trace.Tracer

	cascadeTimeout time.Duration
}

func New(b Bookings, p Payments, f Facilities, cascadeTimeout time.Duration, log logrus.FieldLogger) *Orchestrator {
	if cascadeTimeout <= 0 {
		cascadeTimeout = 10 * time.Second
	}
	return &Orchestrator{
		bookings:       b,
		payments:       p,
		facilities:     f,
		log:            log,
		tracer:         otel.Tracer("api-gateway/saga"),
		cascadeTimeout: cascadeTimeout,
	}
}

// Combined is the booking response object with the payment response nested
// under "payment".
type Combined map[string]json.RawMessage

// Create books the slots and then pays for them. A payment failure returns a
// *PartialFailureError and leaves the booking group in place.
func (o *Orchestrator) Create(ctx context.Context, req CreateRequest) (Combined, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	log := o.log.WithFields(logrus.Fields{
		"flow":           FlowCreate,
		"user_id":        req.UserID,
		"facility_id":    req.FacilityID,
		"payment_method": req.PaymentMethod,
	})

	var booking *clients.Reply
	err := o.step(ctx, "saga.create.booking", func(ctx context.Context) (err error) {
		booking, err = o.bookings.CreateGroup(ctx, req.booking())
		return err
	})
	if err != nil {
		o.finish(log, FlowCreate, OutcomeBookingFailed, err)
		return nil, err
	}

	out := Combined{}
	if err := json.Unmarshal(booking.Body, &out); err != nil {
		err = &clients.DownstreamError{Service: "booking", Op: "create_group", Err: fmt.Errorf("decode response: %w", err)}
		o.finish(log, FlowCreate, OutcomeBookingFailed, err)
		return nil, err
	}
	var groupID int64
	if raw, ok := out["bookingGroupId"]; !ok || json.Unmarshal(raw, &groupID) != nil || groupID == 0 {
		err := &clients.DownstreamError{Service: "booking", Op: "create_group", Err: errors.New("response carries no bookingGroupId")}
		o.finish(log, FlowCreate, OutcomeBookingFailed, err)
		return nil, err
	}
	log = log.WithField("booking_group_id", groupID)

	var payment *clients.Reply
	err = o.step(ctx, "saga.create.payment", func(ctx context.Context) (err error) {
		payment, err = o.payments.Create(ctx, req.payment(groupID))
		return err
	}, attribute.Int64("booking_group_id", groupID))
	if err != nil {
		err = &PartialFailureError{BookingGroupID: groupID, Cause: err}
		o.finish(log, FlowCreate, OutcomePartialFailure, err)
		return nil, err
	}

	out["payment"] = json.RawMessage(payment.Body)
	o.finish(log, FlowCreate, OutcomeSuccess, nil)
	return out, nil
}

// CancelGroup cancels the booking group and then marks its payment CANCELLED.
// The booking reply is returned whatever happens to the payment update.
func (o *Orchestrator) CancelGroup(ctx context.Context, groupID int64) (*clients.Reply, error) {
	log := o.log.WithFields(logrus.Fields{"flow": FlowCancelGroup, "booking_group_id": groupID})

	var rep *clients.Reply
	err := o.step(ctx, "saga.cancel.booking", func(ctx context.Context) (err error) {
		rep, err = o.bookings.CancelGroup(ctx, groupID)
		return err
	}, attribute.Int64("booking_group_id", groupID))
	if err != nil {
		o.finish(log, FlowCancelGroup, OutcomeBookingFailed, err)
		return nil, err
	}

	o.cascade(ctx, log, FlowCancelGroup, "saga.cancel.payment_status", func(ctx context.Context) error {
		_, err := o.payments.UpdateStatusByBookingGroup(ctx, groupID, StatusCancelled)
		return err
	})
	return rep, nil
}

// DeleteFacility deletes the facility and then moves all of its payments to
// DELISTED_REFUND_PROCESSING.
func (o *Orchestrator) DeleteFacility(ctx context.Context, facilityID int64) (*clients.Reply, error) {
	log := o.log.WithFields(logrus.Fields{"flow": FlowDeleteFacility, "facility_id": facilityID})

	var rep *clients.Reply
	err := o.step(ctx, "saga.delete.facility", func(ctx context.Context) (err error) {
		rep, err = o.facilities.Delete(ctx, facilityID)
		return err
	}, attribute.Int64("facility_id", facilityID))
	if err != nil {
		o.finish(log, FlowDeleteFacility, OutcomeFacilityFailed, err)
		return nil, err
	}

	o.cascade(ctx, log, FlowDeleteFacility, "saga.delete.payment_status", func(ctx context.Context) error {
		_, err := o.payments.UpdateStatusByFacility(ctx, facilityID, StatusDelisted)
		return err
	})
	return rep, nil
}

// cascade runs detached from the caller's cancellation so a client that hangs
// up after the primary step does not abort the status update.
func (o *Orchestrator) cascade(ctx context.Context, log logrus.FieldLogger, flow, span string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cascadeTimeout)
	defer cancel()
	if err := o.step(ctx, span, fn); err != nil {
		o.finish(log, flow, OutcomeCascadeFailure, err)
		return
	}
	o.finish(log, flow, OutcomeSuccess, nil)
}

func (o *Orchestrator) step(ctx context.Context, name string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	defer span.End()
	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (o *Orchestrator) finish(log logrus.FieldLogger, flow, outcome string, err error) {
	outcomes.WithLabelValues(flow, outcome).Inc()
	entry := log.WithField("outcome", outcome)
	switch outcome {
	case OutcomeSuccess:
		entry.Info("saga finished")
	case OutcomePartialFailure:
		entry.WithError(err).Error("saga left booking without payment")
	case OutcomeCascadeFailure:
		entry.WithError(err).Error("saga cascade failed")
	default:
		entry.WithError(err).Warn("saga aborted")
	}
}
