package consumer

import (
	"context"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/pitchplease/facility-booking/pkg/events"
)

// StatusFailed is the payment status that releases a booking group.
const StatusFailed = "FAILED"

type Source interface {
	Deliveries(ctx context.Context) (<-chan amqp.Delivery, error)
}

type GroupCanceller interface {
	CancelGroup(ctx context.Context, groupID int64) (int64, error)
}

// PaymentConsumer releases the slots of a booking group whose payment failed
// after the fact, e.g. an expired PromptPay charge settled by webhook.
type PaymentConsumer struct {
	src    Source
	groups GroupCanceller
	log    logrus.FieldLogger
}

func NewPaymentConsumer(src Source, groups GroupCanceller, log logrus.FieldLogger) *PaymentConsumer {
	return &PaymentConsumer{src: src, groups: groups, log: log}
}

func (pc *PaymentConsumer) Run(ctx context.Context) error {
	msgs, err := pc.src.Deliveries(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			pc.handle(ctx, d)
		}
	}
}

func (pc *PaymentConsumer) handle(ctx context.Context, d amqp.Delivery) {
	if d.RoutingKey != events.RKPaymentStatusUpdated {
		_ = d.Ack(false)
		return
	}
	ev, err := events.Decode[events.PaymentStatusUpdated](d.Body)
	if err != nil {
		pc.log.WithError(err).WithField("message_id", d.MessageId).Error("undecodable payment event")
		_ = d.Nack(false, false)
		return
	}
	if ev.Status != StatusFailed || ev.BookingGroupID <= 0 {
		_ = d.Ack(false)
		return
	}

	log := pc.log.WithField("booking_group_id", ev.BookingGroupID)
	n, err := pc.groups.CancelGroup(ctx, ev.BookingGroupID)
	if err != nil {
		// a second failure goes to the dead-letter queue
		log.WithError(err).Warn("release booking group after failed payment")
		_ = d.Nack(false, !d.Redelivered)
		return
	}
	log.WithField("cancelled", n).Info("booking group released after failed payment")
	_ = d.Ack(false)
}
