package worker

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/pitchplease/facility-booking/services/notification-service/internal/notifier"
	"github.com/pitchplease/facility-booking/services/notification-service/internal/render"
)

const (
	resultSent       = "sent"
	resultSkipped    = "skipped"
	resultDeadLetter = "dead_letter"
	resultRequeued   = "requeued"
)

var handled = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notifications_handled_total",
		Help: "Event deliveries by routing key and result",
	},
	[]string{"key", "result"},
)

// Source is the delivery stream, normally *mq.Consumer.
type Source interface {
	Deliveries(ctx context.Context) (<-chan amqp.Delivery, error)
}

type Worker struct {
	src      Source
	notifier notifier.Notifier
	log      logrus.FieldLogger
}

func New(src Source, n notifier.Notifier, log logrus.FieldLogger) *Worker {
	return &Worker{src: src, notifier: n, log: log}
}

// Run consumes until ctx is done or the channel closes.
func (w *Worker) Run(ctx context.Context) error {
	msgs, err := w.src.Deliveries(ctx)
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
			w.handle(ctx, d)
		}
	}
}

// handle acks what it could notify or does not know, dead-letters payloads that
// cannot be decoded, and requeues a failed notify once before dead-lettering.
func (w *Worker) handle(ctx context.Context, d amqp.Delivery) string {
	log := w.log.WithFields(logrus.Fields{"routing_key": d.RoutingKey, "message_id": d.MessageId})

	key, result := d.RoutingKey, resultSent
	m, err := render.Render(d.RoutingKey, d.Body)
	switch {
	case errors.Is(err, render.ErrUnknownKey):
		log.Debug("skip unknown routing key")
		key, result = "unknown", resultSkipped
		_ = d.Ack(false)
	case err != nil:
		log.WithError(err).Error("undecodable event, dead-lettering")
		result = resultDeadLetter
		_ = d.Nack(false, false)
	default:
		if err := w.notifier.Notify(ctx, m); err != nil {
			if d.Redelivered {
				log.WithError(err).Error("notify failed again, dead-lettering")
				result = resultDeadLetter
				_ = d.Nack(false, false)
			} else {
				log.WithError(err).Warn("notify failed, requeueing")
				result = resultRequeued
				_ = d.Nack(false, true)
			}
		} else {
			_ = d.Ack(false)
		}
	}
	handled.WithLabelValues(key, result).Inc()
	return result
}
