package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchplease/facility-booking/pkg/events"
	"github.com/pitchplease/facility-booking/services/notification-service/internal/render"
)

type ack struct {
	acked, nacked, requeued int
}

func (a *ack) Ack(uint64, bool) error { a.acked++; return nil }

func (a *ack) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked++
	if requeue {
		a.requeued++
	}
	return nil
}

func (a *ack) Reject(uint64, bool) error { return nil }

type recNotifier struct {
	mu   sync.Mutex
	msgs []render.Message
	err  error
}

func (r *recNotifier) Notify(_ context.Context, m render.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, m)
	return nil
}

func (r *recNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

type chanSource chan amqp.Delivery

func (c chanSource) Deliveries(context.Context) (<-chan amqp.Delivery, error) { return c, nil }

func delivery(a *ack, key, body string) amqp.Delivery {
	return amqp.Delivery{Acknowledger: a, RoutingKey: key, Body: []byte(body), MessageId: "m-1"}
}

const cancelled = `{"booking_group_id":1001,"cancelled_count":2}`

func TestHandleNotifiesAndAcks(t *testing.T) {
	log, _ := test.NewNullLogger()
	n := &recNotifier{}
	w := New(nil, n, log)
	a := &ack{}

	before := testutil.ToFloat64(handled.WithLabelValues(events.RKBookingGroupCancelled, resultSent))
	assert.Equal(t, resultSent, w.handle(context.Background(), delivery(a, events.RKBookingGroupCancelled, cancelled)))
	assert.Equal(t, 1, a.acked)
	require.Len(t, n.msgs, 1)
	assert.Equal(t, "Booking Cancelled", n.msgs[0].Subject)
	assert.Equal(t, before+1, testutil.ToFloat64(handled.WithLabelValues(events.RKBookingGroupCancelled, resultSent)))
}

func TestHandleUnknownKeyIsAcked(t *testing.T) {
	log, _ := test.NewNullLogger()
	n := &recNotifier{}
	a := &ack{}
	assert.Equal(t, resultSkipped, New(nil, n, log).handle(context.Background(), delivery(a, "court.created", `{}`)))
	assert.Equal(t, 1, a.acked)
	assert.Empty(t, n.msgs)
}

func TestHandleBrokenPayloadIsDeadLettered(t *testing.T) {
	log, hook := test.NewNullLogger()
	a := &ack{}
	assert.Equal(t, resultDeadLetter, New(nil, &recNotifier{}, log).handle(context.Background(), delivery(a, events.RKPaymentCreated, `{oops`)))
	assert.Equal(t, 1, a.nacked)
	assert.Zero(t, a.requeued)
	assert.Equal(t, "undecodable event, dead-lettering", hook.LastEntry().Message)
}

func TestHandleNotifyFailureRequeuesOnce(t *testing.T) {
	log, _ := test.NewNullLogger()
	w := New(nil, &recNotifier{err: errors.New("smtp down")}, log)

	a := &ack{}
	assert.Equal(t, resultRequeued, w.handle(context.Background(), delivery(a, events.RKBookingGroupCancelled, cancelled)))
	assert.Equal(t, 1, a.requeued)

	a = &ack{}
	d := delivery(a, events.RKBookingGroupCancelled, cancelled)
	d.Redelivered = true
	assert.Equal(t, resultDeadLetter, w.handle(context.Background(), d))
	assert.Equal(t, 1, a.nacked)
	assert.Zero(t, a.requeued)
}

func TestRunStopsOnCancelAndClosedChannel(t *testing.T) {
	log, _ := test.NewNullLogger()
	n := &recNotifier{}
	src := make(chanSource, 1)
	a := &ack{}
	src <- delivery(a, events.RKBookingGroupCancelled, cancelled)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(src, n, log).Run(ctx) }()

	require.Eventually(t, func() bool { return n.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}

	closed := make(chanSource)
	close(closed)
	assert.Error(t, New(closed, n, log).Run(context.Background()))
}
