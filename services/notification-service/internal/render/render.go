package render

import (
	"errors"
	"fmt"
	"time"

	"github.com/pitchplease/facility-booking/pkg/events"
)

// ErrUnknownKey is returned for routing keys that have no message template.
var ErrUnknownKey = errors.New("no template for routing key")

type Message struct {
	Subject string
	Body    string
	UserID  int64
}

// Render turns one event payload into a notification. Decode failures are
// returned as errors; the message is then unusable.
func Render(key string, body []byte) (Message, error) {
	switch key {
	case events.RKBookingGroupCreated:
		ev, err := events.Decode[events.BookingGroupCreated](body)
		if err != nil {
			return Message{}, err
		}
		return Message{
			Subject: "Booking Created",
			Body: fmt.Sprintf("Booking group %d: %d slot(s) at facility %d starting %s, total %s.",
				ev.BookingGroupID, ev.Slots, ev.FacilityID, clock(ev.FirstStart), ev.TotalPrice),
			UserID: ev.UserID,
		}, nil

	case events.RKBookingGroupCancelled:
		ev, err := events.Decode[events.BookingGroupCancelled](body)
		if err != nil {
			return Message{}, err
		}
		return Message{
			Subject: "Booking Cancelled",
			Body:    fmt.Sprintf("Booking group %d cancelled, %d slot(s) released.", ev.BookingGroupID, ev.CancelledCount),
		}, nil

	case events.RKPaymentCreated:
		ev, err := events.Decode[events.PaymentCreated](body)
		if err != nil {
			return Message{}, err
		}
		return Message{
			Subject: "Payment Recorded",
			Body: fmt.Sprintf("Payment %d for booking group %d: %s via %s, status %s (tx=%s).",
				ev.PaymentID, ev.BookingGroupID, ev.Amount, ev.Method, ev.Status, ev.TransactionID),
			UserID: ev.UserID,
		}, nil

	case events.RKPaymentStatusUpdated:
		ev, err := events.Decode[events.PaymentStatusUpdated](body)
		if err != nil {
			return Message{}, err
		}
		return Message{
			Subject: "Payment Status Updated",
			Body:    fmt.Sprintf("%s %d: %d payment(s) now %s.", scopeLabel(ev.Scope), ev.Ref, ev.UpdatedCount, ev.Status),
		}, nil

	case events.RKFacilityDeleted:
		ev, err := events.Decode[events.FacilityDeleted](body)
		if err != nil {
			return Message{}, err
		}
		return Message{
			Subject: "Facility Delisted",
			Body:    fmt.Sprintf("Facility %d (%s) has been delisted.", ev.FacilityID, ev.Name),
			UserID:  ev.OwnerID,
		}, nil
	}
	return Message{}, fmt.Errorf("%w: %s", ErrUnknownKey, key)
}

func scopeLabel(scope string) string {
	switch scope {
	case "booking_group":
		return "Booking group"
	case "facility":
		return "Facility"
	default:
		return "Payment"
	}
}

func clock(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}
