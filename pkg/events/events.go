package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Exchanges
const (
	BookingExchange  = "booking.exchange"
	PaymentExchange  = "payment.exchange"
	FacilityExchange = "facility.exchange"
)

// Routing keys
const (
	RKBookingGroupCreated   = "booking.group.created"
	RKBookingGroupCancelled = "booking.group.cancelled"

	RKPaymentCreated       = "payment.created"
	RKPaymentStatusUpdated = "payment.status.updated"

	RKFacilityDeleted = "facility.deleted"
)

type BookingGroupCreated struct {
	BookingGroupID int64     `json:"booking_group_id"`
	UserID         int64     `json:"user_id"`
	FacilityID     int64     `json:"facility_id"`
	Slots          int       `json:"slots"`
	TotalPrice     string    `json:"total_price"`
	FirstStart     time.Time `json:"first_start"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type BookingGroupCancelled struct {
	BookingGroupID int64     `json:"booking_group_id"`
	CancelledCount int64     `json:"cancelled_count"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type PaymentCreated struct {
	PaymentID      int64     `json:"payment_id"`
	BookingGroupID int64     `json:"booking_group_id"`
	UserID         int64     `json:"user_id"`
	Amount         string    `json:"amount"`
	Method         string    `json:"method"`
	Status         string    `json:"status"`
	TransactionID  string    `json:"transaction_id"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// PaymentStatusUpdated covers single-payment updates and the bulk cascades.
// Scope is one of "payment", "booking_group" or "facility" and Ref is the id within it.
// BookingGroupID is zero for facility-wide updates.
type PaymentStatusUpdated struct {
	Scope          string    `json:"scope"`
	Ref            int64     `json:"ref"`
	BookingGroupID int64     `json:"booking_group_id,omitempty"`
	Status         string    `json:"status"`
	UpdatedCount   int64     `json:"updated_count"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type FacilityDeleted struct {
	FacilityID int64     `json:"facility_id"`
	Name       string    `json:"name"`
	OwnerID    int64     `json:"owner_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func Decode[T any](b []byte) (T, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("decode payload failed: %w", err)
	}
	return t, nil
}
