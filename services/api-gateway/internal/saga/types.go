package saga

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrValidation = errors.New("validation failed")

const (
	StatusCancelled = "CANCELLED"
	StatusDelisted  = "DELISTED_REFUND_PROCESSING"
)

type TimeSlot struct {
	StartHour int    `json:"startHour"`
	EndHour   int    `json:"endHour"`
	Date      string `json:"date,omitempty"`
}

// CreateRequest is the combined booking and payment body accepted at the edge.
type CreateRequest struct {
	UserID        int64           `json:"userId"`
	FacilityID    int64           `json:"facilityId"`
	Date          string          `json:"date"`
	TimeSlots     []TimeSlot      `json:"timeSlots"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaymentMethod string          `json:"paymentMethod"`
	PaymentStatus string          `json:"paymentStatus,omitempty"`
	UserName      string          `json:"userName"`
	FacilityName  string          `json:"facilityName"`
	AddonsString  string          `json:"addonsString"`
}

// Validate rejects requests that must not reach any downstream service.
// Whether the payment method is supported is for the payment service to say.
func (r CreateRequest) Validate() error {
	var missing []string
	if r.UserID <= 0 {
		missing = append(missing, "userId")
	}
	if r.FacilityID <= 0 {
		missing = append(missing, "facilityId")
	}
	if strings.TrimSpace(r.Date) == "" {
		missing = append(missing, "date")
	}
	if strings.TrimSpace(r.PaymentMethod) == "" {
		missing = append(missing, "paymentMethod")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}
	if len(r.TimeSlots) == 0 {
		return fmt.Errorf("%w: No valid time slots provided for booking", ErrValidation)
	}
	if r.TotalAmount.IsNegative() {
		return fmt.Errorf("%w: totalAmount must not be negative", ErrValidation)
	}
	return nil
}

type bookingRequest struct {
	UserID     int64      `json:"userId"`
	FacilityID int64      `json:"facilityId"`
	Date       string     `json:"date"`
	TimeSlots  []TimeSlot `json:"timeSlots"`
}

type paymentRequest struct {
	BookingGroupID int64           `json:"bookingGroupId"`
	UserID         int64           `json:"userId"`
	UserName       string          `json:"userName"`
	FacilityID     int64           `json:"facilityId"`
	FacilityName   string          `json:"facilityName"`
	AddonsString   string          `json:"addonsString"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentMethod  string          `json:"paymentMethod"`
	PaymentStatus  string          `json:"paymentStatus,omitempty"`
}

func (r CreateRequest) booking() bookingRequest {
	return bookingRequest{UserID: r.UserID, FacilityID: r.FacilityID, Date: r.Date, TimeSlots: r.TimeSlots}
}

func (r CreateRequest) payment(groupID int64) paymentRequest {
	return paymentRequest{
		BookingGroupID: groupID,
		UserID:         r.UserID,
		UserName:       r.UserName,
		FacilityID:     r.FacilityID,
		FacilityName:   r.FacilityName,
		AddonsString:   r.AddonsString,
		Amount:         r.TotalAmount,
		PaymentMethod:  r.PaymentMethod,
		PaymentStatus:  r.PaymentStatus,
	}
}

// PartialFailureError means the booking group was committed but the payment
// step failed. Nothing is compensated.
type PartialFailureError struct {
	BookingGroupID int64
	Cause          error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("booking group %d created but payment failed: %v", e.BookingGroupID, e.Cause)
}

func (e *PartialFailureError) Unwrap() error { return e.Cause }
