package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("payment not found")
)

type Status string

const (
	StatusCompleted                Status = "COMPLETED"
	StatusCancelled                Status = "CANCELLED"
	StatusDelistedRefundProcessing Status = "DELISTED_REFUND_PROCESSING"
	StatusRefunded                 Status = "REFUNDED"

	// registered only when the Omise handler is enabled
	StatusPending Status = "PENDING"
	StatusFailed  Status = "FAILED"
)

// StatusSet is the closed set of payment statuses accepted on write, built at
// startup from the known values plus configured extensions.
type StatusSet struct {
	known map[Status]struct{}
}

func NewStatusSet(extra ...string) *StatusSet {
	s := &StatusSet{known: map[Status]struct{}{}}
	for _, st := range []Status{StatusCompleted, StatusCancelled, StatusDelistedRefundProcessing, StatusRefunded} {
		s.known[st] = struct{}{}
	}
	s.Add(extra...)
	return s
}

func (s *StatusSet) Add(extra ...string) {
	for _, e := range extra {
		if e = normalize(e); e != "" {
			s.known[Status(e)] = struct{}{}
		}
	}
}

func (s *StatusSet) Parse(raw string) (Status, error) {
	st := Status(normalize(raw))
	if _, ok := s.known[st]; !ok {
		return "", fmt.Errorf("%w: unknown payment status %q", ErrValidation, raw)
	}
	return st, nil
}

func (s *StatusSet) List() []string {
	out := make([]string, 0, len(s.known))
	for st := range s.known {
		out = append(out, string(st))
	}
	sort.Strings(out)
	return out
}

func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

type Payment struct {
	PaymentID      int64           `gorm:"primaryKey;autoIncrement" json:"paymentId"`
	BookingGroupID int64           `gorm:"index;not null" json:"bookingGroupId"`
	UserID         int64           `gorm:"index;not null" json:"userId"`
	UserName       string          `gorm:"size:50;not null" json:"userName"`
	FacilityID     int64           `gorm:"index;not null" json:"facilityId"`
	FacilityName   string          `gorm:"size:100;not null" json:"facilityName"`
	AddonsString   string          `gorm:"size:200" json:"addonsString"`
	Amount         decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	PaymentMethod  string          `gorm:"size:50;not null" json:"paymentMethod"`
	PaymentStatus  Status          `gorm:"size:1000;not null" json:"paymentStatus"`
	TransactionID  string          `gorm:"size:100;index" json:"transactionId"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (Payment) TableName() string { return "payments" }

// CreatePaymentRequest is the payment half of a saga request. PaymentStatus is
// accepted for compatibility and ignored; the handler decides the status.
type CreatePaymentRequest struct {
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

func (r CreatePaymentRequest) Validate() error {
	var missing []string
	if r.BookingGroupID <= 0 {
		missing = append(missing, "bookingGroupId")
	}
	if r.UserID <= 0 {
		missing = append(missing, "userId")
	}
	if r.FacilityID <= 0 {
		missing = append(missing, "facilityId")
	}
	if strings.TrimSpace(r.PaymentMethod) == "" {
		missing = append(missing, "paymentMethod")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}
	if r.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", ErrValidation)
	}
	return nil
}
