package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("booking not found")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus accepts any casing ("COMPLETED" is what older clients send).
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusCompleted, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown booking status %q", ErrValidation, s)
}

// BookingSlot is one reserved hour range. Slots sharing BookingGroupID form one reservation.
type BookingSlot struct {
	BookingID      int64           `gorm:"primaryKey;autoIncrement" json:"bookingId"`
	BookingGroupID int64           `gorm:"index;not null" json:"bookingGroupId"`
	FacilityID     int64           `gorm:"index;not null" json:"facilityId"`
	UserID         int64           `gorm:"index;not null" json:"userId"`
	StartTime      time.Time       `gorm:"index;not null" json:"startTime"`
	EndTime        time.Time       `gorm:"not null" json:"endTime"`
	TotalPrice     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"totalPrice"`
	Status         Status          `gorm:"size:20;index;not null" json:"status"`
	CreatedAt      time.Time       `json:"-"`
	UpdatedAt      time.Time       `json:"-"`
}

func (BookingSlot) TableName() string { return "bookings" }

// AvailabilitySlot is one derived one-hour window; never persisted.
type AvailabilitySlot struct {
	StartHour int  `json:"startHour"`
	EndHour   int  `json:"endHour"`
	Available bool `json:"available"`
}

// TimeSlot is one requested hour range. Date, when set, overrides the request date.
type TimeSlot struct {
	StartHour int    `json:"startHour"`
	EndHour   int    `json:"endHour"`
	Date      string `json:"date,omitempty"`
}

type CreateGroupRequest struct {
	UserID     int64      `json:"userId"`
	FacilityID int64      `json:"facilityId"`
	Date       string     `json:"date"`
	TimeSlots  []TimeSlot `json:"timeSlots"`
}

type Group struct {
	BookingGroupID int64         `json:"bookingGroupId"`
	UserID         int64         `json:"userId"`
	FacilityID     int64         `json:"facilityId"`
	Status         string        `json:"status"`
	Bookings       []BookingSlot `json:"bookings"`
}

const DateLayout = "2006-01-02"
