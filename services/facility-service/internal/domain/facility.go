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
	ErrNotFound   = errors.New("facility not found")
)

type Facility struct {
	ID           int64           `gorm:"column:facility_id;primaryKey;autoIncrement" json:"facilityId"`
	Name         string          `gorm:"size:100;not null" json:"name"`
	Description  string          `gorm:"type:text" json:"description"`
	Address      string          `gorm:"not null" json:"address"`
	City         string          `gorm:"size:50;not null;index" json:"city"`
	FacilityType string          `gorm:"size:50;not null;index" json:"facilityType"`
	HourlyRate   decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"hourlyRate"`
	OwnerID      int64           `gorm:"index" json:"ownerId"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

func (Facility) TableName() string { return "facilities" }

// Validate checks the fields required on create and update.
func (f *Facility) Validate() error {
	var missing []string
	if strings.TrimSpace(f.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(f.Address) == "" {
		missing = append(missing, "address")
	}
	if strings.TrimSpace(f.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(f.FacilityType) == "" {
		missing = append(missing, "facilityType")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}
	if f.HourlyRate.IsNegative() {
		return fmt.Errorf("%w: hourlyRate must not be negative", ErrValidation)
	}
	return nil
}

// Search filters facilities. Zero values match everything.
type Search struct {
	City         string
	FacilityType string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	Page         int
	Size         int
}
