package omisecli

import (
	"context"
	"fmt"
	"time"

	"github.com/omise/omise-go"
	"github.com/shopspring/decimal"

	"github.com/pitchplease/facility-booking/services/payment-service/internal/domain"
	"github.com/pitchplease/facility-booking/services/payment-service/internal/strategy"
)

const MethodPromptPay = "PromptPay"

var hundred = decimal.NewFromInt(100)

// PromptPayHandler creates a promptpay source and a charge against it. The
// charge is usually still pending; the webhook reports the final status.
type PromptPayHandler struct {
	gw       Gateway
	currency string
}

func NewPromptPayHandler(gw Gateway, currency string) *PromptPayHandler {
	if currency == "" {
		currency = "THB"
	}
	return &PromptPayHandler{gw: gw, currency: currency}
}

func (h *PromptPayHandler) Method() string { return MethodPromptPay }

func (h *PromptPayHandler) Settle(_ context.Context, ch strategy.Charge) (strategy.Settlement, error) {
	// smallest currency unit (satang for THB)
	amount := ch.Amount.Mul(hundred).Round(0).IntPart()
	if amount <= 0 {
		return strategy.Settlement{}, fmt.Errorf("%w: promptpay amount must be positive", domain.ErrValidation)
	}
	src, err := h.gw.CreateSource("promptpay", amount, h.currency)
	if err != nil {
		return strategy.Settlement{}, fmt.Errorf("omise create source: %w", err)
	}
	charge, err := h.gw.CreateCharge(amount, h.currency, src.ID, map[string]interface{}{
		"booking_group_id": ch.BookingGroupID,
		"user_id":          ch.UserID,
	})
	if err != nil {
		return strategy.Settlement{}, fmt.Errorf("omise create charge: %w", err)
	}
	return strategy.Settlement{
		Status:        StatusFromCharge(charge),
		TransactionID: charge.ID,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// StatusFromCharge maps an Omise charge state onto a payment status.
func StatusFromCharge(ch *omise.Charge) domain.Status {
	switch string(ch.Status) {
	case "successful":
		return domain.StatusCompleted
	case "failed", "expired", "reversed":
		return domain.StatusFailed
	default:
		return domain.StatusPending
	}
}
