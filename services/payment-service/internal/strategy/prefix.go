package strategy

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pitchplease/facility-booking/services/payment-service/internal/domain"
)

const (
	MethodCreditCard   = "Credit Card"
	MethodPayPal       = "PayPal"
	MethodBankTransfer = "Bank Transfer"
)

// PrefixHandler is a placeholder settlement: it never talks to a gateway and
// always reports COMPLETED with a prefixed random transaction id.
type PrefixHandler struct {
	method string
	prefix string
	now    func() time.Time
}

func NewPrefixHandler(method, prefix string) *PrefixHandler {
	return &PrefixHandler{method: method, prefix: prefix, now: time.Now}
}

func (h *PrefixHandler) Method() string { return h.method }

func (h *PrefixHandler) Settle(_ context.Context, _ Charge) (Settlement, error) {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return Settlement{
		Status:        domain.StatusCompleted,
		TransactionID: h.prefix + suffix,
		CreatedAt:     h.now().UTC(),
	}, nil
}

// Builtin returns the handlers every deployment registers.
func Builtin() []Handler {
	return []Handler{
		NewPrefixHandler(MethodCreditCard, "cc_"),
		NewPrefixHandler(MethodPayPal, "pp_"),
		NewPrefixHandler(MethodBankTransfer, "bt_"),
	}
}
