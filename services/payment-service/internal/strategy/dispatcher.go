package strategy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pitchplease/facility-booking/services/payment-service/internal/domain"
)

var ErrUnsupportedMethod = errors.New("unsupported payment method")

type UnsupportedMethodError struct {
	Method string
}

func (e *UnsupportedMethodError) Error() string {
	return "Unsupported payment method: " + e.Method
}

func (e *UnsupportedMethodError) Unwrap() error { return ErrUnsupportedMethod }

// Charge is what a handler settles.
type Charge struct {
	BookingGroupID int64
	UserID         int64
	Amount         decimal.Decimal
	Method         string
}

type Settlement struct {
	Status        domain.Status
	TransactionID string
	CreatedAt     time.Time
}

// Handler settles charges for exactly one payment method name.
type Handler interface {
	Method() string
	Settle(ctx context.Context, ch Charge) (Settlement, error)
}

// Dispatcher routes a charge to the handler registered for its method.
// It holds no other state.
type Dispatcher struct {
	handlers map[string]Handler
}

func NewDispatcher(hs ...Handler) (*Dispatcher, error) {
	d := &Dispatcher{handlers: make(map[string]Handler, len(hs))}
	for _, h := range hs {
		if err := d.Register(h); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Register must only be called during startup.
func (d *Dispatcher) Register(h Handler) error {
	m := h.Method()
	if m == "" {
		return errors.New("strategy: handler with empty method name")
	}
	if _, dup := d.handlers[m]; dup {
		return fmt.Errorf("strategy: method %q registered twice", m)
	}
	d.handlers[m] = h
	return nil
}

func (d *Dispatcher) Dispatch(ctx context.Context, ch Charge) (Settlement, error) {
	h, ok := d.handlers[ch.Method]
	if !ok {
		return Settlement{}, &UnsupportedMethodError{Method: ch.Method}
	}
	return h.Settle(ctx, ch)
}

func (d *Dispatcher) Methods() []string {
	out := make([]string, 0, len(d.handlers))
	for m := range d.handlers {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
