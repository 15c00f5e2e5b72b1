package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pitchplease/facility-booking/pkg/events"
	"github.com/pitchplease/facility-booking/services/payment-service/internal/domain"
	"github.com/pitchplease/facility-booking/services/payment-service/internal/repository"
	"github.com/pitchplease/facility-booking/services/payment-service/internal/strategy"
)

type recPub struct{ keys []string }

func (r *recPub) PublishJSON(_ context.Context, key string, _ any) error {
	r.keys = append(r.keys, key)
	return nil
}

type fixture struct {
	svc  *PaymentSvc
	repo *repository.PaymentRepo
	pub  *recPub
	hook *test.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	repo := repository.NewPaymentRepo(gdb)
	require.NoError(t, repo.Migrate())

	d, err := strategy.NewDispatcher(strategy.Builtin()...)
	require.NoError(t, err)
	log, hook := test.NewNullLogger()
	pub := &recPub{}
	return &fixture{
		svc:  NewPaymentSvc(repo, d, domain.NewStatusSet(), pub, log),
		repo: repo, pub: pub, hook: hook,
	}
}

func request(method string) domain.CreatePaymentRequest {
	return domain.CreatePaymentRequest{
		BookingGroupID: 1001, UserID: 1, UserName: "alice",
		FacilityID: 5, FacilityName: "Court A",
		Amount: decimal.NewFromInt(80), PaymentMethod: method,
		PaymentStatus: "REFUNDED",
	}
}

func TestCreatePersistsHandlerResult(t *testing.T) {
	f := newFixture(t)
	p, err := f.svc.Create(context.Background(), request(strategy.MethodCreditCard))
	require.NoError(t, err)

	assert.NotZero(t, p.PaymentID)
	assert.Equal(t, domain.StatusCompleted, p.PaymentStatus, "client-supplied status is ignored")
	assert.Contains(t, p.TransactionID, "cc_")

	stored, err := f.svc.ByBookingGroup(context.Background(), 1001)
	require.NoError(t, err)
	assert.Equal(t, p.PaymentID, stored.PaymentID)
	assert.Equal(t, []string{events.RKPaymentCreated}, f.pub.keys)
}

func TestCreateUnsupportedMethodStoresNothing(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), request("Bitcoin"))
	require.ErrorIs(t, err, strategy.ErrUnsupportedMethod)

	_, err = f.svc.ByBookingGroup(context.Background(), 1001)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, f.pub.keys)
}

func TestCreateValidates(t *testing.T) {
	f := newFixture(t)
	in := request(strategy.MethodPayPal)
	in.BookingGroupID = 0
	_, err := f.svc.Create(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrValidation)

	in = request(strategy.MethodPayPal)
	in.Amount = decimal.NewFromInt(-1)
	_, err = f.svc.Create(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRefundAndUpdateStatus(t *testing.T) {
	f := newFixture(t)
	p, err := f.svc.Create(context.Background(), request(strategy.MethodBankTransfer))
	require.NoError(t, err)

	got, err := f.svc.Refund(context.Background(), p.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRefunded, got.PaymentStatus)

	_, err = f.svc.UpdateStatus(context.Background(), p.PaymentID, "SHIPPED")
	assert.ErrorIs(t, err, domain.ErrValidation)

	got, err = f.svc.UpdateStatus(context.Background(), p.PaymentID, " cancelled ")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.PaymentStatus)

	_, err = f.svc.Refund(context.Background(), 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCascadeTargets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, request(strategy.MethodPayPal))
	require.NoError(t, err)
	other := request(strategy.MethodPayPal)
	other.BookingGroupID = 1002
	_, err = f.svc.Create(ctx, other)
	require.NoError(t, err)
	f.pub.keys = nil

	n, err := f.svc.UpdateStatusByBookingGroup(ctx, 1001, "CANCELLED")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = f.svc.UpdateStatusByFacility(ctx, 5, "DELISTED_REFUND_PROCESSING")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = f.svc.UpdateStatusByFacility(ctx, 77, "DELISTED_REFUND_PROCESSING")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = f.svc.UpdateStatusByBookingGroup(ctx, 1001, "bogus")
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Equal(t, []string{events.RKPaymentStatusUpdated, events.RKPaymentStatusUpdated}, f.pub.keys)
}

func TestSettleByTransaction(t *testing.T) {
	f := newFixture(t)
	f.svc.statuses.Add(string(domain.StatusPending), string(domain.StatusFailed))
	p, err := f.svc.Create(context.Background(), request(strategy.MethodPayPal))
	require.NoError(t, err)

	got, err := f.svc.SettleByTransaction(context.Background(), p.TransactionID, domain.StatusFailed)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.PaymentStatus)

	_, err = f.svc.SettleByTransaction(context.Background(), "chrg_missing", domain.StatusCompleted)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMethods(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, []string{"Bank Transfer", "Credit Card", "PayPal"}, f.svc.Methods())
}
