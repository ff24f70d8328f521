package services

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/winenation/internal/models"
	"github.com/example/winenation/internal/payment"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

type fakeNotifier struct {
	calls []PaymentSuccessNotification
}

func (f *fakeNotifier) NotifyPaymentSuccess(n PaymentSuccessNotification) error {
	f.calls = append(f.calls, n)
	return nil
}

func orderRow(reference, paymentStatus, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "payment_reference", "payment_status", "status", "total_amount", "currency"}).
		AddRow(uuid.NewString(), reference, paymentStatus, status, 15000.0, "NGN")
}

func TestCreateOrder(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewOrderService(db, nil)

	mock.ExpectExec(`INSERT INTO "orders"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "order_items"`).WillReturnResult(sqlmock.NewResult(0, 2))

	productID := uuid.New()
	order, err := svc.CreateOrder(context.Background(), uuid.New(), []OrderLine{
		{ProductID: &productID, ProductName: "Chateau Test 2015", Quantity: 2, UnitPrice: 5000},
		{ProductID: &productID, ProductName: "Test Reserve 2018", Quantity: 1, UnitPrice: 5000},
	}, "12 Test Street, Lagos", 15000, "NGN")

	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Nil(t, order.PaymentReference)
	assert.Len(t, order.Items, 2)
	assert.Equal(t, 10000.0, order.Items[0].LineTotal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderNoItems(t *testing.T) {
	db, _ := newMockDB(t)
	svc := NewOrderService(db, nil)

	_, err := svc.CreateOrder(context.Background(), uuid.New(), nil, "addr", 0, "NGN")
	assert.ErrorIs(t, err, payment.ErrOrderCreationFailed)
}

func TestCreateOrderItemInsertFailureKeepsHeader(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewOrderService(db, nil)

	mock.ExpectExec(`INSERT INTO "orders"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "order_items"`).WillReturnError(errors.New("connection reset"))

	order, err := svc.CreateOrder(context.Background(), uuid.New(), []OrderLine{
		{ProductName: "Chateau Test 2015", Quantity: 1, UnitPrice: 5000},
	}, "addr", 5000, "NGN")

	// The header row survives and the caller gets both the order and the
	// error; no DELETE is ever issued.
	assert.ErrorIs(t, err, payment.ErrOrderCreationFailed)
	require.NotNil(t, order)
	assert.NotEqual(t, uuid.Nil, order.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachPaymentAttempt(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewOrderService(db, nil)

	mock.ExpectExec(`UPDATE "orders" SET`).WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.AttachPaymentAttempt(context.Background(), uuid.New(), "WN-123-456", "transactpay")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachPaymentAttemptAlreadyAttached(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewOrderService(db, nil)

	mock.ExpectExec(`UPDATE "orders" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM "orders"`).WillReturnRows(orderRow("WN-1-000001", models.PaymentStatusProcessing, models.OrderStatusPending))

	err := svc.AttachPaymentAttempt(context.Background(), uuid.New(), "WN-2-000002", "transactpay")
	assert.ErrorIs(t, err, payment.ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachPaymentAttemptOrderMissing(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewOrderService(db, nil)

	mock.ExpectExec(`UPDATE "orders" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM "orders"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	err := svc.AttachPaymentAttempt(context.Background(), uuid.New(), "WN-123-456", "transactpay")
	assert.ErrorIs(t, err, payment.ErrOrderNotFound)
}

func TestMarkPaymentOutcomeCompletedWins(t *testing.T) {
	db, mock := newMockDB(t)
	notifier := &fakeNotifier{}
	svc := NewOrderService(db, notifier)

	mock.ExpectExec(`UPDATE "orders" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "orders"`).WillReturnRows(orderRow("WN-123-456", models.PaymentStatusCompleted, models.OrderStatusProcessing))

	err := svc.MarkPaymentOutcome(context.Background(), "WN-123-456", PaymentOutcomeCompleted)
	require.NoError(t, err)

	require.Len(t, notifier.calls, 1)
	assert.Equal(t, "WN-123-456", notifier.calls[0].Reference)
	assert.Equal(t, 15000.0, notifier.calls[0].Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkPaymentOutcomeCompletedIdempotent(t *testing.T) {
	db, mock := newMockDB(t)
	notifier := &fakeNotifier{}
	svc := NewOrderService(db, notifier)

	// The conditional update misses because the other caller already won;
	// the re-read shows the same outcome, so this is a no-op success.
	mock.ExpectExec(`UPDATE "orders" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM "orders"`).WillReturnRows(orderRow("WN-123-456", models.PaymentStatusCompleted, models.OrderStatusProcessing))

	err := svc.MarkPaymentOutcome(context.Background(), "WN-123-456", PaymentOutcomeCompleted)
	require.NoError(t, err)

	// No duplicate side effect for the losing caller.
	assert.Empty(t, notifier.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkPaymentOutcomeOrderNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewOrderService(db, nil)

	mock.ExpectExec(`UPDATE "orders" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM "orders"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	err := svc.MarkPaymentOutcome(context.Background(), "WN-404-000000", PaymentOutcomeCompleted)
	assert.ErrorIs(t, err, payment.ErrOrderNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkPaymentOutcomeConflictingTerminalStates(t *testing.T) {
	tests := []struct {
		name    string
		current string
		outcome PaymentOutcome
	}{
		{"completed after failed", models.PaymentStatusFailed, PaymentOutcomeCompleted},
		{"failed after completed", models.PaymentStatusCompleted, PaymentOutcomeFailed},
		{"completed after refunded", models.PaymentStatusRefunded, PaymentOutcomeCompleted},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			notifier := &fakeNotifier{}
			svc := NewOrderService(db, notifier)

			mock.ExpectExec(`UPDATE "orders" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectQuery(`SELECT \* FROM "orders"`).WillReturnRows(orderRow("WN-123-456", tc.current, models.OrderStatusProcessing))

			err := svc.MarkPaymentOutcome(context.Background(), "WN-123-456", tc.outcome)
			assert.ErrorIs(t, err, payment.ErrInvalidTransition)
			assert.Empty(t, notifier.calls)
		})
	}
}

func TestMarkPaymentOutcomeUnknownOutcome(t *testing.T) {
	db, _ := newMockDB(t)
	svc := NewOrderService(db, nil)

	err := svc.MarkPaymentOutcome(context.Background(), "WN-123-456", PaymentOutcome("exploded"))
	assert.ErrorIs(t, err, payment.ErrInvalidTransition)
}

func TestAdvanceFulfillment(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewOrderService(db, nil)

	mock.ExpectExec(`UPDATE "orders" SET`).WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.AdvanceFulfillment(context.Background(), uuid.New(), models.OrderStatusShipped)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvanceFulfillmentRejectsBackwardMove(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewOrderService(db, nil)

	mock.ExpectExec(`UPDATE "orders" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM "orders"`).WillReturnRows(orderRow("WN-1-000001", models.PaymentStatusCompleted, models.OrderStatusDelivered))

	err := svc.AdvanceFulfillment(context.Background(), uuid.New(), models.OrderStatusShipped)
	assert.ErrorIs(t, err, payment.ErrInvalidTransition)
}

func TestAdvanceFulfillmentUnknownStatus(t *testing.T) {
	db, _ := newMockDB(t)
	svc := NewOrderService(db, nil)

	err := svc.AdvanceFulfillment(context.Background(), uuid.New(), "teleported")
	assert.ErrorIs(t, err, payment.ErrInvalidTransition)
}
