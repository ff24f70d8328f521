package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/winenation/internal/models"
	"github.com/example/winenation/internal/payment"
)

// PaymentOutcome is a terminal payment result reported by the gateway.
type PaymentOutcome string

const (
	PaymentOutcomeCompleted PaymentOutcome = models.PaymentStatusCompleted
	PaymentOutcomeFailed    PaymentOutcome = models.PaymentStatusFailed
)

// OrderService creates orders and reconciles their payment state against
// gateway outcomes. All transitions go through conditional updates guarded
// by the current state; the affected-row count decides races, never a
// read-modify-write.
type OrderService struct {
	db       *gorm.DB
	notifier PaymentNotifier
}

// NewOrderService constructs an OrderService. notifier may be nil.
func NewOrderService(db *gorm.DB, notifier PaymentNotifier) *OrderService {
	return &OrderService{db: db, notifier: notifier}
}

// OrderLine is one cart line at checkout.
type OrderLine struct {
	ProductID   *uuid.UUID
	ProductName string
	Quantity    int
	UnitPrice   float64
}

// CreateOrder inserts the order header and its item rows.
//
// If the item insert fails after the header succeeded, the header is left in
// place in pending and the error is surfaced with the order attached: no
// reference has been issued to any gateway at this point, so a half-created
// order is recoverable state, not corruption.
func (s *OrderService) CreateOrder(ctx context.Context, userID uuid.UUID, lines []OrderLine, shippingAddress string, total float64, currency string) (*models.Order, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: order has no items", payment.ErrOrderCreationFailed)
	}

	if currency == "" {
		currency = "NGN"
	}

	order := models.Order{
		UserID:          userID,
		TotalAmount:     total,
		Currency:        currency,
		ShippingAddress: shippingAddress,
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
	}

	if err := s.db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, fmt.Errorf("%w: order insert: %v", payment.ErrOrderCreationFailed, err)
	}

	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, models.OrderItem{
			OrderID:     order.ID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			LineTotal:   line.UnitPrice * float64(line.Quantity),
		})
	}

	if err := s.db.WithContext(ctx).Create(&items).Error; err != nil {
		return &order, fmt.Errorf("%w: item insert for order %s: %v", payment.ErrOrderCreationFailed, order.ID, err)
	}

	order.Items = items
	return &order, nil
}

// AttachPaymentAttempt sets the payment reference and method on an order and
// moves its payment to processing. It must run before the gateway is
// contacted so a webhook racing ahead of the browser always finds the join
// key in place. The reference is immutable: a second attach is rejected.
func (s *OrderService) AttachPaymentAttempt(ctx context.Context, orderID uuid.UUID, reference, method string) error {
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND payment_reference IS NULL AND payment_status = ?", orderID, models.PaymentStatusPending).
		Updates(map[string]any{
			"payment_reference": reference,
			"payment_method":    method,
			"payment_status":    models.PaymentStatusProcessing,
		})
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		var order models.Order
		if err := s.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return payment.ErrOrderNotFound
			}
			return err
		}
		return fmt.Errorf("%w: order %s already has a payment attempt", payment.ErrInvalidTransition, orderID)
	}

	return nil
}

// MarkPaymentOutcome is the single state-transition entry point shared by
// the redirect callback and the webhook. It looks the order up strictly by
// payment reference; the webhook caller is untrusted and must never choose
// which order it updates.
//
// The transition is one atomic UPDATE filtered by reference and current
// payment status. Both callers can race: exactly one wins the update, the
// other sees zero rows, re-reads, and either lands on the idempotent no-op
// (same outcome already applied) or an InvalidTransition (conflicting
// terminal state). The notification fires only for the winning caller.
func (s *OrderService) MarkPaymentOutcome(ctx context.Context, reference string, outcome PaymentOutcome) error {
	switch outcome {
	case PaymentOutcomeCompleted, PaymentOutcomeFailed:
	default:
		return fmt.Errorf("%w: unknown outcome %q", payment.ErrInvalidTransition, outcome)
	}

	updates := map[string]any{"payment_status": string(outcome)}
	if outcome == PaymentOutcomeCompleted {
		updates["status"] = models.OrderStatusProcessing
		updates["paid_at"] = time.Now()
	}

	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("payment_reference = ? AND payment_status IN ?", reference,
			[]string{models.PaymentStatusPending, models.PaymentStatusProcessing}).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		var order models.Order
		if err := s.db.WithContext(ctx).Where("payment_reference = ?", reference).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return payment.ErrOrderNotFound
			}
			return err
		}

		if order.PaymentStatus == string(outcome) {
			// The other caller already applied this outcome.
			return nil
		}

		return fmt.Errorf("%w: payment %s is already %s, cannot mark it %s",
			payment.ErrInvalidTransition, reference, order.PaymentStatus, outcome)
	}

	if outcome == PaymentOutcomeCompleted {
		s.notifyPaid(ctx, reference)
	}

	return nil
}

// AdvanceFulfillment applies a back-office fulfillment transition. Allowed
// moves are pending->processing->shipped->delivered, with cancelled
// reachable from any non-terminal state.
func (s *OrderService) AdvanceFulfillment(ctx context.Context, orderID uuid.UUID, next string) error {
	var allowed []string
	switch next {
	case models.OrderStatusProcessing:
		allowed = []string{models.OrderStatusPending}
	case models.OrderStatusShipped:
		allowed = []string{models.OrderStatusProcessing}
	case models.OrderStatusDelivered:
		allowed = []string{models.OrderStatusShipped}
	case models.OrderStatusCancelled:
		allowed = []string{models.OrderStatusPending, models.OrderStatusProcessing, models.OrderStatusShipped}
	default:
		return fmt.Errorf("%w: unknown order status %q", payment.ErrInvalidTransition, next)
	}

	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status IN ?", orderID, allowed).
		Update("status", next)
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		var order models.Order
		if err := s.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return payment.ErrOrderNotFound
			}
			return err
		}
		return fmt.Errorf("%w: order %s is %s, cannot move to %s",
			payment.ErrInvalidTransition, orderID, order.Status, next)
	}

	return nil
}

func (s *OrderService) notifyPaid(ctx context.Context, reference string) {
	if s.notifier == nil {
		return
	}

	var order models.Order
	if err := s.db.WithContext(ctx).Where("payment_reference = ?", reference).First(&order).Error; err != nil {
		log.Printf("[Orders] paid order lookup for notification failed (reference %s): %v", reference, err)
		return
	}

	if err := s.notifier.NotifyPaymentSuccess(PaymentSuccessNotification{
		OrderID:   order.ID.String(),
		Reference: reference,
		Amount:    order.TotalAmount,
		Currency:  order.Currency,
	}); err != nil {
		log.Printf("[Orders] payment success notification failed (reference %s): %v", reference, err)
	}
}
