package handlers

import (
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/winenation/internal/middleware"
	"github.com/example/winenation/internal/models"
	"github.com/example/winenation/internal/payment"
	"github.com/example/winenation/internal/services"
)

// CheckoutHandler drives the payment-initialization flow: pending order
// first, then the reference, then the gateway. The reference is attached
// before any network call so a webhook can never arrive for an order that
// has no join key yet.
type CheckoutHandler struct {
	db      *gorm.DB
	orders  *services.OrderService
	gateway *services.TransactPayService
}

// NewCheckoutHandler constructs a CheckoutHandler.
func NewCheckoutHandler(db *gorm.DB, orders *services.OrderService, gateway *services.TransactPayService) *CheckoutHandler {
	return &CheckoutHandler{db: db, orders: orders, gateway: gateway}
}

type checkoutItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type checkoutRequest struct {
	Items           []checkoutItemRequest `json:"items"`
	ShippingAddress string                `json:"shipping_address"`
	Currency        string                `json:"currency"`
}

// Checkout creates a pending order for the authenticated user and
// initializes a gateway payment for it. Prices are always read from the
// product table, never from the client.
func (h *CheckoutHandler) Checkout(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.Items) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "cart is empty")
	}
	if req.ShippingAddress == "" {
		return fiber.NewError(fiber.StatusBadRequest, "shipping address is required")
	}

	var user models.User
	if err := h.db.Where("id = ?", userID).First(&user).Error; err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "unknown user")
	}

	lines, total, err := h.resolveLines(req.Items)
	if err != nil {
		return err
	}

	ctx := c.Context()

	order, err := h.orders.CreateOrder(ctx, userID, lines, req.ShippingAddress, total, req.Currency)
	if err != nil {
		if order != nil {
			// Header row exists without items; keep it for manual recovery.
			log.Printf("[Checkout] order %s created without items: %v", order.ID, err)
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to create order, please retry")
	}

	reference := payment.GenerateReference()
	if err := h.orders.AttachPaymentAttempt(ctx, order.ID, reference, "transactpay"); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to start payment, please retry")
	}

	result, err := h.gateway.Initialize(ctx, services.InitializeOrder{
		Amount:        total,
		Currency:      order.Currency,
		Email:         user.Email,
		CustomerName:  user.FullName,
		CustomerPhone: user.Phone,
		Reference:     reference,
		Description:   fmt.Sprintf("WineNation order %s", order.ID),
	})
	if err != nil {
		return gatewayError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"order_id":    order.ID,
			"reference":   reference,
			"payment_url": result.PaymentURL,
		},
	})
}

func (h *CheckoutHandler) resolveLines(items []checkoutItemRequest) ([]services.OrderLine, float64, error) {
	lines := make([]services.OrderLine, 0, len(items))
	var total float64

	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, 0, fiber.NewError(fiber.StatusBadRequest, "item quantity must be positive")
		}

		id, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, 0, fiber.NewError(fiber.StatusBadRequest, "invalid product id")
		}

		var product models.Product
		if err := h.db.Where("id = ?", id).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, 0, fiber.NewError(fiber.StatusBadRequest, "unknown product "+item.ProductID)
			}
			return nil, 0, err
		}
		if !product.InStock {
			return nil, 0, fiber.NewError(fiber.StatusConflict, product.Name+" is out of stock")
		}

		productID := product.ID
		lines = append(lines, services.OrderLine{
			ProductID:   &productID,
			ProductName: product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   product.Price,
		})
		total += product.Price * float64(item.Quantity)
	}

	return lines, total, nil
}

// gatewayError maps payment-core failures onto user-visible retryable
// responses. Encryption and gateway errors never leak internals beyond the
// sentinel's own message.
func gatewayError(err error) error {
	var rejected *payment.GatewayRejectedError
	switch {
	case errors.Is(err, payment.ErrMissingCredentials):
		return fiber.NewError(fiber.StatusServiceUnavailable, "payment gateway is not configured")
	case errors.Is(err, payment.ErrGatewayUnreachable):
		return fiber.NewError(fiber.StatusBadGateway, "payment gateway unreachable, please retry")
	case errors.As(err, &rejected):
		return fiber.NewError(fiber.StatusBadGateway, rejected.Error())
	case errors.Is(err, payment.ErrInvalidKeyFormat),
		errors.Is(err, payment.ErrPayloadTooLarge),
		errors.Is(err, payment.ErrEncryptionFailed):
		return fiber.NewError(fiber.StatusInternalServerError, "failed to prepare payment, please retry")
	}
	return err
}
