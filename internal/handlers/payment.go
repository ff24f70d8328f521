package handlers

import (
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/example/winenation/internal/payment"
	"github.com/example/winenation/internal/services"
)

// PaymentHandler owns the two gateway-facing entry points: the browser
// redirect callback and the server-to-server webhook. Both resolve to the
// same MarkPaymentOutcome transition and are safe to invoke redundantly.
type PaymentHandler struct {
	orders  *services.OrderService
	gateway *services.TransactPayService
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(orders *services.OrderService, gateway *services.TransactPayService) *PaymentHandler {
	return &PaymentHandler{orders: orders, gateway: gateway}
}

// Callback handles the browser redirect back from the gateway-hosted
// payment page. The redirect status is advisory only; the gateway is asked
// for the authoritative outcome before any order state changes.
func (p *PaymentHandler) Callback(c *fiber.Ctx) error {
	reference := c.Query("reference")
	if reference == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing payment reference")
	}

	status := c.Query("status")
	if status != "successful" && status != "success" {
		return c.JSON(fiber.Map{
			"success": false,
			"data": fiber.Map{
				"reference": reference,
				"status":    "failed",
				"message":   "Payment was not successful. Please try again.",
			},
		})
	}

	ctx := c.Context()

	result, err := p.gateway.Verify(ctx, reference)
	if err != nil {
		return gatewayError(err)
	}

	switch result.Status {
	case services.VerifyStatusSuccess:
		if err := p.orders.MarkPaymentOutcome(ctx, reference, services.PaymentOutcomeCompleted); err != nil {
			// The money moved but the order did not: the single most severe
			// failure mode. The reference must reach the operator.
			log.Printf("[Payment] verified payment %s but order update failed: %v", reference, err)
			return fiber.NewError(fiber.StatusInternalServerError,
				fmt.Sprintf("payment verified but order update failed, contact support with reference %s", reference))
		}
		return c.JSON(fiber.Map{
			"success": true,
			"data": fiber.Map{
				"reference": reference,
				"status":    "completed",
			},
		})

	case services.VerifyStatusFailed:
		if err := p.orders.MarkPaymentOutcome(ctx, reference, services.PaymentOutcomeFailed); err != nil &&
			!errors.Is(err, payment.ErrOrderNotFound) {
			log.Printf("[Payment] failed-payment update for %s: %v", reference, err)
		}
		return c.JSON(fiber.Map{
			"success": false,
			"data": fiber.Map{
				"reference": reference,
				"status":    "failed",
			},
		})

	default:
		return c.JSON(fiber.Map{
			"success": true,
			"data": fiber.Map{
				"reference": reference,
				"status":    "pending",
			},
		})
	}
}

type webhookRequest struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
	} `json:"data"`
}

// Webhook handles server-to-server payment notifications. Only
// charge.success with a success status triggers the completion transition;
// everything else is acknowledged without side effects so the gateway does
// not retry forever. Reconciliation failures are logged and acknowledged
// too: answering non-2xx would make the sender retry a transition that
// already happened.
func (p *PaymentHandler) Webhook(c *fiber.Ctx) error {
	var req webhookRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid webhook body")
	}

	if req.Event != "charge.success" || req.Data.Status != "success" {
		return c.JSON(fiber.Map{"success": true, "message": "webhook received"})
	}

	if req.Data.Reference == "" {
		log.Printf("[Payment] webhook charge.success without a reference")
		return c.JSON(fiber.Map{"success": true, "message": "webhook received"})
	}

	if err := p.orders.MarkPaymentOutcome(c.Context(), req.Data.Reference, services.PaymentOutcomeCompleted); err != nil {
		log.Printf("[Payment] webhook reconciliation for %s: %v", req.Data.Reference, err)
	}

	return c.JSON(fiber.Map{"success": true, "message": "order updated"})
}
