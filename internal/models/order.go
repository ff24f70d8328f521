package models

import (
	"time"

	"github.com/google/uuid"
)

// Order fulfillment states.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// Payment states. Completed, failed and refunded are terminal.
const (
	PaymentStatusPending    = "pending"
	PaymentStatusProcessing = "processing"
	PaymentStatusCompleted  = "completed"
	PaymentStatusFailed     = "failed"
	PaymentStatusRefunded   = "refunded"
)

// Order is a checkout attempt and its fulfillment record.
//
// PaymentReference is set once by the reconciliation service before the
// gateway is contacted and is never changed afterwards; it is the only join
// key between this row and anything the gateway reports back.
type Order struct {
	BaseModel
	UserID           uuid.UUID   `gorm:"type:uuid;index" json:"user_id"`
	User             *User       `json:"user,omitempty"`
	TotalAmount      float64     `json:"total_amount"`
	Currency         string      `json:"currency"`
	ShippingAddress  string      `json:"shipping_address"`
	Status           string      `json:"status"`
	PaymentStatus    string      `json:"payment_status"`
	PaymentMethod    string      `json:"payment_method"`
	PaymentReference *string     `gorm:"uniqueIndex" json:"payment_reference"`
	PaidAt           *time.Time  `json:"paid_at"`
	Items            []OrderItem `json:"items,omitempty"`
}

// OrderItem snapshots a cart line at purchase time. Price is deliberately
// decoupled from the live product price so historical orders stay immutable.
type OrderItem struct {
	BaseModel
	OrderID     uuid.UUID  `gorm:"type:uuid;index" json:"order_id"`
	ProductID   *uuid.UUID `gorm:"type:uuid" json:"product_id"`
	ProductName string     `json:"product_name"`
	Quantity    int        `json:"quantity"`
	UnitPrice   float64    `json:"unit_price"`
	LineTotal   float64    `json:"line_total"`
}

// PaymentTerminal reports whether a payment status admits no further
// transitions.
func PaymentTerminal(status string) bool {
	switch status {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// OrderTerminal reports whether a fulfillment status admits no further
// transitions.
func OrderTerminal(status string) bool {
	return status == OrderStatusDelivered || status == OrderStatusCancelled
}
