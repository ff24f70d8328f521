package payment

import (
	"errors"
	"fmt"
)

// Sentinel errors for the payment core. Handlers map these onto HTTP
// statuses; nothing below this package swallows them.
var (
	ErrInvalidKeyFormat    = errors.New("invalid encryption key format")
	ErrPayloadTooLarge     = errors.New("payload too large for RSA key")
	ErrEncryptionFailed    = errors.New("encryption failed")
	ErrGatewayUnreachable  = errors.New("payment gateway unreachable")
	ErrOrderNotFound       = errors.New("order not found")
	ErrInvalidTransition   = errors.New("invalid payment state transition")
	ErrMissingCredentials  = errors.New("missing payment gateway credentials")
	ErrOrderCreationFailed = errors.New("order creation failed")
)

// GatewayRejectedError is returned when the gateway answered but refused the
// request, carrying whatever reason it gave.
type GatewayRejectedError struct {
	Reason string
}

func (e *GatewayRejectedError) Error() string {
	if e.Reason == "" {
		return "payment gateway rejected the request"
	}
	return fmt.Sprintf("payment gateway rejected the request: %s", e.Reason)
}
