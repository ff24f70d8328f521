package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/example/winenation/internal/payment"
)

const transactPayCheckoutTemplate = "https://payment-web.transactpay.ai/checkout/%s"

// TransactPayConfig holds gateway credentials and integration settings. It
// is built once at process start and passed into the constructor; the
// service itself never reads the environment.
type TransactPayConfig struct {
	BaseURL       string
	PublicKey     string
	SecretKey     string
	EncryptionKey string
	Encrypt       bool
	CallbackURL   string
}

// TransactPayService talks to the TransactPay order-creation and
// verification endpoints. It never mutates orders; reconciliation is the
// OrderService's job.
type TransactPayService struct {
	cfg    TransactPayConfig
	client *http.Client
}

// NewTransactPayService constructs a TransactPayService.
func NewTransactPayService(cfg TransactPayConfig) *TransactPayService {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &TransactPayService{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// InitializeOrder describes one payment attempt to be created gateway-side.
type InitializeOrder struct {
	Amount        float64
	Currency      string
	Email         string
	CustomerName  string
	CustomerPhone string
	Reference     string
	Description   string
}

// InitializeResult carries the gateway-hosted payment page URL for the
// browser redirect plus the gateway's own reference, if it assigned one.
type InitializeResult struct {
	PaymentURL        string
	ProviderReference string
	Raw               map[string]any
}

// VerifyStatus is the normalized tri-state payment outcome.
type VerifyStatus string

const (
	VerifyStatusSuccess VerifyStatus = "success"
	VerifyStatusFailed  VerifyStatus = "failed"
	VerifyStatusPending VerifyStatus = "pending"
)

// VerifyResult is the outcome of a reference-based status check.
type VerifyResult struct {
	Status VerifyStatus
	Raw    map[string]any
}

// Initialize creates an order at the gateway and resolves the hosted
// payment page URL from the response.
func (s *TransactPayService) Initialize(ctx context.Context, order InitializeOrder) (*InitializeResult, error) {
	if s.cfg.PublicKey == "" || s.cfg.SecretKey == "" {
		return nil, fmt.Errorf("%w: public or secret key not configured", payment.ErrMissingCredentials)
	}

	body, err := s.initializeBody(order)
	if err != nil {
		return nil, err
	}

	raw, err := s.post(ctx, "/payment/order/create", s.cfg.PublicKey, body)
	if err != nil {
		return nil, err
	}

	paymentURL := ExtractPaymentURL(raw)
	if paymentURL == "" {
		return nil, &payment.GatewayRejectedError{Reason: "no payment URL in gateway response"}
	}

	return &InitializeResult{
		PaymentURL:        paymentURL,
		ProviderReference: providerReference(raw),
		Raw:               raw,
	}, nil
}

// Verify asks the gateway for the authoritative status of a reference.
func (s *TransactPayService) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	if s.cfg.SecretKey == "" {
		return nil, fmt.Errorf("%w: secret key not configured", payment.ErrMissingCredentials)
	}

	raw, err := s.post(ctx, "/payment/order/verify", s.cfg.SecretKey, map[string]any{
		"reference": reference,
	})
	if err != nil {
		return nil, err
	}

	return &VerifyResult{Status: normalizeStatus(raw), Raw: raw}, nil
}

// initializeBody builds the request body for the configured integration
// mode: an encrypted {data: blob} envelope, or the plaintext field set.
func (s *TransactPayService) initializeBody(order InitializeOrder) (map[string]any, error) {
	currency := order.Currency
	if currency == "" {
		currency = "NGN"
	}

	if !s.cfg.Encrypt {
		return map[string]any{
			"amount":       order.Amount,
			"email":        order.Email,
			"reference":    order.Reference,
			"currency":     currency,
			"callback_url": s.cfg.CallbackURL,
			"metadata": map[string]any{
				"customer_name": order.CustomerName,
				"phone":         order.CustomerPhone,
			},
		}, nil
	}

	if s.cfg.EncryptionKey == "" {
		return nil, fmt.Errorf("%w: encryption key not configured", payment.ErrMissingCredentials)
	}

	payload := map[string]any{
		"customer": map[string]any{
			"email": order.Email,
			"name":  order.CustomerName,
			"phone": order.CustomerPhone,
		},
		"order": map[string]any{
			"amount":      order.Amount,
			"currency":    currency,
			"reference":   order.Reference,
			"description": order.Description,
		},
		"payment": map[string]any{
			"redirect_url": s.cfg.CallbackURL,
		},
	}

	blob, err := payment.EncryptPayload(payload, s.cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}

	return map[string]any{"data": blob}, nil
}

func (s *TransactPayService) post(ctx context.Context, path, apiKey string, body map[string]any) (map[string]any, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("transactpay request marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("transactpay request build: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrGatewayUnreachable, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	var raw map[string]any
	if err := json.Unmarshal(respBody, &raw); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &payment.GatewayRejectedError{
				Reason: fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(string(respBody), 200)),
			}
		}
		return nil, &payment.GatewayRejectedError{
			Reason: "unparseable gateway response: " + truncate(string(respBody), 200),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || rejected(raw) {
		return nil, &payment.GatewayRejectedError{Reason: rejectionReason(raw, resp.StatusCode)}
	}

	return raw, nil
}

// rejected detects a body-level refusal: TransactPay answers 200 with
// status:false on some validation failures.
func rejected(raw map[string]any) bool {
	switch v := raw["status"].(type) {
	case bool:
		return !v
	case string:
		return strings.EqualFold(v, "false") || strings.EqualFold(v, "error")
	}
	return false
}

func rejectionReason(raw map[string]any, statusCode int) string {
	for _, key := range []string{"message", "error", "detail"} {
		if s, ok := raw[key].(string); ok && s != "" {
			return s
		}
	}
	return fmt.Sprintf("gateway returned status %d", statusCode)
}

// ExtractPaymentURL locates the hosted payment page URL in a gateway
// response. The response schema is not contractually stable, so instead of
// hard-failing on one exact path the client tries an ordered list of
// strategies and takes the first hit.
func ExtractPaymentURL(raw map[string]any) string {
	for _, extract := range paymentURLStrategies {
		if url := extract(raw); url != "" {
			return url
		}
	}
	return ""
}

type paymentURLStrategy func(map[string]any) string

var paymentURLStrategies = []paymentURLStrategy{
	directURLField,
	nestedPaymentURLField,
	checkoutTokenURL,
	anyURLField,
}

var paymentURLKeys = []string{"authorization_url", "checkout_url", "payment_url", "link", "url"}

// directURLField reads well-known URL fields at the top level or under data.
func directURLField(raw map[string]any) string {
	for _, scope := range []map[string]any{raw, subObject(raw, "data")} {
		if url := firstString(scope, paymentURLKeys...); url != "" {
			return url
		}
	}
	return ""
}

// nestedPaymentURLField reads the same fields from a payment sub-object.
func nestedPaymentURLField(raw map[string]any) string {
	for _, scope := range []map[string]any{subObject(raw, "payment"), subObject(subObject(raw, "data"), "payment")} {
		if url := firstString(scope, paymentURLKeys...); url != "" {
			return url
		}
	}
	return ""
}

// checkoutTokenURL builds the hosted page URL from a bare token or id.
func checkoutTokenURL(raw map[string]any) string {
	for _, scope := range []map[string]any{raw, subObject(raw, "data")} {
		if token := firstString(scope, "token", "checkout_token", "id"); token != "" && !strings.Contains(token, "/") {
			return fmt.Sprintf(transactPayCheckoutTemplate, token)
		}
	}
	return ""
}

// anyURLField is the last resort: walk the whole response for any string
// that mentions the gateway domain or looks like a URL.
func anyURLField(raw map[string]any) string {
	if url := scanForURL(raw, "transactpay"); url != "" {
		return url
	}
	return scanForURL(raw, "http")
}

func scanForURL(value any, marker string) string {
	switch v := value.(type) {
	case string:
		if strings.Contains(v, marker) && strings.HasPrefix(v, "http") {
			return v
		}
	case map[string]any:
		for _, nested := range v {
			if url := scanForURL(nested, marker); url != "" {
				return url
			}
		}
	case []any:
		for _, nested := range v {
			if url := scanForURL(nested, marker); url != "" {
				return url
			}
		}
	}
	return ""
}

func providerReference(raw map[string]any) string {
	for _, scope := range []map[string]any{subObject(raw, "data"), raw} {
		if ref := firstString(scope, "reference", "transaction_reference", "id"); ref != "" {
			return ref
		}
	}
	return ""
}

// normalizeStatus folds the gateway's verification response into the
// success/failed/pending tri-state. The data.status string is authoritative
// when present; the top-level status is often just a transport-level flag.
func normalizeStatus(raw map[string]any) VerifyStatus {
	status := firstString(subObject(raw, "data"), "status", "payment_status")
	if status == "" {
		status = firstString(raw, "status", "payment_status")
	}

	switch strings.ToLower(status) {
	case "success", "successful", "paid", "completed":
		return VerifyStatusSuccess
	case "failed", "failure", "cancelled", "declined", "abandoned":
		return VerifyStatusFailed
	default:
		return VerifyStatusPending
	}
}

func subObject(raw map[string]any, key string) map[string]any {
	if raw == nil {
		return nil
	}
	if m, ok := raw[key].(map[string]any); ok {
		return m
	}
	return nil
}

func firstString(m map[string]any, keys ...string) string {
	if m == nil {
		return ""
	}
	for _, key := range keys {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
