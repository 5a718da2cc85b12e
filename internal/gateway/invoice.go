package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"billpay/internal/currency"
	"billpay/internal/domain"
)

// DefaultInvoiceExpiry is used when the request does not set one.
const DefaultInvoiceExpiry = 3600

var errMissingPaymentRequest = errors.New("invoice has no payment request")

type invoicePayload struct {
	Satoshis      int64  `json:"satoshis"`
	Description   string `json:"description"`
	CustomerEmail string `json:"customerEmail"`
	Reference     string `json:"reference"`
	Expiry        int    `json:"expiry"`
}

// CreateLightningInvoice issues a Lightning invoice for AmountSatoshis.
// The returned invoice always carries a payment request; one without is
// reported as a MalformedResponseError.
func (c *Client) CreateLightningInvoice(ctx context.Context, req domain.InvoiceRequest) (*domain.LightningInvoice, error) {
	sats, err := currency.ValidateSatoshiAmount(float64(req.AmountSatoshis))
	if err != nil {
		return nil, err
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, domain.NewValidationError("Description is required")
	}
	if err := currency.ValidateEmail(req.CustomerEmail); err != nil {
		return nil, err
	}

	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		reference = fmt.Sprintf("billpay_%d", c.now().UnixMilli())
	}
	expiry := req.ExpirySeconds
	if expiry <= 0 {
		expiry = DefaultInvoiceExpiry
	}

	env, err := c.call(ctx, http.MethodPost, "/wallets/ln/createinvoice", nil, invoicePayload{
		Satoshis:      sats,
		Description:   description,
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		Reference:     reference,
		Expiry:        expiry,
	})
	if err != nil {
		return nil, err
	}

	data, err := c.invoiceData(env)
	if err != nil {
		return nil, err
	}

	inv := c.normalizeInvoice(data, invoiceFallback{
		Amount:      sats,
		Description: description,
		Reference:   reference,
		Expiry:      time.Duration(expiry) * time.Second,
	})
	if inv.PaymentRequest == "" {
		log.Printf("[GATEWAY] invoice %s returned without a payment request", inv.ID)
		return nil, domain.NewMalformedResponseError(errMissingPaymentRequest)
	}
	if !currency.IsRecognizedPaymentRequest(inv.PaymentRequest) {
		log.Printf("[GATEWAY] invoice %s has an unrecognized payment request prefix", inv.ID)
	}
	return &inv, nil
}

// GetInvoiceStatus fetches the current state of an invoice.
func (c *Client) GetInvoiceStatus(ctx context.Context, invoiceID string) (*domain.LightningInvoice, error) {
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return nil, domain.NewValidationError("Invoice ID is required")
	}
	return c.fetchInvoice(ctx, "/wallets/ln/invoice/"+url.PathEscape(invoiceID), invoiceFallback{ID: invoiceID})
}

// VerifyLightningPayment checks whether the payment with paymentHash has settled.
func (c *Client) VerifyLightningPayment(ctx context.Context, paymentHash string) (*domain.LightningInvoice, error) {
	paymentHash = strings.TrimSpace(paymentHash)
	if paymentHash == "" {
		return nil, domain.NewValidationError("Payment hash is required")
	}
	inv, err := c.fetchInvoice(ctx, "/wallets/ln/verify/"+url.PathEscape(paymentHash), invoiceFallback{})
	if err != nil {
		return nil, err
	}
	if inv.PaymentHash == "" {
		inv.PaymentHash = paymentHash
	}
	return inv, nil
}

func (c *Client) fetchInvoice(ctx context.Context, path string, fb invoiceFallback) (*domain.LightningInvoice, error) {
	env, err := c.call(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	data, err := c.invoiceData(env)
	if err != nil {
		return nil, err
	}
	inv := c.normalizeInvoice(data, fb)
	return &inv, nil
}

// invoiceData applies the stricter Lightning envelope: status must be a boolean
// and data must be an object.
func (c *Client) invoiceData(env *envelope) (map[string]any, error) {
	if err := env.requireBoolStatus(); err != nil {
		return nil, domain.NewMalformedResponseError(err)
	}
	data, err := env.dataObject()
	if err != nil {
		return nil, domain.NewMalformedResponseError(err)
	}
	return data, nil
}
