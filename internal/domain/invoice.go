package domain

import "time"

// LightningInvoice is a normalized Lightning payment request issued by the biller.
type LightningInvoice struct {
	ID             string    `json:"id"`
	PaymentRequest string    `json:"payment_request"`
	AmountSatoshis int64     `json:"amount_satoshis"`
	Description    string    `json:"description"`
	Reference      string    `json:"reference,omitempty"`
	PaymentHash    string    `json:"payment_hash,omitempty"`
	ExpiresAt      time.Time `json:"expires_at"`
	CreatedAt      time.Time `json:"created_at"`
	Settled        bool      `json:"settled"`
}

// Expired reports whether the invoice expiry has passed at now.
func (i *LightningInvoice) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// InvoiceRequest holds the inputs for invoice creation.
type InvoiceRequest struct {
	AmountSatoshis int64
	Description    string
	CustomerEmail  string
	Reference      string // optional
	ExpirySeconds  int    // optional, defaults to 3600
}
