package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Receipt summarizes a settled purchase.
type Receipt struct {
	ID            string          `json:"id"`
	FlowID        string          `json:"flow_id"`
	DeviceID      string          `json:"-"`
	ServiceType   ServiceType     `json:"service_type"`
	ServiceTitle  string          `json:"service_title"`
	Recipient     string          `json:"recipient"`
	Provider      string          `json:"provider"`
	Amount        int64           `json:"amount"`
	Satoshis      int64           `json:"satoshis,omitempty"`
	FeeSatoshis   int64           `json:"fee_satoshis,omitempty"`
	USD           decimal.Decimal `json:"usd"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	ExternalID    string          `json:"external_id,omitempty"`
	InvoiceID     string          `json:"invoice_id,omitempty"`
	PaymentHash   string          `json:"payment_hash,omitempty"`
	PaidAt        time.Time       `json:"paid_at"`
	CreatedAt     time.Time       `json:"created_at"`
}
