package domain

import (
	"encoding/json"
	"time"
)

// TransactionStatus represents the biller's view of a purchase.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)

// TransactionResult is the normalized outcome of a purchase call.
type TransactionResult struct {
	ExternalID string            `json:"external_id"`
	Status     TransactionStatus `json:"status"`
	Raw        json.RawMessage   `json:"raw,omitempty"`
}

// TransactionRecord is an entry of the biller's transaction history.
type TransactionRecord struct {
	ID        string            `json:"id"`
	Amount    int64             `json:"amount"`
	Status    TransactionStatus `json:"status"`
	Reference string            `json:"reference"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
