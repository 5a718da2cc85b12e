package domain

import "github.com/shopspring/decimal"

// DataPlan is a purchasable data bundle.
type DataPlan struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Validity string `json:"validity,omitempty"`
	Provider string `json:"provider"`
}

// CableBouquet is a purchasable cable-TV package.
type CableBouquet struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Provider string `json:"provider"`
}

// WalletBalance is a point-in-time balance snapshot.
type WalletBalance struct {
	BTC decimal.Decimal `json:"btc"`
	USD decimal.Decimal `json:"usd"`
	NGN decimal.Decimal `json:"ngn"`
}

// MeterInfo is the customer record behind an electricity meter.
type MeterInfo struct {
	CustomerName    string `json:"customer_name"`
	CustomerAddress string `json:"customer_address"`
	MeterNumber     string `json:"meter_number"`
	CustomerPhone   string `json:"customer_phone"`
}

// BitcoinAddress is an on-chain deposit address.
type BitcoinAddress struct {
	Address string `json:"address"`
	QRCode  string `json:"qr_code,omitempty"`
}
