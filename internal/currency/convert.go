// Package currency converts between local currency, USD and satoshis and
// validates the amounts and identifiers that flow into the billing gateway.
// Every function here is pure: no network, no storage, no clock.
package currency

import (
	"errors"

	"github.com/shopspring/decimal"

	"billpay/internal/domain"
)

// ErrInvalidRate is returned when a converter is built with a non-positive rate.
var ErrInvalidRate = errors.New("conversion rates must be positive")

// Rates are the configured conversion factors.
type Rates struct {
	SatsPerLocal   float64
	LocalPerUSD    float64
	SatsPerUSD     float64
	NetworkFeeSats int64
}

// Converter performs fixed-rate conversions.
type Converter struct {
	satsPerLocal decimal.Decimal
	localPerUSD  decimal.Decimal
	satsPerUSD   decimal.Decimal
	feeSats      int64
}

// NewConverter validates rates and returns a Converter.
func NewConverter(r Rates) (*Converter, error) {
	if r.SatsPerLocal <= 0 || r.LocalPerUSD <= 0 || r.SatsPerUSD <= 0 || r.NetworkFeeSats < 0 {
		return nil, ErrInvalidRate
	}
	return &Converter{
		satsPerLocal: decimal.NewFromFloat(r.SatsPerLocal),
		localPerUSD:  decimal.NewFromFloat(r.LocalPerUSD),
		satsPerUSD:   decimal.NewFromFloat(r.SatsPerUSD),
		feeSats:      r.NetworkFeeSats,
	}, nil
}

// LocalToSatoshis converts a local-currency amount to satoshis.
// The result is floored and never below 1.
func (c *Converter) LocalToSatoshis(amount int64) (int64, error) {
	if amount <= 0 {
		return 0, domain.NewValidationError("Amount must be greater than 0")
	}
	return floorSats(decimal.NewFromInt(amount).Mul(c.satsPerLocal)), nil
}

// USDToSatoshis converts a USD amount to satoshis, floored and never below 1.
func (c *Converter) USDToSatoshis(usd decimal.Decimal) (int64, error) {
	if !usd.IsPositive() {
		return 0, domain.NewValidationError("USD amount must be greater than 0")
	}
	return floorSats(usd.Mul(c.satsPerUSD)), nil
}

// LocalToUSD converts a local-currency amount to USD, rounded to cents.
func (c *Converter) LocalToUSD(amount int64) decimal.Decimal {
	if c.localPerUSD.IsZero() {
		return decimal.Zero
	}
	return decimal.NewFromInt(amount).DivRound(c.localPerUSD, 2)
}

// Quote is the display breakdown shown before the user pays.
type Quote struct {
	Amount        int64           `json:"amount"`
	Satoshis      int64           `json:"satoshis"`
	FeeSatoshis   int64           `json:"fee_satoshis"`
	TotalSatoshis int64           `json:"total_satoshis"`
	USD           decimal.Decimal `json:"usd"`
	LocalPerUSD   decimal.Decimal `json:"local_per_usd"`
}

// Quote builds the display breakdown for amount.
func (c *Converter) Quote(amount int64) (Quote, error) {
	sats, err := c.LocalToSatoshis(amount)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Amount:        amount,
		Satoshis:      sats,
		FeeSatoshis:   c.feeSats,
		TotalSatoshis: sats + c.feeSats,
		USD:           c.LocalToUSD(amount),
		LocalPerUSD:   c.localPerUSD,
	}, nil
}

func floorSats(v decimal.Decimal) int64 {
	sats := v.Floor().IntPart()
	if sats < 1 {
		return 1
	}
	return sats
}
