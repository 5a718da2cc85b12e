package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"billpay/internal/currency"
	"billpay/internal/domain"
)

// AirtimeRequest is the input to PurchaseAirtime.
type AirtimeRequest struct {
	Phone       string
	Amount      int64
	Provider    string
	CountryCode string
}

// DataRequest is the input to PurchaseDataBundle.
type DataRequest struct {
	Phone       string
	PlanID      string
	Provider    string
	CountryCode string
}

// ElectricityRequest is the input to PayElectricityBill.
type ElectricityRequest struct {
	MeterNumber string
	Amount      int64
	Provider    string
	MeterType   domain.MeterType
	CountryCode string
}

// CableRequest is the input to PayCableSubscription.
type CableRequest struct {
	SmartCardNumber string
	BouquetCode     string
	Provider        string
	CountryCode     string
}

type airtimePayload struct {
	PhoneNumber string `json:"phoneNumber"`
	Amount      int64  `json:"amount"`
	CountryCode string `json:"countryCode"`
	Provider    string `json:"provider"`
}

type dataPayload struct {
	PhoneNumber string `json:"phoneNumber"`
	PlanID      string `json:"planId"`
	CountryCode string `json:"countryCode"`
	Provider    string `json:"provider"`
}

type electricityPayload struct {
	MeterNumber string           `json:"meterNumber"`
	Amount      int64            `json:"amount,omitempty"`
	Provider    string           `json:"provider"`
	CountryCode string           `json:"countryCode"`
	MeterType   domain.MeterType `json:"meterType"`
}

type cablePayload struct {
	SmartCardNumber string `json:"smartCardNumber"`
	BouquetCode     string `json:"bouquetCode"`
	Provider        string `json:"provider"`
	CountryCode     string `json:"countryCode"`
}

// PurchaseAirtime buys airtime for a phone number.
func (c *Client) PurchaseAirtime(ctx context.Context, req AirtimeRequest) (*domain.TransactionResult, error) {
	phone, err := validPhone(req.Phone)
	if err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, domain.NewValidationError("Amount must be greater than 0")
	}
	provider, err := validProvider(req.Provider)
	if err != nil {
		return nil, err
	}

	return c.purchase(ctx, "/bills/airtime", airtimePayload{
		PhoneNumber: phone,
		Amount:      req.Amount,
		CountryCode: countryOrDefault(req.CountryCode),
		Provider:    provider,
	})
}

// PurchaseDataBundle buys a data plan for a phone number.
func (c *Client) PurchaseDataBundle(ctx context.Context, req DataRequest) (*domain.TransactionResult, error) {
	phone, err := validPhone(req.Phone)
	if err != nil {
		return nil, err
	}
	planID := strings.TrimSpace(req.PlanID)
	if planID == "" {
		return nil, domain.NewValidationError("Data plan is required")
	}
	provider, err := validProvider(req.Provider)
	if err != nil {
		return nil, err
	}

	return c.purchase(ctx, "/bills/data", dataPayload{
		PhoneNumber: phone,
		PlanID:      planID,
		CountryCode: countryOrDefault(req.CountryCode),
		Provider:    provider,
	})
}

// PayElectricityBill pays an electricity bill or buys prepaid units.
func (c *Client) PayElectricityBill(ctx context.Context, req ElectricityRequest) (*domain.TransactionResult, error) {
	meter, err := validAccountNumber(req.MeterNumber, "Meter number")
	if err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, domain.NewValidationError("Amount must be greater than 0")
	}
	provider, err := validProvider(req.Provider)
	if err != nil {
		return nil, err
	}
	meterType, err := validMeterType(req.MeterType)
	if err != nil {
		return nil, err
	}

	return c.purchase(ctx, "/bills/electricity", electricityPayload{
		MeterNumber: meter,
		Amount:      req.Amount,
		Provider:    provider,
		CountryCode: countryOrDefault(req.CountryCode),
		MeterType:   meterType,
	})
}

// PayCableSubscription renews a cable-TV bouquet for a smart card.
func (c *Client) PayCableSubscription(ctx context.Context, req CableRequest) (*domain.TransactionResult, error) {
	card, err := validAccountNumber(req.SmartCardNumber, "Smart card number")
	if err != nil {
		return nil, err
	}
	bouquet := strings.TrimSpace(req.BouquetCode)
	if bouquet == "" {
		return nil, domain.NewValidationError("Bouquet is required")
	}
	provider, err := validProvider(req.Provider)
	if err != nil {
		return nil, err
	}

	return c.purchase(ctx, "/bills/tv", cablePayload{
		SmartCardNumber: card,
		BouquetCode:     bouquet,
		Provider:        provider,
		CountryCode:     countryOrDefault(req.CountryCode),
	})
}

// VerifyMeter looks up the customer registered to a meter.
func (c *Client) VerifyMeter(ctx context.Context, meterNumber, provider string, meterType domain.MeterType) (*domain.MeterInfo, error) {
	meter, err := validAccountNumber(meterNumber, "Meter number")
	if err != nil {
		return nil, err
	}
	prov, err := validProvider(provider)
	if err != nil {
		return nil, err
	}
	mt, err := validMeterType(meterType)
	if err != nil {
		return nil, err
	}

	env, err := c.call(ctx, http.MethodPost, "/bills/electricity/verify", nil, electricityPayload{
		MeterNumber: meter,
		Provider:    prov,
		CountryCode: domain.DefaultCountryCode,
		MeterType:   mt,
	})
	if err != nil {
		return nil, err
	}

	data := env.dataOrEmpty()
	info := &domain.MeterInfo{
		CustomerName:    meterAliases.text(data, "customer_name"),
		CustomerAddress: meterAliases.text(data, "customer_address"),
		MeterNumber:     meterAliases.text(data, "meter_number"),
		CustomerPhone:   meterAliases.text(data, "customer_phone"),
	}
	if info.MeterNumber == "" {
		info.MeterNumber = meter
	}
	return info, nil
}

// ListDataPlans returns the provider's data plans in upstream order.
func (c *Client) ListDataPlans(ctx context.Context, provider string) ([]domain.DataPlan, error) {
	items, prov, err := c.listCatalog(ctx, "/bills/data/plans", provider, "plans", "items")
	if err != nil {
		return nil, err
	}
	plans := make([]domain.DataPlan, 0, len(items))
	for _, item := range items {
		plans = append(plans, normalizePlan(item, prov))
	}
	return plans, nil
}

// ListCableBouquets returns the provider's bouquets in upstream order.
func (c *Client) ListCableBouquets(ctx context.Context, provider string) ([]domain.CableBouquet, error) {
	items, prov, err := c.listCatalog(ctx, "/bills/tv/bouquets", provider, "bouquets", "items")
	if err != nil {
		return nil, err
	}
	bouquets := make([]domain.CableBouquet, 0, len(items))
	for _, item := range items {
		bouquets = append(bouquets, normalizeBouquet(item, prov))
	}
	return bouquets, nil
}

func (c *Client) listCatalog(ctx context.Context, path, provider string, listKeys ...string) ([]map[string]any, string, error) {
	prov, err := validProvider(provider)
	if err != nil {
		return nil, "", err
	}
	query := url.Values{}
	query.Set("provider", prov)
	query.Set("countryCode", domain.DefaultCountryCode)

	env, err := c.call(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, "", err
	}
	items, err := env.dataList(listKeys...)
	if err != nil {
		return nil, "", domain.NewMalformedResponseError(err)
	}
	return items, prov, nil
}

func (c *Client) purchase(ctx context.Context, path string, payload any) (*domain.TransactionResult, error) {
	env, err := c.call(ctx, http.MethodPost, path, nil, payload)
	if err != nil {
		return nil, err
	}
	result := c.normalizeResult(env, "", domain.TransactionCompleted)
	return &result, nil
}

func validPhone(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", domain.NewValidationError("Phone number is required")
	}
	normalized := currency.NormalizePhone(phone)
	if normalized == "" {
		return "", domain.NewValidationError("Please enter a valid phone number")
	}
	return normalized, nil
}

func validAccountNumber(number, label string) (string, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return "", domain.NewValidationError(label + " is required")
	}
	if !currency.IsDigits(number) {
		return "", domain.NewValidationError(label + " must contain digits only")
	}
	return number, nil
}

func validProvider(provider string) (string, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return "", domain.NewValidationError("Provider is required")
	}
	return provider, nil
}

func validMeterType(mt domain.MeterType) (domain.MeterType, error) {
	switch mt {
	case "":
		return domain.MeterPrepaid, nil
	case domain.MeterPrepaid, domain.MeterPostpaid:
		return mt, nil
	default:
		return "", domain.NewValidationError("Meter type must be prepaid or postpaid")
	}
}

func countryOrDefault(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return domain.DefaultCountryCode
	}
	return code
}
