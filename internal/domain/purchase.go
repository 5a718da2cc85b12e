package domain

// ServiceType identifies what is being bought.
type ServiceType string

const (
	ServiceAirtime     ServiceType = "airtime"
	ServiceData        ServiceType = "data"
	ServiceElectricity ServiceType = "electricity"
	ServiceCableTV     ServiceType = "cableTV"
)

// MeterType distinguishes prepaid from postpaid electricity meters.
type MeterType string

const (
	MeterPrepaid  MeterType = "prepaid"
	MeterPostpaid MeterType = "postpaid"
)

// DefaultCountryCode is sent when the request does not carry one.
const DefaultCountryCode = "NG"

// PurchaseRequest is the user's submitted order. It is not modified after submission.
type PurchaseRequest struct {
	ServiceType  ServiceType `json:"service_type"`
	Recipient    string      `json:"recipient"` // phone, meter or smart-card number
	Amount       int64       `json:"amount"`    // local currency, as the biller expects it
	PlanID       string      `json:"plan_id,omitempty"`
	BouquetCode  string      `json:"bouquet_code,omitempty"`
	ProviderCode string      `json:"provider"`
	CountryCode  string      `json:"country_code,omitempty"`
	MeterType    MeterType   `json:"meter_type,omitempty"`

	// CustomerEmail selects Lightning settlement: an invoice is created instead of a direct purchase.
	CustomerEmail string `json:"customer_email,omitempty"`
	Remember      bool   `json:"remember,omitempty"`
}

// RememberedFields are the last-used inputs kept across sessions on explicit opt-in.
type RememberedFields struct {
	Phone       string `json:"phone,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	Provider    string `json:"provider,omitempty"`
	Email       string `json:"email,omitempty"`
}

// IsZero reports whether no field is set.
func (r RememberedFields) IsZero() bool {
	return r == RememberedFields{}
}
