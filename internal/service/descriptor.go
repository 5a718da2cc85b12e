package service

import (
	"fmt"
	"strings"

	"billpay/internal/currency"
	"billpay/internal/domain"
)

const phoneDigits = 10

// ServiceDescriptor parameterizes the purchase flow for one service type.
type ServiceDescriptor struct {
	Type             domain.ServiceType `json:"type"`
	Title            string             `json:"title"`
	RecipientLabel   string             `json:"recipient_label"`
	RecipientIsPhone bool               `json:"recipient_is_phone"`
	RequiresAmount   bool               `json:"requires_amount"`
	MinAmount        int64              `json:"min_amount,omitempty"`
	MaxAmount        int64              `json:"max_amount,omitempty"`
	RequiresPlan     bool               `json:"requires_plan"`
	RequiresBouquet  bool               `json:"requires_bouquet"`
	ConfirmationCopy string             `json:"confirmation_copy"`
}

var descriptors = []ServiceDescriptor{
	{
		Type:             domain.ServiceAirtime,
		Title:            "Airtime",
		RecipientLabel:   "Phone number",
		RecipientIsPhone: true,
		RequiresAmount:   true,
		MinAmount:        50,
		MaxAmount:        250000,
		ConfirmationCopy: "Airtime of NGN %[1]d will be sent to %[2]s",
	},
	{
		Type:             domain.ServiceData,
		Title:            "Data Bundle",
		RecipientLabel:   "Phone number",
		RecipientIsPhone: true,
		RequiresPlan:     true,
		ConfirmationCopy: "Data plan %[3]s will be activated on %[2]s",
	},
	{
		Type:             domain.ServiceElectricity,
		Title:            "Electricity",
		RecipientLabel:   "Meter number",
		RequiresAmount:   true,
		MinAmount:        50,
		MaxAmount:        50000,
		ConfirmationCopy: "Electricity units worth NGN %[1]d will be credited to meter %[2]s",
	},
	{
		Type:             domain.ServiceCableTV,
		Title:            "Cable TV",
		RecipientLabel:   "Smart card number",
		RequiresBouquet:  true,
		ConfirmationCopy: "Bouquet %[3]s will be renewed on smart card %[2]s",
	},
}

// Descriptors returns the supported services in display order.
func Descriptors() []ServiceDescriptor {
	out := make([]ServiceDescriptor, len(descriptors))
	copy(out, descriptors)
	return out
}

// DescriptorFor returns the descriptor for t.
func DescriptorFor(t domain.ServiceType) (ServiceDescriptor, error) {
	for _, d := range descriptors {
		if d.Type == t {
			return d, nil
		}
	}
	return ServiceDescriptor{}, fmt.Errorf("%w: %q", ErrUnknownServiceType, t)
}

// Validate checks that req is complete and within the amount band.
// All failures are ValidationErrors.
func (d ServiceDescriptor) Validate(req domain.PurchaseRequest) error {
	recipient := strings.TrimSpace(req.Recipient)
	if recipient == "" {
		return domain.NewValidationError(d.RecipientLabel + " is required")
	}
	if d.RecipientIsPhone {
		if phone := currency.NormalizePhone(recipient); len(phone) != phoneDigits || !currency.IsDigits(phone) {
			return domain.NewValidationError(fmt.Sprintf("%s must be %d digits", d.RecipientLabel, phoneDigits))
		}
	} else if !currency.IsDigits(recipient) {
		return domain.NewValidationError(d.RecipientLabel + " must contain digits only")
	}

	if strings.TrimSpace(req.ProviderCode) == "" {
		return domain.NewValidationError("Provider is required")
	}

	if d.RequiresAmount || req.Amount != 0 {
		if req.Amount <= 0 {
			return domain.NewValidationError("Amount must be greater than 0")
		}
		if d.MinAmount > 0 && req.Amount < d.MinAmount {
			return domain.NewValidationError(fmt.Sprintf("Minimum amount is NGN %d", d.MinAmount))
		}
		if d.MaxAmount > 0 && req.Amount > d.MaxAmount {
			return domain.NewValidationError(fmt.Sprintf("Maximum amount is NGN %d", d.MaxAmount))
		}
	}
	if d.RequiresPlan && strings.TrimSpace(req.PlanID) == "" {
		return domain.NewValidationError("Data plan is required")
	}
	if d.RequiresBouquet && strings.TrimSpace(req.BouquetCode) == "" {
		return domain.NewValidationError("Bouquet is required")
	}

	switch req.MeterType {
	case "", domain.MeterPrepaid, domain.MeterPostpaid:
	default:
		return domain.NewValidationError("Meter type must be prepaid or postpaid")
	}

	if req.CustomerEmail != "" {
		if req.Amount <= 0 {
			return domain.NewValidationError("Amount is required to pay with Lightning")
		}
		if err := currency.ValidateEmail(req.CustomerEmail); err != nil {
			return err
		}
	}
	return nil
}

// Confirmation renders the confirmation copy for req.
func (d ServiceDescriptor) Confirmation(req domain.PurchaseRequest) string {
	detail := req.PlanID
	if d.RequiresBouquet {
		detail = req.BouquetCode
	}
	return fmt.Sprintf(d.ConfirmationCopy, req.Amount, strings.TrimSpace(req.Recipient), detail)
}
