package service

import (
	"context"

	"billpay/internal/domain"
	"billpay/internal/gateway"
)

// BillingGateway is the upstream billing API as seen by the services.
type BillingGateway interface {
	PurchaseAirtime(ctx context.Context, req gateway.AirtimeRequest) (*domain.TransactionResult, error)
	PurchaseDataBundle(ctx context.Context, req gateway.DataRequest) (*domain.TransactionResult, error)
	PayElectricityBill(ctx context.Context, req gateway.ElectricityRequest) (*domain.TransactionResult, error)
	PayCableSubscription(ctx context.Context, req gateway.CableRequest) (*domain.TransactionResult, error)
	CreateLightningInvoice(ctx context.Context, req domain.InvoiceRequest) (*domain.LightningInvoice, error)
	GetInvoiceStatus(ctx context.Context, invoiceID string) (*domain.LightningInvoice, error)
	GetTransactionStatus(ctx context.Context, transactionID string) (*domain.TransactionResult, error)
	ListDataPlans(ctx context.Context, provider string) ([]domain.DataPlan, error)
	ListCableBouquets(ctx context.Context, provider string) ([]domain.CableBouquet, error)
	GetWalletBalance(ctx context.Context) (*domain.WalletBalance, error)
	VerifyMeter(ctx context.Context, meterNumber, provider string, meterType domain.MeterType) (*domain.MeterInfo, error)
	VerifyLightningPayment(ctx context.Context, paymentHash string) (*domain.LightningInvoice, error)
	GetTransactionHistory(ctx context.Context, limit, offset int) ([]domain.TransactionRecord, error)
	GetBitcoinAddress(ctx context.Context) (*domain.BitcoinAddress, error)
}

// Ensure the HTTP client implements BillingGateway.
var _ BillingGateway = (*gateway.Client)(nil)

// PreferenceStore keeps the remembered inputs of a device.
type PreferenceStore interface {
	Load(ctx context.Context, deviceID string) (domain.RememberedFields, error)
	Save(ctx context.Context, deviceID string, fields domain.RememberedFields) error
	Forget(ctx context.Context, deviceID string) error
}

// purchase dispatches req to the purchase operation for its service type.
func purchase(ctx context.Context, gw BillingGateway, req domain.PurchaseRequest) (*domain.TransactionResult, error) {
	switch req.ServiceType {
	case domain.ServiceAirtime:
		return gw.PurchaseAirtime(ctx, gateway.AirtimeRequest{
			Phone:       req.Recipient,
			Amount:      req.Amount,
			Provider:    req.ProviderCode,
			CountryCode: req.CountryCode,
		})
	case domain.ServiceData:
		return gw.PurchaseDataBundle(ctx, gateway.DataRequest{
			Phone:       req.Recipient,
			PlanID:      req.PlanID,
			Provider:    req.ProviderCode,
			CountryCode: req.CountryCode,
		})
	case domain.ServiceElectricity:
		return gw.PayElectricityBill(ctx, gateway.ElectricityRequest{
			MeterNumber: req.Recipient,
			Amount:      req.Amount,
			Provider:    req.ProviderCode,
			MeterType:   req.MeterType,
			CountryCode: req.CountryCode,
		})
	case domain.ServiceCableTV:
		return gw.PayCableSubscription(ctx, gateway.CableRequest{
			SmartCardNumber: req.Recipient,
			BouquetCode:     req.BouquetCode,
			Provider:        req.ProviderCode,
			CountryCode:     req.CountryCode,
		})
	default:
		return nil, domain.NewValidationError("Unsupported service type")
	}
}
