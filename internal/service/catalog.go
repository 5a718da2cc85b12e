package service

import (
	"context"
	"log"
	"strings"

	"billpay/internal/currency"
	"billpay/internal/domain"
)

// CatalogCache caches provider catalogs. A miss is (nil, false, nil).
type CatalogCache interface {
	GetDataPlans(ctx context.Context, provider string) ([]domain.DataPlan, bool, error)
	SetDataPlans(ctx context.Context, provider string, plans []domain.DataPlan) error
	GetBouquets(ctx context.Context, provider string) ([]domain.CableBouquet, bool, error)
	SetBouquets(ctx context.Context, provider string, bouquets []domain.CableBouquet) error
	InvalidateProvider(ctx context.Context, providers ...string) error
}

// CatalogService serves the read-only lookups that feed the purchase forms.
type CatalogService struct {
	gateway   BillingGateway
	cache     CatalogCache
	converter *currency.Converter
}

// NewCatalogService creates a new CatalogService. cache may be nil.
func NewCatalogService(gateway BillingGateway, cache CatalogCache, converter *currency.Converter) *CatalogService {
	return &CatalogService{
		gateway:   gateway,
		cache:     cache,
		converter: converter,
	}
}

// Services returns the purchasable services.
func (s *CatalogService) Services() []ServiceDescriptor {
	return Descriptors()
}

// Quote returns the payment breakdown for amount.
func (s *CatalogService) Quote(amount int64) (currency.Quote, error) {
	return s.converter.Quote(amount)
}

// ListDataPlans returns the provider's data plans, from cache when possible.
func (s *CatalogService) ListDataPlans(ctx context.Context, provider string) ([]domain.DataPlan, error) {
	provider = cacheProvider(provider)
	if s.cache != nil && provider != "" {
		plans, ok, err := s.cache.GetDataPlans(ctx, provider)
		if err != nil {
			log.Printf("[CATALOG] data plan cache read failed for %s: %v", provider, err)
		} else if ok {
			return plans, nil
		}
	}

	plans, err := s.gateway.ListDataPlans(ctx, provider)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetDataPlans(ctx, provider, plans); err != nil {
			log.Printf("[CATALOG] data plan cache write failed for %s: %v", provider, err)
		}
	}
	return plans, nil
}

// ListCableBouquets returns the provider's bouquets, from cache when possible.
func (s *CatalogService) ListCableBouquets(ctx context.Context, provider string) ([]domain.CableBouquet, error) {
	provider = cacheProvider(provider)
	if s.cache != nil && provider != "" {
		bouquets, ok, err := s.cache.GetBouquets(ctx, provider)
		if err != nil {
			log.Printf("[CATALOG] bouquet cache read failed for %s: %v", provider, err)
		} else if ok {
			return bouquets, nil
		}
	}

	bouquets, err := s.gateway.ListCableBouquets(ctx, provider)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetBouquets(ctx, provider, bouquets); err != nil {
			log.Printf("[CATALOG] bouquet cache write failed for %s: %v", provider, err)
		}
	}
	return bouquets, nil
}

// InvalidateCatalog drops the provider's cached plans and bouquets so the
// next lookup reaches upstream.
func (s *CatalogService) InvalidateCatalog(ctx context.Context, provider string) {
	provider = cacheProvider(provider)
	if s.cache == nil || provider == "" {
		return
	}
	if err := s.cache.InvalidateProvider(ctx, provider); err != nil {
		log.Printf("[CATALOG] failed to invalidate catalog for %s: %v", provider, err)
		return
	}
	log.Printf("[CATALOG] invalidated catalog for %s", provider)
}

// WalletBalance returns the live wallet balance. It is never cached.
func (s *CatalogService) WalletBalance(ctx context.Context) (*domain.WalletBalance, error) {
	return s.gateway.GetWalletBalance(ctx)
}

// VerifyMeter resolves the customer behind a meter.
func (s *CatalogService) VerifyMeter(ctx context.Context, meterNumber, provider string, meterType domain.MeterType) (*domain.MeterInfo, error) {
	return s.gateway.VerifyMeter(ctx, meterNumber, provider, meterType)
}

// InvoiceStatus returns the current state of a Lightning invoice.
func (s *CatalogService) InvoiceStatus(ctx context.Context, invoiceID string) (*domain.LightningInvoice, error) {
	return s.gateway.GetInvoiceStatus(ctx, invoiceID)
}

// VerifyPayment looks up a Lightning payment by its hash.
func (s *CatalogService) VerifyPayment(ctx context.Context, paymentHash string) (*domain.LightningInvoice, error) {
	return s.gateway.VerifyLightningPayment(ctx, paymentHash)
}

// TransactionHistory returns a page of the wallet's bill transactions.
func (s *CatalogService) TransactionHistory(ctx context.Context, limit, offset int) ([]domain.TransactionRecord, error) {
	return s.gateway.GetTransactionHistory(ctx, limit, offset)
}

// DepositAddress returns an on-chain address for topping up the wallet.
func (s *CatalogService) DepositAddress(ctx context.Context) (*domain.BitcoinAddress, error) {
	return s.gateway.GetBitcoinAddress(ctx)
}

func cacheProvider(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}
