package service

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"billpay/internal/domain"
	"billpay/internal/gateway"
)

// ──────────────────────────────────────────────
// MOCK BILLING GATEWAY
// ──────────────────────────────────────────────

// MockGateway is a mock implementation of BillingGateway.
type MockGateway struct {
	mu sync.Mutex

	// Purchases pop PurchaseResults in order; when empty, PurchaseResult is returned.
	PurchaseResults []*domain.TransactionResult
	PurchaseResult  *domain.TransactionResult
	Invoice         *domain.LightningInvoice

	// Status checks pop in order; the last entry repeats.
	InvoiceStatuses     []*domain.LightningInvoice
	TransactionStatuses []domain.TransactionStatus

	Plans    []domain.DataPlan
	Bouquets []domain.CableBouquet
	Balance  *domain.WalletBalance
	Meter    *domain.MeterInfo
	History  []domain.TransactionRecord

	// Block, when non-nil at call entry, holds purchases until it is closed.
	Block chan struct{}
	// Started receives once per purchase call, if non-nil.
	Started chan struct{}

	// Counters for verification
	PurchaseCallCount     int32
	InvoiceCallCount      int32
	StatusCallCount       int32
	ListPlansCallCount    int32
	ListBouquetsCallCount int32

	// Error injection
	PurchaseError error
	InvoiceError  error
	StatusError   error

	LastAirtime domain.PurchaseRequest
	LastInvoice domain.InvoiceRequest
}

// NewMockGateway creates a gateway whose purchases succeed with reference R1.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		PurchaseResult: &domain.TransactionResult{ExternalID: "R1", Status: domain.TransactionCompleted},
		Invoice: &domain.LightningInvoice{
			ID:             "inv_1",
			PaymentRequest: "lntb2830n1test",
			AmountSatoshis: 283,
		},
	}
}

func (m *MockGateway) purchase(ctx context.Context, record domain.PurchaseRequest) (*domain.TransactionResult, error) {
	atomic.AddInt32(&m.PurchaseCallCount, 1)

	m.mu.Lock()
	m.LastAirtime = record
	block, started := m.Block, m.Started
	result := m.PurchaseResult
	if len(m.PurchaseResults) > 0 {
		result = m.PurchaseResults[0]
		m.PurchaseResults = m.PurchaseResults[1:]
	}
	err := m.PurchaseError
	m.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, domain.NewNetworkError(ctx.Err())
		}
	}
	if err != nil {
		return nil, err
	}
	copy := *result
	return &copy, nil
}

func (m *MockGateway) PurchaseAirtime(ctx context.Context, req gateway.AirtimeRequest) (*domain.TransactionResult, error) {
	if req.Amount <= 0 {
		return nil, domain.NewValidationError("Amount must be greater than 0")
	}
	return m.purchase(ctx, domain.PurchaseRequest{
		ServiceType:  domain.ServiceAirtime,
		Recipient:    strings.TrimLeft(req.Phone, "0"),
		Amount:       req.Amount,
		ProviderCode: req.Provider,
		CountryCode:  req.CountryCode,
	})
}

func (m *MockGateway) PurchaseDataBundle(ctx context.Context, req gateway.DataRequest) (*domain.TransactionResult, error) {
	return m.purchase(ctx, domain.PurchaseRequest{
		ServiceType:  domain.ServiceData,
		Recipient:    req.Phone,
		PlanID:       req.PlanID,
		ProviderCode: req.Provider,
	})
}

func (m *MockGateway) PayElectricityBill(ctx context.Context, req gateway.ElectricityRequest) (*domain.TransactionResult, error) {
	return m.purchase(ctx, domain.PurchaseRequest{
		ServiceType:  domain.ServiceElectricity,
		Recipient:    req.MeterNumber,
		Amount:       req.Amount,
		ProviderCode: req.Provider,
		MeterType:    req.MeterType,
	})
}

func (m *MockGateway) PayCableSubscription(ctx context.Context, req gateway.CableRequest) (*domain.TransactionResult, error) {
	return m.purchase(ctx, domain.PurchaseRequest{
		ServiceType:  domain.ServiceCableTV,
		Recipient:    req.SmartCardNumber,
		BouquetCode:  req.BouquetCode,
		ProviderCode: req.Provider,
	})
}

func (m *MockGateway) CreateLightningInvoice(ctx context.Context, req domain.InvoiceRequest) (*domain.LightningInvoice, error) {
	atomic.AddInt32(&m.InvoiceCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastInvoice = req
	if m.InvoiceError != nil {
		return nil, m.InvoiceError
	}
	copy := *m.Invoice
	return &copy, nil
}

func (m *MockGateway) GetInvoiceStatus(ctx context.Context, invoiceID string) (*domain.LightningInvoice, error) {
	atomic.AddInt32(&m.StatusCallCount, 1)
	if err := ctx.Err(); err != nil {
		return nil, domain.NewNetworkError(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StatusError != nil {
		return nil, m.StatusError
	}
	if len(m.InvoiceStatuses) == 0 {
		return &domain.LightningInvoice{ID: invoiceID}, nil
	}
	inv := m.InvoiceStatuses[0]
	if len(m.InvoiceStatuses) > 1 {
		m.InvoiceStatuses = m.InvoiceStatuses[1:]
	}
	copy := *inv
	return &copy, nil
}

func (m *MockGateway) GetTransactionStatus(ctx context.Context, transactionID string) (*domain.TransactionResult, error) {
	atomic.AddInt32(&m.StatusCallCount, 1)
	if err := ctx.Err(); err != nil {
		return nil, domain.NewNetworkError(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StatusError != nil {
		return nil, m.StatusError
	}
	status := domain.TransactionPending
	if len(m.TransactionStatuses) > 0 {
		status = m.TransactionStatuses[0]
		if len(m.TransactionStatuses) > 1 {
			m.TransactionStatuses = m.TransactionStatuses[1:]
		}
	}
	return &domain.TransactionResult{ExternalID: transactionID, Status: status}, nil
}

func (m *MockGateway) ListDataPlans(ctx context.Context, provider string) ([]domain.DataPlan, error) {
	atomic.AddInt32(&m.ListPlansCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.DataPlan(nil), m.Plans...), nil
}

func (m *MockGateway) ListCableBouquets(ctx context.Context, provider string) ([]domain.CableBouquet, error) {
	atomic.AddInt32(&m.ListBouquetsCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CableBouquet(nil), m.Bouquets...), nil
}

func (m *MockGateway) GetWalletBalance(ctx context.Context) (*domain.WalletBalance, error) {
	return m.Balance, nil
}

func (m *MockGateway) VerifyMeter(ctx context.Context, meterNumber, provider string, meterType domain.MeterType) (*domain.MeterInfo, error) {
	return m.Meter, nil
}

func (m *MockGateway) VerifyLightningPayment(ctx context.Context, paymentHash string) (*domain.LightningInvoice, error) {
	return &domain.LightningInvoice{ID: "inv_1", PaymentHash: paymentHash, Settled: true}, nil
}

func (m *MockGateway) GetTransactionHistory(ctx context.Context, limit, offset int) ([]domain.TransactionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.TransactionRecord(nil), m.History...), nil
}

func (m *MockGateway) GetBitcoinAddress(ctx context.Context) (*domain.BitcoinAddress, error) {
	return &domain.BitcoinAddress{Address: "tb1qtest"}, nil
}

// SetBlock installs a gate for subsequent purchase calls.
func (m *MockGateway) SetBlock(block chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Block = block
}

// Purchases returns the purchase call count.
func (m *MockGateway) Purchases() int32 {
	return atomic.LoadInt32(&m.PurchaseCallCount)
}

// StatusChecks returns the status call count.
func (m *MockGateway) StatusChecks() int32 {
	return atomic.LoadInt32(&m.StatusCallCount)
}

// ──────────────────────────────────────────────
// MOCK PREFERENCE STORE
// ──────────────────────────────────────────────

// MockPreferenceStore is an in-memory PreferenceStore.
type MockPreferenceStore struct {
	mu     sync.RWMutex
	fields map[string]domain.RememberedFields

	SaveCallCount int32

	LoadError error
	SaveError error
}

// NewMockPreferenceStore creates a new mock preference store.
func NewMockPreferenceStore() *MockPreferenceStore {
	return &MockPreferenceStore{fields: make(map[string]domain.RememberedFields)}
}

func (m *MockPreferenceStore) Load(ctx context.Context, deviceID string) (domain.RememberedFields, error) {
	if m.LoadError != nil {
		return domain.RememberedFields{}, m.LoadError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fields[deviceID], nil
}

func (m *MockPreferenceStore) Save(ctx context.Context, deviceID string, fields domain.RememberedFields) error {
	atomic.AddInt32(&m.SaveCallCount, 1)
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fields[deviceID] = fields
	return nil
}

func (m *MockPreferenceStore) Forget(ctx context.Context, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.fields, deviceID)
	return nil
}

// Get returns the stored fields for test assertions.
func (m *MockPreferenceStore) Get(deviceID string) (domain.RememberedFields, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.fields[deviceID]
	return f, ok
}

// ──────────────────────────────────────────────
// MOCK CATALOG CACHE
// ──────────────────────────────────────────────

// MockCatalogCache is an in-memory CatalogCache.
type MockCatalogCache struct {
	mu       sync.RWMutex
	plans    map[string][]domain.DataPlan
	bouquets map[string][]domain.CableBouquet

	SetCallCount        int32
	InvalidateCallCount int32
	GetError            error
}

// NewMockCatalogCache creates a new mock catalog cache.
func NewMockCatalogCache() *MockCatalogCache {
	return &MockCatalogCache{
		plans:    make(map[string][]domain.DataPlan),
		bouquets: make(map[string][]domain.CableBouquet),
	}
}

func (m *MockCatalogCache) GetDataPlans(ctx context.Context, provider string) ([]domain.DataPlan, bool, error) {
	if m.GetError != nil {
		return nil, false, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	plans, ok := m.plans[provider]
	return plans, ok, nil
}

func (m *MockCatalogCache) SetDataPlans(ctx context.Context, provider string, plans []domain.DataPlan) error {
	atomic.AddInt32(&m.SetCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[provider] = plans
	return nil
}

func (m *MockCatalogCache) GetBouquets(ctx context.Context, provider string) ([]domain.CableBouquet, bool, error) {
	if m.GetError != nil {
		return nil, false, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	bouquets, ok := m.bouquets[provider]
	return bouquets, ok, nil
}

func (m *MockCatalogCache) SetBouquets(ctx context.Context, provider string, bouquets []domain.CableBouquet) error {
	atomic.AddInt32(&m.SetCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bouquets[provider] = bouquets
	return nil
}

func (m *MockCatalogCache) InvalidateProvider(ctx context.Context, providers ...string) error {
	atomic.AddInt32(&m.InvalidateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range providers {
		delete(m.plans, p)
		delete(m.bouquets, p)
	}
	return nil
}
