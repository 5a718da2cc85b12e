package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"billpay/internal/currency"
	"billpay/internal/domain"
)

// ReceiptService handles receipt generation.
type ReceiptService struct {
	converter           *currency.Converter
	notificationService *NotificationService
	now                 func() time.Time
}

// NewReceiptService creates a new ReceiptService.
func NewReceiptService(converter *currency.Converter, notificationService *NotificationService) *ReceiptService {
	return &ReceiptService{
		converter:           converter,
		notificationService: notificationService,
		now:                 time.Now,
	}
}

// GenerateReceiptRequest contains the parameters for generating a receipt.
type GenerateReceiptRequest struct {
	FlowID    string
	DeviceID  string
	Request   domain.PurchaseRequest
	Result    *domain.TransactionResult
	Invoice   *domain.LightningInvoice
	SettledAt time.Time
}

// GenerateReceipt generates a receipt for a settled flow.
func (s *ReceiptService) GenerateReceipt(ctx context.Context, req GenerateReceiptRequest) (*domain.Receipt, error) {
	if req.FlowID == "" {
		return nil, ErrFlowNotFound
	}

	title := string(req.Request.ServiceType)
	if d, err := DescriptorFor(req.Request.ServiceType); err == nil {
		title = d.Title
	}

	receipt := &domain.Receipt{
		ID:            uuid.New().String(),
		FlowID:        req.FlowID,
		DeviceID:      req.DeviceID,
		ServiceType:   req.Request.ServiceType,
		ServiceTitle:  title,
		Recipient:     req.Request.Recipient,
		Provider:      strings.ToUpper(req.Request.ProviderCode),
		Amount:        req.Request.Amount,
		CustomerEmail: req.Request.CustomerEmail,
		PaidAt:        req.SettledAt,
		CreatedAt:     s.now(),
	}
	if s.converter != nil && req.Request.Amount > 0 {
		receipt.USD = s.converter.LocalToUSD(req.Request.Amount)
		if q, err := s.converter.Quote(req.Request.Amount); err == nil {
			receipt.Satoshis = q.Satoshis
			receipt.FeeSatoshis = q.FeeSatoshis
		}
	}
	if req.Result != nil {
		receipt.ExternalID = req.Result.ExternalID
	}
	if req.Invoice != nil {
		receipt.InvoiceID = req.Invoice.ID
		receipt.PaymentHash = req.Invoice.PaymentHash
		receipt.Satoshis = req.Invoice.AmountSatoshis
	}
	if receipt.PaidAt.IsZero() {
		receipt.PaidAt = receipt.CreatedAt
	}

	// Notify that receipt is ready
	if s.notificationService != nil {
		_ = s.notificationService.NotifyReceiptReady(ctx, receipt)
	}

	return receipt, nil
}

// FormatReceipt formats the receipt as plain text (for email/print).
func (s *ReceiptService) FormatReceipt(receipt *domain.Receipt) string {
	var b strings.Builder
	b.WriteString(`
=====================================
        PAYMENT RECEIPT
=====================================
`)
	fmt.Fprintf(&b, "Receipt ID: %s\n", receipt.ID)
	fmt.Fprintf(&b, "Date: %s\n", receipt.PaidAt.Format("Jan 02, 2006 3:04 PM"))
	b.WriteString(`
PURCHASE
-------------------------------------
`)
	fmt.Fprintf(&b, "Service:   %s\n", receipt.ServiceTitle)
	fmt.Fprintf(&b, "%-10s %s\n", recipientLabel(receipt.ServiceType)+":", receipt.Recipient)
	fmt.Fprintf(&b, "Provider:  %s\n", receipt.Provider)
	if receipt.ExternalID != "" {
		fmt.Fprintf(&b, "Reference: %s\n", receipt.ExternalID)
	}
	b.WriteString(`
AMOUNT
-------------------------------------
`)
	fmt.Fprintf(&b, "Amount:    NGN %s\n", formatThousands(receipt.Amount))
	fmt.Fprintf(&b, "USD:       $%s\n", receipt.USD.StringFixed(2))
	if receipt.Satoshis > 0 {
		fmt.Fprintf(&b, "Sats:      %s SAT\n", formatThousands(receipt.Satoshis))
		fmt.Fprintf(&b, "Fee:       %d SAT\n", receipt.FeeSatoshis)
	}
	if receipt.InvoiceID != "" {
		b.WriteString(`
LIGHTNING
-------------------------------------
`)
		fmt.Fprintf(&b, "Invoice:   %s\n", receipt.InvoiceID)
		if receipt.PaymentHash != "" {
			fmt.Fprintf(&b, "Hash:      %s\n", receipt.PaymentHash)
		}
	}
	if receipt.CustomerEmail != "" {
		fmt.Fprintf(&b, "\nReceipt sent to: %s\n", receipt.CustomerEmail)
	}
	b.WriteString(`
=====================================
       Thank you for your purchase!
=====================================
`)
	return b.String()
}

func recipientLabel(t domain.ServiceType) string {
	switch t {
	case domain.ServiceElectricity:
		return "Meter"
	case domain.ServiceCableTV:
		return "Card"
	default:
		return "Number"
	}
}

func formatThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	if n < 0 {
		return "-" + formatThousands(-n)
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}
