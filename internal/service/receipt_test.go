package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billpay/internal/domain"
)

func TestReceiptService_GenerateReceipt(t *testing.T) {
	svc := NewReceiptService(testConverter(t), NewNotificationService())

	receipt, err := svc.GenerateReceipt(context.Background(), GenerateReceiptRequest{
		FlowID:    "flow-1",
		DeviceID:  "device-1",
		Request:   airtimeRequest(),
		Result:    &domain.TransactionResult{ExternalID: "R1"},
		SettledAt: testNow,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, receipt.ID)
	assert.Equal(t, "Airtime", receipt.ServiceTitle)
	assert.Equal(t, "MTN", receipt.Provider)
	assert.Equal(t, "R1", receipt.ExternalID)
	assert.Equal(t, int64(283), receipt.Satoshis)
	assert.Equal(t, int64(4), receipt.FeeSatoshis)
	assert.Equal(t, "0.31", receipt.USD.StringFixed(2))
	assert.Equal(t, testNow, receipt.PaidAt)
}

func TestReceiptService_InvoiceSatoshisWin(t *testing.T) {
	svc := NewReceiptService(testConverter(t), nil)

	receipt, err := svc.GenerateReceipt(context.Background(), GenerateReceiptRequest{
		FlowID:  "flow-1",
		Request: airtimeRequest(),
		Invoice: &domain.LightningInvoice{ID: "inv_1", AmountSatoshis: 300, PaymentHash: "abc"},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(300), receipt.Satoshis)
	assert.Equal(t, "inv_1", receipt.InvoiceID)
	assert.False(t, receipt.PaidAt.IsZero())
}

func TestReceiptService_RequiresFlow(t *testing.T) {
	svc := NewReceiptService(testConverter(t), nil)

	_, err := svc.GenerateReceipt(context.Background(), GenerateReceiptRequest{})
	assert.ErrorIs(t, err, ErrFlowNotFound)
}

func TestReceiptService_FormatReceipt(t *testing.T) {
	svc := NewReceiptService(testConverter(t), nil)
	svc.now = func() time.Time { return testNow }

	req := airtimeRequest()
	req.Amount = 125000
	req.CustomerEmail = "ada@example.com"
	receipt, err := svc.GenerateReceipt(context.Background(), GenerateReceiptRequest{
		FlowID:  "flow-1",
		Request: req,
		Invoice: &domain.LightningInvoice{ID: "inv_1", AmountSatoshis: 70962, PaymentHash: "abc"},
	})
	require.NoError(t, err)

	text := svc.FormatReceipt(receipt)
	assert.Contains(t, text, "PAYMENT RECEIPT")
	assert.Contains(t, text, "NGN 125,000")
	assert.Contains(t, text, "70,962 SAT")
	assert.Contains(t, text, "Invoice:   inv_1")
	assert.Contains(t, text, "Receipt sent to: ada@example.com")
	assert.Contains(t, text, "Mar 14, 2025 12:00 PM")
}

func TestFormatThousands(t *testing.T) {
	assert.Equal(t, "0", formatThousands(0))
	assert.Equal(t, "999", formatThousands(999))
	assert.Equal(t, "1,000", formatThousands(1000))
	assert.Equal(t, "1,234,567", formatThousands(1234567))
	assert.Equal(t, "-12,345", formatThousands(-12345))
}
