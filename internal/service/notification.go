package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"billpay/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationPurchaseSubmitted NotificationType = "PURCHASE_SUBMITTED"
	NotificationPurchaseFailed    NotificationType = "PURCHASE_FAILED"
	NotificationInvoiceIssued     NotificationType = "INVOICE_ISSUED"
	NotificationAwaitingPayment   NotificationType = "AWAITING_CONFIRMATION"
	NotificationPaymentSettled    NotificationType = "PAYMENT_SETTLED"
	NotificationReceiptReady      NotificationType = "RECEIPT_READY"
)

// Notification represents a notification to be sent.
type Notification struct {
	Type        NotificationType
	RecipientID string // device id, or customer email when one was given
	FlowID      string
	Title       string
	Message     string
	Data        map[string]interface{}
	CreatedAt   time.Time
}

// NotificationService records flow events. Delivery is log-only.
type NotificationService struct {
	now func() time.Time
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService() *NotificationService {
	return &NotificationService{now: time.Now}
}

// NotifySubmitted records that a purchase was sent upstream.
func (s *NotificationService) NotifySubmitted(ctx context.Context, flowID, recipientID string, req domain.PurchaseRequest) error {
	return s.send(ctx, Notification{
		Type:        NotificationPurchaseSubmitted,
		RecipientID: recipientID,
		FlowID:      flowID,
		Title:       "Purchase Submitted",
		Message:     fmt.Sprintf("%s purchase of NGN %d for %s submitted", req.ServiceType, req.Amount, req.Recipient),
		Data: map[string]interface{}{
			"service_type": req.ServiceType,
			"provider":     req.ProviderCode,
			"amount":       req.Amount,
		},
	})
}

// NotifyFailed records a failed submission with the user-facing message.
func (s *NotificationService) NotifyFailed(ctx context.Context, flowID, recipientID string, gwErr *domain.GatewayError) error {
	return s.send(ctx, Notification{
		Type:        NotificationPurchaseFailed,
		RecipientID: recipientID,
		FlowID:      flowID,
		Title:       "Purchase Failed",
		Message:     gwErr.Message,
		Data: map[string]interface{}{
			"kind": gwErr.Kind,
		},
	})
}

// NotifyInvoiceIssued records that a Lightning invoice is waiting to be paid.
func (s *NotificationService) NotifyInvoiceIssued(ctx context.Context, flowID, recipientID string, inv *domain.LightningInvoice) error {
	return s.send(ctx, Notification{
		Type:        NotificationInvoiceIssued,
		RecipientID: recipientID,
		FlowID:      flowID,
		Title:       "Invoice Ready",
		Message:     fmt.Sprintf("Pay %d sats before %s", inv.AmountSatoshis, inv.ExpiresAt.Format(time.Kitchen)),
		Data: map[string]interface{}{
			"invoice_id": inv.ID,
			"satoshis":   inv.AmountSatoshis,
		},
	})
}

// NotifyAwaitingConfirmation records that the biller accepted a direct purchase.
func (s *NotificationService) NotifyAwaitingConfirmation(ctx context.Context, flowID, recipientID string, result *domain.TransactionResult) error {
	return s.send(ctx, Notification{
		Type:        NotificationAwaitingPayment,
		RecipientID: recipientID,
		FlowID:      flowID,
		Title:       "Awaiting Confirmation",
		Message:     fmt.Sprintf("Transaction %s is %s", result.ExternalID, result.Status),
		Data: map[string]interface{}{
			"external_id": result.ExternalID,
		},
	})
}

// NotifySettled records that the flow reached its terminal state.
func (s *NotificationService) NotifySettled(ctx context.Context, flowID, recipientID string) error {
	return s.send(ctx, Notification{
		Type:        NotificationPaymentSettled,
		RecipientID: recipientID,
		FlowID:      flowID,
		Title:       "Payment Successful",
		Message:     "Your purchase has been completed.",
	})
}

// NotifyReceiptReady records that a receipt was generated.
func (s *NotificationService) NotifyReceiptReady(ctx context.Context, receipt *domain.Receipt) error {
	recipient := receipt.CustomerEmail
	if recipient == "" {
		recipient = receipt.DeviceID
	}
	return s.send(ctx, Notification{
		Type:        NotificationReceiptReady,
		RecipientID: recipient,
		FlowID:      receipt.FlowID,
		Title:       "Receipt Ready",
		Message:     fmt.Sprintf("Your receipt for NGN %d is ready", receipt.Amount),
		Data: map[string]interface{}{
			"receipt_id": receipt.ID,
		},
	})
}

func (s *NotificationService) send(ctx context.Context, n Notification) error {
	n.CreatedAt = s.now()
	log.Printf("[NOTIFICATION] Type=%s, Flow=%s, Recipient=%s, Title=%s, Message=%s",
		n.Type, n.FlowID, n.RecipientID, n.Title, n.Message)
	return nil
}
