package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"billpay/internal/currency"
	"billpay/internal/domain"
)

// FlowState is a step of the purchase journey.
type FlowState string

const (
	StateCollectingInput      FlowState = "collecting_input"
	StateSubmitting           FlowState = "submitting"
	StateAwaitingConfirmation FlowState = "awaiting_confirmation"
	StateSettled              FlowState = "settled"
	StateFailed               FlowState = "failed"
)

const defaultPollInterval = 3 * time.Second

// PollConfig bounds the optional settlement poll.
type PollConfig struct {
	Enabled     bool
	Interval    time.Duration
	MaxAttempts int
}

// FlowDeps are the collaborators shared by every flow.
type FlowDeps struct {
	Gateway       BillingGateway
	Converter     *currency.Converter
	Preferences   PreferenceStore    // optional
	Catalog       CatalogInvalidator // optional
	Notifications *NotificationService
	Receipts      *ReceiptService
	Poll          PollConfig
	Now           func() time.Time
}

// CatalogInvalidator drops a provider's cached catalog.
type CatalogInvalidator interface {
	InvalidateCatalog(ctx context.Context, provider string)
}

// View is what the presentation layer renders for a flow.
type View struct {
	FlowID       string                    `json:"flow_id"`
	State        FlowState                 `json:"state"`
	Error        string                    `json:"error,omitempty"`
	ErrorKind    domain.ErrorKind          `json:"error_kind,omitempty"`
	CanRetry     bool                      `json:"can_retry"`
	InFlight     bool                      `json:"in_flight"`
	Polling      bool                      `json:"polling"`
	Request      *domain.PurchaseRequest   `json:"request,omitempty"`
	Confirmation string                    `json:"confirmation,omitempty"`
	Quote        *currency.Quote           `json:"quote,omitempty"`
	Result       *domain.TransactionResult `json:"result,omitempty"`
	Invoice      *domain.LightningInvoice  `json:"invoice,omitempty"`
	Remembered   domain.RememberedFields   `json:"remembered"`
	SettledAt    *time.Time                `json:"settled_at,omitempty"`
}

// Controller drives one purchase flow through
// CollectingInput -> Submitting -> AwaitingConfirmation -> Settled, with Failed
// reachable from Submitting and AwaitingConfirmation.
//
// Every upstream call carries the sequence token current when it was issued.
// Back and resubmission advance the token, so a response whose token no longer
// matches is discarded instead of applied. The mutex is never held across an
// upstream call.
type Controller struct {
	id       string
	deviceID string
	deps     FlowDeps

	mu         sync.Mutex
	state      FlowState
	seq        uint64
	inFlight   bool
	request    *domain.PurchaseRequest
	quote      *currency.Quote
	result     *domain.TransactionResult
	invoice    *domain.LightningInvoice
	lastErr    *domain.GatewayError
	remembered domain.RememberedFields
	settledAt  time.Time
	receipt    *domain.Receipt
	pollGen    uint64
	cancelPoll context.CancelFunc
	lastActive time.Time
}

// NewController creates a flow in CollectingInput.
func NewController(id, deviceID string, deps FlowDeps) *Controller {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Notifications == nil {
		deps.Notifications = NewNotificationService()
	}
	return &Controller{
		id:         id,
		deviceID:   deviceID,
		deps:       deps,
		state:      StateCollectingInput,
		lastActive: deps.Now(),
	}
}

// ID returns the flow id.
func (c *Controller) ID() string {
	return c.id
}

// DeviceID returns the device that owns the flow.
func (c *Controller) DeviceID() string {
	return c.deviceID
}

// Start loads the device's remembered inputs. A storage failure is logged and
// the flow starts empty.
func (c *Controller) Start(ctx context.Context) domain.RememberedFields {
	var fields domain.RememberedFields
	if c.deps.Preferences != nil && c.deviceID != "" {
		loaded, err := c.deps.Preferences.Load(ctx, c.deviceID)
		if err != nil {
			log.Printf("[FLOW] %s: failed to load remembered fields: %v", c.id, err)
		} else {
			fields = loaded
		}
	}

	c.mu.Lock()
	c.remembered = fields
	c.touchLocked()
	c.mu.Unlock()
	return fields
}

// Submit validates req and sends it upstream. Validation failures keep the
// flow in CollectingInput and never reach the network. A failed flow leaves
// Failed only through Retry, or Back followed by a new Submit.
func (c *Controller) Submit(ctx context.Context, req domain.PurchaseRequest) (View, error) {
	req = normalizeRequest(req)

	c.mu.Lock()
	c.touchLocked()
	if c.inFlight {
		c.mu.Unlock()
		return c.Snapshot(), ErrSubmissionInFlight
	}
	if c.state != StateCollectingInput {
		c.mu.Unlock()
		return c.Snapshot(), ErrInvalidTransition
	}

	if err := validateRequest(req); err != nil {
		c.state = StateCollectingInput
		c.lastErr, _ = domain.AsGatewayError(err)
		c.mu.Unlock()
		return c.Snapshot(), err
	}

	c.request = &req
	c.quote = nil
	if req.Amount > 0 {
		if q, err := c.deps.Converter.Quote(req.Amount); err == nil {
			c.quote = &q
		}
	}
	token := c.beginLocked()
	c.mu.Unlock()

	return c.execute(ctx, token, req)
}

// Retry re-issues the failed request unchanged.
func (c *Controller) Retry(ctx context.Context) (View, error) {
	c.mu.Lock()
	c.touchLocked()
	if c.inFlight {
		c.mu.Unlock()
		return c.Snapshot(), ErrSubmissionInFlight
	}
	if c.state != StateFailed || c.request == nil {
		c.mu.Unlock()
		return c.Snapshot(), ErrInvalidTransition
	}
	req := *c.request
	token := c.beginLocked()
	c.mu.Unlock()

	log.Printf("[FLOW] %s: retrying %s purchase", c.id, req.ServiceType)
	return c.execute(ctx, token, req)
}

// ConfirmPayment records the user's "payment made" action.
func (c *Controller) ConfirmPayment(ctx context.Context) (View, error) {
	c.mu.Lock()
	c.touchLocked()
	if c.state != StateAwaitingConfirmation {
		c.mu.Unlock()
		return c.Snapshot(), ErrInvalidTransition
	}
	c.settleLocked()
	c.mu.Unlock()

	_ = c.deps.Notifications.NotifySettled(ctx, c.id, c.recipientID())
	return c.Snapshot(), nil
}

// Back returns the flow to CollectingInput from any state. Outstanding
// responses are discarded on arrival and an active poll stops.
func (c *Controller) Back() View {
	c.mu.Lock()
	c.touchLocked()
	c.seq++
	c.inFlight = false
	c.stopPollLocked()
	c.state = StateCollectingInput
	c.result = nil
	c.invoice = nil
	c.lastErr = nil
	c.receipt = nil
	c.settledAt = time.Time{}
	c.mu.Unlock()

	return c.Snapshot()
}

// PollSettlement checks settlement at the configured interval until the flow
// settles or fails, the attempts run out, or the poll is cancelled by Back.
// Running out of attempts leaves the flow in AwaitingConfirmation.
func (c *Controller) PollSettlement(ctx context.Context) (View, error) {
	cfg := c.deps.Poll
	if !cfg.Enabled {
		return c.Snapshot(), ErrPollingDisabled
	}

	c.mu.Lock()
	c.touchLocked()
	if c.state != StateAwaitingConfirmation {
		c.mu.Unlock()
		return c.Snapshot(), ErrInvalidTransition
	}
	if c.cancelPoll != nil {
		c.mu.Unlock()
		return c.Snapshot(), ErrPollInProgress
	}
	pollCtx, cancel := context.WithCancel(ctx)
	c.pollGen++
	gen := c.pollGen
	c.cancelPoll = cancel
	token := c.seq
	result, invoice := c.result, c.invoice
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.pollGen == gen {
			c.cancelPoll = nil
		}
		c.mu.Unlock()
		cancel()
	}()

	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= attempts; attempt++ {
		outcome, err := c.checkSettlement(pollCtx, result, invoice)
		if pollCtx.Err() != nil {
			return c.Snapshot(), ErrStaleResponse
		}
		if err != nil {
			log.Printf("[FLOW] %s: settlement check %d/%d failed: %v", c.id, attempt, attempts, err)
			return c.Snapshot(), err
		}

		c.mu.Lock()
		if token != c.seq || c.state != StateAwaitingConfirmation {
			c.mu.Unlock()
			return c.Snapshot(), ErrStaleResponse
		}
		switch {
		case outcome.settled:
			if outcome.invoice != nil {
				c.invoice = outcome.invoice
			}
			c.settleLocked()
			c.mu.Unlock()
			_ = c.deps.Notifications.NotifySettled(ctx, c.id, c.recipientID())
			return c.Snapshot(), nil
		case outcome.failure != nil:
			c.state = StateFailed
			c.lastErr = outcome.failure
			c.mu.Unlock()
			_ = c.deps.Notifications.NotifyFailed(ctx, c.id, c.recipientID(), outcome.failure)
			return c.Snapshot(), outcome.failure
		}
		c.mu.Unlock()

		if attempt == attempts {
			break
		}
		select {
		case <-pollCtx.Done():
			return c.Snapshot(), ErrStaleResponse
		case <-ticker.C:
		}
	}

	log.Printf("[FLOW] %s: settlement not observed after %d attempts", c.id, attempts)
	return c.Snapshot(), nil
}

// Receipt returns the receipt of a settled flow, generating it once.
func (c *Controller) Receipt(ctx context.Context) (*domain.Receipt, error) {
	c.mu.Lock()
	c.touchLocked()
	if c.state != StateSettled || c.request == nil {
		c.mu.Unlock()
		return nil, ErrNotSettled
	}
	if c.receipt != nil {
		r := *c.receipt
		c.mu.Unlock()
		return &r, nil
	}
	req := GenerateReceiptRequest{
		FlowID:    c.id,
		DeviceID:  c.deviceID,
		Request:   *c.request,
		Result:    c.result,
		Invoice:   c.invoice,
		SettledAt: c.settledAt,
	}
	c.mu.Unlock()

	if c.deps.Receipts == nil {
		return nil, errors.New("receipts are not configured")
	}
	receipt, err := c.deps.Receipts.GenerateReceipt(ctx, req)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.receipt == nil && c.state == StateSettled {
		c.receipt = receipt
	}
	c.mu.Unlock()
	return receipt, nil
}

// Snapshot returns the current view.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		FlowID:     c.id,
		State:      c.state,
		CanRetry:   c.state == StateFailed && !c.inFlight,
		InFlight:   c.inFlight,
		Polling:    c.cancelPoll != nil,
		Remembered: c.remembered,
	}
	if c.lastErr != nil {
		v.Error = c.lastErr.Message
		v.ErrorKind = c.lastErr.Kind
	}
	if c.request != nil {
		req := *c.request
		v.Request = &req
		if d, err := DescriptorFor(req.ServiceType); err == nil {
			v.Confirmation = d.Confirmation(req)
		}
	}
	if c.quote != nil {
		q := *c.quote
		v.Quote = &q
	}
	if c.result != nil {
		r := *c.result
		v.Result = &r
	}
	if c.invoice != nil {
		inv := *c.invoice
		v.Invoice = &inv
	}
	if !c.settledAt.IsZero() {
		t := c.settledAt
		v.SettledAt = &t
	}
	return v
}

// LastActive returns when the flow was last touched.
func (c *Controller) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

// Close stops any running poll.
func (c *Controller) Close() {
	c.mu.Lock()
	c.seq++
	c.stopPollLocked()
	c.mu.Unlock()
}

// execute performs the upstream call for token and applies its outcome.
func (c *Controller) execute(ctx context.Context, token uint64, req domain.PurchaseRequest) (View, error) {
	_ = c.deps.Notifications.NotifySubmitted(ctx, c.id, c.recipientID(), req)

	var (
		result  *domain.TransactionResult
		invoice *domain.LightningInvoice
		err     error
	)
	if req.CustomerEmail != "" {
		invoice, err = c.createInvoice(ctx, req)
	} else {
		result, err = purchase(ctx, c.deps.Gateway, req)
	}

	c.mu.Lock()
	if token != c.seq {
		c.mu.Unlock()
		log.Printf("[FLOW] %s: discarding stale response for request %d", c.id, token)
		return c.Snapshot(), ErrStaleResponse
	}
	c.inFlight = false

	if err != nil {
		gwErr, ok := domain.AsGatewayError(err)
		if !ok {
			gwErr = domain.NewServerError("")
			gwErr.Cause = err
		}
		c.lastErr = gwErr
		if gwErr.Kind == domain.KindValidation {
			c.state = StateCollectingInput
			c.mu.Unlock()
			c.dropStaleCatalog(ctx, req, gwErr)
			return c.Snapshot(), gwErr
		}
		c.state = StateFailed
		c.mu.Unlock()

		c.dropStaleCatalog(ctx, req, gwErr)
		log.Printf("[FLOW] %s: %s purchase failed: kind=%s err=%v", c.id, req.ServiceType, gwErr.Kind, err)
		_ = c.deps.Notifications.NotifyFailed(ctx, c.id, c.recipientID(), gwErr)
		return c.Snapshot(), gwErr
	}

	c.state = StateAwaitingConfirmation
	c.result = result
	c.invoice = invoice
	c.mu.Unlock()

	if req.Remember {
		c.remember(ctx, req)
	}
	if invoice != nil {
		_ = c.deps.Notifications.NotifyInvoiceIssued(ctx, c.id, c.recipientID(), invoice)
	} else {
		_ = c.deps.Notifications.NotifyAwaitingConfirmation(ctx, c.id, c.recipientID(), result)
	}
	return c.Snapshot(), nil
}

// dropStaleCatalog invalidates the cached catalog when upstream rejects a
// plan or bouquet purchase; the cached price or id may no longer exist.
func (c *Controller) dropStaleCatalog(ctx context.Context, req domain.PurchaseRequest, gwErr *domain.GatewayError) {
	if c.deps.Catalog == nil || req.CustomerEmail != "" {
		return
	}
	if req.ServiceType != domain.ServiceData && req.ServiceType != domain.ServiceCableTV {
		return
	}
	if gwErr.Kind != domain.KindValidation && gwErr.Kind != domain.KindServer {
		return
	}
	c.deps.Catalog.InvalidateCatalog(ctx, req.ProviderCode)
}

func (c *Controller) createInvoice(ctx context.Context, req domain.PurchaseRequest) (*domain.LightningInvoice, error) {
	sats, err := c.deps.Converter.LocalToSatoshis(req.Amount)
	if err != nil {
		return nil, err
	}
	title := string(req.ServiceType)
	if d, err := DescriptorFor(req.ServiceType); err == nil {
		title = d.Title
	}
	return c.deps.Gateway.CreateLightningInvoice(ctx, domain.InvoiceRequest{
		AmountSatoshis: sats,
		Description:    fmt.Sprintf("%s NGN %d for %s (%s)", title, req.Amount, req.Recipient, req.ProviderCode),
		CustomerEmail:  req.CustomerEmail,
	})
}

type settlementOutcome struct {
	settled bool
	invoice *domain.LightningInvoice
	failure *domain.GatewayError
}

func (c *Controller) checkSettlement(ctx context.Context, result *domain.TransactionResult, invoice *domain.LightningInvoice) (settlementOutcome, error) {
	if invoice != nil {
		inv, err := c.deps.Gateway.GetInvoiceStatus(ctx, invoice.ID)
		if err != nil {
			return settlementOutcome{}, err
		}
		if inv.PaymentRequest == "" {
			inv.PaymentRequest = invoice.PaymentRequest
		}
		if inv.Settled {
			return settlementOutcome{settled: true, invoice: inv}, nil
		}
		if inv.Expired(c.deps.Now()) {
			return settlementOutcome{failure: domain.NewServerError("Invoice expired")}, nil
		}
		return settlementOutcome{}, nil
	}

	if result == nil {
		return settlementOutcome{}, ErrInvalidTransition
	}
	status, err := c.deps.Gateway.GetTransactionStatus(ctx, result.ExternalID)
	if err != nil {
		return settlementOutcome{}, err
	}
	switch status.Status {
	case domain.TransactionCompleted:
		return settlementOutcome{settled: true}, nil
	case domain.TransactionFailed:
		return settlementOutcome{failure: domain.NewServerError("")}, nil
	default:
		return settlementOutcome{}, nil
	}
}

// remember stores the reusable inputs after an opted-in successful submission.
func (c *Controller) remember(ctx context.Context, req domain.PurchaseRequest) {
	if c.deps.Preferences == nil || c.deviceID == "" {
		return
	}
	fields := domain.RememberedFields{
		CountryCode: req.CountryCode,
		Provider:    req.ProviderCode,
		Email:       req.CustomerEmail,
	}
	if d, err := DescriptorFor(req.ServiceType); err == nil && d.RecipientIsPhone {
		fields.Phone = currency.NormalizePhone(req.Recipient)
	}
	if err := c.deps.Preferences.Save(ctx, c.deviceID, fields); err != nil {
		log.Printf("[FLOW] %s: failed to save remembered fields: %v", c.id, err)
		return
	}

	c.mu.Lock()
	c.remembered = fields
	c.mu.Unlock()
}

func (c *Controller) recipientID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.request != nil && c.request.CustomerEmail != "" {
		return c.request.CustomerEmail
	}
	return c.deviceID
}

func (c *Controller) beginLocked() uint64 {
	c.seq++
	c.inFlight = true
	c.state = StateSubmitting
	c.lastErr = nil
	c.result = nil
	c.invoice = nil
	return c.seq
}

func (c *Controller) settleLocked() {
	c.stopPollLocked()
	c.state = StateSettled
	c.settledAt = c.deps.Now()
}

func (c *Controller) stopPollLocked() {
	if c.cancelPoll != nil {
		c.cancelPoll()
		c.cancelPoll = nil
	}
}

func (c *Controller) touchLocked() {
	c.lastActive = c.deps.Now()
}

func validateRequest(req domain.PurchaseRequest) error {
	d, err := DescriptorFor(req.ServiceType)
	if err != nil {
		return domain.NewValidationError("Please choose a service")
	}
	return d.Validate(req)
}

func normalizeRequest(req domain.PurchaseRequest) domain.PurchaseRequest {
	req.Recipient = strings.TrimSpace(req.Recipient)
	req.ProviderCode = strings.TrimSpace(req.ProviderCode)
	req.PlanID = strings.TrimSpace(req.PlanID)
	req.BouquetCode = strings.TrimSpace(req.BouquetCode)
	req.CountryCode = strings.ToUpper(strings.TrimSpace(req.CountryCode))
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	return req
}
