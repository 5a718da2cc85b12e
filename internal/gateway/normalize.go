package gateway

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"billpay/internal/domain"
)

// aliases maps a canonical field to the upstream names it may arrive under,
// in order of preference.
type aliases map[string][]string

var invoiceAliases = aliases{
	"id":              {"id", "invoice_id", "invoiceId"},
	"payment_request": {"payment_request", "paymentRequest", "request", "bolt11", "invoice"},
	"satoshis":        {"satoshis", "amount", "tokens", "amount_sats"},
	"description":     {"description", "memo"},
	"reference":       {"reference", "ref"},
	"payment_hash":    {"payment_hash", "paymentHash", "hash"},
	"expires_at":      {"expires_at", "expiresAt", "expiry_date"},
	"created_at":      {"created_at", "createdAt"},
	"settled":         {"settled", "is_settled", "isSettled", "paid"},
	"status":          {"status", "state"},
}

var resultAliases = aliases{
	"id":     {"id", "reference", "transaction_id", "transactionId", "ref"},
	"status": {"status", "transaction_status", "state"},
}

var planAliases = aliases{
	"id":       {"id", "planId", "plan_id", "code", "bouquetCode", "bouquet_code"},
	"name":     {"name", "title", "description"},
	"price":    {"price", "amount"},
	"validity": {"validity", "duration"},
	"provider": {"provider", "network", "biller"},
}

var balanceAliases = aliases{
	"btc": {"btc", "BTC", "btc_balance"},
	"usd": {"usd", "USD", "usd_balance"},
	"ngn": {"ngn", "NGN", "ngn_balance"},
}

var meterAliases = aliases{
	"customer_name":    {"customerName", "customer_name", "name"},
	"customer_address": {"customerAddress", "customer_address", "address"},
	"meter_number":     {"meterNumber", "meter_number"},
	"customer_phone":   {"customerPhone", "customer_phone", "phone"},
}

var recordAliases = aliases{
	"id":         {"id", "transaction_id", "transactionId"},
	"amount":     {"amount"},
	"status":     {"status"},
	"reference":  {"reference", "ref"},
	"created_at": {"created_at", "createdAt"},
	"updated_at": {"updated_at", "updatedAt"},
}

var addressAliases = aliases{
	"address": {"address", "bitcoinAddress", "bitcoin_address"},
	"qr_code": {"qr_code", "qrCode", "qr"},
}

// lookup returns the first present, non-null, non-empty alias of canonical.
func (a aliases) lookup(obj map[string]any, canonical string) (any, bool) {
	for _, name := range a[canonical] {
		v, ok := obj[name]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

func (a aliases) text(obj map[string]any, canonical string) string {
	v, ok := a.lookup(obj, canonical)
	if !ok {
		return ""
	}
	return asString(v)
}

func (a aliases) integer(obj map[string]any, canonical string) (int64, bool) {
	v, ok := a.lookup(obj, canonical)
	if !ok {
		return 0, false
	}
	return asInt64(v)
}

func (a aliases) timestamp(obj map[string]any, canonical string) (time.Time, bool) {
	v, ok := a.lookup(obj, canonical)
	if !ok {
		return time.Time{}, false
	}
	return asTime(v)
}

func (a aliases) amount(obj map[string]any, canonical string) decimal.Decimal {
	v, ok := a.lookup(obj, canonical)
	if !ok {
		return decimal.Zero
	}
	d, _ := asDecimal(v)
	return d
}

// invoiceFallback supplies values for fields the upstream omitted.
type invoiceFallback struct {
	ID          string
	Amount      int64
	Description string
	Reference   string
	Expiry      time.Duration
}

// normalizeInvoice maps an upstream invoice object onto LightningInvoice.
// It never fails: missing fields take fallbacks.
func (c *Client) normalizeInvoice(data map[string]any, fb invoiceFallback) domain.LightningInvoice {
	now := c.now()

	inv := domain.LightningInvoice{
		ID:             invoiceAliases.text(data, "id"),
		PaymentRequest: invoiceAliases.text(data, "payment_request"),
		Description:    invoiceAliases.text(data, "description"),
		Reference:      invoiceAliases.text(data, "reference"),
		PaymentHash:    invoiceAliases.text(data, "payment_hash"),
	}
	if inv.ID == "" {
		inv.ID = fb.ID
	}
	if inv.ID == "" {
		inv.ID = c.ids.next("invoice")
	}
	if inv.Description == "" {
		inv.Description = fb.Description
	}
	if inv.Reference == "" {
		inv.Reference = fb.Reference
	}

	if sats, ok := invoiceAliases.integer(data, "satoshis"); ok {
		inv.AmountSatoshis = sats
	} else {
		inv.AmountSatoshis = fb.Amount
	}

	if t, ok := invoiceAliases.timestamp(data, "created_at"); ok {
		inv.CreatedAt = t
	} else {
		inv.CreatedAt = now
	}
	if t, ok := invoiceAliases.timestamp(data, "expires_at"); ok {
		inv.ExpiresAt = t
	} else {
		inv.ExpiresAt = now.Add(fb.Expiry)
	}

	if v, ok := invoiceAliases.lookup(data, "settled"); ok {
		inv.Settled, _ = asBool(v)
	} else {
		switch strings.ToLower(invoiceAliases.text(data, "status")) {
		case "paid", "settled", "success", "successful", "completed":
			inv.Settled = true
		}
	}

	return inv
}

// normalizeResult maps a purchase or status response onto TransactionResult.
// An id the upstream omitted is taken from fallbackID, or synthesized. A
// missing or unrecognized status becomes defaultStatus.
func (c *Client) normalizeResult(env *envelope, fallbackID string, defaultStatus domain.TransactionStatus) domain.TransactionResult {
	data := env.dataOrEmpty()

	id := resultAliases.text(env.fields, "id")
	if id == "" {
		id = resultAliases.text(data, "id")
	}
	if id == "" {
		id = fallbackID
	}
	if id == "" {
		id = c.ids.next("txn")
	}

	status := defaultStatus
	if s, ok := parseTransactionStatus(resultAliases.text(data, "status")); ok {
		status = s
	}

	return domain.TransactionResult{
		ExternalID: id,
		Status:     status,
		Raw:        env.raw,
	}
}

func parseTransactionStatus(s string) (domain.TransactionStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "success", "successful", "completed", "complete", "delivered":
		return domain.TransactionCompleted, true
	case "pending", "processing", "initiated", "queued":
		return domain.TransactionPending, true
	case "failed", "failure", "error", "reversed", "cancelled":
		return domain.TransactionFailed, true
	default:
		return "", false
	}
}

func normalizePlan(obj map[string]any, provider string) domain.DataPlan {
	price, _ := planAliases.integer(obj, "price")
	p := domain.DataPlan{
		ID:       planAliases.text(obj, "id"),
		Name:     planAliases.text(obj, "name"),
		Price:    price,
		Validity: planAliases.text(obj, "validity"),
		Provider: planAliases.text(obj, "provider"),
	}
	if p.Provider == "" {
		p.Provider = provider
	}
	return p
}

func normalizeBouquet(obj map[string]any, provider string) domain.CableBouquet {
	plan := normalizePlan(obj, provider)
	return domain.CableBouquet{
		ID:       plan.ID,
		Name:     plan.Name,
		Price:    plan.Price,
		Provider: plan.Provider,
	}
}

func normalizeRecord(obj map[string]any) domain.TransactionRecord {
	amount, _ := recordAliases.integer(obj, "amount")
	status, ok := parseTransactionStatus(recordAliases.text(obj, "status"))
	if !ok {
		status = domain.TransactionPending
	}
	rec := domain.TransactionRecord{
		ID:        recordAliases.text(obj, "id"),
		Amount:    amount,
		Status:    status,
		Reference: recordAliases.text(obj, "reference"),
	}
	rec.CreatedAt, _ = recordAliases.timestamp(obj, "created_at")
	rec.UpdatedAt, _ = recordAliases.timestamp(obj, "updated_at")
	return rec
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// asInt64 coerces numbers and numeric strings. Fractions are truncated.
func asInt64(v any) (int64, bool) {
	d, ok := asDecimal(v)
	if !ok {
		return 0, false
	}
	return d.IntPart(), true
}

func asDecimal(v any) (decimal.Decimal, bool) {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	case float64:
		return decimal.NewFromFloat(t), true
	default:
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func asBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return b, err == nil
	case json.Number:
		return t.String() != "0", true
	default:
		return false, false
	}
}

// asTime accepts RFC 3339 strings and unix-second numbers.
func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
			if parsed, err := time.Parse(layout, strings.TrimSpace(t)); err == nil {
				return parsed, true
			}
		}
		if secs, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
			return time.Unix(secs, 0).UTC(), true
		}
	case json.Number:
		if secs, err := t.Int64(); err == nil {
			return time.Unix(secs, 0).UTC(), true
		}
	}
	return time.Time{}, false
}
