package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"billpay/internal/domain"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

// GetWalletBalance returns the wallet balance snapshot. Missing currencies read as zero.
func (c *Client) GetWalletBalance(ctx context.Context) (*domain.WalletBalance, error) {
	env, err := c.call(ctx, http.MethodGet, "/wallets/balance", nil, nil)
	if err != nil {
		return nil, err
	}
	data := env.dataOrEmpty()
	return &domain.WalletBalance{
		BTC: balanceAliases.amount(data, "btc"),
		USD: balanceAliases.amount(data, "usd"),
		NGN: balanceAliases.amount(data, "ngn"),
	}, nil
}

// GetBitcoinAddress returns an on-chain deposit address.
func (c *Client) GetBitcoinAddress(ctx context.Context) (*domain.BitcoinAddress, error) {
	env, err := c.call(ctx, http.MethodGet, "/wallets/address/bitcoin", nil, nil)
	if err != nil {
		return nil, err
	}
	data, err := env.dataObject()
	if err != nil {
		return nil, domain.NewMalformedResponseError(err)
	}
	addr := &domain.BitcoinAddress{
		Address: addressAliases.text(data, "address"),
		QRCode:  addressAliases.text(data, "qr_code"),
	}
	if addr.Address == "" {
		return nil, domain.NewMalformedResponseError(errMissingData)
	}
	return addr, nil
}

// GetTransactionStatus fetches a bill transaction by its external id.
func (c *Client) GetTransactionStatus(ctx context.Context, transactionID string) (*domain.TransactionResult, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, domain.NewValidationError("Transaction ID is required")
	}
	env, err := c.call(ctx, http.MethodGet, "/bills/transaction/"+url.PathEscape(transactionID), nil, nil)
	if err != nil {
		return nil, err
	}
	// A lookup that does not report a status has not settled.
	result := c.normalizeResult(env, transactionID, domain.TransactionPending)
	return &result, nil
}

// GetTransactionHistory pages through past bill transactions, newest first as
// the upstream returns them.
func (c *Client) GetTransactionHistory(ctx context.Context, limit, offset int) ([]domain.TransactionRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		return nil, domain.NewValidationError("Offset must not be negative")
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	env, err := c.call(ctx, http.MethodGet, "/bills/transactions", query, nil)
	if err != nil {
		return nil, err
	}
	items, err := env.dataList("transactions", "items")
	if err != nil {
		return nil, domain.NewMalformedResponseError(err)
	}
	records := make([]domain.TransactionRecord, 0, len(items))
	for _, item := range items {
		records = append(records, normalizeRecord(item))
	}
	return records, nil
}
