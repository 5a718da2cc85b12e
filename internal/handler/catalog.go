package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"billpay/internal/domain"
	"billpay/internal/service"
)

// CatalogHandler handles the read-only lookups behind the purchase forms.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// VerifyMeterRequest is the HTTP request body for meter verification.
type VerifyMeterRequest struct {
	MeterNumber string           `json:"meter_number"`
	Provider    string           `json:"provider"`
	MeterType   domain.MeterType `json:"meter_type"`
}

// GetServices handles GET /v1/services
func (h *CatalogHandler) GetServices(c *gin.Context) {
	respondJSON(c, http.StatusOK, gin.H{"services": h.catalog.Services()})
}

// GetQuote handles GET /v1/quote?amount=
func (h *CatalogHandler) GetQuote(c *gin.Context) {
	amount, err := strconv.ParseInt(c.Query("amount"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "amount must be a whole number", Kind: domain.KindValidation})
		return
	}

	quote, err := h.catalog.Quote(amount)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, quote)
}

// GetDataPlans handles GET /v1/catalog/data-plans?provider=
func (h *CatalogHandler) GetDataPlans(c *gin.Context) {
	provider, ok := requireProvider(c)
	if !ok {
		return
	}

	plans, err := h.catalog.ListDataPlans(c.Request.Context(), provider)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"plans": plans})
}

// GetBouquets handles GET /v1/catalog/bouquets?provider=
func (h *CatalogHandler) GetBouquets(c *gin.Context) {
	provider, ok := requireProvider(c)
	if !ok {
		return
	}

	bouquets, err := h.catalog.ListCableBouquets(c.Request.Context(), provider)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"bouquets": bouquets})
}

// VerifyMeter handles POST /v1/meters/verify
func (h *CatalogHandler) VerifyMeter(c *gin.Context) {
	var req VerifyMeterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Kind: domain.KindValidation})
		return
	}

	info, err := h.catalog.VerifyMeter(c.Request.Context(), req.MeterNumber, req.Provider, req.MeterType)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, info)
}

// GetWalletBalance handles GET /v1/wallet/balance
func (h *CatalogHandler) GetWalletBalance(c *gin.Context) {
	balance, err := h.catalog.WalletBalance(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, balance)
}

// GetInvoice handles GET /v1/invoices/:id
func (h *CatalogHandler) GetInvoice(c *gin.Context) {
	invoice, err := h.catalog.InvoiceStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, invoice)
}

// GetTransactions handles GET /v1/wallet/transactions?limit=&offset=
func (h *CatalogHandler) GetTransactions(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		respondError(c, err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		respondError(c, err)
		return
	}

	records, err := h.catalog.TransactionHistory(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"transactions": records})
}

// GetDepositAddress handles GET /v1/wallet/address
func (h *CatalogHandler) GetDepositAddress(c *gin.Context) {
	address, err := h.catalog.DepositAddress(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, address)
}

// VerifyPayment handles GET /v1/payments/:hash
func (h *CatalogHandler) VerifyPayment(c *gin.Context) {
	invoice, err := h.catalog.VerifyPayment(c.Request.Context(), c.Param("hash"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, invoice)
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(name + " must be a whole number")
	}
	return n, nil
}

func requireProvider(c *gin.Context) (string, bool) {
	provider := strings.TrimSpace(c.Query("provider"))
	if provider == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "provider is required", Kind: domain.KindValidation})
		return "", false
	}
	return provider, true
}
