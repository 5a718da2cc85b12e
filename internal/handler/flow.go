package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"billpay/internal/domain"
	"billpay/internal/middleware"
	"billpay/internal/service"
)

// FlowHandler exposes purchase flows over HTTP.
type FlowHandler struct {
	registry *service.SessionRegistry
	receipts *service.ReceiptService
}

// NewFlowHandler creates a new FlowHandler.
func NewFlowHandler(registry *service.SessionRegistry, receipts *service.ReceiptService) *FlowHandler {
	return &FlowHandler{registry: registry, receipts: receipts}
}

// CreateFlowResponse is the HTTP response for starting a flow.
type CreateFlowResponse struct {
	FlowID     string                  `json:"flow_id"`
	Remembered domain.RememberedFields `json:"remembered"`
	Flow       service.View            `json:"flow"`
}

// SubmitRequest is the HTTP request body for submitting a purchase.
type SubmitRequest struct {
	ServiceType   domain.ServiceType `json:"service_type"`
	Recipient     string             `json:"recipient"`
	Amount        int64              `json:"amount"`
	PlanID        string             `json:"plan_id"`
	BouquetCode   string             `json:"bouquet_code"`
	Provider      string             `json:"provider"`
	CountryCode   string             `json:"country_code"`
	MeterType     domain.MeterType   `json:"meter_type"`
	CustomerEmail string             `json:"customer_email"`
	Remember      bool               `json:"remember"`
}

func (r SubmitRequest) toPurchase() domain.PurchaseRequest {
	return domain.PurchaseRequest{
		ServiceType:   r.ServiceType,
		Recipient:     r.Recipient,
		Amount:        r.Amount,
		PlanID:        r.PlanID,
		BouquetCode:   r.BouquetCode,
		ProviderCode:  r.Provider,
		CountryCode:   r.CountryCode,
		MeterType:     r.MeterType,
		CustomerEmail: r.CustomerEmail,
		Remember:      r.Remember,
	}
}

// ReceiptResponse is the HTTP response for a receipt.
type ReceiptResponse struct {
	Receipt *domain.Receipt `json:"receipt"`
	Text    string          `json:"text"`
}

// CreateFlow handles POST /v1/flows
func (h *FlowHandler) CreateFlow(c *gin.Context) {
	flow, remembered, err := h.registry.Create(c.Request.Context(), middleware.GetDeviceID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, CreateFlowResponse{
		FlowID:     flow.ID(),
		Remembered: remembered,
		Flow:       flow.Snapshot(),
	})
}

// GetFlow handles GET /v1/flows/:id
func (h *FlowHandler) GetFlow(c *gin.Context) {
	flow, ok := h.flow(c)
	if !ok {
		return
	}
	respondJSON(c, http.StatusOK, flow.Snapshot())
}

// Submit handles POST /v1/flows/:id/submit
func (h *FlowHandler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Kind: domain.KindValidation})
		return
	}

	flow, ok := h.flow(c)
	if !ok {
		return
	}
	view, err := flow.Submit(c.Request.Context(), req.toPurchase())
	respondFlow(c, view, err)
}

// Retry handles POST /v1/flows/:id/retry
func (h *FlowHandler) Retry(c *gin.Context) {
	flow, ok := h.flow(c)
	if !ok {
		return
	}
	view, err := flow.Retry(c.Request.Context())
	respondFlow(c, view, err)
}

// ConfirmPayment handles POST /v1/flows/:id/confirm
func (h *FlowHandler) ConfirmPayment(c *gin.Context) {
	flow, ok := h.flow(c)
	if !ok {
		return
	}
	view, err := flow.ConfirmPayment(c.Request.Context())
	respondFlow(c, view, err)
}

// Back handles POST /v1/flows/:id/back
func (h *FlowHandler) Back(c *gin.Context) {
	flow, ok := h.flow(c)
	if !ok {
		return
	}
	respondFlow(c, flow.Back(), nil)
}

// PollSettlement handles POST /v1/flows/:id/poll
func (h *FlowHandler) PollSettlement(c *gin.Context) {
	flow, ok := h.flow(c)
	if !ok {
		return
	}
	view, err := flow.PollSettlement(c.Request.Context())
	respondFlow(c, view, err)
}

// GetReceipt handles GET /v1/flows/:id/receipt
func (h *FlowHandler) GetReceipt(c *gin.Context) {
	flow, ok := h.flow(c)
	if !ok {
		return
	}

	receipt, err := flow.Receipt(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	text := h.receipts.FormatReceipt(receipt)
	if c.Query("format") == "text" {
		c.String(http.StatusOK, text)
		return
	}
	respondJSON(c, http.StatusOK, ReceiptResponse{Receipt: receipt, Text: text})
}

// ForgetDevice handles DELETE /v1/remembered
func (h *FlowHandler) ForgetDevice(c *gin.Context) {
	if err := h.registry.ForgetDevice(c.Request.Context(), middleware.GetDeviceID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// flow resolves the :id flow. A flow is only visible to the device that
// started it; a request without a device id sees none.
func (h *FlowHandler) flow(c *gin.Context) (*service.Controller, bool) {
	flow, err := h.registry.Get(c.Param("id"))
	if err == nil && middleware.GetDeviceID(c) != flow.DeviceID() {
		err = service.ErrFlowNotFound
	}
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return flow, true
}
