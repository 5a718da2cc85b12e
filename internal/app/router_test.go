package app

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billpay/internal/currency"
	"billpay/internal/gateway"
	"billpay/internal/handler"
	"billpay/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeBilling is an in-process stand-in for the upstream billing API.
type fakeBilling struct {
	mu            sync.Mutex
	hits          map[string]int
	lastBody      map[string]any
	airtimeStatus int
	airtimeBody   string
}

func (f *fakeBilling) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits[r.URL.Path]++
	if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
		f.lastBody = nil
		_ = json.Unmarshal(raw, &f.lastBody)
	}

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/api/v1/bills/airtime":
		w.WriteHeader(f.airtimeStatus)
		_, _ = io.WriteString(w, f.airtimeBody)
	case "/api/v1/bills/data/plans":
		_, _ = io.WriteString(w, `{"status":true,"data":{"plans":[{"id":"mtn-1gb","name":"1GB","price":"500"}]}}`)
	case "/api/v1/wallets/balance":
		_, _ = io.WriteString(w, `{"status":true,"data":{"btc":"0.0012","usd":"85.10","ngn":"138713"}}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"not found"}`)
	}
}

func (f *fakeBilling) hitCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func newTestRouter(t *testing.T) (*gin.Engine, *fakeBilling) {
	t.Helper()
	upstream := &fakeBilling{
		hits:          make(map[string]int),
		airtimeStatus: http.StatusOK,
		airtimeBody:   `{"status":"success","data":{"reference":"R1"}}`,
	}
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	billing := gateway.New(gateway.Config{
		BaseURL:     srv.URL + "/api/v1",
		AuthToken:   "test-token",
		Timeout:     2 * time.Second,
		Environment: gateway.EnvProduction,
	})
	converter, err := currency.NewConverter(currency.Rates{SatsPerLocal: 0.5677, LocalPerUSD: 1630, SatsPerUSD: 1500, NetworkFeeSats: 4})
	require.NoError(t, err)

	notifications := service.NewNotificationService()
	receipts := service.NewReceiptService(converter, notifications)
	registry := service.NewSessionRegistry(service.FlowDeps{
		Gateway:       billing,
		Converter:     converter,
		Preferences:   service.NewMemoryPreferenceStore(),
		Notifications: notifications,
		Receipts:      receipts,
	}, time.Hour)

	router := NewRouter(RouterDeps{
		FlowHandler:    handler.NewFlowHandler(registry, receipts),
		CatalogHandler: handler.NewCatalogHandler(service.NewCatalogService(billing, nil, converter)),
	})
	return router, upstream
}

func doJSON(router http.Handler, method, path, device string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if device != "" {
		req.Header.Set("X-Device-ID", device)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func startFlow(t *testing.T, router http.Handler, device string) string {
	t.Helper()
	w := doJSON(router, http.MethodPost, "/v1/flows", device, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["flow_id"].(string)
}

var airtimeBody = map[string]any{
	"service_type": "airtime",
	"recipient":    "08100000001",
	"amount":       500,
	"provider":     "MTN",
}

func TestRouter_Health(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_AirtimePurchaseToReceipt(t *testing.T) {
	router, upstream := newTestRouter(t)
	id := startFlow(t, router, "device-1")

	w := doJSON(router, http.MethodPost, "/v1/flows/"+id+"/submit", "device-1", airtimeBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view := decode(t, w)
	assert.Equal(t, "awaiting_confirmation", view["state"])
	assert.Equal(t, "R1", view["result"].(map[string]any)["external_id"])

	upstream.mu.Lock()
	assert.Equal(t, "8100000001", upstream.lastBody["phoneNumber"])
	assert.Equal(t, "mtn", upstream.lastBody["provider"])
	upstream.mu.Unlock()

	w = doJSON(router, http.MethodPost, "/v1/flows/"+id+"/confirm", "device-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "settled", decode(t, w)["state"])

	w = doJSON(router, http.MethodGet, "/v1/flows/"+id+"/receipt", "device-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	receipt := decode(t, w)
	assert.Contains(t, receipt["text"], "Reference: R1")

	w = doJSON(router, http.MethodGet, "/v1/flows/"+id+"/receipt?format=text", "device-1", nil)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
}

func TestRouter_ValidationStaysLocal(t *testing.T) {
	router, upstream := newTestRouter(t)
	id := startFlow(t, router, "device-1")

	body := map[string]any{"service_type": "airtime", "recipient": "8100000001", "amount": 0, "provider": "mtn"}
	w := doJSON(router, http.MethodPost, "/v1/flows/"+id+"/submit", "device-1", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	out := decode(t, w)
	assert.Equal(t, "ValidationError", out["kind"])
	assert.Equal(t, "collecting_input", out["flow"].(map[string]any)["state"])
	assert.Equal(t, 0, upstream.hitCount("/api/v1/bills/airtime"))
}

func TestRouter_UpstreamFailureThenRetry(t *testing.T) {
	router, upstream := newTestRouter(t)
	upstream.airtimeStatus = http.StatusBadGateway
	upstream.airtimeBody = `{"message":"biller unavailable"}`
	id := startFlow(t, router, "device-1")

	w := doJSON(router, http.MethodPost, "/v1/flows/"+id+"/submit", "device-1", airtimeBody)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	out := decode(t, w)
	assert.Equal(t, "biller unavailable", out["error"])
	flow := out["flow"].(map[string]any)
	assert.Equal(t, "failed", flow["state"])
	assert.Equal(t, true, flow["can_retry"])

	upstream.mu.Lock()
	upstream.airtimeStatus = http.StatusOK
	upstream.airtimeBody = `{"status":"success","data":{"reference":"R2"}}`
	upstream.mu.Unlock()

	w = doJSON(router, http.MethodPost, "/v1/flows/"+id+"/retry", "device-1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "awaiting_confirmation", decode(t, w)["state"])
	assert.Equal(t, 2, upstream.hitCount("/api/v1/bills/airtime"))
}

func TestRouter_FlowOwnership(t *testing.T) {
	router, upstream := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/v1/flows", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	id := startFlow(t, router, "device-1")
	w = doJSON(router, http.MethodGet, "/v1/flows/"+id, "device-2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodGet, "/v1/flows/unknown", "device-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Without a device id no flow is reachable.
	w = doJSON(router, http.MethodGet, "/v1/flows/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	for _, action := range []string{"submit", "retry", "confirm", "back", "poll"} {
		w = doJSON(router, http.MethodPost, "/v1/flows/"+id+"/"+action, "", airtimeBody)
		assert.Equal(t, http.StatusNotFound, w.Code, action)
	}
	w = doJSON(router, http.MethodGet, "/v1/flows/"+id+"/receipt", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 0, upstream.hitCount("/api/v1/bills/airtime"))

	w = doJSON(router, http.MethodGet, "/v1/flows/"+id, "device-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "collecting_input", decode(t, w)["state"])
}

func TestRouter_InvalidTransitions(t *testing.T) {
	router, _ := newTestRouter(t)
	id := startFlow(t, router, "device-1")

	w := doJSON(router, http.MethodPost, "/v1/flows/"+id+"/confirm", "device-1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(router, http.MethodGet, "/v1/flows/"+id+"/receipt", "device-1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(router, http.MethodPost, "/v1/flows/"+id+"/poll", "device-1", nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	w = doJSON(router, http.MethodPost, "/v1/flows/"+id+"/back", "device-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_RememberedFields(t *testing.T) {
	router, _ := newTestRouter(t)
	id := startFlow(t, router, "device-1")

	body := map[string]any{}
	for k, v := range airtimeBody {
		body[k] = v
	}
	body["remember"] = true
	w := doJSON(router, http.MethodPost, "/v1/flows/"+id+"/submit", "device-1", body)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodPost, "/v1/flows", "device-1", nil)
	remembered := decode(t, w)["remembered"].(map[string]any)
	assert.Equal(t, "8100000001", remembered["phone"])
	assert.Equal(t, "mtn", remembered["provider"])

	w = doJSON(router, http.MethodDelete, "/v1/remembered", "device-1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(router, http.MethodPost, "/v1/flows", "device-1", nil)
	assert.Empty(t, decode(t, w)["remembered"])
}

func TestRouter_CatalogAndQuote(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/v1/catalog/data-plans", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodGet, "/v1/catalog/data-plans?provider=mtn", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	plans := decode(t, w)["plans"].([]any)
	require.Len(t, plans, 1)
	assert.Equal(t, "mtn-1gb", plans[0].(map[string]any)["id"])

	w = doJSON(router, http.MethodGet, "/v1/quote?amount=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodGet, "/v1/quote?amount=500", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(283), decode(t, w)["satoshis"])

	w = doJSON(router, http.MethodGet, "/v1/services", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["services"], 4)

	w = doJSON(router, http.MethodGet, "/v1/wallet/balance", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "85.1", decode(t, w)["usd"])
}
