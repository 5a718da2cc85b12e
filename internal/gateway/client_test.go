package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billpay/internal/domain"
)

var fixedNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

// fakeDoer answers every request with a canned status/body, or fails with err.
type fakeDoer struct {
	status int
	body   string
	err    error

	calls    atomic.Int32
	lastReq  *http.Request
	lastBody string
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	f.calls.Add(1)
	f.lastReq = req
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		f.lastBody = string(b)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &http.Response{
		StatusCode: f.status,
		Body:       io.NopCloser(strings.NewReader(f.body)),
		Header:     make(http.Header),
	}, nil
}

func newTestClient(d Doer, opts ...Option) *Client {
	opts = append([]Option{WithDoer(d), WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(Config{AuthToken: "sk_test", Environment: EnvProduction, BaseURL: "http://billing.test/api/v1"}, opts...)
}

func TestNew_ResolvesBaseURLFromEnvironment(t *testing.T) {
	sandbox := New(Config{})
	assert.Equal(t, SandboxBaseURL, sandbox.baseURL)
	assert.True(t, sandbox.IsSandbox())

	prod := New(Config{Environment: EnvProduction})
	assert.Equal(t, ProductionBaseURL, prod.baseURL)
	assert.Equal(t, EnvProduction, prod.Environment())
}

func TestCall_SendsAuthAndJSONHeaders(t *testing.T) {
	doer := &fakeDoer{status: http.StatusOK, body: `{"status":true,"data":{"reference":"R1"}}`}
	c := newTestClient(doer)

	_, err := c.PurchaseAirtime(context.Background(), AirtimeRequest{Phone: "08100000001", Amount: 500, Provider: "MTN"})
	require.NoError(t, err)

	require.NotNil(t, doer.lastReq)
	assert.Equal(t, "Bearer sk_test", doer.lastReq.Header.Get("Authorization"))
	assert.Equal(t, "application/json", doer.lastReq.Header.Get("Content-Type"))
	assert.Empty(t, doer.lastReq.Header.Get("X-Test-Mode"))
	assert.Equal(t, "/api/v1/bills/airtime", doer.lastReq.URL.Path)
}

func TestCall_SandboxAddsTestModeHeader(t *testing.T) {
	doer := &fakeDoer{status: http.StatusOK, body: `{"status":true,"data":{}}`}
	c := New(Config{AuthToken: "sk_test"}, WithDoer(doer))

	_, err := c.GetWalletBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "realistic", doer.lastReq.Header.Get("X-Test-Mode"))
}

// ──────────────────────────────────────────────
// Error translation
// ──────────────────────────────────────────────

func TestCall_TransportFailureIsNetworkError(t *testing.T) {
	doer := &fakeDoer{err: context.DeadlineExceeded}
	c := newTestClient(doer)

	_, err := c.GetWalletBalance(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNetwork))

	gwErr, ok := domain.AsGatewayError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindNetwork, gwErr.Kind)
	assert.Equal(t, "Network error. Please check your connection and try again.", gwErr.Message)
	assert.NotContains(t, gwErr.Message, "deadline")
}

func TestCall_ServerTimeoutIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"status":true}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, AuthToken: "sk", Environment: EnvProduction, Timeout: 20 * time.Millisecond})
	_, err := c.GetWalletBalance(context.Background())
	assert.True(t, errors.Is(err, domain.ErrNetwork))
}

func TestCall_StatusErrorCarriesUpstreamMessage(t *testing.T) {
	doer := &fakeDoer{status: http.StatusOK, body: `{"status":"error","message":"insufficient funds"}`}
	c := newTestClient(doer)

	_, err := c.PurchaseAirtime(context.Background(), AirtimeRequest{Phone: "8100000001", Amount: 500, Provider: "mtn"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrServer))
	assert.Equal(t, "insufficient funds", err.Error())
}

func TestCall_HTTPErrorMessages(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"string message", 400, `{"status":false,"message":"Invalid phone number"}`, "Invalid phone number"},
		{"list message", 422, `{"message":["amount too low","provider unknown"]}`, "amount too low, provider unknown"},
		{"error field", 401, `{"error":"unauthorized"}`, "unauthorized"},
		{"no body", 500, ``, "Transaction failed"},
		{"non-json body", 502, `<html>bad gateway</html>`, "Transaction failed"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(&fakeDoer{status: tc.status, body: tc.body})
			_, err := c.GetWalletBalance(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrServer))
			assert.Equal(t, tc.want, err.Error())
		})
	}
}

func TestCall_MalformedEnvelope(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"not json", `not json`},
		{"array", `[1,2,3]`},
		{"missing status", `{"data":{}}`},
		{"numeric status", `{"status":1,"data":{}}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(&fakeDoer{status: http.StatusOK, body: tc.body})
			_, err := c.GetWalletBalance(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrMalformedResponse))
			assert.Equal(t, "Invalid response format from billing provider", err.Error())
		})
	}
}

func TestCircuitBreaker_OpensAfterConsecutiveNetworkFailures(t *testing.T) {
	doer := &fakeDoer{err: errors.New("connection refused")}
	c := newTestClient(doer, WithBreakerSettings(gobreaker.Settings{
		Name:    "test",
		Timeout: time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 2
		},
	}))

	for i := 0; i < 2; i++ {
		_, err := c.GetWalletBalance(context.Background())
		assert.True(t, errors.Is(err, domain.ErrNetwork))
	}
	require.EqualValues(t, 2, doer.calls.Load())

	_, err := c.GetWalletBalance(context.Background())
	assert.True(t, errors.Is(err, domain.ErrNetwork))
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.EqualValues(t, 2, doer.calls.Load(), "open breaker must not reach the transport")
}

func TestCircuitBreaker_IgnoresBusinessRejections(t *testing.T) {
	doer := &fakeDoer{status: http.StatusBadRequest, body: `{"status":false,"message":"bad meter"}`}
	c := newTestClient(doer, WithBreakerSettings(gobreaker.Settings{
		ReadyToTrip: func(counts gobreaker.Counts) bool { return counts.ConsecutiveFailures >= 1 },
	}))

	for i := 0; i < 3; i++ {
		_, err := c.GetWalletBalance(context.Background())
		assert.True(t, errors.Is(err, domain.ErrServer))
	}
	assert.EqualValues(t, 3, doer.calls.Load())
}

func TestIDGenerator_Unique(t *testing.T) {
	g := &idGenerator{now: func() time.Time { return fixedNow }}
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := g.next("txn")
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
