// Package gateway is the single point of contact with the upstream billing API.
//
// It validates inputs before any network call, sends JSON requests with the
// configured bearer credential, normalizes the upstream's inconsistent
// response shapes into domain types, and translates every failure into a
// *domain.GatewayError of kind ValidationError, NetworkError, ServerError or
// MalformedResponseError.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sony/gobreaker"

	"billpay/internal/domain"
)

// Environment selects the upstream deployment.
type Environment string

const (
	EnvSandbox    Environment = "sandbox"
	EnvProduction Environment = "production"
)

const (
	SandboxBaseURL    = "https://sandboxapi.bitnob.co/api/v1"
	ProductionBaseURL = "https://api.bitnob.com/api/v1"

	// DefaultTimeout bounds every upstream request.
	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 1 << 20
)

// errUpstreamUnavailable marks 5xx responses so the breaker can count them.
var errUpstreamUnavailable = errors.New("upstream unavailable")

// Config is the adapter configuration.
type Config struct {
	BaseURL     string
	AuthToken   string
	Timeout     time.Duration
	Environment Environment
}

// Doer sends an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option customizes a Client.
type Option func(*Client)

// WithDoer replaces the HTTP transport.
func WithDoer(d Doer) Option {
	return func(c *Client) { c.doer = d }
}

// WithClock replaces the clock used for fallbacks and synthesized ids.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
		c.ids.now = now
	}
}

// WithBreakerSettings replaces the circuit breaker settings.
func WithBreakerSettings(st gobreaker.Settings) Option {
	return func(c *Client) { c.breakerSettings = st }
}

// Client talks to the billing API.
type Client struct {
	baseURL   string
	authToken string
	env       Environment
	doer      Doer
	now       func() time.Time
	ids       *idGenerator

	breakerSettings gobreaker.Settings
	breaker         *gobreaker.CircuitBreaker
}

// New creates a Client. An empty BaseURL is derived from the environment.
func New(cfg Config, opts ...Option) *Client {
	if cfg.Environment != EnvProduction {
		cfg.Environment = EnvSandbox
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = SandboxBaseURL
		if cfg.Environment == EnvProduction {
			baseURL = ProductionBaseURL
		}
	}
	if cfg.AuthToken == "" {
		log.Printf("[GATEWAY] billing API key is not configured - upstream calls will be rejected")
	}

	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		authToken: cfg.AuthToken,
		env:       cfg.Environment,
		doer:      &http.Client{Timeout: cfg.Timeout},
		now:       time.Now,
		ids:       &idGenerator{now: time.Now},
		breakerSettings: gobreaker.Settings{
			Name:        "billing-api",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	st := c.breakerSettings
	st.IsSuccessful = countsAsSuccess
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Printf("[GATEWAY] circuit %s: %s -> %s", name, from, to)
	}
	c.breaker = gobreaker.NewCircuitBreaker(st)

	return c
}

// Environment returns the upstream environment in use.
func (c *Client) Environment() Environment {
	return c.env
}

// IsSandbox reports whether the client targets the sandbox.
func (c *Client) IsSandbox() bool {
	return c.env == EnvSandbox
}

// countsAsSuccess keeps business rejections from tripping the breaker.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, domain.ErrNetwork) || errors.Is(err, errUpstreamUnavailable) {
		return false
	}
	return true
}

// call sends one request and returns the parsed envelope of a successful response.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, payload any) (*envelope, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", path, err)
		}
		body = bytes.NewReader(b)
		if c.IsSandbox() {
			log.Printf("[GATEWAY] %s %s payload=%s", method, path, b)
		}
	} else if c.IsSandbox() {
		log.Printf("[GATEWAY] %s %s", method, path)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	if c.IsSandbox() {
		req.Header.Set("X-Test-Mode", "realistic")
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.roundTrip(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, domain.NewNetworkError(err)
		}
		return nil, err
	}
	return result.(*envelope), nil
}

func (c *Client) roundTrip(ctx context.Context, req *http.Request) (*envelope, error) {
	var seg *newrelic.ExternalSegment
	if txn := newrelic.FromContext(ctx); txn != nil {
		seg = newrelic.StartExternalSegment(txn, req)
	}

	resp, err := c.doer.Do(req)
	if seg != nil {
		seg.Response = resp
		seg.End()
	}
	if err != nil {
		log.Printf("[GATEWAY] %s %s transport error: %v", req.Method, req.URL.Path, err)
		return nil, domain.NewNetworkError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		log.Printf("[GATEWAY] %s %s read error: %v", req.Method, req.URL.Path, err)
		return nil, domain.NewNetworkError(err)
	}
	if c.IsSandbox() {
		log.Printf("[GATEWAY] %s %s -> %d %s", req.Method, req.URL.Path, resp.StatusCode, raw)
	}

	env, parseErr := parseEnvelope(raw)

	if resp.StatusCode >= http.StatusBadRequest {
		gwErr := domain.NewServerError(env.errorMessage())
		if resp.StatusCode >= http.StatusInternalServerError {
			gwErr.Cause = fmt.Errorf("%w: status %d", errUpstreamUnavailable, resp.StatusCode)
		}
		log.Printf("[GATEWAY] %s %s rejected: status=%d message=%q", req.Method, req.URL.Path, resp.StatusCode, gwErr.Message)
		return nil, gwErr
	}

	if parseErr != nil {
		log.Printf("[GATEWAY] %s %s malformed response: %v", req.Method, req.URL.Path, parseErr)
		return nil, domain.NewMalformedResponseError(parseErr)
	}

	if !env.ok() {
		log.Printf("[GATEWAY] %s %s failed: message=%q", req.Method, req.URL.Path, env.errorMessage())
		return nil, domain.NewServerError(env.errorMessage())
	}

	return env, nil
}

// idGenerator synthesizes identifiers that are unique within the process.
type idGenerator struct {
	now func() time.Time
	seq atomic.Uint64
}

func (g *idGenerator) next(prefix string) string {
	return fmt.Sprintf("%s_%d_%d", prefix, g.now().UnixMilli(), g.seq.Add(1))
}
