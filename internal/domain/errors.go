package domain

import "errors"

// ErrorKind classifies a gateway failure.
type ErrorKind string

const (
	KindValidation        ErrorKind = "ValidationError"
	KindNetwork           ErrorKind = "NetworkError"
	KindServer            ErrorKind = "ServerError"
	KindMalformedResponse ErrorKind = "MalformedResponseError"
)

var (
	// ErrValidation matches locally detected bad input. It never reaches the network.
	ErrValidation = errors.New("validation error")

	// ErrNetwork matches transport failures where no response was received.
	ErrNetwork = errors.New("network error")

	// ErrServer matches responses that signal failure.
	ErrServer = errors.New("server error")

	// ErrMalformedResponse matches responses that fail structural expectations.
	ErrMalformedResponse = errors.New("malformed response")
)

// GatewayError is the single error type surfaced by the billing gateway.
// Message is always safe to show to the user; Cause is kept for logs only.
type GatewayError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *GatewayError) Error() string {
	return e.Message
}

// Unwrap exposes the kind sentinel and the underlying cause to errors.Is/As.
func (e *GatewayError) Unwrap() []error {
	errs := []error{e.Kind.sentinel()}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindNetwork:
		return ErrNetwork
	case KindServer:
		return ErrServer
	default:
		return ErrMalformedResponse
	}
}

// NewValidationError returns a ValidationError carrying msg.
func NewValidationError(msg string) *GatewayError {
	return &GatewayError{Kind: KindValidation, Message: msg}
}

// NewNetworkError returns a NetworkError with a generic user message.
func NewNetworkError(cause error) *GatewayError {
	return &GatewayError{
		Kind:    KindNetwork,
		Message: "Network error. Please check your connection and try again.",
		Cause:   cause,
	}
}

// NewServerError returns a ServerError carrying the upstream message, or a generic one.
func NewServerError(msg string) *GatewayError {
	if msg == "" {
		msg = "Transaction failed"
	}
	return &GatewayError{Kind: KindServer, Message: msg}
}

// NewMalformedResponseError returns a MalformedResponseError.
func NewMalformedResponseError(cause error) *GatewayError {
	return &GatewayError{
		Kind:    KindMalformedResponse,
		Message: "Invalid response format from billing provider",
		Cause:   cause,
	}
}

// AsGatewayError extracts a *GatewayError from err, if any.
func AsGatewayError(err error) (*GatewayError, bool) {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr, true
	}
	return nil, false
}
