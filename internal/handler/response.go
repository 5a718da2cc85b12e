package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"billpay/internal/domain"
	"billpay/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string           `json:"error"`
	Kind  domain.ErrorKind `json:"kind,omitempty"`
}

// FlowErrorResponse carries the flow view alongside a failed action so the
// client can re-render without another round trip.
type FlowErrorResponse struct {
	ErrorResponse
	Flow service.View `json:"flow"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	_ = c.Error(err)
	c.JSON(code, errorBody(err))
}

// respondFlow sends the flow view, or the view with the error when the action failed.
func respondFlow(c *gin.Context, view service.View, err error) {
	if err == nil {
		respondJSON(c, http.StatusOK, view)
		return
	}
	_ = c.Error(err)
	c.JSON(mapErrorToHTTPStatus(err), FlowErrorResponse{ErrorResponse: errorBody(err), Flow: view})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

func errorBody(err error) ErrorResponse {
	if gwErr, ok := domain.AsGatewayError(err); ok {
		return ErrorResponse{Error: gwErr.Message, Kind: gwErr.Kind}
	}
	if mapErrorToHTTPStatus(err) == http.StatusInternalServerError {
		return ErrorResponse{Error: "internal error"}
	}
	return ErrorResponse{Error: err.Error()}
}

// mapErrorToHTTPStatus maps gateway/service errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, service.ErrFlowNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, service.ErrMissingDeviceID),
		errors.Is(err, service.ErrUnknownServiceType):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrSubmissionInFlight),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrStaleResponse),
		errors.Is(err, service.ErrPollInProgress),
		errors.Is(err, service.ErrNotSettled):
		return http.StatusConflict

	case errors.Is(err, service.ErrPollingDisabled):
		return http.StatusNotImplemented

	// Upstream failures
	case errors.Is(err, domain.ErrNetwork):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrServer),
		errors.Is(err, domain.ErrMalformedResponse):
		return http.StatusBadGateway

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
