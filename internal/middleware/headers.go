package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// DeviceIDHeader identifies the client device owning flows and remembered inputs.
	DeviceIDHeader  = "X-Device-ID"
	RequestIDHeader = "X-Request-ID"

	requestIDKey = "request_id"
	deviceIDKey  = "device_id"
)

// CORSMiddleware allows browser front ends on any origin to call the API.
func CORSMiddleware() gin.HandlerFunc {
	allowHeaders := strings.Join([]string{
		"Content-Type", "Authorization", idempotencyHeader, DeviceIDHeader, RequestIDHeader,
	}, ", ")

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", allowHeaders)
		h.Set("Access-Control-Expose-Headers", RequestIDHeader+", Idempotent-Replayed")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestID propagates X-Request-ID, generating one when absent.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(requestIDKey, reqID)
		c.Header(RequestIDHeader, reqID)
		c.Next()
	}
}

// DeviceID stores the trimmed X-Device-ID header in the gin context.
func DeviceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := strings.TrimSpace(c.GetHeader(DeviceIDHeader)); id != "" {
			c.Set(deviceIDKey, id)
		}
		c.Next()
	}
}

// GetRequestID returns the request id set by RequestID.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// GetDeviceID returns the device id set by DeviceID.
func GetDeviceID(c *gin.Context) string {
	return c.GetString(deviceIDKey)
}
