package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// NewRelicAttributes tags the request's New Relic transaction with the flow,
// device and request ids and reports handler errors. It must run after
// nrgin.Middleware; without a transaction it does nothing.
func NewRelicAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		txn := nrgin.Transaction(c)
		if txn == nil {
			return
		}

		if id := GetRequestID(c); id != "" {
			txn.AddAttribute("requestId", id)
		}
		if id := GetDeviceID(c); id != "" {
			txn.AddAttribute("deviceId", id)
		}
		if id := c.Param("id"); id != "" {
			txn.AddAttribute("resourceId", id)
		}

		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}
