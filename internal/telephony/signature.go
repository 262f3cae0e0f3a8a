package telephony

import (
	"net/http"

	"callbridge/pkg/logger"

	"github.com/gin-gonic/gin"
	twilioclient "github.com/twilio/twilio-go/client"
)

const headerTwilioSignature = "X-Twilio-Signature"

// RequireTwilioSignature rejects webhook requests whose X-Twilio-Signature does
// not match the auth token. baseURL must be the public origin the carrier
// calls (the signature covers the full URL).
//
// This is the only rejection a webhook may produce; everything past it is
// absorbed by the handlers.
func RequireTwilioSignature(authToken, baseURL string) gin.HandlerFunc {
	validator := twilioclient.NewRequestValidator(authToken)
	return func(c *gin.Context) {
		if err := c.Request.ParseForm(); err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
		params := make(map[string]string, len(c.Request.PostForm))
		for k := range c.Request.PostForm {
			params[k] = c.Request.PostForm.Get(k)
		}
		url := baseURL + c.Request.URL.RequestURI()
		if !validator.Validate(url, params, c.GetHeader(headerTwilioSignature)) {
			logger.FromGin(c).Warn("twilio signature rejected", "path", c.Request.URL.Path)
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}
