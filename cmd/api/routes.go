package main

import (
	"context"
	"net/http"
	"time"

	"callbridge/internal/calls"
	"callbridge/internal/config"
	"callbridge/internal/httpapi"
	"callbridge/internal/metrics"
	"callbridge/internal/telephony"
	"callbridge/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// deps carries everything the route groups need. Built once in main.
type deps struct {
	cfg      config.Config
	db       utils.Pinger
	rdb      *redis.Client
	api      httpapi.Handlers
	webhooks httpapi.Webhooks
	metrics  *metrics.Metrics
}

// registerPublicRoutes wires health, metrics and carrier webhooks.
// Keep this file free of business logic. Handlers delegate to internal modules.
func registerPublicRoutes(r *gin.Engine, d deps) {
	r.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		checks := gin.H{"postgres": "ok", "redis": "ok"}
		status := http.StatusOK
		if err := utils.HealthCheck(ctx, d.db, time.Second); err != nil {
			checks["postgres"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if err := d.rdb.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "checks": checks})
	})
	r.GET("/metrics", gin.WrapH(d.metrics.Handler()))

	// Carrier webhooks (public, signed by the carrier).
	wh := r.Group("/")
	if d.cfg.Twilio.ValidateWebhooks {
		wh.Use(telephony.RequireTwilioSignature(d.cfg.Twilio.AuthToken, d.cfg.App.PublicBaseURL))
	}
	{
		wh.POST(calls.PathStatusCallback, d.webhooks.StatusCallback)
		wh.Any(calls.PathTwiML, d.webhooks.TwiML)
		wh.Any(calls.PathOutgoing, d.webhooks.Outgoing)
		wh.Any(calls.PathIncoming, d.webhooks.Incoming)
	}
}

// registerAuthRoutes wires token refresh. Token issuance itself belongs to
// the identity provider in front of this service.
func registerAuthRoutes(r *gin.Engine, d deps) {
	r.POST("/v1/auth/refresh", d.api.Refresh)
}

func registerProtectedRoutes(r *gin.Engine, d deps, authMW gin.HandlerFunc) {
	v1 := r.Group("/v1")
	v1.Use(authMW)

	h := d.api

	// PHONE routes
	ph := v1.Group("/phone")
	{
		ph.GET("", h.GetPhone)
		ph.DELETE("", h.DeletePhone)
		ph.POST("/verification", h.RequestVerification)
		ph.POST("/verification/confirm", h.ConfirmVerification)
	}

	// CALLS routes
	cl := v1.Group("/calls")
	{
		cl.POST("", h.PlaceCall)
		cl.GET("", h.ListCalls)
		cl.GET("/summary", h.CallsSummary)
		cl.POST("/:call_sid/end", h.EndCall)
	}

	// SOFTPHONE routes
	v1.GET("/voice/token", h.VoiceToken)
}
