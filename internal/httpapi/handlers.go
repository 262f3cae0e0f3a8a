package httpapi

import (
	"errors"
	"net/http"
	"time"

	"callbridge/internal/apperr"
	"callbridge/internal/auth"
	"callbridge/internal/calls"
	"callbridge/internal/metrics"
	"callbridge/internal/phone"
	"callbridge/internal/reporting"
	"callbridge/internal/signaling"

	"github.com/gin-gonic/gin"
)

// Handlers groups principal-facing HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth    *auth.Manager
	Phones  *phone.Service
	Calls   *calls.Service
	Tokens  *signaling.Issuer
	Reports *reporting.Service
	Metrics *metrics.Metrics
}

func principal(c *gin.Context) (string, bool) {
	id, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return "", false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, apperr.Validation("invalid request body"))
		return false
	}
	return true
}

// --- Auth ---

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h Handlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}
	pair, err := h.Auth.Refresh(req.RefreshToken, time.Now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	c.JSON(http.StatusOK, pair)
}

// --- Phone number ---

type verificationRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
}

func (h Handlers) RequestVerification(c *gin.Context) {
	userID, ok := principal(c)
	if !ok {
		return
	}
	var req verificationRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.Phones.RequestVerification(c.Request.Context(), userID, req.PhoneNumber)
	h.Metrics.Verification("send", err)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":          "Verification code sent successfully.",
		"verification_sid": out.VerificationSid,
		"phone_number":     out.PhoneNumber,
	})
}

type confirmRequest struct {
	Code string `json:"code"`
}

func (h Handlers) ConfirmVerification(c *gin.Context) {
	userID, ok := principal(c)
	if !ok {
		return
	}
	var req confirmRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.Phones.ConfirmVerification(c.Request.Context(), userID, req.Code)
	h.Metrics.Verification("confirm", err)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Phone number verified successfully.", "verified": out.Verified})
}

func (h Handlers) GetPhone(c *gin.Context) {
	userID, ok := principal(c)
	if !ok {
		return
	}
	st, err := h.Phones.Status(c.Request.Context(), userID)
	if errors.Is(err, apperr.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"phone_number": nil, "is_verified": false})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h Handlers) DeletePhone(c *gin.Context) {
	userID, ok := principal(c)
	if !ok {
		return
	}
	err := h.Phones.Remove(c.Request.Context(), userID)
	if errors.Is(err, apperr.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"message": "No phone number to delete."})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Phone number deleted."})
}

// --- Calls ---

type placeCallRequest struct {
	DestinationNumber string `json:"destination_number" binding:"required"`
}

func (h Handlers) PlaceCall(c *gin.Context) {
	userID, ok := principal(c)
	if !ok {
		return
	}
	var req placeCallRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.Calls.PlaceCall(c.Request.Context(), userID, req.DestinationNumber)
	h.Metrics.CallPlaced(err)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "Call initiated.",
		"call_sid":    out.CallSid,
		"call_log_id": out.RecordID,
		"status":      out.Status,
	})
}

func (h Handlers) EndCall(c *gin.Context) {
	userID, ok := principal(c)
	if !ok {
		return
	}
	if err := h.Calls.CancelOwnedCall(c.Request.Context(), userID, c.Param("call_sid")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Call ended."})
}

func (h Handlers) ListCalls(c *gin.Context) {
	userID, ok := principal(c)
	if !ok {
		return
	}
	logs, err := h.Calls.History(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

type summaryQuery struct {
	From time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To   time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

func (h Handlers) CallsSummary(c *gin.Context) {
	userID, ok := principal(c)
	if !ok {
		return
	}
	var q summaryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, apperr.Validation("from/to must be RFC 3339 timestamps"))
		return
	}
	out, err := h.Reports.CallsSummary(c.Request.Context(), reporting.CallsSummaryRequest{
		UserID: userID,
		Range:  reporting.TimeRange{From: q.From, To: q.To},
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// --- Softphone ---

func (h Handlers) VoiceToken(c *gin.Context) {
	userID, ok := principal(c)
	if !ok {
		return
	}
	tok, err := h.Tokens.IssueToken(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tok)
}
