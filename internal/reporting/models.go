package reporting

import (
	"time"

	"github.com/shopspring/decimal"
)

// Common filtering inputs.

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CallsSummaryRequest requests aggregated call metrics for one principal.
type CallsSummaryRequest struct {
	UserID string    `json:"user_id"`
	Range  TimeRange `json:"range"`
}

type CallsSummary struct {
	UserID string    `json:"user_id"`
	Range  TimeRange `json:"range"`

	TotalCalls      int `json:"total_calls"`
	OutboundCalls   int `json:"outbound_calls"`
	InboundCalls    int `json:"inbound_calls"`
	CompletedCalls  int `json:"completed_calls"`
	FailedCalls     int `json:"failed_calls"`
	NoAnswerCalls   int `json:"no_answer_calls"`
	BusyCalls       int `json:"busy_calls"`
	CanceledCalls   int `json:"canceled_calls"`
	InProgressCalls int `json:"in_progress_calls"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	// TotalPrice sums carrier reported prices; calls without a price are skipped.
	TotalPrice decimal.Decimal `json:"total_price"`

	// ConnectionRate is completed calls with talk time over all calls.
	ConnectionRate float64 `json:"connection_rate"`
}
