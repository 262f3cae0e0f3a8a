package reporting

import (
	"context"
	"errors"
	"time"

	"callbridge/internal/apperr"
	"callbridge/internal/calls"

	"github.com/shopspring/decimal"
)

// Repository abstracts data access for reporting.
//
// Implementations must only return the principal's own records.
type Repository interface {
	ListCalls(ctx context.Context, userID string, from, to time.Time) ([]calls.CallRecord, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (CallsSummary, error) {
	if req.UserID == "" {
		return CallsSummary{}, apperr.Validation("user_id required")
	}
	if !req.Range.From.IsZero() && !req.Range.To.IsZero() && !req.Range.To.After(req.Range.From) {
		return CallsSummary{}, apperr.Validation("to must be after from")
	}
	if s.repo == nil {
		return CallsSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListCalls(ctx, req.UserID, req.Range.From, req.Range.To)
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{UserID: req.UserID, Range: req.Range, TotalPrice: decimal.Zero}
	connected := 0
	for _, c := range rows {
		out.TotalCalls++
		out.TotalDurationSeconds += c.Duration
		if c.Price.Valid {
			out.TotalPrice = out.TotalPrice.Add(c.Price.Decimal)
		}
		switch c.Direction {
		case calls.DirectionInbound:
			out.InboundCalls++
		default:
			out.OutboundCalls++
		}
		switch c.Status {
		case calls.StatusCompleted:
			out.CompletedCalls++
			if c.Duration > 0 {
				connected++
			}
		case calls.StatusFailed:
			out.FailedCalls++
		case calls.StatusNoAnswer:
			out.NoAnswerCalls++
		case calls.StatusBusy:
			out.BusyCalls++
		case calls.StatusCanceled:
			out.CanceledCalls++
		case calls.StatusInProgress:
			out.InProgressCalls++
		}
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
		out.ConnectionRate = float64(connected) / float64(out.TotalCalls)
	}
	return out, nil
}
