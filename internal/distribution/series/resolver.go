// Package series resolves the master application-number series for a
// recipient, academic year and fee.
package series

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	apperrors "application-distribution/internal/common/errors"
	"application-distribution/internal/common/logger"
	"application-distribution/internal/distribution/models"
)

const pathSeries = "/distribution/gets/get-series"

// ErrIncomplete is returned when a query field is still unset. No request is
// issued for it.
var ErrIncomplete = errors.New("series query incomplete")

// Transport is the backend GET used by the resolver.
type Transport interface {
	GetJSON(ctx context.Context, path string, query url.Values, out interface{}) error
}

// Query identifies one series lookup. All four fields are required.
type Query struct {
	ReceiverID     *int
	AcademicYearID *int
	Amount         *int
	IsPro          *bool
}

func (q Query) Complete() bool {
	return q.ReceiverID != nil && q.AcademicYearID != nil && q.Amount != nil && q.IsPro != nil
}

func (q Query) values() url.Values {
	return url.Values{
		"receiverId":     {strconv.Itoa(*q.ReceiverID)},
		"academicYearId": {strconv.Itoa(*q.AcademicYearID)},
		"amount":         {strconv.Itoa(*q.Amount)},
		"isPro":          {strconv.FormatBool(*q.IsPro)},
	}
}

type Resolver struct {
	transport Transport
	logger    logger.Logger
}

func NewResolver(transport Transport, log logger.Logger) *Resolver {
	return &Resolver{
		transport: transport,
		logger:    log.WithFields(map[string]interface{}{"component": "series"}),
	}
}

// Resolve returns the matching series, or nil when the backend has none.
// When several match, the first is used.
func (r *Resolver) Resolve(ctx context.Context, q Query) (*models.ApplicationSeries, error) {
	if !q.Complete() {
		return nil, ErrIncomplete
	}

	var matches []models.ApplicationSeries
	if err := r.transport.GetJSON(ctx, pathSeries, q.values(), &matches); err != nil {
		return nil, apperrors.NewSeriesResolutionFailedError(err)
	}

	fields := map[string]interface{}{
		"receiverId":     *q.ReceiverID,
		"academicYearId": *q.AcademicYearID,
		"amount":         *q.Amount,
		"isPro":          *q.IsPro,
	}

	switch len(matches) {
	case 0:
		r.logger.Debug("no series available", fields)
		return nil, nil
	case 1:
	default:
		fields["matches"] = len(matches)
		r.logger.Warn("multiple series matched, using the first", fields)
	}

	s := matches[0]
	if !s.Consistent() {
		r.logger.Warn("series counters are inconsistent", map[string]interface{}{
			"displaySeries":  s.DisplaySeries,
			"masterStartNo":  s.MasterStartNo,
			"masterEndNo":    s.MasterEndNo,
			"startNo":        s.StartNo,
			"availableCount": s.AvailableCount,
		})
	}
	return &s, nil
}
