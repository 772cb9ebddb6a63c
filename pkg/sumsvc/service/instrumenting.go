package service

import (
	"context"
	"math"

	"github.com/go-kit/kit/metrics"
)

type instrumentingMiddleware struct {
	sums metrics.Counter
	next SumsvcService
}

// InstrumentingMiddleware counts sums by outcome: "ok", "nan" or "error".
func InstrumentingMiddleware(sums metrics.Counter) Middleware {
	return func(next SumsvcService) SumsvcService {
		return instrumentingMiddleware{sums: sums, next: next}
	}
}

func (im instrumentingMiddleware) Sum(ctx context.Context, a *string, b *string) (rs float64, err error) {
	rs, err = im.next.Sum(ctx, a, b)
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case math.IsNaN(rs):
		outcome = "nan"
	}
	im.sums.With("outcome", outcome).Add(1)
	return rs, err
}
