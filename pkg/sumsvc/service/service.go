package service

import (
	"context"
	"errors"
	"math"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"

	"github.com/cage1016/gokitsumsvc/pkg/numeric"
)

var (
	// ErrMissingOperand is returned in strict mode when an operand was not supplied.
	ErrMissingOperand = errors.New("missing operand")
	// ErrInvalidOperand is returned in strict mode when an operand is not numeric text.
	ErrInvalidOperand = errors.New("invalid operand")
)

// Middleware describes a service (as opposed to endpoint) middleware.
type Middleware func(SumsvcService) SumsvcService

// SumsvcService adds two numbers received as text. A nil operand means the
// caller did not supply it.
type SumsvcService interface {
	Sum(ctx context.Context, a *string, b *string) (rs float64, err error)
}

// the concrete implementation of service interface
type stubSumsvcService struct {
	logger log.Logger
	strict bool
}

// New return a new instance of the service. With strict unset, operands that
// fail to parse become NaN and the sum is NaN; with strict set they are
// reported as ErrMissingOperand or ErrInvalidOperand.
func New(logger log.Logger, sums metrics.Counter, strict bool) (s SumsvcService) {
	var svc SumsvcService
	{
		svc = &stubSumsvcService{logger: logger, strict: strict}
		svc = LoggingMiddleware(logger)(svc)
		svc = InstrumentingMiddleware(sums)(svc)
	}
	return svc
}

// Implement the business logic of Sum
func (sv *stubSumsvcService) Sum(ctx context.Context, a *string, b *string) (rs float64, err error) {
	x, errA := operand(a)
	y, errB := operand(b)
	if sv.strict {
		if errA != nil {
			return math.NaN(), errA
		}
		if errB != nil {
			return math.NaN(), errB
		}
	}
	return numeric.Sum(x, y), nil
}

func operand(s *string) (float64, error) {
	if s == nil {
		return math.NaN(), ErrMissingOperand
	}
	f, err := numeric.Parse(*s)
	if err != nil {
		return f, ErrInvalidOperand
	}
	return f, nil
}
