package service

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/cage1016/gokitsumsvc/pkg/numeric"
)

type loggingMiddleware struct {
	logger log.Logger
	next   SumsvcService
}

// LoggingMiddleware takes a logger as a dependency
// and returns a ServiceMiddleware.
func LoggingMiddleware(logger log.Logger) Middleware {
	return func(next SumsvcService) SumsvcService {
		return loggingMiddleware{logger, next}
	}
}

func (lm loggingMiddleware) Sum(ctx context.Context, a *string, b *string) (rs float64, err error) {
	defer func(begin time.Time) {
		logger := level.Info(lm.logger)
		if err != nil {
			logger = level.Error(lm.logger)
		}
		logger.Log("method", "Sum", "a", text(a), "b", text(b), "rs", numeric.Format(rs), "took", time.Since(begin), "err", err)
	}(time.Now())

	return lm.next.Sum(ctx, a, b)
}

// text renders an optional operand for log lines.
func text(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
