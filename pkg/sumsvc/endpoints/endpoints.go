package endpoints

import (
	"context"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/ratelimit"
	"github.com/go-kit/kit/tracing/opentracing"
	"github.com/go-kit/kit/tracing/zipkin"
	stdopentracing "github.com/opentracing/opentracing-go"
	stdzipkin "github.com/openzipkin/zipkin-go"
	"golang.org/x/time/rate"

	"github.com/cage1016/gokitsumsvc/pkg/sumsvc/service"
)

// Endpoints collects all of the endpoints that compose the sumsvc service. It's
// meant to be used as a helper struct, to collect all of the endpoints into a
// single parameter.
type Endpoints struct {
	SumEndpoint endpoint.Endpoint
}

// New return a new instance of the endpoint that wraps the provided service.
// rps bounds accepted requests per second, with a burst of the same size.
func New(svc service.SumsvcService, logger log.Logger, duration metrics.Histogram, otTracer stdopentracing.Tracer, zipkinTracer *stdzipkin.Tracer, rps int) (ep Endpoints) {
	var sumEndpoint endpoint.Endpoint
	{
		method := "sum"
		sumEndpoint = MakeSumEndpoint(svc)
		sumEndpoint = RecoverMiddleware(log.With(logger, "method", method))(sumEndpoint)
		sumEndpoint = ratelimit.NewErroringLimiter(rate.NewLimiter(rate.Limit(rps), rps))(sumEndpoint)
		sumEndpoint = opentracing.TraceServer(otTracer, method)(sumEndpoint)
		sumEndpoint = zipkin.TraceEndpoint(zipkinTracer, method)(sumEndpoint)
		sumEndpoint = LoggingMiddleware(log.With(logger, "method", method))(sumEndpoint)
		sumEndpoint = InstrumentingMiddleware(duration.With("method", method))(sumEndpoint)
		ep.SumEndpoint = sumEndpoint
	}

	return ep
}

// MakeSumEndpoint returns an endpoint that invokes Sum on the service.
// Primarily useful in a server.
func MakeSumEndpoint(svc service.SumsvcService) (ep endpoint.Endpoint) {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(SumRequest)
		if err := req.validate(); err != nil {
			return SumResponse{}, err
		}
		rs, err := svc.Sum(ctx, req.A, req.B)
		return SumResponse{Rs: rs, Err: err}, nil
	}
}

// Sum implements the service interface, so Endpoints may be used as a service.
// This is primarily useful in the context of a client library.
func (e Endpoints) Sum(ctx context.Context, a *string, b *string) (rs float64, err error) {
	resp, err := e.SumEndpoint(ctx, SumRequest{A: a, B: b})
	if err != nil {
		return
	}
	response := resp.(SumResponse)
	return response.Rs, response.Err
}
