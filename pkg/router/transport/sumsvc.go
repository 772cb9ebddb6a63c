package transport

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/afex/hystrix-go/hystrix"
	"github.com/go-kit/kit/circuitbreaker"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/sd"
	consulsd "github.com/go-kit/kit/sd/consul"
	"github.com/go-kit/kit/sd/lb"
	stdopentracing "github.com/opentracing/opentracing-go"
	stdzipkin "github.com/openzipkin/zipkin-go"
	"google.golang.org/grpc"

	"github.com/cage1016/gokitsumsvc/pkg/sumsvc/endpoints"
	"github.com/cage1016/gokitsumsvc/pkg/sumsvc/transports"
)

const (
	sumsvcName       = "sumsvc"
	sumHystrixTarget = "sumsvc.Sum"
)

// MakeSumSvcHandler exposes sumsvc's HTTP surface, served by calling sumsvc
// over gRPC. Failed calls are retried on the next instance; business errors
// are part of the response and are not retried.
func MakeSumSvcHandler(ctx context.Context, cfg Config, tracer stdopentracing.Tracer, zipkinTracer *stdzipkin.Tracer, logger log.Logger) http.Handler {
	factory := sumSvcFactory(ctx, tracer, zipkinTracer, logger)

	var endpointer sd.Endpointer
	if cfg.Consul != nil {
		instancer := consulsd.NewInstancer(cfg.Consul, logger, sumsvcName, nil, true)
		endpointer = sd.NewEndpointer(instancer, factory, logger)
	} else {
		e, _, _ := factory(cfg.SumsvcURL)
		endpointer = sd.FixedEndpointer{e}
	}

	hystrix.ConfigureCommand(sumHystrixTarget, hystrix.CommandConfig{
		Timeout:               int(2 * cfg.RetryTimeout / time.Millisecond),
		MaxConcurrentRequests: 100,
		ErrorPercentThreshold: 50,
	})

	var sumEndpoint endpoint.Endpoint
	{
		balancer := lb.NewRoundRobin(endpointer)
		sumEndpoint = lb.Retry(cfg.RetryMax, cfg.RetryTimeout, balancer)
		sumEndpoint = circuitbreaker.Hystrix(sumHystrixTarget)(sumEndpoint)
	}

	eps := endpoints.Endpoints{SumEndpoint: sumEndpoint}
	return transports.NewHTTPHandler(eps, tracer, zipkinTracer, logger)
}

// sumSvcFactory dials a sumsvc instance and returns its raw client endpoint,
// so transport failures stay endpoint errors the balancer can retry.
func sumSvcFactory(
	ctx context.Context,
	tracer stdopentracing.Tracer,
	zipkinTracer *stdzipkin.Tracer,
	logger log.Logger) sd.Factory {

	return func(instance string) (endpoint.Endpoint, io.Closer, error) {
		conn, err := grpc.DialContext(ctx, instance, grpc.WithInsecure())
		if err != nil {
			return func(ctx context.Context, request interface{}) (interface{}, error) {
				return nil, err
			}, nil, err
		}
		eps := transports.NewGRPCClient(conn, tracer, zipkinTracer, logger)

		return eps.SumEndpoint, conn, nil
	}
}
