package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	consulsd "github.com/go-kit/kit/sd/consul"
	"github.com/grpc-ecosystem/grpc-opentracing/go/otgrpc"
	"github.com/hashicorp/consul/api"
	"github.com/mwitkow/grpc-proxy/proxy"
	stdopentracing "github.com/opentracing/opentracing-go"
	"github.com/openzipkin/zipkin-go"
	zipkingrpc "github.com/openzipkin/zipkin-go/middleware/grpc"
	zipkinhttp "github.com/openzipkin/zipkin-go/reporter/http"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	routertransport "github.com/cage1016/gokitsumsvc/pkg/router/transport"
)

const grpcRouterReg = `([a-zA-Z]+)/`

const (
	defZipkinV2URL   = ""
	defServiceName   = "router"
	defLogLevel      = "info"
	defHTTPPort      = ""
	defGRPCPort      = ""
	defRretryTimeout = "500" // time.Millisecond
	defRretryMax     = "3"
	defSumsvcURL     = ""
	defConsulHost    = ""
	defConsulPort    = "8500"

	envZipkinV2URL  = "QS_ZIPKIN_V2_URL"
	envServiceName  = "QS_ROUTER_SERVICE_NAME"
	envLogLevel     = "QS_ROUTER_LOG_LEVEL"
	envHTTPPort     = "QS_ROUTER_HTTP_PORT"
	envGRPCPort     = "QS_ROUTER_GRPC_PORT"
	envRetryMax     = "QS_ROUTER_RETRY_MAX"
	envRetryTimeout = "QS_ROUTER_RETRY_TIMEOUT"
	envSumsvcURL    = "QS_SUMSVC_URL"
	envConsulHost   = "QS_CONSUL_HOST"
	envConsulPort   = "QS_CONSUL_PORT"
)

// Env reads specified environment variable. If no value has been found,
// fallback is returned.
func env(key string, fallback string) (s0 string) {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type config struct {
	serviceName  string
	logLevel     string
	httpPort     string
	grpcPort     string
	zipkinV2URL  string
	retryMax     int64
	retryTimeout int64
	sumsvcURL    string
	consulHost   string
	consulPort   string
	routerMap    map[string]string
}

func main() {
	var logger log.Logger
	{
		logger = log.NewLogfmtLogger(os.Stderr)
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
	}
	cfg := loadConfig(logger)
	logger = level.NewFilter(logger, levelOption(cfg.logLevel))
	logger = log.With(logger, "service", cfg.serviceName)

	var tracer stdopentracing.Tracer
	{
		tracer = stdopentracing.GlobalTracer()
	}

	var zipkinTracer *zipkin.Tracer
	{
		var (
			err           error
			hostPort      = fmt.Sprintf("localhost:%s", cfg.httpPort)
			serviceName   = cfg.serviceName
			useNoopTracer = (cfg.zipkinV2URL == "")
			reporter      = zipkinhttp.NewReporter(cfg.zipkinV2URL)
		)
		defer reporter.Close()
		zEP, _ := zipkin.NewEndpoint(serviceName, hostPort)
		zipkinTracer, err = zipkin.NewTracer(reporter, zipkin.WithLocalEndpoint(zEP), zipkin.WithNoopTracer(useNoopTracer))
		if err != nil {
			level.Error(logger).Log("tracer", "Zipkin", "err", err)
			os.Exit(1)
		}
		if !useNoopTracer {
			level.Info(logger).Log("tracer", "Zipkin", "type", "Native", "URL", cfg.zipkinV2URL)
		}
	}

	routerCfg := routertransport.Config{
		SumsvcURL:    cfg.sumsvcURL,
		RetryMax:     int(cfg.retryMax),
		RetryTimeout: time.Duration(cfg.retryTimeout) * time.Millisecond,
	}
	var health routertransport.HealthService
	if cfg.consulHost != "" {
		consulCfg := api.DefaultConfig()
		consulCfg.Address = net.JoinHostPort(cfg.consulHost, cfg.consulPort)
		consulClient, err := api.NewClient(consulCfg)
		if err != nil {
			level.Error(logger).Log("consul", cfg.consulHost, "err", err)
			os.Exit(1)
		}
		routerCfg.Consul = consulsd.NewClient(consulClient)
		health = consulClient.Health()
		level.Info(logger).Log("discovery", "consul", "address", consulCfg.Address)
	}

	ctx := context.Background()
	errs := make(chan error, 1)

	r := routertransport.MakeHandler(ctx, routerCfg, tracer, zipkinTracer, logger)

	go startHTTPServer(r, cfg.httpPort, logger, errs)
	targets := routertransport.NewTargetResolver(cfg.routerMap, health)
	go startGRPCServer(tracer, zipkinTracer, cfg.grpcPort, targets, logger, errs)

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errs <- fmt.Errorf("%s", <-c)
	}()

	errc := <-errs
	level.Info(logger).Log("serviceName", cfg.serviceName, "terminated", errc)
}

func loadConfig(logger log.Logger) (cfg config) {
	retryMax, err := strconv.ParseInt(env(envRetryMax, defRretryMax), 10, 0)
	if err != nil {
		level.Error(logger).Log("envRetryMax", envRetryMax, "error", err)
		retryMax, _ = strconv.ParseInt(defRretryMax, 10, 0)
	}

	retryTimeout, err := strconv.ParseInt(env(envRetryTimeout, defRretryTimeout), 10, 0)
	if err != nil {
		level.Error(logger).Log("envRetryTimeout", envRetryTimeout, "error", err)
		retryTimeout, _ = strconv.ParseInt(defRretryTimeout, 10, 0)
	}

	cfg.serviceName = env(envServiceName, defServiceName)
	cfg.logLevel = env(envLogLevel, defLogLevel)
	cfg.httpPort = env(envHTTPPort, defHTTPPort)
	cfg.grpcPort = env(envGRPCPort, defGRPCPort)
	cfg.zipkinV2URL = env(envZipkinV2URL, defZipkinV2URL)
	cfg.retryMax = retryMax
	cfg.retryTimeout = retryTimeout
	cfg.sumsvcURL = env(envSumsvcURL, defSumsvcURL)
	cfg.consulHost = env(envConsulHost, defConsulHost)
	cfg.consulPort = env(envConsulPort, defConsulPort)

	// An empty address is resolved through Consul when it is configured.
	cfg.routerMap = map[string]string{}
	cfg.routerMap["sumsvc"] = cfg.sumsvcURL
	return
}

func levelOption(s string) level.Option {
	switch s {
	case "debug":
		return level.AllowDebug()
	case "warn":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	case "none":
		return level.AllowNone()
	default:
		return level.AllowInfo()
	}
}

func startHTTPServer(handler http.Handler, port string, logger log.Logger, errs chan error) {
	if port == "" {
		return
	}
	p := fmt.Sprintf(":%s", port)
	level.Info(logger).Log("protocol", "HTTP", "exposed", port)
	errs <- http.ListenAndServe(p, handler)
}

func startGRPCServer(tracer stdopentracing.Tracer, zipkinTracer *zipkin.Tracer, port string, targets *routertransport.TargetResolver, logger log.Logger, errs chan error) {
	if port == "" {
		return
	}
	p := fmt.Sprintf(":%s", port)
	listener, err := net.Listen("tcp", p)
	if err != nil {
		level.Error(logger).Log("GRPC", "proxy", "listen", port, "err", err)
		os.Exit(1)
	}

	// Backend connections are shared by every proxied call to the same target.
	var (
		mu    sync.Mutex
		conns = map[string]*grpc.ClientConn{}
	)
	dial := func(ctx context.Context, target string) (*grpc.ClientConn, error) {
		mu.Lock()
		defer mu.Unlock()
		if conn, ok := conns[target]; ok {
			return conn, nil
		}
		conn, err := grpc.DialContext(
			ctx,
			target,
			grpc.WithInsecure(),
			grpc.WithStatsHandler(zipkingrpc.NewClientHandler(zipkinTracer)),
			grpc.WithDefaultCallOptions(grpc.CallCustomCodec(proxy.Codec()), grpc.WaitForReady(true)),
		)
		if err != nil {
			return nil, err
		}
		conns[target] = conn
		return conn, nil
	}

	re := regexp.MustCompile(grpcRouterReg)
	director := func(ctx context.Context, fullMethodName string) (context.Context, *grpc.ClientConn, error) {
		serviceName := func(fullMethodName string) string {
			x := re.FindStringSubmatch(fullMethodName)
			if x == nil {
				return ""
			}
			return strings.ToLower(x[1])
		}(fullMethodName)

		// Make sure we never forward internal services.
		target, err := targets.Resolve(serviceName)
		switch {
		case err == routertransport.ErrUnknownService:
			return nil, nil, status.Errorf(codes.Unimplemented, "Unknown method")
		case err != nil:
			level.Warn(logger).Log("GRPC", "proxy", "service", serviceName, "err", err)
			return nil, nil, status.Errorf(codes.Unavailable, "%s unavailable", serviceName)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, nil, status.Errorf(codes.Unimplemented, "Unknown method")
		}
		// Copy the inbound metadata explicitly.
		outCtx := metadata.NewOutgoingContext(ctx, md.Copy())

		conn, err := dial(context.Background(), target)
		return outCtx, conn, err
	}

	var server *grpc.Server
	level.Info(logger).Log("GRPC", "proxy", "exposed", port)
	server = grpc.NewServer(
		grpc.CustomCodec(proxy.Codec()),
		grpc.UnknownServiceHandler(proxy.TransparentHandler(director)),
		grpc.StreamInterceptor(otgrpc.OpenTracingStreamServerInterceptor(tracer)),
		grpc.StatsHandler(zipkingrpc.NewServerHandler(zipkinTracer)),
	)
	reflection.Register(server)
	errs <- server.Serve(listener)
}
