package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/go-kit/kit/metrics"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/go-kit/kit/sd"
	consulsd "github.com/go-kit/kit/sd/consul"
	kitgrpc "github.com/go-kit/kit/transport/grpc"
	"github.com/gorilla/mux"
	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	"github.com/hashicorp/consul/api"
	stdopentracing "github.com/opentracing/opentracing-go"
	"github.com/openzipkin/zipkin-go"
	zipkinhttp "github.com/openzipkin/zipkin-go/reporter/http"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthgrpc "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	pb "github.com/cage1016/gokitsumsvc/pb/sumsvc"
	"github.com/cage1016/gokitsumsvc/pkg/dataaccess"
	"github.com/cage1016/gokitsumsvc/pkg/sumsvc/endpoints"
	"github.com/cage1016/gokitsumsvc/pkg/sumsvc/service"
	"github.com/cage1016/gokitsumsvc/pkg/sumsvc/transports"
)

const (
	defZipkinV2URL    string = ""
	defNameSpace      string = "gokitsumsvc"
	defServiceName    string = "sumsvc"
	defLogLevel       string = "info"
	defServiceHost    string = "localhost"
	defHTTPPort       string = "8180"
	defGRPCPort       string = "8181"
	defStrictOperands string = "false"
	defRateLimit      string = "100"
	defConsulHost     string = ""
	defConsulPort     string = "8500"
	defDBHost         string = ""
	defDBPort         string = "5432"
	defDBUser         string = "postgres"
	defDBPassword     string = ""
	defDBName         string = "sumsvc"
	defDBVersion      string = ""
	defDBSSLMode      string = "disable"

	envZipkinV2URL    string = "QS_ZIPKIN_V2_URL"
	envNameSpace      string = "QS_SUMSVC_NAMESPACE"
	envServiceName    string = "QS_SUMSVC_SERVICE_NAME"
	envLogLevel       string = "QS_SUMSVC_LOG_LEVEL"
	envServiceHost    string = "QS_SUMSVC_SERVICE_HOST"
	envHTTPPort       string = "QS_SUMSVC_HTTP_PORT"
	envGRPCPort       string = "QS_SUMSVC_GRPC_PORT"
	envStrictOperands string = "QS_SUMSVC_STRICT_OPERANDS"
	envRateLimit      string = "QS_SUMSVC_RATE_LIMIT"
	envConsulHost     string = "QS_CONSUL_HOST"
	envConsulPort     string = "QS_CONSUL_PORT"
	envDBHost         string = "QS_SUMSVC_DB_HOST"
	envDBPort         string = "QS_SUMSVC_DB_PORT"
	envDBUser         string = "QS_SUMSVC_DB_USER"
	envDBPassword     string = "QS_SUMSVC_DB_PASSWORD"
	envDBName         string = "QS_SUMSVC_DB_NAME"
	envDBVersion      string = "QS_SUMSVC_DB_VERSION"
	envDBSSLMode      string = "QS_SUMSVC_DB_SSLMODE"
)

type config struct {
	nameSpace      string
	serviceName    string
	logLevel       string
	serviceHost    string
	httpPort       string
	grpcPort       string
	zipkinV2URL    string
	strictOperands bool
	rateLimit      int
	consulHost     string
	consulPort     string
	db             dataaccess.Config
}

// Env reads specified environment variable. If no value has been found,
// fallback is returned.
func env(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
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

	var pinger transports.Pinger
	if cfg.db.Host != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		db, err := dataaccess.StartConnection(ctx, cfg.db, log.With(logger, "component", "dataaccess"))
		cancel()
		if err != nil {
			level.Error(logger).Log("db", cfg.db.Host, "err", err)
			os.Exit(1)
		}
		defer db.Close()
		pinger = db
	}

	errs := make(chan error, 2)
	grpcServer, httpHandler := NewServer(cfg, stdopentracing.GlobalTracer(), zipkinTracer, pinger, logger)
	hs := health.NewServer()
	hs.SetServingStatus(cfg.serviceName, healthgrpc.HealthCheckResponse_SERVING)

	go startHTTPServer(cfg, httpHandler, logger, errs)
	go startGRPCServer(cfg, hs, grpcServer, logger, errs)

	if cfg.consulHost != "" {
		registrar, err := newConsulRegistrar(cfg, logger)
		if err != nil {
			level.Error(logger).Log("consul", cfg.consulHost, "err", err)
			os.Exit(1)
		}
		registrar.Register()
		defer registrar.Deregister()
	}

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errs <- fmt.Errorf("%s", <-c)
	}()

	err := <-errs
	level.Info(logger).Log("serviceName", cfg.serviceName, "terminated", err)
}

func loadConfig(logger log.Logger) (cfg config) {
	strict, err := strconv.ParseBool(env(envStrictOperands, defStrictOperands))
	if err != nil {
		level.Error(logger).Log("envStrictOperands", envStrictOperands, "error", err)
		strict, _ = strconv.ParseBool(defStrictOperands)
	}

	rateLimit, err := strconv.Atoi(env(envRateLimit, defRateLimit))
	if err != nil || rateLimit <= 0 {
		level.Error(logger).Log("envRateLimit", envRateLimit, "error", err)
		rateLimit, _ = strconv.Atoi(defRateLimit)
	}

	dbPort, err := strconv.Atoi(env(envDBPort, defDBPort))
	if err != nil {
		level.Error(logger).Log("envDBPort", envDBPort, "error", err)
		dbPort, _ = strconv.Atoi(defDBPort)
	}

	cfg.nameSpace = env(envNameSpace, defNameSpace)
	cfg.serviceName = env(envServiceName, defServiceName)
	cfg.logLevel = env(envLogLevel, defLogLevel)
	cfg.serviceHost = env(envServiceHost, defServiceHost)
	cfg.httpPort = env(envHTTPPort, defHTTPPort)
	cfg.grpcPort = env(envGRPCPort, defGRPCPort)
	cfg.zipkinV2URL = env(envZipkinV2URL, defZipkinV2URL)
	cfg.strictOperands = strict
	cfg.rateLimit = rateLimit
	cfg.consulHost = env(envConsulHost, defConsulHost)
	cfg.consulPort = env(envConsulPort, defConsulPort)
	cfg.db = dataaccess.Config{
		Host:     env(envDBHost, defDBHost),
		Port:     dbPort,
		User:     env(envDBUser, defDBUser),
		Password: env(envDBPassword, defDBPassword),
		Database: env(envDBName, defDBName),
		Version:  env(envDBVersion, defDBVersion),
		SSLMode:  env(envDBSSLMode, defDBSSLMode),
	}
	return cfg
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

func NewServer(cfg config, tracer stdopentracing.Tracer, zipkinTracer *zipkin.Tracer, db transports.Pinger, logger log.Logger) (pb.SumsvcServer, http.Handler) {
	var sums metrics.Counter
	{
		sums = kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: cfg.nameSpace,
			Subsystem: cfg.serviceName,
			Name:      "sums_total",
			Help:      "Total count of sums, by outcome.",
		}, []string{"outcome"})
	}
	var duration metrics.Histogram
	{
		duration = kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
			Namespace: cfg.nameSpace,
			Subsystem: cfg.serviceName,
			Name:      "request_duration_seconds",
			Help:      "Request duration in seconds.",
		}, []string{"method", "success"})
	}

	service := service.New(logger, sums, cfg.strictOperands)
	endpoints := endpoints.New(service, logger, duration, tracer, zipkinTracer, cfg.rateLimit)
	grpcServer := transports.MakeGRPCServer(endpoints, tracer, zipkinTracer, logger)

	r := mux.NewRouter()
	r.Methods(http.MethodGet).Path("/health").Handler(transports.NewHealthHandler(db, logger))
	r.Methods(http.MethodGet).Path("/metrics").Handler(promhttp.Handler())
	r.PathPrefix("/").Handler(transports.NewHTTPHandler(endpoints, tracer, zipkinTracer, logger))

	return grpcServer, r
}

func newConsulRegistrar(cfg config, logger log.Logger) (sd.Registrar, error) {
	consulCfg := api.DefaultConfig()
	consulCfg.Address = net.JoinHostPort(cfg.consulHost, cfg.consulPort)
	consulClient, err := api.NewClient(consulCfg)
	if err != nil {
		return nil, err
	}

	grpcPort, err := strconv.Atoi(cfg.grpcPort)
	if err != nil {
		return nil, fmt.Errorf("invalid grpc port %q: %v", cfg.grpcPort, err)
	}

	registration := &api.AgentServiceRegistration{
		ID:      fmt.Sprintf("%s-%s-%d", cfg.serviceName, cfg.serviceHost, grpcPort),
		Name:    cfg.serviceName,
		Address: cfg.serviceHost,
		Port:    grpcPort,
		Tags:    []string{cfg.nameSpace, "grpc"},
		Check: &api.AgentServiceCheck{
			GRPC:     fmt.Sprintf("%s:%d/%s", cfg.serviceHost, grpcPort, cfg.serviceName),
			Interval: "10s",
			Timeout:  "1s",
		},
	}
	return consulsd.NewRegistrar(consulsd.NewClient(consulClient), registration, logger), nil
}

func startHTTPServer(cfg config, httpHandler http.Handler, logger log.Logger, errs chan error) {
	p := fmt.Sprintf(":%s", cfg.httpPort)
	level.Info(logger).Log("serviceName", cfg.serviceName, "protocol", "HTTP", "exposed", cfg.httpPort)
	errs <- http.ListenAndServe(p, httpHandler)
}

func startGRPCServer(cfg config, hs *health.Server, grpcServer pb.SumsvcServer, logger log.Logger, errs chan error) {
	p := fmt.Sprintf(":%s", cfg.grpcPort)
	listener, err := net.Listen("tcp", p)
	if err != nil {
		level.Error(logger).Log("serviceName", cfg.serviceName, "protocol", "GRPC", "listen", cfg.grpcPort, "err", err)
		os.Exit(1)
	}

	recovery := grpc_recovery.WithRecoveryHandler(func(p interface{}) error {
		level.Error(logger).Log("protocol", "GRPC", "panic", p)
		return status.Errorf(codes.Internal, "%v", p)
	})

	var server *grpc.Server
	level.Info(logger).Log("serviceName", cfg.serviceName, "protocol", "GRPC", "exposed", cfg.grpcPort)
	server = grpc.NewServer(grpc.UnaryInterceptor(grpc_middleware.ChainUnaryServer(
		grpc_recovery.UnaryServerInterceptor(recovery),
		kitgrpc.Interceptor,
	)))
	pb.RegisterSumsvcServer(server, grpcServer)
	healthgrpc.RegisterHealthServer(server, hs)
	reflection.Register(server)
	errs <- server.Serve(listener)
}
