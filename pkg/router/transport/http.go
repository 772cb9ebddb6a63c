package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-kit/kit/log"
	consulsd "github.com/go-kit/kit/sd/consul"
	"github.com/gorilla/mux"
	stdopentracing "github.com/opentracing/opentracing-go"
	stdzipkin "github.com/openzipkin/zipkin-go"
)

// Config locates the services behind the router.
type Config struct {
	// SumsvcURL is the sumsvc gRPC target used when Consul is nil.
	SumsvcURL    string
	RetryMax     int
	RetryTimeout time.Duration
	// Consul, when set, discovers sumsvc instances instead of SumsvcURL.
	Consul consulsd.Client
}

type TransportRouter struct {
	Router *mux.Router
}

func NewHandlerBuilder() TransportRouter {
	r := mux.NewRouter()

	r.HandleFunc("/", func(writer http.ResponseWriter, request *http.Request) {
		writer.Write([]byte("ok"))
	})

	return TransportRouter{r}
}

// AddHandler mounts h under /prefix with the prefix stripped.
func (tr TransportRouter) AddHandler(prefix string, h http.Handler) {
	buf := fmt.Sprintf("/%s", prefix)
	tr.Router.PathPrefix(buf).Handler(http.StripPrefix(buf, h))
}

// MakeHandler returns the router's HTTP handler with every backing service
// mounted under its name.
func MakeHandler(ctx context.Context, cfg Config, tracer stdopentracing.Tracer, zipkinTracer *stdzipkin.Tracer, logger log.Logger) http.Handler {
	tr := NewHandlerBuilder()
	tr.AddHandler("sumsvc", MakeSumSvcHandler(ctx, cfg, tracer, zipkinTracer, logger))
	return tr.Router
}
