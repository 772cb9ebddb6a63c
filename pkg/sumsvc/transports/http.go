package transports

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-kit/kit/circuitbreaker"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/ratelimit"
	"github.com/go-kit/kit/tracing/opentracing"
	"github.com/go-kit/kit/tracing/zipkin"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	stdopentracing "github.com/opentracing/opentracing-go"
	stdzipkin "github.com/openzipkin/zipkin-go"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/cage1016/gokitsumsvc/pkg/numeric"
	"github.com/cage1016/gokitsumsvc/pkg/sumsvc/endpoints"
	"github.com/cage1016/gokitsumsvc/pkg/sumsvc/service"
)

const resultPrefix = "The result is "

// ErrRejected is returned by the HTTP client when the remote instance answers
// with a non-200 status. The server sends no detail, so the cause is unknown.
var ErrRejected = errors.New("request rejected by remote instance")

// NewHTTPHandler returns a handler that makes a set of endpoints available on
// predefined paths.
func NewHTTPHandler(endpoints endpoints.Endpoints, otTracer stdopentracing.Tracer, zipkinTracer *stdzipkin.Tracer, logger log.Logger) http.Handler {
	// Zipkin HTTP Server Trace can either be instantiated per endpoint with a
	// provided operation name or a global tracing service can be instantiated
	// without an operation name and fed to each Go kit endpoint as ServerOption.
	zipkinServer := zipkin.HTTPServerTrace(zipkinTracer)

	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(httpEncodeError),
		httptransport.ServerErrorLogger(logger),
		zipkinServer,
	}

	m := mux.NewRouter()
	m.Methods(http.MethodGet).Path("/sum").Handler(httptransport.NewServer(
		endpoints.SumEndpoint,
		decodeHTTPSumRequest,
		encodeHTTPSumResponse,
		append(options, httptransport.ServerBefore(opentracing.HTTPToContext(otTracer, "Sum", logger)))...,
	))
	return m
}

// decodeHTTPSumRequest is a transport/http.DecodeRequestFunc that reads the
// operands from the query string. Primarily useful in a server.
func decodeHTTPSumRequest(_ context.Context, r *http.Request) (interface{}, error) {
	q := r.URL.Query()
	return endpoints.SumRequest{A: queryOperand(q, "a"), B: queryOperand(q, "b")}, nil
}

// maxArrayIndex is the largest key[N] index still read as an array element.
const maxArrayIndex = 20

// queryOperand gathers the values sent for key, including the key[] and
// key[N] array forms, and returns nil when there are none. Several values are
// joined with commas, which never coerces to a number.
func queryOperand(q url.Values, key string) *string {
	var vs []string
	vs = append(vs, q[key]...)
	vs = append(vs, q[key+"[]"]...)
	vs = append(vs, indexedValues(q, key)...)
	if len(vs) == 0 {
		return nil
	}
	s := strings.Join(vs, ",")
	return &s
}

// indexedValues returns the values of key[0] .. key[maxArrayIndex] in index
// order.
func indexedValues(q url.Values, key string) []string {
	type element struct {
		index  int
		values []string
	}
	var elems []element
	for k, vs := range q {
		if !strings.HasPrefix(k, key+"[") || !strings.HasSuffix(k, "]") {
			continue
		}
		n, err := strconv.Atoi(k[len(key)+1 : len(k)-1])
		if err != nil || n < 0 || n > maxArrayIndex {
			continue
		}
		elems = append(elems, element{n, vs})
	}
	sort.Slice(elems, func(i, j int) bool { return elems[i].index < elems[j].index })

	var out []string
	for _, e := range elems {
		out = append(out, e.values...)
	}
	return out
}

// encodeHTTPSumResponse is a transport/http.EncodeResponseFunc that writes the
// sum as text. Business errors are handed to the error encoder.
func encodeHTTPSumResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	if f, ok := response.(endpoint.Failer); ok && f.Failed() != nil {
		httpEncodeError(ctx, f.Failed(), w)
		return nil
	}
	resp := response.(endpoints.SumResponse)
	for k, v := range resp.Headers() {
		w.Header()[k] = v
	}
	w.WriteHeader(resp.StatusCode())
	_, err := fmt.Fprint(w, resultPrefix+numeric.Format(resp.Rs))
	return err
}

// httpEncodeError answers every fault with 400 and no body; the cause is only
// logged.
func httpEncodeError(_ context.Context, _ error, w http.ResponseWriter) {
	w.WriteHeader(http.StatusBadRequest)
}

// NewHTTPClient returns a SumsvcService backed by an HTTP server living at the
// remote instance. We expect instance to come from a service discovery system,
// so likely of the form "host:port". We bake-in certain middlewares,
// implementing the client library pattern.
func NewHTTPClient(instance string, otTracer stdopentracing.Tracer, zipkinTracer *stdzipkin.Tracer, logger log.Logger) (service.SumsvcService, error) {
	if !strings.HasPrefix(instance, "http") {
		instance = "http://" + instance
	}
	u, err := url.Parse(instance)
	if err != nil {
		return nil, err
	}

	// We construct a single ratelimiter middleware, to limit the total outgoing
	// QPS from this client to all methods on the remote instance.
	limiter := ratelimit.NewErroringLimiter(rate.NewLimiter(rate.Every(time.Second), 100))

	zipkinClient := zipkin.HTTPClientTrace(zipkinTracer)

	// global client middlewares
	options := []httptransport.ClientOption{
		zipkinClient,
	}

	e := endpoints.Endpoints{}

	var sumEndpoint endpoint.Endpoint
	{
		sumEndpoint = httptransport.NewClient(
			http.MethodGet,
			copyURL(u, "/sum"),
			encodeHTTPSumRequest,
			decodeHTTPSumResponse,
			append(options, httptransport.ClientBefore(opentracing.ContextToHTTP(otTracer, logger)))...,
		).Endpoint()
		sumEndpoint = opentracing.TraceClient(otTracer, "Sum")(sumEndpoint)
		sumEndpoint = zipkin.TraceEndpoint(zipkinTracer, "Sum")(sumEndpoint)
		sumEndpoint = limiter(sumEndpoint)
		sumEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "Sum",
			Timeout: 30 * time.Second,
		}))(sumEndpoint)
		e.SumEndpoint = sumEndpoint
	}

	// Returning the endpoint.Set as a service.Service relies on the
	// endpoint.Set implementing the Service methods. That's just a simple bit
	// of glue code.
	return e, nil
}

func copyURL(base *url.URL, path string) *url.URL {
	next := *base
	next.Path = strings.TrimSuffix(base.Path, "/") + path
	return &next
}

// encodeHTTPSumRequest is a transport/http.EncodeRequestFunc that puts the
// supplied operands in the query string. Primarily useful in a client.
func encodeHTTPSumRequest(_ context.Context, r *http.Request, request interface{}) error {
	req := request.(endpoints.SumRequest)
	q := r.URL.Query()
	if req.A != nil {
		q.Set("a", *req.A)
	}
	if req.B != nil {
		q.Set("b", *req.B)
	}
	r.URL.RawQuery = q.Encode()
	return nil
}

// decodeHTTPSumResponse is a transport/http.DecodeResponseFunc that parses the
// text sum back into a number. A non-200 status becomes ErrRejected in the
// response rather than an endpoint error, so it does not trip the breaker.
// Primarily useful in a client.
func decodeHTTPSumResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		return endpoints.SumResponse{Rs: math.NaN(), Err: ErrRejected}, nil
	}
	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	rs, err := parseResult(string(body))
	if err != nil {
		return nil, err
	}
	return endpoints.SumResponse{Rs: rs}, nil
}

func parseResult(body string) (float64, error) {
	if !strings.HasPrefix(body, resultPrefix) {
		return 0, fmt.Errorf("unexpected response body %q", body)
	}
	text := strings.TrimPrefix(body, resultPrefix)
	if text == "NaN" {
		return math.NaN(), nil
	}
	rs, err := numeric.Parse(text)
	if err != nil {
		return 0, fmt.Errorf("unexpected result %q: %v", text, err)
	}
	return rs, nil
}
