package transports

import (
	"context"
	"errors"
	"io/ioutil"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics/discard"
	stdopentracing "github.com/opentracing/opentracing-go"
	stdzipkin "github.com/openzipkin/zipkin-go"
	"github.com/openzipkin/zipkin-go/reporter"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/cage1016/gokitsumsvc/pkg/sumsvc/endpoints"
	"github.com/cage1016/gokitsumsvc/pkg/sumsvc/service"
)

type panicService struct{}

func (panicService) Sum(context.Context, *string, *string) (float64, error) {
	panic("boom")
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func str(s string) *string { return &s }

func noopTracers() (stdopentracing.Tracer, *stdzipkin.Tracer) {
	zipkinTracer, _ := stdzipkin.NewTracer(reporter.NewNoopReporter(), stdzipkin.WithNoopTracer(true))
	return stdopentracing.NoopTracer{}, zipkinTracer
}

func newTestEndpoints(svc service.SumsvcService) endpoints.Endpoints {
	otTracer, zipkinTracer := noopTracers()
	return endpoints.New(svc, log.NewNopLogger(), discard.NewHistogram(), otTracer, zipkinTracer, 100)
}

func newHTTPServer(svc service.SumsvcService) *httptest.Server {
	otTracer, zipkinTracer := noopTracers()
	return httptest.NewServer(NewHTTPHandler(newTestEndpoints(svc), otTracer, zipkinTracer, log.NewNopLogger()))
}

func get(url string) (int, string, http.Header) {
	resp, err := http.Get(url)
	So(err, ShouldBeNil)
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	So(err, ShouldBeNil)
	return resp.StatusCode, string(body), resp.Header
}

func TestHTTPSum(t *testing.T) {
	Convey("Given a lenient sumsvc over HTTP", t, func() {
		srv := newHTTPServer(service.New(log.NewNopLogger(), discard.NewCounter(), false))
		defer srv.Close()

		Convey("numeric operands are summed", func() {
			cases := []struct {
				query string
				want  string
			}{
				{"a=2&b=3", "The result is 5"},
				{"a=-1&b=1", "The result is 0"},
				{"a=2.5&b=0.5", "The result is 3"},
				{"a=0.1&b=0.2", "The result is 0.30000000000000004"},
				{"a=%201%20&b=2", "The result is 3"},
				{"a=&b=4", "The result is 4"},
				{"a=1e21&b=0", "The result is 1e+21"},
				{"a=Infinity&b=1", "The result is Infinity"},
			}
			for _, c := range cases {
				code, body, header := get(srv.URL + "/sum?" + c.query)
				So(code, ShouldEqual, http.StatusOK)
				So(body, ShouldEqual, c.want)
				So(header.Get("Content-Type"), ShouldEqual, "text/html; charset=utf-8")
			}
		})

		// Malformed operands are not rejected in lenient mode; the sum is NaN.
		Convey("a non-numeric operand renders NaN with 200", func() {
			code, body, _ := get(srv.URL + "/sum?a=foo&b=3")
			So(code, ShouldEqual, http.StatusOK)
			So(body, ShouldEqual, "The result is NaN")
		})

		Convey("missing operands render NaN with 200", func() {
			code, body, _ := get(srv.URL + "/sum")
			So(code, ShouldEqual, http.StatusOK)
			So(body, ShouldEqual, "The result is NaN")
		})

		Convey("a repeated operand renders NaN with 200", func() {
			code, body, _ := get(srv.URL + "/sum?a=1&a=2&b=3")
			So(code, ShouldEqual, http.StatusOK)
			So(body, ShouldEqual, "The result is NaN")
		})

		Convey("array forms of an operand are read like qs arrays", func() {
			cases := []struct {
				query string
				want  string
			}{
				{"a[]=5&b=3", "The result is 8"},
				{"a[0]=5&b[]=1", "The result is 6"},
				{"a[]=1&a[]=2&b=3", "The result is NaN"},
				{"a=1&a[]=2&b=3", "The result is NaN"},
				{"a[x]=5&b=3", "The result is NaN"},
				{"a[21]=5&b=3", "The result is NaN"},
			}
			for _, c := range cases {
				code, body, _ := get(srv.URL + "/sum?" + c.query)
				So(code, ShouldEqual, http.StatusOK)
				So(body, ShouldEqual, c.want)
			}
		})

		Convey("identical requests yield identical responses", func() {
			_, first, _ := get(srv.URL + "/sum?a=2&b=3")
			for i := 0; i < 5; i++ {
				code, body, _ := get(srv.URL + "/sum?a=2&b=3")
				So(code, ShouldEqual, http.StatusOK)
				So(body, ShouldEqual, first)
			}
		})

		Convey("only GET is routed", func() {
			resp, err := http.Post(srv.URL+"/sum?a=2&b=3", "text/plain", strings.NewReader(""))
			So(err, ShouldBeNil)
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})

	// Strict mode changes the contract: bad operands are rejected with 400.
	Convey("Given a strict sumsvc over HTTP", t, func() {
		srv := newHTTPServer(service.New(log.NewNopLogger(), discard.NewCounter(), true))
		defer srv.Close()

		Convey("numeric operands are still summed", func() {
			code, body, _ := get(srv.URL + "/sum?a=2&b=3")
			So(code, ShouldEqual, http.StatusOK)
			So(body, ShouldEqual, "The result is 5")
		})

		Convey("a non-numeric operand is a 400 with an empty body", func() {
			code, body, _ := get(srv.URL + "/sum?a=foo&b=3")
			So(code, ShouldEqual, http.StatusBadRequest)
			So(body, ShouldBeEmpty)
		})

		Convey("missing operands are a 400 with an empty body", func() {
			code, body, _ := get(srv.URL + "/sum")
			So(code, ShouldEqual, http.StatusBadRequest)
			So(body, ShouldBeEmpty)
		})
	})

	Convey("Given a service that panics", t, func() {
		srv := newHTTPServer(panicService{})
		defer srv.Close()

		Convey("the fault is a 400 with an empty body", func() {
			code, body, _ := get(srv.URL + "/sum?a=2&b=3")
			So(code, ShouldEqual, http.StatusBadRequest)
			So(body, ShouldBeEmpty)
		})
	})
}

func TestHTTPRateLimit(t *testing.T) {
	Convey("Given a sumsvc limited to one request per second", t, func() {
		otTracer, zipkinTracer := noopTracers()
		svc := service.New(log.NewNopLogger(), discard.NewCounter(), false)
		eps := endpoints.New(svc, log.NewNopLogger(), discard.NewHistogram(), otTracer, zipkinTracer, 1)
		srv := httptest.NewServer(NewHTTPHandler(eps, otTracer, zipkinTracer, log.NewNopLogger()))
		defer srv.Close()

		Convey("a burst is rejected with 400", func() {
			code, _, _ := get(srv.URL + "/sum?a=2&b=3")
			So(code, ShouldEqual, http.StatusOK)
			rejected := 0
			for i := 0; i < 9; i++ {
				if code, _, _ := get(srv.URL + "/sum?a=2&b=3"); code == http.StatusBadRequest {
					rejected++
				}
			}
			So(rejected, ShouldBeGreaterThan, 0)

			Convey("and the next request after the refill is served", func() {
				time.Sleep(1100 * time.Millisecond)
				code, body, _ := get(srv.URL + "/sum?a=2&b=3")
				So(code, ShouldEqual, http.StatusOK)
				So(body, ShouldEqual, "The result is 5")
			})
		})
	})
}

func TestHTTPClient(t *testing.T) {
	otTracer, zipkinTracer := noopTracers()
	ctx := context.Background()

	Convey("Given an HTTP client of a lenient instance", t, func() {
		srv := newHTTPServer(service.New(log.NewNopLogger(), discard.NewCounter(), false))
		defer srv.Close()
		client, err := NewHTTPClient(srv.URL, otTracer, zipkinTracer, log.NewNopLogger())
		So(err, ShouldBeNil)

		Convey("Sum returns the remote result", func() {
			rs, err := client.Sum(ctx, str("2.5"), str("0.5"))
			So(err, ShouldBeNil)
			So(rs, ShouldEqual, 3)
		})

		Convey("a NaN result is decoded", func() {
			rs, err := client.Sum(ctx, str("foo"), nil)
			So(err, ShouldBeNil)
			So(math.IsNaN(rs), ShouldBeTrue)
		})
	})

	Convey("Given an HTTP client of a strict instance", t, func() {
		srv := newHTTPServer(service.New(log.NewNopLogger(), discard.NewCounter(), true))
		defer srv.Close()
		client, err := NewHTTPClient(strings.TrimPrefix(srv.URL, "http://"), otTracer, zipkinTracer, log.NewNopLogger())
		So(err, ShouldBeNil)

		Convey("a rejected request is ErrRejected", func() {
			_, err := client.Sum(ctx, str("foo"), str("1"))
			So(err, ShouldEqual, ErrRejected)
		})
	})

	Convey("parseResult refuses foreign bodies", t, func() {
		_, err := parseResult("hello")
		So(err, ShouldNotBeNil)
		_, err = parseResult("The result is five")
		So(err, ShouldNotBeNil)
	})
}

func TestHealthHandler(t *testing.T) {
	Convey("Without a database the health check reports it disabled", t, func() {
		rec := httptest.NewRecorder()
		NewHealthHandler(nil, log.NewNopLogger()).ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
		So(rec.Code, ShouldEqual, http.StatusOK)
		So(rec.Body.String(), ShouldEqual, `{"status":"ok","db":"disabled"}`+"\n")
	})

	Convey("A reachable database is connected", t, func() {
		rec := httptest.NewRecorder()
		NewHealthHandler(stubPinger{}, log.NewNopLogger()).ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
		So(rec.Code, ShouldEqual, http.StatusOK)
		So(rec.Body.String(), ShouldContainSubstring, `"db":"connected"`)
	})

	Convey("An unreachable database is a 503", t, func() {
		rec := httptest.NewRecorder()
		NewHealthHandler(stubPinger{err: errors.New("refused")}, log.NewNopLogger()).ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
		So(rec.Code, ShouldEqual, http.StatusServiceUnavailable)
		So(rec.Body.String(), ShouldContainSubstring, `"db":"disconnected"`)
	})
}
