package endpoints

import (
	"net/http"

	"github.com/go-kit/kit/endpoint"
	httptransport "github.com/go-kit/kit/transport/http"
)

var (
	_ endpoint.Failer           = (*SumResponse)(nil)
	_ httptransport.Headerer    = (*SumResponse)(nil)
	_ httptransport.StatusCoder = (*SumResponse)(nil)
)

// SumResponse collects the response values for the Sum method. Err holds
// business errors from the service; transport faults are returned as the
// endpoint error instead.
type SumResponse struct {
	Rs  float64 `json:"rs"`
	Err error   `json:"-"`
}

// Failed implements endpoint.Failer.
func (r SumResponse) Failed() error {
	return r.Err
}

func (r SumResponse) StatusCode() int {
	if r.Err != nil {
		return http.StatusBadRequest
	}
	return http.StatusOK
}

func (r SumResponse) Headers() http.Header {
	return http.Header{"Content-Type": []string{"text/html; charset=utf-8"}}
}
