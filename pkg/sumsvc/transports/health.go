package transports

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// Pinger reports whether a backing store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db"`
}

// NewHealthHandler answers GET /health. With a nil pinger the database is
// reported as "disabled"; a failed ping answers 503.
func NewHealthHandler(db Pinger, logger log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", DB: "disabled"}
		code := http.StatusOK
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			resp.DB = "connected"
			if err := db.Ping(ctx); err != nil {
				level.Error(logger).Log("health", "db", "err", err)
				resp = healthResponse{Status: "error", DB: "disconnected"}
				code = http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			level.Error(logger).Log("health", "encode", "err", err)
		}
	})
}
