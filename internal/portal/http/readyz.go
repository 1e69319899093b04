package http

import (
	"net/http"
	"time"

	"github.com/nyaypaksh/memberportal/internal/portal/store"
	"github.com/nyaypaksh/memberportal/pkg/httpx"
)

// ReadyzHandler is the readiness probe: it checks the durable store before
// reporting ready, since every session decision depends on it.
func ReadyzHandler(startTime time.Time, version string, kv store.KeyValue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{"store": "ok"}
		status := "ok"
		code := http.StatusOK

		if err := kv.Ping(r.Context()); err != nil {
			checks["store"] = "error: " + err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, code, healthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
