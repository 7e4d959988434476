package readapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler returns the Prometheus text-exposition handler for the
// counters and gauges the evaluation pipeline records. Wiring it onto a
// path is the transport layer's job; this is the interface it calls into.
func (a *API) MetricsHandler() http.Handler {
	return promhttp.Handler()
}
