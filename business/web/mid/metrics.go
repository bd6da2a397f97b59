package mid

import (
	"context"
	"net/http"
	"strconv"

	"github.com/argonprotocol/argon/foundation/web"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the request counters of the node's http apis.
type Metrics struct {
	requests *prometheus.CounterVec
	errors   prometheus.Counter
	panics   prometheus.Counter
}

// NewMetrics constructs the request metrics and registers them. A nil
// registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer, api string) *Metrics {
	labels := prometheus.Labels{"api": api}

	m := Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "argon",
			Subsystem:   "http",
			Name:        "requests_total",
			Help:        "Requests handled, by status code or error.",
			ConstLabels: labels,
		}, []string{"code"}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "argon",
			Subsystem:   "http",
			Name:        "errors_total",
			Help:        "Requests that returned an error.",
			ConstLabels: labels,
		}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "argon",
			Subsystem:   "http",
			Name:        "panics_total",
			Help:        "Requests that panicked.",
			ConstLabels: labels,
		}),
	}

	if reg != nil {
		reg.MustRegister(m.requests, m.errors, m.panics)
	}

	return &m
}

// Metrics updates program counters.
func (m *Metrics) Metrics() web.Middleware {

	// This is the actual middleware function to be executed.
	mw := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			// Call the next handler.
			err := handler(ctx, w, r)

			code := "error"
			if err == nil {
				if v, verr := web.GetValues(ctx); verr == nil {
					code = strconv.Itoa(v.StatusCode)
				}
			}
			m.requests.WithLabelValues(code).Inc()

			if err != nil {
				m.errors.Inc()
			}

			// Return the error so it can be handled further up the chain.
			return err
		}

		return h
	}

	return mw
}
