package metrics

import (
	"errors"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "penline"

// Gate outcomes
const (
	GateAnonymous   = "anonymous"
	GateFallback    = "fallback"
	GateExpired     = "token_expired"
	GateBanned      = "banned"
	GateNoSession   = "no_session"
	GateSessionOld  = "session_expired"
	GateSuperseded  = "superseded"
	GateAuthorized  = "authenticated"
	GateStoreFailed = "error"
)

var (
	once sync.Once

	// GateDecisions counts gate outcomes by label
	GateDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "auth", Name: "gate_decisions_total",
		Help: "Authentication gate decisions by outcome",
	}, []string{"outcome"})

	// LoginAttempts counts login attempts by result
	LoginAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "auth", Name: "login_attempts_total",
		Help: "Login attempts by result",
	}, []string{"result"})

	// Logouts counts logout calls by result
	Logouts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "auth", Name: "logouts_total",
		Help: "Logout calls by result",
	}, []string{"result"})

	// SessionsSwept counts sessions removed by the background sweeper
	SessionsSwept = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "session", Name: "swept_total",
		Help: "Expired sessions deleted by the sweeper",
	})

	// HTTPRequests counts served requests by method, route and status
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "http", Name: "requests_total",
		Help: "HTTP requests by method, route and status code",
	}, []string{"method", "route", "status"})
)

// Register registers all collectors. If r is nil, prometheus.DefaultRegisterer is used.
// Duplicate registration is ignored.
func Register(r prometheus.Registerer) {
	once.Do(func() {
		if r == nil {
			r = prometheus.DefaultRegisterer
		}

		collectors := []prometheus.Collector{
			GateDecisions, LoginAttempts, Logouts, SessionsSwept, HTTPRequests,
		}
		for _, c := range collectors {
			if err := r.Register(c); err != nil {
				var are prometheus.AlreadyRegisteredError
				if !errors.As(err, &are) {
					panic(err)
				}
			}
		}
	})
}

// Handler returns the HTTP handler for /metrics
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}
