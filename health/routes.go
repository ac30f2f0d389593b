package health

import "net/http"

// Routes builds the worker's probe mux. Liveness and readiness are served
// separately so a liveness probe does not restart a healthy worker during
// a broker outage: /live reflects only the supervision loop, /ready only
// the broker connection. /health aggregates both for humans.
func Routes(state PipelineState) *http.ServeMux {
	liveness := NewRegistry()
	liveness.Register(NewLivenessChecker(state))

	readiness := NewRegistry()
	readiness.Register(NewReadinessChecker(state))

	aggregate := NewRegistry()
	aggregate.Register(NewLivenessChecker(state))
	aggregate.Register(NewReadinessChecker(state))

	mux := http.NewServeMux()
	mux.Handle("/live", liveness.Handler())
	mux.Handle("/ready", readiness.Handler())
	mux.Handle("/health", aggregate.Handler())
	return mux
}
