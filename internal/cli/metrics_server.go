package cli

import (
	"context"
	"net/http"

	"github.com/rohmanhakim/linkcheck/internal/metrics"
)

// metricsHTTPServer serves /metrics for the lifetime of one run, per
// SPEC_FULL §3.4: "otherwise metrics are simply not scraped".
type metricsHTTPServer struct {
	server *http.Server
}

func startMetricsServer(addr string, m *metrics.Metrics) *metricsHTTPServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		_ = srv.ListenAndServe()
	}()

	return &metricsHTTPServer{server: srv}
}

func (s *metricsHTTPServer) Shutdown(ctx context.Context) {
	_ = s.server.Shutdown(ctx)
}
