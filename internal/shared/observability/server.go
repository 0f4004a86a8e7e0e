package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"strata/internal/shared/util"
)

// HealthCheck produces the payload served at /health.
type HealthCheck func(ctx context.Context) (status string, detail any)

// Server exposes Prometheus metrics and a health endpoint on a side
// port, separate from the analysis transport.
type Server struct {
	addr   string
	check  HealthCheck
	server *http.Server
}

func NewServer(port int, check HealthCheck) *Server {
	return &Server{
		addr:  fmt.Sprintf(":%d", port),
		check: check,
	}
}

func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status, detail := s.check(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if status != "up" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status":        status,
			"detail":        detail,
			"heap_alloc_mb": util.GetHeapAllocMB(),
		})
	})

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}

	slog.Info("observability server starting", "addr", s.addr)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("observability server failed", "error", err)
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
