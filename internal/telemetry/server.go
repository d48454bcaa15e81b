package telemetry

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Serve starts a metrics endpoint on addr in the background. Batch runs
// over large input files take hours; this lets an operator watch
// progress without attaching to logs. Errors are logged, not fatal.
func Serve(addr string, logger *zap.Logger) {
	if addr == "" {
		return
	}
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics listener stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
}
