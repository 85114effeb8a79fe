package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/gridrepair/infra/logger"
)

// NewMux returns a mux exposing the gatherer on /metrics. A nil gatherer
// serves the default registry.
func NewMux(g prometheus.Gatherer) *http.ServeMux {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return mux
}

// StartPromServer serves the gatherer on /metrics at addr until ctx is
// canceled.
func StartPromServer(ctx context.Context, addr string, g prometheus.Gatherer) error {
	return Serve(ctx, addr, NewMux(g))
}

// Serve runs h on addr and shuts it down gracefully when ctx is canceled.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	log := logger.New("http-server")
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("http server shutdown: %v", err)
		}
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
