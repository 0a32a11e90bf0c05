// Package observability exposes the prometheus metrics endpoint.
package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/nordkom/caseflow/internal/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("observability",
	fx.Invoke(StartMetricsServer),
)

// StartMetricsServer serves /metrics on the configured address. An empty
// address disables the endpoint.
func StartMetricsServer(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) {
	if cfg.MetricsAddr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsLog := log.Named("observability.metrics")

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				metricsLog.Info("metrics endpoint listening", zap.String("addr", cfg.MetricsAddr))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					metricsLog.Error("metrics endpoint failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
}
