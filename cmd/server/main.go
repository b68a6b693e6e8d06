package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rgpdgate/internal/app"
	jwttoken "rgpdgate/internal/jwt_token"
	"rgpdgate/internal/platform/config"
	"rgpdgate/internal/platform/httpserver"
	"rgpdgate/internal/platform/logger"
	"rgpdgate/internal/platform/metrics"
	httptransport "rgpdgate/internal/transport/http"
)

// main wires config, logging and the service graph, then serves until
// SIGINT or SIGTERM. Business logic lives in the internal service packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config.load.failed", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	log := logger.New(cfg.Log, logger.WithViolationCounter(m))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, m, reg); err != nil {
		log.Error("server.exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger, m *metrics.Metrics, reg *prometheus.Registry) error {
	a, err := app.New(ctx, cfg, log, m, reg)
	if err != nil {
		return err
	}
	defer a.Close()

	handler := httptransport.NewHandler(a.Services, a.Policy, log)
	router := httptransport.NewRouter(handler, httptransport.RouterConfig{
		Validator: jwttoken.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer),
		Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Ready:     a.Health,
	})

	return httpserver.Run(ctx, httpserver.New(cfg.Server, router), cfg.Server, log)
}
