package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	frontapi "github.com/LeastAuthority/thanos-wallet/internal/api"
	"github.com/LeastAuthority/thanos-wallet/internal/front/confirm"
	"github.com/LeastAuthority/thanos-wallet/internal/front/session"
	"github.com/LeastAuthority/thanos-wallet/internal/intercom"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadChannelConfig()
	if err != nil {
		logger.Error("failed to load channel config", "error", err)
		os.Exit(1)
	}

	conn, err := intercom.Dial(cfg, intercom.WithLogger(logger))
	if err != nil {
		logger.Error("failed to dial authority", "error", err, "endpoint", cfg.Endpoint)
		os.Exit(1)
	}
	defer conn.Close()

	sess := session.New(conn, session.Config{
		Logger:  logger,
		Metrics: session.NewMetrics(prometheus.DefaultRegisterer),
		Confirm: confirm.Config{
			Logger:  logger,
			Metrics: confirm.NewMetrics(prometheus.DefaultRegisterer),
		},
	})
	defer sess.Close()

	// 进程启动即预热状态缓存，失败不致命。
	warmCtx, cancelWarm := context.WithTimeout(ctx, 5*time.Second)
	if _, err := sess.FetchState(warmCtx); err != nil {
		logger.Warn("initial state fetch failed", "error", err)
	}
	cancelWarm()

	mux := http.NewServeMux()
	frontapi.NewHTTPHandler(sess).Register(mux)
	mux.Handle("/metrics", promhttp.Handler())
	httpSrv := &http.Server{
		Addr:    envOrDefault("FRONT_HTTP_ADDR", "127.0.0.1:8089"),
		Handler: mux,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server closed unexpectedly", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
}

func loadChannelConfig() (intercom.Config, error) {
	if path := os.Getenv("FRONT_CONFIG_FILE"); path != "" {
		return intercom.LoadConfigFile(path)
	}
	return intercom.LoadConfigFromEnv(), nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
