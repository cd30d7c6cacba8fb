package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/codec"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/engine"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/httpapi"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/logging"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/metrics"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/state"
)

// #region main
func main() {
	addr := envOr("ESTIMATOR_ADDR", "localhost:50061")
	httpAddr := envOr("ESTIMATOR_HTTP_ADDR", "")
	dbPath := envOr("ESTIMATOR_DB", "")
	configPath := envOr("ESTIMATOR_CONFIG", "")
	logPath := envOr("ESTIMATOR_LOGFILE", "")
	debug, _ := strconv.ParseBool(envOr("ESTIMATOR_DEBUG", "false"))

	logger, err := logging.NewLogger(logPath, debug)
	if err != nil {
		log.Fatalf("failed to open log file %s: %v", logPath, err)
	}
	defer logger.Close()

	cfg := engine.DefaultConfig()
	if configPath != "" {
		if cfg, err = engine.LoadConfig(configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	if v := os.Getenv("ESTIMATOR_PARALLEL"); v != "" {
		if cfg.Parallel, err = strconv.ParseBool(v); err != nil {
			log.Fatalf("ESTIMATOR_PARALLEL: %v", err)
		}
	}
	eng, err := engine.New(cfg)
	if err != nil {
		log.Fatalf("failed to build engine: %v", err)
	}

	var store *state.Store
	if dbPath != "" {
		store, err = state.NewStore(dbPath)
		if err != nil {
			log.Fatalf("failed to open store: %v", err)
		}
		defer store.Close()
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("failed to listen on %s: %v", addr, err)
	}

	m := metrics.NewMetrics()
	g := grpc.NewServer()
	codec.NewServer(eng, store, logger.Logger).WithMetrics(m).Register(g)

	var httpSrv *http.Server
	if httpAddr != "" {
		httpSrv = &http.Server{
			Addr:         httpAddr,
			Handler:      httpapi.New(eng, store, logger.Logger).WithMetrics(m).Handler(os.Stdout),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			logger.Info("http api ready", "addr", httpAddr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http serve", "error", err)
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		logger.Info("shutting down")
		if httpSrv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			httpSrv.Shutdown(ctx)
			cancel()
		}
		g.GracefulStop()
	}()

	logger.Info("estimator ready", "addr", addr, "db", dbPath, "parallel", cfg.Parallel)
	if err := g.Serve(lis); err != nil {
		logger.Error("serve", "error", err)
	}
}

// #endregion main

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
