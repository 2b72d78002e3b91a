// Command qpilotd is the qpilot control plane daemon: it loads
// configuration, wires the persistence boundary, queue, pilot registry
// and orchestrator together, and serves the HTTP surface (spec.md §6).
// Grounded on services/scheduler/main.go's flag-parsed, log.Printf-banner
// main(), generalized from a single gRPC service to the full component
// set SPEC_FULL.md names.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/perclft/qpilot/internal/config"
	"github.com/perclft/qpilot/internal/httpapi"
	"github.com/perclft/qpilot/internal/metrics"
	"github.com/perclft/qpilot/internal/obslog"
	"github.com/perclft/qpilot/internal/orchestrator"
	"github.com/perclft/qpilot/internal/pilot"
	"github.com/perclft/qpilot/internal/pilot/braket"
	"github.com/perclft/qpilot/internal/pilot/ibm"
	"github.com/perclft/qpilot/internal/pilot/ionq"
	"github.com/perclft/qpilot/internal/pilot/local"
	"github.com/perclft/qpilot/internal/queue"
	"github.com/perclft/qpilot/internal/store"
	"github.com/perclft/qpilot/internal/transpiler"
)

func main() {
	configPath := flag.String("config", "", "config file (default is ./config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := obslog.New(obslog.Config{
		Level:  obslog.Level(cfg.Logging.Level),
		Format: obslog.Format(cfg.Logging.Format),
		Output: os.Stdout,
	})

	st, err := openStore(cfg)
	if err != nil {
		logger.Error("failed to open store", err)
		os.Exit(1)
	}
	logger.Info("store ready")

	q := openQueue(cfg)
	logger.Info("queue ready")

	pilots := registerPilots(cfg)
	if err := seedDevicesAndProviders(context.Background(), st, pilots); err != nil {
		logger.Error("failed to seed devices/providers", err)
	}

	m := metrics.New()

	orch := orchestrator.New(st, q, transpiler.NewStandardGraph(), pilots, m, logger, cfg.Execution.ExecuteAsynchronously, cfg.Execution.EnableExperimentalFeatures)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	if cfg.Execution.ExecuteAsynchronously {
		q.Start(workerCtx, orch.Handler())
		logger.Info("worker pool started")
	}

	router := httpapi.NewRouter(orch, st, pilots, logger, m)
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: router}

	go func() {
		logger.Info(fmt.Sprintf("qpilotd listening on %s", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server stopped", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", err)
	}
	stopWorkers()
	if err := q.Close(); err != nil {
		logger.Error("queue close failed", err)
	}
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.Database.DSN == "" {
		return store.NewMemory(), nil
	}
	return store.OpenPostgres(cfg.Database.DSN)
}

func openQueue(cfg *config.Config) queue.Queue {
	if cfg.Queue.RedisAddr == "" {
		return queue.NewInProcess(cfg.Queue.Workers)
	}
	return queue.NewRedis(cfg.Queue.RedisAddr, cfg.Queue.Workers)
}

// registerPilots builds the provider registry: the local simulator
// always ships, remote providers are wired when their base URL is
// configured (spec.md §4.3/§9).
func registerPilots(cfg *config.Config) map[string]pilot.Pilot {
	pilots := map[string]pilot.Pilot{}

	localPilot := local.New()
	pilots[localPilot.ProviderName()] = localPilot

	if cfg.Providers.IBMBaseURL != "" {
		p := ibm.New(cfg.Providers.IBMBaseURL)
		pilots[p.ProviderName()] = p
	}
	if cfg.Providers.BraketBaseURL != "" {
		p := braket.New(cfg.Providers.BraketBaseURL)
		pilots[p.ProviderName()] = p
	}
	if cfg.Providers.IonQBaseURL != "" {
		p := ionq.New(cfg.Providers.IonQBaseURL)
		pilots[p.ProviderName()] = p
	}
	return pilots
}

// seedDevicesAndProviders records every registered pilot's default
// provider row and seed device directory on startup, the way
// base_pilot.py's registration step runs once per provider at boot.
func seedDevicesAndProviders(ctx context.Context, st store.Store, pilots map[string]pilot.Pilot) error {
	for _, p := range pilots {
		if err := st.SaveProvider(ctx, p.DefaultProvider()); err != nil {
			return fmt.Errorf("save provider %s: %w", p.ProviderName(), err)
		}
		if err := p.SaveDevicesFromProvider(ctx, "", st); err != nil {
			return fmt.Errorf("seed devices for %s: %w", p.ProviderName(), err)
		}
	}
	return nil
}
