// Package main provides the forgeq worker process: the reservation
// loop that polls its configured queues, forks a child per job, and
// reports failures/stats/results through the configured sinks.
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof" // #nosec G108 - pprof is intentionally exposed for debugging, isolated to separate port
	"os"
	"time"

	"github.com/forgeq/forgeq/internal/config"
	"github.com/forgeq/forgeq/internal/events"
	"github.com/forgeq/forgeq/internal/factory"
	"github.com/forgeq/forgeq/internal/failuresink"
	"github.com/forgeq/forgeq/internal/foreman"
	"github.com/forgeq/forgeq/internal/jobs"
	"github.com/forgeq/forgeq/internal/logger"
	"github.com/forgeq/forgeq/internal/metrics"
	"github.com/forgeq/forgeq/internal/queueport"
	"github.com/forgeq/forgeq/internal/result"
	"github.com/forgeq/forgeq/internal/statssink"
	"github.com/forgeq/forgeq/internal/store"
	"github.com/forgeq/forgeq/internal/worker"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := log.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close logger: %v\n", err)
		}
	}()
	logger.SetDefault(log)

	workerLog := log.WithComponent(logger.ComponentWorker).WithSource(logger.LogSourceInternal)

	registry := factory.NewRegistry()
	jobs.Register(registry)

	bus := events.NewBus(workerLog)

	// A sentinel last argument means this process was re-exec'd by a
	// Foreman to execute a single job, not to run the reservation loop.
	if len(os.Args) > 1 && os.Args[len(os.Args)-1] == foreman.Sentinel {
		hostname, _ := os.Hostname()
		foreman.RunChild(registry, bus, fmt.Sprintf("%s:%d", hostname, os.Getpid()))
		return
	}

	workerLog.Info("worker starting",
		"queues", cfg.Queues,
		"fork", cfg.Fork,
		"interval", cfg.Interval,
		"redis_url", cfg.RedisURL)

	pprofPort := os.Getenv("PPROF_PORT")
	if pprofPort == "" {
		pprofPort = "6061"
	}
	go func() {
		workerLog.Info("starting pprof server", "port", pprofPort)
		server := &http.Server{
			Addr:              ":" + pprofPort,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		if err := server.ListenAndServe(); err != nil {
			workerLog.Error("pprof server failed", "error", err)
		}
	}()

	redisStore, err := store.NewRedisStore(cfg.RedisURL)
	if err != nil {
		workerLog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisStore.Close(); err != nil {
			workerLog.Error("failed to close redis store", "error", err)
		}
	}()

	ports := make([]queueport.Port, len(cfg.Queues))
	for i, name := range cfg.Queues {
		ports[i] = queueport.NewRedisPort(redisStore, name, cfg.PopTimeout)
	}

	var resultBackend result.Backend
	if cfg.ResultBackendEnabled {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			workerLog.Error("failed to parse redis url for result backend", "error", err)
			os.Exit(1)
		}
		resultBackend = result.NewRedisBackend(redis.NewClient(opts), cfg.ResultBackendTTLSuccess, cfg.ResultBackendTTLFailure)
		workerLog.Info("result backend enabled",
			"success_ttl", cfg.ResultBackendTTLSuccess,
			"failure_ttl", cfg.ResultBackendTTLFailure)
	}

	var fm foreman.Foreman
	if cfg.Fork {
		fm = foreman.NewReexecForeman()
	}

	collector := metrics.Default()
	subscribeMetrics(bus, collector)

	w := worker.New(worker.Config{
		Queues:        ports,
		Store:         redisStore,
		FailureSink:   failuresink.NewRedisSink(redisStore),
		StatsSink:     statssink.NewRedisSink(redisStore),
		Factory:       registry,
		Bus:           bus,
		Foreman:       fm,
		Fork:          cfg.Fork,
		Interval:      cfg.Interval,
		Logger:        workerLog,
		ResultBackend: resultBackend,
	})

	stopSignals := w.ListenForSignals()
	defer stopSignals()

	go logMetricsPeriodically(workerLog, collector, ports)

	if err := w.Work(context.Background()); err != nil {
		workerLog.Error("worker exited with error", "error", err)
		os.Exit(1)
	}

	workerLog.Info("worker shut down successfully")
}

// subscribeMetrics feeds the in-process Collector off the same
// lifecycle events the Failure/Stats sinks observe, so it is exercised
// by the real reservation loop rather than left as dead code.
func subscribeMetrics(bus *events.Bus, collector *metrics.Collector) {
	bus.Subscribe(events.JobBeforePerform, func(events.Event) error {
		collector.RecordJobStarted()
		return nil
	})
	bus.Subscribe(events.JobPerformed, func(e events.Event) error {
		collector.RecordJobCompleted(time.Since(e.At))
		return nil
	})
	bus.Subscribe(events.JobFailed, func(e events.Event) error {
		collector.RecordJobFailed(time.Since(e.At))
		return nil
	})
}

// logMetricsPeriodically emits the periodic system metrics log line the
// teacher's worker main prints every 30 seconds.
func logMetricsPeriodically(log logger.Logger, collector *metrics.Collector, ports []queueport.Port) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		for _, p := range ports {
			if depther, ok := p.(interface {
				Depth(context.Context) (int64, error)
			}); ok {
				if depth, err := depther.Depth(context.Background()); err == nil {
					collector.RecordQueueDepth(p.Name(), depth)
				}
			}
		}

		m := collector.GetMetrics()
		log.Info("system metrics",
			"jobs_processed", m.TotalJobsProcessed,
			"jobs_completed", m.TotalJobsCompleted,
			"jobs_failed", m.TotalJobsFailed,
			"avg_duration_ms", m.AvgJobDuration.Milliseconds(),
			"worker_utilization", fmt.Sprintf("%.1f%%", m.WorkerUtilization),
			"error_rate", fmt.Sprintf("%.2f%%", m.ErrorRate),
			"uptime", m.Uptime.String(),
		)
	}
}
