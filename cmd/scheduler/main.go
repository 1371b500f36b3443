// Package main provides the forgeq scheduler process: a cron-driven
// loop that enqueues registered Schedules onto their target Queue
// Ports, guarded by a distributed lock so only one replica fires a
// given tick.
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof" // #nosec G108 - pprof is intentionally exposed for debugging, isolated to separate port
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/forgeq/forgeq/internal/config"
	"github.com/forgeq/forgeq/internal/logger"
	"github.com/forgeq/forgeq/internal/queueport"
	"github.com/forgeq/forgeq/internal/scheduler"
	"github.com/forgeq/forgeq/internal/store"
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

	schedulerLog := log.WithComponent(logger.ComponentScheduler).WithSource(logger.LogSourceInternal)

	schedulerLog.Info("scheduler starting",
		"redis_url", cfg.RedisURL,
		"cron_scheduler_enabled", cfg.CronSchedulerEnabled,
		"cron_scheduler_interval", cfg.CronSchedulerInterval)

	pprofPort := os.Getenv("PPROF_PORT")
	if pprofPort == "" {
		pprofPort = "6062"
	}
	go func() {
		schedulerLog.Info("starting pprof server", "port", pprofPort)
		server := &http.Server{
			Addr:              ":" + pprofPort,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		if err := server.ListenAndServe(); err != nil {
			schedulerLog.Error("pprof server failed", "error", err)
		}
	}()

	redisStore, err := store.NewRedisStore(cfg.RedisURL)
	if err != nil {
		schedulerLog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisStore.Close(); err != nil {
			schedulerLog.Error("failed to close redis store", "error", err)
		}
	}()

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		schedulerLog.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}
	lockClient := redis.NewClient(opts)
	defer func() {
		if err := lockClient.Close(); err != nil {
			schedulerLog.Error("failed to close redis client", "error", err)
		}
	}()

	ports := make([]queueport.Port, len(cfg.Queues))
	for i, name := range cfg.Queues {
		ports[i] = queueport.NewRedisPort(redisStore, name, cfg.PopTimeout)
	}
	enqueuer := scheduler.NewPortEnqueuer(ports...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.CronSchedulerEnabled {
		registry := scheduler.NewRegistry()

		// Example schedules for operators to replace with their own.
		// registry.MustRegister(&scheduler.Schedule{
		// 	ID:       "daily-report",
		// 	Cron:     "0 0 * * *",
		// 	Job:      "process_data",
		// 	Queue:    "default",
		// 	Timezone: "UTC",
		// 	Enabled:  true,
		// })

		cronScheduler := scheduler.NewCronScheduler(registry, enqueuer, lockClient, cfg.CronSchedulerInterval)
		schedulerLog.Info("cron scheduler initialized",
			"interval", cfg.CronSchedulerInterval,
			"schedules", registry.Count())

		go cronScheduler.Start(ctx)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	schedulerLog.Info("scheduler ready")

	sig := <-sigChan
	schedulerLog.Info("received shutdown signal, initiating graceful shutdown", "signal", sig)

	cancel()
	time.Sleep(2 * time.Second)

	schedulerLog.Info("scheduler shut down successfully")
}
