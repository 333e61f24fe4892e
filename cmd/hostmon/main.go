package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/speedwagon-io/hostmon/internal/collector"
	"github.com/speedwagon-io/hostmon/internal/config"
	"github.com/speedwagon-io/hostmon/internal/exporter"
	"github.com/speedwagon-io/hostmon/internal/lib/logger/sl"
	"github.com/speedwagon-io/hostmon/internal/server"
	"github.com/speedwagon-io/hostmon/internal/shell"
	"github.com/speedwagon-io/hostmon/internal/store"
)

const (
	shutdownTimeout = 10 * time.Second
	// Sources older than this are reported as degraded on /health.
	freshnessMaxAge = 5 * time.Minute
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	once := flag.Bool("once", false, "print one report as JSON and exit")
	flag.Parse()

	cfg := config.MustLoad(*configPath)

	log := sl.SetupLogger(cfg.Log.Level, cfg.Log.Format)

	log.Info("starting hostmon",
		slog.String("env", cfg.Env),
		slog.Int("hdds", len(cfg.HDDNames)),
		slog.Int("ping_targets", len(cfg.PingTargets)),
		slog.Duration("refresh_timeout", cfg.Refresh.Timeout),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var st *store.SQLiteStore
	if cfg.Store.Enabled {
		var err error
		st, err = store.NewSQLiteStore(log, cfg.Store.Path)
		if err != nil {
			log.Error("failed to open state store", sl.Err(err))
			os.Exit(1)
		}
		log.Info("state store enabled", slog.String("path", cfg.Store.Path))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	sources := collector.SourcesFromConfig(cfg, shell.LocalShell{Timeout: cfg.Commands.Timeout})
	opts := collector.Options{
		Timeout:  cfg.Refresh.Timeout,
		Interval: cfg.Refresh.Interval,
		Observer: exporter.NewRefreshMetrics(registry),
	}
	if st != nil {
		opts.Store = st
	}

	agg := collector.NewAggregator(ctx, log, sources, opts)

	if *once {
		printReport(ctx, agg)
		closeStore(log, st)
		return
	}

	registry.MustRegister(exporter.New(log, agg))

	srv := server.NewServer(log, cfg.HTTP.Address(), agg, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv.AddChecker(server.NewToolsHealthChecker(sources.Tools()))
	srv.AddChecker(server.NewFreshnessHealthChecker(agg.Status, freshnessMaxAge))
	if st != nil {
		srv.AddChecker(server.NewStoreHealthChecker(st.Count))
	}

	if err := srv.Start(); err != nil {
		log.Error("failed to start http server", sl.Err(err))
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received signal, shutting down", slog.String("signal", sig.String()))
		cancel()
	}()

	agg.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	agg.Stop()

	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("failed to stop http server", sl.Err(err))
	}

	closeStore(log, st)

	log.Info("hostmon stopped")
}

// printReport waits for the first refresh of every source so the printed
// report is complete.
func printReport(ctx context.Context, agg *collector.Aggregator) {
	deadline := time.Now().Add(shutdownTimeout)
	for time.Now().Before(deadline) && !allReady(agg) {
		time.Sleep(50 * time.Millisecond)
	}

	report := agg.Report(ctx)
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

func allReady(agg *collector.Aggregator) bool {
	for _, s := range agg.Status() {
		if s.UpdatedAt.IsZero() {
			return false
		}
	}
	return true
}

func closeStore(log *slog.Logger, st *store.SQLiteStore) {
	if st == nil {
		return
	}
	if err := st.Close(); err != nil {
		log.Error("failed to close state store", sl.Err(err))
	}
}
