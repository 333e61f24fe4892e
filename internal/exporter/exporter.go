package exporter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/speedwagon-io/hostmon/internal/model"
)

const (
	namespace = "hostmon"

	collectTimeout = 10 * time.Second
)

type Reporter interface {
	Report(ctx context.Context) model.Report
}

type Exporter struct {
	log         *slog.Logger
	reporter    Reporter
	parseErrors *prometheus.CounterVec
}

var (
	cpuTemperatureDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "cpu", "temperature_celsius"),
		"CPU package temperature",
		nil, nil,
	)
	driveStatusDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "drive", "active"),
		"1 if the drive reports an active power state",
		[]string{"drive", "status"}, nil,
	)
	poolStatusDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "zpool", "online"),
		"1 if the pool state is ONLINE",
		[]string{"pool", "state"}, nil,
	)
	poolErrorsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "zpool", "errors_total"),
		"Pool error counters",
		[]string{"pool", "type"}, nil,
	)
	poolDriveStatusDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "zpool", "drive_online"),
		"1 if the pool member is ONLINE",
		[]string{"pool", "drive", "state"}, nil,
	)
	poolDriveErrorsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "zpool", "drive_errors_total"),
		"Pool member error counters",
		[]string{"pool", "drive", "type"}, nil,
	)
	pingUpDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "ping", "up"),
		"1 if the target answered",
		[]string{"target"}, nil,
	)
	pingLatencyDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "ping", "latency_seconds"),
		"Round trip time of the last probe",
		[]string{"target"}, nil,
	)
	scrapeDuration = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "scrape", "collector_duration_seconds"),
		"Number of seconds taken to scrape metrics",
		nil, nil,
	)
	scrapeSuccess = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "scrape", "collector_success"),
		"1 if every source had a value during the scrape",
		nil, nil,
	)
)

func New(log *slog.Logger, reporter Reporter) *Exporter {
	return &Exporter{
		log:      log,
		reporter: reporter,
		parseErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_errors_total",
			Help:      "Values that could not be converted to numbers",
		}, []string{"field"}),
	}
}

func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- cpuTemperatureDesc
	ch <- driveStatusDesc
	ch <- poolStatusDesc
	ch <- poolErrorsDesc
	ch <- poolDriveStatusDesc
	ch <- poolDriveErrorsDesc
	ch <- pingUpDesc
	ch <- pingLatencyDesc
	ch <- scrapeDuration
	ch <- scrapeSuccess
	e.parseErrors.Describe(ch)
}

func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()
	report := e.reporter.Report(ctx)

	ok := e.CollectTemperature(ch, report.Temperature)
	ok = e.CollectDrives(ch, report.HDDs) && ok
	ok = e.CollectPool(ch, report.Zpool) && ok
	ok = e.CollectPings(ch, report.Pings) && ok

	var success float64
	if ok {
		success = 1
	}

	ch <- prometheus.MustNewConstMetric(scrapeDuration, prometheus.GaugeValue, time.Since(start).Seconds())
	ch <- prometheus.MustNewConstMetric(scrapeSuccess, prometheus.GaugeValue, success)
	e.parseErrors.Collect(ch)
}

func (e *Exporter) CollectTemperature(ch chan<- prometheus.Metric, temperature *string) bool {
	if temperature == nil {
		return false
	}

	value, ok := e.parseFloat(*temperature, "temperature")
	if !ok {
		return false
	}

	ch <- prometheus.MustNewConstMetric(cpuTemperatureDesc, prometheus.GaugeValue, value)
	return true
}

func (e *Exporter) CollectDrives(ch chan<- prometheus.Metric, drives []model.DriveState) bool {
	if drives == nil {
		return false
	}

	for _, drive := range drives {
		status := "unknown"
		if drive.Status != nil {
			status = *drive.Status
		}

		var active float64
		if status == "active" {
			active = 1
		}

		ch <- prometheus.MustNewConstMetric(driveStatusDesc, prometheus.GaugeValue, active, drive.Name, status)
	}

	return true
}

func (e *Exporter) CollectPool(ch chan<- prometheus.Metric, pool *model.PoolStatus) bool {
	if pool == nil {
		return false
	}

	ch <- prometheus.MustNewConstMetric(poolStatusDesc, prometheus.GaugeValue, online(pool.State), pool.Name, pool.State)

	counters := map[string]string{"read": pool.Read, "write": pool.Write, "checksum": pool.Checksum}
	for kind, raw := range counters {
		if raw == "" {
			continue
		}
		if value, ok := e.parseFloat(raw, "zpool_"+kind); ok {
			ch <- prometheus.MustNewConstMetric(poolErrorsDesc, prometheus.CounterValue, value, pool.Name, kind)
		}
	}

	for _, drive := range pool.Drives {
		ch <- prometheus.MustNewConstMetric(poolDriveStatusDesc, prometheus.GaugeValue, online(drive.State), pool.Name, drive.Name, drive.State)

		driveCounters := map[string]string{"read": drive.Read, "write": drive.Write, "checksum": drive.Checksum}
		for kind, raw := range driveCounters {
			if value, ok := e.parseFloat(raw, "zpool_drive_"+kind); ok {
				ch <- prometheus.MustNewConstMetric(poolDriveErrorsDesc, prometheus.CounterValue, value, pool.Name, drive.Name, kind)
			}
		}
	}

	return pool.State != model.PoolStateError
}

func (e *Exporter) CollectPings(ch chan<- prometheus.Metric, pings []model.PingResult) bool {
	if pings == nil {
		return false
	}

	for _, ping := range pings {
		var up float64
		if ping.Result != nil {
			up = 1
			if ms, ok := e.parseFloat(*ping.Result, "ping_latency"); ok {
				ch <- prometheus.MustNewConstMetric(pingLatencyDesc, prometheus.GaugeValue, ms/1000, ping.Target)
			}
		}
		ch <- prometheus.MustNewConstMetric(pingUpDesc, prometheus.GaugeValue, up, ping.Target)
	}

	return true
}

func online(state string) float64 {
	if strings.EqualFold(state, "ONLINE") {
		return 1
	}
	return 0
}
