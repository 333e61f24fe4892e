package collector

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/speedwagon-io/hostmon/internal/cache"
	"github.com/speedwagon-io/hostmon/internal/lib/logger/sl"
	"github.com/speedwagon-io/hostmon/internal/model"
	"github.com/speedwagon-io/hostmon/internal/sensors"
	"github.com/speedwagon-io/hostmon/internal/store"
	"golang.org/x/sync/errgroup"
)

const storeTimeout = 5 * time.Second

type Options struct {
	// Timeout is the retrieve budget of each source.
	Timeout time.Duration
	// Interval enables background refreshes in Run. Zero disables them.
	Interval time.Duration
	Observer cache.Observer
	// Store, when set, seeds every source on start and receives each
	// refreshed value.
	Store store.Store
}

type SourceStatus struct {
	Name      string
	HasValue  bool
	UpdatedAt time.Time
}

type refresher interface {
	Name() string
	Refresh(ctx context.Context) error
	HasValue() bool
	UpdatedAt() time.Time
}

// Aggregator owns one cached refresher per telemetry source for the
// lifetime of the process.
type Aggregator struct {
	log      *slog.Logger
	interval time.Duration

	temperature *cache.Refresher[*string]
	hdds        *cache.Refresher[[]model.DriveState]
	zpool       *cache.Refresher[model.PoolStatus]
	pings       *cache.Refresher[[]model.PingResult]

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewAggregator(ctx context.Context, log *slog.Logger, src Sources, opts Options) *Aggregator {
	a := &Aggregator{
		log:      log,
		interval: opts.Interval,
		stopCh:   make(chan struct{}),
	}

	hddNames := append([]string{}, src.HDDNames...)
	pingTargets := append([]string{}, src.PingTargets...)

	a.temperature = cache.New(SourceTemperature,
		func(ctx context.Context) (*string, error) {
			return sensors.ReadCPUTemperature(ctx, src.Runner, src.Sensors), nil
		},
		sourceOptions[*string](ctx, log, SourceTemperature, opts)...,
	)
	a.hdds = cache.New(SourceHDDs,
		func(ctx context.Context) ([]model.DriveState, error) {
			return sensors.ReadDriveStates(ctx, src.Runner, src.Hdparm, hddNames), nil
		},
		sourceOptions[[]model.DriveState](ctx, log, SourceHDDs, opts)...,
	)
	a.zpool = cache.New(SourceZpool,
		func(ctx context.Context) (model.PoolStatus, error) {
			return sensors.ReadPoolStatus(ctx, src.Runner, src.Zpool), nil
		},
		sourceOptions[model.PoolStatus](ctx, log, SourceZpool, opts)...,
	)
	a.pings = cache.New(SourcePings,
		func(ctx context.Context) ([]model.PingResult, error) {
			return sensors.Pings(ctx, src.Runner, src.Ping, pingTargets), nil
		},
		sourceOptions[[]model.PingResult](ctx, log, SourcePings, opts)...,
	)

	return a
}

func sourceOptions[T any](ctx context.Context, log *slog.Logger, name string, opts Options) []cache.Option[T] {
	options := []cache.Option[T]{
		cache.WithTimeout[T](opts.Timeout),
		cache.WithLogger[T](log),
		cache.WithObserver[T](opts.Observer),
	}

	if opts.Store == nil {
		return options
	}

	payload, updatedAt, err := opts.Store.Load(ctx, name)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		log.Warn("failed to load last known state", slog.String("source", name), sl.Err(err))
	default:
		var v T
		if err := json.Unmarshal(payload, &v); err != nil {
			log.Warn("discarding unreadable last known state", slog.String("source", name), sl.Err(err))
		} else {
			log.Info("seeded source from last known state",
				slog.String("source", name),
				slog.Time("updated_at", updatedAt),
			)
			options = append(options, cache.WithInitial(v))
		}
	}

	st := opts.Store
	options = append(options, cache.WithOnUpdate(func(v T) {
		data, err := json.Marshal(v)
		if err != nil {
			log.Error("failed to marshal state", slog.String("source", name), sl.Err(err))
			return
		}
		saveCtx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := st.Save(saveCtx, name, data); err != nil {
			log.Error("failed to save state", slog.String("source", name), sl.Err(err))
		}
	}))

	return options
}

// Report retrieves every source concurrently and assembles the result.
// It never fails: each source answers within its own budget and encodes
// command failures in its record.
func (a *Aggregator) Report(ctx context.Context) model.Report {
	var report model.Report
	var g errgroup.Group

	g.Go(func() error {
		if v, ok := a.temperature.Retrieve(ctx); ok {
			report.Temperature = v
		}
		return nil
	})
	g.Go(func() error {
		if v, ok := a.hdds.Retrieve(ctx); ok {
			report.HDDs = v
		}
		return nil
	})
	g.Go(func() error {
		if v, ok := a.zpool.Retrieve(ctx); ok {
			report.Zpool = &v
		}
		return nil
	})
	g.Go(func() error {
		if v, ok := a.pings.Retrieve(ctx); ok {
			report.Pings = v
		}
		return nil
	})
	_ = g.Wait()

	return report
}

func (a *Aggregator) refreshers() []refresher {
	return []refresher{a.temperature, a.hdds, a.zpool, a.pings}
}

// Status reports when each source last refreshed successfully.
func (a *Aggregator) Status() []SourceStatus {
	refs := a.refreshers()
	statuses := make([]SourceStatus, 0, len(refs))
	for _, r := range refs {
		statuses = append(statuses, SourceStatus{
			Name:      r.Name(),
			HasValue:  r.HasValue(),
			UpdatedAt: r.UpdatedAt(),
		})
	}
	return statuses
}

// Run refreshes every source on the configured interval until ctx is
// cancelled or Stop is called. With no interval it only waits.
func (a *Aggregator) Run(ctx context.Context) {
	a.wg.Add(1)
	defer a.wg.Done()

	if a.interval <= 0 {
		a.log.Info("background refresh disabled")
		select {
		case <-ctx.Done():
		case <-a.stopCh:
		}
		return
	}

	a.log.Info("starting background refresh", slog.Duration("interval", a.interval))

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.log.Info("context cancelled, stopping aggregator")
			return
		case <-a.stopCh:
			a.log.Info("stop signal received, stopping aggregator")
			return
		case <-ticker.C:
			a.refreshAll(ctx)
		}
	}
}

func (a *Aggregator) Stop() {
	a.stopOnce.Do(func() { close(a.stopCh) })
	a.wg.Wait()
}

func (a *Aggregator) refreshAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, r := range a.refreshers() {
		wg.Add(1)
		go func(r refresher) {
			defer wg.Done()
			if err := r.Refresh(ctx); err != nil {
				a.log.Error("background refresh failed",
					slog.String("source", r.Name()),
					sl.Err(err),
				)
			}
		}(r)
	}
	wg.Wait()
}
