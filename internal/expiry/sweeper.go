// Package expiry runs the periodic sweep that expires stale empty orders.
package expiry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Config controls sweep cadence and the expiry threshold. ExpiryWindow is
// independent of Interval.
type Config struct {
	Interval     time.Duration `default:"1h" yaml:"interval"`
	InitialDelay time.Duration `default:"1m" yaml:"initial_delay"`
	ExpiryWindow time.Duration `default:"1h" yaml:"expiry_window"`
}

// DefaultConfig returns the hourly sweep with a one-hour window.
func DefaultConfig() Config {
	return Config{
		Interval:     time.Hour,
		InitialDelay: time.Minute,
		ExpiryWindow: time.Hour,
	}
}

// Repository performs the bulk expiration.
type Repository interface {
	BulkExpireEmptyOrders(ctx context.Context, cutoff, now time.Time) (int64, error)
}

// Sweeper periodically expires CREATED orders that have no items and are
// older than the expiry window. One sweeper runs one goroutine.
type Sweeper struct {
	cfg  Config
	repo Repository
	lg   *zap.Logger
	now  func() time.Time

	expired metric.Int64Counter
	runs    metric.Int64Counter

	lastSuccess atomic.Int64

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// New creates a Sweeper. Zero config durations fall back to DefaultConfig.
func New(cfg Config, repo Repository, lg *zap.Logger, mp metric.MeterProvider) (*Sweeper, error) {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.InitialDelay < 0 {
		cfg.InitialDelay = 0
	}
	if cfg.ExpiryWindow <= 0 {
		cfg.ExpiryWindow = def.ExpiryWindow
	}

	meter := mp.Meter("orderdesk.expiry")
	expired, err := meter.Int64Counter("orderdesk.orders.expired",
		metric.WithDescription("Orders moved to EXPIRED by the sweep"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create expired counter")
	}
	runs, err := meter.Int64Counter("orderdesk.expiry.runs",
		metric.WithDescription("Sweep runs, by result"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create runs counter")
	}

	return &Sweeper{
		cfg:     cfg,
		repo:    repo,
		lg:      lg,
		now:     time.Now,
		expired: expired,
		runs:    runs,
	}, nil
}

// Start launches the sweep goroutine. The first run happens after
// InitialDelay; every following run is scheduled Interval after the previous
// one finished. Calling Start on a running sweeper is a no-op.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go s.loop(ctx)

	s.lg.Info("Expiration sweep started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Duration("initial_delay", s.cfg.InitialDelay),
		zap.Duration("expiry_window", s.cfg.ExpiryWindow),
	)
}

// Stop cancels the sweep and waits for an in-flight run to return.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.lg.Info("Expiration sweep stopped")
}

func (s *Sweeper) loop(ctx context.Context) {
	defer s.wg.Done()

	timer := time.NewTimer(s.cfg.InitialDelay)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		// Errors are logged by RunOnce; the next tick retries.
		_, _ = s.RunOnce(ctx)
		timer.Reset(s.cfg.Interval)
	}
}

// RunOnce performs a single sweep and returns the number of expired orders.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	now := s.now()
	cutoff := now.Add(-s.cfg.ExpiryWindow)

	n, err := s.repo.BulkExpireEmptyOrders(ctx, cutoff, now)
	if err != nil {
		s.runs.Add(ctx, 1, metric.WithAttributes(resultAttr("error")))
		s.lg.Error("Expiration sweep failed",
			zap.Time("cutoff", cutoff),
			zap.Error(err),
		)
		return 0, errors.Wrap(err, "bulk expire empty orders")
	}

	s.lastSuccess.Store(now.UnixNano())
	s.runs.Add(ctx, 1, metric.WithAttributes(resultAttr("ok")))
	s.expired.Add(ctx, n)
	s.lg.Info("Expiration sweep finished",
		zap.Int64("expired", n),
		zap.Time("cutoff", cutoff),
	)
	return n, nil
}

// LastSuccess returns the reference time of the last successful run, or the
// zero time if none has succeeded yet.
func (s *Sweeper) LastSuccess() time.Time {
	ns := s.lastSuccess.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Check returns a health check that fails when no run has succeeded within
// maxAge. Before the first run is due it reports healthy.
func (s *Sweeper) Check(maxAge time.Duration) func(ctx context.Context) error {
	started := s.now()
	return func(context.Context) error {
		last := s.LastSuccess()
		if last.IsZero() {
			if s.now().Sub(started) < s.cfg.InitialDelay+maxAge {
				return nil
			}
			return errors.New("expiration sweep has not succeeded yet")
		}
		if age := s.now().Sub(last); age > maxAge {
			return errors.Errorf("last successful sweep %s ago", age.Truncate(time.Second))
		}
		return nil
	}
}

func resultAttr(result string) attribute.KeyValue {
	return attribute.String("result", result)
}
