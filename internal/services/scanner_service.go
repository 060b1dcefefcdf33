package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/irfndi/arbscan/internal/config"
	"github.com/irfndi/arbscan/internal/logging"
	"github.com/irfndi/arbscan/internal/models"
)

const tracerName = "github.com/irfndi/arbscan/internal/services"

// DenylistRefresher reloads a shared denylist snapshot before each cycle.
type DenylistRefresher interface {
	Refresh(ctx context.Context) error
}

// ScannerStatus is the service state exposed to the status API.
type ScannerStatus struct {
	Running       bool      `json:"running"`
	Cycles        int64     `json:"cycles"`
	LastCycle     time.Time `json:"last_cycle"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	Alerting      bool      `json:"alerting"`
	OpenBreakers  []string  `json:"open_breakers"`
	Workers       []Worker  `json:"workers"`

	Breakers map[string]CircuitBreakerStats `json:"breakers,omitempty"`
}

// ScannerService drives the polling loop: collect, run the pipeline, report
// and alert, once per poll interval. Cycles never overlap.
type ScannerService struct {
	cfg        config.ScannerConfig
	collector  *CollectorService
	pipeline   *Pipeline
	notifier   *NotificationService
	breakers   *CircuitBreakerManager
	console    *ConsoleReporter
	refreshers []DenylistRefresher
	tracer     trace.Tracer
	logger     *logrus.Entry
	now        func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu            sync.RWMutex
	isRunning     bool
	cycles        int64
	latest        models.CycleResult
	hasLatest     bool
	lastHeartbeat time.Time
}

func NewScannerService(cfg config.ScannerConfig, collector *CollectorService, pipeline *Pipeline, notifier *NotificationService, breakers *CircuitBreakerManager, logger logrus.FieldLogger) *ScannerService {
	if notifier == nil {
		notifier = NewNotificationService(nil, logger)
	}
	return &ScannerService{
		cfg:       cfg,
		collector: collector,
		pipeline:  pipeline,
		notifier:  notifier,
		breakers:  breakers,
		tracer:    otel.Tracer(tracerName),
		logger:    logging.WithComponent(logger, "scanner"),
		now:       time.Now,
	}
}

// SetConsoleReporter enables the per-cycle console table.
func (s *ScannerService) SetConsoleReporter(r *ConsoleReporter) {
	s.console = r
}

// AddRefresher registers a denylist to refresh at the start of every cycle.
func (s *ScannerService) AddRefresher(r DenylistRefresher) {
	s.refreshers = append(s.refreshers, r)
}

// Start runs the first cycle immediately and then one per poll interval
// until ctx is cancelled or Stop is called.
func (s *ScannerService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("scanner service is already running")
	}
	s.isRunning = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	interval := s.cfg.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	s.logger.WithFields(logrus.Fields{
		"poll_interval":      interval.String(),
		"min_net_spread_pct": s.cfg.MinNetSpreadPct,
		"min_ticks_to_show":  s.cfg.MinTicksToShow,
		"top_k":              s.cfg.TopKPerCycle,
		"alerting":           s.notifier.Enabled(),
	}).Info("Starting scanner service")

	s.wg.Add(1)
	go s.loop(interval)
	return nil
}

// Stop cancels the loop and waits for the in-flight cycle to finish.
func (s *ScannerService) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	s.logger.Info("Stopping scanner service")
	cancel()
	s.wg.Wait()
	s.logger.Info("Scanner service stopped")
}

func (s *ScannerService) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *ScannerService) loop(interval time.Duration) {
	defer s.wg.Done()

	s.RunOnce(s.ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(s.ctx)
		}
	}
}

// RunOnce executes a single cycle and publishes its result.
func (s *ScannerService) RunOnce(ctx context.Context) models.CycleResult {
	cycleID := uuid.New()
	ctx, span := s.tracer.Start(ctx, "scanner.cycle", trace.WithAttributes(
		attribute.String("cycle.id", cycleID.String()),
	))
	defer span.End()

	log := s.logger.WithField(logging.FieldCycleID, cycleID.String())

	for _, r := range s.refreshers {
		if err := r.Refresh(ctx); err != nil {
			log.WithError(err).Warn("Denylist refresh failed")
		}
	}

	fetchCtx, fetchSpan := s.tracer.Start(ctx, "scanner.collect")
	collected := s.collector.Collect(fetchCtx)
	fetchSpan.SetAttributes(
		attribute.Int("tickers", len(collected.Tickers)),
		attribute.Int("exchange_errors", len(collected.Errors)),
	)
	fetchSpan.End()

	now := s.now()
	result := s.pipeline.RunCycle(now, collected.Tickers)
	result.Stats.CycleID = cycleID
	result.Stats.ExchangeErrors = collected.Errors

	if s.console != nil {
		if err := s.console.Report(now, result.Ranked); err != nil {
			log.WithError(err).Warn("Failed to write console report")
		}
	}

	delivered := s.notifier.NotifyHits(ctx, result.Alerts)
	s.maybeHeartbeat(ctx, now)

	span.SetAttributes(
		attribute.Int("quotes.accepted", result.Stats.QuotesAccepted),
		attribute.Int("pairs", result.Stats.Pairs),
		attribute.Int("hits", result.Stats.Hits),
		attribute.Int("durable", result.Stats.Durable),
		attribute.Int("alerts", result.Stats.Alerts),
	)

	s.mu.Lock()
	s.cycles++
	s.latest = result
	s.hasLatest = true
	s.mu.Unlock()

	log.WithFields(logrus.Fields{
		"tickers":         result.Stats.Tickers,
		"quotes":          result.Stats.QuotesAccepted,
		"pairs":           result.Stats.Pairs,
		"hits":            result.Stats.Hits,
		"durable":         result.Stats.Durable,
		"alerts":          result.Stats.Alerts,
		"delivered":       delivered,
		"exchange_errors": len(collected.Errors),
		"duration_ms":     result.Stats.Duration.Milliseconds(),
	}).Info("Cycle complete")

	return result
}

// maybeHeartbeat sends the liveness message once per heartbeat interval,
// counting from the first cycle.
func (s *ScannerService) maybeHeartbeat(ctx context.Context, now time.Time) {
	if s.cfg.HeartbeatInterval <= 0 || !s.notifier.Enabled() {
		return
	}

	s.mu.Lock()
	due := false
	switch {
	case s.lastHeartbeat.IsZero():
		s.lastHeartbeat = now
	case now.Sub(s.lastHeartbeat) >= s.cfg.HeartbeatInterval:
		s.lastHeartbeat = now
		due = true
	}
	s.mu.Unlock()

	if due {
		s.notifier.Heartbeat(ctx, now)
	}
}

// LatestResult returns the most recent cycle result, if any cycle has run.
func (s *ScannerService) LatestResult() (models.CycleResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.hasLatest
}

func (s *ScannerService) Status() ScannerStatus {
	s.mu.RLock()
	status := ScannerStatus{
		Running:       s.isRunning,
		Cycles:        s.cycles,
		LastCycle:     s.latest.Stats.StartedAt,
		LastHeartbeat: s.lastHeartbeat,
		Alerting:      s.notifier.Enabled(),
	}
	s.mu.RUnlock()

	status.Workers = s.collector.Workers()
	if s.breakers != nil {
		status.OpenBreakers = s.breakers.OpenBreakers()
		status.Breakers = s.breakers.GetAllStats()
	}
	return status
}
