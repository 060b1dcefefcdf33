package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/irfndi/arbscan/internal/exchange"
	"github.com/irfndi/arbscan/internal/logging"
	"github.com/irfndi/arbscan/internal/models"
)

// Worker tracks the fetch health of a single exchange.
type Worker struct {
	Exchange    string    `json:"exchange"`
	LastUpdate  time.Time `json:"last_update"`
	LastCount   int       `json:"last_count"`
	ErrorCount  int       `json:"error_count"`
	LastError   string    `json:"last_error,omitempty"`
	BreakerOpen bool      `json:"breaker_open"`
}

// CollectResult is one cycle's merged fetch output. Tickers are grouped by
// exchange in registry order; Errors maps exchange name to failure text.
type CollectResult struct {
	Tickers []models.RawTicker
	Errors  map[string]string
}

// CollectorService fans out one fetch per exchange and waits for all of
// them. A failing exchange contributes no tickers and never fails the cycle.
type CollectorService struct {
	adapters []exchange.Adapter
	breakers *CircuitBreakerManager
	logger   *logrus.Entry

	mu      sync.RWMutex
	workers map[string]*Worker
}

func NewCollectorService(adapters []exchange.Adapter, breakers *CircuitBreakerManager, logger logrus.FieldLogger) *CollectorService {
	workers := make(map[string]*Worker, len(adapters))
	for _, a := range adapters {
		workers[a.Name()] = &Worker{Exchange: a.Name()}
	}
	return &CollectorService{
		adapters: adapters,
		breakers: breakers,
		logger:   logging.WithComponent(logger, "collector"),
		workers:  workers,
	}
}

// Collect fetches every exchange concurrently. It returns once every fetch
// has finished, failed, or been cut short by ctx.
func (c *CollectorService) Collect(ctx context.Context) CollectResult {
	batches := make([][]models.RawTicker, len(c.adapters))
	errs := make([]error, len(c.adapters))

	var g errgroup.Group
	for i, adapter := range c.adapters {
		g.Go(func() error {
			batches[i], errs[i] = c.fetch(ctx, adapter)
			return nil
		})
	}
	_ = g.Wait()

	result := CollectResult{Errors: make(map[string]string)}
	for i, adapter := range c.adapters {
		c.record(adapter.Name(), len(batches[i]), errs[i])
		if errs[i] != nil {
			result.Errors[adapter.Name()] = errs[i].Error()
			continue
		}
		result.Tickers = append(result.Tickers, batches[i]...)
	}
	return result
}

func (c *CollectorService) fetch(ctx context.Context, adapter exchange.Adapter) ([]models.RawTicker, error) {
	var tickers []models.RawTicker
	call := func(ctx context.Context) error {
		var err error
		tickers, err = adapter.FetchTickers(ctx)
		return err
	}

	var err error
	if c.breakers != nil {
		err = c.breakers.GetOrCreate(adapter.Name()).Execute(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}
	return tickers, nil
}

func (c *CollectorService) record(name string, count int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.workers[name]
	if !ok {
		w = &Worker{Exchange: name}
		c.workers[name] = w
	}
	w.BreakerOpen = c.breakers != nil && c.breakers.GetOrCreate(name).GetState() == Open

	log := logging.WithExchange(c.logger, name)
	if err != nil {
		w.ErrorCount++
		w.LastError = err.Error()
		if errors.Is(err, ErrCircuitOpen) {
			log.Debug("Skipping exchange while circuit breaker is open")
			return
		}
		log.WithError(err).WithField("error_count", w.ErrorCount).Warn("Exchange fetch failed")
		return
	}

	w.ErrorCount = 0
	w.LastError = ""
	w.LastCount = count
	w.LastUpdate = time.Now()
	log.WithField("tickers", count).Debug("Exchange fetch complete")
}

// Workers returns a snapshot of per-exchange fetch health sorted by name.
func (c *CollectorService) Workers() []Worker {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Worker, 0, len(c.workers))
	for _, w := range c.workers {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Exchange < out[j].Exchange })
	return out
}
