package services

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/arbscan/internal/cache"
	"github.com/irfndi/arbscan/internal/config"
	"github.com/irfndi/arbscan/internal/logging"
	"github.com/irfndi/arbscan/internal/models"
)

// Pipeline turns one cycle of raw tickers into ranked durable opportunities.
// It owns the Gate, so cycles must run one at a time.
type Pipeline struct {
	cfg        config.ScannerConfig
	normalizer *Normalizer
	filter     *OutlierFilter
	matcher    *Matcher
	gate       *Gate
	logger     *logrus.Entry
}

func NewPipeline(cfg config.ScannerConfig, blacklist, collisions cache.SymbolDenylist, ref ReferenceData, logger logrus.FieldLogger) *Pipeline {
	entry := logging.WithComponent(logger, "pipeline")
	return &Pipeline{
		cfg:        cfg,
		normalizer: NewNormalizer(cfg.QuoteCurrency, cfg.MaxRelInnerSpread, blacklist, collisions, ref, entry),
		filter: NewOutlierFilter(OutlierConfig{
			TrustedExchanges: cfg.TrustedExchanges,
			KTrusted:         cfg.KTrusted,
			KNonTrusted:      cfg.KNonTrusted,
			MinExchanges:     cfg.MinExchangesPerPair,
			MinTrusted:       cfg.MinTrustedPerPair,
		}),
		matcher: NewMatcher(MatcherConfig{
			MinNetSpreadPct: cfg.MinNetSpreadPct,
			MinBuyVolUSD:    cfg.MinBuyVolUSD,
			MinSellVolUSD:   cfg.MinSellVolUSD,
		}, ref),
		gate:   NewGate(cfg.MinTicksToShow, cfg.MinSendInterval),
		logger: entry,
	}
}

// Gate exposes the cross-cycle state, mainly for inspection in tests.
func (p *Pipeline) Gate() *Gate {
	return p.gate
}

// RunCycle runs normalize, filter, match, persistence and ranking over
// tickers. Alerts is the subset of Ranked whose rate limit window has
// elapsed at now; those keys are stamped as sent.
func (p *Pipeline) RunCycle(now time.Time, tickers []models.RawTicker) models.CycleResult {
	started := time.Now()
	stats := models.CycleStats{
		StartedAt: now,
		Tickers:   len(tickers),
		Rejected:  make(map[models.RejectReason]int),
	}

	book := models.NewMarketBook()
	for _, raw := range tickers {
		if reason := p.normalizer.Normalize(book, raw); reason != models.RejectNone {
			stats.Rejected[reason]++
		}
	}
	stats.QuotesAccepted = book.QuoteCount()
	stats.Pairs = book.Len()

	suffix := "_" + p.cfg.QuoteCurrency
	var hits []models.Hit
	for _, pair := range book.Pairs() {
		survivors := p.filter.Filter(book.Quotes(pair))
		if survivors == nil {
			continue
		}
		stats.PairsFiltered++
		hits = append(hits, p.matcher.Match(pair, strings.TrimSuffix(pair, suffix), survivors)...)
	}
	stats.Hits = len(hits)

	durable := p.gate.Observe(hits)
	stats.Durable = len(durable)

	ranked := Rank(durable, p.cfg.TopKPerCycle)
	var alerts []models.Hit
	for _, h := range ranked {
		if p.gate.AllowAlert(h.Key(), now) {
			alerts = append(alerts, h)
		}
	}
	stats.Alerts = len(alerts)
	stats.Duration = time.Since(started)

	p.logger.WithFields(logrus.Fields{
		"tickers":  stats.Tickers,
		"accepted": stats.QuotesAccepted,
		"pairs":    stats.Pairs,
		"hits":     stats.Hits,
		"durable":  stats.Durable,
		"alerts":   stats.Alerts,
		"tracked":  p.gate.Tracked(),
	}).Debug("Cycle evaluated")

	return models.CycleResult{Ranked: ranked, Alerts: alerts, Stats: stats}
}
