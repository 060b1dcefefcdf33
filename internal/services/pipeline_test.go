package services

import (
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/arbscan/internal/cache"
	"github.com/irfndi/arbscan/internal/config"
	"github.com/irfndi/arbscan/internal/models"
	"github.com/irfndi/arbscan/internal/refdata"
)

func testScannerConfig() config.ScannerConfig {
	return config.ScannerConfig{
		QuoteCurrency:     "USDT",
		MinNetSpreadPct:   2.0,
		MinBuyVolUSD:      300_000,
		MinSellVolUSD:     300_000,
		MaxRelInnerSpread: 0.01,
		TrustedExchanges:  []string{"Binance", "OKX", "Bybit", "KuCoin", "Bitget", "Gate", "MEXC"},
		KTrusted:          6,
		KNonTrusted:       4,
		MinTicksToShow:    2,
		MinSendInterval:   600 * time.Second,
		TopKPerCycle:      40,
	}
}

func newTestPipeline(t *testing.T, cfg config.ScannerConfig) *Pipeline {
	t.Helper()
	logger, _ := test.NewNullLogger()
	ref := refdata.NewStore()
	ref.MarkCollision("TON")
	return NewPipeline(cfg, cache.NewInMemorySymbolDenylist("LUNA"), ref, ref, logger)
}

// frozenTickers holds one SOL route (Binance -> OKX, ~2.8% net) plus noise
// that must be rejected or filtered.
func frozenTickers() []models.RawTicker {
	raw := func(exchange, base string, bid, ask float64) models.RawTicker {
		return models.RawTicker{Exchange: exchange, Base: base, Bid: bid, Ask: ask, QuoteVol: 2_000_000, TakerFee: 0.1}
	}
	return []models.RawTicker{
		raw("Binance", "SOL", 99.95, 100),
		raw("OKX", "sol", 103, 103.05),
		raw("HTX", "SOL", 499, 500),
		raw("Binance", "ETH", 3000, 3000.5),
		raw("Gate", "ETH", 3000.2, 3000.6),
		raw("Binance", "LUNA", 1, 1.001),
		raw("OKX", "TON", 5, 5.001),
		raw("OKX", "OP", 2, 2.001),
		raw("MEXC", "ETH", 0, 3000),
		raw("Gate", "XRP", 0.5, 0.6),
	}
}

func TestPipeline_RunCycle(t *testing.T) {
	p := newTestPipeline(t, testScannerConfig())
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	first := p.RunCycle(t0, frozenTickers())
	assert.Empty(t, first.Ranked, "one cycle is not durable")
	assert.Empty(t, first.Alerts)

	stats := first.Stats
	assert.Equal(t, t0, stats.StartedAt)
	assert.Equal(t, 10, stats.Tickers)
	assert.Equal(t, 5, stats.QuotesAccepted)
	assert.Equal(t, 1, stats.Rejected[models.RejectBlacklisted])
	assert.Equal(t, 1, stats.Rejected[models.RejectCollision])
	assert.Equal(t, 1, stats.Rejected[models.RejectDirtySymbol])
	assert.Equal(t, 1, stats.Rejected[models.RejectNonPositive])
	assert.Equal(t, 1, stats.Rejected[models.RejectInnerSpread])
	assert.Equal(t, 2, stats.Pairs)
	assert.Equal(t, 2, stats.PairsFiltered)
	assert.Equal(t, 1, stats.Hits)

	second := p.RunCycle(t0.Add(5*time.Second), frozenTickers())
	require.Len(t, second.Ranked, 1)
	h := second.Ranked[0]
	assert.Equal(t, "SOL_USDT", h.Pair)
	assert.Equal(t, "Binance", h.Buy)
	assert.Equal(t, "OKX", h.Sell)
	assert.Equal(t, models.UnknownChain, h.Chain)
	assert.InDelta(t, 3.0, h.GrossPct, 1e-9)
	assert.InDelta(t, 2.8, h.NetPct, 1e-9)
	assert.Equal(t, second.Ranked, second.Alerts)
	assert.Equal(t, 1, second.Stats.Durable)
	assert.Equal(t, 1, second.Stats.Alerts)

	third := p.RunCycle(t0.Add(10*time.Second), frozenTickers())
	assert.Len(t, third.Ranked, 1)
	assert.Empty(t, third.Alerts, "rate limited")

	later := p.RunCycle(t0.Add(11*time.Minute), frozenTickers())
	assert.Len(t, later.Alerts, 1)
}

func TestPipeline_GapDropsDurability(t *testing.T) {
	p := newTestPipeline(t, testScannerConfig())
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	p.RunCycle(t0, frozenTickers())
	require.Len(t, p.RunCycle(t0.Add(5*time.Second), frozenTickers()).Ranked, 1)

	gap := p.RunCycle(t0.Add(10*time.Second), nil)
	assert.Empty(t, gap.Ranked)
	assert.Zero(t, p.Gate().Tracked())

	back := p.RunCycle(t0.Add(15*time.Second), frozenTickers())
	assert.Empty(t, back.Ranked)
	assert.Equal(t, 1, p.Gate().Count(models.OpportunityKey{Pair: "SOL_USDT", Buy: "Binance", Sell: "OKX"}))
}

func TestPipeline_Idempotent(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	run := func() (models.CycleResult, int) {
		p := newTestPipeline(t, testScannerConfig())
		p.RunCycle(t0, frozenTickers())
		res := p.RunCycle(t0.Add(5*time.Second), frozenTickers())
		return res, p.Gate().Count(models.OpportunityKey{Pair: "SOL_USDT", Buy: "Binance", Sell: "OKX"})
	}

	a, countA := run()
	b, countB := run()
	assert.Equal(t, a.Ranked, b.Ranked)
	assert.Equal(t, a.Alerts, b.Alerts)
	assert.Equal(t, countA, countB)
	assert.Equal(t, a.Stats.Rejected, b.Stats.Rejected)
}

func TestPipeline_AlertsLimitedToTopK(t *testing.T) {
	cfg := testScannerConfig()
	cfg.TopKPerCycle = 1
	cfg.MinTicksToShow = 1
	p := newTestPipeline(t, cfg)

	tickers := append(frozenTickers(),
		models.RawTicker{Exchange: "Binance", Base: "ADA", Bid: 0.999, Ask: 1, QuoteVol: 2_000_000},
		models.RawTicker{Exchange: "Bybit", Base: "ADA", Bid: 1.025, Ask: 1.026, QuoteVol: 2_000_000},
	)
	res := p.RunCycle(time.Now(), tickers)
	require.Len(t, res.Ranked, 1)
	assert.Equal(t, "SOL_USDT", res.Ranked[0].Pair)
	require.Len(t, res.Alerts, 1)
	assert.Equal(t, 2, res.Stats.Durable)
}

func TestPipeline_InfiniteQuoteIsRejected(t *testing.T) {
	p := newTestPipeline(t, testScannerConfig())
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tickers := []models.RawTicker{
		{Exchange: "Binance", Base: "SOL", Bid: 99.9, Ask: 100, QuoteVol: 1_000_000, TakerFee: 0.1},
		{Exchange: "HTX", Base: "SOL", Bid: math.Inf(1), Ask: math.Inf(1), QuoteVol: 1_000_000, TakerFee: 0.2},
	}

	var result models.CycleResult
	require.NotPanics(t, func() { result = p.RunCycle(now, tickers) })
	assert.Equal(t, 1, result.Stats.QuotesAccepted)
	assert.Equal(t, 1, result.Stats.Rejected[models.RejectNonPositive])
	assert.Empty(t, result.Ranked)
}
