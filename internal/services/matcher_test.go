package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/arbscan/internal/models"
	"github.com/irfndi/arbscan/internal/refdata"
)

func defaultMatcherConfig() MatcherConfig {
	return MatcherConfig{MinNetSpreadPct: 2.0, MinBuyVolUSD: 300_000, MinSellVolUSD: 300_000}
}

// buyQuote and sellQuote build the reference route: ask 100 vs bid 103, 0.2% fee each leg.
func buyQuote(chain string) models.Quote {
	return models.NewQuote("Binance", 99.9, 100, 1_000_000, 0.2, chain)
}

func sellQuote(chain string) models.Quote {
	return models.NewQuote("OKX", 103, 103.1, 1_000_000, 0.2, chain)
}

func TestMatcher_GrossAndNet(t *testing.T) {
	m := NewMatcher(defaultMatcherConfig(), nil)

	hits := m.Match("SOL_USDT", "SOL", []models.Quote{buyQuote(""), sellQuote("")})
	require.Len(t, hits, 1)

	h := hits[0]
	assert.Equal(t, "SOL_USDT", h.Pair)
	assert.Equal(t, "Binance", h.Buy)
	assert.Equal(t, "OKX", h.Sell)
	assert.Equal(t, 100.0, h.BuyAsk)
	assert.Equal(t, 103.0, h.SellBid)
	assert.InDelta(t, 3.00, h.GrossPct, 1e-9)
	assert.InDelta(t, 2.60, h.NetPct, 1e-9)
	assert.Equal(t, models.UnknownChain, h.Chain)
	assert.Equal(t, 1_000_000.0, h.BuyVol)
	assert.Equal(t, 1_000_000.0, h.SellVol)
}

func TestMatcher_NetThreshold(t *testing.T) {
	cfg := defaultMatcherConfig()
	cfg.MinNetSpreadPct = 3.0
	m := NewMatcher(cfg, nil)
	assert.Empty(t, m.Match("SOL_USDT", "SOL", []models.Quote{buyQuote(""), sellQuote("")}))

	// Net exactly at the threshold is kept.
	cfg.MinNetSpreadPct = 2.6
	m = NewMatcher(cfg, nil)
	assert.Len(t, m.Match("SOL_USDT", "SOL", []models.Quote{buyQuote(""), sellQuote("")}), 1)
}

func TestMatcher_VolumeGate(t *testing.T) {
	m := NewMatcher(defaultMatcherConfig(), nil)

	thinBuy := models.NewQuote("Binance", 99.9, 100, 299_999, 0.2, "")
	assert.Empty(t, m.Match("SOL_USDT", "SOL", []models.Quote{thinBuy, sellQuote("")}))

	thinSell := models.NewQuote("OKX", 103, 103.1, 1_000, 0.2, "")
	assert.Empty(t, m.Match("SOL_USDT", "SOL", []models.Quote{buyQuote(""), thinSell}))

	exact := models.NewQuote("Binance", 99.9, 100, 300_000, 0.2, "")
	assert.Len(t, m.Match("SOL_USDT", "SOL", []models.Quote{exact, sellQuote("")}), 1)
}

func TestMatcher_NaNVolumeFailsFloor(t *testing.T) {
	m := NewMatcher(defaultMatcherConfig(), nil)

	nanBuy := models.NewQuote("Binance", 99.9, 100, math.NaN(), 0.2, "")
	assert.Empty(t, m.Match("SOL_USDT", "SOL", []models.Quote{nanBuy, sellQuote("")}))

	nanSell := models.NewQuote("OKX", 103, 103.1, math.NaN(), 0.2, "")
	assert.Empty(t, m.Match("SOL_USDT", "SOL", []models.Quote{buyQuote(""), nanSell}))
}

func TestMatcher_NonFinitePricesNeverPair(t *testing.T) {
	m := NewMatcher(defaultMatcherConfig(), nil)
	inf := models.NewQuote("HTX", math.Inf(1), math.Inf(1), 1_000_000, 0.2, "")

	assert.NotPanics(t, func() {
		assert.Empty(t, m.Match("SOL_USDT", "SOL", []models.Quote{buyQuote(""), inf}))
	})
}

func TestMatcher_ChainCompatibility(t *testing.T) {
	m := NewMatcher(defaultMatcherConfig(), nil)

	assert.Empty(t, m.Match("USDC_USDT", "USDC", []models.Quote{buyQuote("ERC20"), sellQuote("BEP20")}))

	hits := m.Match("USDC_USDT", "USDC", []models.Quote{buyQuote(""), sellQuote("BEP20")})
	require.Len(t, hits, 1)
	assert.Equal(t, "BEP20", hits[0].Chain)

	hits = m.Match("USDC_USDT", "USDC", []models.Quote{buyQuote("TRC20"), sellQuote("")})
	require.Len(t, hits, 1)
	assert.Equal(t, "TRC20", hits[0].Chain)

	hits = m.Match("USDC_USDT", "USDC", []models.Quote{buyQuote("BEP20"), sellQuote("BEP20")})
	require.Len(t, hits, 1)
	assert.Equal(t, "BEP20", hits[0].Chain)
}

func TestMatcher_MaintenanceGate(t *testing.T) {
	closed := false
	quotes := []models.Quote{buyQuote("BEP20"), sellQuote("BEP20")}

	ref := refdata.NewStore()
	ref.SetStatus(refdata.Status{Exchange: "Binance", Asset: "SOL", Chain: "BEP20", Withdraw: &closed})
	assert.Empty(t, NewMatcher(defaultMatcherConfig(), ref).Match("SOL_USDT", "SOL", quotes))

	ref = refdata.NewStore()
	ref.SetStatus(refdata.Status{Exchange: "OKX", Asset: "SOL", Deposit: &closed})
	assert.Empty(t, NewMatcher(defaultMatcherConfig(), ref).Match("SOL_USDT", "SOL", quotes))

	// A closed deposit on the buy side does not matter.
	ref = refdata.NewStore()
	ref.SetStatus(refdata.Status{Exchange: "Binance", Asset: "SOL", Deposit: &closed})
	assert.Len(t, NewMatcher(defaultMatcherConfig(), ref).Match("SOL_USDT", "SOL", quotes), 1)
}

func TestMatcher_UnknownChainConsultsAssetWideStatus(t *testing.T) {
	closed := false
	ref := refdata.NewStore()
	ref.SetStatus(refdata.Status{Exchange: "Binance", Asset: "SOL", Withdraw: &closed})

	m := NewMatcher(defaultMatcherConfig(), ref)
	assert.Empty(t, m.Match("SOL_USDT", "SOL", []models.Quote{buyQuote(""), sellQuote("")}))
}

func TestMatcher_SameExchangeNeverPairs(t *testing.T) {
	m := NewMatcher(MatcherConfig{MinNetSpreadPct: -100}, nil)
	a := models.NewQuote("Binance", 99, 100, 1, 0, "")
	b := models.NewQuote("Binance", 103, 104, 1, 0, "")
	assert.Empty(t, m.Match("SOL_USDT", "SOL", []models.Quote{a, b}))
}

func TestMatcher_OrderedPairs(t *testing.T) {
	m := NewMatcher(MatcherConfig{MinNetSpreadPct: -100}, nil)
	quotes := []models.Quote{
		models.NewQuote("Binance", 99, 100, 1, 0, ""),
		models.NewQuote("OKX", 99, 100, 1, 0, ""),
		models.NewQuote("Gate", 99, 100, 1, 0, ""),
	}

	hits := m.Match("SOL_USDT", "SOL", quotes)
	require.Len(t, hits, 6)
	assert.Equal(t, models.OpportunityKey{Pair: "SOL_USDT", Buy: "Binance", Sell: "OKX"}, hits[0].Key())
	assert.Equal(t, models.OpportunityKey{Pair: "SOL_USDT", Buy: "Gate", Sell: "OKX"}, hits[5].Key())
}

func TestCompatibleChain(t *testing.T) {
	tests := []struct {
		buy, sell string
		want      string
		ok        bool
	}{
		{"", "", models.UnknownChain, true},
		{"ERC20", "", "ERC20", true},
		{"", "SOL", "SOL", true},
		{"ERC20", "ERC20", "ERC20", true},
		{"ERC20", "BEP20", "", false},
	}
	for _, tt := range tests {
		got, ok := compatibleChain(tt.buy, tt.sell)
		assert.Equal(t, tt.ok, ok, "%q/%q", tt.buy, tt.sell)
		assert.Equal(t, tt.want, got, "%q/%q", tt.buy, tt.sell)
	}
}
