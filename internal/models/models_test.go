package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewQuote(t *testing.T) {
	q := NewQuote("Binance", 99, 101, 1_000_000, 0.2, "ERC20")

	assert.Equal(t, "Binance", q.Exchange)
	assert.Equal(t, 100.0, q.Mid)
	assert.InDelta(t, 2.0/101.0, q.RelInnerSpread(), 1e-12)
	assert.Equal(t, "ERC20", q.Chain)
}

func TestMarketBook(t *testing.T) {
	book := NewMarketBook()
	book.Add("ETH_USDT", NewQuote("OKX", 10, 10.01, 1, 0.2, ""))
	book.Add("BTC_USDT", NewQuote("Binance", 100, 100.1, 1, 0.2, ""))
	book.Add("BTC_USDT", NewQuote("Gate", 101, 101.1, 1, 0.2, ""))

	assert.Equal(t, []string{"BTC_USDT", "ETH_USDT"}, book.Pairs())
	assert.Equal(t, 2, book.Len())
	assert.Equal(t, 3, book.QuoteCount())

	btc := book.Quotes("BTC_USDT")
	if assert.Len(t, btc, 2) {
		assert.Equal(t, "Binance", btc[0].Exchange)
		assert.Equal(t, "Gate", btc[1].Exchange)
	}
	assert.Empty(t, book.Quotes("XRP_USDT"))
}

func TestOpportunityKey(t *testing.T) {
	h := Hit{Pair: "BTC_USDT", Buy: "Gate", Sell: "OKX"}

	assert.Equal(t, OpportunityKey{Pair: "BTC_USDT", Buy: "Gate", Sell: "OKX"}, h.Key())
	assert.Equal(t, "BTC_USDT:Gate->OKX", h.Key().String())
	assert.Equal(t, "BTC_USDT", PairKey("BTC", "USDT"))
}
