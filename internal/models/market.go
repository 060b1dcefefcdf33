package models

import (
	"sort"
	"time"
)

// RawTicker is one exchange's top-of-book reading before validation.
type RawTicker struct {
	Exchange  string    `json:"exchange"`
	Base      string    `json:"base"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	QuoteVol  float64   `json:"quote_vol_24h"`
	TakerFee  float64   `json:"taker_fee_pct"`
	Chain     string    `json:"chain,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Quote is a validated top-of-book reading. Build it with NewQuote; the zero
// value is not meaningful and fields must not be mutated after construction.
type Quote struct {
	Exchange string  `json:"exchange"`
	Bid      float64 `json:"bid"`
	Ask      float64 `json:"ask"`
	QuoteVol float64 `json:"quote_vol_24h"`
	TakerFee float64 `json:"taker_fee_pct"`
	Mid      float64 `json:"mid"`
	Chain    string  `json:"chain,omitempty"`
}

// NewQuote derives the mid price from bid and ask.
func NewQuote(exchange string, bid, ask, quoteVol, takerFee float64, chain string) Quote {
	return Quote{
		Exchange: exchange,
		Bid:      bid,
		Ask:      ask,
		QuoteVol: quoteVol,
		TakerFee: takerFee,
		Mid:      (bid + ask) / 2,
		Chain:    chain,
	}
}

// RelInnerSpread is (ask - bid) / ask.
func (q Quote) RelInnerSpread() float64 {
	return (q.Ask - q.Bid) / q.Ask
}

// PairKey builds the canonical market key, e.g. "BTC_USDT".
func PairKey(base, quote string) string {
	return base + "_" + quote
}

// MarketBook groups one cycle's quotes by pair, preserving insertion order
// within each pair.
type MarketBook struct {
	quotes map[string][]Quote
}

func NewMarketBook() *MarketBook {
	return &MarketBook{quotes: make(map[string][]Quote)}
}

func (b *MarketBook) Add(pair string, q Quote) {
	b.quotes[pair] = append(b.quotes[pair], q)
}

// Quotes returns the quotes recorded for pair in insertion order.
func (b *MarketBook) Quotes(pair string) []Quote {
	return b.quotes[pair]
}

// Pairs returns all pair keys in ascending order.
func (b *MarketBook) Pairs() []string {
	pairs := make([]string, 0, len(b.quotes))
	for p := range b.quotes {
		pairs = append(pairs, p)
	}
	sort.Strings(pairs)
	return pairs
}

func (b *MarketBook) Len() int {
	return len(b.quotes)
}

// QuoteCount is the total number of quotes across all pairs.
func (b *MarketBook) QuoteCount() int {
	n := 0
	for _, qs := range b.quotes {
		n += len(qs)
	}
	return n
}
