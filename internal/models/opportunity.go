package models

import (
	"time"

	"github.com/google/uuid"
)

// UnknownChain labels a hit whose settlement network neither side reported.
const UnknownChain = "UNKNOWN"

// OpportunityKey identifies a buy/sell route across cycles.
type OpportunityKey struct {
	Pair string `json:"pair"`
	Buy  string `json:"buy"`
	Sell string `json:"sell"`
}

func (k OpportunityKey) String() string {
	return k.Pair + ":" + k.Buy + "->" + k.Sell
}

// Hit is one buy/sell opportunity found in a single cycle.
type Hit struct {
	Pair     string  `json:"pair"`
	Buy      string  `json:"buy_exchange"`
	Sell     string  `json:"sell_exchange"`
	Chain    string  `json:"chain"`
	BuyAsk   float64 `json:"buy_ask"`
	SellBid  float64 `json:"sell_bid"`
	GrossPct float64 `json:"gross_pct"`
	NetPct   float64 `json:"net_pct"`
	BuyVol   float64 `json:"buy_vol_24h"`
	SellVol  float64 `json:"sell_vol_24h"`
}

func (h Hit) Key() OpportunityKey {
	return OpportunityKey{Pair: h.Pair, Buy: h.Buy, Sell: h.Sell}
}

// RejectReason names why a raw ticker did not become a quote.
type RejectReason string

const (
	RejectNone        RejectReason = ""
	RejectNonPositive RejectReason = "non_positive_price"
	RejectBlacklisted RejectReason = "blacklisted"
	RejectCollision   RejectReason = "collision"
	RejectDirtySymbol RejectReason = "dirty_symbol"
	RejectInnerSpread RejectReason = "inner_spread"
)

// CycleStats summarizes one pipeline run.
type CycleStats struct {
	CycleID        uuid.UUID            `json:"cycle_id"`
	StartedAt      time.Time            `json:"started_at"`
	Duration       time.Duration        `json:"duration_ns"`
	Tickers        int                  `json:"tickers"`
	QuotesAccepted int                  `json:"quotes_accepted"`
	Rejected       map[RejectReason]int `json:"rejected"`
	Pairs          int                  `json:"pairs"`
	PairsFiltered  int                  `json:"pairs_after_filter"`
	Hits           int                  `json:"hits"`
	Durable        int                  `json:"durable"`
	Alerts         int                  `json:"alerts"`
	ExchangeErrors map[string]string    `json:"exchange_errors,omitempty"`
}

// CycleResult is what one pipeline run hands to reporters and sinks.
type CycleResult struct {
	Ranked []Hit      `json:"ranked"`
	Alerts []Hit      `json:"-"`
	Stats  CycleStats `json:"stats"`
}
