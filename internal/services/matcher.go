package services

import (
	"github.com/shopspring/decimal"

	"github.com/irfndi/arbscan/internal/models"
)

var hundred = decimal.NewFromInt(100)

// MatcherConfig holds the per-hit thresholds.
type MatcherConfig struct {
	MinNetSpreadPct float64
	MinBuyVolUSD    float64
	MinSellVolUSD   float64
}

// Matcher evaluates every ordered (buy, sell) pair of quotes for one market.
// Spreads are computed in decimal so thresholds compare exactly.
type Matcher struct {
	cfg    MatcherConfig
	minNet decimal.Decimal
	ref    ReferenceData
}

func NewMatcher(cfg MatcherConfig, ref ReferenceData) *Matcher {
	return &Matcher{
		cfg:    cfg,
		minNet: decimal.NewFromFloat(cfg.MinNetSpreadPct),
		ref:    ref,
	}
}

// Match returns the hits for pair in (buy index, sell index) order.
func (m *Matcher) Match(pair, asset string, quotes []models.Quote) []models.Hit {
	var hits []models.Hit
	for i := range quotes {
		for j := range quotes {
			if i == j {
				continue
			}
			if hit, ok := m.evaluate(pair, asset, quotes[i], quotes[j]); ok {
				hits = append(hits, hit)
			}
		}
	}
	return hits
}

func (m *Matcher) evaluate(pair, asset string, buy, sell models.Quote) (models.Hit, bool) {
	if buy.Exchange == sell.Exchange {
		return models.Hit{}, false
	}
	if !positiveFinite(buy.Ask) || !positiveFinite(sell.Bid) {
		return models.Hit{}, false
	}

	chain, ok := compatibleChain(buy.Chain, sell.Chain)
	if !ok {
		return models.Hit{}, false
	}

	if m.ref != nil {
		network := chain
		if network == models.UnknownChain {
			network = ""
		}
		if !m.ref.WithdrawAllowed(buy.Exchange, asset, network) || !m.ref.DepositAllowed(sell.Exchange, asset, network) {
			return models.Hit{}, false
		}
	}

	// Written as !(>=) so a NaN volume fails the floor.
	if !(buy.QuoteVol >= m.cfg.MinBuyVolUSD) || !(sell.QuoteVol >= m.cfg.MinSellVolUSD) {
		return models.Hit{}, false
	}

	ask := decimal.NewFromFloat(buy.Ask)
	bid := decimal.NewFromFloat(sell.Bid)
	gross := bid.Sub(ask).Div(ask).Mul(hundred)
	net := gross.Sub(decimal.NewFromFloat(buy.TakerFee)).Sub(decimal.NewFromFloat(sell.TakerFee))
	if net.LessThan(m.minNet) {
		return models.Hit{}, false
	}

	return models.Hit{
		Pair:     pair,
		Buy:      buy.Exchange,
		Sell:     sell.Exchange,
		Chain:    chain,
		BuyAsk:   buy.Ask,
		SellBid:  sell.Bid,
		GrossPct: gross.InexactFloat64(),
		NetPct:   net.InexactFloat64(),
		BuyVol:   buy.QuoteVol,
		SellVol:  sell.QuoteVol,
	}, true
}

// compatibleChain rejects routes where both sides name different networks.
// Otherwise it returns the known network, or UnknownChain.
func compatibleChain(buyChain, sellChain string) (string, bool) {
	switch {
	case buyChain != "" && sellChain != "":
		if buyChain != sellChain {
			return "", false
		}
		return buyChain, true
	case buyChain != "":
		return buyChain, true
	case sellChain != "":
		return sellChain, true
	default:
		return models.UnknownChain, true
	}
}
