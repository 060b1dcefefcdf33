package exchange

import (
	"context"
	"strings"
	"time"

	"github.com/irfndi/arbscan/internal/models"
)

type gateTicker struct {
	CurrencyPair string `json:"currency_pair"`
	HighestBid   Number `json:"highest_bid"`
	LowestAsk    Number `json:"lowest_ask"`
	QuoteVolume  Number `json:"quote_volume"`
}

type GateAdapter struct{ base }

func NewGateAdapter(client *Client, baseURL string, feePct float64) Adapter {
	return &GateAdapter{base{name: "Gate", client: client, baseURL: baseURL, fee: feePct}}
}

func (a *GateAdapter) FetchTickers(ctx context.Context) ([]models.RawTicker, error) {
	var tickers []gateTicker
	if err := a.client.GetJSON(ctx, a.baseURL+"/api/v4/spot/tickers", nil, &tickers); err != nil {
		return nil, err
	}

	now := time.Now()
	out := make([]models.RawTicker, 0, len(tickers))
	for _, t := range tickers {
		if !strings.HasSuffix(strings.ToUpper(t.CurrencyPair), "_"+QuoteAsset) {
			continue
		}
		asset, ok := SplitSymbol(t.CurrencyPair)
		if !ok || anyMalformed(t.HighestBid, t.LowestAsk, t.QuoteVolume) {
			continue
		}
		out = append(out, a.ticker(asset, t.HighestBid.Value, t.LowestAsk.Value, t.QuoteVolume.Value, now))
	}
	return out, nil
}
