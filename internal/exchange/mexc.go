package exchange

import (
	"context"
	"time"

	"github.com/irfndi/arbscan/internal/models"
)

type mexcTicker struct {
	Symbol      string `json:"symbol"`
	BidPrice    Number `json:"bidPrice"`
	AskPrice    Number `json:"askPrice"`
	QuoteVolume Number `json:"quoteVolume"`
}

type MEXCAdapter struct{ base }

func NewMEXCAdapter(client *Client, baseURL string, feePct float64) Adapter {
	return &MEXCAdapter{base{name: "MEXC", client: client, baseURL: baseURL, fee: feePct}}
}

func (a *MEXCAdapter) FetchTickers(ctx context.Context) ([]models.RawTicker, error) {
	var tickers []mexcTicker
	if err := a.client.GetJSON(ctx, a.baseURL+"/api/v3/ticker/24hr", nil, &tickers); err != nil {
		return nil, err
	}

	now := time.Now()
	out := make([]models.RawTicker, 0, len(tickers))
	for _, t := range tickers {
		asset, ok := SplitSymbol(t.Symbol)
		if !ok || anyMalformed(t.BidPrice, t.AskPrice, t.QuoteVolume) {
			continue
		}
		out = append(out, a.ticker(asset, t.BidPrice.Value, t.AskPrice.Value, t.QuoteVolume.Value, now))
	}
	return out, nil
}
