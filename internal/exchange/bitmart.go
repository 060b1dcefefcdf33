package exchange

import (
	"context"
	"strings"
	"time"

	"github.com/irfndi/arbscan/internal/models"
)

type bitmartResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    *struct {
		Tickers []bitmartTicker `json:"tickers"`
	} `json:"data"`
}

type bitmartTicker struct {
	Symbol         string `json:"symbol"`
	BestBid        Number `json:"best_bid"`
	BestAsk        Number `json:"best_ask"`
	QuoteVolume24h Number `json:"quote_volume_24h"`
}

type BitmartAdapter struct{ base }

func NewBitmartAdapter(client *Client, baseURL string, feePct float64) Adapter {
	return &BitmartAdapter{base{name: "Bitmart", client: client, baseURL: baseURL, fee: feePct}}
}

func (a *BitmartAdapter) FetchTickers(ctx context.Context) ([]models.RawTicker, error) {
	var resp bitmartResponse
	if err := a.client.GetJSON(ctx, a.baseURL+"/spot/v1/ticker", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil || resp.Data.Tickers == nil {
		return nil, payloadError(a.name, "missing data.tickers array: "+resp.Message)
	}

	now := time.Now()
	out := make([]models.RawTicker, 0, len(resp.Data.Tickers))
	for _, t := range resp.Data.Tickers {
		if !strings.HasSuffix(strings.ToUpper(t.Symbol), "_"+QuoteAsset) {
			continue
		}
		asset, ok := SplitSymbol(t.Symbol)
		if !ok || anyMalformed(t.BestBid, t.BestAsk, t.QuoteVolume24h) {
			continue
		}
		out = append(out, a.ticker(asset, t.BestBid.Value, t.BestAsk.Value, t.QuoteVolume24h.Value, now))
	}
	return out, nil
}
