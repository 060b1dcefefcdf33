package exchange

import (
	"context"
	"time"

	"github.com/irfndi/arbscan/internal/models"
)

type kucoinResponse struct {
	Code string `json:"code"`
	Data *struct {
		Ticker []kucoinTicker `json:"ticker"`
	} `json:"data"`
}

type kucoinTicker struct {
	Symbol       string `json:"symbol"`
	BestBidPrice Number `json:"bestBidPrice"`
	BestAskPrice Number `json:"bestAskPrice"`
	VolValue     Number `json:"volValue"`
}

type KuCoinAdapter struct{ base }

func NewKuCoinAdapter(client *Client, baseURL string, feePct float64) Adapter {
	return &KuCoinAdapter{base{name: "KuCoin", client: client, baseURL: baseURL, fee: feePct}}
}

func (a *KuCoinAdapter) FetchTickers(ctx context.Context) ([]models.RawTicker, error) {
	var resp kucoinResponse
	if err := a.client.GetJSON(ctx, a.baseURL+"/api/v1/market/allTickers", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil || resp.Data.Ticker == nil {
		return nil, payloadError(a.name, "missing data.ticker array")
	}

	now := time.Now()
	out := make([]models.RawTicker, 0, len(resp.Data.Ticker))
	for _, t := range resp.Data.Ticker {
		asset, ok := SplitSymbol(t.Symbol)
		if !ok || anyMalformed(t.BestBidPrice, t.BestAskPrice, t.VolValue) {
			continue
		}
		out = append(out, a.ticker(asset, t.BestBidPrice.Value, t.BestAskPrice.Value, t.VolValue.Value, now))
	}
	return out, nil
}
