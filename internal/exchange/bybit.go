package exchange

import (
	"context"
	"net/url"
	"time"

	"github.com/irfndi/arbscan/internal/models"
)

type bybitResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  *struct {
		List []bybitTicker `json:"list"`
	} `json:"result"`
}

type bybitTicker struct {
	Symbol      string `json:"symbol"`
	Bid1Price   Number `json:"bid1Price"`
	Ask1Price   Number `json:"ask1Price"`
	Turnover24h Number `json:"turnover24h"`
}

type BybitAdapter struct{ base }

func NewBybitAdapter(client *Client, baseURL string, feePct float64) Adapter {
	return &BybitAdapter{base{name: "Bybit", client: client, baseURL: baseURL, fee: feePct}}
}

func (a *BybitAdapter) FetchTickers(ctx context.Context) ([]models.RawTicker, error) {
	var resp bybitResponse
	params := url.Values{"category": {"spot"}}
	if err := a.client.GetJSON(ctx, a.baseURL+"/v5/market/tickers", params, &resp); err != nil {
		return nil, err
	}
	if resp.Result == nil || resp.Result.List == nil {
		return nil, payloadError(a.name, "missing result.list array: "+resp.RetMsg)
	}

	now := time.Now()
	out := make([]models.RawTicker, 0, len(resp.Result.List))
	for _, t := range resp.Result.List {
		asset, ok := SplitSymbol(t.Symbol)
		if !ok || anyMalformed(t.Bid1Price, t.Ask1Price, t.Turnover24h) {
			continue
		}
		out = append(out, a.ticker(asset, t.Bid1Price.Value, t.Ask1Price.Value, t.Turnover24h.Value, now))
	}
	return out, nil
}
