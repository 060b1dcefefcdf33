package exchange

import (
	"context"
	"net/url"
	"time"

	"github.com/irfndi/arbscan/internal/models"
)

type okxResponse struct {
	Code string      `json:"code"`
	Msg  string      `json:"msg"`
	Data []okxTicker `json:"data"`
}

type okxTicker struct {
	InstID    string `json:"instId"`
	BidPx     Number `json:"bidPx"`
	AskPx     Number `json:"askPx"`
	VolCcy24h Number `json:"volCcy24h"`
}

type OKXAdapter struct{ base }

func NewOKXAdapter(client *Client, baseURL string, feePct float64) Adapter {
	return &OKXAdapter{base{name: "OKX", client: client, baseURL: baseURL, fee: feePct}}
}

func (a *OKXAdapter) FetchTickers(ctx context.Context) ([]models.RawTicker, error) {
	var resp okxResponse
	params := url.Values{"instType": {"SPOT"}}
	if err := a.client.GetJSON(ctx, a.baseURL+"/api/v5/market/tickers", params, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, payloadError(a.name, "missing data array: "+resp.Msg)
	}

	now := time.Now()
	out := make([]models.RawTicker, 0, len(resp.Data))
	for _, t := range resp.Data {
		asset, ok := SplitSymbol(t.InstID)
		if !ok || anyMalformed(t.BidPx, t.AskPx, t.VolCcy24h) {
			continue
		}
		out = append(out, a.ticker(asset, t.BidPx.Value, t.AskPx.Value, t.VolCcy24h.Value, now))
	}
	return out, nil
}
