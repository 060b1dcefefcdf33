package exchange

import (
	"context"
	"time"

	"github.com/irfndi/arbscan/internal/models"
)

type htxResponse struct {
	Status string      `json:"status"`
	Data   []htxTicker `json:"data"`
}

type htxTicker struct {
	Symbol string `json:"symbol"`
	Bid    Number `json:"bid"`
	Ask    Number `json:"ask"`
}

// HTXAdapter reads the HTX (Huobi) market tickers. The endpoint carries no
// reliable quote-denominated volume, so volume is reported as zero and HTX
// only clears the liquidity gate when the volume floors are disabled.
type HTXAdapter struct{ base }

func NewHTXAdapter(client *Client, baseURL string, feePct float64) Adapter {
	return &HTXAdapter{base{name: "HTX", client: client, baseURL: baseURL, fee: feePct}}
}

func (a *HTXAdapter) FetchTickers(ctx context.Context) ([]models.RawTicker, error) {
	var resp htxResponse
	if err := a.client.GetJSON(ctx, a.baseURL+"/market/tickers", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, payloadError(a.name, "missing data array, status "+resp.Status)
	}

	now := time.Now()
	out := make([]models.RawTicker, 0, len(resp.Data))
	for _, t := range resp.Data {
		asset, ok := SplitSymbol(t.Symbol)
		if !ok || anyMalformed(t.Bid, t.Ask) {
			continue
		}
		out = append(out, a.ticker(asset, t.Bid.Value, t.Ask.Value, 0, now))
	}
	return out, nil
}
