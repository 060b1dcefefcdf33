package exchange

import (
	"context"
	"strings"
	"time"

	"github.com/irfndi/arbscan/internal/models"
)

type xtResponse struct {
	RC     int        `json:"rc"`
	MC     string     `json:"mc"`
	Result []xtTicker `json:"result"`
}

type xtTicker struct {
	S  string `json:"s"`
	B  Number `json:"b"`
	A  Number `json:"a"`
	QV Number `json:"qv"`
}

type XTAdapter struct{ base }

func NewXTAdapter(client *Client, baseURL string, feePct float64) Adapter {
	return &XTAdapter{base{name: "XT", client: client, baseURL: baseURL, fee: feePct}}
}

func (a *XTAdapter) FetchTickers(ctx context.Context) ([]models.RawTicker, error) {
	var resp xtResponse
	if err := a.client.GetJSON(ctx, a.baseURL+"/v4/public/ticker", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Result == nil {
		return nil, payloadError(a.name, "missing result array: "+resp.MC)
	}

	now := time.Now()
	out := make([]models.RawTicker, 0, len(resp.Result))
	for _, t := range resp.Result {
		if !strings.HasSuffix(strings.ToUpper(t.S), "_"+QuoteAsset) {
			continue
		}
		asset, ok := SplitSymbol(t.S)
		if !ok || anyMalformed(t.B, t.A, t.QV) {
			continue
		}
		out = append(out, a.ticker(asset, t.B.Value, t.A.Value, t.QV.Value, now))
	}
	return out, nil
}
