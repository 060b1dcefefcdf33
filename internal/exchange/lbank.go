package exchange

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/irfndi/arbscan/internal/models"
)

type lbankResponse struct {
	Result  interface{}   `json:"result"`
	Message string        `json:"msg"`
	Data    []lbankTicker `json:"data"`
}

type lbankTicker struct {
	Symbol      string `json:"symbol"`
	BestBid     Number `json:"bestBid"`
	BestAsk     Number `json:"bestAsk"`
	QuoteVolume Number `json:"quoteVolume"`
}

type LBankAdapter struct{ base }

func NewLBankAdapter(client *Client, baseURL string, feePct float64) Adapter {
	return &LBankAdapter{base{name: "LBank", client: client, baseURL: baseURL, fee: feePct}}
}

func (a *LBankAdapter) FetchTickers(ctx context.Context) ([]models.RawTicker, error) {
	var resp lbankResponse
	params := url.Values{"symbol": {"all"}}
	if err := a.client.GetJSON(ctx, a.baseURL+"/v2/ticker/24hr.do", params, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, payloadError(a.name, "missing data array: "+resp.Message)
	}

	now := time.Now()
	out := make([]models.RawTicker, 0, len(resp.Data))
	for _, t := range resp.Data {
		if !strings.HasSuffix(strings.ToUpper(t.Symbol), "_"+QuoteAsset) {
			continue
		}
		asset, ok := SplitSymbol(t.Symbol)
		if !ok || anyMalformed(t.BestBid, t.BestAsk, t.QuoteVolume) {
			continue
		}
		out = append(out, a.ticker(asset, t.BestBid.Value, t.BestAsk.Value, t.QuoteVolume.Value, now))
	}
	return out, nil
}
