package exchange

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/irfndi/arbscan/internal/models"
)

type coinexResponse struct {
	Code    int                        `json:"code"`
	Message string                     `json:"message"`
	Data    map[string]json.RawMessage `json:"data"`
}

type coinexTicker struct {
	Buy  Number `json:"buy"`
	Sell Number `json:"sell"`
	Vol  Number `json:"vol"`
}

type coinexEntry struct {
	Ticker coinexTicker `json:"ticker"`
}

// CoinExAdapter reads the v1 all-market ticker. Both layouts are accepted:
// data.ticker keyed by symbol, and data keyed by symbol with a nested ticker.
// The reported volume is base-denominated and only used as a liquidity signal.
type CoinExAdapter struct{ base }

func NewCoinExAdapter(client *Client, baseURL string, feePct float64) Adapter {
	return &CoinExAdapter{base{name: "CoinEx", client: client, baseURL: baseURL, fee: feePct}}
}

func (a *CoinExAdapter) FetchTickers(ctx context.Context) ([]models.RawTicker, error) {
	var resp coinexResponse
	if err := a.client.GetJSON(ctx, a.baseURL+"/v1/market/ticker/all", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, payloadError(a.name, "missing data object: "+resp.Message)
	}

	tickers := make(map[string]coinexTicker)
	if raw, ok := resp.Data["ticker"]; ok {
		if err := json.Unmarshal(raw, &tickers); err != nil {
			return nil, payloadError(a.name, "data.ticker is not an object")
		}
	} else {
		for symbol, raw := range resp.Data {
			var entry coinexEntry
			if err := json.Unmarshal(raw, &entry); err != nil {
				continue
			}
			tickers[symbol] = entry.Ticker
		}
	}

	symbols := make([]string, 0, len(tickers))
	for s := range tickers {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	now := time.Now()
	out := make([]models.RawTicker, 0, len(symbols))
	for _, s := range symbols {
		asset, ok := SplitSymbol(s)
		if !ok {
			continue
		}
		t := tickers[s]
		if anyMalformed(t.Buy, t.Sell, t.Vol) {
			continue
		}
		out = append(out, a.ticker(asset, t.Buy.Value, t.Sell.Value, t.Vol.Value, now))
	}
	return out, nil
}
