package exchange

import (
	"context"
	"time"

	"github.com/irfndi/arbscan/internal/models"
)

type bitgetResponse struct {
	Code string         `json:"code"`
	Msg  string         `json:"msg"`
	Data []bitgetTicker `json:"data"`
}

// bitgetTicker covers both the v1 (buyOne/sellOne) and newer
// (bestBid/bestAsk) field names; the newer ones win when both are present.
type bitgetTicker struct {
	Symbol      string  `json:"symbol"`
	InstID      string  `json:"instId"`
	BuyOne      *Number `json:"buyOne"`
	SellOne     *Number `json:"sellOne"`
	BestBid     *Number `json:"bestBid"`
	BestAsk     *Number `json:"bestAsk"`
	QuoteVolume *Number `json:"quoteVolume"`
}

type BitgetAdapter struct{ base }

func NewBitgetAdapter(client *Client, baseURL string, feePct float64) Adapter {
	return &BitgetAdapter{base{name: "Bitget", client: client, baseURL: baseURL, fee: feePct}}
}

func (a *BitgetAdapter) FetchTickers(ctx context.Context) ([]models.RawTicker, error) {
	var resp bitgetResponse
	if err := a.client.GetJSON(ctx, a.baseURL+"/api/spot/v1/market/tickers", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, payloadError(a.name, "missing data array: "+resp.Msg)
	}

	now := time.Now()
	out := make([]models.RawTicker, 0, len(resp.Data))
	for _, t := range resp.Data {
		symbol := t.Symbol
		if symbol == "" {
			symbol = t.InstID
		}
		asset, ok := SplitSymbol(symbol)
		if !ok {
			continue
		}
		bid, ask, vol := firstOf(t.BestBid, t.BuyOne), firstOf(t.BestAsk, t.SellOne), firstOf(t.QuoteVolume)
		if anyMalformed(bid, ask, vol) {
			continue
		}
		out = append(out, a.ticker(asset, bid.Value, ask.Value, vol.Value, now))
	}
	return out, nil
}

// firstOf returns the first present number, or zero when none is present.
func firstOf(nums ...*Number) Number {
	for _, n := range nums {
		if n != nil {
			return *n
		}
	}
	return Number{}
}
