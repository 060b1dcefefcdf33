package exchange

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/irfndi/arbscan/internal/models"
)

type binanceTicker24h struct {
	Symbol      string `json:"symbol"`
	QuoteVolume Number `json:"quoteVolume"`
}

type binanceBookTicker struct {
	Symbol   string `json:"symbol"`
	BidPrice Number `json:"bidPrice"`
	AskPrice Number `json:"askPrice"`
}

// BinanceAdapter merges the book ticker with 24h quote volume. The two
// endpoints are fetched in parallel; a failed volume request leaves volumes
// at zero rather than dropping the venue.
type BinanceAdapter struct{ base }

func NewBinanceAdapter(client *Client, baseURL string, feePct float64) Adapter {
	return &BinanceAdapter{base{name: "Binance", client: client, baseURL: baseURL, fee: feePct}}
}

func (a *BinanceAdapter) FetchTickers(ctx context.Context) ([]models.RawTicker, error) {
	var (
		stats    []binanceTicker24h
		books    []binanceBookTicker
		statsErr error
		booksErr error
		g        errgroup.Group
	)
	g.Go(func() error {
		statsErr = a.client.GetJSON(ctx, a.baseURL+"/api/v3/ticker/24hr", nil, &stats)
		return nil
	})
	g.Go(func() error {
		booksErr = a.client.GetJSON(ctx, a.baseURL+"/api/v3/ticker/bookTicker", nil, &books)
		return nil
	})
	_ = g.Wait()

	if booksErr != nil {
		return nil, fmt.Errorf("binance book ticker: %w", booksErr)
	}

	volumes := make(map[string]float64, len(stats))
	if statsErr == nil {
		for _, s := range stats {
			asset, ok := SplitSymbol(s.Symbol)
			if !ok || s.QuoteVolume.Malformed {
				continue
			}
			volumes[asset] = s.QuoteVolume.Value
		}
	}

	now := time.Now()
	out := make([]models.RawTicker, 0, len(books))
	for _, b := range books {
		asset, ok := SplitSymbol(b.Symbol)
		if !ok || anyMalformed(b.BidPrice, b.AskPrice) {
			continue
		}
		out = append(out, a.ticker(asset, b.BidPrice.Value, b.AskPrice.Value, volumes[asset], now))
	}
	return out, nil
}
