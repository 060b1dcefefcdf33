// Package exchange turns public spot ticker endpoints into raw top-of-book
// readings. Each venue has one Adapter; the Registry selects which run.
package exchange

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/irfndi/arbscan/internal/config"
	"github.com/irfndi/arbscan/internal/models"
)

// Adapter fetches every USDT spot ticker one exchange publishes.
type Adapter interface {
	Name() string
	FetchTickers(ctx context.Context) ([]models.RawTicker, error)
}

// Factory builds an adapter against baseURL charging feePct taker fees.
type Factory func(client *Client, baseURL string, feePct float64) Adapter

// Descriptor is a catalog entry for one supported exchange.
type Descriptor struct {
	Name         string
	BaseURL      string
	Experimental bool
	New          Factory
}

// Catalog lists the supported venues in polling order.
func Catalog() []Descriptor {
	return []Descriptor{
		{Name: "Binance", BaseURL: "https://api.binance.com", New: NewBinanceAdapter},
		{Name: "OKX", BaseURL: "https://www.okx.com", New: NewOKXAdapter},
		{Name: "KuCoin", BaseURL: "https://api.kucoin.com", New: NewKuCoinAdapter},
		{Name: "Bybit", BaseURL: "https://api.bybit.com", New: NewBybitAdapter},
		{Name: "Gate", BaseURL: "https://api.gateio.ws", New: NewGateAdapter},
		{Name: "MEXC", BaseURL: "https://api.mexc.com", New: NewMEXCAdapter},
		{Name: "Bitget", BaseURL: "https://api.bitget.com", New: NewBitgetAdapter},
		{Name: "HTX", BaseURL: "https://api.huobi.pro", New: NewHTXAdapter},
		{Name: "Bitmart", BaseURL: "https://api-cloud.bitmart.com", Experimental: true, New: NewBitmartAdapter},
		{Name: "XT", BaseURL: "https://sapi.xt.com", Experimental: true, New: NewXTAdapter},
		{Name: "LBank", BaseURL: "https://api.lbkex.com", Experimental: true, New: NewLBankAdapter},
		{Name: "CoinEx", BaseURL: "https://api.coinex.com", Experimental: true, New: NewCoinExAdapter},
	}
}

// Registry holds the adapters selected for this process.
type Registry struct {
	adapters []Adapter
}

// NewRegistry selects adapters from the catalog. Production venues run when
// listed in cfg.Enabled; experimental venues run when listed or when
// cfg.EnableExperimental is set. Unknown names are an error.
func NewRegistry(client *Client, cfg config.ExchangesConfig) (*Registry, error) {
	catalog := Catalog()
	known := make(map[string]bool, len(catalog))
	for _, d := range catalog {
		known[strings.ToLower(d.Name)] = true
	}

	enabled := make(map[string]bool, len(cfg.Enabled))
	for _, name := range cfg.Enabled {
		key := strings.ToLower(strings.TrimSpace(name))
		if !known[key] {
			return nil, fmt.Errorf("unknown exchange %q in exchanges.enabled", name)
		}
		enabled[key] = true
	}

	r := &Registry{}
	for _, d := range catalog {
		key := strings.ToLower(d.Name)
		if !enabled[key] && !(d.Experimental && cfg.EnableExperimental) {
			continue
		}
		baseURL := d.BaseURL
		if override := cfg.BaseURLFor(d.Name); override != "" {
			baseURL = strings.TrimRight(override, "/")
		}
		r.adapters = append(r.adapters, d.New(client, baseURL, cfg.FeeFor(d.Name)))
	}
	return r, nil
}

// NewStaticRegistry wraps pre-built adapters.
func NewStaticRegistry(adapters ...Adapter) *Registry {
	return &Registry{adapters: adapters}
}

func (r *Registry) Adapters() []Adapter {
	out := make([]Adapter, len(r.adapters))
	copy(out, r.adapters)
	return out
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.adapters))
	for i, a := range r.adapters {
		names[i] = a.Name()
	}
	return names
}

// base carries what every adapter shares.
type base struct {
	name    string
	client  *Client
	baseURL string
	fee     float64
}

func (b base) Name() string { return b.name }

func (b base) ticker(asset string, bid, ask, vol float64, now time.Time) models.RawTicker {
	return models.RawTicker{
		Exchange:  b.name,
		Base:      asset,
		Bid:       bid,
		Ask:       ask,
		QuoteVol:  vol,
		TakerFee:  b.fee,
		FetchedAt: now,
	}
}

func payloadError(exchange, detail string) error {
	return fmt.Errorf("%s: %w: %s", exchange, ErrUnexpectedPayload, detail)
}
