package services

import (
	"math"
	"sort"
	"strings"

	"github.com/irfndi/arbscan/internal/models"
)

// OutlierConfig sets the robust price band applied per pair.
type OutlierConfig struct {
	TrustedExchanges []string
	KTrusted         float64
	KNonTrusted      float64
	// MinExchanges and MinTrusted are eligibility floors on the survivors; 0 disables.
	MinExchanges int
	MinTrusted   int
}

// OutlierFilter drops quotes whose mid strays from the pair's reference
// price. The reference is the median of trusted mids when any trusted
// exchange quotes the pair, otherwise the median of all mids. The band width
// is a multiple of the median absolute deviation of all mids around it.
type OutlierFilter struct {
	cfg     OutlierConfig
	trusted map[string]bool
}

func NewOutlierFilter(cfg OutlierConfig) *OutlierFilter {
	trusted := make(map[string]bool, len(cfg.TrustedExchanges))
	for _, name := range cfg.TrustedExchanges {
		trusted[strings.ToLower(name)] = true
	}
	return &OutlierFilter{cfg: cfg, trusted: trusted}
}

func (f *OutlierFilter) IsTrusted(exchange string) bool {
	return f.trusted[strings.ToLower(exchange)]
}

// Filter returns the surviving quotes in input order, or nil when the pair
// is not eligible for matching this cycle.
func (f *OutlierFilter) Filter(quotes []models.Quote) []models.Quote {
	if len(quotes) < 2 {
		return nil
	}

	all := make([]float64, 0, len(quotes))
	var trustedMids []float64
	for _, q := range quotes {
		all = append(all, q.Mid)
		if f.IsTrusted(q.Exchange) {
			trustedMids = append(trustedMids, q.Mid)
		}
	}
	anchored := len(trustedMids) > 0

	ref := median(all)
	if anchored {
		ref = median(trustedMids)
	}
	spread := mad(all, ref)

	survivors := make([]models.Quote, 0, len(quotes))
	exchanges := make(map[string]struct{}, len(quotes))
	trustedSurvivors := make(map[string]struct{})
	for _, q := range quotes {
		k := f.cfg.KNonTrusted
		isTrusted := f.IsTrusted(q.Exchange)
		if isTrusted {
			k = f.cfg.KTrusted
		}
		if q.Mid < ref-k*spread || q.Mid > ref+k*spread {
			continue
		}
		survivors = append(survivors, q)
		exchanges[q.Exchange] = struct{}{}
		if isTrusted {
			trustedSurvivors[q.Exchange] = struct{}{}
		}
	}

	if len(survivors) < 2 {
		return nil
	}
	if anchored && len(trustedSurvivors) == 0 {
		return nil
	}
	if f.cfg.MinExchanges > 0 && len(exchanges) < f.cfg.MinExchanges {
		return nil
	}
	if f.cfg.MinTrusted > 0 && len(trustedSurvivors) < f.cfg.MinTrusted {
		return nil
	}
	return survivors
}

// median returns the element at index n/2 of the sorted sample, so an
// even-sized sample yields its upper-middle value. Empty input yields 0.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted[len(sorted)/2]
}

// mad is the median absolute deviation of values around center.
func mad(values []float64, center float64) float64 {
	if len(values) == 0 {
		return 0
	}
	dev := make([]float64, len(values))
	for i, v := range values {
		dev[i] = math.Abs(v - center)
	}
	return median(dev)
}
