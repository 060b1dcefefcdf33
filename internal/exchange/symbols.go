package exchange

import (
	"math"
	"strconv"
	"strings"
)

// QuoteAsset is the only quote currency the scanner reads.
const QuoteAsset = "USDT"

var leveragedSuffixes = []string{"UPUSDT", "DOWNUSDT", "BULLUSDT", "BEARUSDT"}

// isLeveraged reports whether a separator-free upper-case symbol is a
// leveraged token such as BTCUPUSDT.
func isLeveraged(compact string) bool {
	for _, suffix := range leveragedSuffixes {
		if strings.HasSuffix(compact, suffix) {
			return true
		}
	}
	return false
}

// SplitSymbol extracts the base asset from an exchange symbol quoted in USDT.
// It accepts "BTCUSDT", "BTC-USDT", "BTC_USDT" and lower-case variants, and
// rejects other quote currencies and leveraged tokens.
func SplitSymbol(symbol string) (string, bool) {
	upper := strings.ToUpper(strings.TrimSpace(symbol))
	if !strings.HasSuffix(upper, QuoteAsset) {
		return "", false
	}
	base := strings.TrimSuffix(upper, QuoteAsset)
	base = strings.TrimRight(base, "-_/")
	if base == "" {
		return "", false
	}
	compact := strings.NewReplacer("-", "", "_", "", "/", "").Replace(base) + QuoteAsset
	if isLeveraged(compact) {
		return "", false
	}
	return base, true
}

// Number decodes a JSON number or numeric string. A present but unparsable
// or non-finite value (including "", null, "inf" and "NaN") sets Malformed instead of failing the whole
// payload, so one bad ticker never hides the rest.
type Number struct {
	Value     float64
	Malformed bool
}

func (n *Number) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*n = Number{Malformed: true}
		return nil
	}
	s = strings.Trim(s, `"`)
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		*n = Number{Malformed: true}
		return nil
	}
	*n = Number{Value: v}
	return nil
}

// anyMalformed reports whether any of the numbers failed to parse.
func anyMalformed(nums ...Number) bool {
	for _, n := range nums {
		if n.Malformed {
			return true
		}
	}
	return false
}
