package services

import (
	"sort"

	"github.com/irfndi/arbscan/internal/models"
)

// Rank orders hits by net spread then gross spread, both descending, with
// pair, buy and sell names as ascending tiebreaks, and keeps at most topK.
// A non-positive topK keeps everything. The input slice is not modified.
func Rank(hits []models.Hit, topK int) []models.Hit {
	ranked := make([]models.Hit, len(hits))
	copy(ranked, hits)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.NetPct != b.NetPct {
			return a.NetPct > b.NetPct
		}
		if a.GrossPct != b.GrossPct {
			return a.GrossPct > b.GrossPct
		}
		if a.Pair != b.Pair {
			return a.Pair < b.Pair
		}
		if a.Buy != b.Buy {
			return a.Buy < b.Buy
		}
		return a.Sell < b.Sell
	})

	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}
