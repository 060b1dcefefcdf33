package services

import (
	"time"

	"github.com/irfndi/arbscan/internal/models"
)

// Gate holds the only state carried between cycles: consecutive-cycle
// survival counters and the last alert time per opportunity key.
//
// Gate is not safe for concurrent use; it is driven from the single cycle
// loop.
type Gate struct {
	minTicks    int
	minInterval time.Duration
	counters    map[models.OpportunityKey]int
	lastSent    map[models.OpportunityKey]time.Time
}

func NewGate(minTicks int, minInterval time.Duration) *Gate {
	if minTicks < 1 {
		minTicks = 1
	}
	return &Gate{
		minTicks:    minTicks,
		minInterval: minInterval,
		counters:    make(map[models.OpportunityKey]int),
		lastSent:    make(map[models.OpportunityKey]time.Time),
	}
}

// Observe records one cycle's hits and returns those whose key has now been
// seen in at least minTicks consecutive cycles, in input order. Keys missing
// from hits are forgotten. A key repeated within hits counts once.
func (g *Gate) Observe(hits []models.Hit) []models.Hit {
	seen := make(map[models.OpportunityKey]struct{}, len(hits))
	for _, h := range hits {
		k := h.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		g.counters[k]++
	}
	for k := range g.counters {
		if _, ok := seen[k]; !ok {
			delete(g.counters, k)
		}
	}

	durable := make([]models.Hit, 0, len(hits))
	for _, h := range hits {
		if g.counters[h.Key()] >= g.minTicks {
			durable = append(durable, h)
		}
	}
	return durable
}

// Count returns the current consecutive-cycle count for key, 0 when untracked.
func (g *Gate) Count(key models.OpportunityKey) int {
	return g.counters[key]
}

// Tracked is the number of keys with a live counter.
func (g *Gate) Tracked() int {
	return len(g.counters)
}

// AllowAlert reports whether key may be alerted at now and, if so, stamps
// it. The stamp is kept whether or not delivery later succeeds.
func (g *Gate) AllowAlert(key models.OpportunityKey, now time.Time) bool {
	if last, ok := g.lastSent[key]; ok && now.Sub(last) <= g.minInterval {
		return false
	}
	g.lastSent[key] = now
	return true
}
