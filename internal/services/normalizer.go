package services

import (
	"math"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/irfndi/arbscan/internal/cache"
	"github.com/irfndi/arbscan/internal/models"
)

// ReferenceData is the read side of the per-exchange reference tables.
type ReferenceData interface {
	ChainFor(exchange, asset string) string
	DepositAllowed(exchange, asset, chain string) bool
	WithdrawAllowed(exchange, asset, chain string) bool
}

// NormalizeBase canonicalizes a base asset symbol.
func NormalizeBase(base string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(base))
}

// isDirtySymbol rejects tickers too short to be unambiguous or carrying
// digits (redenominated or wrapped variants).
func isDirtySymbol(base string) bool {
	if len(base) < 3 {
		return true
	}
	return strings.IndexFunc(base, unicode.IsDigit) >= 0
}

// Normalizer validates raw tickers into quotes. Checks run in a fixed order
// and the first failing one names the rejection.
type Normalizer struct {
	quoteCurrency     string
	maxRelInnerSpread float64
	blacklist         cache.SymbolDenylist
	collisions        cache.SymbolDenylist
	ref               ReferenceData
	logger            *logrus.Entry
}

func NewNormalizer(quoteCurrency string, maxRelInnerSpread float64, blacklist, collisions cache.SymbolDenylist, ref ReferenceData, logger *logrus.Entry) *Normalizer {
	if blacklist == nil {
		blacklist = cache.CompositeDenylist{}
	}
	if collisions == nil {
		collisions = cache.CompositeDenylist{}
	}
	return &Normalizer{
		quoteCurrency:     quoteCurrency,
		maxRelInnerSpread: maxRelInnerSpread,
		blacklist:         blacklist,
		collisions:        collisions,
		ref:               ref,
		logger:            logger,
	}
}

// Normalize adds raw to book when it passes every check and otherwise
// returns the reason it was dropped.
func (n *Normalizer) Normalize(book *models.MarketBook, raw models.RawTicker) models.RejectReason {
	reason, base := n.check(raw)
	if reason != models.RejectNone {
		if n.logger.Logger.IsLevelEnabled(logrus.DebugLevel) {
			n.logger.WithFields(logrus.Fields{
				"exchange": raw.Exchange,
				"base":     raw.Base,
				"reason":   string(reason),
			}).Debug("Quote rejected")
		}
		return reason
	}

	chain := NormalizeBase(raw.Chain)
	if chain == "" && n.ref != nil {
		chain = n.ref.ChainFor(raw.Exchange, base)
	}
	book.Add(models.PairKey(base, n.quoteCurrency), models.NewQuote(raw.Exchange, raw.Bid, raw.Ask, raw.QuoteVol, raw.TakerFee, chain))
	return models.RejectNone
}

func (n *Normalizer) check(raw models.RawTicker) (models.RejectReason, string) {
	if !positiveFinite(raw.Bid) || !positiveFinite(raw.Ask) {
		return models.RejectNonPositive, ""
	}
	base := NormalizeBase(raw.Base)
	if n.blacklist.IsBlacklisted(base) {
		return models.RejectBlacklisted, base
	}
	if n.collisions.IsBlacklisted(base) {
		return models.RejectCollision, base
	}
	if isDirtySymbol(base) {
		return models.RejectDirtySymbol, base
	}
	if (raw.Ask-raw.Bid)/raw.Ask > n.maxRelInnerSpread {
		return models.RejectInnerSpread, base
	}
	return models.RejectNone, base
}

// positiveFinite is false for NaN and both infinities.
func positiveFinite(x float64) bool {
	return x > 0 && !math.IsInf(x, 1)
}
