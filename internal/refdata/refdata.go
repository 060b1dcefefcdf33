// Package refdata holds per-exchange reference tables the matcher consults:
// which settlement network an asset uses on an exchange, whether deposits or
// withdrawals are suspended, and which tickers are ambiguous across venues.
package refdata

import (
	"fmt"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// Status is the deposit/withdraw state of one asset on one exchange. An empty
// Chain applies to every network of the asset.
type Status struct {
	Exchange string `toml:"exchange"`
	Asset    string `toml:"asset"`
	Chain    string `toml:"chain"`
	Deposit  *bool  `toml:"deposit"`
	Withdraw *bool  `toml:"withdraw"`
}

type document struct {
	Collisions []string                     `toml:"collisions"`
	Chains     map[string]map[string]string `toml:"chains"`
	Status     []Status                     `toml:"status"`
}

type statusKey struct {
	exchange string
	asset    string
	chain    string
}

// Store answers reference lookups. Absent records mean "unknown chain" and
// "allowed"; the zero-configuration store therefore never blocks a match.
type Store struct {
	mu         sync.RWMutex
	chains     map[string]string
	status     map[statusKey]Status
	collisions map[string]struct{}
}

func NewStore() *Store {
	return &Store{
		chains:     make(map[string]string),
		status:     make(map[statusKey]Status),
		collisions: make(map[string]struct{}),
	}
}

// LoadFile reads a TOML reference file. An empty path returns an empty store.
//
//	collisions = ["TON", "GAS"]
//
//	[chains.Binance]
//	USDC = "BEP20"
//
//	[[status]]
//	exchange = "KuCoin"
//	asset = "XYZ"
//	withdraw = false
func LoadFile(path string) (*Store, error) {
	s := NewStore()
	if path == "" {
		return s, nil
	}
	var doc document
	md, err := toml.DecodeFile(path, &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode reference file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown keys in reference file %s: %v", path, undecoded)
	}
	s.apply(doc)
	return s, nil
}

// Parse decodes reference data from a TOML string.
func Parse(data string) (*Store, error) {
	var doc document
	md, err := toml.Decode(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode reference data: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown keys in reference data: %v", undecoded)
	}
	s := NewStore()
	s.apply(doc)
	return s, nil
}

func (s *Store) apply(doc document) {
	for _, c := range doc.Collisions {
		s.collisions[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}
	for exchange, assets := range doc.Chains {
		for asset, chain := range assets {
			s.SetChain(exchange, asset, chain)
		}
	}
	for _, st := range doc.Status {
		s.SetStatus(st)
	}
}

func chainKey(exchange, asset string) string {
	return strings.ToLower(exchange) + "|" + strings.ToUpper(asset)
}

func newStatusKey(exchange, asset, chain string) statusKey {
	return statusKey{
		exchange: strings.ToLower(exchange),
		asset:    strings.ToUpper(asset),
		chain:    strings.ToUpper(chain),
	}
}

// SetChain records the network an exchange settles asset on.
func (s *Store) SetChain(exchange, asset, chain string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chains[chainKey(exchange, asset)] = strings.ToUpper(strings.TrimSpace(chain))
}

// SetStatus records a deposit/withdraw state, replacing any previous one for
// the same exchange, asset and chain.
func (s *Store) SetStatus(st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[newStatusKey(st.Exchange, st.Asset, st.Chain)] = st
}

// MarkCollision adds an ambiguous ticker.
func (s *Store) MarkCollision(asset string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collisions[strings.ToUpper(asset)] = struct{}{}
}

// ChainFor returns the known network or "" when unknown.
func (s *Store) ChainFor(exchange, asset string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chains[chainKey(exchange, asset)]
}

// DepositAllowed reports whether deposits of asset on chain are open.
func (s *Store) DepositAllowed(exchange, asset, chain string) bool {
	st, ok := s.lookup(exchange, asset, chain)
	if !ok || st.Deposit == nil {
		return true
	}
	return *st.Deposit
}

// WithdrawAllowed reports whether withdrawals of asset on chain are open.
func (s *Store) WithdrawAllowed(exchange, asset, chain string) bool {
	st, ok := s.lookup(exchange, asset, chain)
	if !ok || st.Withdraw == nil {
		return true
	}
	return *st.Withdraw
}

// lookup prefers a chain-specific record, then the asset-wide one.
func (s *Store) lookup(exchange, asset, chain string) (Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if chain != "" {
		if st, ok := s.status[newStatusKey(exchange, asset, chain)]; ok {
			return st, true
		}
	}
	st, ok := s.status[newStatusKey(exchange, asset, "")]
	return st, ok
}

// IsBlacklisted reports whether asset is a known cross-venue ticker collision.
func (s *Store) IsBlacklisted(asset string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collisions[strings.ToUpper(asset)]
	return ok
}

// Counts returns the number of chain, status and collision records.
func (s *Store) Counts() (chains, statuses, collisions int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chains), len(s.status), len(s.collisions)
}
