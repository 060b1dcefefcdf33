package cache

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// SymbolDenylist reports whether a base asset must never be quoted.
// Callers pass upper-case symbols.
type SymbolDenylist interface {
	IsBlacklisted(asset string) bool
}

// DenylistStats holds lookup counters for a denylist.
type DenylistStats struct {
	// Entries is the current number of denied symbols.
	Entries int64 `json:"entries"`
	// Hits is the number of lookups that matched a denied symbol.
	Hits int64 `json:"hits"`
	// Misses is the number of lookups that did not match.
	Misses int64 `json:"misses"`
	// LastLoad is when the symbol set was last replaced.
	LastLoad time.Time `json:"last_load"`
}

// InMemorySymbolDenylist is a thread-safe symbol set, usually loaded from the
// operator-curated blacklist file.
type InMemorySymbolDenylist struct {
	mu       sync.RWMutex
	symbols  map[string]struct{}
	lastLoad time.Time
	hits     atomic.Int64
	misses   atomic.Int64
}

// NewInMemorySymbolDenylist creates a denylist seeded with symbols.
func NewInMemorySymbolDenylist(symbols ...string) *InMemorySymbolDenylist {
	d := &InMemorySymbolDenylist{symbols: make(map[string]struct{}, len(symbols))}
	d.Replace(symbols)
	return d
}

// IsBlacklisted checks if a symbol is denied.
func (d *InMemorySymbolDenylist) IsBlacklisted(asset string) bool {
	d.mu.RLock()
	_, ok := d.symbols[asset]
	d.mu.RUnlock()
	if ok {
		d.hits.Add(1)
	} else {
		d.misses.Add(1)
	}
	return ok
}

// Replace swaps the whole symbol set.
func (d *InMemorySymbolDenylist) Replace(symbols []string) {
	next := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		next[strings.ToUpper(s)] = struct{}{}
	}
	d.mu.Lock()
	d.symbols = next
	d.lastLoad = time.Now()
	d.mu.Unlock()
}

func (d *InMemorySymbolDenylist) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.symbols)
}

func (d *InMemorySymbolDenylist) GetStats() DenylistStats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return DenylistStats{
		Entries:  int64(len(d.symbols)),
		Hits:     d.hits.Load(),
		Misses:   d.misses.Load(),
		LastLoad: d.lastLoad,
	}
}

// ParseBlacklist reads one symbol per line. Anything after '#' is a comment,
// all whitespace is removed and symbols are upper-cased.
func ParseBlacklist(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		token := strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, line)
		if token != "" {
			out = append(out, strings.ToUpper(token))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read blacklist: %w", err)
	}
	return out, nil
}

// LoadBlacklistFile builds a denylist from a flat file. A missing file yields
// an empty list.
func LoadBlacklistFile(path string, logger logrus.FieldLogger) (*InMemorySymbolDenylist, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.WithField("path", path).Warn("Blacklist file not found, continuing without it")
			return NewInMemorySymbolDenylist(), nil
		}
		return nil, fmt.Errorf("failed to open blacklist %s: %w", path, err)
	}
	defer f.Close()

	symbols, err := ParseBlacklist(f)
	if err != nil {
		return nil, err
	}
	d := NewInMemorySymbolDenylist(symbols...)
	logger.WithFields(logrus.Fields{"path": path, "symbols": d.Len()}).Info("Blacklist loaded")
	return d, nil
}

// RedisSymbolDenylist mirrors a Redis set of denied symbols so that several
// scanner instances share one operator list. Lookups read a local snapshot
// refreshed by Refresh; the hot path never touches the network.
type RedisSymbolDenylist struct {
	client   redis.Cmdable
	key      string
	snapshot *InMemorySymbolDenylist
	logger   logrus.FieldLogger
}

// NewRedisSymbolDenylist creates a denylist backed by the Redis set at key.
//
// Parameters:
//
//	client: The Redis client interface.
//	key: The Redis set holding denied symbols.
//	logger: Logger for refresh failures.
//
// Returns:
//
//	*RedisSymbolDenylist: A denylist with an empty snapshot until Refresh succeeds.
func NewRedisSymbolDenylist(client redis.Cmdable, key string, logger logrus.FieldLogger) *RedisSymbolDenylist {
	return &RedisSymbolDenylist{
		client:   client,
		key:      key,
		snapshot: NewInMemorySymbolDenylist(),
		logger:   logger,
	}
}

// Refresh reloads the snapshot. On error the previous snapshot is kept.
func (r *RedisSymbolDenylist) Refresh(ctx context.Context) error {
	members, err := r.client.SMembers(ctx, r.key).Result()
	if err != nil {
		r.logger.WithError(err).WithField("key", r.key).Warn("Failed to refresh Redis denylist, keeping previous snapshot")
		return fmt.Errorf("failed to read denylist set %s: %w", r.key, err)
	}
	r.snapshot.Replace(members)
	return nil
}

func (r *RedisSymbolDenylist) IsBlacklisted(asset string) bool {
	return r.snapshot.IsBlacklisted(asset)
}

func (r *RedisSymbolDenylist) GetStats() DenylistStats {
	return r.snapshot.GetStats()
}

// CompositeDenylist denies a symbol when any member denies it.
type CompositeDenylist []SymbolDenylist

func (c CompositeDenylist) IsBlacklisted(asset string) bool {
	for _, d := range c {
		if d != nil && d.IsBlacklisted(asset) {
			return true
		}
	}
	return false
}
