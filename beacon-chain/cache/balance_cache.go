// Package cache holds per-epoch memoizations that back the epoch
// transition's balance lookups. The cache keeps a total and an active
// balance slot per epoch; helpers.TotalActiveBalance uses the active
// slot, since the active balance is summed over every validator in the
// registry and is queried more than once within a single ProcessEpoch
// call (by justification/finalization and by the slashings phase) —
// memoizing by epoch turns an O(validators) walk per call site into
// one walk per epoch. helpers.TotalBalance does not use the cache.
package cache

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"k8s.io/client-go/tools/cache"
)

var (
	balanceCacheMiss = promauto.NewCounter(prometheus.CounterOpts{
		Name: "balance_cache_miss",
		Help: "The number of total/active balance requests that aren't present in the cache.",
	})
	balanceCacheHit = promauto.NewCounter(prometheus.CounterOpts{
		Name: "balance_cache_hit",
		Help: "The number of total/active balance requests that are present in the cache.",
	})
	balanceCacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "balance_cache_size",
		Help: "The number of epochs with a cached balance entry.",
	})
)

// balanceByEpoch is the unit stored in the underlying FIFO, keyed by
// epoch. Total and active are tracked independently since callers ask
// for one or the other and an epoch may populate only one at first.
type balanceByEpoch struct {
	epoch        uint64
	total        uint64
	totalSet     bool
	active       uint64
	activeSet    bool
}

func balanceKey(obj interface{}) (string, error) {
	b, ok := obj.(*balanceByEpoch)
	if !ok || b == nil {
		return "", fmt.Errorf("object is not a *balanceByEpoch")
	}
	return fmt.Sprintf("%d", b.epoch), nil
}

// BalanceCache memoizes total and active balance sums by epoch.
type BalanceCache struct {
	cache *cache.FIFO
	lock  sync.Mutex
}

// NewBalanceCache initializes the underlying FIFO store.
func NewBalanceCache() *BalanceCache {
	return &BalanceCache{
		cache: cache.NewFIFO(balanceKey),
	}
}

// TotalBalance returns the cached total balance for epoch and whether
// it was present.
func (c *BalanceCache) TotalBalance(epoch uint64) (uint64, bool) {
	item, exists, err := c.cache.GetByKey(fmt.Sprintf("%d", epoch))
	if err != nil || !exists {
		balanceCacheMiss.Inc()
		return 0, false
	}
	b := item.(*balanceByEpoch)
	if !b.totalSet {
		balanceCacheMiss.Inc()
		return 0, false
	}
	balanceCacheHit.Inc()
	return b.total, true
}

// ActiveBalance returns the cached active balance for epoch and
// whether it was present.
func (c *BalanceCache) ActiveBalance(epoch uint64) (uint64, bool) {
	item, exists, err := c.cache.GetByKey(fmt.Sprintf("%d", epoch))
	if err != nil || !exists {
		balanceCacheMiss.Inc()
		return 0, false
	}
	b := item.(*balanceByEpoch)
	if !b.activeSet {
		balanceCacheMiss.Inc()
		return 0, false
	}
	balanceCacheHit.Inc()
	return b.active, true
}

// SetTotalBalance stores total as the total balance for epoch,
// preserving any active balance already cached for that epoch.
func (c *BalanceCache) SetTotalBalance(epoch uint64, total uint64) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	entry := c.getOrNew(epoch)
	entry.total = total
	entry.totalSet = true
	if err := c.cache.Add(entry); err != nil {
		return errWrap(err)
	}
	balanceCacheSize.Set(float64(len(c.cache.List())))
	return nil
}

// SetActiveBalance stores active as the active balance for epoch,
// preserving any total balance already cached for that epoch.
func (c *BalanceCache) SetActiveBalance(epoch uint64, active uint64) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	entry := c.getOrNew(epoch)
	entry.active = active
	entry.activeSet = true
	if err := c.cache.Add(entry); err != nil {
		return errWrap(err)
	}
	balanceCacheSize.Set(float64(len(c.cache.List())))
	return nil
}

func (c *BalanceCache) getOrNew(epoch uint64) *balanceByEpoch {
	item, exists, err := c.cache.GetByKey(fmt.Sprintf("%d", epoch))
	if err == nil && exists {
		return item.(*balanceByEpoch)
	}
	return &balanceByEpoch{epoch: epoch}
}

func errWrap(err error) error {
	return fmt.Errorf("could not update balance cache: %w", err)
}
