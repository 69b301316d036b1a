package publisher

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jkoelker/xen-guest-agent/pkg/cache"
	"github.com/jkoelker/xen-guest-agent/pkg/metrics"
)

// dedupStore skips writes whose value was already written within the TTL
// and counts every operation.
type dedupStore struct {
	store   Store
	written *cache.TTL[string, string]
	metrics *metrics.Metrics
	log     *slog.Logger
}

func newDedupStore(store Store, ttl time.Duration, capacity int, m *metrics.Metrics, logger *slog.Logger) *dedupStore {
	written := cache.NewTTL[string, string](ttl,
		cache.WithCapacity[string, string](capacity),
		cache.WithEvict[string, string](func(key, _ string) {
			logger.Debug("dedup entry dropped", "key", key)
		}),
	)

	return &dedupStore{
		store:   store,
		written: written,
		metrics: m,
		log:     logger,
	}
}

func (d *dedupStore) Write(key, value string) error {
	if d.written.Unchanged(key, value) {
		d.metrics.StoreOp("write", metrics.ResultSkipped)

		return nil
	}

	if err := d.store.Write(key, value); err != nil {
		d.written.Remove(key)
		d.metrics.StoreOp("write", metrics.ResultError)

		return fmt.Errorf("write %s: %w", key, err)
	}

	d.written.Add(key, value)
	d.metrics.StoreOp("write", metrics.ResultOK)
	d.log.Debug("store write", "key", key, "value", value)

	return nil
}

func (d *dedupStore) Delete(key string) error {
	subtree := key + "/"
	d.written.RemoveFunc(func(cached string) bool {
		return cached == key || strings.HasPrefix(cached, subtree)
	})

	if err := d.store.Delete(key); err != nil {
		d.metrics.StoreOp("delete", metrics.ResultError)

		return fmt.Errorf("delete %s: %w", key, err)
	}

	d.metrics.StoreOp("delete", metrics.ResultOK)
	d.log.Debug("store delete", "key", key)

	return nil
}
