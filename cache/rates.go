package cache

import (
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	RATE_TTL = time.Minute
)

type TokenPricer interface {
	TokenPrice(symbol string) (decimal.Decimal, error)
}

// RateCache caches USD exchange rates with a fixed freshness window. On a
// failed refresh it serves the last known rate instead of erroring, since a
// stale price is preferable to blocking the whole flow.
type RateCache struct {
	pricer TokenPricer

	fresh *ttlcache.Cache[string, decimal.Decimal]

	mu    sync.RWMutex
	stale map[string]decimal.Decimal
}

func NewRateCache(pricer TokenPricer, ttl time.Duration) *RateCache {
	if ttl == 0 {
		ttl = RATE_TTL
	}

	cache := ttlcache.New(
		ttlcache.WithTTL[string, decimal.Decimal](ttl),
		ttlcache.WithDisableTouchOnHit[string, decimal.Decimal](),
	)
	go cache.Start()

	return &RateCache{
		pricer: pricer,
		fresh:  cache,
		stale:  make(map[string]decimal.Decimal),
	}
}

// Rate returns the USD price for a symbol, refreshing it when the cached
// entry is older than the freshness window.
func (c *RateCache) Rate(symbol string) (decimal.Decimal, error) {
	if item := c.fresh.Get(symbol); item != nil {
		return item.Value(), nil
	}

	price, err := c.pricer.TokenPrice(symbol)
	if err != nil {
		c.mu.RLock()
		stale, ok := c.stale[symbol]
		c.mu.RUnlock()
		if ok {
			log.Warn().Msgf("Serving stale rate for %s because of %s", symbol, err)
			return stale, nil
		}

		return decimal.Decimal{}, err
	}

	c.fresh.Set(symbol, price, ttlcache.DefaultTTL)
	c.mu.Lock()
	c.stale[symbol] = price
	c.mu.Unlock()

	return price, nil
}

func (c *RateCache) Stop() {
	c.fresh.Stop()
}
