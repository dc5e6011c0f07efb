package cache

import (
	"go.uber.org/zap"

	"github.com/gobatis/gobatis/logger"
)

// Logging decorates a Cache with hit/miss counters, surfaced
// through the runtime's cache subsystem logger.
type Logging struct {
	delegate   Cache
	hits       int64
	misses     int64
	log        *zap.SugaredLogger
	logEveryN  int64
	operations int64
}

// NewLogging wraps delegate, logging a hit/miss summary every logEveryN
// Get calls (a logEveryN of 0 or less means every 1000; every Remove/Clear
// also logs).
func NewLogging(delegate Cache, logEveryN int64) *Logging {
	if logEveryN <= 0 {
		logEveryN = 1000
	}
	return &Logging{delegate: delegate, log: logger.Cache, logEveryN: logEveryN}
}

func (c *Logging) ID() string { return c.delegate.ID() }

func (c *Logging) Get(key Key) (any, bool) {
	v, ok := c.delegate.Get(key)
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	c.operations++
	if c.operations%c.logEveryN == 0 {
		c.log.Infow("cache hit ratio", "cache", c.delegate.ID(), "hits", c.hits, "misses", c.misses)
	}
	return v, ok
}

func (c *Logging) Put(key Key, value any) { c.delegate.Put(key, value) }

func (c *Logging) Remove(key Key) {
	c.log.Debugw("cache remove", "cache", c.delegate.ID())
	c.delegate.Remove(key)
}

func (c *Logging) Clear() {
	c.log.Infow("cache clear", "cache", c.delegate.ID(), "size", c.delegate.Size())
	c.delegate.Clear()
}

func (c *Logging) Size() int { return c.delegate.Size() }
