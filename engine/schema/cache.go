package schema

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/renovate-resolver/resolver/pkg/logger"
)

// CompileObserver is notified once per compilation attempt.
type CompileObserver func(duration time.Duration, err error)

// Cache holds the single compiled validator for the process.
//
// The first Get (or Warm) loads the schema from the source and compiles it; all
// concurrent and later callers block on the same one-shot initializer and receive
// the same *Validator, or the same error when loading or compiling failed.
type Cache struct {
	source   Source
	observer CompileObserver

	once      sync.Once
	validator *Validator
	err       error

	compiles atomic.Int64
	ready    atomic.Bool
}

type CacheOption func(*Cache)

func WithCompileObserver(fn CompileObserver) CacheOption {
	return func(c *Cache) {
		c.observer = fn
	}
}

func NewCache(source Source, opts ...CacheOption) *Cache {
	c := &Cache{source: source}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the compiled validator, compiling it on first use.
func (c *Cache) Get(ctx context.Context) (*Validator, error) {
	c.once.Do(func() {
		c.validator, c.err = c.build(ctx)
		if c.err == nil {
			c.ready.Store(true)
		}
	})
	return c.validator, c.err
}

// Warm compiles eagerly. Intended for startup, where a failure must abort the process.
func (c *Cache) Warm(ctx context.Context) error {
	_, err := c.Get(ctx)
	return err
}

// Ready reports whether a validator has been compiled successfully.
func (c *Cache) Ready() bool {
	return c.ready.Load()
}

// Compiles returns how many compilations were attempted. It never exceeds one.
func (c *Cache) Compiles() int64 {
	return c.compiles.Load()
}

func (c *Cache) build(ctx context.Context) (*Validator, error) {
	log := logger.FromContext(ctx)
	// a cancelled first caller must not poison the cache for everyone else
	ctx = context.WithoutCancel(ctx)
	raw, err := c.source.Load(ctx)
	if err != nil {
		log.Error("Could not load Renovate schema", "location", c.source.Location(), "error", err)
		c.notify(0, err)
		return nil, err
	}
	c.compiles.Add(1)
	start := time.Now()
	v, err := Compile(c.source.Location(), raw)
	elapsed := time.Since(start)
	c.notify(elapsed, err)
	if err != nil {
		log.Error("Could not compile Renovate schema", "location", c.source.Location(), "error", err)
		return nil, err
	}
	log.Info("Renovate schema compiled", "location", c.source.Location(), "duration", elapsed)
	return v, nil
}

func (c *Cache) notify(d time.Duration, err error) {
	if c.observer != nil {
		c.observer(d, err)
	}
}
