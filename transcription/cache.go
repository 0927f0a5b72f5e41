package transcription

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kbukum/mediascribe/errors"
	"github.com/kbukum/mediascribe/logger"
	"github.com/kbukum/mediascribe/observability"
	"github.com/kbukum/mediascribe/provider"
	"github.com/kbukum/mediascribe/source"
)

// Cache holds loaded engines keyed by selector. Engines are never evicted.
type Cache struct {
	loader      Loader
	loadTimeout time.Duration
	log         *logger.Logger
	metrics     *observability.Metrics

	group singleflight.Group

	mu      sync.RWMutex
	entries map[source.Selector]*entry
}

type entry struct {
	engine   Engine
	loadedAt time.Time

	mu       sync.Mutex
	lastUsed time.Time
}

func (e *entry) touch() {
	e.mu.Lock()
	e.lastUsed = time.Now()
	e.mu.Unlock()
}

// Entry describes a loaded engine.
type Entry struct {
	Selector source.Selector `json:"selector"`
	Engine   string          `json:"engine"`
	LoadedAt time.Time       `json:"loaded_at"`
	LastUsed time.Time       `json:"last_used"`
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithLoadTimeout bounds each model load.
func WithLoadTimeout(d time.Duration) CacheOption {
	return func(c *Cache) { c.loadTimeout = d }
}

// WithCacheMetrics records model load durations.
func WithCacheMetrics(m *observability.Metrics) CacheOption {
	return func(c *Cache) { c.metrics = m }
}

// NewCache creates an empty cache backed by loader.
func NewCache(loader Loader, opts ...CacheOption) *Cache {
	c := &Cache{
		loader:  loader,
		log:     logger.Get("transcription"),
		entries: make(map[source.Selector]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backend returns the loader name.
func (c *Cache) Backend() string { return c.loader.Name() }

// Available reports whether the loader can currently load models.
func (c *Cache) Available(ctx context.Context) bool { return c.loader.IsAvailable(ctx) }

// Get returns the engine for sel, loading it on first use. Callers waiting
// on a load return early when ctx is done; the load itself continues so
// other waiters still get the engine. Failed loads are not cached.
func (c *Cache) Get(ctx context.Context, sel source.Selector) (Engine, error) {
	if e := c.lookup(sel); e != nil {
		e.touch()
		return e.engine, nil
	}

	ch := c.group.DoChan(string(sel), func() (any, error) {
		if e := c.lookup(sel); e != nil {
			return e, nil
		}
		return c.load(context.WithoutCancel(ctx), sel)
	})

	select {
	case <-ctx.Done():
		return nil, errors.Interrupted(ctx, "model load")
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		e := res.Val.(*entry)
		e.touch()
		return e.engine, nil
	}
}

func (c *Cache) lookup(sel source.Selector) *entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[sel]
}

func (c *Cache) load(ctx context.Context, sel source.Selector) (*entry, error) {
	if c.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.loadTimeout)
		defer cancel()
	}
	ctx, span := observability.StartSpan(ctx, observability.SpanModelLoad)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrSelector, string(sel))

	start := time.Now()
	c.log.Info("loading model", logger.Fields(logger.FieldSelector, string(sel), "backend", c.loader.Name()))

	engine, err := c.loader.Load(ctx, sel)
	if err == nil && engine == nil {
		err = errors.Internal(nil).WithDetail("reason", "loader returned no engine")
	}
	if err != nil {
		observability.SetSpanError(ctx, err)
		c.log.Error("model load failed", logger.MergeWithError(logger.Fields(logger.FieldSelector, string(sel)), err))
		return nil, loadError(sel, err)
	}

	elapsed := time.Since(start)
	c.metrics.RecordModelLoad(ctx, string(sel), elapsed)
	c.log.Info("model loaded", logger.Fields(
		logger.FieldSelector, string(sel),
		logger.FieldDuration, elapsed.Milliseconds(),
	))

	e := &entry{engine: engine, loadedAt: time.Now()}
	c.mu.Lock()
	c.entries[sel] = e
	c.mu.Unlock()
	return e, nil
}

func loadError(sel source.Selector, err error) error {
	if errors.Is(err, errors.ErrCodeTranscriptionFailed) {
		return err
	}
	return errors.TranscriptionFailed("model "+string(sel)+" could not be loaded", err).
		WithDetail("model", string(sel))
}

// Loaded lists the loaded engines in selector size order.
func (c *Cache) Loaded() []Entry {
	c.mu.RLock()
	out := make([]Entry, 0, len(c.entries))
	for sel, e := range c.entries {
		e.mu.Lock()
		out = append(out, Entry{Selector: sel, Engine: e.engine.Name(), LoadedAt: e.loadedAt, LastUsed: e.lastUsed})
		e.mu.Unlock()
	}
	c.mu.RUnlock()

	rank := make(map[source.Selector]int)
	for i, sel := range source.Selectors() {
		rank[sel] = i
	}
	sort.Slice(out, func(i, j int) bool { return rank[out[i].Selector] < rank[out[j].Selector] })
	return out
}

// IsLoaded reports whether sel has a loaded engine.
func (c *Cache) IsLoaded(sel source.Selector) bool { return c.lookup(sel) != nil }

// Close releases every engine that holds resources, empties the cache and
// closes the loader.
func (c *Cache) Close(ctx context.Context) error {
	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[source.Selector]*entry)
	c.mu.Unlock()

	var firstErr error
	for sel, e := range entries {
		if err := provider.CloseIfCloseable(ctx, e.engine); err != nil {
			c.log.Warn("closing engine failed", logger.MergeWithError(logger.Fields(logger.FieldSelector, string(sel)), err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	// The loader outlives its engines.
	if err := provider.CloseIfCloseable(ctx, c.loader); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Preload loads every selector in sels, one after another, and returns the
// first failure. Already loaded selectors are skipped.
func (c *Cache) Preload(ctx context.Context, sels ...source.Selector) error {
	for _, sel := range sels {
		if _, err := c.Get(ctx, sel); err != nil {
			return err
		}
	}
	return nil
}
