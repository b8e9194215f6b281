// Package rangecache memoizes completion sets per coarse time range.
//
// An entry moves absent -> fetching -> valid -> stale -> fetching. Clear
// drops every entry back to absent; a fetch that started before a Clear
// still answers its caller but is not stored.
package rangecache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/templui/habitflywheel/internal/model"
)

const (
	DefaultTTL          = 5 * time.Minute
	DefaultPreloadDelay = 100 * time.Millisecond
)

type State int

const (
	StateAbsent State = iota
	StateFetching
	StateValid
	StateStale
)

func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateValid:
		return "valid"
	case StateStale:
		return "stale"
	default:
		return "absent"
	}
}

// Fetcher loads the authoritative completion set for a range.
type Fetcher func(ctx context.Context, r model.TimeRange) ([]model.Completion, error)

type entry struct {
	completions []model.Completion
	fetchedAt   time.Time
	generation  uint64
}

// Snapshot is a completion set and the cache generation its fetch started
// at. Anything that invalidated the cache before that generation is already
// reflected in the set.
type Snapshot struct {
	Completions []model.Completion
	Generation  uint64
}

type Cache struct {
	mu       sync.Mutex
	entries  map[model.TimeRange]entry
	inflight map[model.TimeRange]int
	gen      uint64

	group        singleflight.Group
	fetch        Fetcher
	ttl          time.Duration
	preloadDelay time.Duration
	now          func() time.Time
	log          *slog.Logger
}

type Option func(*Cache)

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithPreloadDelay(d time.Duration) Option {
	return func(c *Cache) { c.preloadDelay = d }
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Cache) { c.log = log }
}

func New(fetch Fetcher, opts ...Option) *Cache {
	c := &Cache{
		entries:      make(map[model.TimeRange]entry),
		inflight:     make(map[model.TimeRange]int),
		fetch:        fetch,
		ttl:          DefaultTTL,
		preloadDelay: DefaultPreloadDelay,
		now:          time.Now,
		log:          slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// fresh must be called with mu held.
func (c *Cache) fresh(e entry) bool {
	return c.now().Sub(e.fetchedAt) < c.ttl
}

// Get returns the cached set for r while it is within the TTL and fetches it
// otherwise.
func (c *Cache) Get(ctx context.Context, r model.TimeRange) ([]model.Completion, error) {
	snap, err := c.Read(ctx, r)
	if err != nil {
		return nil, err
	}
	return snap.Completions, nil
}

// Read is Get with the generation the returned set was fetched at.
// Concurrent fetches of the same range share one call, which runs detached
// from any single caller's cancellation; each caller stops waiting when its
// own ctx is done.
func (c *Cache) Read(ctx context.Context, r model.TimeRange) (Snapshot, error) {
	c.mu.Lock()
	if e, ok := c.entries[r]; ok && c.fresh(e) {
		c.mu.Unlock()
		return Snapshot{Completions: clone(e.completions), Generation: e.generation}, nil
	}
	c.mu.Unlock()

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(string(r), func() (any, error) {
		return c.load(shared, r)
	})

	select {
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Snapshot{}, res.Err
		}
		snap := res.Val.(Snapshot)
		snap.Completions = clone(snap.Completions)
		return snap, nil
	}
}

func (c *Cache) load(ctx context.Context, r model.TimeRange) (Snapshot, error) {
	c.mu.Lock()
	gen := c.gen
	c.inflight[r]++
	c.mu.Unlock()

	completions, err := c.fetch(ctx, r)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight[r]--
	if c.inflight[r] <= 0 {
		delete(c.inflight, r)
	}
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Completions: completions, Generation: gen}
	if gen != c.gen {
		c.log.Debug("discarding fetch that raced a cache clear", "range", r)
		return snap, nil
	}
	c.entries[r] = entry{completions: completions, fetchedAt: c.now(), generation: gen}
	return snap, nil
}

// Preload waits the preload delay and then populates r unless it is already
// valid, so speculative fetches stay behind the foreground one.
func (c *Cache) Preload(ctx context.Context, r model.TimeRange) error {
	if c.preloadDelay > 0 {
		timer := time.NewTimer(c.preloadDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if c.State(r) == StateValid {
		return nil
	}

	_, err := c.Get(ctx, r)
	if err != nil {
		c.log.Debug("preload failed", "range", r, "error", err)
	}
	return err
}

// Clear drops every entry. Fetches already in flight are not stored.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[model.TimeRange]entry)
	c.gen++
}

// Generation counts Clear calls. A fetch that starts after a Clear reports a
// generation at least as high as the one read right after it.
func (c *Cache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *Cache) State(r model.TimeRange) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inflight[r] > 0 {
		return StateFetching
	}
	e, ok := c.entries[r]
	if !ok {
		return StateAbsent
	}
	if c.fresh(e) {
		return StateValid
	}
	return StateStale
}

// Info is a snapshot of the cache contents.
type Info struct {
	Size  int                               `json:"size"`
	Valid map[model.TimeRange]bool          `json:"valid"`
	Ages  map[model.TimeRange]time.Duration `json:"-"`
}

// HasData reports whether r holds an entry still within the TTL.
func (i Info) HasData(r model.TimeRange) bool {
	return i.Valid[r]
}

func (c *Cache) Info() Info {
	c.mu.Lock()
	defer c.mu.Unlock()

	info := Info{
		Size:  len(c.entries),
		Valid: make(map[model.TimeRange]bool, len(c.entries)),
		Ages:  make(map[model.TimeRange]time.Duration, len(c.entries)),
	}
	now := c.now()
	for r, e := range c.entries {
		info.Valid[r] = c.fresh(e)
		info.Ages[r] = now.Sub(e.fetchedAt)
	}
	return info
}

func clone(in []model.Completion) []model.Completion {
	if in == nil {
		return nil
	}
	out := make([]model.Completion, len(in))
	copy(out, in)
	return out
}
