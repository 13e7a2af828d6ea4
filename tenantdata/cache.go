package tenantdata

import (
	"context"
	"fmt"
	"sync"

	"github.com/ValdemirJunior2020/churchApp-Saas/apperr"
	"github.com/ValdemirJunior2020/churchApp-Saas/members"
	"github.com/ValdemirJunior2020/churchApp-Saas/remote"
	"github.com/ValdemirJunior2020/churchApp-Saas/sessions"
	"github.com/ValdemirJunior2020/churchApp-Saas/store"
	"github.com/ValdemirJunior2020/churchApp-Saas/tenants"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Source is the remote side of the cache.
type Source interface {
	GetChurch(ctx context.Context, code string) (remote.ChurchReply, error)
	ListEvents(ctx context.Context, code string) ([]map[string]any, error)
	ListMembers(ctx context.Context, code string) ([]map[string]any, error)
}

var _ Source = (*remote.API)(nil)

// Change is published to subscribers whenever cached data changes. An
// empty Collection means the whole cache was replaced or cleared.
type Change struct {
	Scope      tenants.Scope
	Collection tenants.Collection
}

// Snapshot is a consistent copy of every collection for one tenant.
type Snapshot struct {
	Scope         tenants.Scope
	Config        *tenants.TenantConfig
	DonationLinks []tenants.DonationLink
	Events        []tenants.Event
	Members       []members.Member
}

// Cache holds the active tenant's collections in memory and mirrors them to
// the store. Every remote result is tagged with the generation it was
// requested under and discarded if the tenant changed in between.
type Cache struct {
	mu         sync.RWMutex
	scope      tenants.Scope
	generation uint64
	data       Snapshot

	persistMu sync.Mutex

	subMu       sync.Mutex
	subscribers map[int]func(Change)
	nextSub     int

	source Source
	store  store.Store
	logger zerolog.Logger
}

var _ sessions.Listener = (*Cache)(nil)

// CacheOption defines a function type to modify the Cache instance.
type CacheOption func(*Cache)

func WithLogger(logger zerolog.Logger) CacheOption {
	return func(c *Cache) {
		c.logger = logger
	}
}

func NewCache(source Source, s store.Store, options ...CacheOption) *Cache {
	c := &Cache{
		source:      source,
		store:       s,
		subscribers: make(map[int]func(Change)),
		logger:      zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Subscribe registers fn for change notifications. fn runs on the goroutine
// that made the change and must not call back into Subscribe.
func (c *Cache) Subscribe(fn func(Change)) (unsubscribe func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = fn
	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.subscribers, id)
	}
}

func (c *Cache) publish(ch Change) {
	c.subMu.Lock()
	fns := make([]func(Change), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()
	for _, fn := range fns {
		fn(ch)
	}
}

func (c *Cache) Scope() tenants.Scope {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scope
}

// Activate switches the cache to scope. Switching to another tenant clears
// everything held in memory first; activating the current scope is a no-op.
func (c *Cache) Activate(scope tenants.Scope) {
	c.mu.Lock()
	if c.scope == scope {
		c.mu.Unlock()
		return
	}
	c.scope = scope
	c.generation++
	c.data = Snapshot{Scope: scope}
	c.mu.Unlock()
	c.publish(Change{Scope: scope})
}

// Drop forgets scope in memory and in the store. Requests still in flight
// for it are discarded when they complete.
func (c *Cache) Drop(ctx context.Context, scope tenants.Scope) {
	c.mu.Lock()
	current := c.scope == scope
	if current {
		c.scope = tenants.Scope{}
		c.generation++
		c.data = Snapshot{}
	}
	c.mu.Unlock()

	if scope.TenantID != "" {
		c.persistMu.Lock()
		for _, col := range tenants.AllCollections {
			if err := c.store.Remove(ctx, store.CollectionKey(scope.TenantID, string(col))); err != nil {
				c.logger.Warn().Err(err).Str("collection", string(col)).Msg("failed to remove cached collection")
			}
		}
		c.persistMu.Unlock()
	}
	if current {
		c.publish(Change{})
	}
}

func (c *Cache) SessionStarted(_ context.Context, s sessions.Session) {
	c.Activate(s.Scope())
}

func (c *Cache) SessionEnded(ctx context.Context, s sessions.Session) {
	c.Drop(ctx, s.Scope())
}

// Hydrate makes scope active, publishes whatever the store holds for it and
// then reconciles every collection with the backend concurrently. Remote
// failures leave the stored data in place and are only logged.
func (c *Cache) Hydrate(ctx context.Context, scope tenants.Scope) error {
	if scope.IsZero() {
		return fmt.Errorf("[Hydrate] %w", apperr.ErrNoSession)
	}
	c.Activate(scope)
	gen, ok := c.generationFor(scope)
	if !ok {
		return fmt.Errorf("[Hydrate] %w", apperr.ErrTenantChanged)
	}

	c.loadStored(ctx, scope, gen)

	g := errgroup.Group{}
	g.Go(func() error { return c.fetchChurch(ctx, scope, gen) })
	g.Go(func() error { return c.fetchEvents(ctx, scope, gen) })
	g.Go(func() error { return c.fetchMembers(ctx, scope, gen) })
	if err := g.Wait(); err != nil {
		if apperr.Is(err, apperr.ErrTenantChanged) {
			c.logger.Debug().Err(err).Str("tenant", scope.TenantCode).Msg("hydrate result discarded")
		} else {
			c.logger.Warn().Err(err).Str("tenant", scope.TenantCode).
				Bool("transient", apperr.IsTransient(err)).
				Msg("hydrate incomplete, serving cached data")
		}
	}
	return nil
}

// Refresh re-fetches one collection for the active tenant and returns the
// resulting snapshot. On failure the cached data is left untouched.
func (c *Cache) Refresh(ctx context.Context, col tenants.Collection) (Snapshot, error) {
	if !col.Valid() {
		return Snapshot{}, fmt.Errorf("[Refresh] %w: unknown collection %q", apperr.ErrInvalidInput, col)
	}
	c.mu.RLock()
	scope, gen := c.scope, c.generation
	c.mu.RUnlock()
	if scope.IsZero() {
		return Snapshot{}, fmt.Errorf("[Refresh] %w", apperr.ErrNoSession)
	}

	var err error
	switch col {
	case tenants.Config, tenants.DonationLinks:
		err = c.fetchChurch(ctx, scope, gen)
	case tenants.Events:
		err = c.fetchEvents(ctx, scope, gen)
	case tenants.Members:
		err = c.fetchMembers(ctx, scope, gen)
	}
	if err != nil {
		if apperr.Is(err, apperr.ErrTenantChanged) {
			return Snapshot{}, fmt.Errorf("[Refresh] %w", err)
		}
		return Snapshot{}, fmt.Errorf("[Refresh] %w: %s: %w", apperr.ErrSync, col, err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.generation != gen {
		return Snapshot{}, fmt.Errorf("[Refresh] %w", apperr.ErrTenantChanged)
	}
	return c.snapshotLocked(tenants.AdminView), nil
}

func (c *Cache) Config() (tenants.TenantConfig, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.data.Config == nil {
		return tenants.TenantConfig{}, false
	}
	return *c.data.Config, true
}

func (c *Cache) DonationLinks(view tenants.View) []tenants.DonationLink {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return tenants.FilterDonationLinks(c.data.DonationLinks, view)
}

func (c *Cache) Events(view tenants.View) []tenants.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return tenants.FilterEvents(c.data.Events, view)
}

func (c *Cache) Members(view tenants.View) []members.Member {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return members.Filter(c.data.Members, view)
}

// Snapshot copies every collection as seen through view.
func (c *Cache) Snapshot(view tenants.View) Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked(view)
}

func (c *Cache) snapshotLocked(view tenants.View) Snapshot {
	s := Snapshot{
		Scope:         c.scope,
		DonationLinks: tenants.FilterDonationLinks(c.data.DonationLinks, view),
		Events:        tenants.FilterEvents(c.data.Events, view),
		Members:       members.Filter(c.data.Members, view),
	}
	if c.data.Config != nil {
		cfg := *c.data.Config
		s.Config = &cfg
	}
	return s
}

func (c *Cache) generationFor(scope tenants.Scope) (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation, c.scope == scope
}

func (c *Cache) fetchChurch(ctx context.Context, scope tenants.Scope, gen uint64) error {
	reply, err := c.source.GetChurch(ctx, scope.TenantCode)
	if err != nil {
		return err
	}
	if reply.Church == nil {
		return fmt.Errorf("%w: %s", apperr.ErrUnknownTenant, scope.TenantCode)
	}
	cfg, _ := tenants.NormalizeConfig(reply.Church)
	links := tenants.NormalizeDonationLinks(reply.Donations, tenants.AdminView)
	if err := c.install(scope, gen, tenants.Config, func(d *Snapshot) { d.Config = &cfg }); err != nil {
		return err
	}
	if err := c.install(scope, gen, tenants.DonationLinks, func(d *Snapshot) { d.DonationLinks = links }); err != nil {
		return err
	}
	c.persist(context.WithoutCancel(ctx), scope, gen, tenants.Config, cfg)
	c.persist(context.WithoutCancel(ctx), scope, gen, tenants.DonationLinks, links)
	return nil
}

func (c *Cache) fetchEvents(ctx context.Context, scope tenants.Scope, gen uint64) error {
	rows, err := c.source.ListEvents(ctx, scope.TenantCode)
	if err != nil {
		return err
	}
	events := tenants.NormalizeEvents(rows, tenants.AdminView)
	if err := c.install(scope, gen, tenants.Events, func(d *Snapshot) { d.Events = events }); err != nil {
		return err
	}
	c.persist(context.WithoutCancel(ctx), scope, gen, tenants.Events, events)
	return nil
}

func (c *Cache) fetchMembers(ctx context.Context, scope tenants.Scope, gen uint64) error {
	rows, err := c.source.ListMembers(ctx, scope.TenantCode)
	if err != nil {
		return err
	}
	list := members.NormalizeMembers(rows, tenants.AdminView)
	if err := c.install(scope, gen, tenants.Members, func(d *Snapshot) { d.Members = list }); err != nil {
		return err
	}
	c.persist(context.WithoutCancel(ctx), scope, gen, tenants.Members, list)
	return nil
}

// install applies fn to the in-memory data if the cache is still on the
// generation the data was requested under.
func (c *Cache) install(scope tenants.Scope, gen uint64, col tenants.Collection, fn func(*Snapshot)) error {
	c.mu.Lock()
	if c.generation != gen || c.scope != scope {
		c.mu.Unlock()
		return apperr.ErrTenantChanged
	}
	fn(&c.data)
	c.mu.Unlock()
	c.publish(Change{Scope: scope, Collection: col})
	return nil
}
