package mutations

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ValdemirJunior2020/churchApp-Saas/access"
	"github.com/ValdemirJunior2020/churchApp-Saas/apperr"
	"github.com/ValdemirJunior2020/churchApp-Saas/remote"
	"github.com/ValdemirJunior2020/churchApp-Saas/sessions"
	"github.com/ValdemirJunior2020/churchApp-Saas/tenantdata"
	"github.com/ValdemirJunior2020/churchApp-Saas/tenants"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type Operation string

const (
	Create Operation = "CREATE"
	Update Operation = "UPDATE"
	Delete Operation = "DELETE"
)

func ParseOperation(s string) (Operation, bool) {
	switch op := Operation(strings.ToUpper(strings.TrimSpace(s))); op {
	case Create, Update, Delete:
		return op, true
	}
	return "", false
}

// Writer is the remote write surface used by the coordinator.
type Writer interface {
	SaveChurch(ctx context.Context, code string, record map[string]any) error
	SaveDonationLinks(ctx context.Context, code string, items []map[string]any) error
	UpsertEvent(ctx context.Context, code string, record map[string]any) error
	DeleteEvent(ctx context.Context, code, id string) error
	CreateMember(ctx context.Context, code string, record map[string]any) error
	UpdateMember(ctx context.Context, code string, record map[string]any) error
	DeleteMember(ctx context.Context, code, id string) error
}

var _ Writer = (*remote.API)(nil)

// SessionSource yields the session mutations run as.
type SessionSource interface {
	Current() (sessions.Session, bool)
}

// Cache is the part of the tenant data cache the coordinator needs.
type Cache interface {
	Scope() tenants.Scope
	Refresh(ctx context.Context, col tenants.Collection) (tenantdata.Snapshot, error)
	Snapshot(view tenants.View) tenantdata.Snapshot
}

var _ Cache = (*tenantdata.Cache)(nil)

// Result describes a mutation. Applied is true once the backend accepted
// the write, even if the refresh that follows it failed.
type Result struct {
	Applied  bool
	ID       string
	Snapshot tenantdata.Snapshot
}

type lockKey struct {
	tenantID   string
	collection tenants.Collection
}

// Coordinator runs at most one mutation per tenant and collection. A second
// mutation on a busy pair fails immediately with apperr.ErrBusy.
type Coordinator struct {
	mu       sync.Mutex
	inFlight map[lockKey]struct{}

	sessions SessionSource
	cache    Cache
	writer   Writer
	policy   *access.Policy
	newID    func() string
	logger   zerolog.Logger
}

// CoordinatorOption defines a function type to modify the Coordinator instance.
type CoordinatorOption func(*Coordinator)

func WithLogger(logger zerolog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithPolicy replaces the default role policy.
func WithPolicy(p *access.Policy) CoordinatorOption {
	return func(c *Coordinator) {
		c.policy = p
	}
}

// WithIDGenerator sets how ids for new records are made (primarily for testing)
func WithIDGenerator(fn func() string) CoordinatorOption {
	return func(c *Coordinator) {
		c.newID = fn
	}
}

func NewCoordinator(s SessionSource, cache Cache, writer Writer, options ...CoordinatorOption) (*Coordinator, error) {
	if s == nil || cache == nil || writer == nil {
		return nil, errors.New("[NewCoordinator] sessions, cache and writer are required")
	}
	c := &Coordinator{
		inFlight: make(map[lockKey]struct{}),
		sessions: s,
		cache:    cache,
		writer:   writer,
		newID:    newRecordID,
		logger:   zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	if c.policy == nil {
		p, err := access.DefaultPolicy()
		if err != nil {
			return nil, errors.Wrap(err, "[NewCoordinator] failed to build access policy")
		}
		c.policy = p
	}
	return c, nil
}

// Mutate applies op to col for the current session's tenant, then refreshes
// col from the backend. Nothing is applied locally before the backend
// confirms the write.
func (c *Coordinator) Mutate(ctx context.Context, col tenants.Collection, op Operation, record map[string]any) (Result, error) {
	if !col.Valid() {
		return Result{}, fmt.Errorf("[Mutate] %w: unknown collection %q", apperr.ErrInvalidInput, col)
	}
	if _, ok := ParseOperation(string(op)); !ok {
		return Result{}, fmt.Errorf("[Mutate] %w: unknown operation %q", apperr.ErrInvalidInput, op)
	}
	s, ok := c.sessions.Current()
	if !ok {
		return Result{}, fmt.Errorf("[Mutate] %w", apperr.ErrNoSession)
	}
	scope := s.Scope()
	if c.cache.Scope() != scope {
		return Result{}, fmt.Errorf("[Mutate] %w", apperr.ErrTenantChanged)
	}
	if err := c.policy.Check(string(s.Role), string(col), access.Write); err != nil {
		return Result{}, fmt.Errorf("[Mutate] %w", err)
	}

	key := lockKey{tenantID: scope.TenantID, collection: col}
	if !c.acquire(key) {
		return Result{}, fmt.Errorf("[Mutate] %w: %s", apperr.ErrBusy, col)
	}
	defer c.release(key)

	m := mutation{Coordinator: c, session: s, op: op, record: record}
	var id string
	var err error
	switch col {
	case tenants.Config:
		id, err = m.config(ctx)
	case tenants.DonationLinks:
		id, err = m.donationLinks(ctx)
	case tenants.Events:
		id, err = m.events(ctx)
	case tenants.Members:
		id, err = m.members(ctx)
	}
	if err != nil {
		return Result{}, fmt.Errorf("[Mutate] %s %s: %w", op, col, err)
	}
	c.logger.Info().Str("tenant", scope.TenantCode).Str("collection", string(col)).Str("op", string(op)).Str("id", id).Msg("mutation applied")

	snap, err := c.cache.Refresh(ctx, col)
	if err != nil {
		return Result{Applied: true, ID: id}, fmt.Errorf("[Mutate] applied but refresh failed: %w", err)
	}
	return Result{Applied: true, ID: id, Snapshot: snap}, nil
}

func (c *Coordinator) acquire(key lockKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[key]; busy {
		return false
	}
	c.inFlight[key] = struct{}{}
	return true
}

func (c *Coordinator) release(key lockKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, key)
}
