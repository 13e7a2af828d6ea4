// Package engine assembles the session, cache and mutation components into
// one context object with an explicit lifecycle. Nothing here is global:
// every screen works through the Engine it was handed.
package engine

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ValdemirJunior2020/churchApp-Saas/access"
	"github.com/ValdemirJunior2020/churchApp-Saas/apperr"
	"github.com/ValdemirJunior2020/churchApp-Saas/gateway"
	"github.com/ValdemirJunior2020/churchApp-Saas/internal/config"
	"github.com/ValdemirJunior2020/churchApp-Saas/mutations"
	"github.com/ValdemirJunior2020/churchApp-Saas/remote"
	"github.com/ValdemirJunior2020/churchApp-Saas/sessions"
	"github.com/ValdemirJunior2020/churchApp-Saas/store"
	"github.com/ValdemirJunior2020/churchApp-Saas/store/redisstore"
	"github.com/ValdemirJunior2020/churchApp-Saas/store/sqlitestore"
	"github.com/ValdemirJunior2020/churchApp-Saas/tenantdata"
	"github.com/ValdemirJunior2020/churchApp-Saas/tenants"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type Engine struct {
	Sessions  *sessions.Manager
	Data      *tenantdata.Cache
	Mutations *mutations.Coordinator
	Policy    *access.Policy

	store   store.Store
	closers []io.Closer
	logger  zerolog.Logger
}

type options struct {
	store   store.Store
	policy  *access.Policy
	logger  zerolog.Logger
	nowTime func() time.Time
}

// Option defines a function type to modify how an Engine is built.
type Option func(*options)

// WithStore uses s instead of opening the configured backend. The caller
// keeps ownership of s.
func WithStore(s store.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithPolicy replaces the default role policy.
func WithPolicy(p *access.Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(o *options) {
		o.nowTime = nowFunc
	}
}

func New(ctx context.Context, cfg config.Config, opts ...Option) (*Engine, error) {
	o := options{logger: zerolog.Nop(), nowTime: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	e := &Engine{logger: o.logger}

	raw := o.store
	if raw == nil {
		opened, closer, err := openStore(ctx, cfg)
		if err != nil {
			return nil, errors.Wrap(err, "[engine.New] failed to open store")
		}
		raw = opened
		e.closers = append(e.closers, closer)
	}
	e.store = store.WithPrefix(raw, cfg.GetStorePrefix())

	api := remote.New(gateway.New(cfg.GetGatewayURL(),
		gateway.WithAPIKey(cfg.GetGatewayAPIKey()),
		gateway.WithTimeout(cfg.GetGatewayTimeout()),
		gateway.WithLogger(o.logger),
	))

	auth, err := newAuthenticator(cfg, api)
	if err != nil {
		e.Close()
		return nil, errors.Wrap(err, "[engine.New] failed to set up authentication")
	}
	key, err := signingKey(ctx, cfg, e.store)
	if err != nil {
		if key == nil {
			e.Close()
			return nil, errors.Wrap(err, "[engine.New] failed to obtain session signing key")
		}
		o.logger.Warn().Err(err).Msg("device key not persisted, sessions will not survive a restart")
	}

	e.Data = tenantdata.NewCache(api, e.store, tenantdata.WithLogger(o.logger))
	e.Sessions, err = sessions.NewManager(
		sessions.NewStoreRepo(e.store, sessions.NewCodec(key), o.logger),
		auth,
		sessions.WithNowTime(o.nowTime),
		sessions.WithLogger(o.logger),
		sessions.WithAdminIdentity(cfg.GetAdminIdentity()),
		sessions.WithTrialWindow(cfg.GetTrialWindow()),
		sessions.WithNewTenantPlan(sessions.ParsePlanStatus(cfg.GetNewTenantPlan())),
		sessions.WithListener(e.Data),
	)
	if err != nil {
		e.Close()
		return nil, err
	}

	e.Policy = o.policy
	if e.Policy == nil {
		if e.Policy, err = access.DefaultPolicy(); err != nil {
			e.Close()
			return nil, err
		}
	}
	e.Mutations, err = mutations.NewCoordinator(e.Sessions, e.Data, api,
		mutations.WithPolicy(e.Policy),
		mutations.WithLogger(o.logger),
	)
	if err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, io.Closer, error) {
	switch backend := strings.ToLower(cfg.GetStoreBackend()); backend {
	case "sqlite":
		s, err := sqlitestore.Open(cfg.GetStorePath())
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case "redis":
		s, err := redisstore.Dial(ctx, cfg.GetRedisAddr())
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

func newAuthenticator(cfg config.SessionConfig, api *remote.API) (sessions.Authenticator, error) {
	if cfg.GetAuthMode() != config.AuthModeLocal {
		return sessions.NewRemoteAuthenticator(api), nil
	}
	dir, err := sessions.LoadDirectory(cfg.GetLocalDirectoryFile())
	if err != nil {
		return nil, err
	}
	return sessions.NewLocalAuthenticator(dir), nil
}

func signingKey(ctx context.Context, cfg config.SessionConfig, s store.Store) ([]byte, error) {
	if key := cfg.GetSessionSigningKey(); key != "" {
		return []byte(key), nil
	}
	return sessions.DeviceKey(ctx, s)
}

// Start restores the persisted session, if any, and hydrates its tenant.
func (e *Engine) Start(ctx context.Context) (sessions.Session, bool, error) {
	s, ok, err := e.Sessions.Restore(ctx)
	if err != nil || !ok {
		return s, ok, err
	}
	return s, true, e.hydrate(ctx, s)
}

func (e *Engine) Login(ctx context.Context, c remote.Credentials) (sessions.Session, error) {
	s, err := e.Sessions.Login(ctx, c)
	if err != nil {
		return s, err
	}
	return s, e.hydrate(ctx, s)
}

func (e *Engine) JoinTenant(ctx context.Context, code string, p remote.Profile, secret string) (sessions.Session, error) {
	s, err := e.Sessions.JoinTenantAndLogin(ctx, code, p, secret)
	if err != nil {
		return s, err
	}
	return s, e.hydrate(ctx, s)
}

func (e *Engine) CreateTenant(ctx context.Context, churchName string, admin remote.Profile, secret string) (sessions.Session, error) {
	s, err := e.Sessions.CreateTenantAndLogin(ctx, churchName, admin, secret)
	if err != nil {
		return s, err
	}
	return s, e.hydrate(ctx, s)
}

// Logout ends the session; the cache drops the tenant through its listener.
func (e *Engine) Logout(ctx context.Context) {
	e.Sessions.Logout(ctx)
}

// Refresh re-reads col for the current session and returns the data in the
// session's view. The role must be allowed to read col.
func (e *Engine) Refresh(ctx context.Context, col tenants.Collection) (tenantdata.Snapshot, error) {
	s, ok := e.Sessions.Current()
	if !ok {
		return tenantdata.Snapshot{}, fmt.Errorf("[engine] refresh %s: %w", col, apperr.ErrNoSession)
	}
	if err := e.Policy.Check(string(s.Role), string(col), access.Read); err != nil {
		return tenantdata.Snapshot{}, err
	}
	if _, err := e.Data.Refresh(ctx, col); err != nil {
		return tenantdata.Snapshot{}, err
	}
	return e.Data.Snapshot(e.viewFor(s)), nil
}

func (e *Engine) Mutate(ctx context.Context, col tenants.Collection, op mutations.Operation, record map[string]any) (mutations.Result, error) {
	return e.Mutations.Mutate(ctx, col, op, record)
}

// View is the read view for the current session. Roles that may write every
// collection see the admin-editing view, readers see the member view.
func (e *Engine) View() (tenants.View, error) {
	s, ok := e.Sessions.Current()
	if !ok {
		return tenants.MemberView, fmt.Errorf("[engine] %w", apperr.ErrNoSession)
	}
	if err := e.Policy.Check(string(s.Role), "*", access.Read); err != nil {
		return tenants.MemberView, err
	}
	return e.viewFor(s), nil
}

func (e *Engine) viewFor(s sessions.Session) tenants.View {
	if e.Policy.Can(string(s.Role), "*", access.Write) {
		return tenants.AdminView
	}
	return tenants.MemberView
}

func (e *Engine) Close() error {
	var first error
	for _, c := range e.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	e.closers = nil
	return first
}

func (e *Engine) hydrate(ctx context.Context, s sessions.Session) error {
	if err := e.Data.Hydrate(ctx, s.Scope()); err != nil {
		return errors.Wrapf(err, "[engine] hydrate %s", s.TenantCode)
	}
	return nil
}
