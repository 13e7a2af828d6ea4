package sessions

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ValdemirJunior2020/churchApp-Saas/apperr"
	"github.com/ValdemirJunior2020/churchApp-Saas/internal/config"
	"github.com/ValdemirJunior2020/churchApp-Saas/internal/utils"
	"github.com/ValdemirJunior2020/churchApp-Saas/members"
	"github.com/ValdemirJunior2020/churchApp-Saas/remote"
	"github.com/ValdemirJunior2020/churchApp-Saas/tenants"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	// ConfiguredAdminID is the user id given to sessions opened with the
	// configured admin identity.
	ConfiguredAdminID = "configured-admin"

	newTenantPlan = "PRO"
)

// Listener is told when the active session changes so tenant-scoped state
// can follow it.
type Listener interface {
	SessionStarted(ctx context.Context, s Session)
	SessionEnded(ctx context.Context, s Session)
}

// Manager owns the single device session. Every operation that changes
// the session is serialized; reads never block on the network.
type Manager struct {
	opMu sync.Mutex

	mu      sync.RWMutex
	state   State
	current *Session

	repo        Repo
	auth        Authenticator
	admin       config.AdminIdentity
	trialWindow time.Duration
	newPlan     PlanStatus
	listeners   []Listener
	nowTime     func() time.Time
	logger      zerolog.Logger
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithAdminIdentity enables login with a configured admin account.
func WithAdminIdentity(admin config.AdminIdentity) ManagerOption {
	return func(m *Manager) {
		m.admin = admin
	}
}

func WithTrialWindow(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.trialWindow = d
	}
}

// WithNewTenantPlan sets the plan status given to newly created tenants.
func WithNewTenantPlan(p PlanStatus) ManagerOption {
	return func(m *Manager) {
		m.newPlan = p
	}
}

func WithListener(l Listener) ManagerOption {
	return func(m *Manager) {
		m.listeners = append(m.listeners, l)
	}
}

func NewManager(repo Repo, auth Authenticator, options ...ManagerOption) (*Manager, error) {
	if repo == nil {
		return nil, errors.New("[NewManager] session repo is required")
	}
	if auth == nil {
		return nil, errors.New("[NewManager] authenticator is required")
	}
	m := &Manager{
		repo:        repo,
		auth:        auth,
		trialWindow: 14 * 24 * time.Hour,
		newPlan:     PlanTrial,
		nowTime:     time.Now,
		logger:      zerolog.Nop(),
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// AddListener registers l after construction.
func (m *Manager) AddListener(l Listener) {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	m.listeners = append(m.listeners, l)
}

func (m *Manager) Current() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return Session{}, false
	}
	return *m.current, true
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// CanUseApp evaluates the access gate for the current session now.
func (m *Manager) CanUseApp() bool {
	s, ok := m.Current()
	return ok && s.CanUseApp(m.nowTime())
}

// Restore loads the persisted session and re-validates it. A session whose
// user is no longer an active member is discarded. When validation cannot
// reach the backend the stored session is kept.
func (m *Manager) Restore(ctx context.Context) (Session, bool, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.setState(Hydrating)
	s, ok, err := m.repo.Load(ctx)
	if err != nil {
		m.setState(Unauthenticated)
		return Session{}, false, apperr.Wrapf(err, "[Restore]")
	}
	if !ok {
		m.setState(Unauthenticated)
		return Session{}, false, nil
	}

	valid, err := m.verify(ctx, s)
	if err != nil {
		m.logger.Warn().Err(err).Str("tenant", s.TenantCode).Msg("could not re-validate session, keeping it")
		valid = true
	}
	if !valid {
		m.logger.Info().Str("tenant", s.TenantCode).Str("user", s.UserID).Msg("stored session no longer valid")
		m.end(ctx, &s)
		return Session{}, false, nil
	}
	return m.start(ctx, s), true, nil
}

// Login authenticates against the tenant named in c and replaces any
// previous session on success.
func (m *Manager) Login(ctx context.Context, c remote.Credentials) (Session, error) {
	c.TenantCode = tenants.NormalizeCode(c.TenantCode)
	c.Identifier = strings.TrimSpace(c.Identifier)
	if c.TenantCode == "" {
		return Session{}, fmt.Errorf("[Login] %w: church code is required", apperr.ErrUnknownTenant)
	}
	if c.Identifier == "" || c.Secret == "" {
		return Session{}, fmt.Errorf("[Login] %w: email or phone and password are required", apperr.ErrInvalidCredentials)
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	var id Identity
	var digest string
	var err error
	if m.isConfiguredAdmin(c) {
		id.TenantInfo, err = m.auth.ResolveTenant(ctx, c.TenantCode)
		id.Member = m.configuredAdmin()
		if err == nil {
			digest, err = members.HashSecret(m.admin.Secret)
		}
	} else {
		id, err = m.auth.Authenticate(ctx, c)
	}
	if err != nil {
		return Session{}, apperr.Wrapf(err, "[Login]")
	}
	m.logger.Info().Str("tenant", id.Tenant.Code).Str("user", id.Member.ID).Msg("login")
	s := m.sessionFor(id)
	s.AdminDigest = digest
	return m.start(ctx, s), nil
}

// JoinTenantAndLogin registers a new member in an existing tenant and
// opens a session for it.
func (m *Manager) JoinTenantAndLogin(ctx context.Context, code string, p remote.Profile, secret string) (Session, error) {
	code = tenants.NormalizeCode(code)
	if code == "" {
		return Session{}, fmt.Errorf("[JoinTenantAndLogin] %w: church code is required", apperr.ErrUnknownTenant)
	}
	if err := validateProfile(p, secret); err != nil {
		return Session{}, apperr.Wrapf(err, "[JoinTenantAndLogin]")
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	id, err := m.auth.Signup(ctx, code, p, secret)
	if err != nil {
		return Session{}, apperr.Wrapf(err, "[JoinTenantAndLogin]")
	}
	return m.start(ctx, m.sessionFor(id)), nil
}

// CreateTenantAndLogin creates a tenant with the caller as its admin. The
// trial end is computed here once and stored with the session.
func (m *Manager) CreateTenantAndLogin(ctx context.Context, churchName string, admin remote.Profile, secret string) (Session, error) {
	churchName = strings.TrimSpace(churchName)
	if churchName == "" {
		return Session{}, fmt.Errorf("[CreateTenantAndLogin] %w: church name is required", apperr.ErrInvalidInput)
	}
	if err := validateProfile(admin, secret); err != nil {
		return Session{}, apperr.Wrapf(err, "[CreateTenantAndLogin]")
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	now := m.nowTime().UTC()
	req := remote.StartRequest{
		ChurchName: churchName,
		Admin:      admin,
		Secret:     secret,
		Plan:       newTenantPlan,
		PlanStatus: string(m.newPlan),
		Config:     tenants.DefaultConfig(churchName).Record(),
	}
	if m.newPlan == PlanTrial {
		req.TrialEndsAt = now.Add(m.trialWindow).Format(time.RFC3339)
	}
	reg, err := m.auth.CreateTenant(ctx, req)
	if err != nil {
		return Session{}, apperr.Wrapf(err, "[CreateTenantAndLogin]")
	}
	s := m.sessionFor(reg.Identity)
	s.CheckoutURL = reg.CheckoutURL
	s.BillingSessionID = reg.BillingSessionID
	m.logger.Info().Str("tenant", s.TenantCode).Str("plan", string(s.PlanStatus)).Msg("tenant created")
	return m.start(ctx, s), nil
}

// Logout clears the session from memory and storage and tells listeners to
// drop the tenant's data. Storage failures are logged, not returned.
func (m *Manager) Logout(ctx context.Context) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.RLock()
	prev := m.current
	m.mu.RUnlock()
	m.end(ctx, prev)
}

func (m *Manager) start(ctx context.Context, s Session) Session {
	if err := m.repo.Save(ctx, s); err != nil {
		m.logger.Warn().Err(err).Msg("session kept in memory only")
	}
	m.mu.Lock()
	prev := m.current
	m.current = &s
	m.state = m.stateFor(s)
	m.mu.Unlock()

	if prev != nil && !prev.SameIdentity(s) {
		for _, l := range m.listeners {
			l.SessionEnded(ctx, *prev)
		}
	}
	for _, l := range m.listeners {
		l.SessionStarted(ctx, s)
	}
	return s
}

func (m *Manager) end(ctx context.Context, prev *Session) {
	m.mu.Lock()
	m.current = nil
	m.state = Unauthenticated
	m.mu.Unlock()

	if err := m.repo.Delete(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("failed to clear stored session")
	}
	if prev == nil {
		return
	}
	for _, l := range m.listeners {
		l.SessionEnded(ctx, *prev)
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Manager) stateFor(s Session) State {
	if s.CanUseApp(m.nowTime()) {
		return AuthenticatedActive
	}
	return AuthenticatedGated
}

func (m *Manager) sessionFor(id Identity) Session {
	return Session{
		TenantID:    id.Tenant.ID,
		TenantCode:  id.Tenant.Code,
		ChurchName:  id.Tenant.Name,
		PlanStatus:  id.PlanStatus,
		TrialEndsAt: id.TrialEndsAt,
		UserID:      id.Member.ID,
		Role:        id.Member.Role,
		DisplayName: id.Member.Name,
		Email:       id.Member.Email,
		Phone:       id.Member.Phone,
		LastLoginAt: m.nowTime().UTC(),
	}
}

func (m *Manager) verify(ctx context.Context, s Session) (bool, error) {
	if s.UserID == ConfiguredAdminID {
		// pure comparison, the configured admin never exists remotely
		return m.admin.IsSet() &&
			tenants.NormalizeCode(m.admin.TenantCode) == s.TenantCode &&
			members.Member{Email: s.Email, Phone: s.Phone}.Matches(m.admin.Identifier) &&
			members.CheckSecret(m.admin.Secret, s.AdminDigest), nil
	}
	return m.auth.Verify(ctx, s)
}

func (m *Manager) isConfiguredAdmin(c remote.Credentials) bool {
	if !m.admin.IsSet() || tenants.NormalizeCode(m.admin.TenantCode) != c.TenantCode {
		return false
	}
	if !m.configuredAdmin().Matches(c.Identifier) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.Secret), []byte(m.admin.Secret)) == 1
}

func (m *Manager) configuredAdmin() members.Member {
	admin := members.Member{ID: ConfiguredAdminID, Role: members.RoleAdmin, Name: "Administrator", IsActive: true}
	if members.IsEmail(m.admin.Identifier) {
		admin.Email = strings.ToLower(strings.TrimSpace(m.admin.Identifier))
	} else {
		admin.Phone = strings.TrimSpace(m.admin.Identifier)
	}
	return admin
}

func validateProfile(p remote.Profile, secret string) error {
	if strings.TrimSpace(p.Email) == "" && strings.TrimSpace(p.Phone) == "" {
		return fmt.Errorf("%w: email or phone is required", apperr.ErrInvalidInput)
	}
	if err := members.ValidateSecret(secret); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrInvalidInput, err)
	}
	return nil
}

// TrialEndsIn reports the remaining trial time, or zero outside a trial.
func TrialEndsIn(s Session, now time.Time) time.Duration {
	if s.PlanStatus != PlanTrial {
		return 0
	}
	if left := utils.ValueOr(s.TrialEndsAt, now).Sub(now); left > 0 {
		return left
	}
	return 0
}
