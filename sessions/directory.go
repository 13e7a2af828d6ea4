package sessions

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ValdemirJunior2020/churchApp-Saas/apperr"
	"github.com/ValdemirJunior2020/churchApp-Saas/members"
	"github.com/ValdemirJunior2020/churchApp-Saas/remote"
	"github.com/ValdemirJunior2020/churchApp-Saas/tenants"
	"gopkg.in/yaml.v3"
)

// DirectoryMember is one member entry of a local directory file. Secret
// holds a bcrypt hash.
type DirectoryMember struct {
	ID     string       `yaml:"id"`
	Role   members.Role `yaml:"role"`
	Name   string       `yaml:"name"`
	Email  string       `yaml:"email"`
	Phone  string       `yaml:"phone"`
	Secret string       `yaml:"secret"`
	Active *bool        `yaml:"active"`
}

type DirectoryTenant struct {
	ID          string            `yaml:"id"`
	Code        string            `yaml:"code"`
	Name        string            `yaml:"name"`
	PlanStatus  string            `yaml:"plan_status"`
	TrialEndsAt *time.Time        `yaml:"trial_ends_at"`
	Members     []DirectoryMember `yaml:"members"`
}

// Directory is the tenant and member list used when the app runs with
// local-only authentication.
type Directory struct {
	Tenants []DirectoryTenant `yaml:"tenants"`
}

func LoadDirectory(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("[LoadDirectory] %w: %w", apperr.ErrIO, err)
	}
	dir := &Directory{}
	if err := yaml.Unmarshal(data, dir); err != nil {
		return nil, fmt.Errorf("[LoadDirectory] failed to parse %s: %w", path, err)
	}
	return dir, nil
}

func (d *Directory) tenant(code string) (*DirectoryTenant, bool) {
	code = tenants.NormalizeCode(code)
	for i := range d.Tenants {
		if tenants.NormalizeCode(d.Tenants[i].Code) == code {
			return &d.Tenants[i], true
		}
	}
	return nil, false
}

func (t *DirectoryTenant) info() TenantInfo {
	return TenantInfo{
		Tenant:      tenants.Tenant{ID: firstNonEmpty(t.ID, t.Code), Code: tenants.NormalizeCode(t.Code), Name: t.Name},
		PlanStatus:  ParsePlanStatus(t.PlanStatus),
		TrialEndsAt: t.TrialEndsAt,
	}
}

func (m DirectoryMember) member() members.Member {
	return members.Member{
		ID:       m.ID,
		Role:     members.ParseRole(string(m.Role)),
		Name:     m.Name,
		Email:    m.Email,
		Phone:    m.Phone,
		IsActive: m.Active == nil || *m.Active,
	}
}

// LocalAuthenticator authenticates against a Directory with no network.
type LocalAuthenticator struct {
	dir *Directory
}

var _ Authenticator = (*LocalAuthenticator)(nil)

func NewLocalAuthenticator(dir *Directory) *LocalAuthenticator {
	return &LocalAuthenticator{dir: dir}
}

func (a *LocalAuthenticator) ResolveTenant(_ context.Context, code string) (TenantInfo, error) {
	t, ok := a.dir.tenant(code)
	if !ok {
		return TenantInfo{}, fmt.Errorf("%w: %s", apperr.ErrUnknownTenant, code)
	}
	return t.info(), nil
}

func (a *LocalAuthenticator) Authenticate(_ context.Context, c remote.Credentials) (Identity, error) {
	t, ok := a.dir.tenant(c.TenantCode)
	if !ok {
		return Identity{}, fmt.Errorf("%w: %s", apperr.ErrUnknownTenant, c.TenantCode)
	}
	for _, dm := range t.Members {
		m := dm.member()
		if !m.IsActive || !m.Matches(c.Identifier) {
			continue
		}
		if members.CheckSecret(c.Secret, dm.Secret) {
			return Identity{TenantInfo: t.info(), Member: m}, nil
		}
	}
	return Identity{}, fmt.Errorf("%w: no matching member in %s", apperr.ErrInvalidCredentials, t.Code)
}

func (a *LocalAuthenticator) Signup(context.Context, string, remote.Profile, string) (Identity, error) {
	return Identity{}, fmt.Errorf("%w: signup needs the remote backend", apperr.ErrUnsupported)
}

func (a *LocalAuthenticator) CreateTenant(context.Context, remote.StartRequest) (Registration, error) {
	return Registration{}, fmt.Errorf("%w: tenant creation needs the remote backend", apperr.ErrUnsupported)
}

func (a *LocalAuthenticator) Verify(_ context.Context, s Session) (bool, error) {
	t, ok := a.dir.tenant(s.TenantCode)
	if !ok {
		return false, nil
	}
	for _, dm := range t.Members {
		if dm.ID == s.UserID {
			return dm.member().IsActive, nil
		}
	}
	return false, nil
}
