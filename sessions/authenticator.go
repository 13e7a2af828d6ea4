package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/ValdemirJunior2020/churchApp-Saas/apperr"
	"github.com/ValdemirJunior2020/churchApp-Saas/internal/utils"
	"github.com/ValdemirJunior2020/churchApp-Saas/members"
	"github.com/ValdemirJunior2020/churchApp-Saas/remote"
	"github.com/ValdemirJunior2020/churchApp-Saas/tenants"
)

// TenantInfo is what tenant resolution learns about a tenant code.
type TenantInfo struct {
	Tenant      tenants.Tenant
	PlanStatus  PlanStatus
	TrialEndsAt *time.Time
}

// Identity is a verified member together with its tenant.
type Identity struct {
	TenantInfo
	Member members.Member
}

// Registration is the outcome of creating a tenant.
type Registration struct {
	Identity
	CheckoutURL      string
	BillingSessionID string
}

// Authenticator is the source of truth for tenants and member credentials.
type Authenticator interface {
	ResolveTenant(ctx context.Context, code string) (TenantInfo, error)
	Authenticate(ctx context.Context, c remote.Credentials) (Identity, error)
	Signup(ctx context.Context, code string, p remote.Profile, secret string) (Identity, error)
	CreateTenant(ctx context.Context, req remote.StartRequest) (Registration, error)
	// Verify reports whether the session's user is still an active member
	// of its tenant.
	Verify(ctx context.Context, s Session) (bool, error)
}

// RemoteAuthenticator authenticates against the Remote Gateway.
type RemoteAuthenticator struct {
	api *remote.API
}

var _ Authenticator = (*RemoteAuthenticator)(nil)

func NewRemoteAuthenticator(api *remote.API) *RemoteAuthenticator {
	return &RemoteAuthenticator{api: api}
}

func (a *RemoteAuthenticator) ResolveTenant(ctx context.Context, code string) (TenantInfo, error) {
	reply, err := a.api.GetChurch(ctx, code)
	if err != nil {
		var rerr *apperr.RemoteError
		if apperr.As(err, &rerr) {
			return TenantInfo{}, fmt.Errorf("%w: %s: %s", apperr.ErrUnknownTenant, code, rerr.Message)
		}
		return TenantInfo{}, err
	}
	if reply.Church == nil {
		return TenantInfo{}, fmt.Errorf("%w: %s", apperr.ErrUnknownTenant, code)
	}
	cfg, _ := tenants.NormalizeConfig(reply.Church)
	return TenantInfo{
		Tenant: tenants.Tenant{
			ID:   firstNonEmpty(reply.TenantID, reply.TenantCode),
			Code: firstNonEmpty(reply.TenantCode, code),
			Name: cfg.ChurchName,
		},
		PlanStatus:  ParsePlanStatus(reply.PlanStatus),
		TrialEndsAt: parseTime(reply.TrialEndsAt),
	}, nil
}

func (a *RemoteAuthenticator) Authenticate(ctx context.Context, c remote.Credentials) (Identity, error) {
	info, err := a.ResolveTenant(ctx, c.TenantCode)
	if err != nil {
		return Identity{}, err
	}
	reply, err := a.api.Login(ctx, remote.Credentials{
		TenantCode: info.Tenant.Code,
		Identifier: c.Identifier,
		Secret:     c.Secret,
	})
	if err != nil {
		var rerr *apperr.RemoteError
		if apperr.As(err, &rerr) {
			return Identity{}, fmt.Errorf("%w: %s", apperr.ErrInvalidCredentials, rerr.Message)
		}
		return Identity{}, err
	}
	return identityFrom(info, reply)
}

func (a *RemoteAuthenticator) Signup(ctx context.Context, code string, p remote.Profile, secret string) (Identity, error) {
	info, err := a.ResolveTenant(ctx, code)
	if err != nil {
		return Identity{}, err
	}
	reply, err := a.api.Signup(ctx, info.Tenant.Code, p, secret)
	if err != nil {
		var rerr *apperr.RemoteError
		if apperr.As(err, &rerr) {
			return Identity{}, fmt.Errorf("%w: %s", apperr.ErrDuplicate, rerr.Message)
		}
		return Identity{}, err
	}
	return identityFrom(info, reply)
}

func (a *RemoteAuthenticator) CreateTenant(ctx context.Context, req remote.StartRequest) (Registration, error) {
	reply, err := a.api.StartTenant(ctx, req)
	if err != nil {
		return Registration{}, err
	}
	if reply.TenantCode == "" || reply.AdminID == "" {
		return Registration{}, apperr.NewProtocolError(200, "billing/start reply without churchCode or admin id")
	}
	return Registration{
		Identity: Identity{
			TenantInfo: TenantInfo{
				Tenant: tenants.Tenant{
					ID:   firstNonEmpty(reply.TenantID, reply.TenantCode),
					Code: reply.TenantCode,
					Name: req.ChurchName,
				},
				PlanStatus:  ParsePlanStatus(req.PlanStatus),
				TrialEndsAt: parseTime(req.TrialEndsAt),
			},
			Member: members.Member{
				ID:       reply.AdminID,
				Role:     members.RoleAdmin,
				Name:     req.Admin.Name,
				Email:    req.Admin.Email,
				Phone:    req.Admin.Phone,
				IsActive: true,
			},
		},
		CheckoutURL:      reply.CheckoutURL,
		BillingSessionID: reply.SessionID,
	}, nil
}

func (a *RemoteAuthenticator) Verify(ctx context.Context, s Session) (bool, error) {
	rows, err := a.api.ListMembers(ctx, s.TenantCode)
	if err != nil {
		var rerr *apperr.RemoteError
		if apperr.As(err, &rerr) {
			// the backend no longer knows the tenant
			return false, nil
		}
		return false, err
	}
	_, ok := members.FindActive(members.NormalizeMembers(rows, tenants.AdminView), s.UserID)
	return ok, nil
}

func identityFrom(info TenantInfo, reply remote.AuthReply) (Identity, error) {
	m, ok := members.Normalize(reply.Member)
	if !ok {
		return Identity{}, apperr.NewProtocolError(200, "auth reply without member id")
	}
	if reply.TenantID != "" {
		info.Tenant.ID = reply.TenantID
	}
	if reply.ChurchName != "" {
		info.Tenant.Name = reply.ChurchName
	}
	if reply.PlanStatus != "" {
		info.PlanStatus = ParsePlanStatus(reply.PlanStatus)
	}
	if t := parseTime(reply.TrialEndsAt); t != nil {
		info.TrialEndsAt = t
	}
	return Identity{TenantInfo: info, Member: m}, nil
}

func parseTime(s string) *time.Time {
	if t, ok := tenants.ParseStartTime(s); ok {
		return utils.Ptr(t.UTC())
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
