package remote

import (
	"context"
	"strings"

	"github.com/ValdemirJunior2020/churchApp-Saas/gateway"
)

// Credentials identify a member by email or phone within a tenant.
type Credentials struct {
	TenantCode string
	Identifier string
	Secret     string
}

// Profile is the personal data supplied at signup or tenant creation.
type Profile struct {
	Name  string
	Email string
	Phone string
}

// AuthReply is the backend's answer to login and signup.
type AuthReply struct {
	Member      map[string]any
	TenantID    string
	TenantCode  string
	ChurchName  string
	PlanStatus  string
	TrialEndsAt string
}

func parseAuthReply(reply gateway.Reply) AuthReply {
	member := reply.Object("member", "user")
	m := gateway.Reply(member)
	return AuthReply{
		Member:      member,
		TenantID:    firstNonEmpty(reply.String("tenantId"), m.String("tenantId")),
		TenantCode:  firstNonEmpty(m.String("churchCode"), reply.String("churchCode")),
		ChurchName:  firstNonEmpty(reply.String("churchName"), m.String("churchName")),
		PlanStatus:  strings.ToUpper(reply.String("planStatus")),
		TrialEndsAt: reply.String("trialEndsAt"),
	}
}

func (a *API) Login(ctx context.Context, c Credentials) (AuthReply, error) {
	reply, err := a.post(ctx, ResourceAuth, ActionLogin, map[string]any{
		"churchCode":   c.TenantCode,
		"emailOrPhone": c.Identifier,
		"password":     c.Secret,
	})
	if err != nil {
		return AuthReply{}, err
	}
	return parseAuthReply(reply), nil
}

func (a *API) Signup(ctx context.Context, tenantCode string, p Profile, secret string) (AuthReply, error) {
	reply, err := a.post(ctx, ResourceAuth, ActionSignup, map[string]any{
		"churchCode": tenantCode,
		"name":       p.Name,
		"email":      p.Email,
		"phone":      p.Phone,
		"password":   secret,
	})
	if err != nil {
		return AuthReply{}, err
	}
	return parseAuthReply(reply), nil
}

// StartRequest creates a tenant together with its admin member.
type StartRequest struct {
	ChurchName  string
	Admin       Profile
	Secret      string
	Plan        string
	PlanStatus  string
	TrialEndsAt string
	Config      map[string]any
}

type StartReply struct {
	TenantID    string
	TenantCode  string
	AdminID     string
	SessionID   string
	CheckoutURL string
}

func (a *API) StartTenant(ctx context.Context, req StartRequest) (StartReply, error) {
	body := map[string]any{
		"churchName":    req.ChurchName,
		"adminName":     req.Admin.Name,
		"adminEmail":    req.Admin.Email,
		"adminPhone":    req.Admin.Phone,
		"adminPassword": req.Secret,
		"plan":          req.Plan,
		"planStatus":    req.PlanStatus,
		"trialEndsAt":   req.TrialEndsAt,
	}
	if req.Config != nil {
		body["config"] = req.Config
	}
	reply, err := a.post(ctx, ResourceBilling, ActionStart, body)
	if err != nil {
		return StartReply{}, err
	}
	member := gateway.Reply(reply.Object("member", "admin"))
	return StartReply{
		TenantID:    reply.String("tenantId"),
		TenantCode:  reply.String("churchCode"),
		AdminID:     firstNonEmpty(reply.String("adminId"), member.String("id")),
		SessionID:   reply.String("sessionId"),
		CheckoutURL: reply.String("checkoutUrl"),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
