package remote

import (
	"context"
	"strings"

	"github.com/ValdemirJunior2020/churchApp-Saas/gateway"
)

// ChurchReply carries the tenant record, its branding config and the
// donation links the backend bundles with it.
type ChurchReply struct {
	TenantID    string
	TenantCode  string
	PlanStatus  string
	TrialEndsAt string
	Church      map[string]any
	Donations   []map[string]any
}

// GetChurch resolves a tenant by its code. A reply without a church record
// is reported with Church == nil.
func (a *API) GetChurch(ctx context.Context, code string) (ChurchReply, error) {
	reply, err := a.get(ctx, ResourceChurch, ActionGet, map[string]string{"churchCode": code})
	if err != nil {
		return ChurchReply{}, err
	}
	church := reply.Object("church", "config")
	c := gateway.Reply(church)
	return ChurchReply{
		TenantID:    firstNonEmpty(reply.String("tenantId"), c.String("tenantId"), c.String("id")),
		TenantCode:  firstNonEmpty(c.String("churchCode"), reply.String("churchCode"), code),
		PlanStatus:  strings.ToUpper(firstNonEmpty(reply.String("planStatus"), c.String("planStatus"))),
		TrialEndsAt: firstNonEmpty(reply.String("trialEndsAt"), c.String("trialEndsAt")),
		Church:      church,
		Donations:   reply.List("donations", "donationLinks"),
	}, nil
}

func (a *API) SaveChurch(ctx context.Context, code string, record map[string]any) error {
	_, err := a.post(ctx, ResourceChurch, ActionSave, scoped(code, record))
	return err
}

// SaveDonationLinks replaces the tenant's whole donation list.
func (a *API) SaveDonationLinks(ctx context.Context, code string, items []map[string]any) error {
	if items == nil {
		items = []map[string]any{}
	}
	_, err := a.post(ctx, ResourceDonations, ActionSave, map[string]any{
		"churchCode": code,
		"items":      items,
	})
	return err
}
