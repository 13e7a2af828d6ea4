package remote

import (
	"context"

	"github.com/ValdemirJunior2020/churchApp-Saas/gateway"
)

// Backend resources and actions.
const (
	ResourceAuth      = "auth"
	ResourceBilling   = "billing"
	ResourceChurch    = "church"
	ResourceDonations = "donations"
	ResourceEvents    = "events"
	ResourceMembers   = "members"

	ActionLogin  = "login"
	ActionSignup = "signup"
	ActionStart  = "start"
	ActionGet    = "get"
	ActionSave   = "save"
	ActionList   = "list"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionUpsert = "upsert"
	ActionDelete = "delete"
)

// API is the typed surface of the spreadsheet backend. Every method is one
// gateway call; rows come back raw and are normalized by the caller.
type API struct {
	caller gateway.Caller
}

func New(caller gateway.Caller) *API {
	return &API{caller: caller}
}

func (a *API) get(ctx context.Context, resource, action string, params map[string]string) (gateway.Reply, error) {
	return a.caller.Call(ctx, gateway.Request{
		Resource: resource,
		Action:   action,
		Method:   gateway.GET,
		Params:   params,
	})
}

func (a *API) post(ctx context.Context, resource, action string, body map[string]any) (gateway.Reply, error) {
	return a.caller.Call(ctx, gateway.Request{
		Resource: resource,
		Action:   action,
		Method:   gateway.POST,
		Body:     body,
	})
}

func scoped(code string, record map[string]any) map[string]any {
	body := make(map[string]any, len(record)+1)
	for k, v := range record {
		body[k] = v
	}
	body["churchCode"] = code
	return body
}
