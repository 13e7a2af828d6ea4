package access

import (
	"fmt"
	"strings"

	"github.com/ValdemirJunior2020/churchApp-Saas/apperr"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

type Action string

const (
	Read  Action = "read"
	Write Action = "write"
)

const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && r.act == p.act
`

// Policy decides which role may read or write which tenant collection.
// Admins inherit every member permission.
type Policy struct {
	enforcer *casbin.Enforcer
}

// DefaultPolicy: members read every collection, admins write every collection.
func DefaultPolicy() (*Policy, error) {
	p, err := NewPolicy()
	if err != nil {
		return nil, err
	}
	for _, rule := range [][]string{
		{"MEMBER", "*", string(Read)},
		{"ADMIN", "*", string(Write)},
	} {
		if err := p.Allow(rule[0], rule[1], Action(rule[2])); err != nil {
			return nil, err
		}
	}
	if _, err := p.enforcer.AddGroupingPolicy("ADMIN", "MEMBER"); err != nil {
		return nil, fmt.Errorf("[DefaultPolicy] add role inheritance: %w", err)
	}
	return p, nil
}

// NewPolicy returns an empty policy that denies everything.
func NewPolicy() (*Policy, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("[NewPolicy] parse model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("[NewPolicy] create enforcer: %w", err)
	}
	return &Policy{enforcer: e}, nil
}

// Allow grants role the action on collection ("*" for all).
func (p *Policy) Allow(role, collection string, act Action) error {
	if _, err := p.enforcer.AddPolicy(role, collection, string(act)); err != nil {
		return fmt.Errorf("[Allow] %s %s %s: %w", role, collection, act, err)
	}
	return nil
}

// Can reports whether role may perform act on collection. Evaluation errors deny.
func (p *Policy) Can(role, collection string, act Action) bool {
	ok, err := p.enforcer.Enforce(role, collection, string(act))
	return err == nil && ok
}

// Check is Can as an error: apperr.ErrForbidden when role may not act.
func (p *Policy) Check(role, collection string, act Action) error {
	if p.Can(role, collection, act) {
		return nil
	}
	return fmt.Errorf("%w: %s may not %s %s", apperr.ErrForbidden, strings.ToLower(role), act, collection)
}
