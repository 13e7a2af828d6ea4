package sessions

import (
	"strings"
	"time"

	"github.com/ValdemirJunior2020/churchApp-Saas/members"
	"github.com/ValdemirJunior2020/churchApp-Saas/tenants"
)

type PlanStatus string

const (
	PlanTrial   PlanStatus = "TRIAL"
	PlanActive  PlanStatus = "ACTIVE"
	PlanPending PlanStatus = "PENDING"
	PlanExpired PlanStatus = "EXPIRED"
)

// ParsePlanStatus maps backend spellings onto a PlanStatus. An empty value
// means the backend does not bill this tenant and is treated as ACTIVE;
// anything unrecognised is EXPIRED so the gate fails closed.
func ParsePlanStatus(s string) PlanStatus {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ACTIVE", "PAID", "PRO":
		return PlanActive
	case "TRIAL", "TRIALING":
		return PlanTrial
	case "PENDING", "UNPAID", "CHECKOUT":
		return PlanPending
	}
	return PlanExpired
}

// Session is the single authenticated identity on the device.
type Session struct {
	TenantID         string       `json:"tenant_id"`
	TenantCode       string       `json:"tenant_code"`
	ChurchName       string       `json:"church_name,omitempty"`
	PlanStatus       PlanStatus   `json:"plan_status"`
	TrialEndsAt      *time.Time   `json:"trial_ends_at,omitempty"`
	UserID           string       `json:"user_id"`
	Role             members.Role `json:"role"`
	DisplayName      string       `json:"display_name,omitempty"`
	Email            string       `json:"email,omitempty"`
	Phone            string       `json:"phone,omitempty"`
	LastLoginAt      time.Time    `json:"last_login_at"`
	CheckoutURL      string       `json:"checkout_url,omitempty"`
	BillingSessionID string       `json:"billing_session_id,omitempty"`
	// AdminDigest is a bcrypt hash of the configured admin secret the
	// session was opened with.
	AdminDigest string `json:"admin_digest,omitempty"`
}

func (s Session) Scope() tenants.Scope {
	return tenants.Scope{TenantID: s.TenantID, TenantCode: s.TenantCode}
}

func (s Session) IsAdmin() bool {
	return s.Role == members.RoleAdmin
}

// CanUseApp is the access gate: an ACTIVE plan, or a TRIAL that has not
// yet ended. Every other combination denies.
func (s Session) CanUseApp(now time.Time) bool {
	switch s.PlanStatus {
	case PlanActive:
		return true
	case PlanTrial:
		return s.TrialEndsAt != nil && now.Before(*s.TrialEndsAt)
	}
	return false
}

// EntersApp adds the admin bypass to CanUseApp: an admin of a tenant whose
// payment is still PENDING may enter the admin area. Expired or suspended
// tenants stay closed for admins too.
func (s Session) EntersApp(now time.Time) bool {
	return s.CanUseApp(now) || (s.IsAdmin() && s.PlanStatus == PlanPending)
}

// RequiresPayment tells the UI to route to the payment screen.
func (s Session) RequiresPayment(now time.Time) bool {
	return !s.EntersApp(now)
}

// SameIdentity reports whether o is the same user in the same tenant.
func (s Session) SameIdentity(o Session) bool {
	return s.TenantID == o.TenantID && s.UserID == o.UserID
}

// State is the Session Manager lifecycle.
type State int

const (
	Unauthenticated State = iota
	Hydrating
	AuthenticatedActive
	AuthenticatedGated
)

func (s State) String() string {
	switch s {
	case Hydrating:
		return "HYDRATING"
	case AuthenticatedActive:
		return "AUTHENTICATED_ACTIVE"
	case AuthenticatedGated:
		return "AUTHENTICATED_GATED"
	}
	return "UNAUTHENTICATED"
}
