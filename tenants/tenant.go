package tenants

import "strings"

// Tenant is one organization's isolated data partition. Code is the
// human-entered invite code; the backend keys everything by it.
type Tenant struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Scope identifies the tenant whose data a request or cached blob belongs to.
type Scope struct {
	TenantID   string `json:"tenant_id"`
	TenantCode string `json:"tenant_code"`
}

func (s Scope) IsZero() bool {
	return s.TenantID == "" && s.TenantCode == ""
}

// NormalizeCode canonicalizes an invite code as typed by a person.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Collection names a tenant-scoped collection held by the data cache.
type Collection string

const (
	Config        Collection = "config"
	DonationLinks Collection = "donationLinks"
	Events        Collection = "events"
	Members       Collection = "members"
)

// AllCollections is the hydrate order.
var AllCollections = []Collection{Config, DonationLinks, Events, Members}

func (c Collection) Valid() bool {
	for _, known := range AllCollections {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCollection accepts the canonical names plus a few spellings the UI uses.
func ParseCollection(name string) (Collection, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "config", "church", "settings":
		return Config, true
	case "donationlinks", "donation_links", "donations", "links":
		return DonationLinks, true
	case "events":
		return Events, true
	case "members":
		return Members, true
	}
	return "", false
}

// View selects which records a reader sees. MemberView hides records
// marked inactive; AdminView is the admin editing view and sees everything.
type View int

const (
	MemberView View = iota
	AdminView
)
