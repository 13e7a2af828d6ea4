package members

import (
	"crypto/subtle"
	"fmt"
	"strings"
	"unicode"

	"github.com/ValdemirJunior2020/churchApp-Saas/tenants"
	"golang.org/x/crypto/bcrypt"
)

// Role is a member's role within its tenant.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// ParseRole maps backend spellings onto a Role; anything unknown is a member.
func ParseRole(s string) Role {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ADMIN", "PASTOR", "OWNER", "TENANT_ADMIN":
		return RoleAdmin
	}
	return RoleMember
}

type Member struct {
	ID          string `json:"id"`
	Role        Role   `json:"role"`
	Name        string `json:"name"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	Secret      string `json:"-"` // outgoing writes only - never cached or displayed
	IsActive    bool   `json:"is_active"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
	LastLoginAt string `json:"last_login_at,omitempty"`
}

// Normalize coerces one backend row. ok is false when the row has no id.
func Normalize(raw map[string]any) (Member, bool) {
	f := tenants.NewFields(raw)
	m := Member{
		ID:          f.String("id", "member_id", "user_id"),
		Role:        ParseRole(f.String("role")),
		Name:        f.String("name", "full_name", "display_name"),
		Phone:       f.String("phone", "phone_number", "mobile"),
		Email:       strings.ToLower(f.String("email", "email_address")),
		IsActive:    f.Active(),
		CreatedAt:   f.String("created_at"),
		UpdatedAt:   f.String("updated_at"),
		LastLoginAt: f.String("last_login_at", "last_login"),
	}
	return m, m.ID != ""
}

// NormalizeMembers keeps backend order; presentation sorts separately.
func NormalizeMembers(rows []map[string]any, view tenants.View) []Member {
	out := make([]Member, 0, len(rows))
	for _, raw := range rows {
		m, ok := Normalize(raw)
		if !ok {
			continue
		}
		if !m.IsActive && view != tenants.AdminView {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Filter returns the members visible in view.
func Filter(list []Member, view tenants.View) []Member {
	out := make([]Member, 0, len(list))
	for _, m := range list {
		if m.IsActive || view == tenants.AdminView {
			out = append(out, m)
		}
	}
	return out
}

// Record is the backend write shape. The secret is sent only when set.
func (m Member) Record() map[string]any {
	status := "ACTIVE"
	if !m.IsActive {
		status = "INACTIVE"
	}
	r := map[string]any{
		"id":       m.ID,
		"memberId": m.ID,
		"role":     string(m.Role),
		"name":     m.Name,
		"phone":    m.Phone,
		"email":    m.Email,
		"isActive": m.IsActive,
		"status":   status,
	}
	if m.Secret != "" {
		r["password"] = m.Secret
	}
	return r
}

func (m Member) IsAdmin() bool {
	return m.Role == RoleAdmin
}

// Matches reports whether identifier (an email or a phone number) names m.
func (m Member) Matches(identifier string) bool {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return false
	}
	if IsEmail(identifier) {
		return m.Email != "" && strings.EqualFold(m.Email, identifier)
	}
	p := PhoneKey(identifier)
	return p != "" && PhoneKey(m.Phone) == p
}

// FindConflict returns an active member other than candidate that already
// holds candidate's phone or email.
func FindConflict(existing []Member, candidate Member) (Member, bool) {
	phone := PhoneKey(candidate.Phone)
	email := strings.ToLower(strings.TrimSpace(candidate.Email))
	for _, m := range existing {
		if !m.IsActive || (candidate.ID != "" && m.ID == candidate.ID) {
			continue
		}
		if phone != "" && PhoneKey(m.Phone) == phone {
			return m, true
		}
		if email != "" && strings.EqualFold(strings.TrimSpace(m.Email), email) {
			return m, true
		}
	}
	return Member{}, false
}

// FindActive returns the active member with id.
func FindActive(list []Member, id string) (Member, bool) {
	for _, m := range list {
		if m.ID == id && m.IsActive {
			return m, true
		}
	}
	return Member{}, false
}

func IsEmail(identifier string) bool {
	return strings.Contains(identifier, "@")
}

// PhoneKey reduces a phone number to its digits so "555-1111" and
// "(555) 1111" compare equal.
func PhoneKey(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateSecret checks a newly chosen secret:
// - At least 6 characters long
// - Not only whitespace
func ValidateSecret(secret string) error {
	if len(secret) < 6 {
		return fmt.Errorf("password must be at least 6 characters long")
	}
	if strings.TrimSpace(secret) == "" {
		return fmt.Errorf("password must not be blank")
	}
	return nil
}

func HashSecret(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckSecret compares secret with stored, which is either a bcrypt hash or
// a plain value as kept by spreadsheet backends.
func CheckSecret(secret, stored string) bool {
	if stored == "" {
		return false
	}
	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(secret)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(stored)) == 1
}

// Merge applies the fields present in raw on top of m. A secret in raw is
// carried for the outgoing write only.
func (m Member) Merge(raw map[string]any) Member {
	f := tenants.NewFields(raw)
	f.Assign(&m.Name, "name", "full_name", "display_name")
	f.Assign(&m.Phone, "phone", "phone_number", "mobile")
	if f.Has("email", "email_address") {
		m.Email = strings.ToLower(f.String("email", "email_address"))
	}
	if f.Has("role") {
		m.Role = ParseRole(f.String("role"))
	}
	f.Assign(&m.Secret, "password", "secret")
	m.IsActive = f.Bool(m.IsActive, "is_active", "active")
	return m
}
