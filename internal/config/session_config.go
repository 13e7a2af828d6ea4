package config

import (
	"strconv"
	"strings"
	"time"
)

type AuthMode string

const (
	AuthModeRemote AuthMode = "remote"
	AuthModeLocal  AuthMode = "local"
)

// AdminIdentity is a configured admin account whose sessions are validated
// by comparison rather than by a backend round trip.
type AdminIdentity struct {
	TenantCode string
	Identifier string
	Secret     string
}

func (a AdminIdentity) IsSet() bool {
	return a.TenantCode != "" && a.Identifier != "" && a.Secret != ""
}

type SessionConfig interface {
	GetTrialWindow() time.Duration
	GetNewTenantPlan() string
	GetAdminIdentity() AdminIdentity
	GetAuthMode() AuthMode
	GetLocalDirectoryFile() string
	GetSessionSigningKey() string
}

type Sessions struct {
	source
}

var _ SessionConfig = Sessions{}

func (s Sessions) GetTrialWindow() time.Duration {
	days, err := strconv.Atoi(s.get("TRIAL_DAYS", "14"))
	if err != nil || days < 0 {
		days = 14
	}
	return time.Duration(days) * 24 * time.Hour
}

// GetNewTenantPlan is the plan status stamped on a freshly created tenant.
func (s Sessions) GetNewTenantPlan() string {
	return strings.ToUpper(s.get("NEW_TENANT_PLAN", "TRIAL"))
}

func (s Sessions) GetAdminIdentity() AdminIdentity {
	return AdminIdentity{
		TenantCode: s.get("ADMIN_TENANT_CODE", ""),
		Identifier: s.get("ADMIN_IDENTIFIER", ""),
		Secret:     s.get("ADMIN_SECRET", ""),
	}
}

func (s Sessions) GetAuthMode() AuthMode {
	if strings.EqualFold(s.get("AUTH_MODE", ""), string(AuthModeLocal)) {
		return AuthModeLocal
	}
	return AuthModeRemote
}

func (s Sessions) GetLocalDirectoryFile() string {
	return s.get("LOCAL_DIRECTORY_FILE", "")
}

// GetSessionSigningKey overrides the per-device key used to sign the
// persisted session. Empty means a random key is generated and stored.
func (s Sessions) GetSessionSigningKey() string {
	return s.get("SESSION_SIGNING_KEY", "")
}
