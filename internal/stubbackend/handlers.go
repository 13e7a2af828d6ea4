package stubbackend

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var (
	errChurchNotFound     = errors.New("Church not found")
	errInvalidCredentials = errors.New("Invalid credentials")
	errUnknownAction      = errors.New("Unknown resource/action")
)

// dispatch runs with b.mu held.
func (b *Backend) dispatch(resource, action string, c *gin.Context, body map[string]any) (gin.H, error) {
	code := strings.ToUpper(strings.TrimSpace(c.Query("churchCode")))
	if code == "" {
		code = strings.ToUpper(strings.TrimSpace(str(body["churchCode"])))
	}

	if resource == "billing" && action == "start" {
		return b.startTenant(body)
	}

	ts, ok := b.tenants[code]
	if !ok {
		return nil, errChurchNotFound
	}

	switch key(resource, action) {
	case "auth/login":
		return b.login(ts, body)
	case "auth/signup":
		return b.signup(ts, body)
	case "church/get":
		return gin.H{
			"tenantId":    ts.ID,
			"planStatus":  ts.PlanStatus,
			"trialEndsAt": ts.TrialEndsAt,
			"church":      copyRow(ts.church),
			"donations":   copyRows(ts.donations),
		}, nil
	case "church/save":
		for k, v := range body {
			if k == "action" || k == "churchCode" {
				continue
			}
			ts.church[k] = v
		}
		return gin.H{"church": copyRow(ts.church)}, nil
	case "donations/save":
		items, _ := body["items"].([]any)
		ts.donations = ts.donations[:0]
		for _, item := range items {
			if row, ok := item.(map[string]any); ok {
				ts.donations = append(ts.donations, row)
			}
		}
		return gin.H{"items": copyRows(ts.donations)}, nil
	case "events/list":
		return gin.H{"events": copyRows(ts.events)}, nil
	case "events/upsert":
		row := record(body)
		if str(row["id"]) == "" {
			row["id"] = uuid.New().String()
		}
		ts.events = upsertByID(ts.events, row)
		return gin.H{"event": copyRow(row)}, nil
	case "events/delete":
		for _, e := range ts.events {
			if str(e["id"]) == str(body["id"]) {
				e["isActive"] = "FALSE"
				return gin.H{}, nil
			}
		}
		return nil, errors.New("Event not found")
	case "members/list":
		rows := copyRows(ts.members)
		for _, r := range rows {
			delete(r, "password")
		}
		// older deployments answer with "items"
		return gin.H{"items": rows}, nil
	case "members/create":
		row := record(body)
		if str(row["id"]) == "" {
			row["id"] = uuid.New().String()
		}
		row["createdAt"] = b.now().UTC().Format(time.RFC3339)
		ts.members = append(ts.members, row)
		return gin.H{"member": withoutPassword(row)}, nil
	case "members/update":
		for _, m := range ts.members {
			if str(m["id"]) != str(body["id"]) {
				continue
			}
			for k, v := range record(body) {
				if k == "password" && str(v) == "" {
					continue
				}
				m[k] = v
			}
			m["updatedAt"] = b.now().UTC().Format(time.RFC3339)
			return gin.H{"member": withoutPassword(m)}, nil
		}
		return nil, errors.New("Member not found")
	case "members/delete":
		before := len(ts.members)
		ts.members = removeByID(ts.members, str(body["id"]))
		if len(ts.members) == before {
			return nil, errors.New("Member not found")
		}
		return gin.H{}, nil
	}
	return nil, errUnknownAction
}

func (b *Backend) login(ts *tenantState, body map[string]any) (gin.H, error) {
	identifier := str(body["emailOrPhone"])
	secret := str(body["password"])
	for _, m := range ts.members {
		if !matches(m, identifier) || str(m["password"]) != secret || !active(m) {
			continue
		}
		m["lastLoginAt"] = b.now().UTC().Format(time.RFC3339)
		member := withoutPassword(m)
		member["churchCode"] = ts.Code
		member["churchName"] = ts.Name
		return gin.H{
			"member":      member,
			"tenantId":    ts.ID,
			"churchName":  ts.Name,
			"planStatus":  ts.PlanStatus,
			"trialEndsAt": ts.TrialEndsAt,
		}, nil
	}
	return nil, errInvalidCredentials
}

func (b *Backend) signup(ts *tenantState, body map[string]any) (gin.H, error) {
	for _, m := range ts.members {
		if !active(m) {
			continue
		}
		if (str(body["email"]) != "" && matches(m, str(body["email"]))) ||
			(str(body["phone"]) != "" && matches(m, str(body["phone"]))) {
			return nil, errors.New("Member already exists")
		}
	}
	row := map[string]any{
		"id":        uuid.New().String(),
		"role":      "MEMBER",
		"name":      str(body["name"]),
		"email":     str(body["email"]),
		"phone":     str(body["phone"]),
		"password":  str(body["password"]),
		"status":    "ACTIVE",
		"createdAt": b.now().UTC().Format(time.RFC3339),
	}
	ts.members = append(ts.members, row)
	member := withoutPassword(row)
	member["churchCode"] = ts.Code
	return gin.H{
		"member":      member,
		"tenantId":    ts.ID,
		"churchName":  ts.Name,
		"planStatus":  ts.PlanStatus,
		"trialEndsAt": ts.TrialEndsAt,
	}, nil
}

func (b *Backend) startTenant(body map[string]any) (gin.H, error) {
	name := str(body["churchName"])
	if name == "" {
		return nil, errors.New("churchName is required")
	}
	var code string
	for {
		code = strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
		if _, taken := b.tenants[code]; !taken {
			break
		}
	}
	ts := &tenantState{
		Tenant: Tenant{
			ID:          uuid.New().String(),
			Code:        code,
			Name:        name,
			PlanStatus:  str(body["planStatus"]),
			TrialEndsAt: str(body["trialEndsAt"]),
		},
		church: map[string]any{"churchName": name, "churchCode": code},
	}
	if cfg, ok := body["config"].(map[string]any); ok {
		for k, v := range cfg {
			ts.church[k] = v
		}
	}
	admin := map[string]any{
		"id":        uuid.New().String(),
		"role":      "ADMIN",
		"name":      str(body["adminName"]),
		"email":     str(body["adminEmail"]),
		"phone":     str(body["adminPhone"]),
		"password":  str(body["adminPassword"]),
		"status":    "ACTIVE",
		"createdAt": b.now().UTC().Format(time.RFC3339),
	}
	ts.members = append(ts.members, admin)
	b.tenants[code] = ts
	return gin.H{
		"churchCode":  code,
		"tenantId":    ts.ID,
		"adminId":     admin["id"],
		"sessionId":   "cs_test_" + code,
		"checkoutUrl": "",
	}, nil
}

func record(body map[string]any) map[string]any {
	row := make(map[string]any, len(body))
	for k, v := range body {
		if k == "action" || k == "churchCode" {
			continue
		}
		row[k] = v
	}
	return row
}

func upsertByID(rows []map[string]any, row map[string]any) []map[string]any {
	for i, r := range rows {
		if str(r["id"]) == str(row["id"]) {
			rows[i] = row
			return rows
		}
	}
	return append(rows, row)
}

func removeByID(rows []map[string]any, id string) []map[string]any {
	out := rows[:0]
	for _, r := range rows {
		if str(r["id"]) != id {
			out = append(out, r)
		}
	}
	return out
}

func matches(m map[string]any, identifier string) bool {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return false
	}
	if strings.Contains(identifier, "@") {
		return strings.EqualFold(str(m["email"]), identifier)
	}
	d := digits(identifier)
	return d != "" && digits(str(m["phone"])) == d
}

func active(m map[string]any) bool {
	switch strings.ToUpper(str(m["status"])) {
	case "INACTIVE", "DELETED":
		return false
	}
	return !strings.EqualFold(str(m["isActive"]), "false")
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func withoutPassword(row map[string]any) map[string]any {
	out := copyRow(row)
	delete(out, "password")
	return out
}

func copyRow(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

func copyRows(rows []map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, copyRow(r))
	}
	return out
}
