package stubbackend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Path is where the backend listens; clients use <server>/exec as base URL.
const Path = "/exec"

// Tenant seeds one organization in the stub.
type Tenant struct {
	ID          string
	Code        string
	Name        string
	PlanStatus  string
	TrialEndsAt string
}

type tenantState struct {
	Tenant
	church    map[string]any
	donations []map[string]any
	events    []map[string]any
	members   []map[string]any
}

type failure struct {
	status  int
	message string
}

// Backend emulates the spreadsheet web app: one endpoint, resource and
// action on the query string, plain text JSON bodies, ok/error envelopes.
// Values are stored as clients send them, so typing drift round trips.
type Backend struct {
	mu       sync.Mutex
	tenants  map[string]*tenantState
	calls    map[string]int
	failures map[string]failure
	hook     func(resource, action string)
	apiKey   string
	now      func() time.Time
}

type Option func(*Backend)

// WithAPIKey makes the stub reject requests without the matching key.
func WithAPIKey(key string) Option {
	return func(b *Backend) {
		b.apiKey = key
	}
}

func New(options ...Option) *Backend {
	b := &Backend{
		tenants:  make(map[string]*tenantState),
		calls:    make(map[string]int),
		failures: make(map[string]failure),
		now:      time.Now,
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

// Handler returns the gin engine serving Path.
func (b *Backend) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET(Path, b.handle)
	r.POST(Path, b.handle)
	return r
}

func key(resource, action string) string {
	return resource + "/" + action
}

// Calls reports how many requests reached resource/action.
func (b *Backend) Calls(resource, action string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[key(resource, action)]
}

// Fail makes resource/action answer {ok:false,error:message}.
func (b *Backend) Fail(resource, action, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[key(resource, action)] = failure{status: http.StatusOK, message: message}
}

// FailTransport makes resource/action answer a non-JSON 502.
func (b *Backend) FailTransport(resource, action string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[key(resource, action)] = failure{status: http.StatusBadGateway}
}

// Recover clears every injected failure.
func (b *Backend) Recover() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = make(map[string]failure)
}

// SetHook installs fn to run before each request is handled, outside the
// stub's lock, so tests can block or observe calls.
func (b *Backend) SetHook(fn func(resource, action string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hook = fn
}

// SeedTenant adds a tenant with a default church record.
func (b *Backend) SeedTenant(t Tenant) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t.Code = strings.ToUpper(t.Code)
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	b.tenants[t.Code] = &tenantState{
		Tenant: t,
		church: map[string]any{"churchName": t.Name, "churchCode": t.Code},
	}
}

// AddMember appends a raw member row; "password" is kept server side.
func (b *Backend) AddMember(code string, row map[string]any) {
	b.withTenant(code, func(ts *tenantState) {
		ts.members = append(ts.members, copyRow(row))
	})
}

func (b *Backend) AddEvent(code string, row map[string]any) {
	b.withTenant(code, func(ts *tenantState) {
		ts.events = append(ts.events, copyRow(row))
	})
}

func (b *Backend) AddDonation(code string, row map[string]any) {
	b.withTenant(code, func(ts *tenantState) {
		ts.donations = append(ts.donations, copyRow(row))
	})
}

// SetChurchField overwrites one field of the church record.
func (b *Backend) SetChurchField(code, field string, value any) {
	b.withTenant(code, func(ts *tenantState) {
		ts.church[field] = value
	})
}

// RemoveMember deletes a member row as an admin on another device would.
func (b *Backend) RemoveMember(code, id string) {
	b.withTenant(code, func(ts *tenantState) {
		ts.members = removeByID(ts.members, id)
	})
}

// Members returns copies of the stored member rows.
func (b *Backend) Members(code string) []map[string]any {
	var out []map[string]any
	b.withTenant(code, func(ts *tenantState) {
		for _, m := range ts.members {
			out = append(out, copyRow(m))
		}
	})
	return out
}

func (b *Backend) withTenant(code string, fn func(*tenantState)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ts, ok := b.tenants[strings.ToUpper(code)]
	if !ok {
		panic(fmt.Sprintf("stubbackend: unknown tenant %q", code))
	}
	fn(ts)
}

func (b *Backend) handle(c *gin.Context) {
	resource := c.Query("resource")
	action := c.Query("action")

	body := map[string]any{}
	if c.Request.Method == http.MethodPost {
		raw, err := c.GetRawData()
		if err != nil || json.Unmarshal(raw, &body) != nil {
			c.JSON(http.StatusOK, gin.H{"ok": false, "error": "Invalid JSON body"})
			return
		}
		if action == "" {
			action, _ = body["action"].(string)
		}
	}

	b.mu.Lock()
	b.calls[key(resource, action)]++
	hook := b.hook
	fail, failing := b.failures[key(resource, action)]
	b.mu.Unlock()

	if hook != nil {
		hook(resource, action)
	}
	if b.apiKey != "" && c.Query("key") != b.apiKey {
		c.JSON(http.StatusOK, gin.H{"ok": false, "error": "Unauthorized"})
		return
	}
	if failing {
		if fail.status != http.StatusOK {
			c.String(fail.status, "<html>upstream error</html>")
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": false, "error": fail.message})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	reply, err := b.dispatch(resource, action, c, body)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"ok": false, "error": err.Error()})
		return
	}
	reply["ok"] = true
	c.JSON(http.StatusOK, reply)
}
