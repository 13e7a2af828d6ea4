package tenantdata_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/ValdemirJunior2020/churchApp-Saas/apperr"
	"github.com/ValdemirJunior2020/churchApp-Saas/gateway"
	"github.com/ValdemirJunior2020/churchApp-Saas/internal/stubbackend"
	"github.com/ValdemirJunior2020/churchApp-Saas/remote"
	"github.com/ValdemirJunior2020/churchApp-Saas/sessions"
	"github.com/ValdemirJunior2020/churchApp-Saas/store"
	"github.com/ValdemirJunior2020/churchApp-Saas/store/storefake"
	"github.com/ValdemirJunior2020/churchApp-Saas/tenants"
	"github.com/ValdemirJunior2020/churchApp-Saas/tenantdata"
	"github.com/stretchr/testify/require"
)

var (
	grace = tenants.Scope{TenantID: "t1", TenantCode: "GRACE1"}
	hope  = tenants.Scope{TenantID: "t2", TenantCode: "HOPE22"}
)

type fixture struct {
	backend *stubbackend.Backend
	api     *remote.API
	store   *storefake.FakeStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend, url := stubbackend.NewServer(t)
	backend.SeedTenant(stubbackend.Tenant{ID: "t1", Code: "GRACE1", Name: "Grace Chapel", PlanStatus: "ACTIVE"})
	backend.SeedTenant(stubbackend.Tenant{ID: "t2", Code: "HOPE22", Name: "Hope Church", PlanStatus: "ACTIVE"})
	backend.SetChurchField("GRACE1", "logoUrl", "https://grace.org/logo.png")
	for i, order := range []any{3, 1, "1", 2} {
		backend.AddDonation("GRACE1", map[string]any{"id": string(rune('a' + i)), "label": string(rune('A' + i)), "url": "https://give", "sortOrder": order})
	}
	backend.AddEvent("GRACE1", map[string]any{"id": "e1", "title": "B", "startTime": ""})
	backend.AddEvent("GRACE1", map[string]any{"id": "e2", "title": "A", "startTime": "2026-05-01T10:00:00Z"})
	backend.AddEvent("GRACE1", map[string]any{"id": "e3", "title": "Old", "startTime": "2026-01-01T10:00:00Z", "isActive": "FALSE"})
	backend.AddMember("GRACE1", map[string]any{"id": "m1", "role": "ADMIN", "name": "Dan", "email": "dan@grace.org", "password": "x"})
	backend.AddMember("GRACE1", map[string]any{"id": "m2", "name": "Gone", "status": "INACTIVE"})
	backend.AddEvent("HOPE22", map[string]any{"id": "h1", "title": "Hope picnic", "startTime": "2026-06-01"})

	return &fixture{
		backend: backend,
		api:     remote.New(gateway.New(url)),
		store:   storefake.NewFakeStore(),
	}
}

func (f *fixture) cache() *tenantdata.Cache {
	return tenantdata.NewCache(f.api, f.store)
}

func (f *fixture) failAll() {
	f.backend.FailTransport("church", "get")
	f.backend.FailTransport("events", "list")
	f.backend.FailTransport("members", "list")
}

func (f *fixture) blobs(t *testing.T, scope tenants.Scope) map[string]string {
	t.Helper()
	out := map[string]string{}
	for _, col := range tenants.AllCollections {
		v, ok, err := f.store.Get(context.Background(), store.CollectionKey(scope.TenantID, string(col)))
		require.NoError(t, err)
		if ok {
			out[string(col)] = v
		}
	}
	return out
}

func eventTitles(events []tenants.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Title)
	}
	return out
}

func TestHydrateFillsEveryCollection(t *testing.T) {
	f := newFixture(t)
	c := f.cache()
	require.NoError(t, c.Hydrate(context.Background(), grace))

	cfg, ok := c.Config()
	require.True(t, ok)
	require.Equal(t, "Grace Chapel", cfg.ChurchName)
	require.Equal(t, "https://grace.org/logo.png", cfg.LogoURL)

	var labels []string
	for _, l := range c.DonationLinks(tenants.MemberView) {
		labels = append(labels, l.Label)
	}
	require.Equal(t, []string{"B", "C", "D", "A"}, labels)

	require.Equal(t, []string{"A", "B"}, eventTitles(c.Events(tenants.MemberView)))
	require.Equal(t, []string{"Old", "A", "B"}, eventTitles(c.Events(tenants.AdminView)))

	require.Len(t, c.Members(tenants.MemberView), 1)
	require.Len(t, c.Members(tenants.AdminView), 2)
	require.Len(t, f.blobs(t, grace), 4)
	for _, blob := range f.blobs(t, grace) {
		require.NotContains(t, blob, "password")
	}
}

func TestHydrateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.cache()

	require.NoError(t, c.Hydrate(ctx, grace))
	first := f.blobs(t, grace)
	require.NoError(t, c.Hydrate(ctx, grace))
	require.Equal(t, first, f.blobs(t, grace))

	require.NoError(t, f.cache().Hydrate(ctx, grace))
	require.Equal(t, first, f.blobs(t, grace))
}

func TestRefreshMembersTwiceIsByteIdentical(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.cache()
	require.NoError(t, c.Hydrate(ctx, grace))
	key := store.CollectionKey(grace.TenantID, string(tenants.Members))

	first, err := c.Refresh(ctx, tenants.Members)
	require.NoError(t, err)
	firstJSON, err := json.Marshal(first.Members)
	require.NoError(t, err)
	firstBlob, _, err := f.store.Get(ctx, key)
	require.NoError(t, err)

	second, err := c.Refresh(ctx, tenants.Members)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second.Members)
	require.NoError(t, err)
	secondBlob, _, err := f.store.Get(ctx, key)
	require.NoError(t, err)

	require.Equal(t, firstJSON, secondJSON)
	require.Equal(t, firstBlob, secondBlob)
	require.Equal(t, 3, f.backend.Calls("members", "list"))
}

func TestHydrateServesStoredDataOffline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cache().Hydrate(ctx, grace))

	f.failAll()
	c := f.cache()
	require.NoError(t, c.Hydrate(ctx, grace))
	require.Equal(t, []string{"A", "B"}, eventTitles(c.Events(tenants.MemberView)))
	cfg, ok := c.Config()
	require.True(t, ok)
	require.Equal(t, "Grace Chapel", cfg.ChurchName)

	_, err := c.Refresh(ctx, tenants.Events)
	require.ErrorIs(t, err, apperr.ErrSync)
	require.Equal(t, []string{"A", "B"}, eventTitles(c.Events(tenants.MemberView)))
}

func TestHydrateSurvivesStorageFailure(t *testing.T) {
	f := newFixture(t)
	f.store.SetFailure(context.DeadlineExceeded)
	c := f.cache()
	require.NoError(t, c.Hydrate(context.Background(), grace))
	require.Len(t, c.Events(tenants.MemberView), 2)
}

func TestTenantSwitchLeavesNoResidue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.cache()
	require.NoError(t, c.Hydrate(ctx, grace))

	f.failAll()
	require.NoError(t, c.Hydrate(ctx, hope))
	require.Equal(t, hope, c.Scope())
	_, ok := c.Config()
	require.False(t, ok)
	require.Empty(t, c.Events(tenants.AdminView))
	require.Empty(t, c.Members(tenants.AdminView))
	require.Empty(t, c.DonationLinks(tenants.AdminView))

	f.backend.Recover()
	require.NoError(t, c.Hydrate(ctx, hope))
	require.Equal(t, []string{"Hope picnic"}, eventTitles(c.Events(tenants.MemberView)))
}

func TestStoredBlobOfAnotherTenantIsIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cache().Hydrate(ctx, hope))
	hopeEvents := f.blobs(t, hope)[string(tenants.Events)]
	require.NotEmpty(t, hopeEvents)

	// a blob of tenant t2 planted under t1's key
	require.NoError(t, f.store.Set(ctx, store.CollectionKey(grace.TenantID, string(tenants.Events)), hopeEvents))
	f.failAll()
	c := f.cache()
	require.NoError(t, c.Hydrate(ctx, grace))
	require.Empty(t, c.Events(tenants.AdminView))
}

func TestSessionEndedDropsTenantData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.cache()
	require.NoError(t, c.Hydrate(ctx, grace))

	c.SessionEnded(ctx, sessions.Session{TenantID: "t1", TenantCode: "GRACE1", UserID: "m1"})
	require.True(t, c.Scope().IsZero())
	require.Empty(t, c.Events(tenants.AdminView))
	require.Empty(t, f.blobs(t, grace))

	_, err := c.Refresh(ctx, tenants.Events)
	require.ErrorIs(t, err, apperr.ErrNoSession)
}

func TestRefreshDiscardsResultAfterTenantSwitch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.cache()
	require.NoError(t, c.Hydrate(ctx, grace))

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.backend.SetHook(func(resource, action string) {
		if resource == "events" && action == "list" {
			once.Do(func() {
				close(started)
				<-release
			})
		}
	})

	errs := make(chan error, 1)
	go func() {
		_, err := c.Refresh(ctx, tenants.Events)
		errs <- err
	}()
	<-started
	c.Activate(hope)
	close(release)

	require.ErrorIs(t, <-errs, apperr.ErrTenantChanged)
	require.Equal(t, hope, c.Scope())
	require.Empty(t, c.Events(tenants.AdminView))
}

func TestRefreshReturnsFreshSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.cache()
	require.NoError(t, c.Hydrate(ctx, grace))

	var changes []tenantdata.Change
	unsubscribe := c.Subscribe(func(ch tenantdata.Change) { changes = append(changes, ch) })
	defer unsubscribe()

	f.backend.AddMember("GRACE1", map[string]any{"id": "m3", "name": "New", "phone": "555-0303"})
	snap, err := c.Refresh(ctx, tenants.Members)
	require.NoError(t, err)
	require.Equal(t, grace, snap.Scope)
	require.Len(t, snap.Members, 3)
	require.Equal(t, []tenantdata.Change{{Scope: grace, Collection: tenants.Members}}, changes)

	_, err = c.Refresh(ctx, tenants.Collection("sermons"))
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
}
