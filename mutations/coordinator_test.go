package mutations_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/ValdemirJunior2020/churchApp-Saas/apperr"
	"github.com/ValdemirJunior2020/churchApp-Saas/gateway"
	"github.com/ValdemirJunior2020/churchApp-Saas/internal/stubbackend"
	"github.com/ValdemirJunior2020/churchApp-Saas/members"
	"github.com/ValdemirJunior2020/churchApp-Saas/mutations"
	"github.com/ValdemirJunior2020/churchApp-Saas/remote"
	"github.com/ValdemirJunior2020/churchApp-Saas/sessions"
	"github.com/ValdemirJunior2020/churchApp-Saas/store/storefake"
	"github.com/ValdemirJunior2020/churchApp-Saas/tenantdata"
	"github.com/ValdemirJunior2020/churchApp-Saas/tenants"
	"github.com/stretchr/testify/require"
)

type staticSession struct {
	session sessions.Session
	ok      bool
}

func (s *staticSession) Current() (sessions.Session, bool) {
	return s.session, s.ok
}

type fixture struct {
	backend     *stubbackend.Backend
	cache       *tenantdata.Cache
	session     *staticSession
	coordinator *mutations.Coordinator
}

func newFixture(t *testing.T, role members.Role) *fixture {
	t.Helper()
	backend, url := stubbackend.NewServer(t)
	backend.SeedTenant(stubbackend.Tenant{ID: "t1", Code: "GRACE1", Name: "Grace Chapel", PlanStatus: "ACTIVE"})
	backend.AddMember("GRACE1", map[string]any{"id": "m1", "role": "ADMIN", "name": "Dan", "email": "dan@grace.org", "phone": "555-0100"})
	backend.AddMember("GRACE1", map[string]any{"id": "m2", "name": "Ann", "email": "ann@grace.org"})
	backend.AddEvent("GRACE1", map[string]any{"id": "e1", "title": "Supper", "startTime": "2026-05-01T18:00:00Z", "location": "Hall"})
	backend.AddDonation("GRACE1", map[string]any{"id": "d1", "label": "Tithe", "url": "https://give/tithe", "sortOrder": 1})
	backend.AddDonation("GRACE1", map[string]any{"id": "d2", "label": "Missions", "url": "https://give/missions", "sortOrder": 4})

	api := remote.New(gateway.New(url))
	cache := tenantdata.NewCache(api, storefake.NewFakeStore())
	scope := tenants.Scope{TenantID: "t1", TenantCode: "GRACE1"}
	require.NoError(t, cache.Hydrate(context.Background(), scope))

	session := &staticSession{ok: true, session: sessions.Session{
		TenantID: "t1", TenantCode: "GRACE1", ChurchName: "Grace Chapel",
		PlanStatus: sessions.PlanActive, UserID: "m1", Role: role,
	}}
	n := 0
	coordinator, err := mutations.NewCoordinator(session, cache, api, mutations.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("new-%d", n)
	}))
	require.NoError(t, err)
	return &fixture{backend: backend, cache: cache, session: session, coordinator: coordinator}
}

func TestMemberCreateRejectsDuplicatePhoneWithoutCreateCall(t *testing.T) {
	f := newFixture(t, members.RoleAdmin)
	// added after hydrate: only a fresh read can see it
	f.backend.AddMember("GRACE1", map[string]any{"id": "m3", "name": "Cy", "phone": "555-1111"})

	res, err := f.coordinator.Mutate(context.Background(), tenants.Members, mutations.Create,
		map[string]any{"name": "Cy again", "phone": "(555) 1111"})
	require.ErrorIs(t, err, apperr.ErrDuplicate)
	require.False(t, res.Applied)
	require.Zero(t, f.backend.Calls("members", "create"))
}

func TestMemberCreateIgnoresInactiveHolder(t *testing.T) {
	f := newFixture(t, members.RoleAdmin)
	f.backend.AddMember("GRACE1", map[string]any{"id": "m3", "phone": "555-1111", "isActive": false})

	res, err := f.coordinator.Mutate(context.Background(), tenants.Members, mutations.Create,
		map[string]any{"name": "Cy", "phone": "555-1111", "password": "psalm23!"})
	require.NoError(t, err)
	require.True(t, res.Applied)
	require.Equal(t, "new-1", res.ID)
	require.Equal(t, 1, f.backend.Calls("members", "create"))

	_, ok := findMember(f.cache.Members(tenants.MemberView), "new-1")
	require.True(t, ok)
	_, ok = findMember(res.Snapshot.Members, "new-1")
	require.True(t, ok)

	var stored map[string]any
	for _, row := range f.backend.Members("GRACE1") {
		if row["id"] == "new-1" {
			stored = row
		}
	}
	require.Equal(t, "psalm23!", stored["password"])
}

func findMember(list []members.Member, id string) (members.Member, bool) {
	for _, m := range list {
		if m.ID == id {
			return m, true
		}
	}
	return members.Member{}, false
}

func TestMemberUpdateAndDelete(t *testing.T) {
	f := newFixture(t, members.RoleAdmin)
	ctx := context.Background()

	_, err := f.coordinator.Mutate(ctx, tenants.Members, mutations.Update, map[string]any{"id": "m2", "email": "DAN@grace.org"})
	require.ErrorIs(t, err, apperr.ErrDuplicate)
	require.Zero(t, f.backend.Calls("members", "update"))

	res, err := f.coordinator.Mutate(ctx, tenants.Members, mutations.Update, map[string]any{"id": "m2", "phone": "555-0222"})
	require.NoError(t, err)
	require.True(t, res.Applied)
	ann, ok := findMember(f.cache.Members(tenants.AdminView), "m2")
	require.True(t, ok)
	require.Equal(t, "555-0222", ann.Phone)
	require.Equal(t, "ann@grace.org", ann.Email)

	_, err = f.coordinator.Mutate(ctx, tenants.Members, mutations.Update, map[string]any{"id": "ghost", "name": "x"})
	require.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = f.coordinator.Mutate(ctx, tenants.Members, mutations.Delete, map[string]any{"id": "m1"})
	require.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = f.coordinator.Mutate(ctx, tenants.Members, mutations.Delete, map[string]any{"id": "m2"})
	require.NoError(t, err)
	_, ok = findMember(f.cache.Members(tenants.AdminView), "m2")
	require.False(t, ok)
}

func TestConcurrentEventUpdatesFailFast(t *testing.T) {
	f := newFixture(t, members.RoleAdmin)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.backend.SetHook(func(resource, action string) {
		if resource == "events" && action == "upsert" {
			once.Do(func() {
				close(started)
				<-release
			})
		}
	})

	type outcome struct {
		res mutations.Result
		err error
	}
	first := make(chan outcome, 1)
	go func() {
		res, err := f.coordinator.Mutate(ctx, tenants.Events, mutations.Update, map[string]any{"id": "e1", "title": "Potluck"})
		first <- outcome{res, err}
	}()
	<-started

	_, err := f.coordinator.Mutate(ctx, tenants.Events, mutations.Update, map[string]any{"id": "e1", "title": "Picnic"})
	require.ErrorIs(t, err, apperr.ErrBusy)

	// other collections are not blocked
	_, err = f.coordinator.Mutate(ctx, tenants.Config, mutations.Update, map[string]any{"address": "1 Main St"})
	require.NoError(t, err)

	close(release)
	out := <-first
	require.NoError(t, out.err)
	require.True(t, out.res.Applied)
	require.Equal(t, 1, f.backend.Calls("events", "upsert"))

	events := f.cache.Events(tenants.MemberView)
	require.Len(t, events, 1)
	require.Equal(t, "Potluck", events[0].Title)
	require.Equal(t, "Hall", events[0].Location)

	// the lock is released afterwards
	_, err = f.coordinator.Mutate(ctx, tenants.Events, mutations.Delete, map[string]any{"id": "e1"})
	require.NoError(t, err)
	require.Empty(t, f.cache.Events(tenants.MemberView))
	require.Len(t, f.cache.Events(tenants.AdminView), 1)
}

func TestEventUpdateReadsServerListFirst(t *testing.T) {
	f := newFixture(t, members.RoleAdmin)
	// created on another device after hydrate
	f.backend.AddEvent("GRACE1", map[string]any{"id": "e9", "title": "Choir", "startTime": "2026-06-01T10:00:00Z", "location": "Loft"})

	res, err := f.coordinator.Mutate(context.Background(), tenants.Events, mutations.Update, map[string]any{"id": "e9", "title": "Renamed"})
	require.NoError(t, err)
	require.True(t, res.Applied)
	require.Equal(t, 1, f.backend.Calls("events", "upsert"))

	var renamed *tenants.Event
	for _, e := range f.cache.Events(tenants.AdminView) {
		if e.ID == "e9" {
			renamed = &e
		}
	}
	require.NotNil(t, renamed)
	require.Equal(t, "Renamed", renamed.Title)
	require.Equal(t, "Loft", renamed.Location)
}

func TestMemberRoleCannotMutate(t *testing.T) {
	f := newFixture(t, members.RoleMember)
	_, err := f.coordinator.Mutate(context.Background(), tenants.Events, mutations.Create, map[string]any{"title": "Mine"})
	require.ErrorIs(t, err, apperr.ErrForbidden)
	require.Zero(t, f.backend.Calls("events", "upsert"))
}

func TestDonationLinksAreSavedWhole(t *testing.T) {
	f := newFixture(t, members.RoleAdmin)
	ctx := context.Background()

	res, err := f.coordinator.Mutate(ctx, tenants.DonationLinks, mutations.Create,
		map[string]any{"label": "Building", "url": "https://give/building"})
	require.NoError(t, err)
	require.Equal(t, "new-1", res.ID)

	links := f.cache.DonationLinks(tenants.MemberView)
	require.Len(t, links, 3)
	require.Equal(t, "Building", links[2].Label)
	require.Equal(t, 5, links[2].SortOrder)

	_, err = f.coordinator.Mutate(ctx, tenants.DonationLinks, mutations.Update, map[string]any{"id": "d2", "sortOrder": 0})
	require.NoError(t, err)
	require.Equal(t, "Missions", f.cache.DonationLinks(tenants.MemberView)[0].Label)

	_, err = f.coordinator.Mutate(ctx, tenants.DonationLinks, mutations.Delete, map[string]any{"id": "d1"})
	require.NoError(t, err)
	require.Len(t, f.cache.DonationLinks(tenants.MemberView), 2)
	require.Len(t, f.cache.DonationLinks(tenants.AdminView), 3)

	_, err = f.coordinator.Mutate(ctx, tenants.DonationLinks, mutations.Create, map[string]any{"label": "Bad", "url": "javascript:alert(1)"})
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestConfigIsUpdateOnly(t *testing.T) {
	f := newFixture(t, members.RoleAdmin)
	ctx := context.Background()

	_, err := f.coordinator.Mutate(ctx, tenants.Config, mutations.Delete, nil)
	require.ErrorIs(t, err, apperr.ErrUnsupported)

	_, err = f.coordinator.Mutate(ctx, tenants.Config, mutations.Update, map[string]any{"logoUrl": "https://grace.org/new.png"})
	require.NoError(t, err)
	cfg, ok := f.cache.Config()
	require.True(t, ok)
	require.Equal(t, "Grace Chapel", cfg.ChurchName)
	require.Equal(t, "https://grace.org/new.png", cfg.LogoURL)
}

func TestRemoteFailureAppliesNothing(t *testing.T) {
	f := newFixture(t, members.RoleAdmin)
	f.backend.Fail("events", "upsert", "Sheet is locked")

	res, err := f.coordinator.Mutate(context.Background(), tenants.Events, mutations.Create, map[string]any{"title": "Retreat"})
	require.ErrorIs(t, err, apperr.ErrRemote)
	require.False(t, res.Applied)
	require.Len(t, f.cache.Events(tenants.AdminView), 1)
	require.Equal(t, 1, f.backend.Calls("events", "list"))
}

func TestRefreshFailureAfterWriteReportsApplied(t *testing.T) {
	f := newFixture(t, members.RoleAdmin)
	f.backend.SetHook(func(resource, action string) {
		if resource == "events" && action == "upsert" {
			f.backend.FailTransport("events", "list")
		}
	})

	res, err := f.coordinator.Mutate(context.Background(), tenants.Events, mutations.Create, map[string]any{"title": "Retreat"})
	require.ErrorIs(t, err, apperr.ErrSync)
	require.True(t, res.Applied)
	require.Equal(t, "new-1", res.ID)
}

func TestMutateNeedsMatchingSession(t *testing.T) {
	f := newFixture(t, members.RoleAdmin)
	ctx := context.Background()

	f.session.session.TenantID = "t2"
	_, err := f.coordinator.Mutate(ctx, tenants.Events, mutations.Create, map[string]any{"title": "x"})
	require.ErrorIs(t, err, apperr.ErrTenantChanged)

	f.session.ok = false
	_, err = f.coordinator.Mutate(ctx, tenants.Events, mutations.Create, map[string]any{"title": "x"})
	require.ErrorIs(t, err, apperr.ErrNoSession)

	_, err = f.coordinator.Mutate(ctx, tenants.Collection("sermons"), mutations.Create, nil)
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
}
