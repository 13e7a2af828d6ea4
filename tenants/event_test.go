package tenants_test

import (
	"testing"

	"github.com/ValdemirJunior2020/churchApp-Saas/tenants"
	"github.com/stretchr/testify/require"
)

func titles(events []tenants.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Title
	}
	return out
}

func TestEventsEmptyStartTimeSortsLast(t *testing.T) {
	rows := []map[string]any{
		{"id": "1", "title": "B", "startTime": "2026-01-01T00:00:00"},
		{"id": "2", "title": "A", "startTime": ""},
	}
	require.Equal(t, []string{"B", "A"}, titles(tenants.NormalizeEvents(rows, tenants.MemberView)))

	rows[0], rows[1] = rows[1], rows[0]
	require.Equal(t, []string{"B", "A"}, titles(tenants.NormalizeEvents(rows, tenants.MemberView)))
}

func TestEventsSortAscendingWithUnparseableLast(t *testing.T) {
	rows := []map[string]any{
		{"id": "1", "title": "later", "dateTimeISO": "2026-03-01T10:00:00Z"},
		{"id": "2", "title": "garbage", "startTime": "next sunday"},
		{"id": "3", "title": "sooner", "date": "2026-02-01"},
		{"id": "4", "title": "blank"},
		{"id": "5", "title": "offset", "startTime": "2026-02-15T09:00:00-05:00"},
	}

	got := tenants.NormalizeEvents(rows, tenants.MemberView)
	require.Equal(t, []string{"sooner", "offset", "later", "garbage", "blank"}, titles(got))
}

func TestEventsInactiveAndMissingID(t *testing.T) {
	rows := []map[string]any{
		{"eventId": "e1", "title": " Picnic ", "isActive": "FALSE"},
		{"title": "No id"},
	}

	require.Empty(t, tenants.NormalizeEvents(rows, tenants.MemberView))

	admin := tenants.NormalizeEvents(rows, tenants.AdminView)
	require.Len(t, admin, 1)
	require.Equal(t, "Picnic", admin[0].Title)
	require.Len(t, tenants.FilterEvents(admin, tenants.MemberView), 0)
}

func TestNormalizeConfig(t *testing.T) {
	cfg, ok := tenants.NormalizeConfig(map[string]any{
		"churchName":     " Grace Chapel ",
		"logoUrl":        "https://logo",
		"youtubeVideoId": "abc123",
		"theme_color":    "#111111",
	})
	require.True(t, ok)
	require.Equal(t, "Grace Chapel", cfg.ChurchName)
	require.Equal(t, "abc123", cfg.MediaRef)
	require.Equal(t, "#111111", cfg.PrimaryColor)

	_, ok = tenants.NormalizeConfig(nil)
	require.False(t, ok)
	require.Equal(t, "Grace Chapel", cfg.Record()["churchName"])
}
