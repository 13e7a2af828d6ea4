package tenants_test

import (
	"testing"

	"github.com/ValdemirJunior2020/churchApp-Saas/tenants"
	"github.com/stretchr/testify/require"
)

func TestMergeKeepsAbsentFields(t *testing.T) {
	cfg := tenants.DefaultConfig("Grace").Merge(map[string]any{"logoUrl": " https://x/logo.png ", "Address": "1 Main St"})
	require.Equal(t, "Grace", cfg.ChurchName)
	require.Equal(t, "https://x/logo.png", cfg.LogoURL)
	require.Equal(t, "1 Main St", cfg.Address)
	require.Equal(t, "#0B1220", cfg.PrimaryColor)

	link := tenants.DonationLink{ID: "d1", Label: "Tithe", URL: "https://give", SortOrder: 2, IsActive: true}
	link = link.Merge(map[string]any{"sort_order": "5", "isActive": "no"})
	require.Equal(t, "Tithe", link.Label)
	require.Equal(t, 5, link.SortOrder)
	require.False(t, link.IsActive)

	e := tenants.Event{ID: "e1", Title: "Supper", Location: "Hall", IsActive: true}
	e = e.Merge(map[string]any{"dateTimeISO": "2026-05-01T18:00:00Z"})
	require.Equal(t, "Supper", e.Title)
	require.Equal(t, "Hall", e.Location)
	require.Equal(t, "2026-05-01T18:00:00Z", e.StartTime)
	require.True(t, e.IsActive)
}
