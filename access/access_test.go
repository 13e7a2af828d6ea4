package access_test

import (
	"testing"

	"github.com/ValdemirJunior2020/churchApp-Saas/access"
	"github.com/ValdemirJunior2020/churchApp-Saas/apperr"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	p, err := access.DefaultPolicy()
	require.NoError(t, err)

	tests := []struct {
		role       string
		collection string
		act        access.Action
		want       bool
	}{
		{"ADMIN", "members", access.Write, true},
		{"ADMIN", "events", access.Read, true},
		{"MEMBER", "events", access.Read, true},
		{"MEMBER", "events", access.Write, false},
		{"MEMBER", "config", access.Write, false},
		{"GUEST", "events", access.Read, false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, p.Can(tt.role, tt.collection, tt.act), "%s %s %s", tt.role, tt.collection, tt.act)
	}
}

func TestCustomPolicy(t *testing.T) {
	p, err := access.NewPolicy()
	require.NoError(t, err)
	require.False(t, p.Can("MEMBER", "events", access.Read))

	require.NoError(t, p.Allow("MEMBER", "events", access.Write))
	require.True(t, p.Can("MEMBER", "events", access.Write))
	require.False(t, p.Can("MEMBER", "members", access.Write))
}

func TestCheckReturnsForbidden(t *testing.T) {
	p, err := access.DefaultPolicy()
	require.NoError(t, err)
	require.NoError(t, p.Check("ADMIN", "events", access.Write))
	require.ErrorIs(t, p.Check("MEMBER", "events", access.Write), apperr.ErrForbidden)
}
