package sessions_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ValdemirJunior2020/churchApp-Saas/members"
	"github.com/ValdemirJunior2020/churchApp-Saas/sessions"
	"github.com/ValdemirJunior2020/churchApp-Saas/store"
	"github.com/ValdemirJunior2020/churchApp-Saas/store/storefake"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTripAndTamper(t *testing.T) {
	codec := sessions.NewCodec([]byte("0123456789abcdef0123456789abcdef"))
	in := sessions.Session{
		TenantID:    "t1",
		TenantCode:  "GRACE1",
		PlanStatus:  sessions.PlanActive,
		UserID:      "m1",
		Role:        members.RoleAdmin,
		LastLoginAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	blob, err := codec.Encode(in)
	require.NoError(t, err)

	out, err := codec.Decode(blob)
	require.NoError(t, err)
	require.Equal(t, in, out)

	parts := strings.Split(blob, ".")
	require.Len(t, parts, 3)
	_, err = codec.Decode(parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2])))
	require.Error(t, err)

	_, err = sessions.NewCodec([]byte("another key")).Decode(blob)
	require.Error(t, err)

	_, err = codec.Decode(`{"tenant_id":"t1"}`)
	require.Error(t, err)
}

func TestDeviceKeyIsStable(t *testing.T) {
	ctx := context.Background()
	s := storefake.NewFakeStore()

	first, err := sessions.DeviceKey(ctx, s)
	require.NoError(t, err)
	require.Len(t, first, 32)
	require.Contains(t, s.Keys(), store.DeviceKeyKey)

	second, err := sessions.DeviceKey(ctx, s)
	require.NoError(t, err)
	require.Equal(t, first, second)
}
