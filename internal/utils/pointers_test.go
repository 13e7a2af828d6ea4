package utils_test

import (
	"testing"
	"time"

	"github.com/ValdemirJunior2020/churchApp-Saas/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestValueOr(t *testing.T) {
	var missing *time.Time
	fallback := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, fallback, utils.ValueOr(missing, fallback))
	require.Equal(t, 7, utils.ValueOr(utils.Ptr(7), 0))
}
