package apperr_test

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/ValdemirJunior2020/churchApp-Saas/apperr"
	"github.com/stretchr/testify/require"
)

func TestTimeoutErrorIsNetworkError(t *testing.T) {
	err := fmt.Errorf("call: %w", &apperr.TimeoutError{After: 20 * time.Second})

	require.ErrorIs(t, err, apperr.ErrTimeout)
	require.ErrorIs(t, err, apperr.ErrNetwork)
	require.NotErrorIs(t, err, apperr.ErrRemote)
	require.True(t, apperr.IsTransient(err))
}

func TestRemoteErrorCarriesMessage(t *testing.T) {
	err := apperr.Wrapf(&apperr.RemoteError{Message: "sheet locked"}, "[save] church")

	require.ErrorIs(t, err, apperr.ErrRemote)
	var remote *apperr.RemoteError
	require.True(t, apperr.As(err, &remote))
	require.Equal(t, "sheet locked", remote.Message)
}

func TestProtocolErrorTruncatesRaw(t *testing.T) {
	err := apperr.NewProtocolError(200, strings.Repeat("x", 1000))

	require.ErrorIs(t, err, apperr.ErrProtocol)
	require.Len(t, err.Raw, 259)
	require.False(t, apperr.Is(err, apperr.ErrNetwork))
}

func TestProtocolErrorKeepsRunesWhole(t *testing.T) {
	// 255 ASCII bytes put the two-byte "é" across the cut
	err := apperr.NewProtocolError(200, strings.Repeat("x", 255)+strings.Repeat("é", 10))

	require.True(t, utf8.ValidString(err.Raw))
	require.Equal(t, strings.Repeat("x", 255)+"...", err.Raw)
}

func TestWrapfNil(t *testing.T) {
	require.NoError(t, apperr.Wrapf(nil, "nothing"))
}
