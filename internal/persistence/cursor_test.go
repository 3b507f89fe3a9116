package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DGator86/Prodigy---App/internal/domain"
)

func TestCursorRoundTrip(t *testing.T) {
	c := &domain.Cursor{
		PerformedAt: time.Date(2025, time.June, 2, 7, 0, 0, 123456789, time.UTC),
		ID:          "w-1",
	}

	token := EncodeCursor(c)
	require.NotEmpty(t, token)

	decoded, err := DecodeCursor(token)
	require.NoError(t, err)
	require.True(t, decoded.PerformedAt.Equal(c.PerformedAt))
	require.Equal(t, c.ID, decoded.ID)
}

func TestCursorEmptyToken(t *testing.T) {
	decoded, err := DecodeCursor("")
	require.NoError(t, err)
	require.Nil(t, decoded)
	require.Equal(t, "", EncodeCursor(nil))
}

func TestCursorRejectsMalformedTokens(t *testing.T) {
	_, err := DecodeCursor("not-base64!!")
	require.Error(t, err)

	_, err = DecodeCursor("bm8tc2VwYXJhdG9y") // "no-separator"
	require.Error(t, err)
}
