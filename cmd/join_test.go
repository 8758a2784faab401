package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseGuestCode(t *testing.T) {
	code, err := parseGuestCode("  amber-fox-river ")
	require.NoError(t, err)
	require.Equal(t, "amber-fox-river", code)

	code, err = parseGuestCode("https://consultas.hospital.local/consultations/join?code=amber-fox-river")
	require.NoError(t, err)
	require.Equal(t, "amber-fox-river", code)

	code, err = parseGuestCode("")
	require.NoError(t, err)
	require.Empty(t, code)

	_, err = parseGuestCode("https://consultas.hospital.local/consultations/join")
	require.Error(t, err)
}
