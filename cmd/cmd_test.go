package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Andiveli/HospitalFront-sub000/internal/config"
	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/Andiveli/HospitalFront-sub000/internal/token"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

func TestTokenCommandIssuesParseableToken(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"token", "--jwt-secret", "dev-secret", "--user", "p-112", "--role", "patient", "--name", "Ana"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
	})
	require.NoError(t, rootCmd.Execute())

	claims, err := token.NewIssuer("dev-secret", clock.New()).Parse(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	require.Equal(t, "p-112", claims.UserID)
	require.Equal(t, "Ana", claims.Name)
	require.Equal(t, consult.RolePatient, claims.Role)
}

func TestLoadConfigRejectsRelayWithoutTURN(t *testing.T) {
	_, err := LoadConfig(config.Options{ForceRelay: true})
	require.ErrorContains(t, err, "TURN")

	cfg, err := LoadConfig(config.Options{ForceRelay: true, TURNServer: "turn.example.org"})
	require.NoError(t, err)
	require.True(t, cfg.ForceRelay)
}
