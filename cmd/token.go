package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/Andiveli/HospitalFront-sub000/internal/token"
	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"
)

var (
	flagTokenSecret string
	flagTokenUser   string
	flagTokenRole   string
	flagTokenTTL    time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a development access token",
	Long: `Sign an access token with the same secret as "consult serve", for trying the
CLI against a development portal. The token is printed on stdout.

Examples:
  consult token --user dr-vera --name "Dr. Vera" --role doctor --jwt-secret dev-secret
  export CONSULT_ACCESS_TOKEN=$(consult token --user p-112 --role patient)`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := flagTokenSecret
		if secret == "" {
			secret = os.Getenv("JWT_SECRET")
		}
		if secret == "" {
			return fmt.Errorf("JWT secret required (--jwt-secret or JWT_SECRET)")
		}
		role, err := consult.ParseRole(flagTokenRole)
		if err != nil {
			return err
		}
		if flagTokenUser == "" {
			return fmt.Errorf("--user is required")
		}

		raw, _, err := token.NewIssuer(secret, clock.New()).Issue(token.Claims{
			UserID: flagTokenUser,
			Name:   flagName,
			Role:   role,
		}, flagTokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), raw)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVar(&flagTokenSecret, "jwt-secret", "", "Signing secret (default JWT_SECRET)")
	tokenCmd.Flags().StringVar(&flagTokenUser, "user", "", "User id")
	tokenCmd.Flags().StringVar(&flagTokenRole, "role", string(consult.RoleDoctor), "Role: doctor, specialist or patient")
	tokenCmd.Flags().DurationVar(&flagTokenTTL, "ttl", 24*time.Hour, "Token lifetime")
}
