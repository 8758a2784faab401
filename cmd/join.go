package cmd

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/Andiveli/HospitalFront-sub000/internal/ui"
	"github.com/spf13/cobra"
)

var flagGuestCode string

var joinCmd = &cobra.Command{
	Use:     "join [appointment-id]",
	Aliases: []string{"j"},
	Short:   "Join a consultation as patient or invited guest",
	Long: `Join the video room of an appointment. Patients and clinicians join with their
access token; invited guests join with the code or link they received.

Examples:
  consult join 4812 --token $CONSULT_ACCESS_TOKEN
  consult join --code amber-fox-river
  consult join --code "https://consultas.hospital.local/consultations/join?code=amber-fox-river"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var appointmentID string
		if len(args) == 1 {
			appointmentID = args[0]
		}
		code, err := parseGuestCode(flagGuestCode)
		if err != nil {
			return err
		}
		if appointmentID == "" && code == "" {
			return fmt.Errorf("an appointment id or a guest code is required")
		}
		return joinConsultation(cmd, appointmentID, code)
	},
}

func joinConsultation(cmd *cobra.Command, appointmentID, code string) error {
	cfg, err := LoadConfig(clientOptions())
	if err != nil {
		return err
	}
	if code == "" && cfg.AccessToken == "" {
		return fmt.Errorf("an access token is required to join without a guest code")
	}

	orch, err := NewOrchestrator(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	sess, err := connect(ctx, func(ctx context.Context) (consult.Session, error) {
		return orch.JoinRoom(ctx, appointmentID, code)
	})
	if err != nil {
		return err
	}

	ui.PrintInfof("Joined as %s (%s)", sess.LocalName, sess.LocalRole.Label())
	return runCall(ctx, orch, sess)
}

// parseGuestCode accepts a bare code or an invitation link carrying it.
func parseGuestCode(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", nil
	}
	if !strings.Contains(input, "://") {
		return input, nil
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("parse invitation link: %w", err)
	}
	if code := u.Query().Get("code"); code != "" {
		ui.PrintSuccessf("Extracted guest code: %s", code)
		return code, nil
	}
	return "", fmt.Errorf("invitation link has no code: %s", input)
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinCmd.Flags().StringVarP(&flagGuestCode, "code", "c", "", "Guest code or invitation link")
}
