package cmd

import (
	"context"
	"fmt"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/Andiveli/HospitalFront-sub000/internal/guest"
	"github.com/Andiveli/HospitalFront-sub000/internal/logging"
	"github.com/Andiveli/HospitalFront-sub000/internal/ui"
	"github.com/spf13/cobra"
)

var (
	flagGuestName  string
	flagGuestEmail string
	flagGuestRole  string
)

var inviteCmd = &cobra.Command{
	Use:   "invite <appointment-id>",
	Short: "Generate a guest link for an appointment",
	Long: `Generate a one-time guest code and link so a companion, translator or other
guest can join the consultation. Only clinicians can invite.

Examples:
  consult invite 4812 --guest "Ana Ruiz" --role companion
  consult invite 4812 --guest "Marc Weber" --role translator --email marc@example.org`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return inviteGuest(cmd.Context(), args[0])
	},
}

var checkCodeCmd = &cobra.Command{
	Use:   "check-code <code|link>",
	Short: "Check whether a guest code can still be used",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return checkGuestCode(cmd.Context(), args[0])
	},
}

func newGuestValidator() (*guest.Validator, error) {
	cfg, err := LoadConfig(clientOptions())
	if err != nil {
		return nil, err
	}
	return guest.NewValidator(newDirectory(cfg), logging.For("guest")), nil
}

func inviteGuest(ctx context.Context, appointmentID string) error {
	role, err := consult.ParseRole(flagGuestRole)
	if err != nil {
		return err
	}
	v, err := newGuestValidator()
	if err != nil {
		return err
	}

	var inv *consult.GuestInvitation
	err = ui.Step("Creating invitation...", "Invitation created", func() error {
		inv, err = v.Invite(ctx, appointmentID, consult.GuestData{
			Name:  flagGuestName,
			Email: flagGuestEmail,
			Role:  role,
		})
		return err
	})
	if err != nil {
		return err
	}

	fmt.Println()
	ui.RenderInvitation(inv)
	return nil
}

func checkGuestCode(ctx context.Context, input string) error {
	code, err := parseGuestCode(input)
	if err != nil {
		return err
	}
	v, err := newGuestValidator()
	if err != nil {
		return err
	}

	res, err := v.Validate(ctx, code)
	if err != nil {
		return err
	}
	if res.GuestInfo != nil {
		ui.PrintSuccessf("Code valid for %s (%s)", res.GuestInfo.Name, res.GuestInfo.Role.Label())
	} else {
		ui.PrintSuccess("Code valid")
	}
	if res.RoomInfo != nil {
		ui.PrintInfof("Appointment %s, room %s", res.RoomInfo.AppointmentID, res.RoomInfo.RoomID)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(inviteCmd, checkCodeCmd)

	inviteCmd.Flags().StringVar(&flagGuestName, "guest", "", "Guest's full name")
	inviteCmd.Flags().StringVar(&flagGuestEmail, "email", "", "Guest's email address")
	inviteCmd.Flags().StringVar(&flagGuestRole, "role", string(consult.RoleGuest), "Guest role: guest, companion or translator")
	inviteCmd.MarkFlagRequired("guest")
}
