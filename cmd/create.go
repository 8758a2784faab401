package cmd

import (
	"context"
	"fmt"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/Andiveli/HospitalFront-sub000/internal/ui"
	"github.com/spf13/cobra"
)

var (
	flagMaxMinutes      int
	flagMaxParticipants int
	flagAllowGuests     bool
)

var createCmd = &cobra.Command{
	Use:     "create <appointment-id>",
	Aliases: []string{"c", "start"},
	Short:   "Open the consultation room of an appointment",
	Long: `Open the video room of an appointment as its clinician and wait for the
patient and any invited guests to join.

Examples:
  consult create 4812 --token $CONSULT_ACCESS_TOKEN
  consult create 4812 --max-minutes 45 --allow-guests
  consult create 4812 --relay --turn turn.example.org`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return createConsultation(cmd, args[0])
	},
}

func createConsultation(cmd *cobra.Command, appointmentID string) error {
	cfg, err := LoadConfig(clientOptions())
	if err != nil {
		return err
	}
	if cfg.AccessToken == "" {
		return fmt.Errorf("an access token is required to open a room (--token or CONSULT_ACCESS_TOKEN)")
	}

	orch, err := NewOrchestrator(cfg)
	if err != nil {
		return err
	}

	roomCfg := consult.RoomConfig{
		MaxDurationMinutes: flagMaxMinutes,
		MaxParticipants:    flagMaxParticipants,
		AllowGuests:        flagAllowGuests,
	}
	ctx := cmd.Context()
	sess, err := connect(ctx, func(ctx context.Context) (consult.Session, error) {
		return orch.CreateRoom(ctx, appointmentID, roomCfg)
	})
	if err != nil {
		return err
	}

	fmt.Println()
	ui.RenderRoomInfo(sess, cfg.GetRoomLink(appointmentID))
	return runCall(ctx, orch, sess)
}

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().IntVarP(&flagMaxMinutes, "max-minutes", "m", 0, "Session length limit in minutes (default from config)")
	createCmd.Flags().IntVar(&flagMaxParticipants, "max-participants", 0, "Room capacity (0 leaves it to the portal)")
	createCmd.Flags().BoolVarP(&flagAllowGuests, "allow-guests", "g", false, "Allow invited guests to join")
}
