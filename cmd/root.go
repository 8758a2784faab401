package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Andiveli/HospitalFront-sub000/internal/ui"
	"github.com/Andiveli/HospitalFront-sub000/internal/version"
	"github.com/spf13/cobra"
)

// Client flags shared by every command that talks to the portal.
var (
	flagDomain       string
	flagAPIURL       string
	flagSignalingURL string
	flagToken        string
	flagSTUN         string
	flagTURN         string
	flagTURNUser     string
	flagTURNPass     string
	flagRelay        bool
	flagCodec        string
	flagSynthetic    bool
	flagName         string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "consult",
	Short: "Video consultations between clinicians, patients and invited guests",
	Long: `consult runs hospital video consultations from the terminal. Clinicians open a
room for an appointment, patients join it, and invited guests enter with a
one-time code. Media flows peer to peer over WebRTC; the portal and relay only
carry signaling.

The serve command runs a self-contained portal and relay for development.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagDomain, "domain", "d", "", "Portal domain")
	pf.StringVar(&flagAPIURL, "api", "", "Portal API base URL (default https://<domain>)")
	pf.StringVar(&flagSignalingURL, "signaling", "", "Relay websocket URL (default wss://<domain>/ws/signal)")
	pf.StringVar(&flagToken, "token", "", "Access token for the portal")
	pf.StringVarP(&flagSTUN, "stun", "s", "", "Custom STUN server")
	pf.StringVarP(&flagTURN, "turn", "t", "", "Custom TURN server")
	pf.StringVarP(&flagTURNUser, "turn-user", "u", "", "TURN username")
	pf.StringVarP(&flagTURNPass, "turn-pass", "p", "", "TURN password")
	pf.BoolVarP(&flagRelay, "relay", "r", false, "Force relay mode")
	pf.StringVar(&flagCodec, "codec", "", "Signaling wire format: json or msgpack")
	pf.BoolVar(&flagSynthetic, "synthetic", false, "Send generated media instead of opening camera and microphone")
	pf.StringVarP(&flagName, "name", "n", "", "Display name when the portal does not provide one")
}
