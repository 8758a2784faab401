package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Andiveli/HospitalFront-sub000/internal/config"
	"github.com/Andiveli/HospitalFront-sub000/internal/logging"
	"github.com/Andiveli/HospitalFront-sub000/internal/portal"
	"github.com/Andiveli/HospitalFront-sub000/internal/relay"
	"github.com/Andiveli/HospitalFront-sub000/internal/token"
	"github.com/Andiveli/HospitalFront-sub000/internal/ui"
	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var (
	flagServeAddr      string
	flagServeSecret    string
	flagServePublicURL string
	flagServeRedis     string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a development portal and signaling relay",
	Long: `Run the appointment portal and the signaling relay in one process. Room and
guest state lives in memory, or in Redis when --redis is given.

Examples:
  consult serve --jwt-secret dev-secret
  consult serve --addr :9000 --redis localhost:6379`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadServer(config.ServerOptions{
			Addr:      flagServeAddr,
			JWTSecret: flagServeSecret,
			PublicURL: flagServePublicURL,
			RedisAddr: flagServeRedis,
		})
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func newStore(ctx context.Context, cfg *config.ServerConfig, c clock.Clock) (portal.Store, func(), error) {
	if cfg.RedisAddr == "" {
		return portal.NewMemoryStore(c), func() {}, nil
	}
	client, err := portal.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	return portal.NewRedisStore(client, c), func() { client.Close() }, nil
}

func serve(ctx context.Context, cfg *config.ServerConfig) error {
	logger := logging.For("serve")
	c := clock.New()
	gin.SetMode(gin.ReleaseMode)

	store, closeStore, err := newStore(ctx, cfg, c)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	issuer := token.NewIssuer(cfg.JWTSecret, c)
	hub := relay.NewHub(logging.For("relay"), c)
	go hub.Run(ctx)

	clientCfg, err := config.Load(clientOptions())
	if err != nil {
		return err
	}
	srv := portal.NewServer(store, issuer, hub, c, logging.For("portal"), portal.Settings{
		PublicURL:    cfg.PublicURL,
		RoomTTL:      cfg.RoomTTL,
		GuestCodeTTL: cfg.GuestCodeTTL,
		RelayServers: clientCfg.RelayServers(),
	})

	handler := srv.Handler(func(r gin.IRouter) {
		r.GET(relay.Path, gin.WrapF(relay.ServeWs(hub, issuer)))
	})
	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = httpSrv.Shutdown(shctx)
	}()

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}

	storeKind := "memory"
	if cfg.RedisAddr != "" {
		storeKind = "redis " + cfg.RedisAddr
	}
	ui.PrintSuccessf("Portal and relay listening on %s (store: %s)", ln.Addr(), storeKind)
	ui.PrintInfof("Signaling endpoint: %s", relay.Path)
	logger.Info("serving", "addr", ln.Addr().String(), "public_url", cfg.PublicURL)

	if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&flagServeAddr, "addr", "", "Listen address (default :8080)")
	serveCmd.Flags().StringVar(&flagServeSecret, "jwt-secret", "", "Secret used to sign access and session tokens")
	serveCmd.Flags().StringVar(&flagServePublicURL, "public-url", "", "Base URL used in guest links")
	serveCmd.Flags().StringVar(&flagServeRedis, "redis", "", "Redis address for room and guest state")
}
