// Package portal is a development stand-in for the appointment backend: it
// opens rooms, issues session tokens and manages guest invitations over the
// same REST contract the directory client speaks.
package portal

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/Andiveli/HospitalFront-sub000/internal/directory"
	"github.com/Andiveli/HospitalFront-sub000/internal/token"
	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
)

// Rooms is the live side of the relay the portal reports on and ends.
type Rooms interface {
	Roster(ctx context.Context, roomID string) ([]consult.Participant, error)
	EndRoom(ctx context.Context, roomID, reason string) (bool, error)
}

type Settings struct {
	// PublicURL prefixes guest links, e.g. https://portal.example.org.
	PublicURL      string
	RoomTTL        time.Duration
	GuestCodeTTL   time.Duration
	AccessTokenTTL time.Duration
	RelayServers   []consult.RelayServer
}

func DefaultSettings() Settings {
	return Settings{
		PublicURL:      "http://localhost:8080",
		RoomTTL:        2 * time.Hour,
		GuestCodeTTL:   24 * time.Hour,
		AccessTokenTTL: 24 * time.Hour,
	}
}

type Server struct {
	store    Store
	issuer   *token.Issuer
	rooms    Rooms
	clock    clock.Clock
	logger   *slog.Logger
	settings Settings
}

func NewServer(store Store, issuer *token.Issuer, rooms Rooms, c clock.Clock, logger *slog.Logger, s Settings) *Server {
	if c == nil {
		c = clock.New()
	}
	if logger == nil {
		logger = slog.Default().With("component", "portal")
	}
	def := DefaultSettings()
	if s.RoomTTL <= 0 {
		s.RoomTTL = def.RoomTTL
	}
	if s.GuestCodeTTL <= 0 {
		s.GuestCodeTTL = def.GuestCodeTTL
	}
	if s.AccessTokenTTL <= 0 {
		s.AccessTokenTTL = def.AccessTokenTTL
	}
	if s.PublicURL == "" {
		s.PublicURL = def.PublicURL
	}
	return &Server{store: store, issuer: issuer, rooms: rooms, clock: c, logger: logger, settings: s}
}

// Register mounts the portal routes on r.
func (s *Server) Register(r gin.IRouter) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/api/auth/token", s.issueAccessToken)

	calls := r.Group(directory.BasePath)
	{
		calls.POST("/rooms", JWTAuth(s.issuer), s.createRoom)
		calls.POST("/rooms/join", OptionalAuth(s.issuer), s.joinRoom)
		calls.GET("/rooms/:roomId", JWTAuth(s.issuer), s.getRoom)
		calls.POST("/rooms/:roomId/end", JWTAuth(s.issuer), s.endRoom)

		calls.POST("/guests/validate", s.validateGuest)
		calls.POST("/guests/links", JWTAuth(s.issuer), s.createGuestLink)
	}
}

// Handler returns a gin engine serving the portal. mount adds further
// routes, such as the relay endpoint, behind the same middleware.
func (s *Server) Handler(mount ...func(gin.IRouter)) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	s.Register(r)
	for _, m := range mount {
		m(r)
	}
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
