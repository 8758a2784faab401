package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/Andiveli/HospitalFront-sub000/internal/token"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReasonEndedByHost is broadcast when the host ends the room.
const ReasonEndedByHost = "ended-by-host"

type accessTokenRequest struct {
	UserID string `json:"userId" binding:"required"`
	Name   string `json:"name"`
	Role   string `json:"role" binding:"required"`
}

type accessTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type createRoomRequest struct {
	AppointmentID string             `json:"appointmentId" binding:"required"`
	Config        consult.RoomConfig `json:"config"`
}

type joinRoomRequest struct {
	AppointmentID string `json:"appointmentId"`
	GuestCode     string `json:"guestCode"`
}

type validateRequest struct {
	Code string `json:"code" binding:"required"`
}

type guestLinkRequest struct {
	AppointmentID string            `json:"appointmentId" binding:"required"`
	Guest         consult.GuestData `json:"guest"`
}

type roomResponse struct {
	RoomRecord
	Participants []consult.Participant `json:"participants"`
}

// issueAccessToken is the development login: any user id is accepted.
func (s *Server) issueAccessToken(c *gin.Context) {
	var req accessTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	role, err := consult.ParseRole(req.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	raw, exp, err := s.issuer.Issue(token.Claims{UserID: req.UserID, Name: req.Name, Role: role}, s.settings.AccessTokenTTL)
	if err != nil {
		s.logger.Error("issue access token", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, accessTokenResponse{Token: raw, ExpiresAt: exp})
}

func (s *Server) createRoom(c *gin.Context) {
	claims, _ := claimsFrom(c)
	if !claims.Role.IsClinician() {
		c.JSON(http.StatusForbidden, gin.H{"error": "only clinicians can open a consultation"})
		return
	}

	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	now := s.clock.Now()

	room, err := s.store.RoomByAppointment(ctx, req.AppointmentID)
	switch {
	case err == nil && !room.Ended && room.HostID == claims.UserID:
		// the host coming back to its own room
		s.logger.Info("host rejoined room", "room", room.ID, "appointment", req.AppointmentID)
	case err == nil && !room.Ended:
		c.JSON(http.StatusConflict, gin.H{"error": "a consultation is already open for this appointment"})
		return
	case err != nil && !errors.Is(err, ErrNotFound):
		s.storeFailure(c, "lookup room", err)
		return
	default:
		id, err := generateID(roomIDWords, func(id string) bool {
			_, err := s.store.Room(ctx, id)
			return err == nil
		})
		if err != nil {
			s.storeFailure(c, "generate room id", err)
			return
		}
		room = RoomRecord{
			ID:            id,
			AppointmentID: req.AppointmentID,
			HostID:        claims.UserID,
			Config:        req.Config,
			CreatedAt:     now,
			ExpiresAt:     now.Add(s.settings.RoomTTL),
		}
		room.HostParticipantID = participantID(room.ID, claims.UserID)
		if err := s.store.PutRoom(ctx, room); err != nil {
			s.storeFailure(c, "store room", err)
			return
		}
		s.logger.Info("room created", "room", room.ID, "appointment", room.AppointmentID, "host", claims.UserID)
	}

	creds, err := s.credentials(ctx, room, claims.UserID, claims.Name, claims.Role)
	if err != nil {
		s.storeFailure(c, "issue session token", err)
		return
	}
	c.JSON(http.StatusCreated, creds)
}

func (s *Server) joinRoom(c *gin.Context) {
	var req joinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()

	var (
		userID, name string
		role         consult.Role
	)
	if code := strings.TrimSpace(req.GuestCode); code != "" {
		inv, err := s.store.Invitation(ctx, code)
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown guest code"})
			return
		}
		if err != nil {
			s.storeFailure(c, "lookup invitation", err)
			return
		}
		if req.AppointmentID == "" {
			req.AppointmentID = inv.AppointmentID
		}
		if req.AppointmentID != inv.AppointmentID {
			c.JSON(http.StatusForbidden, gin.H{"error": "guest code is for another appointment"})
			return
		}
		if msg := s.invitationProblem(ctx, inv); msg != "" {
			c.JSON(http.StatusGone, gin.H{"error": msg})
			return
		}
		if !inv.Used {
			inv.Used = true
			if err := s.store.PutInvitation(ctx, inv); err != nil {
				s.storeFailure(c, "store invitation", err)
				return
			}
		}
		userID, name, role = "guest:"+code, inv.GuestName, inv.InvitedRole
	} else {
		claims, ok := claimsFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization or guest code required"})
			return
		}
		userID, name, role = claims.UserID, claims.Name, claims.Role
	}

	if req.AppointmentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "appointmentId required"})
		return
	}
	room, err := s.store.RoomByAppointment(ctx, req.AppointmentID)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "the consultation has not started yet"})
		return
	}
	if err != nil {
		s.storeFailure(c, "lookup room", err)
		return
	}
	if room.Ended {
		c.JSON(http.StatusGone, gin.H{"error": "the consultation has ended"})
		return
	}

	creds, err := s.credentials(ctx, room, userID, name, role)
	if err != nil {
		s.storeFailure(c, "issue session token", err)
		return
	}
	s.logger.Info("participant admitted", "room", room.ID, "participant", creds.ParticipantID, "role", role)
	c.JSON(http.StatusOK, creds)
}

func (s *Server) getRoom(c *gin.Context) {
	ctx := c.Request.Context()
	room, err := s.store.Room(ctx, c.Param("roomId"))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	if err != nil {
		s.storeFailure(c, "lookup room", err)
		return
	}
	roster, err := s.rooms.Roster(ctx, room.ID)
	if err != nil {
		s.logger.Warn("roster unavailable", "room", room.ID, "err", err)
	}
	if roster == nil {
		roster = []consult.Participant{}
	}
	c.JSON(http.StatusOK, roomResponse{RoomRecord: room, Participants: roster})
}

// endRoom ends the room when the host (or a doctor) leaves. Anyone else
// leaving gets a 200 with ended=false and the room stays open.
func (s *Server) endRoom(c *gin.Context) {
	claims, _ := claimsFrom(c)
	ctx := c.Request.Context()

	room, err := s.store.Room(ctx, c.Param("roomId"))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	if err != nil {
		s.storeFailure(c, "lookup room", err)
		return
	}
	if room.Ended || (room.HostID != claims.UserID && claims.Role != consult.RoleDoctor) {
		c.JSON(http.StatusOK, gin.H{"ended": false})
		return
	}

	room.Ended = true
	if err := s.store.PutRoom(ctx, room); err != nil {
		s.storeFailure(c, "store room", err)
		return
	}
	if _, err := s.rooms.EndRoom(ctx, room.ID, ReasonEndedByHost); err != nil {
		s.logger.Warn("relay did not end room", "room", room.ID, "err", err)
	}
	s.logger.Info("room ended", "room", room.ID, "by", claims.UserID)
	c.JSON(http.StatusOK, gin.H{"ended": true})
}

// validateGuest always answers 200 for a well-formed request; problems with
// the code itself are reported in the body.
func (s *Server) validateGuest(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code required"})
		return
	}
	ctx := c.Request.Context()

	inv, err := s.store.Invitation(ctx, strings.TrimSpace(req.Code))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusOK, consult.GuestValidation{IsValid: false, Message: "unknown guest code"})
		return
	}
	if err != nil {
		s.storeFailure(c, "lookup invitation", err)
		return
	}
	if msg := s.invitationProblem(ctx, inv); msg != "" {
		c.JSON(http.StatusOK, consult.GuestValidation{IsValid: false, Message: msg})
		return
	}

	v := consult.GuestValidation{
		IsValid:   true,
		RoomInfo:  &consult.RoomInfo{AppointmentID: inv.AppointmentID},
		GuestInfo: &consult.GuestInfo{Name: inv.GuestName, Role: inv.InvitedRole},
	}
	if room, err := s.store.RoomByAppointment(ctx, inv.AppointmentID); err == nil {
		v.RoomInfo.RoomID = room.ID
	}
	c.JSON(http.StatusOK, v)
}

// invitationProblem explains why inv cannot be used, or returns "".
func (s *Server) invitationProblem(ctx context.Context, inv consult.GuestInvitation) string {
	if !inv.ExpiresAt.After(s.clock.Now()) {
		return "guest code expired"
	}
	room, err := s.store.RoomByAppointment(ctx, inv.AppointmentID)
	if err == nil && room.Ended {
		if inv.Used {
			return "guest code already used"
		}
		return "the consultation has ended"
	}
	return ""
}

func (s *Server) createGuestLink(c *gin.Context) {
	claims, _ := claimsFrom(c)
	if !claims.Role.IsClinician() {
		c.JSON(http.StatusForbidden, gin.H{"error": "only clinicians can invite guests"})
		return
	}

	var req guestLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Guest.Name = strings.TrimSpace(req.Guest.Name)
	if req.Guest.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "guest name required"})
		return
	}
	if !req.Guest.Role.IsInvited() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("role %q cannot be invited", req.Guest.Role)})
		return
	}
	ctx := c.Request.Context()

	code, err := generateID(guestCodeWords, func(code string) bool {
		_, err := s.store.Invitation(ctx, code)
		return err == nil
	})
	if err != nil {
		s.storeFailure(c, "generate guest code", err)
		return
	}
	inv := consult.GuestInvitation{
		Code:          code,
		Link:          fmt.Sprintf("%s/consultations/join?code=%s", strings.TrimRight(s.settings.PublicURL, "/"), code),
		ExpiresAt:     s.clock.Now().Add(s.settings.GuestCodeTTL),
		AppointmentID: req.AppointmentID,
		InvitedRole:   req.Guest.Role,
		GuestName:     req.Guest.Name,
	}
	if room, err := s.store.RoomByAppointment(ctx, req.AppointmentID); err == nil {
		inv.RoomID = room.ID
	}
	if err := s.store.PutInvitation(ctx, inv); err != nil {
		s.storeFailure(c, "store invitation", err)
		return
	}
	s.logger.Info("guest invited", "appointment", inv.AppointmentID, "role", inv.InvitedRole, "by", claims.UserID)
	c.JSON(http.StatusCreated, inv)
}

// credentials issues a session token for userID in room and snapshots who
// is already connected.
func (s *Server) credentials(ctx context.Context, room RoomRecord, userID, name string, role consult.Role) (*consult.RoomCredentials, error) {
	pid := participantID(room.ID, userID)
	ttl := room.ExpiresAt.Sub(s.clock.Now())
	raw, exp, err := s.issuer.Issue(token.Claims{
		UserID:        userID,
		Name:          name,
		Role:          role,
		RoomID:        room.ID,
		ParticipantID: pid,
	}, ttl)
	if err != nil {
		return nil, err
	}

	creds := &consult.RoomCredentials{
		RoomID:        room.ID,
		AppointmentID: room.AppointmentID,
		SessionToken:  raw,
		ParticipantID: pid,
		Role:          role,
		DisplayName:   name,
		RelayServers:  s.settings.RelayServers,
		ExpiresAt:     exp,
	}
	roster, err := s.rooms.Roster(ctx, room.ID)
	if err != nil {
		s.logger.Warn("roster unavailable", "room", room.ID, "err", err)
	}
	for _, p := range roster {
		if p.ID != pid {
			creds.Participants = append(creds.Participants, p)
		}
	}
	return creds, nil
}

// participantID is stable per user and room, so a participant that joins
// again takes over its old slot.
func participantID(roomID, userID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(roomID+"/"+userID)).String()
}

func (s *Server) storeFailure(c *gin.Context, op string, err error) {
	s.logger.Error("portal "+op, "err", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
}
