package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/Andiveli/HospitalFront-sub000/internal/utils"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	prettytable "github.com/jedib0t/go-pretty/v6/table"
)

// RosterView renders the participants of a room, local participant first.
func RosterView(parts []consult.Participant) string {
	if len(parts) == 0 {
		return MutedStyle.Render("Nobody here yet")
	}

	var rows [][]string
	for _, p := range parts {
		name := utils.TruncateString(p.DisplayName, 28)
		if p.Local {
			name += " (you)"
		}
		rows = append(rows, []string{name, p.Role.Label(), MediaBadges(p.Media), string(p.Status)})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("Name", "Role", "Media", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

func RenderRoster(parts []consult.Participant) {
	fmt.Println(RosterView(parts))
}

// MediaBadges is a compact rendering of a media state, e.g. "mic cam".
func MediaBadges(m consult.MediaState) string {
	var b []string
	if m.Audio {
		b = append(b, "mic")
	} else {
		b = append(b, "muted")
	}
	if m.Video {
		b = append(b, "cam")
	}
	if m.ScreenShare {
		b = append(b, "screen")
	}
	return strings.Join(b, " ")
}

// SessionSummary is printed once a consultation is over.
type SessionSummary struct {
	RoomID       string
	Role         consult.Role
	Duration     time.Duration
	Participants int
	Messages     int
	Reason       string
}

func SessionSummaryView(s SessionSummary) string {
	t := prettytable.NewWriter()
	t.SetStyle(prettytable.StyleRounded)
	t.SetTitle("Consultation Summary")
	t.AppendHeader(prettytable.Row{"Metric", "Value"})
	t.AppendRows([]prettytable.Row{
		{"Room", s.RoomID},
		{"Role", s.Role.Label()},
		{"Duration", utils.FormatClock(s.Duration)},
		{"Participants", s.Participants},
		{"Messages", s.Messages},
	})
	if s.Reason != "" {
		t.AppendSeparator()
		t.AppendRow(prettytable.Row{"Ended", s.Reason})
	}
	return t.Render()
}

func RenderSessionSummary(s SessionSummary) {
	fmt.Println(SessionSummaryView(s))
}

// RoomInfoView is the box shown to a host after opening a room.
func RoomInfoView(sess consult.Session, roomLink string) string {
	content := fmt.Sprintf("%s Room Ready!\n\n%s Room ID:      %s\n%s Appointment:  %s\n%s Join Link:    %s",
		IconSuccess,
		IconCopy, BoldStyle.Foreground(Primary).Render(sess.RoomID),
		IconDoctor, sess.AppointmentID,
		IconWeb, MutedStyle.Render(roomLink),
	)
	if !sess.ExpiresAt.IsZero() {
		content += fmt.Sprintf("\n%s Valid until:  %s", IconTime, sess.ExpiresAt.Local().Format("15:04"))
	}
	return SuccessBoxStyle.Render(content)
}

func RenderRoomInfo(sess consult.Session, roomLink string) {
	fmt.Println(RoomInfoView(sess, roomLink))
}

// InvitationView is the box shown after a guest link was generated.
func InvitationView(inv *consult.GuestInvitation) string {
	content := fmt.Sprintf("%s Guest Invited\n\n%s Guest:      %s (%s)\n%s Code:       %s\n%s Link:       %s\n%s Expires:    %s",
		IconSuccess,
		IconPeer, inv.GuestName, inv.InvitedRole.Label(),
		IconCopy, BoldStyle.Foreground(Primary).Render(inv.Code),
		IconLink, MutedStyle.Render(inv.Link),
		IconTime, inv.ExpiresAt.Local().Format("2006-01-02 15:04"),
	)
	return BoxStyle.Render(content)
}

func RenderInvitation(inv *consult.GuestInvitation) {
	fmt.Println(InvitationView(inv))
}
