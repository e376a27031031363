package ctl

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	service "github.com/okian/battle64/internal/app"
	"github.com/okian/battle64/internal/domain/model"
	"github.com/okian/battle64/internal/domain/timing"
)

const fallbackMarker = " !"

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	podiumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	rankCol     = lipgloss.NewStyle().Width(6).Align(lipgloss.Right).PaddingRight(2)
	timeCol     = lipgloss.NewStyle().Width(12).Align(lipgloss.Right).PaddingRight(2)
	verifiedCol = lipgloss.NewStyle().Width(10).Align(lipgloss.Center)
)

const podium = 3

// renderTable writes ranked as an aligned table. Fallback times are muted
// and marked so readers know they could not be verified.
func renderTable(w io.Writer, ranked []model.RankedEntry, maxName int) error {
	nameWidth := len("Runner")
	names := make([]string, len(ranked))
	for i := range ranked {
		names[i] = service.DisplayName(ranked[i].Username, maxName)
		if names[i] == "" {
			names[i] = ranked[i].UserID
		}
		nameWidth = max(nameWidth, lipgloss.Width(names[i]))
	}
	nameCol := lipgloss.NewStyle().Width(nameWidth + 2)

	rows := make([]string, 0, len(ranked)+1)
	rows = append(rows, headerStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top,
		rankCol.Render("Rank"),
		nameCol.Render("Runner"),
		timeCol.Render("Time"),
		verifiedCol.Render("Verified"),
	)))

	for i := range ranked {
		e := &ranked[i]
		display := timing.DisplayTime(*e)

		rank := strconv.Itoa(e.Rank)
		if e.Rank <= podium && !display.IsFallback {
			rank = podiumStyle.Render(rank)
		}
		text := display.Text
		if display.IsFallback {
			text = mutedStyle.Render(text + fallbackMarker)
		}
		verified := ""
		if e.Verified {
			verified = "yes"
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			rankCol.Render(rank),
			nameCol.Render(names[i]),
			timeCol.Render(text),
			verifiedCol.Render(verified),
		))
	}

	_, err := fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, rows...))
	return err
}
