package internal

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			MarginBottom(1)
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
	flashStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")).
			Bold(true)
	adminBadge = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")).
			Render(" [admin]")
)

func (model *WatchModel) View() string {
	if model.quitting {
		return "bye\n"
	}
	var b strings.Builder
	title := fmt.Sprintf("whoson - %s", model.username)
	if model.isAdmin {
		title += adminBadge
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(model.table.View())
	b.WriteString("\n")
	switch {
	case model.lastErr != nil:
		b.WriteString(errStyle.Render("error: " + model.lastErr.Error()))
	case model.flash != "":
		b.WriteString(flashStyle.Render(model.flash))
	case !model.loggedIn:
		b.WriteString(statusStyle.Render("connecting to " + model.api.BaseURL + "..."))
	default:
		b.WriteString(statusStyle.Render(fmt.Sprintf("%d online", len(model.table.Rows()))))
	}
	b.WriteString("\n")
	b.WriteString(statusStyle.Render("q to quit"))
	b.WriteString("\n")
	return b.String()
}
