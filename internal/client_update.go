package internal

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
)

func (model *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			model.quitting = true
			return model, tea.Sequence(model.logoutCmd(), tea.Quit)
		}
	case loggedInMsg:
		model.loggedIn = true
		model.isAdmin = msg.IsAdmin
		model.username = msg.Username
		model.lastErr = nil
		return model, model.usersCmd()
	case tickMsg:
		if !model.loggedIn {
			return model, tea.Batch(model.loginCmd(), tick())
		}
		return model, tea.Batch(model.heartbeatCmd(), model.usersCmd(), model.pollCmd(), tick())
	case usersMsg:
		model.setRows(msg)
		model.lastErr = nil
		return model, nil
	case notifyMsg:
		if msg != nil {
			model.flash = fmt.Sprintf("notification %s at %s", msg.Kind,
				time.UnixMilli(msg.CreatedAt).Format("15:04:05"))
			// terminal bell for the "sound" kind
			return model, tea.Println("\a")
		}
		return model, nil
	case clientErrMsg:
		model.lastErr = msg.err
		return model, nil
	}
	var cmd tea.Cmd
	model.table, cmd = model.table.Update(msg)
	return model, cmd
}

func (model *WatchModel) setRows(users []userDTO) {
	rows := make([]table.Row, 0, len(users))
	for _, u := range users {
		rows = append(rows, table.Row{
			u.Username,
			time.UnixMilli(u.LoginTime).Format("15:04:05"),
			time.UnixMilli(u.LastSeen).Format("15:04:05"),
		})
	}
	model.table.SetRows(rows)
}

func (model *WatchModel) loginCmd() tea.Cmd {
	return func() tea.Msg {
		resp, err := model.api.Login(model.username)
		if err != nil {
			return clientErrMsg{err}
		}
		return loggedInMsg(resp)
	}
}

func (model *WatchModel) logoutCmd() tea.Cmd {
	return func() tea.Msg {
		_ = model.api.Logout(model.username)
		return nil
	}
}

func (model *WatchModel) heartbeatCmd() tea.Cmd {
	return func() tea.Msg {
		if err := model.api.Heartbeat(model.username); err != nil {
			return clientErrMsg{err}
		}
		return nil
	}
}

func (model *WatchModel) usersCmd() tea.Cmd {
	return func() tea.Msg {
		resp, err := model.api.Users()
		if err != nil {
			return clientErrMsg{err}
		}
		return usersMsg(resp.Users)
	}
}

func (model *WatchModel) pollCmd() tea.Cmd {
	return func() tea.Msg {
		n, err := model.api.CheckNotification(model.username)
		if err != nil {
			return clientErrMsg{err}
		}
		return notifyMsg(n)
	}
}
