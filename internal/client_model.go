package internal

import (
	"os"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
)

// refresh cadence for the watch view. Well inside the 10s presence TTL so
// the watcher never expires between ticks.
const watchInterval = 2 * time.Second

// WatchModel drives the live presence table: it logs in, heartbeats on a
// tick, refreshes /users, and polls the notification mailbox.
type WatchModel struct {
	api      *APIClient
	username string
	isAdmin  bool
	table    table.Model
	loggedIn bool
	lastErr  error
	flash    string
	quitting bool
}

type (
	tickMsg      time.Time
	loggedInMsg  loginResponse
	usersMsg     []userDTO
	notifyMsg    *Notification
	clientErrMsg struct{ err error }
)

func NewWatchModel(serverURL, username string) *WatchModel {
	if username == "" {
		username = defaultUsername()
	}
	columns := []table.Column{
		{Title: "User", Width: 24},
		{Title: "Online since", Width: 14},
		{Title: "Last seen", Width: 14},
	}
	tbl := table.New(
		table.WithColumns(columns),
		table.WithHeight(12),
		table.WithFocused(true),
	)
	return &WatchModel{
		api:      NewAPIClient(serverURL),
		username: username,
		table:    tbl,
	}
}

func defaultUsername() string {
	if user := os.Getenv("WHOSON_USER"); user != "" {
		return user
	}
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "anon"
}

func (model *WatchModel) Init() tea.Cmd {
	return tea.Batch(model.loginCmd(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(watchInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
