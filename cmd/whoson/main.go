package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	intrnl "whoson/internal"
)

func main() {
	server := flag.String("server", getEnv("WHOSON_SERVER", "http://localhost:8080"), "server base URL")
	user := flag.String("user", getEnv("WHOSON_USER", ""), "username")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	command := "watch"
	if len(args) > 0 {
		command = args[0]
	}

	api := intrnl.NewAPIClient(*server)
	switch command {
	case "watch":
		runWatch(*server, *user)
	case "users":
		resp, err := api.Users()
		exitOn(err)
		for _, u := range resp.Users {
			fmt.Printf("%-24s last seen %s\n", u.Username,
				time.UnixMilli(u.LastSeen).Format(time.RFC3339))
		}
		fmt.Printf("%d online\n", resp.Count)
	case "login":
		resp, err := api.Login(argOr(args, 1, *user))
		exitOn(err)
		if resp.IsAdmin {
			fmt.Printf("logged in as %s (admin)\n", resp.Username)
		} else {
			fmt.Printf("logged in as %s\n", resp.Username)
		}
	case "logout":
		exitOn(api.Logout(argOr(args, 1, *user)))
		fmt.Println("logged out")
	case "notify":
		target := argOr(args, 1, "")
		if target == "" {
			fmt.Fprintln(os.Stderr, "usage: whoson notify <username>")
			os.Exit(2)
		}
		exitOn(api.Notify(target))
		fmt.Printf("notified %s\n", target)
	case "notify-all":
		notified, err := api.NotifyAll()
		exitOn(err)
		fmt.Printf("notified %d users\n", notified)
	default:
		usage()
		os.Exit(2)
	}
}

func runWatch(server, user string) {
	model := intrnl.NewWatchModel(server, user)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `whoson - presence watcher and notifier

usage:
  whoson [flags]                live watch TUI (default)
  whoson [flags] users          list active users
  whoson [flags] login [name]   register a user
  whoson [flags] logout [name]  remove a user
  whoson [flags] notify <name>  send a sound notification
  whoson [flags] notify-all     notify every active user

flags:
`)
	flag.PrintDefaults()
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func argOr(args []string, idx int, def string) string {
	if len(args) > idx {
		return args[idx]
	}
	return def
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
