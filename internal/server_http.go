package internal

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

type usernameRequest struct {
	Username string `json:"username"`
}

type loginResponse struct {
	Success  bool   `json:"success"`
	IsAdmin  bool   `json:"isAdmin"`
	Username string `json:"username"`
}

type userDTO struct {
	Username  string `json:"username"`
	LastSeen  int64  `json:"lastSeen"`
	LoginTime int64  `json:"loginTime"`
}

type usersResponse struct {
	Success bool      `json:"success"`
	Users   []userDTO `json:"users"`
	Count   int       `json:"count"`
}

type checkNotificationResponse struct {
	Success         bool          `json:"success"`
	HasNotification bool          `json:"hasNotification"`
	Notification    *Notification `json:"notification,omitempty"`
}

var errUsernameRequired = errors.New("username is required")

// HandleLogin registers a user. The login path is the only one that trims
// usernames; an identity must be non-blank after trimming. The admin
// identity is recognized here but never stored in the registry.
func (s *Server) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if !s.loginLimiter.Allow(clientIP(r)) {
		http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		return
	}
	now := s.sweep()
	var req usernameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFail(w, http.StatusBadRequest, errUsernameRequired)
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		writeFail(w, http.StatusBadRequest, errUsernameRequired)
		return
	}
	if username == AdminUsername {
		s.log.Info().Str("username", username).Msg("admin login")
		writeJSON(w, http.StatusOK, loginResponse{Success: true, IsAdmin: true, Username: username})
		return
	}
	s.registry.RegisterOrTouch(username, now)
	s.metrics.IncLogin()
	s.events.Publish(Event{Type: EventLogin, Username: username, At: now.UnixMilli()})
	s.record(journalLogin, username, now)
	s.log.Debug().Str("username", username).Msg("login")
	writeJSON(w, http.StatusOK, loginResponse{Success: true, IsAdmin: false, Username: username})
}

// HandleHeartbeat refreshes lastSeen. An unknown username implicitly
// re-registers; the raw (untrimmed) username is the identity here.
func (s *Server) HandleHeartbeat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	now := s.sweep()
	var req usernameRequest
	if err := decodeJSON(r, &req); err != nil || req.Username == "" {
		writeFail(w, http.StatusBadRequest, errUsernameRequired)
		return
	}
	s.registry.Touch(req.Username, now)
	s.metrics.IncHeartbeat()
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleLogout removes the user's presence record. Clients send this as a
// best-effort beacon on shutdown, so the response is success no matter what:
// parse failures are logged and swallowed, and removing an unknown user is a
// no-op.
func (s *Server) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	now := s.sweep()
	var req usernameRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		s.log.Warn().Err(err).Msg("unparseable logout body ignored")
	}
	if req.Username != "" && s.registry.IsActive(req.Username) {
		s.registry.Remove(req.Username)
		s.events.Publish(Event{Type: EventLogout, Username: req.Username, At: now.UnixMilli()})
		s.record(journalLogout, req.Username, now)
		s.log.Debug().Str("username", req.Username).Msg("logout")
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleUsers lists all currently active users with millisecond timestamps.
func (s *Server) HandleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	s.sweep()
	records := s.registry.ListActive()
	sort.Slice(records, func(i, j int) bool {
		if records[i].LoginTime.Equal(records[j].LoginTime) {
			return records[i].Username < records[j].Username
		}
		return records[i].LoginTime.Before(records[j].LoginTime)
	})
	users := make([]userDTO, 0, len(records))
	for _, rec := range records {
		users = append(users, userDTO{
			Username:  rec.Username,
			LastSeen:  rec.LastSeen.UnixMilli(),
			LoginTime: rec.LoginTime.UnixMilli(),
		})
	}
	writeJSON(w, http.StatusOK, usersResponse{Success: true, Users: users, Count: len(users)})
}

// HandleNotify targets a single currently-present user.
func (s *Server) HandleNotify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	now := s.sweep()
	var req usernameRequest
	if err := decodeJSON(r, &req); err != nil || req.Username == "" {
		writeFail(w, http.StatusBadRequest, errUsernameRequired)
		return
	}
	if !s.registry.IsActive(req.Username) {
		writeFail(w, http.StatusNotFound, ErrNotPresent)
		return
	}
	s.mailbox.SetFor(req.Username, now)
	s.metrics.IncNotification()
	s.events.Publish(Event{Type: EventNotify, Username: req.Username, At: now.UnixMilli()})
	s.record(journalNotify, req.Username, now)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleNotifyAll notifies a snapshot of the present set. Users logging in
// after the snapshot do not receive this broadcast.
func (s *Server) HandleNotifyAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	now := s.sweep()
	records := s.registry.ListActive()
	usernames := make([]string, 0, len(records))
	for _, rec := range records {
		usernames = append(usernames, rec.Username)
	}
	notified := s.mailbox.Broadcast(usernames, now)
	s.metrics.AddNotifications(notified)
	s.events.Publish(Event{Type: EventBroadcast, Notified: notified, At: now.UnixMilli()})
	s.record(journalBroadcast, "*", now)
	s.log.Debug().Int("notified", notified).Msg("broadcast")
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "notified": notified})
}

// HandleCheckNotification is the client poll: an atomic take of the pending
// notification. Absence is a normal outcome, never an error.
func (s *Server) HandleCheckNotification(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	s.sweep()
	var req usernameRequest
	if err := decodeJSON(r, &req); err != nil || req.Username == "" {
		writeFail(w, http.StatusBadRequest, errUsernameRequired)
		return
	}
	n, ok := s.mailbox.TakeFor(req.Username)
	resp := checkNotificationResponse{Success: true, HasNotification: ok}
	if ok {
		resp.Notification = &n
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	s.sweep()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "activeUsers": s.registry.Count()})
}

// HandleHistory serves the most recent activity journal entries.
func (s *Server) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	s.sweep()
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeFail(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	if limit > 500 {
		limit = 500
	}
	entries, err := s.recentActivity(r, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("history query failed")
		writeFail(w, http.StatusInternalServerError, errors.New("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "events": entries, "count": len(entries)})
}

// HandleEvents upgrades to a websocket and streams presence events until the
// observer disconnects.
func (s *Server) HandleEvents(w http.ResponseWriter, r *http.Request) {
	s.sweep()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("events upgrade failed")
		return
	}
	obs := s.events.attach(conn)
	s.log.Debug().Str("observer", obs.id).Msg("observer connected")
}

// HandleNotFound is the fallthrough for every unregistered path.
func (s *Server) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
}

// MetricsHandler exposes the counters as JSON.
func (s *Server) MetricsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.sweep()
		s.metrics.ServeJSON(w, s.events.ObserverCount(), s.mailbox.PendingCount())
	})
}

// decodeJSON is tolerant of unknown fields: 400 is reserved for a missing or
// blank username, not for extra payload keys.
func decodeJSON(r *http.Request, out any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeFail(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"success": false, "error": err.Error()})
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
