package internal

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"whoson/internal/storage"
)

// journal event names. These share the wire vocabulary of EventType.
const (
	journalLogin     = "login"
	journalLogout    = "logout"
	journalExpire    = "expire"
	journalNotify    = "notify"
	journalBroadcast = "broadcast"
)

// Server owns the process-wide presence registry and notification mailbox
// and exposes the HTTP handlers. State lives for the process lifetime only;
// a restart loses everything, which callers must tolerate.
type Server struct {
	registry     *Registry
	mailbox      *Mailbox
	events       *EventHub
	metrics      *Metrics
	journal      *storage.Journal // nil when journaling is disabled
	loginLimiter *RateLimiter
	log          zerolog.Logger
	now          func() time.Time
}

func NewServer(log zerolog.Logger, journal *storage.Journal) *Server {
	return NewServerWithConfig(log, journal, 5, 10)
}

// NewServerWithConfig allows tuning the login rate limit.
func NewServerWithConfig(log zerolog.Logger, journal *storage.Journal, loginRate float64, loginBurst int) *Server {
	return &Server{
		registry:     NewRegistry(),
		mailbox:      NewMailbox(),
		events:       NewEventHub(log),
		metrics:      NewMetrics(),
		journal:      journal,
		loginLimiter: NewRateLimiter(loginRate, loginBurst),
		log:          log,
		now:          time.Now,
	}
}

// sweep runs lazy expiry and reports the current time. Every inbound
// operation calls this first so reads stay consistent with the TTL policy.
func (s *Server) sweep() time.Time {
	now := s.now()
	for _, username := range s.registry.Sweep(now) {
		s.metrics.IncExpired()
		s.events.Publish(Event{Type: EventExpire, Username: username, At: now.UnixMilli()})
		s.record(journalExpire, username, now)
		s.log.Debug().Str("username", username).Msg("presence expired")
	}
	return now
}

func (s *Server) recentActivity(r *http.Request, limit int) ([]storage.ActivityEntry, error) {
	if s.journal == nil {
		return []storage.ActivityEntry{}, nil
	}
	return s.journal.Recent(r.Context(), limit)
}

// record appends to the activity journal. Journal failures never fail the
// request that triggered them.
func (s *Server) record(event, username string, at time.Time) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Record(context.Background(), event, username, at); err != nil {
		s.log.Warn().Err(err).Str("event", event).Msg("journal write failed")
	}
}
