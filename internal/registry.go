package internal

import (
	"sync"
	"time"
)

// PresenceTTL is the sliding inactivity window. A user whose last heartbeat
// is strictly older than this is considered offline.
const PresenceTTL = 10 * time.Second

// AdminUsername is a privilege flag resolved at login time. It is matched by
// exact string equality and is never written into the registry.
const AdminUsername = "admin"

// PresenceRecord tracks one active user.
type PresenceRecord struct {
	Username  string
	LoginTime time.Time
	LastSeen  time.Time
}

// Registry keeps presence records keyed by username. All state is in-memory
// and scoped to the process lifetime; expiry is lazy via Sweep, there is no
// background timer.
type Registry struct {
	mu    sync.Mutex
	users map[string]PresenceRecord
}

func NewRegistry() *Registry {
	return &Registry{users: make(map[string]PresenceRecord)}
}

// Sweep removes every record whose last activity is strictly older than
// PresenceTTL. A record aged exactly the TTL survives. It returns the
// usernames that expired so callers can journal and publish them. Safe to
// call redundantly.
func (reg *Registry) Sweep(now time.Time) []string {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	var expired []string
	for username, rec := range reg.users {
		if now.Sub(rec.LastSeen) > PresenceTTL {
			delete(reg.users, username)
			expired = append(expired, username)
		}
	}
	return expired
}

// RegisterOrTouch creates a record for an unknown username or refreshes
// lastSeen for a known one, keeping the original loginTime. It never fails.
func (reg *Registry) RegisterOrTouch(username string, now time.Time) PresenceRecord {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	rec, ok := reg.users[username]
	if !ok {
		rec = PresenceRecord{Username: username, LoginTime: now}
	}
	rec.LastSeen = now
	reg.users[username] = rec
	return rec
}

// Touch is the heartbeat path. A heartbeat for an unknown user implicitly
// re-registers them instead of failing.
func (reg *Registry) Touch(username string, now time.Time) PresenceRecord {
	return reg.RegisterOrTouch(username, now)
}

// Remove deletes the record if present; removing an absent user is a no-op.
func (reg *Registry) Remove(username string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.users, username)
}

// ListActive returns a snapshot of all current records.
func (reg *Registry) ListActive() []PresenceRecord {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	records := make([]PresenceRecord, 0, len(reg.users))
	for _, rec := range reg.users {
		records = append(records, rec)
	}
	return records
}

func (reg *Registry) IsActive(username string) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	_, ok := reg.users[username]
	return ok
}

func (reg *Registry) Count() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.users)
}
