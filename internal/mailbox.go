package internal

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotPresent is returned when a notification targets a user without a
// live presence record.
var ErrNotPresent = errors.New("user is not present")

// NotificationKind enumerates the notification payloads. There is currently
// a single variant.
type NotificationKind string

const KindSound NotificationKind = "sound"

// Notification is the single pending slot for one user. Timestamps are Unix
// milliseconds.
type Notification struct {
	ID        string           `json:"id"`
	Username  string           `json:"username"`
	Kind      NotificationKind `json:"kind"`
	CreatedAt int64            `json:"createdAt"`
}

// Mailbox holds at most one pending notification per username. Setting again
// overwrites; it never queues.
type Mailbox struct {
	mu      sync.Mutex
	pending map[string]Notification
}

func NewMailbox() *Mailbox {
	return &Mailbox{pending: make(map[string]Notification)}
}

// SetFor writes or overwrites the pending notification for username. The
// call site is responsible for checking presence first.
func (mb *Mailbox) SetFor(username string, now time.Time) Notification {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	n := Notification{
		ID:        uuid.NewString(),
		Username:  username,
		Kind:      KindSound,
		CreatedAt: now.UnixMilli(),
	}
	mb.pending[username] = n
	return n
}

// Broadcast writes a notification for every username in the snapshot and
// returns how many were notified. Users who show up after the snapshot was
// taken are not included.
func (mb *Mailbox) Broadcast(usernames []string, now time.Time) int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for _, username := range usernames {
		mb.pending[username] = Notification{
			ID:        uuid.NewString(),
			Username:  username,
			Kind:      KindSound,
			CreatedAt: now.UnixMilli(),
		}
	}
	return len(usernames)
}

// TakeFor atomically reads and clears the pending notification. Absence is a
// normal outcome, reported by the second return value.
func (mb *Mailbox) TakeFor(username string) (Notification, bool) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	n, ok := mb.pending[username]
	if ok {
		delete(mb.pending, username)
	}
	return n, ok
}

// PendingCount reports how many users currently have an undelivered
// notification.
func (mb *Mailbox) PendingCount() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return len(mb.pending)
}
