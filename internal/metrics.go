package internal

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
)

type Metrics struct {
	logins        atomic.Uint64
	heartbeats    atomic.Uint64
	notifications atomic.Uint64
	expired       atomic.Uint64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) IncLogin() {
	m.logins.Add(1)
}

func (m *Metrics) IncHeartbeat() {
	m.heartbeats.Add(1)
}

func (m *Metrics) IncNotification() {
	m.notifications.Add(1)
}

func (m *Metrics) AddNotifications(n int) {
	m.notifications.Add(uint64(n))
}

func (m *Metrics) IncExpired() {
	m.expired.Add(1)
}

func (m *Metrics) ServeJSON(w http.ResponseWriter, observers, pending int) {
	payload := map[string]any{
		"logins_total":          m.logins.Load(),
		"heartbeats_total":      m.heartbeats.Load(),
		"notifications_total":   m.notifications.Load(),
		"expired_total":         m.expired.Load(),
		"event_observers":       observers,
		"pending_notifications": pending,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
