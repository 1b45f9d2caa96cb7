package internal

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// EventType labels a presence or notification change pushed to observers.
type EventType string

const (
	EventLogin     EventType = "login"
	EventLogout    EventType = "logout"
	EventExpire    EventType = "expire"
	EventNotify    EventType = "notify"
	EventBroadcast EventType = "broadcast"
)

// Event is the JSON envelope pushed over the /events websocket. At is Unix
// milliseconds.
type Event struct {
	Type     EventType `json:"type"`
	Username string    `json:"username,omitempty"`
	Notified int       `json:"notified,omitempty"`
	At       int64     `json:"at"`
}

// observer wraps a single websocket connection and a buffered send queue.
type observer struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// EventHub fans presence events out to all connected observers.
type EventHub struct {
	register   chan *observer
	unregister chan *observer
	broadcast  chan []byte
	observers  map[*observer]bool
	mutex      sync.RWMutex
	log        zerolog.Logger
}

func NewEventHub(log zerolog.Logger) *EventHub {
	hub := &EventHub{
		register:   make(chan *observer),
		unregister: make(chan *observer),
		broadcast:  make(chan []byte, 256),
		observers:  make(map[*observer]bool),
		log:        log,
	}
	go hub.run()
	return hub
}

func (hub *EventHub) run() {
	for {
		select {
		case obs := <-hub.register:
			hub.mutex.Lock()
			hub.observers[obs] = true
			hub.mutex.Unlock()
		case obs := <-hub.unregister:
			hub.mutex.Lock()
			if _, exists := hub.observers[obs]; exists {
				delete(hub.observers, obs)
				close(obs.send)
			}
			hub.mutex.Unlock()
		case payload := <-hub.broadcast:
			// Fan out to every observer. If one can't keep up we close its
			// send channel, which triggers cleanup in writePump.
			hub.mutex.Lock()
			for obs := range hub.observers {
				select {
				case obs.send <- payload:
				default:
					close(obs.send)
					delete(hub.observers, obs)
				}
			}
			hub.mutex.Unlock()
		}
	}
}

// Publish queues an event for delivery. Drops the event when the hub is
// saturated so callers never block on slow observers.
func (hub *EventHub) Publish(evt Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		hub.log.Warn().Err(err).Msg("marshal event")
		return
	}
	select {
	case hub.broadcast <- payload:
	default:
		hub.log.Warn().Str("type", string(evt.Type)).Msg("event dropped, hub saturated")
	}
}

// ObserverCount reports how many websocket observers are connected.
func (hub *EventHub) ObserverCount() int {
	hub.mutex.RLock()
	defer hub.mutex.RUnlock()
	return len(hub.observers)
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The HTTP surface is open to any origin, so the websocket is too.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (hub *EventHub) attach(conn *websocket.Conn) *observer {
	obs := &observer{id: uuid.NewString(), conn: conn, send: make(chan []byte, 256)}
	hub.register <- obs
	go obs.writePump()
	go obs.readPump(hub)
	return obs
}

// readPump discards inbound frames; observers are receive-only. It exists to
// notice closes and keep the pong handler serviced.
func (obs *observer) readPump(hub *EventHub) {
	defer func() {
		hub.unregister <- obs
		obs.conn.Close()
	}()
	obs.conn.SetReadLimit(maxMsgSize)
	_ = obs.conn.SetReadDeadline(time.Now().Add(pongWait))
	obs.conn.SetPongHandler(func(string) error {
		return obs.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := obs.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (obs *observer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		obs.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-obs.send:
			_ = obs.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = obs.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := obs.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = obs.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := obs.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
