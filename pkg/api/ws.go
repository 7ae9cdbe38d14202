package api

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"personagrid/pkg/auth"
)

// AdminChannel is the event channel super-admin UIs subscribe on.
// Organization UIs subscribe on their organization id.
const AdminChannel = "admin"

// WSMessage is the envelope pushed to UI subscribers.
type WSMessage struct {
	Type    string      `json:"type"` // e.g. task_created
	Channel string      `json:"channel,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// WSHub fans server events out to UI websocket subscribers, keyed by channel.
type WSHub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	subs     map[string]map[*websocket.Conn]struct{}
}

func NewWSHub() *WSHub {
	return &WSHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		subs: map[string]map[*websocket.Conn]struct{}{},
	}
}

// HandleEvents upgrades a UI connection. The JWT rides in ?token= because
// browsers cannot set headers on websocket dials; admins land on the admin
// channel, organizations on their own id.
func (h *WSHub) HandleEvents(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.Parse(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	channel := claims.OrganizationID
	if claims.AdminID != "" {
		channel = AdminChannel
	}
	if channel == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	c, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed channel=%s err=%v", channel, err)
		return
	}
	h.mu.Lock()
	if h.subs[channel] == nil {
		h.subs[channel] = map[*websocket.Conn]struct{}{}
	}
	h.subs[channel][c] = struct{}{}
	h.mu.Unlock()
	log.Printf("ws subscriber connected channel=%s", channel)
	go h.readLoop(channel, c)
}

// Broadcast pushes a message to every subscriber on the channel. The
// subscriber set is snapshotted under the lock; writes happen outside it so a
// disconnecting client (closeSub deletes from the map) cannot race the
// iteration.
func (h *WSHub) Broadcast(channel string, msg WSMessage) {
	if h == nil {
		return
	}
	msg.Channel = channel
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.subs[channel]))
	for c := range h.subs[channel] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	for _, c := range conns {
		if err := c.WriteJSON(msg); err != nil {
			go h.closeSub(channel, c)
		}
	}
}

func (h *WSHub) readLoop(channel string, c *websocket.Conn) {
	defer h.closeSub(channel, c)
	for {
		if _, _, err := c.NextReader(); err != nil {
			return
		}
	}
}

func (h *WSHub) closeSub(channel string, c *websocket.Conn) {
	_ = c.Close()
	h.mu.Lock()
	if subs, ok := h.subs[channel]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.subs, channel)
		}
	}
	h.mu.Unlock()
	log.Printf("ws subscriber disconnected channel=%s", channel)
}
