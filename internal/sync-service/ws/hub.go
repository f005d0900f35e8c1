package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/fade-sync-platform/pkg/contracts/events"
)

const writeWait = 5 * time.Second

// client serializa as escritas de uma conexão (gorilla aceita um escritor por vez)
type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// Hub mantém as conexões e quem acompanha cada perfil
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	subs     map[string]map[*client]struct{} // userID -> clientes
}

// NewHub cria o hub com a política de origem informada
func NewHub(log *zap.Logger, allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[string]map[*client]struct{}),
	}
}

// HandleWS atende um cliente até a desconexão
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{id: uuid.NewString(), conn: conn}
	log := h.log.With(zap.String("client_id", c.id))
	log.Debug("ws connected")
	defer func() {
		h.drop(c)
		_ = conn.Close()
		log.Debug("ws disconnected")
	}()

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "subscribe":
			if msg.UserID == "" {
				_ = c.write(ServerMsg{Type: "error", Payload: "userId required"})
				continue
			}
			h.mu.Lock()
			if _, ok := h.subs[msg.UserID]; !ok {
				h.subs[msg.UserID] = make(map[*client]struct{})
			}
			h.subs[msg.UserID][c] = struct{}{}
			h.mu.Unlock()
		case "unsubscribe":
			h.mu.Lock()
			h.remove(msg.UserID, c)
			h.mu.Unlock()
		case "ping":
			_ = c.write(ServerMsg{Type: "pong"})
		}
	}
}

// Broadcast envia a atualização a quem acompanha o perfil
func (h *Hub) Broadcast(update events.FadeUpdate) int {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.subs[update.UserID]))
	for c := range h.subs[update.UserID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	msg := ServerMsg{Type: "fade_update", UserID: update.UserID, Payload: update}
	sent := 0
	for _, c := range targets {
		if err := c.write(msg); err != nil {
			h.log.Debug("ws write failed", zap.String("client_id", c.id), zap.Error(err))
			continue
		}
		sent++
	}
	return sent
}

// Subscribers conta os clientes de um perfil
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID := range h.subs {
		h.remove(userID, c)
	}
}

// remove exige h.mu travado
func (h *Hub) remove(userID string, c *client) {
	if set, ok := h.subs[userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, userID)
		}
	}
}
