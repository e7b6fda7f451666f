package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/tambola-live-platform/pkg/contracts/events"
)

const writeWait = 5 * time.Second

// Snapshotter devolve o estado atual do jogo enviado logo após o subscribe.
type Snapshotter interface {
	Snapshot(ctx context.Context, gameID string) (any, bool, error)
}

// client serializa as escritas: o gorilla não aceita writers concorrentes.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(v []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, v)
}

func (c *client) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.write(b)
}

// Hub gerencia as conexões e as assinaturas por jogo.
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	// gameID -> conexões
	subs map[string]map[*client]struct{}

	Snapshots Snapshotter // opcional

	OnConnect    func(delta int) // métricas (gauge)
	OnBroadcast  func()
	OnWriteError func()
}

func NewHub(log *zap.Logger, allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[string]map[*client]struct{}),
	}
}

// HandleWS cuida de uma conexão: subscribe/unsubscribe por jogo e ping.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	c := &client{conn: conn}
	if h.OnConnect != nil {
		h.OnConnect(1)
		defer h.OnConnect(-1)
	}

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			if msg.GameID == "" {
				_ = c.writeJSON(ServerMsg{Type: "error", Payload: "gameId required"})
				continue
			}
			h.subscribe(msg.GameID, c)
			h.sendSnapshot(r.Context(), msg.GameID, c)
		case "unsubscribe":
			h.unsubscribe(msg.GameID, c)
		case "ping":
			_ = c.writeJSON(ServerMsg{Type: "pong"})
		default:
			_ = c.writeJSON(ServerMsg{Type: "error", Payload: "unknown message type"})
		}
	}

	// remove a conexão de todas as assinaturas
	h.mu.Lock()
	for id, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, id)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) subscribe(gameID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[gameID]; !ok {
		h.subs[gameID] = make(map[*client]struct{})
	}
	h.subs[gameID][c] = struct{}{}
}

func (h *Hub) unsubscribe(gameID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.subs[gameID]; ok {
		delete(m, c)
		if len(m) == 0 {
			delete(h.subs, gameID)
		}
	}
}

func (h *Hub) sendSnapshot(ctx context.Context, gameID string, c *client) {
	if h.Snapshots == nil {
		return
	}
	snap, ok, err := h.Snapshots.Snapshot(ctx, gameID)
	if err != nil {
		h.log.Warn("ws snapshot failed", zap.String("game_id", gameID), zap.Error(err))
		return
	}
	if ok {
		_ = c.writeJSON(ServerMsg{Type: "snapshot", GameID: gameID, Payload: snap})
	}
}

// Subscribers conta as conexões inscritas no jogo.
func (h *Hub) Subscribers(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[gameID])
}

// Broadcast envia o update para todos os inscritos no jogo.
func (h *Hub) Broadcast(update events.LiveUpdate) {
	h.mu.RLock()
	conns := make([]*client, 0, len(h.subs[update.GameID]))
	for c := range h.subs[update.GameID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	if len(conns) == 0 {
		return
	}

	b, err := json.Marshal(update)
	if err != nil {
		h.log.Warn("ws marshal failed", zap.Error(err))
		return
	}
	for _, c := range conns {
		if err := c.write(b); err != nil && h.OnWriteError != nil {
			h.OnWriteError()
		}
	}
	if h.OnBroadcast != nil {
		h.OnBroadcast()
	}
}
