package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/tambola-live-platform/pkg/contracts/events"
)

type staticSnapshots map[string]any

func (s staticSnapshots) Snapshot(_ context.Context, gameID string) (any, bool, error) {
	v, ok := s[gameID]
	return v, ok, nil
}

func dial(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWS))
	t.Cleanup(srv.Close)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var m map[string]any
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

// ping/pong garante que as mensagens anteriores já foram processadas
func roundTrip(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "ping"}))
	assert.Equal(t, "pong", read(t, conn)["type"])
}

func TestHub_SubscribeAndBroadcast(t *testing.T) {
	h := NewHub(zap.NewNop(), func(*http.Request) bool { return true })
	conn := dial(t, h)

	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "subscribe", GameID: "g1"}))
	roundTrip(t, conn)
	assert.Equal(t, 1, h.Subscribers("g1"))

	h.Broadcast(events.LiveUpdate{GameID: "g2", Type: events.LiveNumberCalled, Payload: 9})
	h.Broadcast(events.LiveUpdate{GameID: "g1", Type: events.LiveNumberCalled, Payload: map[string]int{"number": 42}})

	m := read(t, conn)
	assert.Equal(t, "g1", m["gameId"])
	assert.Equal(t, "number_called", m["type"])
	assert.Equal(t, float64(42), m["payload"].(map[string]any)["number"])

	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "unsubscribe", GameID: "g1"}))
	roundTrip(t, conn)
	assert.Equal(t, 0, h.Subscribers("g1"))
}

func TestHub_SendsSnapshotOnSubscribe(t *testing.T) {
	h := NewHub(zap.NewNop(), func(*http.Request) bool { return true })
	h.Snapshots = staticSnapshots{"g1": map[string]any{"numbers_called": []int{5, 7}}}
	conn := dial(t, h)

	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "subscribe", GameID: "g1"}))
	m := read(t, conn)
	assert.Equal(t, "snapshot", m["type"])
	assert.Equal(t, "g1", m["gameId"])

	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "subscribe"}))
	assert.Equal(t, "error", read(t, conn)["type"])
}

func TestDecode_KeepsRawPayload(t *testing.T) {
	b, err := json.Marshal(events.LiveUpdate{GameID: "g1", Type: events.LiveWinner, Payload: map[string]string{"prize_type": "top_line"}})
	require.NoError(t, err)

	upd, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, "g1", upd.GameID)
	assert.Equal(t, events.LiveWinner, upd.Type)

	out, err := json.Marshal(upd)
	require.NoError(t, err)
	assert.JSONEq(t, string(b), string(out))

	_, err = Decode([]byte("nope"))
	assert.Error(t, err)
}
