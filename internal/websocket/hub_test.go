package websocket

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

	"github.com/xelth-com/mprgo/internal/identity"
	"github.com/xelth-com/mprgo/internal/services/visits"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(zap.NewNop())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := identity.Caller{Username: r.URL.Query().Get("user"), Role: identity.Role(r.URL.Query().Get("role")), ManagerID: r.URL.Query().Get("manager")}
		ServeWs(hub, caller, w, r)
	}))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) visits.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev visits.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestPublishVisitScopesAgents(t *testing.T) {
	hub, srv := startHub(t)

	agent := dial(t, srv, "user=ivan&role=MPR&manager=M1")
	office := dial(t, srv, "user=olga&role=OFFICE")
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	hub.PublishVisit(visits.Event{Type: visits.EventUpdated, Visit: visits.View{UUID: "foreign", ManagerID: "M2"}})
	hub.PublishVisit(visits.Event{Type: visits.EventCreated, Visit: visits.View{UUID: "own", ManagerID: "M1"}})

	ev := readEvent(t, agent)
	assert.Equal(t, "own", ev.Visit.UUID, "agents skip visits of other managers")
	assert.Equal(t, visits.EventCreated, ev.Type)

	assert.Equal(t, "foreign", readEvent(t, office).Visit.UUID)
	assert.Equal(t, "own", readEvent(t, office).Visit.UUID)
}

func TestPingAndDisconnect(t *testing.T) {
	hub, srv := startHub(t)

	conn := dial(t, srv, "user=olga&role=OFFICE")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "PING", "msgId": "42"}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var pong map[string]string
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, "PONG", pong["type"])
	assert.Equal(t, "42", pong["msgId"])

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
