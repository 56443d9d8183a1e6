package ws_test

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

	"github.com/obsidianstack/wgmonitor/monitor/internal/status"
	"github.com/obsidianstack/wgmonitor/monitor/internal/ws"
	"github.com/obsidianstack/wgmonitor/pkg/types"
)

// --- helpers ----------------------------------------------------------------

func report(events ...types.Event) types.TickReport {
	return types.TickReport{
		Interface: "wg0",
		At:        time.Now().UTC(),
		Success:   true,
		Verdict: &types.VerdictSet{
			InterfaceUp: true,
			Peers:       []types.PeerVerdict{{Name: "laptop", Connected: true}},
		},
		Events: events,
	}
}

// startHub serves hub over httptest and runs its broadcast loop.
func startHub(t *testing.T, st *status.Store, interval time.Duration) (string, *ws.Hub, context.CancelFunc) {
	t.Helper()
	hub := ws.New(st, nil, interval)
	ctx, cancel := context.WithCancel(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http"), hub, cancel
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) ws.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var m ws.Message
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

// --- tests ------------------------------------------------------------------

func TestHub_ConnectReceivesStatus(t *testing.T) {
	st := status.New("wg0", 0)
	st.Observe(report())
	wsURL, _, _ := startHub(t, st, time.Hour)

	m := readMessage(t, dial(t, wsURL))
	assert.Equal(t, ws.EventStatus, m.Event)
	assert.Equal(t, "wg0", m.Data.Interface)
	require.Len(t, m.Data.Peers, 1)
	assert.Equal(t, "laptop", m.Data.Peers[0].Name)
}

func TestHub_PeriodicBroadcast(t *testing.T) {
	wsURL, _, _ := startHub(t, status.New("wg0", 0), 20*time.Millisecond)
	conn := dial(t, wsURL)
	readMessage(t, conn)

	m := readMessage(t, conn)
	assert.Equal(t, ws.EventStatus, m.Event)
}

func TestHub_TransitionPushedImmediately(t *testing.T) {
	st := status.New("wg0", 0)
	wsURL, hub, _ := startHub(t, st, time.Hour)
	conn := dial(t, wsURL)
	readMessage(t, conn)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	r := report(types.PeerReconnected("laptop"))
	st.Observe(r)
	hub.Observe(r)

	m := readMessage(t, conn)
	assert.Equal(t, ws.EventTransition, m.Event)
	assert.Equal(t, []types.Event{types.PeerReconnected("laptop")}, m.Events)
	assert.Equal(t, 1, m.Data.ConnectedCount)
}

func TestHub_ObserveWithoutEventsIsSilent(t *testing.T) {
	wsURL, hub, _ := startHub(t, status.New("wg0", 0), time.Hour)
	conn := dial(t, wsURL)
	readMessage(t, conn)

	hub.Observe(report())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(50*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "no message expected")
}

func TestHub_CountDecreasesOnDisconnect(t *testing.T) {
	wsURL, hub, _ := startHub(t, status.New("wg0", 0), time.Hour)
	conn := dial(t, wsURL)
	readMessage(t, conn)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Count() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	wsURL, hub, cancel := startHub(t, status.New("wg0", 0), time.Hour)
	conn := dial(t, wsURL)
	readMessage(t, conn)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	cancel()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "connection is closed on shutdown")
	assert.Equal(t, 0, hub.Count())
}

func TestHub_ConnectAfterShutdownIsRejected(t *testing.T) {
	wsURL, hub, cancel := startHub(t, status.New("wg0", 0), time.Hour)
	first := dial(t, wsURL)
	readMessage(t, first)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool { return hub.Count() == 0 }, time.Second, 5*time.Millisecond)

	// Concurrent late connects must neither panic nor stay registered.
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		go func() {
			conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
			if err != nil {
				errs <- err
				return
			}
			defer conn.Close()
			conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	for i := 0; i < 5; i++ {
		select {
		case err := <-errs:
			assert.Error(t, err)
		case <-time.After(3 * time.Second):
			t.Fatal("late client was not closed")
		}
	}
	assert.Equal(t, 0, hub.Count())
}
