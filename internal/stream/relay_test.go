package stream

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flanker-wargame/client/internal/channel"
	"github.com/flanker-wargame/client/internal/editor"
	"github.com/flanker-wargame/client/internal/player"
	"github.com/flanker-wargame/client/internal/session"
	"github.com/flanker-wargame/client/pkg/core"
	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// testServer upgrades to WebSocket, records received envelopes and acks
// hello. With dropFirst set, the first connection is closed right after
// its hello is acked.
func testServer(t *testing.T, dropFirst bool) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}
	var conns atomic.Int32

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()
		ml.setHeader(r.Header)
		n := conns.Add(1)

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			if env.Type == TypeHello {
				data, _ := json.Marshal(AckMessage{Type: "ack", For: env.Type})
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
				if dropFirst && n == 1 {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)

	return srv, ml
}

type messageLog struct {
	mu       sync.Mutex
	messages []Envelope
	header   http.Header
}

func (m *messageLog) add(env Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) setHeader(h http.Header) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.header = h.Clone()
}

func (m *messageLog) all() []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func (m *messageLog) count(msgType string) int {
	n := 0
	for _, env := range m.all() {
		if env.Type == msgType {
			n++
		}
	}
	return n
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

var route = session.Route{SceneName: "bocage", GameID: 4}

func TestStart_SendsHello(t *testing.T) {
	srv, ml := testServer(t, false)

	r := New(Config{URL: wsURL(srv), APIKey: "k"}, discard)
	require.NoError(t, r.Start(route))
	defer r.Close()

	msgs := ml.all()
	require.NotEmpty(t, msgs)
	assert.Equal(t, TypeHello, msgs[0].Type)

	var hello HelloPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &hello))
	assert.Equal(t, r.ClientID(), hello.ClientID)
	assert.Equal(t, "bocage", hello.SceneName)
	assert.Equal(t, 4, hello.GameID)

	ml.mu.Lock()
	assert.Equal(t, "Bearer k", ml.header.Get("Authorization"))
	assert.Equal(t, r.ClientID(), ml.header.Get("X-Client-ID"))
	ml.mu.Unlock()
}

func TestStart_Unreachable(t *testing.T) {
	r := New(Config{URL: "ws://localhost:59999/stream"}, discard) // unlikely to be listening
	assert.Error(t, r.Start(route))
}

func TestSendMessages(t *testing.T) {
	srv, ml := testServer(t, false)

	r := New(Config{URL: wsURL(srv)}, discard)
	require.NoError(t, r.Start(route))

	unit := core.Squad{UnitID: 1, Status: core.StatusActive, IsFriendly: true}
	require.NoError(t, r.SendPlayerView(NewPlayerViewPayload(player.View{
		State: player.MoveMarked{Unit: unit, Marker: core.Vec2{X: 3, Y: 4}},
		Units: core.NewUnitsViewState(),
	})))
	require.NoError(t, r.SendEditorView(NewEditorViewPayload(editor.View{State: editor.Default{}})))
	require.NoError(t, r.SendActionLogs(nil))

	require.Eventually(t, func() bool {
		return ml.count(TypeActionLogs) == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, r.Close())

	assert.Equal(t, 1, ml.count(TypePlayerView))
	assert.Equal(t, 1, ml.count(TypeEditorView))

	for _, env := range ml.all() {
		if env.Type == TypeActionLogs {
			assert.JSONEq(t, `[]`, string(env.Payload))
		}
		if env.Type == TypePlayerView {
			var p PlayerViewPayload
			require.NoError(t, json.Unmarshal(env.Payload, &p))
			assert.Equal(t, "move_marked", p.State)
			require.NotNil(t, p.MoveMarker)
			assert.Equal(t, core.Vec2{X: 3, Y: 4}, *p.MoveMarker)
		}
	}
}

func TestClose_FlushesQueueThenSaysGoodbye(t *testing.T) {
	srv, ml := testServer(t, false)

	r := New(Config{URL: wsURL(srv)}, discard)
	require.NoError(t, r.Start(route))

	for range 5 {
		require.NoError(t, r.SendEditorView(NewEditorViewPayload(editor.View{State: editor.Default{}})))
	}
	require.NoError(t, r.Close())

	require.Eventually(t, func() bool {
		return ml.count(TypeGoodbye) == 1
	}, time.Second, 10*time.Millisecond)

	msgs := ml.all()
	assert.Equal(t, 5, ml.count(TypeEditorView))
	assert.Equal(t, TypeGoodbye, msgs[len(msgs)-1].Type)
}

func TestClose_Twice(t *testing.T) {
	srv, ml := testServer(t, false)

	r := New(Config{URL: wsURL(srv)}, discard)
	require.NoError(t, r.Start(route))
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	require.Eventually(t, func() bool {
		return ml.count(TypeGoodbye) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestReconnect_ReplaysHello(t *testing.T) {
	srv, ml := testServer(t, true)

	r := New(Config{URL: wsURL(srv)}, discard)
	r.conn.firstBackoff = 10 * time.Millisecond
	require.NoError(t, r.Start(route))
	defer r.Close()

	require.Eventually(t, func() bool {
		return ml.count(TypeHello) >= 2
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		_ = r.SendEditorView(NewEditorViewPayload(editor.View{State: editor.Default{}}))
		return ml.count(TypeEditorView) >= 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestForward(t *testing.T) {
	srv, ml := testServer(t, false)

	r := New(Config{URL: wsURL(srv)}, discard)
	require.NoError(t, r.Start(route))
	defer r.Close()

	b := channel.NewBroadcaster[editor.View]()
	recv, cancel := b.Subscribe(4)

	done := make(chan struct{})
	go func() {
		Forward(context.Background(), recv, func(v editor.View) error {
			return r.SendEditorView(NewEditorViewPayload(v))
		}, discard)
		close(done)
	}()

	b.Publish(editor.View{State: editor.Draw{Polygon: []core.Vec2{{X: 1, Y: 1}}}})
	require.Eventually(t, func() bool {
		return ml.count(TypeEditorView) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Forward did not stop when the subscription closed")
	}
}

func TestNewPlayerViewPayload(t *testing.T) {
	friendly := core.Squad{UnitID: 1, IsFriendly: true}
	enemy := core.Squad{UnitID: 2}

	p := NewPlayerViewPayload(player.View{State: player.AttackMarked{Unit: friendly, Target: enemy}, FireValid: true})
	assert.Equal(t, "attack_marked", p.State)
	require.NotNil(t, p.SelectedUnit)
	assert.Equal(t, 1, *p.SelectedUnit)
	require.NotNil(t, p.Target)
	assert.Equal(t, 2, *p.Target)
	assert.Nil(t, p.MoveMarker)
	assert.True(t, p.FireValid)

	p = NewPlayerViewPayload(player.View{State: player.Default{}})
	assert.Nil(t, p.SelectedUnit)
}

func TestNewEditorViewPayload(t *testing.T) {
	w := core.Waypoints{Faction: core.FactionBlue, Points: []core.Vec2{{X: 1, Y: 2}}}
	p := NewEditorViewPayload(editor.View{State: editor.DrawWaypoints{Waypoints: w}, Pending: 2})

	assert.Equal(t, "draw_waypoints", p.State)
	require.NotNil(t, p.Waypoints)
	assert.Equal(t, w, *p.Waypoints)
	assert.Nil(t, p.Selected)
	assert.Equal(t, 2, p.Pending)
}
