package wsserve

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	qbackend "github.com/CrimsonAS/qgrid/backend"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeter struct {
	qbackend.Component
	state struct {
		Greeting string `json:"greeting"`
	}
}

func (g *greeter) State() interface{} {
	return &g.state
}

func newGreeter(c *qbackend.Connection) (qbackend.Connector, error) {
	g := &greeter{}
	g.state.Greeting = "hello"
	g.RegisterRPC("greet", func(name string) {
		g.state.Greeting = "hello " + name
		g.MarkAsDirty()
	})
	return g, nil
}

type frame struct {
	Command    string                 `json:"command"`
	Identifier string                 `json:"identifier"`
	Data       map[string]interface{} `json:"data"`
}

func readFrame(t *testing.T, ws *websocket.Conn) frame {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	messageType, message, err := ws.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, messageType)

	blob, err := qbackend.ReadMessage(bufio.NewReader(bytes.NewReader(message)))
	require.NoError(t, err)
	var f frame
	require.NoError(t, json.Unmarshal(blob, &f))
	return f
}

func TestServeRoundTrip(t *testing.T) {
	server := httptest.NewServer(NewHandler(newGreeter))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	assert.Equal(t, "VERSION", readFrame(t, ws).Command)
	attach := readFrame(t, ws)
	assert.Equal(t, "ATTACH", attach.Command)
	assert.Equal(t, "root", attach.Identifier)
	initial := readFrame(t, ws)
	assert.Equal(t, "STATE", initial.Command)
	assert.Equal(t, "hello", initial.Data["greeting"])
	assert.Equal(t, "SYNC", readFrame(t, ws).Command)

	var buf bytes.Buffer
	require.NoError(t, qbackend.WriteMessage(&buf, map[string]interface{}{
		"command":    "INVOKE",
		"identifier": "root",
		"method":     "greet",
		"parameters": []interface{}{"world"},
	}))
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, buf.Bytes()))

	update := readFrame(t, ws)
	assert.Equal(t, "STATE", update.Command)
	assert.Equal(t, map[string]interface{}{"greeting": "hello world"}, update.Data)
	assert.Equal(t, "SYNC", readFrame(t, ws).Command)
}

func TestSessionHooks(t *testing.T) {
	opened := make(chan *Session, 1)
	closed := make(chan error, 1)
	h := NewHandler(newGreeter)
	h.Hooks = &Hooks{
		Opened: func(s *Session) { opened <- s },
		Closed: func(s *Session, err error) { closed <- err },
	}
	server := httptest.NewServer(h)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	for _, command := range []string{"VERSION", "ATTACH", "STATE", "SYNC"} {
		assert.Equal(t, command, readFrame(t, ws).Command)
	}

	var s *Session
	select {
	case s = <-opened:
	case <-time.After(5 * time.Second):
		t.Fatal("session was not opened")
	}
	g := s.Root.(*greeter)
	s.Lock()
	g.state.Greeting = "pushed"
	g.MarkAsDirty()
	s.Unlock()

	update := readFrame(t, ws)
	assert.Equal(t, "STATE", update.Command)
	assert.Equal(t, "pushed", update.Data["greeting"])
	assert.Equal(t, "SYNC", readFrame(t, ws).Command)

	ws.Close()
	select {
	case err := <-closed:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("session was not closed")
	}
}
