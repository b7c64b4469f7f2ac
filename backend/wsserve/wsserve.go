// wsserve serves qbackend connections to browser clients over websockets.
//
// Every websocket client gets its own qbackend.Connection and its own root
// component, created by the handler's NewRoot function:
//
//     http.Handle("/ui", wsserve.NewHandler(func(c *qbackend.Connection) (qbackend.Connector, error) {
//         return NewRoot(), nil
//     }))
//
// Each framed qbackend message travels as one websocket text message.
package wsserve

import (
	"io"
	"net/http"
	"sync"
	"time"

	qbackend "github.com/CrimsonAS/qgrid/backend"
	"github.com/golang/glog"
	"github.com/gorilla/websocket"
)

type Settings struct {
	// ReadTimeout bounds the wait for the next client message. Zero waits
	// forever.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func DefaultSettings() *Settings {
	return &Settings{
		ReadTimeout:  0,
		WriteTimeout: 15 * time.Second,
	}
}

// RootFactory creates the root component for a new client connection.
type RootFactory func(c *qbackend.Connection) (qbackend.Connector, error)

// Session is a connected client whose connection runs with RunLockable.
// Hold the lock while touching Root or its children from other goroutines.
type Session struct {
	sync.Locker
	Root       qbackend.Connector
	RemoteAddr string
}

// Hooks observe the lifetime of client sessions.
type Hooks struct {
	Opened func(s *Session)
	Closed func(s *Session, err error)
}

type Handler struct {
	Upgrader *websocket.Upgrader
	// Hooks, when set, are told about every session. Their connections are
	// run with RunLockable instead of Run.
	Hooks *Hooks

	newRoot  RootFactory
	settings *Settings
}

func NewHandler(newRoot RootFactory) *Handler {
	return NewHandlerWithSettings(newRoot, DefaultSettings())
}

func NewHandlerWithSettings(newRoot RootFactory, settings *Settings) *Handler {
	return &Handler{
		Upgrader: &websocket.Upgrader{},
		newRoot:  newRoot,
		settings: settings,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		glog.Infof("[ws]upgrade error %s = %s\n", r.RemoteAddr, err)
		return
	}

	conn := qbackend.NewConnection(NewStream(ws, h.settings))
	root, err := h.newRoot(conn)
	if err != nil {
		glog.Warningf("[ws]root error %s = %s\n", r.RemoteAddr, err)
		ws.Close()
		return
	}
	conn.Root = root

	glog.V(1).Infof("[ws]connected %s\n", r.RemoteAddr)
	if h.Hooks == nil {
		err = conn.Run()
	} else {
		err = h.runSession(conn, r.RemoteAddr)
	}
	glog.V(1).Infof("[ws]closed %s = %v\n", r.RemoteAddr, err)
}

func (h *Handler) runSession(conn *qbackend.Connection, addr string) error {
	lock, errs := conn.RunLockable()
	s := &Session{Locker: lock, Root: conn.Root, RemoteAddr: addr}
	if h.Hooks.Opened != nil {
		h.Hooks.Opened(s)
	}
	err := <-errs
	if h.Hooks.Closed != nil {
		h.Hooks.Closed(s, err)
	}
	return err
}

// Stream adapts a websocket to the byte stream expected by qbackend.
type Stream struct {
	ws       *websocket.Conn
	settings *Settings
	reader   io.Reader
}

func NewStream(ws *websocket.Conn, settings *Settings) *Stream {
	return &Stream{ws: ws, settings: settings}
}

func (s *Stream) Read(p []byte) (int, error) {
	for {
		if s.reader == nil {
			if 0 < s.settings.ReadTimeout {
				s.ws.SetReadDeadline(time.Now().Add(s.settings.ReadTimeout))
			}
			messageType, reader, err := s.ws.NextReader()
			if err != nil {
				return 0, err
			}
			if messageType != websocket.TextMessage {
				glog.V(2).Infof("[ws]other=%d\n", messageType)
				continue
			}
			s.reader = reader
		}

		n, err := s.reader.Read(p)
		if err == io.EOF {
			s.reader = nil
			if n == 0 {
				continue
			}
			err = nil
		}
		return n, err
	}
}

func (s *Stream) Write(p []byte) (int, error) {
	if 0 < s.settings.WriteTimeout {
		s.ws.SetWriteDeadline(time.Now().Add(s.settings.WriteTimeout))
	}
	if err := s.ws.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *Stream) Close() error {
	return s.ws.Close()
}
