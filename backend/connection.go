package qbackend

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/CrimsonAS/qgrid/state"
	"github.com/golang/glog"
	"github.com/oklog/ulid/v2"
	uuid "github.com/satori/go.uuid"
)

const protocolVersion = 3

// ErrDuplicateComponent is returned when attaching a component that is already
// attached to a different connection.
var ErrDuplicateComponent = errors.New("component is attached to another connection")

type Connection struct {
	// Root is the component that is always available to the client under
	// the identifier "root". It must be set before the connection starts
	// and is never detached.
	Root Connector

	in          io.ReadCloser
	out         io.WriteCloser
	components  map[string]Connector
	attachOrder []string
	tracker     *state.Tracker
	outbox      []interface{}
	calls       []callMessage
	err         error

	started       bool
	processSignal chan struct{}
	queue         chan []byte
}

// NewConnection creates a new connection from an open stream. To use the
// connection, a Root must be assigned and Run() or Process() must be
// called to start processing data.
func NewConnection(data io.ReadWriteCloser) *Connection {
	return NewConnectionSplit(data, data)
}

// NewConnectionSplit is equivalent to NewConnection, except that it uses
// separate streams for reading and writing.
func NewConnectionSplit(in io.ReadCloser, out io.WriteCloser) *Connection {
	return &Connection{
		in:            in,
		out:           out,
		components:    make(map[string]Connector),
		tracker:       state.NewTracker(),
		processSignal: make(chan struct{}, 2),
		queue:         make(chan []byte, 128),
	}
}

type messageBase struct {
	Command string `json:"command"`
}

type callMessage struct {
	messageBase
	Identifier string        `json:"identifier"`
	Method     string        `json:"method"`
	Parameters []interface{} `json:"parameters"`
}

type inboundMessage struct {
	Command    string        `json:"command"`
	Identifier string        `json:"identifier"`
	Method     string        `json:"method"`
	Parameters []interface{} `json:"parameters"`
}

func (c *Connection) fatal(fmsg string, p ...interface{}) {
	msg := fmt.Sprintf(fmsg, p...)
	glog.Errorf("qbackend: FATAL: %s", msg)
	if c.err == nil {
		c.err = errors.New(msg)
		c.in.Close()
		c.out.Close()
	}
}

func (c *Connection) warn(fmsg string, p ...interface{}) {
	glog.Warningf("qbackend: WARNING: "+fmsg, p...)
}

func (c *Connection) sendMessage(msg interface{}) {
	if c.err != nil {
		return
	}
	if err := WriteMessage(c.out, msg); err != nil {
		c.fatal("write failed: %s", err)
	}
}

// WriteMessage encodes msg as JSON and writes it with the "<length> <json>\n"
// framing.
func WriteMessage(w io.Writer, msg interface{}) error {
	buf, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("message encoding failed: %w", err)
	}
	if glog.V(2) {
		glog.Infof("qbackend: send %s", buf)
	}
	_, err = fmt.Fprintf(w, "%d %s\n", len(buf), buf)
	return err
}

// ReadMessage reads one framed message and returns its JSON payload.
func ReadMessage(rd *bufio.Reader) ([]byte, error) {
	sizeStr, err := rd.ReadString(' ')
	if err != nil {
		return nil, err
	} else if len(sizeStr) < 2 {
		return nil, errors.New("invalid message: invalid size")
	}

	byteCnt, _ := strconv.ParseInt(sizeStr[:len(sizeStr)-1], 10, 32)
	if byteCnt < 1 {
		return nil, errors.New("invalid message: size too short")
	}

	blob := make([]byte, byteCnt)
	if _, err := io.ReadFull(rd, blob); err != nil {
		return nil, err
	}

	if nl, err := rd.ReadByte(); err != nil {
		return nil, err
	} else if nl != '\n' {
		return nil, fmt.Errorf("invalid message: expected terminating newline, read %c", nl)
	}
	return blob, nil
}

// handle() runs in an internal goroutine to read from 'in'. Messages are
// posted to the queue and processSignal is triggered.
func (c *Connection) handle() {
	defer close(c.processSignal)
	defer close(c.queue)

	rd := bufio.NewReader(c.in)
	for c.err == nil {
		blob, err := ReadMessage(rd)
		if err != nil {
			c.fatal("read error: %s", err)
			return
		}

		c.queue <- blob
		c.processSignal <- struct{}{}
	}
}

func (c *Connection) ensureHandler() error {
	if c.started {
		return c.err
	}
	c.started = true

	if c.Root == nil {
		c.fatal("connection must have a root component")
		return c.err
	}

	c.sendMessage(struct {
		messageBase
		Version int `json:"version"`
	}{messageBase{"VERSION"}, protocolVersion})

	if err := c.attach(c.Root, "root"); err != nil {
		c.fatal("root component attach failed: %s", err)
		return c.err
	}
	if err := c.Flush(); err != nil {
		return err
	}

	go c.handle()
	return nil
}

func (c *Connection) Started() bool {
	return c.started
}

// Run processes messages until the connection is closed. Be aware that when using Run,
// components could be accessed by the connection at any time. For better control over
// concurrency, see Process and RunLockable.
//
// Run is equivalent to a loop of Process and ProcessSignal.
func (c *Connection) Run() error {
	if err := c.ensureHandler(); err != nil {
		return err
	}
	for {
		if _, open := <-c.processSignal; !open {
			return c.err
		}
		if err := c.Process(); err != nil {
			return err
		}
	}
}

// Process handles any pending messages on the connection, but does not block to wait
// for new messages. ProcessSignal signals when there are messages to process. Once
// the pending messages are handled, Process ends with a sync boundary.
//
// Components are never accessed except during calls to Process() or other qbackend
// methods. By controlling calls to Process, applications can avoid concurrency issues
// with component data.
//
// Process returns nil when no messages are pending. All errors are fatal for the
// connection.
func (c *Connection) Process() error {
	if err := c.ensureHandler(); err != nil {
		return err
	}

	for {
		var data []byte
		select {
		case data = <-c.queue:
		default:
			if c.err != nil {
				return c.err
			}
			return c.Flush()
		}
		if data == nil {
			// queue is closed, which only happens after fatal
			return c.err
		}
		c.processMessage(data)
	}
}

func (c *Connection) processMessage(data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.fatal("process invalid message: %s", err)
		return
	}
	if glog.V(2) {
		glog.Infof("qbackend: received %s", data)
	}

	comp, exists := c.components[msg.Identifier]

	switch msg.Command {
	case "INVOKE":
		if !exists {
			c.warn("invoke of %s on unknown component %s", msg.Method, msg.Identifier)
			c.sendError(msg.Identifier, msg.Method, "unknown component")
			break
		}
		if err := comp.base().Invoke(msg.Method, msg.Parameters...); err != nil {
			c.warn("invoke of %s on %s failed: %s", msg.Method, msg.Identifier, err)
			c.sendError(msg.Identifier, msg.Method, err.Error())
		}

	case "STATE_QUERY":
		if exists {
			c.tracker.Reset(msg.Identifier)
		} else {
			c.warn("state query of unknown component %s", msg.Identifier)
		}

	default:
		c.fatal("unknown command %s", msg.Command)
	}
}

func (c *Connection) sendError(identifier, method, message string) {
	c.outbox = append(c.outbox, struct {
		messageBase
		Identifier string `json:"identifier"`
		Method     string `json:"method"`
		Message    string `json:"message"`
	}{messageBase{"ERROR"}, identifier, method, message})
}

func (c *Connection) ProcessSignal() <-chan struct{} {
	c.ensureHandler()
	return c.processSignal
}

// Component returns an attached component by its identifier.
func (c *Connection) Component(id string) Connector {
	return c.components[id]
}

// Attach registers a component and its children with the connection and
// assigns it an identifier. The client receives the component and its full
// state at the next sync boundary. Attaching an attached component does
// nothing.
func (c *Connection) Attach(comp Connector) error {
	u, _ := uuid.NewV4()
	return c.attach(comp, u.String())
}

func (c *Connection) attach(comp Connector, id string) error {
	impl := comp.base()
	if impl.conn == c {
		return nil
	} else if impl.conn != nil {
		return ErrDuplicateComponent
	} else if _, exists := c.components[id]; exists {
		return fmt.Errorf("duplicate component identifier %s", id)
	}

	impl.id = id
	impl.conn = c
	impl.owner = comp
	c.components[id] = comp
	c.attachOrder = append(c.attachOrder, id)
	c.tracker.Reset(id)

	c.outbox = append(c.outbox, struct {
		messageBase
		Identifier string    `json:"identifier"`
		Type       *typeInfo `json:"type"`
	}{messageBase{"ATTACH"}, id, componentTypeInfo(comp)})

	if !impl.initialized {
		impl.initialized = true
		if hi, ok := comp.(HasInit); ok {
			hi.InitComponent()
		}
	}

	return c.attachChildren(comp)
}

func (c *Connection) attachChildren(comp Connector) error {
	hc, ok := comp.(HasChildren)
	if !ok {
		return nil
	}
	for _, child := range hc.Children() {
		if child == nil || child.base().conn == c {
			continue
		}
		if err := c.Attach(child); err != nil {
			return err
		}
	}
	return nil
}

// Detach removes a component and its children from the connection. Pending
// calls for it are dropped and its identifier is cleared.
func (c *Connection) Detach(comp Connector) {
	impl := comp.base()
	if impl.conn != c {
		return
	}
	if comp == c.Root {
		c.warn("root component cannot be detached")
		return
	}
	if hc, ok := comp.(HasChildren); ok {
		for _, child := range hc.Children() {
			if child != nil {
				c.Detach(child)
			}
		}
	}

	id := impl.id
	delete(c.components, id)
	for i, aid := range c.attachOrder {
		if aid == id {
			c.attachOrder = append(c.attachOrder[:i], c.attachOrder[i+1:]...)
			break
		}
	}
	c.tracker.Forget(id)
	c.outbox = append(c.outbox, struct {
		messageBase
		Identifier string `json:"identifier"`
	}{messageBase{"DETACH"}, id})

	impl.conn = nil
	impl.owner = nil
	impl.id = ""
}

func (c *Connection) queueCall(id, method string, args []interface{}) {
	c.calls = append(c.calls, callMessage{messageBase{"CALL"}, id, method, args})
}

// Flush runs a sync boundary. New children are attached and components get
// their BeforeClientResponse. Then attach and detach notices, state diffs of
// dirty components and queued calls are written, followed by a SYNC message
// closing the cycle.
// Nothing is written when nothing changed.
func (c *Connection) Flush() error {
	if c.err != nil {
		return c.err
	}

	for _, id := range append([]string(nil), c.attachOrder...) {
		comp, exists := c.components[id]
		if !exists {
			continue
		}
		// Children get identifiers before their parent's last look at its state
		if err := c.attachChildren(comp); err != nil {
			c.warn("attaching children of %s failed: %s", id, err)
		}
		if bcr, ok := comp.(BeforeClientResponder); ok {
			_, sent := c.tracker.Snapshot(id)
			bcr.BeforeClientResponse(!sent)
		}
	}

	written := len(c.outbox) > 0
	for _, msg := range c.outbox {
		c.sendMessage(msg)
	}
	c.outbox = nil

	for _, id := range c.tracker.Dirty() {
		comp, exists := c.components[id]
		if !exists {
			c.tracker.Forget(id)
			continue
		}
		diff, err := c.tracker.Diff(id, comp.State())
		if err != nil {
			c.fatal("state encoding of %s failed: %s", id, err)
			return c.err
		}
		if len(diff) == 0 {
			continue
		}
		c.sendMessage(struct {
			messageBase
			Identifier string                 `json:"identifier"`
			Data       map[string]interface{} `json:"data"`
		}{messageBase{"STATE"}, id, diff})
		written = true
	}

	calls := c.calls
	c.calls = nil
	for _, call := range calls {
		if _, exists := c.components[call.Identifier]; !exists {
			glog.V(2).Infof("qbackend: dropping call %s on detached component %s", call.Method, call.Identifier)
			continue
		}
		c.sendMessage(call)
		written = true
	}

	if written {
		c.sendMessage(struct {
			messageBase
			SyncID string `json:"syncId"`
		}{messageBase{"SYNC"}, ulid.Make().String()})
	}
	return c.err
}
