// qbackend runs server-side UI components and keeps a browser client in sync with them.
//
// Components live in the Go process. Each one owns a state record, a plain struct with json tags,
// and the client renders whatever that state says. The client never sees Go values directly; it
// receives the state, diffed against what it already has, and calls back into the component
// through a fixed set of named RPC methods.
//
// Components
//
// A component is any struct embedding Component and implementing State():
//
//  type Counter struct {
//      qbackend.Component
//      state struct {
//          Value int `json:"value"`
//      }
//  }
//
//  func (c *Counter) State() interface{} { return &c.state }
//
//  func NewCounter() *Counter {
//      c := &Counter{}
//      c.RegisterRPC("increment", func() {
//          c.state.Value++
//          c.MarkAsDirty()
//      })
//      return c
//  }
//
// After changing state, a component calls MarkAsDirty. Marking is cheap and repeated marks before
// the next sync collapse into one update. Components can also queue calls to the client with Call;
// those are delivered after the state updates of the same cycle.
//
// Synchronization
//
// Each round of processing ends at a sync boundary (Connection.Flush). There, every attached
// component that implements BeforeClientResponder gets a last chance to adjust its state, every
// dirty component's state is encoded and diffed against the last state sent for it, and only the
// changed fields are transmitted. A component sent for the first time receives its full state.
//
// Connection
//
// Connection handles communication with the client and owns the registry of attached components.
// It's created from a stream; the backend/wsserve package creates one per websocket client.
//
// The Root component must be assigned before the connection starts. Other components are attached
// explicitly with Attach, or implicitly as children of attached components.
//
// Messages are framed as "<length> <json>\n" in both directions. The connection reads on an
// internal goroutine, but application data is only touched during calls to Run, Process, or other
// qbackend methods. RunLockable provides a sync.Locker for changing components from other
// goroutines; unlocking it runs a sync boundary so those changes reach the client.
package qbackend
