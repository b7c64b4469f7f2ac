package qbackend

import "sync"

// handoff is the sync.Locker of RunLockable. Lock takes the connection's
// goroutine out of message processing until Unlock.
type handoff struct {
	acquire chan struct{}
	release chan struct{}
	// done is closed when the connection has ended
	done chan struct{}
}

func (h *handoff) Lock() {
	select {
	case h.acquire <- struct{}{}:
	case <-h.done:
	}
}

func (h *handoff) Unlock() {
	select {
	case h.release <- struct{}{}:
	case <-h.done:
	}
}

// RunLockable runs the connection on a new goroutine, like Run, and returns
// a sync.Locker for changing components from other goroutines. No message is
// processed while the lock is held, and every Unlock ends with a sync
// boundary. After the connection ends, Lock and Unlock return immediately.
//
// The returned channel receives the error that ended the connection and is
// then closed.
func (c *Connection) RunLockable() (sync.Locker, <-chan error) {
	h := &handoff{
		acquire: make(chan struct{}),
		release: make(chan struct{}),
		done:    make(chan struct{}),
	}
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		err := c.runHandoff(h)
		close(h.done)
		errs <- err
	}()
	return h, errs
}

func (c *Connection) runHandoff(h *handoff) error {
	if err := c.ensureHandler(); err != nil {
		return err
	}
	for {
		select {
		case _, open := <-c.processSignal:
			if !open {
				return c.err
			}
			if err := c.Process(); err != nil {
				return err
			}
		case <-h.acquire:
			<-h.release
			if err := c.Flush(); err != nil {
				return err
			}
		}
	}
}
