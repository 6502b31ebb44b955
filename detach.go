package mvfst

import (
	"time"

	"github.com/Harvey-Liu/mvfst/internal/protocol"
)

// IsDetachable reports whether this connection supports the detach/attach
// protocol: only a client connection may migrate between event bases,
// since a server connection's lifetime is bound to the listener that
// accepted it.
func (c *Connection) IsDetachable() bool { return c.detachable }

// DetachEventBase disconnects the connection from its current event loop.
// Every timer is cancelled, the read/peek/write loopers stop scheduling
// further turns and lose their EventLoop binding, and pending
// connection/stream write-ready callbacks are dropped uncalled -- the
// writable budget they were promised may already be stale by the time a
// new event base picks the connection back up, so the application must
// re-register them after AttachEventBase. The socket binding is left
// untouched; only the event-loop side of the connection moves.
func (c *Connection) DetachEventBase() error {
	if !c.detachable {
		return newLocalError(InvalidOperation)
	}
	if !c.attached {
		return newLocalError(InvalidOperation)
	}
	c.timers.CancelAll()
	c.readLooper.Stop()
	c.peekLooper.Stop()
	c.writeLooper.Stop()
	c.readLooper.SetEventLoop(nil)
	c.peekLooper.SetEventLoop(nil)
	c.writeLooper.SetEventLoop(nil)
	c.callbacks.connWriteCallback = nil
	c.callbacks.streamWriteCallbacks = make(map[protocol.StreamID]WriteCallback)
	c.eventLoop = nil
	c.attached = false
	return nil
}

// AttachEventBase rebinds a detached connection to evb, resumes scheduling
// the read/peek/write loopers against it, and rearms the idle, keepalive,
// ack (if one was pending), and path-validation (if one was outstanding)
// timers -- the same timers DetachEventBase cancelled.
func (c *Connection) AttachEventBase(evb EventLoop) error {
	if !c.detachable {
		return newLocalError(InvalidOperation)
	}
	if c.attached {
		return newLocalError(InvalidOperation)
	}
	c.eventLoop = evb
	c.readLooper.SetEventLoop(evb)
	c.peekLooper.SetEventLoop(evb)
	c.writeLooper.SetEventLoop(evb)
	c.writeLooper.SetPacingFn(c.writePacingDelay, func(d time.Duration, fn func()) (cancel func()) {
		return evb.RunAfter(d, fn)
	})
	c.attached = true

	c.rearmIdleTimer()
	c.rearmKeepaliveTimer()
	if c.pendingEvents.ScheduleAckTimeout {
		c.rearmAckTimer()
	}
	if c.outstandingPathValidation {
		c.rearmPathValidationTimer()
	}
	return nil
}
