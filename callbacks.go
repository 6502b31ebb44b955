package mvfst

import "github.com/Harvey-Liu/mvfst/internal/protocol"

// readPeekEntry is the {callback, paused, deliveredEOM} record shared by
// the read and peek callback maps.
type readPeekEntry struct {
	readCB ReadCallback
	peekCB PeekCallback
	paused bool
	deliveredEOM bool
}

// callbackRegistry holds every per-stream and singleton application
// callback slot: read/peek entries, write-ready notifications, and the
// ping/datagram singletons.
type callbackRegistry struct {
	readCallbacks map[protocol.StreamID]*readPeekEntry
	peekCallbacks map[protocol.StreamID]*readPeekEntry

	streamWriteCallbacks map[protocol.StreamID]WriteCallback
	connWriteCallback WriteCallback

	pingCallback PingCallback
	datagramCallback DatagramCallback
}

func newCallbackRegistry() callbackRegistry {
	return callbackRegistry{
		readCallbacks: make(map[protocol.StreamID]*readPeekEntry),
		peekCallbacks: make(map[protocol.StreamID]*readPeekEntry),
		streamWriteCallbacks: make(map[protocol.StreamID]WriteCallback),
	}
}

// snapshotStreamIDs returns a copy of a callback map's keys so a callback
// that mutates the map mid-dispatch cannot corrupt iteration.
func snapshotStreamIDs[V any](m map[protocol.StreamID]V) []protocol.StreamID {
	ids := make([]protocol.StreamID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	return ids
}

// SetReadCallback installs, replaces, or clears a stream's read callback.
// A nil callback with no prior installation is rejected; a nil callback
// clearing an existing one may carry an application error code, which
// triggers stopSending on the stream's peer-facing send side.
func (c *Connection) SetReadCallback(id protocol.StreamID, cb ReadCallback, appErr *ApplicationErrorCode) error {
	if c.closeState != Open {
		return newLocalError(ConnectionClosed)
	}
	st, ok := c.streamMgr.GetStream(id)
	if !ok {
		return newLocalError(StreamNotExists)
	}
	if id.InitiatedBy() == c.perspective && id.IsUniDirectional() {
		return newLocalError(InvalidOperation)
	}
	existing, hasExisting := c.callbacks.readCallbacks[id]
	if cb == nil {
		if !hasExisting || existing.readCB == nil {
			return newLocalError(InvalidOperation)
		}
		delete(c.callbacks.readCallbacks, id)
		c.streamMgr.MarkReadable(id, false)
		if appErr != nil {
			c.stopSending(id, *appErr)
		}
		return nil
	}
	if hasExisting && existing.readCB != nil {
		return newLocalError(CallbackAlreadyInstalled)
	}
	c.callbacks.readCallbacks[id] = &readPeekEntry{readCB: cb}
	if len(st.ReadBuffer) > 0 || st.EOM() {
		c.streamMgr.MarkReadable(id, true)
		c.readLooper.Run()
	}
	return nil
}

// SetPeekCallback registers a peek callback, following the same
// null-transition rules as SetReadCallback minus the stopSending side
// effect (there is no error code parameter for peek).
func (c *Connection) SetPeekCallback(id protocol.StreamID, cb PeekCallback) error {
	if c.closeState != Open {
		return newLocalError(ConnectionClosed)
	}
	if !c.streamMgr.StreamExists(id) {
		return newLocalError(StreamNotExists)
	}
	existing, hasExisting := c.callbacks.peekCallbacks[id]
	if cb == nil {
		if !hasExisting || existing.peekCB == nil {
			return newLocalError(InvalidOperation)
		}
		delete(c.callbacks.peekCallbacks, id)
		c.streamMgr.MarkPeekable(id, false)
		return nil
	}
	if hasExisting && existing.peekCB != nil {
		return newLocalError(CallbackAlreadyInstalled)
	}
	c.callbacks.peekCallbacks[id] = &readPeekEntry{peekCB: cb}
	c.streamMgr.MarkPeekable(id, true)
	c.peekLooper.Run()
	return nil
}

func setPaused(m map[protocol.StreamID]*readPeekEntry, id protocol.StreamID, paused bool) bool {
	e, ok := m[id]
	if !ok {
		return false
	}
	e.paused = paused
	return true
}

// PauseRead / ResumeRead / PausePeek / ResumePeek toggle the per-entry
// pause bit and reschedule the corresponding looper.
func (c *Connection) PauseRead(id protocol.StreamID) error {
	if !setPaused(c.callbacks.readCallbacks, id, true) {
		return newLocalError(InvalidOperation)
	}
	c.readLooper.Run()
	return nil
}

func (c *Connection) ResumeRead(id protocol.StreamID) error {
	if !setPaused(c.callbacks.readCallbacks, id, false) {
		return newLocalError(InvalidOperation)
	}
	c.readLooper.Run()
	return nil
}

func (c *Connection) PausePeek(id protocol.StreamID) error {
	if !setPaused(c.callbacks.peekCallbacks, id, true) {
		return newLocalError(InvalidOperation)
	}
	c.peekLooper.Run()
	return nil
}

func (c *Connection) ResumePeek(id protocol.StreamID) error {
	if !setPaused(c.callbacks.peekCallbacks, id, false) {
		return newLocalError(InvalidOperation)
	}
	c.peekLooper.Run()
	return nil
}

// NotifyPendingWriteOnConnection installs the singleton connection-level
// write-ready slot.
func (c *Connection) NotifyPendingWriteOnConnection(cb WriteCallback) error {
	if c.closeState != Open {
		return newLocalError(ConnectionClosed)
	}
	if c.callbacks.connWriteCallback != nil {
		return newLocalError(CallbackAlreadyInstalled)
	}
	c.callbacks.connWriteCallback = cb
	if c.maxWritableOnConn() > 0 {
		c.writeLooper.Run()
	}
	return nil
}

// NotifyPendingWriteOnStream installs a per-stream write-ready callback.
func (c *Connection) NotifyPendingWriteOnStream(id protocol.StreamID, cb WriteCallback) error {
	if c.closeState != Open {
		return newLocalError(ConnectionClosed)
	}
	if !c.streamMgr.StreamExists(id) {
		return newLocalError(StreamNotExists)
	}
	if _, ok := c.callbacks.streamWriteCallbacks[id]; ok {
		return newLocalError(CallbackAlreadyInstalled)
	}
	c.callbacks.streamWriteCallbacks[id] = cb
	return nil
}

// UnregisterStreamWriteCallback removes a per-stream write-ready callback.
func (c *Connection) UnregisterStreamWriteCallback(id protocol.StreamID) {
	delete(c.callbacks.streamWriteCallbacks, id)
}

// cancelAllAppCallbacks delivers a terminal notification with cancelCode
// to every registered read, peek, connection-write and stream-write
// callback and cancels every pending byte event, as part of the connection
// close sequence. Ping, datagram and knob callbacks are left untouched.
func (c *Connection) cancelAllAppCallbacks(cancelCode *QuicError) {
	for _, id := range snapshotStreamIDs(c.callbacks.readCallbacks) {
		if e, ok := c.callbacks.readCallbacks[id]; ok && e.readCB != nil {
			e.readCB.OnStreamReadError(id, cancelCode)
		}
	}
	for _, id := range snapshotStreamIDs(c.callbacks.peekCallbacks) {
		if e, ok := c.callbacks.peekCallbacks[id]; ok && e.peekCB != nil {
			e.peekCB.OnStreamPeekError(id, cancelCode)
		}
	}
	if c.callbacks.connWriteCallback != nil {
		c.callbacks.connWriteCallback.OnConnectionWriteError(cancelCode)
		c.callbacks.connWriteCallback = nil
	}
	for _, id := range snapshotStreamIDs(c.callbacks.streamWriteCallbacks) {
		if cb, ok := c.callbacks.streamWriteCallbacks[id]; ok {
			cb.OnStreamWriteError(id, cancelCode)
		}
	}
	c.callbacks.readCallbacks = make(map[protocol.StreamID]*readPeekEntry)
	c.callbacks.peekCallbacks = make(map[protocol.StreamID]*readPeekEntry)
	c.callbacks.streamWriteCallbacks = make(map[protocol.StreamID]WriteCallback)
	c.byteEvents.CancelAll()
}
