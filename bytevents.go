package mvfst

import (
	"sort"

	"github.com/Harvey-Liu/mvfst/internal/protocol"
	"github.com/Harvey-Liu/mvfst/internal/streams"
)

// byteEventEntry is one registered (offset, callback) pair, ordered within
// its (type, streamID) queue by non-decreasing offset.
type byteEventEntry struct {
	offset protocol.ByteCount
	cb ByteEventCallback
}

type byteEventKey struct {
	t ByteEventType
	id protocol.StreamID
}

// byteEventRegistry is the per-(type, streamId) ordered-list bookkeeping
// backing ACK and TX byte-event delivery.
type byteEventRegistry struct {
	queues map[byteEventKey][]byteEventEntry
}

func newByteEventRegistry() byteEventRegistry {
	return byteEventRegistry{queues: make(map[byteEventKey][]byteEventEntry)}
}

// Register inserts (offset, cb) preserving offset order. It returns false,
// without inserting, if an identical (offset, cb) pair is already queued at
// that offset, and true otherwise.
func (r *byteEventRegistry) Register(t ByteEventType, id protocol.StreamID, offset protocol.ByteCount, cb ByteEventCallback) bool {
	key := byteEventKey{t, id}
	q := r.queues[key]
	idx := sort.Search(len(q), func(i int) bool { return q[i].offset >= offset })
	for i := idx; i < len(q) && q[i].offset == offset; i++ {
		if q[i].cb == cb {
			return false
		}
	}
	q = append(q, byteEventEntry{})
	copy(q[idx+1:], q[idx:])
	q[idx] = byteEventEntry{offset: offset, cb: cb}
	r.queues[key] = q
	return true
}

// FireUpTo delivers OnByteEvent to every entry with offset <= reached, for
// the given (type, streamID), then removes them. The caller (network
// intake / registration path) supplies srtt for the ACK event's telemetry
// field.
func (r *byteEventRegistry) FireUpTo(t ByteEventType, id protocol.StreamID, reached protocol.ByteCount, mkEvent func(offset protocol.ByteCount) ByteEvent) {
	key := byteEventKey{t, id}
	q := r.queues[key]
	i := 0
	for i < len(q) && q[i].offset <= reached {
		q[i].cb.OnByteEvent(mkEvent(q[i].offset))
		i++
	}
	if i == 0 {
		return
	}
	if i == len(q) {
		delete(r.queues, key)
		return
	}
	r.queues[key] = q[i:]
}

// HasReachableEntry reports whether any entry in the queue has offset <=
// reached, used by an async re-verify step to decide whether an
// already-scheduled fire should still happen.
func (r *byteEventRegistry) HasReachableEntry(t ByteEventType, id protocol.StreamID, reached protocol.ByteCount) bool {
	q := r.queues[byteEventKey{t, id}]
	return len(q) > 0 && q[0].offset <= reached
}

// CancelForStream implements offset-bounded cancellation:
// entries with offset < upTo (or all entries, if upTo is nil) are popped
// and receive OnByteEventCanceled. Returns whether the queue is now empty.
func (r *byteEventRegistry) CancelForStream(t ByteEventType, id protocol.StreamID, upTo *protocol.ByteCount) bool {
	key := byteEventKey{t, id}
	q := r.queues[key]
	if len(q) == 0 {
		return true
	}
	var remaining []byteEventEntry
	for _, e := range q {
		if upTo == nil || e.offset < *upTo {
			e.cb.OnByteEventCanceled(id, e.offset, t)
		} else {
			remaining = append(remaining, e)
		}
	}
	if len(remaining) == 0 {
		delete(r.queues, key)
		return true
	}
	r.queues[key] = remaining
	return false
}

// CancelAll cancels every registered byte event across every stream, part
// of closeImpl's cancelAllAppCallbacks.
func (r *byteEventRegistry) CancelAll() {
	for key, q := range r.queues {
		for _, e := range q {
			e.cb.OnByteEventCanceled(key.id, e.offset, key.t)
		}
	}
	r.queues = make(map[byteEventKey][]byteEventEntry)
}

// Count reports the number of pending byte-event callbacks for a stream
// across both types, used by checkForClosedStream.
func (r *byteEventRegistry) Count(id protocol.StreamID) int {
	n := 0
	n += len(r.queues[byteEventKey{ByteEventACK, id}])
	n += len(r.queues[byteEventKey{ByteEventTX, id}])
	return n
}

// registerByteEventCallback runs the byte-event registration algorithm end
// to end, including the async-fire-if-already-reached step.
func (c *Connection) registerByteEventCallback(t ByteEventType, id protocol.StreamID, offset protocol.ByteCount, cb ByteEventCallback) error {
	if c.closeState != Open {
		return newLocalError(ConnectionClosed)
	}
	st, ok := c.streamMgr.GetStream(id)
	if !ok {
		return newLocalError(StreamNotExists)
	}
	if t == ByteEventACK && !st.CanWrite() && st.SendState != streams.SendStateDataSent {
		return newLocalError(InvalidOperation)
	}
	if !c.byteEvents.Register(t, id, offset, cb) {
		return newLocalError(InvalidOperation)
	}
	reached := st.LargestTransmittedOffset
	if t == ByteEventACK {
		reached = st.LargestDeliverableOffset
	}
	if reached >= offset {
		c.eventLoop.RunAsync(func() {
			// Re-verify presence: the queue may have been mutated
			// (cancelled or already fired) since this closure was
			// scheduled.
			if !c.byteEvents.HasReachableEntry(t, id, reached) {
				return
			}
			c.byteEvents.FireUpTo(t, id, reached, func(off protocol.ByteCount) ByteEvent {
				return ByteEvent{StreamID: id, Offset: off, Type: t, SRTT: c.rttStats.SRTT}
			})
		})
	}
	for _, o := range c.observers {
		o.OnByteEventRegistered(id, offset, t)
	}
	return nil
}

// cancelByteEventCallbacksForStream cancels a stream's byte events of type t
// with offset below upTo (all of them when upTo is nil) and clears the
// corresponding deliverable/tx bit once its queue empties. Safe to call on a
// stream with no pending byte events.
func (c *Connection) cancelByteEventCallbacksForStream(t ByteEventType, id protocol.StreamID, upTo *protocol.ByteCount) {
	if c.byteEvents.CancelForStream(t, id, upTo) {
		if t == ByteEventACK {
			c.streamMgr.MarkDeliverable(id, false)
		} else {
			c.streamMgr.MarkTx(id, false)
		}
	}
}

// RegisterDeliveryCallback registers an ACK ("delivered") byte-event
// callback for id at offset, the application-facing entry point behind
// WriteChain's own optional callback parameter.
func (c *Connection) RegisterDeliveryCallback(id protocol.StreamID, offset protocol.ByteCount, cb ByteEventCallback) error {
	return c.registerByteEventCallback(ByteEventACK, id, offset, cb)
}

// RegisterTxCallback registers a TX ("transmitted") byte-event callback for
// id at offset.
func (c *Connection) RegisterTxCallback(id protocol.StreamID, offset protocol.ByteCount, cb ByteEventCallback) error {
	return c.registerByteEventCallback(ByteEventTX, id, offset, cb)
}

// CancelDeliveryCallbacksForStream cancels every registered ACK callback for
// id with offset below upTo, or every one of them if upTo is nil.
func (c *Connection) CancelDeliveryCallbacksForStream(id protocol.StreamID, upTo *protocol.ByteCount) {
	c.cancelByteEventCallbacksForStream(ByteEventACK, id, upTo)
}
