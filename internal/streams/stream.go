// Package streams is the stream-manager collaborator: it owns per-stream
// state and exposes the iteration surface (readable/peekable/writable/
// closed/deliverable/tx/flow-control-updated sets) and monotonic stream-id
// allocation that the connection core drives. Grounded on quic-go's
// streams_map.go, stream.go, send_stream.go and receive_stream.go, folded
// into a single collaborator.
package streams

import (
	"sort"
	"sync"

	"github.com/Harvey-Liu/mvfst/internal/flowcontrol"
	"github.com/Harvey-Liu/mvfst/internal/protocol"
)

// SendState is the send half's state machine (RFC 9000 §3.1, trimmed to
// what the core needs to decide legality of writeChain/resetStream).
type SendState uint8

const (
	SendStateOpen SendState = iota
	SendStateDataSent
	SendStateResetSent
	SendStateClosed
)

// RecvState is the receive half's state machine (RFC 9000 §3.2).
type RecvState uint8

const (
	RecvStateRecv RecvState = iota
	RecvStateSizeKnown
	RecvStateDataRead
	RecvStateResetRead
	RecvStateClosed
)

// PendingWrite is one queued writeChain() call awaiting flow-control budget.
type PendingWrite struct {
	Data []byte
	EOF bool
}

// WriteBuffer holds bytes enqueued by writeChain but not yet handed to the
// frame scheduler, plus the offset of its first byte (bytes below
// startOffset have already been transmitted and trimmed on ACK).
type WriteBuffer struct {
	StartOffset protocol.ByteCount
	Data []byte
}

// Len reports how many buffered bytes remain untransmitted.
func (b *WriteBuffer) Len() protocol.ByteCount { return protocol.ByteCount(len(b.Data)) }

// Stream is the per-stream state the core reads and mutates directly; it
// is managed by the stream manager but consumed directly by the core.
type Stream struct {
	ID protocol.StreamID
	GroupID protocol.GroupID
	HasGroup bool

	SendState SendState
	RecvState RecvState

	CurrentReadOffset protocol.ByteCount
	CurrentWriteOffset protocol.ByteCount

	WriteBuffer WriteBuffer
	PendingWrites []PendingWrite

	// ReadBuffer holds bytes received in order and not yet consumed by
	// read()/peek(); out-of-order reassembly is the codec collaborator's
	// job and is not modeled here.
	ReadBuffer []byte

	FlowControl *flowcontrol.FlowController

	Priority Priority

	StreamReadError error
	StreamWriteError error

	FinalReadOffset *protocol.ByteCount
	FinalWriteOffset *protocol.ByteCount

	// HolbBlockedDuration accumulates head-of-line-blocking observed on
	// this stream, exposed via getStreamTransportInfo.
	HolbBlockedDuration int64
	HolbCount int64

	IsControl bool

	// LargestWriteOffsetSeen is the offset one past the last byte enqueued
	// via writeChain -- used to place ACK byte-event registrations.
	LargestWriteOffsetSeen protocol.ByteCount

	// LargestDeliverableOffset / LargestTransmittedOffset track the ACK
	// state fed by the ingress pipeline; byte events fire once these reach
	// a registered offset.
	LargestDeliverableOffset protocol.ByteCount
	LargestTransmittedOffset protocol.ByteCount

	closed bool
}

func (s *Stream) IsReadClosed() bool { return s.RecvState == RecvStateClosed }
func (s *Stream) IsWriteClosed() bool { return s.SendState == SendStateClosed }

// CanRead reports whether the receive side is open for read()/peek().
func (s *Stream) CanRead() bool {
	return s.RecvState != RecvStateClosed
}

// CanWrite reports whether the send side accepts writeChain().
func (s *Stream) CanWrite() bool {
	return s.SendState == SendStateOpen || s.SendState == SendStateDataSent
}

// EOM (end-of-message / FIN) reports whether the local application has
// consumed all bytes up to and including a peer-signaled FIN.
func (s *Stream) EOM() bool { return s.FinalReadOffset != nil && s.CurrentReadOffset >= *s.FinalReadOffset }

// Manager owns every Stream on a connection plus the iteration sets the
// dispatcher walks each turn.
type Manager struct {
	mu sync.Mutex

	perspective protocol.Perspective

	streams map[protocol.StreamID]*Stream

	nextLocalBidi protocol.StreamID
	nextLocalUni protocol.StreamID

	maxLocalBidi protocol.StreamNum
	maxLocalUni protocol.StreamNum

	openedLocalBidi protocol.StreamNum
	openedLocalUni protocol.StreamNum

	readable map[protocol.StreamID]struct{}
	peekable map[protocol.StreamID]struct{}
	writable map[protocol.StreamID]struct{}
	closedStreams map[protocol.StreamID]struct{}
	deliverable map[protocol.StreamID]struct{}
	tx map[protocol.StreamID]struct{}
	flowControlUpdate map[protocol.StreamID]struct{}
	stopSending map[protocol.StreamID]struct{}
}

// NewManager creates an empty stream manager for the given perspective.
func NewManager(perspective protocol.Perspective) *Manager {
	m := &Manager{
		perspective: perspective,
		streams: make(map[protocol.StreamID]*Stream),
		readable: make(map[protocol.StreamID]struct{}),
		peekable: make(map[protocol.StreamID]struct{}),
		writable: make(map[protocol.StreamID]struct{}),
		closedStreams: make(map[protocol.StreamID]struct{}),
		deliverable: make(map[protocol.StreamID]struct{}),
		tx: make(map[protocol.StreamID]struct{}),
		flowControlUpdate: make(map[protocol.StreamID]struct{}),
		stopSending: make(map[protocol.StreamID]struct{}),
	}
	m.nextLocalBidi = protocol.FirstStreamID(false, perspective)
	m.nextLocalUni = protocol.FirstStreamID(true, perspective)
	m.maxLocalBidi = 100
	m.maxLocalUni = 100
	return m
}

// StreamExists reports whether id names a live (not yet reaped) stream.
func (m *Manager) StreamExists(id protocol.StreamID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.streams[id]
	return ok
}

// GetStream returns the stream, if it exists.
func (m *Manager) GetStream(id protocol.StreamID) (*Stream, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.streams[id]
	return s, ok
}

func newStream(id protocol.StreamID, recvWindow, peerSendWindow protocol.ByteCount, onWindowUpdate flowcontrol.WindowUpdateFn) *Stream {
	return &Stream{
		ID: id,
		Priority: DefaultPriority,
		FlowControl: flowcontrol.New(recvWindow, peerSendWindow, onWindowUpdate),
	}
}

// OpenBidirectionalStream allocates the next local bidirectional stream ID,
// enforcing the peer-advertised concurrent-stream limit.
func (m *Manager) OpenBidirectionalStream(recvWindow, peerSendWindow protocol.ByteCount, onWindowUpdate flowcontrol.WindowUpdateFn) (*Stream, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openedLocalBidi >= m.maxLocalBidi {
		return nil, false
	}
	id := m.nextLocalBidi
	m.nextLocalBidi += 4
	m.openedLocalBidi++
	s := newStream(id, recvWindow, peerSendWindow, onWindowUpdate)
	m.streams[id] = s
	return s, true
}

// OpenUnidirectionalStream allocates the next local unidirectional stream ID.
func (m *Manager) OpenUnidirectionalStream(recvWindow, peerSendWindow protocol.ByteCount, onWindowUpdate flowcontrol.WindowUpdateFn) (*Stream, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openedLocalUni >= m.maxLocalUni {
		return nil, false
	}
	id := m.nextLocalUni
	m.nextLocalUni += 4
	m.openedLocalUni++
	s := newStream(id, recvWindow, peerSendWindow, onWindowUpdate)
	m.streams[id] = s
	return s, true
}

// GetOrOpenPeerStream returns the peer-initiated stream with id, creating
// only that stream on first reference; lower-numbered streams of the same
// type are not opened implicitly.
func (m *Manager) GetOrOpenPeerStream(id protocol.StreamID, recvWindow, peerSendWindow protocol.ByteCount, onWindowUpdate flowcontrol.WindowUpdateFn) *Stream {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.streams[id]; ok {
		return s
	}
	s := newStream(id, recvWindow, peerSendWindow, onWindowUpdate)
	m.streams[id] = s
	return s
}

// SetLocalStreamLimits raises the number of local streams that may be
// opened, in response to a peer MAX_STREAMS frame.
func (m *Manager) SetLocalStreamLimits(bidi, uni protocol.StreamNum) (bidiIncreased, uniIncreased bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if bidi > m.maxLocalBidi {
		m.maxLocalBidi = bidi
		bidiIncreased = true
	}
	if uni > m.maxLocalUni {
		m.maxLocalUni = uni
		uniIncreased = true
	}
	return
}

// OpenableBidi / OpenableUni report how many more local streams of each
// type may currently be opened -- used for the streams-available dispatch
// step.
func (m *Manager) OpenableBidi() protocol.StreamNum {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openedLocalBidi >= m.maxLocalBidi {
		return 0
	}
	return m.maxLocalBidi - m.openedLocalBidi
}

func (m *Manager) OpenableUni() protocol.StreamNum {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openedLocalUni >= m.maxLocalUni {
		return 0
	}
	return m.maxLocalUni - m.openedLocalUni
}

// MarkClosed flags a stream as reaped-by-the-collaborator; the core still
// owns actually removing it via DeleteStream once checkForClosedStream's
// preconditions hold.
func (m *Manager) MarkClosed(id protocol.StreamID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closedStreams[id] = struct{}{}
}

// DeleteStream removes a reaped stream from every set.
func (m *Manager) DeleteStream(id protocol.StreamID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.streams, id)
	delete(m.readable, id)
	delete(m.peekable, id)
	delete(m.writable, id)
	delete(m.closedStreams, id)
	delete(m.deliverable, id)
	delete(m.tx, id)
	delete(m.flowControlUpdate, id)
	delete(m.stopSending, id)
}

func markSet(set map[protocol.StreamID]struct{}, mu *sync.Mutex, id protocol.StreamID, on bool) {
	mu.Lock()
	defer mu.Unlock()
	if on {
		set[id] = struct{}{}
	} else {
		delete(set, id)
	}
}

func (m *Manager) MarkReadable(id protocol.StreamID, on bool) { markSet(m.readable, &m.mu, id, on) }
func (m *Manager) MarkPeekable(id protocol.StreamID, on bool) { markSet(m.peekable, &m.mu, id, on) }
func (m *Manager) MarkWritable(id protocol.StreamID, on bool) { markSet(m.writable, &m.mu, id, on) }
func (m *Manager) MarkDeliverable(id protocol.StreamID, on bool) { markSet(m.deliverable, &m.mu, id, on) }
func (m *Manager) MarkTx(id protocol.StreamID, on bool) { markSet(m.tx, &m.mu, id, on) }
func (m *Manager) MarkFlowControlUpdated(id protocol.StreamID, on bool) { markSet(m.flowControlUpdate, &m.mu, id, on) }
func (m *Manager) MarkStopSending(id protocol.StreamID, on bool) { markSet(m.stopSending, &m.mu, id, on) }

// snapshot returns a sorted copy of a set's keys. The dispatcher always
// snapshots before iterating so that a callback closing a stream mid-dispatch
// cannot corrupt iteration.
func snapshot(set map[protocol.StreamID]struct{}, mu *sync.Mutex) []protocol.StreamID {
	mu.Lock()
	ids := make([]protocol.StreamID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *Manager) Readable() []protocol.StreamID { return snapshot(m.readable, &m.mu) }
func (m *Manager) Peekable() []protocol.StreamID { return snapshot(m.peekable, &m.mu) }
func (m *Manager) Writable() []protocol.StreamID { return snapshot(m.writable, &m.mu) }
func (m *Manager) Closed() []protocol.StreamID { return snapshot(m.closedStreams, &m.mu) }
func (m *Manager) Deliverable() []protocol.StreamID { return snapshot(m.deliverable, &m.mu) }
func (m *Manager) Tx() []protocol.StreamID { return snapshot(m.tx, &m.mu) }
func (m *Manager) FlowControlUpdated() []protocol.StreamID { return snapshot(m.flowControlUpdate, &m.mu) }
func (m *Manager) StopSendingPending() []protocol.StreamID { return snapshot(m.stopSending, &m.mu) }

// Count reports the number of live streams, used by closeGracefully /
// checkForClosedStream to decide when GracefulClosing may finish.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.streams)
}

// All returns a stable-ordered snapshot of every live stream ID.
func (m *Manager) All() []protocol.StreamID {
	m.mu.Lock()
	ids := make([]protocol.StreamID, 0, len(m.streams))
	for id := range m.streams {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
