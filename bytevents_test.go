package mvfst

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harvey-Liu/mvfst/internal/protocol"
)

type recordingByteEventCB struct {
	events    []ByteEvent
	cancelled []protocol.ByteCount
}

func (r *recordingByteEventCB) OnByteEvent(ev ByteEvent) { r.events = append(r.events, ev) }
func (r *recordingByteEventCB) OnByteEventCanceled(id protocol.StreamID, offset protocol.ByteCount, t ByteEventType) {
	r.cancelled = append(r.cancelled, offset)
}

func TestByteEventRegistryFiresInOffsetOrder(t *testing.T) {
	r := newByteEventRegistry()
	cb := &recordingByteEventCB{}
	require.True(t, r.Register(ByteEventACK, 4, 100, cb))
	require.True(t, r.Register(ByteEventACK, 4, 50, cb))

	r.FireUpTo(ByteEventACK, 4, 60, func(off protocol.ByteCount) ByteEvent {
		return ByteEvent{StreamID: 4, Offset: off, Type: ByteEventACK}
	})

	require.Len(t, cb.events, 1)
	assert.Equal(t, protocol.ByteCount(50), cb.events[0].Offset)
	assert.Equal(t, 1, r.Count(4))
}

func TestByteEventRegistryRejectsDuplicate(t *testing.T) {
	r := newByteEventRegistry()
	cb := &recordingByteEventCB{}
	require.True(t, r.Register(ByteEventTX, 4, 100, cb))
	assert.False(t, r.Register(ByteEventTX, 4, 100, cb))
}

func TestByteEventRegistryCancelForStream(t *testing.T) {
	r := newByteEventRegistry()
	cb := &recordingByteEventCB{}
	r.Register(ByteEventACK, 4, 100, cb)
	r.Register(ByteEventACK, 4, 200, cb)

	upTo := protocol.ByteCount(150)
	empty := r.CancelForStream(ByteEventACK, 4, &upTo)

	assert.False(t, empty)
	require.Len(t, cb.cancelled, 1)
	assert.Equal(t, protocol.ByteCount(100), cb.cancelled[0])
	assert.Equal(t, 1, r.Count(4))
}

func TestByteEventRegistryCancelAll(t *testing.T) {
	r := newByteEventRegistry()
	cb := &recordingByteEventCB{}
	r.Register(ByteEventACK, 4, 100, cb)
	r.Register(ByteEventTX, 7, 50, cb)

	r.CancelAll()

	assert.Equal(t, 0, r.Count(4))
	assert.Equal(t, 0, r.Count(7))
	assert.Len(t, cb.cancelled, 2)
}

func TestRegisterByteEventCallbackFiresAsyncWhenAlreadyReached(t *testing.T) {
	c, _, _ := newTestConnection(t)
	id, err := c.CreateBidirectionalStream()
	require.NoError(t, err)
	st, ok := c.streamMgr.GetStream(id)
	require.True(t, ok)
	st.LargestDeliverableOffset = 500

	cb := &recordingByteEventCB{}
	require.NoError(t, c.registerByteEventCallback(ByteEventACK, id, 100, cb))

	require.Len(t, cb.events, 1)
	assert.Equal(t, protocol.ByteCount(100), cb.events[0].Offset)
}

func TestRegisterByteEventCallbackRejectsUnknownStream(t *testing.T) {
	c, _, _ := newTestConnection(t)
	cb := &recordingByteEventCB{}
	err := c.registerByteEventCallback(ByteEventACK, 999, 0, cb)
	assert.Error(t, err)
}

func TestCancelByteEventCallbacksForStreamClearsDeliverableSet(t *testing.T) {
	c, _, _ := newTestConnection(t)
	id, err := c.CreateBidirectionalStream()
	require.NoError(t, err)
	c.streamMgr.MarkDeliverable(id, true)
	cb := &recordingByteEventCB{}
	c.byteEvents.Register(ByteEventACK, id, 100, cb)

	c.cancelByteEventCallbacksForStream(ByteEventACK, id, nil)

	assert.Empty(t, c.streamMgr.Deliverable())
}
