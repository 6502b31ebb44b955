package mvfst

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harvey-Liu/mvfst/internal/protocol"
	"github.com/Harvey-Liu/mvfst/internal/streams"
)

func TestCreateBidirectionalStreamAllocatesID(t *testing.T) {
	c, _, _ := newTestConnection(t)
	id1, err := c.CreateBidirectionalStream()
	require.NoError(t, err)
	id2, err := c.CreateBidirectionalStream()
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)
	assert.Equal(t, protocol.PerspectiveClient, id1.InitiatedBy())
	assert.False(t, id1.IsUniDirectional())
}

func TestCreateStreamInGroupTagsGroup(t *testing.T) {
	c, _, _ := newTestConnection(t)
	id, err := c.CreateUnidirectionalStreamInGroup(42)
	require.NoError(t, err)
	group, ok := c.GroupID(id)
	require.True(t, ok)
	assert.Equal(t, protocol.GroupID(42), group)
}

func TestWriteChainThenReadRoundTrips(t *testing.T) {
	c, _, _ := newTestConnection(t)
	id, err := c.CreateBidirectionalStream()
	require.NoError(t, err)

	require.NoError(t, c.WriteChain(id, []byte("hello"), false, nil))

	st, ok := c.streamMgr.GetStream(id)
	require.True(t, ok)
	// Simulate the codec collaborator delivering the peer's echo into our
	// own read buffer, since no real wire path exists in this test.
	st.ReadBuffer = append(st.ReadBuffer, []byte("world")...)

	buf := make([]byte, 5)
	n, eof, err := c.Read(id, buf)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.False(t, eof)
	assert.Equal(t, "world", string(buf))
}

func TestWriteChainRejectsClosedSendSide(t *testing.T) {
	c, _, _ := newTestConnection(t)
	id, err := c.CreateBidirectionalStream()
	require.NoError(t, err)
	st, _ := c.streamMgr.GetStream(id)
	st.SendState = streams.SendStateClosed

	assert.Error(t, c.WriteChain(id, []byte("x"), false, nil))
}

func TestWriteChainRejectsPeerInitiatedUniStream(t *testing.T) {
	c, _, _ := newTestConnection(t)
	id := c.streamMgr.GetOrOpenPeerStream(3, c.settings.StreamFlowControlWindow, 0, nil).ID

	err := c.WriteChain(id, []byte("x"), false, nil)
	require.Error(t, err)
	code, ok := AsLocalErrorCode(err)
	require.True(t, ok)
	assert.Equal(t, InvalidOperation, code)
}

func TestWriteChainAllowsLocallyInitiatedUniStream(t *testing.T) {
	c, _, _ := newTestConnection(t)
	id, err := c.CreateUnidirectionalStream()
	require.NoError(t, err)

	assert.NoError(t, c.WriteChain(id, []byte("x"), false, nil))
}

func TestResetStreamMarksResetSent(t *testing.T) {
	c, _, _ := newTestConnection(t)
	id, err := c.CreateBidirectionalStream()
	require.NoError(t, err)
	require.NoError(t, c.WriteChain(id, []byte("buffered"), false, nil))

	require.NoError(t, c.ResetStream(id, ApplicationErrorCode(1)))

	st, _ := c.streamMgr.GetStream(id)
	assert.Equal(t, streams.SendStateResetSent, st.SendState)
	assert.Empty(t, st.WriteBuffer.Data)
}

func TestResetStreamRejectsDoubleReset(t *testing.T) {
	c, _, _ := newTestConnection(t)
	id, err := c.CreateBidirectionalStream()
	require.NoError(t, err)
	require.NoError(t, c.ResetStream(id, ApplicationErrorCode(1)))
	assert.Error(t, c.ResetStream(id, ApplicationErrorCode(1)))
}

func TestPeekThenConsumeAdvancesOffset(t *testing.T) {
	c, _, _ := newTestConnection(t)
	id, err := c.CreateBidirectionalStream()
	require.NoError(t, err)
	st, _ := c.streamMgr.GetStream(id)
	st.ReadBuffer = []byte("peekme")

	var peeked []byte
	require.NoError(t, c.Peek(id, func(offset protocol.ByteCount, data []byte) {
		peeked = append(peeked, data...)
	}))
	assert.Equal(t, "peekme", string(peeked))

	require.NoError(t, c.Consume(id, 0, 4))
	assert.Equal(t, protocol.ByteCount(4), st.CurrentReadOffset)
	assert.Equal(t, "me", string(st.ReadBuffer))
}

func TestSetAndGetStreamPriority(t *testing.T) {
	c, _, _ := newTestConnection(t)
	id, err := c.CreateBidirectionalStream()
	require.NoError(t, err)

	require.NoError(t, c.SetStreamPriority(id, Priority{Level: 1, Incremental: true}))
	p, err := c.GetStreamPriority(id)
	require.NoError(t, err)
	assert.Equal(t, Priority{Level: 1, Incremental: true}, p)
}
